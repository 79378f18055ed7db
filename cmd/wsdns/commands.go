package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/wsdns/internal/health"
	"gitlab.bluewillows.net/root/wsdns/internal/hookserver"
	"gitlab.bluewillows.net/root/wsdns/pkg/provider"
)

// Environment variables set by certbot for manual hooks.
const (
	envCertbotDomain     = "CERTBOT_DOMAIN"
	envCertbotValidation = "CERTBOT_VALIDATION"
)

const shutdownTimeout = 5 * time.Second

var errMissingChallenge = errors.New("domain and validation are required (as arguments or via CERTBOT_DOMAIN and CERTBOT_VALIDATION)")

// challengeInput resolves the domain and TXT value from positional arguments,
// falling back to the certbot hook environment.
func challengeInput(args []string, getenv func(string) string) (domain, value string, err error) {
	switch len(args) {
	case 2:
		domain, value = args[0], args[1]
	case 1:
		domain, value = args[0], getenv(envCertbotValidation)
	default:
		domain, value = getenv(envCertbotDomain), getenv(envCertbotValidation)
	}
	if domain == "" || value == "" {
		return "", "", errMissingChallenge
	}
	return domain, value, nil
}

// recordFQDN is the absolute challenge record name for domain.
func recordFQDN(domain string) string {
	return provider.ChallengeFQDN(domain) + "."
}

func newPresentCmd(opts *rootOptions) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "present [domain] [validation]",
		Short: "Publish the _acme-challenge TXT record for domain",
		Long: "Publish the _acme-challenge TXT record for domain. Without arguments the\n" +
			"domain and value are read from CERTBOT_DOMAIN and CERTBOT_VALIDATION, so the\n" +
			"command can be used directly as certbot's --manual-auth-hook.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, value, err := challengeInput(args, opts.getenv)
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			fqdn := recordFQDN(domain)
			if err := a.provider.PerformChallenge(ctx, domain, fqdn, value); err != nil {
				return err
			}

			if wait || a.cfg.Global.Wait {
				if err := a.checker.Wait(ctx, fqdn, value); err != nil {
					return fmt.Errorf("record published but not yet visible: %w", err)
				}
			}

			fmt.Fprintln(opts.out, fqdn)
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the record is visible on the configured nameservers (default $WSDNS_WAIT)")

	return cmd
}

func newCleanupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup [domain] [validation]",
		Short: "Remove the _acme-challenge TXT record published by present",
		Long: "Remove the _acme-challenge TXT record published by present. Failures are\n" +
			"logged and never change the exit status, so the command is safe as certbot's\n" +
			"--manual-cleanup-hook.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, value, err := challengeInput(args, opts.getenv)
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}

			a.provider.CleanupChallenge(cmd.Context(), domain, recordFQDN(domain), value)
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the lego httpreq hook endpoints with health and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	g := a.cfg.Global

	srv := health.New(g.ListenPort, health.WithLogger(a.logger))
	srv.RegisterChecker("provider:"+a.provider.Name(), a.provider.Ping)

	hooks := hookserver.New(a.provider,
		hookserver.WithLogger(a.logger),
		hookserver.WithBasicAuth(g.HookUsername, g.HookPassword),
	)
	hooks.Mount(srv)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	a.logger.Info("wsdns serving",
		slog.String("version", Version),
		slog.String("addr", srv.Addr()),
		slog.String("hooks", hooks.String()),
	)

	<-ctx.Done()
	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("server shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("wsdns shutdown complete")
	return nil
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the API accepts the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if err := a.provider.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(opts.out, "credentials OK")
			return nil
		},
	}
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(opts.out, "wsdns %s (built %s, %s)\n", Version, BuildDate, runtime.Version())
		},
	}
}
