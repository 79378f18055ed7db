// wsdns solves ACME DNS-01 challenges for domains hosted at Websupport.
//
// It runs either as a one-shot hook (certbot --manual-auth-hook /
// --manual-cleanup-hook, or any script passing domain and validation) or as a
// long-running server speaking lego's httpreq protocol.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/wsdns/internal/config"
	"gitlab.bluewillows.net/root/wsdns/internal/metrics"
	"gitlab.bluewillows.net/root/wsdns/internal/propagation"
	"gitlab.bluewillows.net/root/wsdns/providers/websupport"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Getenv).ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string

	out    io.Writer
	getenv func(string) string
}

func newRootCmd(out io.Writer, getenv func(string) string) *cobra.Command {
	opts := &rootOptions{out: out, getenv: getenv}

	rootCmd := &cobra.Command{
		Use:           "wsdns",
		Short:         "Solve ACME DNS-01 challenges with Websupport DNS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML config file (default $WSDNS_CONFIG_FILE)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "override log format: json, text")

	rootCmd.AddCommand(
		newPresentCmd(opts),
		newCleanupCmd(opts),
		newServeCmd(opts),
		newCheckCmd(opts),
		newVersionCmd(opts),
	)

	return rootCmd
}

// app is the wiring shared by the subcommands that talk to the API.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *websupport.Provider
	checker  *propagation.Checker
}

func newApp(opts *rootOptions) (*app, error) {
	path := opts.configFile
	if path == "" {
		path = config.GetConfigFilePath()
	}

	cfg, err := config.LoadWithPath(path)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	level, format := cfg.Global.LogLevel, cfg.Global.LogFormat
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if opts.logFormat != "" {
		format = opts.logFormat
	}
	logger := setupLogger(level, format)
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Debug("configuration loaded", slog.String("config", cfg.String()))

	p, err := websupport.NewFromMap(websupport.TypeName, cfg.Provider,
		websupport.WithProviderLogger(logger),
		websupport.WithUserAgent("wsdns/"+Version),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	checker := propagation.New(cfg.Global.PropagationTimeout, cfg.Global.PropagationInterval,
		propagation.WithNameservers(cfg.Global.Nameservers),
		propagation.WithLogger(logger),
	)

	return &app{cfg: cfg, logger: logger, provider: p, checker: checker}, nil
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	// stdout is reserved for command output; hooks parse it
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
