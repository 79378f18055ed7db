// Package propagation waits for a freshly published TXT record to become
// visible on a set of nameservers.
package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"gitlab.bluewillows.net/root/wsdns/internal/metrics"
)

// DefaultResolvConf is read when no nameservers are configured.
const DefaultResolvConf = "/etc/resolv.conf"

// DefaultQueryTimeout bounds a single DNS exchange.
const DefaultQueryTimeout = 5 * time.Second

// Check results, also used as metric labels.
const (
	ResultFound   = "found"
	ResultMissing = "missing"
	ResultError   = "error"
)

// ErrTimeout is returned by Wait when the record did not appear in time.
var ErrTimeout = errors.New("timed out waiting for DNS propagation")

// fallbackNameservers are used when resolv.conf is unreadable or empty.
var fallbackNameservers = []string{"1.1.1.1:53", "8.8.8.8:53"}

// Checker polls nameservers for a TXT record.
type Checker struct {
	nameservers  []string
	timeout      time.Duration
	interval     time.Duration
	queryTimeout time.Duration
	logger       *slog.Logger
}

// Option is a functional option for configuring the Checker.
type Option func(*Checker)

// WithNameservers sets the nameservers to query. Entries without a port get :53.
func WithNameservers(servers []string) Option {
	return func(c *Checker) {
		if len(servers) > 0 {
			c.nameservers = withPort(servers)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQueryTimeout sets the timeout of a single DNS exchange.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.queryTimeout = d
	}
}

// New creates a Checker. A zero timeout disables waiting.
func New(timeout, interval time.Duration, opts ...Option) *Checker {
	c := &Checker{
		timeout:      timeout,
		interval:     interval,
		queryTimeout: DefaultQueryTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval <= 0 {
		c.interval = time.Second
	}
	if c.nameservers == nil {
		c.nameservers = SystemNameservers(DefaultResolvConf)
	}
	return c
}

// Enabled reports whether Wait does anything.
func (c *Checker) Enabled() bool {
	return c.timeout > 0
}

// Nameservers returns the servers queried, as host:port.
func (c *Checker) Nameservers() []string {
	return c.nameservers
}

// SystemNameservers reads nameservers from a resolv.conf style file, falling
// back to public resolvers.
func SystemNameservers(path string) []string {
	config, err := dns.ClientConfigFromFile(path)
	if err != nil || len(config.Servers) == 0 {
		return fallbackNameservers
	}
	return withPort(config.Servers)
}

func withPort(servers []string) []string {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		out = append(out, s)
	}
	return out
}

// Check queries every nameserver once and reports whether all of them serve
// a TXT record at fqdn containing value.
func (c *Checker) Check(ctx context.Context, fqdn, value string) (bool, error) {
	fqdn = dns.Fqdn(fqdn)
	for _, ns := range c.nameservers {
		found, err := c.checkServer(ctx, ns, fqdn, value)
		switch {
		case err != nil:
			metrics.PropagationChecksTotal.WithLabelValues(ResultError).Inc()
			return false, err
		case !found:
			metrics.PropagationChecksTotal.WithLabelValues(ResultMissing).Inc()
			c.logger.Debug("TXT record not visible yet",
				slog.String("fqdn", fqdn),
				slog.String("nameserver", ns),
			)
			return false, nil
		}
		metrics.PropagationChecksTotal.WithLabelValues(ResultFound).Inc()
	}
	return true, nil
}

func (c *Checker) checkServer(ctx context.Context, ns, fqdn, value string) (bool, error) {
	m := new(dns.Msg)
	m.SetQuestion(fqdn, dns.TypeTXT)
	m.SetEdns0(4096, false)

	udp := &dns.Client{Net: "udp", Timeout: c.queryTimeout}
	in, _, err := udp.ExchangeContext(ctx, m, ns)
	if err == nil && in.Truncated {
		tcp := &dns.Client{Net: "tcp", Timeout: c.queryTimeout}
		in, _, err = tcp.ExchangeContext(ctx, m, ns)
	}
	if err != nil {
		return false, fmt.Errorf("querying %s for %s: %w", ns, fqdn, err)
	}

	// NXDOMAIN just means the record has not arrived yet
	if in.Rcode != dns.RcodeSuccess && in.Rcode != dns.RcodeNameError {
		return false, fmt.Errorf("nameserver %s returned %s for %s", ns, dns.RcodeToString[in.Rcode], fqdn)
	}

	for _, rr := range in.Answer {
		if txt, ok := rr.(*dns.TXT); ok && strings.Join(txt.Txt, "") == value {
			return true, nil
		}
	}
	return false, nil
}

// Wait polls until the record is visible on every nameserver, the timeout
// expires or ctx is cancelled. Lookup errors are logged and retried. Returns
// nil immediately when the Checker is disabled.
func (c *Checker) Wait(ctx context.Context, fqdn, value string) error {
	if !c.Enabled() {
		return nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("waiting for DNS propagation",
		slog.String("fqdn", fqdn),
		slog.Duration("timeout", c.timeout),
		slog.Any("nameservers", c.nameservers),
	)

	for {
		found, err := c.Check(ctx, fqdn, value)
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("propagation check failed",
				slog.String("fqdn", fqdn),
				slog.String("error", err.Error()),
			)
		}
		if found {
			elapsed := time.Since(start)
			metrics.PropagationWaitDuration.Observe(elapsed.Seconds())
			c.logger.Info("TXT record propagated",
				slog.String("fqdn", fqdn),
				slog.Duration("elapsed", elapsed),
			)
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s after %s", ErrTimeout, fqdn, c.timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
