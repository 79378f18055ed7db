package websupport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gitlab.bluewillows.net/root/wsdns/internal/metrics"
	"gitlab.bluewillows.net/root/wsdns/pkg/httputil"
	"gitlab.bluewillows.net/root/wsdns/pkg/provider"
)

// TypeName identifies this provider in logs and errors.
const TypeName = "websupport"

// Provider solves DNS-01 challenges with Websupport DNS. It satisfies
// provider.Authenticator, lego's challenge.Provider and the libdns record
// interfaces.
type Provider struct {
	name               string
	ttl                int
	propagationTimeout time.Duration
	pollingInterval    time.Duration
	client             *Client
	logger             *slog.Logger

	httpClient *http.Client
	userAgent  string
	clock      func() time.Time
}

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets a custom logger for the provider.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProviderHTTPClient makes the provider use httpClient instead of building
// one from the configured timeout.
func WithProviderHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent sent to the API.
func WithUserAgent(userAgent string) ProviderOption {
	return func(p *Provider) {
		p.userAgent = userAgent
	}
}

// WithProviderClock overrides the time source used to sign requests.
func WithProviderClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.clock = now
	}
}

// New creates a new Websupport provider instance.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:               name,
		ttl:                config.TTL,
		propagationTimeout: config.PropagationTimeout,
		pollingInterval:    config.PollingInterval,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.httpClient == nil {
		p.httpClient = httputil.NewClient(&httputil.ClientConfig{
			Timeout:   config.Timeout,
			UserAgent: p.userAgent,
			Logger:    p.logger,
		})
	}

	p.client = NewClient(config.APIKey, config.APISecret,
		WithAPIEndpoint(config.APIEndpoint),
		WithHTTPClient(p.httpClient),
		WithLogger(p.logger),
		WithClock(p.clock),
	)

	return p, nil
}

// NewFromMap creates a new Websupport provider from a settings map.
func NewFromMap(name string, settings map[string]string, opts ...ProviderOption) (*Provider, error) {
	cfg, err := LoadConfigFromMap(name, settings)
	if err != nil {
		return nil, err
	}
	return New(name, cfg, opts...)
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "websupport".
func (p *Provider) Type() string {
	return TypeName
}

// TTL returns the TTL applied to challenge records.
func (p *Provider) TTL() int {
	return p.ttl
}

// Client returns the underlying API client.
func (p *Provider) Client() *Client {
	return p.client
}

// Ping checks that the API is reachable and accepts the credentials.
func (p *Provider) Ping(ctx context.Context) error {
	return provider.WrapError(p.name, "ping", p.client.Ping(ctx))
}

// PerformChallenge publishes value as a TXT record at fqdn. domain is used to
// find the zone.
func (p *Provider) PerformChallenge(ctx context.Context, domain, fqdn, value string) error {
	err := p.client.AddTXTRecord(ctx, domain, fqdn, value, p.ttl)
	metrics.ChallengesTotal.WithLabelValues("perform", metrics.Result(err)).Inc()
	if err != nil {
		p.logger.Error("failed to publish challenge record",
			slog.String("provider", p.name),
			slog.String("domain", domain),
			slog.String("fqdn", fqdn),
			slog.String("error", err.Error()),
		)
		return provider.WrapError(p.name, "perform", err)
	}

	p.logger.Info("published challenge record",
		slog.String("provider", p.name),
		slog.String("domain", domain),
		slog.String("fqdn", fqdn),
		slog.Int("ttl", p.ttl),
	)
	return nil
}

// CleanupChallenge removes the record published by PerformChallenge. It never
// fails; see Client.DelTXTRecord.
func (p *Provider) CleanupChallenge(ctx context.Context, domain, fqdn, value string) {
	p.client.DelTXTRecord(ctx, domain, fqdn, value)
	metrics.ChallengesTotal.WithLabelValues("cleanup", metrics.ResultSuccess).Inc()
}

// Ensure Provider implements provider.Authenticator at compile time.
var _ provider.Authenticator = (*Provider)(nil)
