package websupport

import (
	"context"
	"time"

	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
)

// Present creates the TXT record lego expects for the key authorization.
// The zone is looked up from the effective FQDN so CNAME-delegated
// challenges land in the target zone.
func (p *Provider) Present(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)
	return p.PerformChallenge(context.Background(), dns01.UnFqdn(info.EffectiveFQDN), info.EffectiveFQDN, info.Value)
}

// CleanUp removes the TXT record created by Present. Failures are logged and
// never returned.
func (p *Provider) CleanUp(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)
	p.CleanupChallenge(context.Background(), dns01.UnFqdn(info.EffectiveFQDN), info.EffectiveFQDN, info.Value)
	return nil
}

// Timeout returns the propagation timeout and polling interval lego should use.
func (p *Provider) Timeout() (timeout, interval time.Duration) {
	return p.propagationTimeout, p.pollingInterval
}

var (
	_ challenge.Provider        = (*Provider)(nil)
	_ challenge.ProviderTimeout = (*Provider)(nil)
)
