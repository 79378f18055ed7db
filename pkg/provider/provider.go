// Package provider defines the interface a DNS-01 challenge provider exposes to
// the certificate orchestrator.
package provider

import (
	"context"
	"strings"
)

// RecordType represents the type of DNS record.
type RecordType string

// RecordTypeTXT is the only record type a challenge provider manages.
const RecordTypeTXT RecordType = "TXT"

// ChallengeLabel is the label prepended to a domain to form the DNS-01 record name.
const ChallengeLabel = "_acme-challenge"

// Record represents a DNS record as stored at the provider.
type Record struct {
	ID      string // Provider-assigned, opaque
	Type    RecordType
	Name    string // Relative to the zone
	Content string
	TTL     int
}

// Authenticator is what an orchestrator drives during a DNS-01 challenge.
//
// PerformChallenge publishes value as a TXT record at fqdn. Any failure must
// abort issuance, so it is returned to the caller.
//
// CleanupChallenge retracts the record published by PerformChallenge. It is
// best effort: failures are logged by the implementation and never returned.
type Authenticator interface {
	PerformChallenge(ctx context.Context, domain, fqdn, value string) error
	CleanupChallenge(ctx context.Context, domain, fqdn, value string)
}

// ChallengeFQDN returns the DNS-01 record name for domain.
// Example: "*.example.com" -> "_acme-challenge.example.com"
func ChallengeFQDN(domain string) string {
	domain = strings.TrimPrefix(strings.TrimSuffix(domain, "."), "*.")
	return ChallengeLabel + "." + domain
}

// RecordMatches returns true if r is a TXT record with exactly the given name
// and content. IDs and TTLs are not compared.
func RecordMatches(r Record, name, content string) bool {
	return r.Type == RecordTypeTXT && r.Name == name && r.Content == content
}
