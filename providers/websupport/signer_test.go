package websupport

import (
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestSignature_KnownValue(t *testing.T) {
	// echo -n "GET /v1/user/self 1700000000" | openssl dgst -sha1 -hmac secret
	got := Signature("secret", "GET", "/v1/user/self", 1700000000)
	want := "89de50be7590a24b6d65f41a077943df11b377ba"

	if got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}
}

func TestSignature_Deterministic(t *testing.T) {
	a := Signature("secret", "POST", "/v1/user/self/zone/example.com/record", 1700000000)
	b := Signature("secret", "POST", "/v1/user/self/zone/example.com/record", 1700000000)

	if a != b {
		t.Errorf("same inputs produced different signatures: %q vs %q", a, b)
	}
}

func TestSignature_EachInputMatters(t *testing.T) {
	base := Signature("secret", "GET", "/v1/user/self", 1700000000)

	tests := []struct {
		name string
		sig  string
	}{
		{"secret", Signature("other", "GET", "/v1/user/self", 1700000000)},
		{"method", Signature("secret", "POST", "/v1/user/self", 1700000000)},
		{"path", Signature("secret", "GET", "/v1/user/self/zone", 1700000000)},
		{"timestamp", Signature("secret", "GET", "/v1/user/self", 1700000001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.sig == base {
				t.Errorf("changing %s did not change the signature", tt.name)
			}
		})
	}
}

func TestBasicAuth(t *testing.T) {
	got := BasicAuth("key", "abc123")

	if !strings.HasPrefix(got, "Basic ") {
		t.Fatalf("expected Basic scheme, got %q", got)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, "Basic "))
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	if string(decoded) != "key:abc123" {
		t.Errorf("decoded credentials = %q, want %q", decoded, "key:abc123")
	}
}

func TestSigner_SignRequest(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	signer := NewSigner("key", "secret")
	signer.now = func() time.Time { return fixed }

	req, err := http.NewRequest(http.MethodGet, "https://rest.websupport.sk/v1/user/self/zone/example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := signer.SignRequest(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSig := Signature("secret", "GET", "/v1/user/self/zone/example.com", 1700000000)
	if got := req.Header.Get("Authorization"); got != BasicAuth("key", wantSig) {
		t.Errorf("Authorization = %q, want %q", got, BasicAuth("key", wantSig))
	}

	wantDate := fixed.Local().Format("2006-01-02T15:04:05")
	if got := req.Header.Get("Date"); got != wantDate {
		t.Errorf("Date = %q, want %q", got, wantDate)
	}
}

func TestSigner_ReadsClockOncePerRequest(t *testing.T) {
	calls := 0
	signer := NewSigner("key", "secret")
	signer.now = func() time.Time {
		calls++
		return time.Unix(1700000000+int64(calls), 0)
	}

	req, _ := http.NewRequest(http.MethodDelete, "https://rest.websupport.sk/v1/user/self/zone/example.com/record/1", nil)
	if err := signer.SignRequest(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected clock to be read once, got %d", calls)
	}
	if got, want := req.Header.Get("Date"), FormatDate(1700000001); got != want {
		t.Errorf("Date = %q, want %q (must match signed timestamp)", got, want)
	}
}

func TestSigner_SignPath_IgnoresEndpointPrefix(t *testing.T) {
	signer := NewSigner("key", "secret")
	signer.now = func() time.Time { return time.Unix(1700000000, 0) }

	req, _ := http.NewRequest(http.MethodGet, "https://proxy.example.net/websupport/v1/user/self", nil)
	if err := signer.SignPath(req, "/v1/user/self"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := BasicAuth("key", Signature("secret", "GET", "/v1/user/self", 1700000000))
	if got := req.Header.Get("Authorization"); got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
}
