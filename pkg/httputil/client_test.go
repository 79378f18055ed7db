package httputil

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(nil)

	if client == nil {
		t.Fatal("NewClient returned nil")
	}

	if client.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.Timeout)
	}

	transport, ok := client.Transport.(*loggingTransport)
	if !ok {
		t.Fatal("expected transport to be *loggingTransport")
	}

	if transport.userAgent != DefaultUserAgent {
		t.Errorf("expected userAgent %q, got %q", DefaultUserAgent, transport.userAgent)
	}
	if transport.base != http.DefaultTransport {
		t.Error("expected base transport to be http.DefaultTransport")
	}
}

func TestNewClient_Timeout(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		expected time.Duration
	}{
		{"custom", 60 * time.Second, 60 * time.Second},
		{"zero uses default", 0, DefaultTimeout},
		{"negative uses default", -1 * time.Second, DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(&ClientConfig{Timeout: tt.timeout})
			if client.Timeout != tt.expected {
				t.Errorf("expected timeout %v, got %v", tt.expected, client.Timeout)
			}
		})
	}
}

func TestNewClient_SetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{UserAgent: "wsdns/1.2.3"})
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotUA != "wsdns/1.2.3" {
		t.Errorf("expected User-Agent %q, got %q", "wsdns/1.2.3", gotUA)
	}
}

func TestNewClient_PreservesExplicitUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(nil)
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "custom/1.0")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotUA != "custom/1.0" {
		t.Errorf("expected User-Agent %q, got %q", "custom/1.0", gotUA)
	}
}

func TestNewClient_DebugLogging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := NewClient(&ClientConfig{Logger: logger})
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/v1/user/self", nil)
	req.Header.Set("Authorization", "Basic c2VjcmV0")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, "HTTP request") || !strings.Contains(out, "HTTP response") {
		t.Errorf("expected request and response log lines, got %q", out)
	}
	if !strings.Contains(out, "status=418") {
		t.Errorf("expected status in log output, got %q", out)
	}
	if strings.Contains(out, "c2VjcmV0") {
		t.Error("authorization header must not be logged")
	}
}

func TestNewClient_CustomTransport(t *testing.T) {
	base := &http.Transport{}
	client := NewClient(&ClientConfig{Transport: base})

	transport := client.Transport.(*loggingTransport)
	if transport.base != base {
		t.Error("expected custom base transport to be used")
	}
}

func TestDefaultClient(t *testing.T) {
	client := DefaultClient()
	if client.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, client.Timeout)
	}
}
