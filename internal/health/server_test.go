package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestServer_Health(t *testing.T) {
	s := New(0)
	s.RegisterChecker("websupport", func(ctx context.Context) error { return errors.New("down") })

	w := serve(t, s, http.MethodGet, "/health")

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if resp := decode(t, w); resp.Status != StatusHealthy {
		t.Errorf("expected status %q, got %q", StatusHealthy, resp.Status)
	}
}

func TestServer_Ready_NoCheckers(t *testing.T) {
	s := New(0)

	w := serve(t, s, http.MethodGet, "/ready")

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp.Status != StatusReady || len(resp.Components) != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestServer_Ready(t *testing.T) {
	tests := []struct {
		name       string
		checkers   map[string]Checker
		wantCode   int
		wantStatus string
		wantFailed []string
	}{
		{
			name: "all healthy",
			checkers: map[string]Checker{
				"websupport": func(context.Context) error { return nil },
				"dns":        func(context.Context) error { return nil },
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusReady,
		},
		{
			name: "provider unauthorized",
			checkers: map[string]Checker{
				"websupport": func(context.Context) error { return errors.New("unauthorized") },
				"dns":        func(context.Context) error { return nil },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusNotReady,
			wantFailed: []string{"websupport"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(0)
			for name, c := range tt.checkers {
				s.RegisterChecker(name, c)
			}

			w := serve(t, s, http.MethodGet, "/ready")
			if w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, w.Code)
			}

			resp := decode(t, w)
			if resp.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, resp.Status)
			}
			if len(resp.Components) != len(tt.checkers) {
				t.Fatalf("expected %d components, got %d", len(tt.checkers), len(resp.Components))
			}
			// components are sorted by name
			if resp.Components[0].Name != "dns" || resp.Components[1].Name != "websupport" {
				t.Errorf("unexpected component order %+v", resp.Components)
			}

			var failed []string
			for _, c := range resp.Components {
				if !c.Healthy {
					failed = append(failed, c.Name)
					if c.Error == "" {
						t.Errorf("component %s: expected error message", c.Name)
					}
				}
			}
			if strings.Join(failed, ",") != strings.Join(tt.wantFailed, ",") {
				t.Errorf("failed components = %v, want %v", failed, tt.wantFailed)
			}
		})
	}
}

func TestServer_Ready_Timeout(t *testing.T) {
	s := New(0, WithTimeout(50*time.Millisecond))

	s.RegisterChecker("websupport", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	w := serve(t, s, http.MethodGet, "/ready")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	if resp := decode(t, w); resp.Status != StatusNotReady {
		t.Errorf("expected status %q, got %q", StatusNotReady, resp.Status)
	}
}

func TestServer_Metrics(t *testing.T) {
	s := New(0)

	w := serve(t, s, http.MethodGet, "/metrics")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected default Go collectors in metrics output")
	}
}

func TestServer_Handle(t *testing.T) {
	s := New(0)
	s.Handle("POST /present", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if w := serve(t, s, http.MethodPost, "/present"); w.Code != http.StatusNoContent {
		t.Errorf("expected mounted handler, got %d", w.Code)
	}
	if w := serve(t, s, http.MethodPost, "/health"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST /health, got %d", w.Code)
	}
}

func TestServer_StartShutdown(t *testing.T) {
	s := New(0, WithAddr("127.0.0.1:0"))

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.Addr() == "" {
		t.Fatal("expected bound address")
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestServer_StartBindError(t *testing.T) {
	first := New(0, WithAddr("127.0.0.1:0"))
	if err := first.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Shutdown(context.Background())

	second := New(0, WithAddr(first.Addr()))
	if err := second.Start(); err == nil {
		t.Error("expected bind error for an address in use")
	}
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	if err := New(0).Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
