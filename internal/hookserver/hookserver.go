// Package hookserver exposes an Authenticator over HTTP using the protocol of
// lego's httpreq DNS provider, so any ACME client that speaks it can publish
// challenges through Websupport.
//
// Both request shapes are accepted on POST /present and POST /cleanup:
//
//	{"fqdn": "_acme-challenge.example.com.", "value": "..."}
//	{"domain": "example.com", "token": "...", "keyAuth": "..."}
package hookserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-acme/lego/v4/challenge/dns01"

	"gitlab.bluewillows.net/root/wsdns/internal/metrics"
	"gitlab.bluewillows.net/root/wsdns/pkg/provider"
)

// Endpoint paths.
const (
	PathPresent = "/present"
	PathCleanup = "/cleanup"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// Request is the union of the httpreq default and raw payloads.
type Request struct {
	FQDN  string `json:"fqdn,omitempty"`
	Value string `json:"value,omitempty"`

	Domain  string `json:"domain,omitempty"`
	Token   string `json:"token,omitempty"`
	KeyAuth string `json:"keyAuth,omitempty"`
}

// resolve returns the zone lookup domain, record FQDN and TXT value.
func (r Request) resolve() (domain, fqdn, value string, err error) {
	switch {
	case r.FQDN != "":
		if r.Value == "" {
			return "", "", "", fmt.Errorf("%w: value is required with fqdn", errBadRequest)
		}
		fqdn = dns01.ToFqdn(r.FQDN)
		return dns01.UnFqdn(fqdn), fqdn, r.Value, nil
	case r.Domain != "":
		if r.KeyAuth == "" {
			return "", "", "", fmt.Errorf("%w: keyAuth is required with domain", errBadRequest)
		}
		info := dns01.GetChallengeInfo(r.Domain, r.KeyAuth)
		return dns01.UnFqdn(info.EffectiveFQDN), info.EffectiveFQDN, info.Value, nil
	default:
		return "", "", "", fmt.Errorf("%w: either fqdn or domain is required", errBadRequest)
	}
}

// Response is the JSON body returned by both endpoints.
type Response struct {
	Status string `json:"status"`
	FQDN   string `json:"fqdn,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Mounter is satisfied by *http.ServeMux and *health.Server.
type Mounter interface {
	Handle(pattern string, handler http.Handler)
}

// Handler serves the hook endpoints.
type Handler struct {
	auth     provider.Authenticator
	username string
	password string
	logger   *slog.Logger
}

// Option is a functional option for configuring the Handler.
type Option func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithBasicAuth requires HTTP basic auth on every request. Empty username
// leaves the endpoints open.
func WithBasicAuth(username, password string) Option {
	return func(h *Handler) {
		h.username = username
		h.password = password
	}
}

// New creates a hook handler publishing through auth.
func New(auth provider.Authenticator, opts ...Option) *Handler {
	h := &Handler{
		auth:   auth,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount registers the hook endpoints on m.
func (h *Handler) Mount(m Mounter) {
	m.Handle("POST "+PathPresent, h.wrap(PathPresent, h.present))
	m.Handle("POST "+PathCleanup, h.wrap(PathCleanup, h.cleanup))
}

type hookFunc func(ctx context.Context, domain, fqdn, value string) (int, error)

func (h *Handler) wrap(endpoint string, fn hookFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, resp := h.handle(w, r, fn)
		metrics.HookRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()

		if code == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Basic realm="wsdns"`)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, fn hookFunc) (int, Response) {
	if !h.authorized(r) {
		h.logger.Warn("rejected hook request",
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
		)
		return http.StatusUnauthorized, Response{Status: "error", Error: "unauthorized"}
	}

	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return http.StatusBadRequest, Response{Status: "error", Error: "invalid JSON body: " + err.Error()}
	}

	domain, fqdn, value, err := req.resolve()
	if err != nil {
		return http.StatusBadRequest, Response{Status: "error", Error: err.Error()}
	}

	code, err := fn(r.Context(), domain, fqdn, value)
	if err != nil {
		return code, Response{Status: "error", FQDN: fqdn, Error: err.Error()}
	}
	return code, Response{Status: "ok", FQDN: fqdn}
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.username == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.password)) == 1
	return userOK && passOK
}

func (h *Handler) present(ctx context.Context, domain, fqdn, value string) (int, error) {
	h.logger.Debug("hook present", slog.String("domain", domain), slog.String("fqdn", fqdn))
	if err := h.auth.PerformChallenge(ctx, domain, fqdn, value); err != nil {
		return http.StatusBadGateway, err
	}
	return http.StatusOK, nil
}

func (h *Handler) cleanup(ctx context.Context, domain, fqdn, value string) (int, error) {
	h.logger.Debug("hook cleanup", slog.String("domain", domain), slog.String("fqdn", fqdn))
	h.auth.CleanupChallenge(ctx, domain, fqdn, value)
	return http.StatusOK, nil
}

// String describes the handler for startup logs.
func (h *Handler) String() string {
	auth := "open"
	if h.username != "" {
		auth = "basic auth"
	}
	return strings.Join([]string{PathPresent, PathCleanup}, ", ") + " (" + auth + ")"
}
