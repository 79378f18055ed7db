// Package websupport implements a DNS-01 challenge provider for the Websupport
// REST API (https://rest.websupport.sk).
package websupport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/wsdns/internal/metrics"
	"gitlab.bluewillows.net/root/wsdns/pkg/httputil"
	"gitlab.bluewillows.net/root/wsdns/pkg/provider"
)

const (
	// DefaultAPIEndpoint is the base URL of the Websupport REST API.
	DefaultAPIEndpoint = "https://rest.websupport.sk"

	// AccountURL is where API keys are issued.
	AccountURL = "https://admin.websupport.sk/sk/auth/apiKey"
)

// Operation names used for logging and metrics.
const (
	opPing         = "ping"
	opFindZone     = "find_zone"
	opListRecords  = "list_records"
	opCreateRecord = "create_record"
	opDeleteRecord = "delete_record"
)

// recordID accepts both numeric and string ids.
type recordID string

func (id *recordID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = recordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = recordID(n.String())
	return nil
}

// apiRecord is a DNS record as returned by the API.
type apiRecord struct {
	ID      recordID `json:"id"`
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Content string   `json:"content"`
	TTL     int      `json:"ttl"`
}

func (r apiRecord) toRecord() provider.Record {
	return provider.Record{
		ID:      string(r.ID),
		Type:    provider.RecordType(r.Type),
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
	}
}

// recordsResponse wraps the record list response.
type recordsResponse struct {
	Items []apiRecord `json:"items"`
}

// createRecordRequest is the request body for creating a DNS record.
type createRecordRequest struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
}

// createRecordResponse is the response body for record creation.
type createRecordResponse struct {
	Status string      `json:"status"`
	Item   apiRecord   `json:"item"`
	Errors fieldErrors `json:"errors"`
}

// fieldErrors decodes the "errors" member leniently. The API sends an object
// of per-field messages, but an empty list, null, or a bare list of messages
// must not fail the whole response. Bare messages are keyed by "".
type fieldErrors map[string][]string

func (f *fieldErrors) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	out := fieldErrors{}
	switch v := raw.(type) {
	case map[string]any:
		for field, msgs := range v {
			if m := messages(msgs); len(m) > 0 {
				out[field] = m
			}
		}
	case []any:
		if m := messages(v); len(m) > 0 {
			out[""] = m
		}
	case string:
		if v != "" {
			out[""] = []string{v}
		}
	}

	if len(out) == 0 {
		*f = nil
		return nil
	}
	*f = out
	return nil
}

func messages(v any) []string {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, messages(item)...)
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(v)}
	}
}

// APIError describes a request the API refused. Errors holds the per-field
// messages when the API reported them, keyed by field name.
type APIError struct {
	StatusCode int
	Errors     map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("websupport API returned status %d", e.StatusCode)
	}

	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		msg := strings.Join(e.Errors[field], ", ")
		if field != "" {
			msg = field + ": " + msg
		}
		parts = append(parts, msg)
	}
	return fmt.Sprintf("websupport API returned status %d: %s", e.StatusCode, strings.Join(parts, "; "))
}

// Messages returns every field error message, ordered by field name.
func (e *APIError) Messages() []string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var msgs []string
	for _, field := range fields {
		msgs = append(msgs, e.Errors[field]...)
	}
	return msgs
}

// Client is a Websupport DNS API client.
type Client struct {
	apiEndpoint string
	signer      *Signer
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAPIEndpoint sets a custom API endpoint (useful for testing).
func WithAPIEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.apiEndpoint = strings.TrimSuffix(endpoint, "/")
		}
	}
}

// WithClock overrides the time source used to sign requests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.signer.now = now
		}
	}
}

// NewClient creates a new Websupport API client. Credentials are fixed for the
// lifetime of the client.
func NewClient(apiKey, apiSecret string, opts ...ClientOption) *Client {
	c := &Client{
		apiEndpoint: DefaultAPIEndpoint,
		signer:      NewSigner(apiKey, apiSecret),
		httpClient:  httputil.DefaultClient(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// doRequest performs a signed request and returns the status code and body.
// Only transport-level failures are returned as errors; status handling is
// left to the caller.
func (c *Client) doRequest(ctx context.Context, operation, method, path string, body any) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiEndpoint+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if err := c.signer.SignPath(req, path); err != nil {
		return 0, nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ProviderAPIDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderAPIRequestsTotal.WithLabelValues(operation, metrics.ResultError).Inc()
		return 0, nil, fmt.Errorf("%w: %s %s: %w", provider.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	metrics.ProviderAPIRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: reading response body: %w", provider.ErrTransport, err)
	}

	return resp.StatusCode, respBody, nil
}

// Ping verifies the credentials against the account endpoint.
func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.doRequest(ctx, opPing, http.MethodGet, "/v1/user/self", nil)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("ping failed: %w: HTTP %d", provider.ErrUnauthorized, status)
	default:
		return fmt.Errorf("ping failed: %w", &APIError{StatusCode: status})
	}
}

// ZoneCandidate returns the last two labels of domain. This is wrong for
// multi-label public suffixes such as co.uk, where it yields the suffix itself.
func ZoneCandidate(domain string) string {
	parts := strings.Split(strings.TrimSuffix(domain, "."), ".")
	if len(parts) < 2 {
		return strings.Join(parts, ".")
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// RelativeName strips the zone suffix and surrounding dots from an absolute
// record name. Names outside the zone are returned with only dots trimmed.
func RelativeName(recordName, zoneID string) string {
	name := strings.TrimSuffix(recordName, ".")
	switch {
	case name == zoneID:
		name = ""
	case strings.HasSuffix(name, "."+zoneID):
		name = strings.TrimSuffix(name, "."+zoneID)
	}
	return strings.Trim(name, ".")
}

// FindZoneID resolves domain to a zone managed by the account.
func (c *Client) FindZoneID(ctx context.Context, domain string) (string, error) {
	zoneID := ZoneCandidate(domain)

	status, _, err := c.doRequest(ctx, opFindZone, http.MethodGet, "/v1/user/self/zone/"+zoneID, nil)
	if err != nil {
		return "", fmt.Errorf("determining zone for %s: %w", domain, err)
	}

	switch status {
	case http.StatusOK:
		c.logger.Debug("found zone",
			slog.String("domain", domain),
			slog.String("zone", zoneID),
		)
		return zoneID, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("determining zone for %s: %w: HTTP %d; confirm the API key and secret from %s",
			domain, provider.ErrUnauthorized, status, AccountURL)
	default:
		return "", fmt.Errorf("determining zone for %s: %w: HTTP %d; confirm the domain name is correct and associated with the Websupport account",
			domain, provider.ErrZoneNotFound, status)
	}
}

// ListRecords returns every record in the zone, in the order the API returns them.
func (c *Client) ListRecords(ctx context.Context, zoneID string) ([]provider.Record, error) {
	status, body, err := c.doRequest(ctx, opListRecords, http.MethodGet, "/v1/user/self/zone/"+zoneID+"/record", nil)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("listing records in zone %s: %w", zoneID, provider.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("listing records in zone %s: %w: HTTP %d", zoneID, provider.ErrUnauthorized, status)
	default:
		return nil, fmt.Errorf("listing records in zone %s: %w", zoneID, &APIError{StatusCode: status})
	}

	var resp recordsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing records response: %w", provider.ErrTransport, err)
	}

	records := make([]provider.Record, 0, len(resp.Items))
	for _, item := range resp.Items {
		records = append(records, item.toRecord())
	}

	c.logger.Debug("listed records",
		slog.String("zone", zoneID),
		slog.Int("count", len(records)),
	)

	return records, nil
}

// FindTXTRecordID returns the id of the first TXT record in the zone whose
// name and content match exactly, or "" if there is none.
func (c *Client) FindTXTRecordID(ctx context.Context, zoneID, name, content string) (string, error) {
	records, err := c.ListRecords(ctx, zoneID)
	if err != nil {
		if provider.IsNotFound(err) {
			c.logger.Debug("unable to find TXT record", slog.String("zone", zoneID), slog.String("name", name))
			return "", nil
		}
		return "", err
	}

	for _, r := range records {
		if provider.RecordMatches(r, name, content) {
			return r.ID, nil
		}
	}

	c.logger.Debug("unable to find TXT record", slog.String("zone", zoneID), slog.String("name", name))
	return "", nil
}

// AddTXTRecord publishes a TXT record. domain selects the zone; recordName is
// the absolute record name (typically beginning with "_acme-challenge.").
func (c *Client) AddTXTRecord(ctx context.Context, domain, recordName, content string, ttl int) error {
	_, err := c.createTXTRecord(ctx, domain, recordName, content, ttl)
	return err
}

func (c *Client) createTXTRecord(ctx context.Context, domain, recordName, content string, ttl int) (provider.Record, error) {
	zoneID, err := c.FindZoneID(ctx, domain)
	if err != nil {
		return provider.Record{}, err
	}

	reqBody := createRecordRequest{
		Type:    string(provider.RecordTypeTXT),
		Name:    RelativeName(recordName, zoneID),
		Content: content,
		TTL:     ttl,
	}

	c.logger.Debug("adding TXT record",
		slog.String("zone", zoneID),
		slog.String("name", reqBody.Name),
		slog.Int("ttl", ttl),
	)

	path := "/v1/user/self/zone/" + zoneID + "/record"
	status, body, err := c.doRequest(ctx, opCreateRecord, http.MethodPost, path, reqBody)
	if err != nil {
		return provider.Record{}, fmt.Errorf("creating record: %w", err)
	}

	var resp createRecordResponse
	parseErr := json.Unmarshal(body, &resp)

	if status != http.StatusOK && status != http.StatusCreated {
		apiErr := &APIError{StatusCode: status}
		if parseErr == nil {
			apiErr.Errors = resp.Errors
		}
		return provider.Record{}, fmt.Errorf("creating record in zone %s: %w: %w", zoneID, provider.ErrRecordCreate, apiErr)
	}
	if parseErr != nil {
		return provider.Record{}, fmt.Errorf("%w: parsing create response: %w", provider.ErrTransport, parseErr)
	}
	if resp.Status == "error" {
		apiErr := &APIError{StatusCode: status, Errors: resp.Errors}
		return provider.Record{}, fmt.Errorf("creating record in zone %s: %w: %w", zoneID, provider.ErrRecordCreate, apiErr)
	}

	metrics.RecordsCreatedTotal.WithLabelValues(zoneID).Inc()

	record := resp.Item.toRecord()
	if record.Name == "" {
		record.Name = reqBody.Name
	}
	record.Type = provider.RecordTypeTXT
	record.Content = content
	record.TTL = ttl

	c.logger.Info("created TXT record",
		slog.String("zone", zoneID),
		slog.String("name", reqBody.Name),
		slog.String("record_id", record.ID),
	)

	return record, nil
}

// DeleteRecord deletes a record by id.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, id string) error {
	path := "/v1/user/self/zone/" + zoneID + "/record/" + id
	status, _, err := c.doRequest(ctx, opDeleteRecord, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("deleting record %s in zone %s: %w", id, zoneID, &APIError{StatusCode: status})
	}

	metrics.RecordsDeletedTotal.WithLabelValues(zoneID).Inc()
	return nil
}

// DelTXTRecord removes the TXT record matching recordName and content. It is
// best effort and never fails: every problem is logged and swallowed, and a
// missing record is a no-op. Matching on content keeps concurrent challenges
// for the same name from deleting each other's records.
func (c *Client) DelTXTRecord(ctx context.Context, domain, recordName, content string) {
	outcome := c.delTXTRecord(ctx, domain, recordName, content)
	metrics.CleanupOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (c *Client) delTXTRecord(ctx context.Context, domain, recordName, content string) string {
	zoneID, err := c.FindZoneID(ctx, domain)
	if err != nil {
		c.logger.Debug("encountered error finding zone during deletion",
			slog.String("domain", domain),
			slog.String("error", err.Error()),
		)
		return metrics.CleanupZoneError
	}

	name := RelativeName(recordName, zoneID)

	id, err := c.FindTXTRecordID(ctx, zoneID, name, content)
	if err != nil {
		c.logger.Warn("encountered error looking up TXT record during deletion",
			slog.String("zone", zoneID),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return metrics.CleanupLookupError
	}
	if id == "" {
		c.logger.Debug("TXT record not found; no cleanup needed",
			slog.String("zone", zoneID),
			slog.String("name", name),
		)
		return metrics.CleanupAbsent
	}

	if err := c.DeleteRecord(ctx, zoneID, id); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("encountered Websupport error when deleting record",
				slog.String("zone", zoneID),
				slog.String("record_id", id),
				slog.Int("status", apiErr.StatusCode),
			)
		} else {
			c.logger.Warn("failed to delete record",
				slog.String("zone", zoneID),
				slog.String("record_id", id),
				slog.String("error", err.Error()),
			)
		}
		return metrics.CleanupDeleteError
	}

	c.logger.Info("deleted TXT record",
		slog.String("zone", zoneID),
		slog.String("name", name),
		slog.String("record_id", id),
	)
	return metrics.CleanupDeleted
}
