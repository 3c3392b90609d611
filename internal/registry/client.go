package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"sciflow/internal/graph"
)

// CallRecord is one registry fetch for the audit trail.
type CallRecord struct {
	CallID     string    `json:"call_id"`
	TypeID     string    `json:"type_id"`
	RequestID  string    `json:"request_id"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditSink records registry calls; failures to record never fail a fetch.
type AuditSink interface {
	RecordRegistryCall(ctx context.Context, call CallRecord) error
}

// Options tune the client; zero values take the registry defaults
// (30s per-attempt timeout, 3 retries, exponential backoff from 1s).
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Audit        AuditSink
	Logger       *slog.Logger
}

// Client fetches type schemas from the registry and keeps them in a durable
// SchemaStore. A stored schema younger than ttl is served without a network
// call; an expired or missing one is fetched; when the fetch fails after
// retries, any stored copy (however stale) is served with a warning.
type Client struct {
	base  string
	ttl   time.Duration
	http  *retryablehttp.Client
	store SchemaStore
	audit AuditSink
	log   *slog.Logger
}

func New(baseURL string, ttl time.Duration, store SchemaStore, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 3
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 1 * time.Second
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 8 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = nil
	rc.CheckRetry = checkRetry

	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		ttl:   ttl,
		http:  rc,
		store: store,
		audit: opts.Audit,
		log:   opts.Logger,
	}
}

// checkRetry retries transport failures and the gateway statuses only; other
// HTTP errors are final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// GetTypeInfo returns the schema for a type id (bare or any IRI spelling).
func (c *Client) GetTypeInfo(ctx context.Context, typeID string) (TypeInfo, error) {
	typeID = TypeID(typeID)
	if typeID == "" {
		return TypeInfo{}, fmt.Errorf("empty type id")
	}

	cached, ok, err := c.store.Get(ctx, typeID)
	if err != nil {
		return TypeInfo{}, fmt.Errorf("schema store get %s: %w", typeID, err)
	}
	if ok && !c.expired(cached) {
		return cached, nil
	}

	info, err := c.fetch(ctx, typeID)
	if err != nil {
		if ok {
			c.log.Warn("type registry fetch failed, serving stale schema",
				"type_id", typeID, "age", time.Since(cached.LastUpdated).String(), "err", err)
			return cached, nil
		}
		return TypeInfo{}, err
	}

	if err := c.store.Put(ctx, info); err != nil {
		c.log.Warn("schema store put failed", "type_id", typeID, "err", err)
	}
	return info, nil
}

func (c *Client) expired(info TypeInfo) bool {
	if c.ttl <= 0 {
		return false
	}
	return time.Since(info.LastUpdated) > c.ttl
}

func (c *Client) fetch(ctx context.Context, typeID string) (TypeInfo, error) {
	requestID := uuid.NewString()
	start := time.Now()
	call := CallRecord{
		CallID:    uuid.NewString(),
		TypeID:    typeID,
		RequestID: requestID,
		CreatedAt: start,
	}

	fail := func(kind string, httpStatus int, serr *ServiceError) (TypeInfo, error) {
		call.Status = "error"
		call.ErrorKind = kind
		call.HTTPStatus = httpStatus
		call.ElapsedMS = time.Since(start).Milliseconds()
		c.record(ctx, call)
		return TypeInfo{}, serr
	}

	url := fmt.Sprintf("%s/objects/%s%s", c.base, graph.HandleInfix, typeID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail("request", 0, serviceError("bad_request", fmt.Sprintf("build request for %s: %v", typeID, err), err))
	}
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		kind := classifyTransport(err)
		return fail(kind, 0, serviceError(kind, fmt.Sprintf("fetch type %s failed after retries: %v", typeID, err), err))
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		code := fmt.Sprintf("http_%d", resp.StatusCode)
		return fail(code, resp.StatusCode, serviceError(code, fmt.Sprintf("fetch type %s: status %d", typeID, resp.StatusCode), nil))
	}
	if readErr != nil {
		return fail("read", resp.StatusCode, serviceError("read", fmt.Sprintf("read type %s response: %v", typeID, readErr), readErr))
	}

	var parsed struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Identifier  string `json:"Identifier"`
		Schema      struct {
			Properties []struct {
				Name string `json:"Name"`
			} `json:"Properties"`
		} `json:"Schema"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fail("decode", resp.StatusCode, serviceError("decode", fmt.Sprintf("decode type %s response: %v", typeID, err), err))
	}

	props := make([]string, 0, len(parsed.Schema.Properties))
	for _, p := range parsed.Schema.Properties {
		if p.Name == "" {
			continue
		}
		props = append(props, fmt.Sprintf("doi:%s#%s", parsed.Identifier, p.Name))
	}

	call.Status = "ok"
	call.HTTPStatus = resp.StatusCode
	call.ElapsedMS = time.Since(start).Milliseconds()
	c.record(ctx, call)

	return TypeInfo{
		TypeID:      typeID,
		Name:        humanizeName(parsed.Name),
		Description: parsed.Description,
		Properties:  props,
		LastUpdated: time.Now().UTC(),
	}, nil
}

func (c *Client) record(ctx context.Context, call CallRecord) {
	if c.audit == nil {
		return
	}
	if err := c.audit.RecordRegistryCall(ctx, call); err != nil {
		c.log.Warn("registry call audit failed", "type_id", call.TypeID, "err", err)
	}
}

// humanizeName turns a raw registry name like "regression_analysis" into its
// display form "Regression analysis".
func humanizeName(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// TypeID normalizes any spelling of a type reference (bare id, doi: IRI with
// or without the handle infix, http(s) URL) to the bare id the registry path
// expects.
func TypeID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		if i := strings.LastIndex(v, "/"); i >= 0 {
			return v[i+1:]
		}
		return v
	}
	v = strings.TrimPrefix(v, "doi:")
	return strings.TrimPrefix(v, graph.HandleInfix)
}
