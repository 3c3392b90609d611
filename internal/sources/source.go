package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"sciflow/internal/graph"
)

// DocumentSource loads harvested documents: the JSON-LD statement graph and
// the per-file JSON payloads it references.
type DocumentSource interface {
	LoadGraph(ctx context.Context, url string) ([]graph.Node, error)
	LoadJSON(ctx context.Context, url string) (map[string]any, error)
}

// HTTPSource fetches documents over HTTP with the same retry profile as the
// registry client (transport failures and gateway statuses retried, other
// errors final).
type HTTPSource struct {
	client *retryablehttp.Client
}

func NewHTTPSource(timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 8 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	return &HTTPSource{client: rc}
}

func (s *HTTPSource) LoadGraph(ctx context.Context, url string) ([]graph.Node, error) {
	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	nodes, err := graph.ParseGraph(body)
	if err != nil {
		return nil, fmt.Errorf("parse graph from %s: %w", url, err)
	}
	return nodes, nil
}

func (s *HTTPSource) LoadJSON(ctx context.Context, url string) (map[string]any, error) {
	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode json from %s: %w", url, err)
	}
	return out, nil
}

func (s *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	if readErr != nil {
		return nil, fmt.Errorf("read %s: %w", url, readErr)
	}
	return body, nil
}
