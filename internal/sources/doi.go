package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DOIResolver looks up the reborn DOI minted for an article's original DOI.
// The lookup is best effort: ingestion proceeds without it, so callers treat
// an error as "no reborn DOI".
type DOIResolver interface {
	LookupRebornDOI(ctx context.Context, doi string) (string, error)
}

// HTTPDOIResolver queries a lookup service at {base}/{escaped doi} and reads
// the reborn_doi field of the JSON response.
type HTTPDOIResolver struct {
	base   string
	client *retryablehttp.Client
}

func NewHTTPDOIResolver(baseURL string, timeout time.Duration) *HTTPDOIResolver {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 4 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	return &HTTPDOIResolver{base: baseURL, client: rc}
}

func (r *HTTPDOIResolver) LookupRebornDOI(ctx context.Context, doi string) (string, error) {
	if doi == "" {
		return "", nil
	}
	lookup := fmt.Sprintf("%s/%s", r.base, url.PathEscape(doi))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, lookup, nil)
	if err != nil {
		return "", fmt.Errorf("build doi lookup for %s: %w", doi, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("doi lookup %s: %w", doi, err)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("doi lookup %s: status %d", doi, resp.StatusCode)
	}
	if readErr != nil {
		return "", fmt.Errorf("read doi lookup %s: %w", doi, readErr)
	}

	var parsed struct {
		RebornDOI string `json:"reborn_doi"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode doi lookup %s: %w", doi, err)
	}
	return parsed.RebornDOI, nil
}

// NopDOIResolver is used when no lookup service is configured.
type NopDOIResolver struct{}

func (NopDOIResolver) LookupRebornDOI(context.Context, string) (string, error) {
	return "", nil
}
