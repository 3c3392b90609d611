package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sciflow/internal/files"
	"sciflow/internal/ingest"
	"sciflow/internal/reconstruct"
	"sciflow/internal/registry"
	"sciflow/internal/sources"
	"sciflow/internal/storage"
)

type stubTypes struct{}

func (stubTypes) GetTypeInfo(_ context.Context, typeID string) (registry.TypeInfo, error) {
	if registry.TypeID(typeID) != "T1" {
		return registry.TypeInfo{}, fmt.Errorf("no such type %q", typeID)
	}
	return registry.TypeInfo{
		TypeID:     "T1",
		Name:       "Regression analysis",
		Properties: []string{"doi:T1#has_input", "doi:T1#targets", "doi:T1#label"},
	}, nil
}

// newTestServer wires the handlers straight onto the in-memory gateway; the
// harvest endpoints need Temporal and stay out of scope here.
func newTestServer() *Server {
	mem := storage.NewMemory()
	src := sources.NewMapSource()
	src.Add("https://files.test/stmt-1.json", []byte(`{
		"@type": "doi:T1",
		"doi:T1#label": "R1",
		"doi:T1#targets": {"label": "Y"},
		"doi:T1#has_input": {"label": "X", "source_url": "uploads/x.csv"}
	}`))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Server{
		store:  mem,
		engine: ingest.New(mem, stubTypes{}, src, nil, log),
		recon:  reconstruct.New(mem, stubTypes{}, files.NewResolver("https://files.example.org"), log),
	}
}

const ingestBody = `{
  "graph": [
    {"@id": "a1", "@type": "ScholarlyArticle", "name": "Deep Learning for X", "date_published": "2019", "doi": "10.1/abc"},
    {"@id": "p1", "@type": "Person", "label": "Jane Roe"},
    {"@id": "ls1", "@type": "LinguisticStatement", "notation": {"label": "R1 claim"}, "authors": ["p1"]},
    {"@id": "f1", "@type": "File", "name": "stmt-1.json", "encodingFormat": "application/ld+json", "supports": {"@id": "ls1"}}
  ],
  "json_files": {"stmt-1.json": "https://files.test/stmt-1.json"}
}`

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return w, out
}

func errCode(t *testing.T, out map[string]any) string {
	t.Helper()
	e, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error envelope in %v", out)
	}
	code, _ := e["code"].(string)
	return code
}

func TestIngestEndpointRoundTrip(t *testing.T) {
	h := newTestServer().Routes()

	w, out := doRequest(t, h, http.MethodPost, "/ingest", ingestBody)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status %d: %v", w.Code, out)
	}
	articleID, _ := out["article_id"].(string)
	if articleID == "" {
		t.Fatalf("no article id in %v", out)
	}
	stmtIDs, _ := out["statement_ids"].([]any)
	if len(stmtIDs) != 1 {
		t.Fatalf("statement ids %v", out["statement_ids"])
	}
	stmtID := stmtIDs[0].(string)

	w, out = doRequest(t, h, http.MethodGet, "/articles", "")
	if w.Code != http.StatusOK {
		t.Fatalf("articles status %d", w.Code)
	}
	if articles, _ := out["articles"].([]any); len(articles) != 1 {
		t.Fatalf("articles %v", out["articles"])
	}

	w, out = doRequest(t, h, http.MethodGet, "/articles/"+articleID+"/statements", "")
	if w.Code != http.StatusOK {
		t.Fatalf("statements status %d", w.Code)
	}
	if stmts, _ := out["statements"].([]any); len(stmts) != 1 {
		t.Fatalf("statements %v", out["statements"])
	}

	w, out = doRequest(t, h, http.MethodGet, "/statements/"+stmtID+"/reconstruction", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reconstruction status %d: %v", w.Code, out)
	}
	part, _ := out["has_part"].(map[string]any)
	if part == nil || part["label"] != "R1" {
		t.Fatalf("has_part %v", out["has_part"])
	}
	inputs, _ := part["has_input"].([]any)
	if len(inputs) != 1 {
		t.Fatalf("has_input %v", part["has_input"])
	}
	input := inputs[0].(map[string]any)
	if input["source_url"] != "https://files.example.org/uploads/x.csv" {
		t.Fatalf("source url %v", input["source_url"])
	}
	typ, _ := out["type"].(map[string]any)
	if typ == nil || typ["type"] != "Regression analysis" {
		t.Fatalf("type view %v", out["type"])
	}
}

func TestIngestEndpointNoArticle(t *testing.T) {
	h := newTestServer().Routes()
	body := `{"graph": [{"@id": "p1", "@type": "Person", "label": "Jane Roe"}]}`
	w, out := doRequest(t, h, http.MethodPost, "/ingest", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %v", w.Code, out)
	}
	if code := errCode(t, out); code != "SF-API-4022" {
		t.Fatalf("error code %s", code)
	}
}

func TestIngestEndpointValidation(t *testing.T) {
	h := newTestServer().Routes()

	w, out := doRequest(t, h, http.MethodPost, "/ingest", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json status %d", w.Code)
	}
	if code := errCode(t, out); code != "SF-API-4001" {
		t.Fatalf("error code %s", code)
	}

	w, out = doRequest(t, h, http.MethodPost, "/ingest", `{"json_files": {}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing graph status %d", w.Code)
	}
	if msg, _ := out["error"].(map[string]any)["message"].(string); !strings.Contains(msg, "graph") {
		t.Fatalf("message %q", msg)
	}

	w, _ = doRequest(t, h, http.MethodGet, "/ingest", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method status %d", w.Code)
	}
}

func TestHarvestEndpointValidation(t *testing.T) {
	h := newTestServer().Routes()
	w, out := doRequest(t, h, http.MethodPost, "/harvest", `{"documents": []}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	if code := errCode(t, out); code != "SF-API-4001" {
		t.Fatalf("error code %s", code)
	}
}

func TestRunsScopedPathShape(t *testing.T) {
	h := newTestServer().Routes()

	w, out := doRequest(t, h, http.MethodGet, "/runs/", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("empty run id status %d", w.Code)
	}
	if code := errCode(t, out); code != "SF-API-4004" {
		t.Fatalf("error code %s", code)
	}

	w, _ = doRequest(t, h, http.MethodGet, "/runs/r1/extra", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("long path status %d", w.Code)
	}

	w, _ = doRequest(t, h, http.MethodPost, "/runs/r1", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method status %d", w.Code)
	}
}

func TestLookupUnknownResources(t *testing.T) {
	h := newTestServer().Routes()

	w, out := doRequest(t, h, http.MethodGet, "/articles/nope/statements", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown article status %d", w.Code)
	}
	if code := errCode(t, out); code != "SF-API-4004" {
		t.Fatalf("error code %s", code)
	}

	w, _ = doRequest(t, h, http.MethodGet, "/statements/nope/reconstruction", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown statement status %d", w.Code)
	}
}

func TestHealthzAndCORS(t *testing.T) {
	h := newTestServer().Routes()

	w, out := doRequest(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || out["ok"] != true {
		t.Fatalf("healthz %d %v", w.Code, out)
	}

	req := httptest.NewRequest(http.MethodOptions, "/ingest", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}
