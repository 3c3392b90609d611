package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sciflow/internal/config"
	"sciflow/internal/files"
	"sciflow/internal/graph"
	"sciflow/internal/ingest"
	"sciflow/internal/models"
	"sciflow/internal/reconstruct"
	"sciflow/internal/registry"
	"sciflow/internal/sources"
	"sciflow/internal/storage"
	"sciflow/internal/util"
	"sciflow/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg      config.Config
	db       *storage.DB
	store    storage.Gateway
	runRepo  *storage.RunRepo
	engine   *ingest.Engine
	recon    *reconstruct.Reconstructor
	temporal tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	store, err := storage.NewPostgres(ctx, db)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}

	reg := registry.New(cfg.RegistryBaseURL, time.Duration(cfg.SchemaTTLDays)*24*time.Hour,
		storage.NewSchemaRepo(db), registry.Options{
			Timeout:  time.Duration(cfg.RegistryTimeoutSec) * time.Second,
			RetryMax: cfg.RegistryRetries,
			Audit:    storage.NewRegistryAuditRepo(db),
		})
	source := sources.NewHTTPSource(time.Duration(cfg.SourceTimeoutSec) * time.Second)
	var doi sources.DOIResolver
	if cfg.DOILookupURL != "" {
		doi = sources.NewHTTPDOIResolver(cfg.DOILookupURL, 0)
	}
	return &Server{
		cfg:      cfg,
		db:       db,
		store:    store,
		runRepo:  storage.NewRunRepo(db),
		engine:   ingest.New(store, reg, source, doi, nil),
		recon:    reconstruct.New(store, reg, files.NewResolver(cfg.FileDomain), nil),
		temporal: tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/harvest", s.handleHarvest)
	mux.HandleFunc("/harvest/", s.handleHarvestScoped)
	mux.HandleFunc("/runs/", s.handleRunsScoped)
	mux.HandleFunc("/articles", s.handleArticles)
	mux.HandleFunc("/articles/", s.handleArticlesScoped)
	mux.HandleFunc("/statements/", s.handleStatementsScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleIngest runs one document ingestion synchronously from an inline graph.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Graph     json.RawMessage   `json:"graph"`
		JSONFiles map[string]string `json:"json_files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if len(req.Graph) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("graph is required"))
		return
	}
	nodes, err := graph.ParseGraph(req.Graph)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}

	result, err := s.engine.Ingest(r.Context(), nodes, req.JSONFiles)
	if err != nil {
		var serr *registry.ServiceError
		switch {
		case errors.Is(err, ingest.ErrNoArticle):
			writeErr(w, http.StatusUnprocessableEntity, err)
		case errors.As(err, &serr):
			writeErr(w, http.StatusBadGateway, err)
		default:
			writeErr(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHarvest starts the asynchronous fan-out workflow for a batch of
// document URLs.
func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		HarvestID string                      `json:"harvest_id"`
		Documents []workflows.HarvestDocument `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if len(req.Documents) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("documents are required"))
		return
	}
	for _, doc := range req.Documents {
		if strings.TrimSpace(doc.GraphURL) == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("documents are required"))
			return
		}
	}

	// A caller-supplied harvest_id makes resubmission idempotent: the same
	// batch can be re-harvested after the previous run finishes, while a
	// second start of an in-flight harvest conflicts.
	harvestID := strings.TrimSpace(req.HarvestID)
	if harvestID == "" {
		harvestID = uuid.NewString()
	}
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "harvest-" + harvestID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.HarvestWorkflow, workflows.HarvestInput{
		HarvestID:             harvestID,
		Documents:             req.Documents,
		MaxConcurrentChildren: s.cfg.HarvestMaxChildren,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"harvest_id":  harvestID,
		"workflow_id": we.GetID(),
		"run_id":      we.GetRunID(),
	})
}

func (s *Server) handleHarvestScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/harvest/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "progress" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	harvestID := parts[0]

	var prog workflows.HarvestProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), "harvest-"+harvestID, "", workflows.QueryGetHarvestProgress)
	if err != nil {
		// Fallback to DB-derived progress when no active workflow query is available.
		runs, rErr := s.runRepo.ListRunsByHarvest(r.Context(), harvestID)
		if rErr != nil {
			writeErr(w, http.StatusInternalServerError, rErr)
			return
		}
		per := make(map[string]string, len(runs))
		done := 0
		failed := 0
		for _, rec := range runs {
			per[rec.GraphURL] = rec.Status
			if rec.Status == models.RunStatusCompleted {
				done++
			}
			if rec.Status == models.RunStatusFailed {
				failed++
			}
		}
		writeJSON(w, http.StatusOK, workflows.HarvestProgress{
			HarvestID:   harvestID,
			Total:       len(runs),
			Done:        done,
			Failed:      failed,
			PerDocument: per,
		})
		return
	}
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

// handleRunsScoped reports one document run from the database, regardless of
// whether its workflow is still alive.
func (s *Server) handleRunsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/"), "/")
	if len(parts) != 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	run, err := s.runRepo.GetRun(r.Context(), parts[0])
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	articles, err := s.store.ListArticles(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

func (s *Server) handleArticlesScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/articles/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "statements" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	articleID := parts[0]

	if _, err := s.store.GetArticle(r.Context(), articleID); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	stmts, err := s.store.ListStatementsByArticle(r.Context(), articleID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"article_id": articleID, "statements": stmts})
}

func (s *Server) handleStatementsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/statements/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "reconstruction" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	statementID := parts[0]

	rec, err := s.recon.Reconstruct(r.Context(), statementID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "SF-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500 && status != http.StatusBadGateway:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "SF-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "SF-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "SF-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "SF-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "SF-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "SF-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusConflict:
		code = "SF-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusUnprocessableEntity:
		code = "SF-API-4022"
		msg = "Document could not be ingested: no scholarly article anchors the graph."
	case status == http.StatusBadGateway:
		code = "SF-API-5020"
		msg = "Upstream service unavailable. Retry shortly."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "graph is required"):
			msg = "A document graph is required."
		case strings.Contains(raw, "documents are required"):
			msg = "At least one document with a graph_url is required."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
