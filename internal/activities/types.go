package activities

import "sciflow/internal/graph"

type FetchGraphInput struct {
	GraphURL string `json:"graph_url"`
}

type FetchGraphOutput struct {
	Nodes []graph.Node `json:"nodes"`
}

// IngestDocumentInput carries either a pre-fetched graph or the URL to fetch
// it from; Nodes wins when both are set.
type IngestDocumentInput struct {
	GraphURL  string            `json:"graph_url,omitempty"`
	Nodes     []graph.Node      `json:"nodes,omitempty"`
	JSONFiles map[string]string `json:"json_files,omitempty"`
}

type IngestDocumentOutput struct {
	ArticleID    string   `json:"article_id"`
	StatementIDs []string `json:"statement_ids"`
}

type UpdateRunStatusInput struct {
	RunID          string `json:"run_id"`
	HarvestID      string `json:"harvest_id"`
	GraphURL       string `json:"graph_url"`
	ArticleID      string `json:"article_id"`
	Status         string `json:"status"`
	StatementCount int    `json:"statement_count"`
	FailReason     string `json:"fail_reason"`
}

type WriteRunManifestInput struct {
	RunID    string         `json:"run_id"`
	Manifest map[string]any `json:"manifest"`
}

type WriteRunManifestOutput struct {
	Path string `json:"path"`
}

type WriteHarvestSummaryInput struct {
	HarvestID string         `json:"harvest_id"`
	Summary   map[string]any `json:"summary"`
}

type WriteArticleArtifactsInput struct {
	ArticleID    string   `json:"article_id"`
	StatementIDs []string `json:"statement_ids"`
}

type WriteArticleArtifactsOutput struct {
	Path string `json:"path"`
}
