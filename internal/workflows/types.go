package workflows

type DocumentIngestInput struct {
	RunID     string            `json:"run_id"`
	HarvestID string            `json:"harvest_id,omitempty"`
	GraphURL  string            `json:"graph_url"`
	JSONFiles map[string]string `json:"json_files,omitempty"`
}

type HarvestDocument struct {
	GraphURL  string            `json:"graph_url"`
	JSONFiles map[string]string `json:"json_files,omitempty"`
}

type HarvestInput struct {
	HarvestID             string            `json:"harvest_id"`
	Documents             []HarvestDocument `json:"documents"`
	MaxConcurrentChildren int               `json:"max_concurrent_children"`
}

type RunStatus struct {
	RunID          string            `json:"run_id"`
	GraphURL       string            `json:"graph_url"`
	CurrentStep    string            `json:"current_step"`
	Status         string            `json:"status"`
	ArticleID      string            `json:"article_id,omitempty"`
	StatementCount int               `json:"statement_count"`
	FailReason     string            `json:"fail_reason,omitempty"`
	Steps          map[string]string `json:"steps"`
}

type HarvestProgress struct {
	HarvestID     string            `json:"harvest_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerDocument   map[string]string `json:"per_document_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}
