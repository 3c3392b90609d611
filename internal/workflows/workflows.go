package workflows

import (
	"fmt"
	"strings"
	"time"

	"sciflow/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetRunStatus       = "GetRunStatus"
	QueryGetHarvestProgress = "GetHarvestProgress"
)

func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (string, error) {
	status := RunStatus{
		RunID:       input.RunID,
		GraphURL:    input.GraphURL,
		CurrentStep: "init",
		Status:      "running",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetRunStatus, func() (RunStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	_ = workflow.ExecuteActivity(ctx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{
		RunID:     input.RunID,
		HarvestID: input.HarvestID,
		GraphURL:  input.GraphURL,
		Status:    "running",
	}).Get(ctx, nil)

	status.CurrentStep = "fetch_graph"
	status.Steps[status.CurrentStep] = "processing"
	var fetched activities.FetchGraphOutput
	if err := workflow.ExecuteActivity(ctx, "FetchGraphActivity", activities.FetchGraphInput{GraphURL: input.GraphURL}).Get(ctx, &fetched); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "ingest"
	status.Steps[status.CurrentStep] = "processing"
	var ingested activities.IngestDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "IngestDocumentActivity", activities.IngestDocumentInput{
		Nodes:     fetched.Nodes,
		JSONFiles: input.JSONFiles,
	}).Get(ctx, &ingested); err != nil {
		if isNoArticleError(err) {
			status.Status = "failed"
			status.FailReason = "document graph has no scholarly article node"
			status.Steps[status.CurrentStep] = "failed"
			_ = workflow.ExecuteActivity(ctx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{
				RunID:      input.RunID,
				HarvestID:  input.HarvestID,
				GraphURL:   input.GraphURL,
				Status:     "failed",
				FailReason: status.FailReason,
			}).Get(ctx, nil)
			return status.Status, nil
		}
		return "", err
	}
	status.ArticleID = ingested.ArticleID
	status.StatementCount = len(ingested.StatementIDs)
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "write_artifacts"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "WriteArticleArtifactsActivity", activities.WriteArticleArtifactsInput{
		ArticleID:    ingested.ArticleID,
		StatementIDs: ingested.StatementIDs,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "mark_completed"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{
		RunID:          input.RunID,
		HarvestID:      input.HarvestID,
		GraphURL:       input.GraphURL,
		ArticleID:      ingested.ArticleID,
		Status:         "completed",
		StatementCount: len(ingested.StatementIDs),
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	_ = workflow.ExecuteActivity(ctx, "WriteRunManifestActivity", activities.WriteRunManifestInput{
		RunID: input.RunID,
		Manifest: map[string]any{
			"run_id":          input.RunID,
			"harvest_id":      input.HarvestID,
			"graph_url":       input.GraphURL,
			"article_id":      ingested.ArticleID,
			"statement_ids":   ingested.StatementIDs,
			"statement_count": len(ingested.StatementIDs),
			"generated_at":    workflow.Now(ctx),
		},
	}).Get(ctx, nil)

	status.CurrentStep = "done"
	status.Status = "completed"
	return status.Status, nil
}

func HarvestWorkflow(ctx workflow.Context, input HarvestInput) (string, error) {
	progress := HarvestProgress{
		HarvestID:     input.HarvestID,
		Total:         len(input.Documents),
		PerDocument:   map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetHarvestProgress, func() (HarvestProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}

	for i := 0; i < len(input.Documents); i += maxChildren {
		end := i + maxChildren
		if end > len(input.Documents) {
			end = len(input.Documents)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		runIDs := make([]string, 0, end-i)
		urls := make([]string, 0, end-i)
		for off, doc := range input.Documents[i:end] {
			runID := fmt.Sprintf("%s-doc-%d", sanitizeID(input.HarvestID), i+off)
			progress.PerDocument[doc.GraphURL] = "processing"
			cwo := workflow.ChildWorkflowOptions{WorkflowID: "ingest-" + runID}
			childCtx := workflow.WithChildOptions(ctx, cwo)
			f := workflow.ExecuteChildWorkflow(childCtx, DocumentIngestWorkflow, DocumentIngestInput{
				RunID:     runID,
				HarvestID: input.HarvestID,
				GraphURL:  doc.GraphURL,
				JSONFiles: doc.JSONFiles,
			})
			futures = append(futures, f)
			runIDs = append(runIDs, runID)
			urls = append(urls, doc.GraphURL)
			progress.ChildWorkflow[doc.GraphURL] = "ingest-" + runID
		}

		for idx, f := range futures {
			var childStatus string
			err := f.Get(ctx, &childStatus)
			url := urls[idx]
			if err != nil {
				progress.Failed++
				progress.PerDocument[url] = "failed"
				// The child never got to write its own terminal state.
				_ = workflow.ExecuteActivity(ctx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{
					RunID:      runIDs[idx],
					HarvestID:  input.HarvestID,
					GraphURL:   url,
					Status:     "failed",
					FailReason: err.Error(),
				}).Get(ctx, nil)
				continue
			}
			if childStatus == "failed" {
				progress.Failed++
			} else {
				progress.Done++
			}
			progress.PerDocument[url] = childStatus
		}
	}

	_ = workflow.ExecuteActivity(ctx, "WriteHarvestSummaryActivity", activities.WriteHarvestSummaryInput{
		HarvestID: input.HarvestID,
		Summary: map[string]any{
			"harvest_id":          input.HarvestID,
			"total":               progress.Total,
			"done":                progress.Done,
			"failed":              progress.Failed,
			"per_document_status": progress.PerDocument,
			"generated_at":        workflow.Now(ctx),
		},
	}).Get(ctx, nil)

	return "completed", nil
}

func isNoArticleError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "no scholarly article")
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
