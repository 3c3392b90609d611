package workflows

import (
	"context"
	"errors"
	"testing"

	"sciflow/internal/activities"
	"sciflow/internal/graph"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerIngestActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "FetchGraphActivity", func(context.Context, activities.FetchGraphInput) (activities.FetchGraphOutput, error) {
		return activities.FetchGraphOutput{}, nil
	})
	registerActivityName(env, "IngestDocumentActivity", func(context.Context, activities.IngestDocumentInput) (activities.IngestDocumentOutput, error) {
		return activities.IngestDocumentOutput{}, nil
	})
	registerActivityName(env, "UpdateRunStatusActivity", func(context.Context, activities.UpdateRunStatusInput) error { return nil })
	registerActivityName(env, "WriteArticleArtifactsActivity", func(context.Context, activities.WriteArticleArtifactsInput) (activities.WriteArticleArtifactsOutput, error) {
		return activities.WriteArticleArtifactsOutput{}, nil
	})
	registerActivityName(env, "WriteRunManifestActivity", func(context.Context, activities.WriteRunManifestInput) (activities.WriteRunManifestOutput, error) {
		return activities.WriteRunManifestOutput{}, nil
	})
	registerActivityName(env, "WriteHarvestSummaryActivity", func(context.Context, activities.WriteHarvestSummaryInput) error { return nil })
}

func TestDocumentIngestWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("UpdateRunStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("FetchGraphActivity", mock.Anything, activities.FetchGraphInput{GraphURL: "https://graphs.test/doc1"}).
		Return(activities.FetchGraphOutput{Nodes: []graph.Node{{"@id": "a1", "@type": "ScholarlyArticle"}}}, nil)
	env.OnActivity("IngestDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.IngestDocumentOutput{ArticleID: "art1", StatementIDs: []string{"s1", "s2"}}, nil)
	env.OnActivity("WriteArticleArtifactsActivity", mock.Anything, activities.WriteArticleArtifactsInput{ArticleID: "art1", StatementIDs: []string{"s1", "s2"}}).
		Return(activities.WriteArticleArtifactsOutput{Path: "/tmp/out/articles/art1"}, nil)
	env.OnActivity("WriteRunManifestActivity", mock.Anything, mock.Anything).
		Return(activities.WriteRunManifestOutput{Path: "/tmp/out/runs/r1/manifest.json"}, nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{RunID: "r1", GraphURL: "https://graphs.test/doc1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)
}

func TestDocumentIngestWorkflowNoArticleFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("UpdateRunStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("FetchGraphActivity", mock.Anything, mock.Anything).
		Return(activities.FetchGraphOutput{Nodes: []graph.Node{{"@id": "p1", "@type": "Person"}}}, nil)
	env.OnActivity("IngestDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.IngestDocumentOutput{}, errors.New("graph has no scholarly article node"))

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{RunID: "r1", GraphURL: "https://graphs.test/doc1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
}

func TestHarvestWorkflowFansOutPerDocument(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(HarvestWorkflow)
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("UpdateRunStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("FetchGraphActivity", mock.Anything, mock.Anything).
		Return(activities.FetchGraphOutput{Nodes: []graph.Node{{"@id": "a1", "@type": "ScholarlyArticle"}}}, nil)
	env.OnActivity("IngestDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.IngestDocumentOutput{ArticleID: "art1", StatementIDs: []string{"s1"}}, nil)
	env.OnActivity("WriteArticleArtifactsActivity", mock.Anything, mock.Anything).
		Return(activities.WriteArticleArtifactsOutput{}, nil)
	env.OnActivity("WriteRunManifestActivity", mock.Anything, mock.Anything).
		Return(activities.WriteRunManifestOutput{}, nil)
	env.OnActivity("WriteHarvestSummaryActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(HarvestWorkflow, HarvestInput{
		HarvestID: "h1",
		Documents: []HarvestDocument{
			{GraphURL: "https://graphs.test/doc1"},
			{GraphURL: "https://graphs.test/doc2"},
		},
		MaxConcurrentChildren: 1,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)

	resp, err := env.QueryWorkflow(QueryGetHarvestProgress)
	require.NoError(t, err)
	var prog HarvestProgress
	require.NoError(t, resp.Get(&prog))
	require.Equal(t, 2, prog.Total)
	require.Equal(t, 2, prog.Done)
	require.Equal(t, 0, prog.Failed)
	require.Equal(t, "completed", prog.PerDocument["https://graphs.test/doc1"])
	require.Equal(t, "completed", prog.PerDocument["https://graphs.test/doc2"])
}
