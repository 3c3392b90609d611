package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.FetchGraphActivity)
	w.RegisterActivity(a.IngestDocumentActivity)
	w.RegisterActivity(a.UpdateRunStatusActivity)
	w.RegisterActivity(a.WriteRunManifestActivity)
	w.RegisterActivity(a.WriteHarvestSummaryActivity)
	w.RegisterActivity(a.WriteArticleArtifactsActivity)
}
