package metrics

// Ledger statuses and analysis outcomes share one vocabulary.
var outcomes = []string{"variable", "uniform", "failed", "canceled"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, o := range outcomes {
		AnalysisRunsTotal.WithLabelValues(o)
		LedgerFilesTotal.WithLabelValues(o)
	}

	for _, phase := range []string{"probe", "sample", "classify", "total"} {
		AnalysisDuration.WithLabelValues(phase)
	}

	for _, class := range []string{"valid", "unknown", "dropped"} {
		SamplesTotal.WithLabelValues(class)
	}

	for _, tool := range []string{"ffprobe", "ffmpeg"} {
		for _, o := range []string{"success", "empty", "error", "canceled"} {
			SubprocessRunsTotal.WithLabelValues(tool, o)
		}
		SubprocessDuration.WithLabelValues(tool)
	}

	for _, s := range []string{"success", "error"} {
		SidecarWritesTotal.WithLabelValues(s)
	}

	for _, op := range []string{"stat", "read"} {
		FilesystemStaleRetries.WithLabelValues(op)
	}

	for _, r := range []string{"ok", "empty"} {
		CropFiltersBuilt.WithLabelValues(r)
	}

	for _, op := range []string{"initialize_schema", "record_analysis", "get_analysis", "list_analyses", "delete_analysis", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"create", "rename", "write", "remove"} {
		WatcherEventsTotal.WithLabelValues(op)
	}
}
