package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is present in the first export.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"list_photos", "reconcile", "touch_face_update", "clean_lone_tags",
		"get_face_tags", "list_tags", "delete_tags", "suspend_triggers", "restore_triggers", "migrate"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, result := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(result)
	}

	for _, op := range []string{"suspend", "restore", "restore_file"} {
		TriggerOperationsTotal.WithLabelValues(op, "success")
		TriggerOperationsTotal.WithLabelValues(op, "error")
	}

	for _, outcome := range []string{"refreshed", "empty", "up_to_date", "missing", "failed"} {
		ScanRecordsTotal.WithLabelValues(outcome)
	}

	for _, pool := range []string{"stat", "extract"} {
		ScanInFlight.WithLabelValues(pool)
	}

	for _, status := range []string{"success", "error"} {
		ExtractionsTotal.WithLabelValues(status)
	}

	for _, source := range []string{"person_in_image", "region_info", "none"} {
		FaceSourcesTotal.WithLabelValues(source)
	}

	for _, vol := range []string{"database", "unknown"} {
		for _, outcome := range []string{"found", "missing", "stale", "error"} {
			PhotoStatsTotal.WithLabelValues(vol, outcome)
		}
		PhotoStatDuration.WithLabelValues(vol)
		PhotoStatStaleErrors.WithLabelValues(vol)
		PhotoStatRetried.WithLabelValues(vol)
	}
}
