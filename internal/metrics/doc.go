// Package metrics provides Prometheus instrumentation for plex-faces.
//
// All metrics are prefixed with "plex_faces_". Because plex-faces runs as a
// one-shot command rather than a server, metrics are not scraped; instead the
// Collector refreshes library gauges at the end of a run and writes every
// registered metric to a file in the Prometheus text format, suitable for the
// node_exporter textfile collector.
//
// # Metric Categories
//
// ## Tag Store Metrics
//
//   - DBQueryTotal / DBQueryDuration: queries by operation and status
//   - DBTransactionDuration: per-record reconcile transactions
//   - DBRowsAffected: rows touched by mutations
//   - DBSizeBytes: main, WAL and SHM file sizes
//   - TriggerOperationsTotal: trigger suspend/restore attempts
//
// ## Scan Metrics
//
//   - ScanRunsTotal: scans by mode (incremental, full, since)
//   - ScanRecordsTotal: records by outcome
//   - ScanInFlight: stat and extraction work in flight
//   - ScanLastRunDuration / ScanLastRunTimestamp / ScanLastRunUpdates
//
// ## Extractor Metrics
//
//   - ExtractionsTotal / ExtractionDuration
//   - ExtractorProcesses: exiftool processes in the pool
//   - FaceSourcesTotal: labels by source attribute
//
// ## Photo Stat Metrics
//
//   - PhotoStatsTotal: stats by volume and outcome
//   - PhotoStatDuration, PhotoStatStaleErrors, PhotoStatRetried
//
// Fed by the filesystem.Observer in observer.go, which keeps the filesystem
// package free of a Prometheus dependency.
//
// # Usage
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//	...
//	collector := metrics.NewCollector(store)
//	if err := collector.Export(cfg.MetricsFile); err != nil {
//	    logging.Warn("metrics export failed: %v", err)
//	}
package metrics
