package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tag store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_db_queries_total",
			Help: "Total number of tag store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plex_faces_db_query_duration_seconds",
			Help:    "Tag store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plex_faces_db_transaction_duration_seconds",
			Help:    "Tag store transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"result"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plex_faces_db_rows_affected",
			Help:    "Rows affected by tag store mutations",
			Buckets: []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plex_faces_db_size_bytes",
			Help: "Size of the Plex library database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)

	TriggerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_trigger_operations_total",
			Help: "Trigger suspend and restore operations on the tags table",
		},
		[]string{"operation", "status"},
	)
)

// Library metrics, refreshed by the Collector before export
var (
	LibraryPhotos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plex_faces_library_photos",
			Help: "Number of photo records in the Plex library",
		},
	)

	LibraryFaceTags = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plex_faces_library_face_tags",
			Help: "Number of distinct face tags",
		},
	)

	LibraryFaceTaggings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plex_faces_library_face_taggings",
			Help: "Number of (photo, face tag) associations",
		},
	)
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_scan_runs_total",
			Help: "Total number of scans by mode",
		},
		[]string{"mode"},
	)

	ScanRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_scan_records_total",
			Help: "Records processed by scan outcome",
		},
		[]string{"outcome"}, // "refreshed", "empty", "up_to_date", "missing", "failed"
	)

	ScanInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plex_faces_scan_in_flight",
			Help: "Asynchronous scan work currently in flight",
		},
		[]string{"pool"}, // "stat", "extract"
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plex_faces_scan_last_run_duration_seconds",
			Help: "Duration of the last scan in seconds",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plex_faces_scan_last_run_timestamp",
			Help: "Timestamp of the last completed scan",
		},
	)

	ScanLastRunUpdates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plex_faces_scan_last_run_updates",
			Help: "Successful record updates performed by the last scan",
		},
	)
)

// Extractor metrics
var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_extractions_total",
			Help: "Metadata extractions by result",
		},
		[]string{"status"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plex_faces_extraction_duration_seconds",
			Help:    "Metadata extraction duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ExtractorProcesses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plex_faces_extractor_processes",
			Help: "Number of exiftool processes in the extractor pool",
		},
	)

	FaceSourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_face_sources_total",
			Help: "Successful extractions by the attribute the face labels came from",
		},
		[]string{"source"}, // "person_in_image", "region_info", "none"
	)
)

// Photo stat metrics, fed by filesystem.StatWithRetry
var (
	PhotoStatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_photo_stats_total",
			Help: "Photo file stats by volume and outcome (found, missing, stale, error)",
		},
		[]string{"volume", "outcome"},
	)

	PhotoStatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plex_faces_photo_stat_duration_seconds",
			Help:    "Photo stat duration including stale handle retries",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"volume"},
	)

	PhotoStatStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_photo_stat_stale_errors_total",
			Help: "Stale NFS file handle errors seen while stating photos",
		},
		[]string{"volume"},
	)

	PhotoStatRetried = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plex_faces_photo_stat_retried_total",
			Help: "Photo stats that needed more than one attempt",
		},
		[]string{"volume"},
	)
)

// AppInfo exposes build information
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "plex_faces_app_info",
		Help: "Build information",
	},
	[]string{"version", "commit", "go_version"},
)
