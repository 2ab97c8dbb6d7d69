package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"plex-faces/internal/filesystem"
)

type mockStatsProvider struct {
	stats Stats
	err   error
	calls int
}

func (m *mockStatsProvider) GetStats() (Stats, error) {
	m.calls++
	return m.stats, m.err
}

func TestScanMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"ScanRunsTotal", ScanRunsTotal},
		{"ScanRecordsTotal", ScanRecordsTotal},
		{"ScanInFlight", ScanInFlight},
		{"ScanLastRunDuration", ScanLastRunDuration},
		{"ScanLastRunTimestamp", ScanLastRunTimestamp},
		{"ScanLastRunUpdates", ScanLastRunUpdates},
		{"ExtractionsTotal", ExtractionsTotal},
		{"ExtractionDuration", ExtractionDuration},
		{"TriggerOperationsTotal", TriggerOperationsTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetricsPopulatesLabels(t *testing.T) {
	InitializeMetrics()

	if got := testutil.CollectAndCount(ScanRecordsTotal); got != 5 {
		t.Errorf("expected 5 scan outcome series, got %d", got)
	}
	if got := testutil.CollectAndCount(ScanInFlight); got != 2 {
		t.Errorf("expected 2 in-flight pools, got %d", got)
	}
}

func TestCollectorCollect(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		Photos:       12,
		FaceTags:     3,
		FaceTaggings: 7,
		DBFileSizes:  map[string]int64{"main": 4096},
	}}

	NewCollector(provider).Collect()

	if got := testutil.ToFloat64(LibraryPhotos); got != 12 {
		t.Errorf("LibraryPhotos = %v, want 12", got)
	}
	if got := testutil.ToFloat64(LibraryFaceTaggings); got != 7 {
		t.Errorf("LibraryFaceTaggings = %v, want 7", got)
	}
	if got := testutil.ToFloat64(DBSizeBytes.WithLabelValues("main")); got != 4096 {
		t.Errorf("DBSizeBytes{main} = %v, want 4096", got)
	}
}

func TestCollectorCollectProviderError(t *testing.T) {
	LibraryFaceTags.Set(42)
	provider := &mockStatsProvider{err: errors.New("database is locked")}

	NewCollector(provider).Collect()

	if provider.calls != 1 {
		t.Errorf("expected provider to be called once, got %d", provider.calls)
	}
	if got := testutil.ToFloat64(LibraryFaceTags); got != 42 {
		t.Errorf("gauge should be untouched on error, got %v", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Collect panicked with nil provider: %v", r)
		}
	}()
	NewCollector(nil).Collect()
}

func TestCollectorExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plex_faces_test_export_total",
		Help: "test counter",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	c := NewCollector(&mockStatsProvider{})
	c.gatherer = reg

	path := filepath.Join(t.TempDir(), "plex_faces.prom")
	if err := c.Export(path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read exported metrics: %v", err)
	}
	if !strings.Contains(string(data), "plex_faces_test_export_total 3") {
		t.Errorf("exported file missing counter, got:\n%s", data)
	}
}

func TestCollectorExportDisabled(t *testing.T) {
	provider := &mockStatsProvider{}
	if err := NewCollector(provider).Export(""); err != nil {
		t.Fatalf("Export with empty path should be a no-op, got %v", err)
	}
	if provider.calls != 0 {
		t.Error("stats should not be collected when export is disabled")
	}
}

func TestFilesystemObserver(t *testing.T) {
	o := NewFilesystemObserver()
	volume := "observer_test"

	o.ObserveStat(filesystem.StatEvent{Volume: volume, Outcome: filesystem.OutcomeMissing, Attempts: 1, Duration: time.Millisecond})
	o.ObserveStat(filesystem.StatEvent{Volume: volume, Outcome: filesystem.OutcomeFound, Attempts: 3, StaleErrors: 2, Duration: time.Millisecond})

	if got := testutil.ToFloat64(PhotoStatsTotal.WithLabelValues(volume, "missing")); got != 1 {
		t.Errorf("missing stats = %v, want 1", got)
	}
	if got := testutil.ToFloat64(PhotoStatsTotal.WithLabelValues(volume, "found")); got != 1 {
		t.Errorf("found stats = %v, want 1", got)
	}
	if got := testutil.ToFloat64(PhotoStatStaleErrors.WithLabelValues(volume)); got != 2 {
		t.Errorf("stale errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(PhotoStatRetried.WithLabelValues(volume)); got != 1 {
		t.Errorf("retried stats = %v, want 1", got)
	}
}
