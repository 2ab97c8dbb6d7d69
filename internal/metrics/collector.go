package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"plex-faces/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() (Stats, error)
}

// Stats holds the current library statistics
type Stats struct {
	Photos       int
	FaceTags     int
	FaceTaggings int
	DBFileSizes  map[string]int64
}

// Collector refreshes library gauges and exports the registry
type Collector struct {
	statsProvider StatsProvider
	gatherer      prometheus.Gatherer
}

// NewCollector creates a new metrics collector backed by the default registry
func NewCollector(provider StatsProvider) *Collector {
	return &Collector{
		statsProvider: provider,
		gatherer:      prometheus.DefaultGatherer,
	}
}

// Collect updates the library gauges from the stats provider.
func (c *Collector) Collect() {
	if c.statsProvider == nil {
		return
	}

	stats, err := c.statsProvider.GetStats()
	if err != nil {
		logging.Warn("Failed to collect library stats: %v", err)
		return
	}

	LibraryPhotos.Set(float64(stats.Photos))
	LibraryFaceTags.Set(float64(stats.FaceTags))
	LibraryFaceTaggings.Set(float64(stats.FaceTaggings))
	for file, size := range stats.DBFileSizes {
		DBSizeBytes.WithLabelValues(file).Set(float64(size))
	}

	logging.Debug("Metrics collected: photos=%d, face tags=%d, taggings=%d",
		stats.Photos, stats.FaceTags, stats.FaceTaggings)
}

// Export collects current stats and writes all metrics to path in the
// Prometheus text format. An empty path disables the export.
func (c *Collector) Export(path string) error {
	if path == "" {
		return nil
	}

	c.Collect()

	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	logging.Debug("Metrics written to %s", path)
	return nil
}
