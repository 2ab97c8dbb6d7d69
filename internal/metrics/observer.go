package metrics

import "plex-faces/internal/filesystem"

type filesystemObserver struct{}

// NewFilesystemObserver returns the filesystem.Observer that feeds the photo
// stat metrics.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveStat(ev filesystem.StatEvent) {
	PhotoStatsTotal.WithLabelValues(ev.Volume, string(ev.Outcome)).Inc()
	PhotoStatDuration.WithLabelValues(ev.Volume).Observe(ev.Duration.Seconds())
	if ev.StaleErrors > 0 {
		PhotoStatStaleErrors.WithLabelValues(ev.Volume).Add(float64(ev.StaleErrors))
	}
	if ev.Retried() {
		PhotoStatRetried.WithLabelValues(ev.Volume).Inc()
	}
}
