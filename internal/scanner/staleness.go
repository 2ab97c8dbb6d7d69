package scanner

import (
	"time"

	"plex-faces/internal/database"
)

// ScanMode selects which records a scan refreshes. Full takes precedence
// over Since; with neither set the scan is incremental.
type ScanMode struct {
	// Full refreshes every record regardless of timestamps.
	Full bool
	// Since replaces each record's last face update as the cutoff a file
	// must be newer than.
	Since time.Time
}

// String returns the metrics label of the mode.
func (m ScanMode) String() string {
	switch {
	case m.Full:
		return "full"
	case !m.Since.IsZero():
		return "since"
	default:
		return "incremental"
	}
}

// ShouldRefresh reports whether rec needs its faces extracted again given
// the modification time of its file.
func ShouldRefresh(rec database.PhotoRecord, fileModifiedAt time.Time, mode ScanMode) bool {
	if mode.Full {
		return true
	}
	if !mode.Since.IsZero() {
		return fileModifiedAt.After(mode.Since)
	}
	// A never-updated record has a zero FaceUpdatedAt, older than any file
	return fileModifiedAt.After(rec.FaceUpdatedAt)
}
