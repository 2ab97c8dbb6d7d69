package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"plex-faces/internal/database"
)

func TestShouldRefresh(t *testing.T) {
	updated := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	before := updated.Add(-time.Hour)
	after := updated.Add(time.Hour)
	future := updated.AddDate(10, 0, 0)

	stamped := database.PhotoRecord{MID: 1, File: "/photos/a.jpg", FaceUpdatedAt: updated}
	never := database.PhotoRecord{MID: 2, File: "/photos/b.jpg"}
	ahead := database.PhotoRecord{MID: 3, File: "/photos/c.jpg", FaceUpdatedAt: future}

	tests := []struct {
		name    string
		rec     database.PhotoRecord
		modTime time.Time
		mode    ScanMode
		want    bool
	}{
		{name: "incremental newer file", rec: stamped, modTime: after, want: true},
		{name: "incremental older file", rec: stamped, modTime: before, want: false},
		{name: "incremental same instant", rec: stamped, modTime: updated, want: false},
		{name: "incremental never updated", rec: never, modTime: before, want: true},
		{name: "incremental future stamp", rec: ahead, modTime: after, want: false},
		{name: "full ignores future stamp", rec: ahead, modTime: before, mode: ScanMode{Full: true}, want: true},
		{name: "full wins over since", rec: stamped, modTime: before, mode: ScanMode{Full: true, Since: after}, want: true},
		{name: "since newer than cutoff", rec: ahead, modTime: after, mode: ScanMode{Since: updated}, want: true},
		{name: "since older than cutoff", rec: never, modTime: before, mode: ScanMode{Since: updated}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRefresh(tt.rec, tt.modTime, tt.mode))
		})
	}
}

func TestScanModeString(t *testing.T) {
	assert.Equal(t, "incremental", ScanMode{}.String())
	assert.Equal(t, "full", ScanMode{Full: true}.String())
	assert.Equal(t, "since", ScanMode{Since: time.Now()}.String())
}
