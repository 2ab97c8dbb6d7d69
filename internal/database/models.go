package database

import (
	"strings"
	"time"
)

// PhotoRecord is one photo of the library as seen at scan start.
type PhotoRecord struct {
	MID           int64     `json:"mid"`
	File          string    `json:"file"`
	FaceUpdatedAt time.Time `json:"faceUpdatedAt"` // zero when never processed
}

// Tag is a face tag together with the photo it is attached to.
type Tag struct {
	ID    int64  `json:"id"`
	MID   int64  `json:"mid"`
	Name  string `json:"tag"`
	Index int    `json:"index"`
}

// MatchMode selects how a TagFilter compares tag names.
type MatchMode string

const (
	MatchContains MatchMode = "contains"
	MatchPrefix   MatchMode = "prefix"
	MatchExact    MatchMode = "exact"
)

// ParseMatchMode maps a user supplied mode name to a MatchMode.
func ParseMatchMode(name string) (MatchMode, bool) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(name))) {
	case MatchContains, "":
		return MatchContains, true
	case MatchPrefix:
		return MatchPrefix, true
	case MatchExact:
		return MatchExact, true
	default:
		return MatchContains, false
	}
}

// TagFilter selects face tags by name. The zero value matches every tag.
type TagFilter struct {
	Pattern       string
	Mode          MatchMode
	CaseSensitive bool
}

// Matches reports whether name is selected by the filter.
func (f TagFilter) Matches(name string) bool {
	if f.Pattern == "" {
		return true
	}

	pattern := f.Pattern
	if !f.CaseSensitive {
		pattern = strings.ToLower(pattern)
		name = strings.ToLower(name)
	}

	switch f.Mode {
	case MatchPrefix:
		return strings.HasPrefix(name, pattern)
	case MatchExact:
		return name == pattern
	default:
		return strings.Contains(name, pattern)
	}
}

// TriggerDef is one trigger on the tags table as stored in sqlite_master.
type TriggerDef struct {
	Name string `yaml:"name"`
	SQL  string `yaml:"sql"`
}

// TriggerSnapshot holds the tags-table triggers captured before they were
// dropped.
type TriggerSnapshot struct {
	Database    string       `yaml:"database"`
	SessionID   string       `yaml:"session_id,omitempty"`
	SuspendedAt time.Time    `yaml:"suspended_at"`
	Triggers    []TriggerDef `yaml:"triggers"`
}
