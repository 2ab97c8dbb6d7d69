package exif

import (
	"context"
	"errors"
	"time"
)

// ErrExtractorClosed is returned by Extract after Close.
var ErrExtractorClosed = errors.New("extractor closed")

// Extractor reads the face metadata embedded in a photo file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*FaceSet, error)
	Close() error
}

// FaceSource tells which metadata the face labels came from.
type FaceSource string

const (
	SourcePersonInImage FaceSource = "person_in_image"
	SourceRegionInfo    FaceSource = "region_info"
	SourceNone          FaceSource = "none"
)

// GeoPosition is the GPS position of a photo in signed decimal degrees.
type GeoPosition struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FaceSet is the outcome of one extraction.
type FaceSet struct {
	Path       string
	Faces      []string // ordered, trimmed, without blanks or repeats; possibly empty
	Source     FaceSource
	ModifiedAt time.Time    // zero when exiftool did not report FileModifyDate
	Position   *GeoPosition // nil unless both latitude and longitude were present
	Fields     map[string]interface{}
}

// Empty reports whether no face label was found.
func (f *FaceSet) Empty() bool {
	return f == nil || len(f.Faces) == 0
}
