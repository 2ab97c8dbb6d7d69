package exif

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Exiftool tag names read by the face policy
const (
	tagPersonInImage  = "PersonInImage"
	tagRegionInfo     = "RegionInfo"
	tagRegionList     = "RegionList"
	tagRegionName     = "Name"
	tagRegionNameFlat = "RegionName"
	tagFileModifyDate = "FileModifyDate"
	tagGPSLatitude    = "GPSLatitude"
	tagGPSLongitude   = "GPSLongitude"
)

// dateFormat is passed to exiftool (-d) so dates come back in a fixed layout.
const (
	dateFormat = "%Y-%m-%dT%H:%M:%S%z"
	dateLayout = "2006-01-02T15:04:05-0700"
	// exiftool's own layout when no -d is in effect
	exiftoolDateLayout = "2006:01:02 15:04:05-07:00"
	coordFormat        = "%+.8f"
)

// faceSetFromFields builds a FaceSet from the raw exiftool fields of path.
func faceSetFromFields(path string, fields map[string]interface{}) *FaceSet {
	faces, source := facesFromFields(fields)
	faces = normalizeFaces(faces)
	if len(faces) == 0 {
		source = SourceNone
	}
	return &FaceSet{
		Path:       path,
		Faces:      faces,
		Source:     source,
		ModifiedAt: modifiedAt(fields),
		Position:   position(fields),
		Fields:     fields,
	}
}

// facesFromFields applies the face label policy: a PersonInImage with at
// least one non-blank value wins verbatim, then named face regions in list
// order, then nothing.
func facesFromFields(fields map[string]interface{}) ([]string, FaceSource) {
	if persons := stringList(fields[tagPersonInImage]); len(nonBlank(persons)) > 0 {
		return persons, SourcePersonInImage
	}

	if info, ok := fields[tagRegionInfo].(map[string]interface{}); ok {
		if names := regionNames(info[tagRegionList]); len(names) > 0 {
			return names, SourceRegionInfo
		}
	}

	// Flattened form of RegionInfo when exiftool was not asked for structures
	if names := nonBlank(stringList(fields[tagRegionNameFlat])); len(names) > 0 {
		return names, SourceRegionInfo
	}

	return []string{}, SourceNone
}

func regionNames(v interface{}) []string {
	var regions []interface{}
	switch list := v.(type) {
	case []interface{}:
		regions = list
	case map[string]interface{}:
		// A single region is not always wrapped in a list
		regions = []interface{}{list}
	default:
		return nil
	}

	names := make([]string, 0, len(regions))
	for _, r := range regions {
		region, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		name := scalarString(region[tagRegionName])
		if strings.TrimSpace(name) == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// stringList converts a single or multi-valued exiftool field to strings.
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	default:
		if s := scalarString(t); s != "" {
			return []string{s}
		}
		return nil
	}
}

func nonBlank(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeFaces trims labels and drops blanks and repeats, keeping first
// occurrences in order. The store applies the same rule, so a FaceSet that
// is Empty here never writes tags.
func normalizeFaces(faces []string) []string {
	out := make([]string, 0, len(faces))
	seen := make(map[string]struct{}, len(faces))
	for _, f := range faces {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func modifiedAt(fields map[string]interface{}) time.Time {
	s, ok := fields[tagFileModifyDate].(string)
	if !ok || s == "" {
		return time.Time{}
	}
	for _, layout := range []string{dateLayout, exiftoolDateLayout, "2006:01:02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func position(fields map[string]interface{}) *GeoPosition {
	lat, latOK := coordinate(fields[tagGPSLatitude])
	lng, lngOK := coordinate(fields[tagGPSLongitude])
	if !latOK || !lngOK {
		return nil
	}
	return &GeoPosition{Lat: lat, Lng: lng}
}

func coordinate(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
