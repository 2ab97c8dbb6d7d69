// Package exif extracts face labels from photo metadata using a pool of
// stay_open exiftool processes.
//
// Face labels come from the XMP PersonInImage tag when it has a non-blank
// value, otherwise from the names of the MWG face regions (RegionInfo), in
// region order. The pool runs exiftool without -struct, so region names
// arrive flattened as RegionName; the nested RegionInfo.RegionList form is
// also understood for callers that feed structured output. Labels are
// trimmed and de-duplicated before they leave the package.
//
// Each extraction also reports the file modification date and, when both
// coordinates are present, the GPS position.
package exif
