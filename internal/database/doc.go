// Package database is the tag store on top of a Plex Media Server library
// database (SQLite).
//
// It reads photo records from metadata_items, media_items and media_parts,
// and writes face tags through the tags and taggings tables:
//   - per-photo reconciliation of extracted faces in one transaction
//   - lone-tag cleanup
//   - tag listing and deletion with substring, prefix or exact matching
//   - suspension and restoration of the triggers on the tags table
//
// Suspended triggers are also written to a YAML snapshot next to the
// database so an interrupted run can be recovered. Opening a store for
// writing takes an advisory lock file so two runs never mutate the same
// library. Opening never alters the schema: the FaceUpdateTime and
// PlaceUpdateTime columns are added by Migrate, and ReadOnly stores use a
// mode=ro connection.
package database
