// Command plex-faces copies the people named in photo metadata into a Plex
// Media Server library as face tags.
//
// Names are read with exiftool from XMP-iptcExt:PersonInImage, falling back
// to the MWG RegionInfo region names. Each refreshed photo gets exactly the
// face tags found in its file; tags of other types are left alone.
//
// Usage:
//
//	plex-faces [flags] [tag]
//
// Operations (exactly one):
//
//	-s            Incremental scan: refresh photos whose file changed after
//	              their last face update.
//	-s -t DATE    Refresh photos whose file changed after DATE (YYYY-MM-DD).
//	-f            Full scan: refresh every photo.
//	-c            Remove face tags no photo refers to.
//	-l [tag]      List matching face tags, or all of them.
//	-d tag        Remove matching face tags from every photo.
//
// Scans, -c and -d modify the database and ask for the literal answer "yes"
// first unless --yes is given. Plex Media Server should be stopped while
// they run. The triggers on the tags table are dropped for the duration of
// the change and recreated afterwards, also on SIGINT and SIGTERM. If the
// process dies before that, run triggerctl restore.
//
// See package startup for the configuration file and environment variables.
package main
