// Command triggerctl inspects and repairs the triggers on the Plex tags
// table after an interrupted plex-faces run.
//
// plex-faces drops the tags triggers while it rewrites face tags and saves
// their definitions next to the database (<database>.triggers.yaml). A
// normal run, or one stopped with SIGINT or SIGTERM, recreates them and
// removes the file. If the process was killed the file stays behind and the
// next mutating plex-faces run refuses to start until it is dealt with.
//
// Usage:
//
//	triggerctl <command>
//
// Commands:
//
//	status   Show the triggers currently on the tags table and any saved
//	         snapshot.
//
//	restore  Recreate the triggers missing from the saved snapshot and
//	         remove the snapshot file.
//
// Environment:
//
//	PLEX_FACES_DATABASE - Path to the Plex library database
//
// The plex-faces.yaml configuration file is honored as well.
package main
