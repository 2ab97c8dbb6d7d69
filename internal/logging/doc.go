// Package logging is the printf-style logger used across plex-faces. Output
// goes through a zap SugaredLogger to stderr; the threshold is a zap
// AtomicLevel shared by every call site.
//
// Levels are debug, info, warn and error. The starting threshold comes from
// DEBUG (any true boolean selects debug) or LOG_LEVEL, and SetLevel replaces
// it once the configuration has been loaded.
package logging
