// Package scanner synchronizes face tags from photo files into the library.
//
// A scan snapshots every photo record once, stats each file concurrently
// and extracts faces from the files that are newer than the record's last
// face update (or from every file in a full scan). Completion events from
// stat checks and extractions are consumed by a single event loop that owns
// the in-flight counters and applies every result to the store, so the
// moment both counters reach zero is observed exactly once. At that point
// the scan finalizes: lone tags are removed, the tags triggers are restored
// and the store and extractor are closed.
//
// Simultaneous extractions are capped by a weighted semaphore sized from
// the configured worker count.
package scanner
