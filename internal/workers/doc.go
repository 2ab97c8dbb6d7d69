/*
Package workers sizes the exiftool process pool and the stat gate.

GOMAXPROCS follows container CPU limits (Go 1.19+) while runtime.NumCPU
reports the host, so sizing starts from GOMAXPROCS. A scan inside a
2-CPU container therefore starts two exiftool processes, not one per host
core:

	procs := workers.Extractors(workers.MaxExtractors)
	stats := workers.StatChecks(64)

PLEX_FACES_WORKERS fixes the extractor count (still capped by the limit).
*/
package workers
