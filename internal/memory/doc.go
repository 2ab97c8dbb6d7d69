// Package memory sets the Go memory limit for containerized runs.
//
// GOMAXPROCS follows cgroup CPU limits automatically; GOMEMLIMIT does not.
// [ConfigureFromEnv] derives it from the container limit so that a scan of
// a large library does not push the container into the OOM killer while the
// exiftool processes are also resident.
//
// Environment variables:
//
//   - GOMEMLIMIT: Standard Go variable. When set it wins and is only reported.
//   - MEMORY_LIMIT: Container memory limit in bytes, e.g. from the
//     Kubernetes Downward API (resources.limits.memory).
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap, 0.0-1.0
//     (default 0.5).
package memory
