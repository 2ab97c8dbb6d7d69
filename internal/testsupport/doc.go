// Package testsupport holds fixtures shared by package tests: a throwaway
// Plex-like library database and photo files with controlled mtimes.
package testsupport
