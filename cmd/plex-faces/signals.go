package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plex-faces/internal/database"
	"plex-faces/internal/logging"
	"plex-faces/internal/startup"
)

const (
	abortTimeout    = 30 * time.Second
	exitInterrupted = 130
)

// watchSignals restores suspended triggers and exits when the process is
// interrupted. Scans cannot be cancelled, so the running operation is not
// waited for.
func watchSignals(store *database.Database) func() {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			startup.LogShutdownInitiated(sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
			if err := store.Abort(ctx); err != nil {
				logging.Error("Shutdown cleanup failed: %v", err)
			}
			cancel()

			logging.Sync()
			os.Exit(exitInterrupted)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
