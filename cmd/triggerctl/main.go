package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"plex-faces/internal/database"
	"plex-faces/internal/startup"
)

// Default timeout for database operations
const defaultTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	if command != "status" && command != "restore" {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(os.Stderr)
		os.Exit(1)
	}

	dbPath, err := databasePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// status only reads, so it may run next to a plex-faces process or Plex
	db, err := database.New(ctx, dbPath, &database.Options{ReadOnly: command == "status"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open library database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure PLEX_FACES_DATABASE is set correctly (current: %s)\n", dbPath)
		os.Exit(1)
	}

	ok := true
	switch command {
	case "status":
		ok = showStatus(ctx, os.Stdout, db)
	case "restore":
		ok = restoreTriggers(ctx, os.Stdout, db)
	}

	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	if !ok {
		os.Exit(1)
	}
}

func databasePath() (string, error) {
	v, err := startup.NewViper()
	if err != nil {
		return "", err
	}
	if err := startup.ReadConfigFile(v); err != nil {
		return "", err
	}
	cfg, err := startup.LoadConfig(v)
	if err != nil {
		return "", err
	}
	return cfg.DatabasePath, nil
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "plex-faces trigger recovery")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: triggerctl <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status   - Show tags triggers and any saved snapshot")
	fmt.Fprintln(w, "  restore  - Recreate triggers from the saved snapshot")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  PLEX_FACES_DATABASE - Path to the library database (default: %s)\n", database.DefaultLibraryPath())
}

func showStatus(ctx context.Context, w io.Writer, db *database.Database) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	triggers, err := db.ListTriggers(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return false
	}

	fmt.Fprintf(w, "Database: %s\n", db.Path())
	if len(triggers) == 0 {
		fmt.Fprintln(w, "Triggers: none")
	} else {
		fmt.Fprintf(w, "Triggers: %s\n", triggerNames(triggers))
	}

	snap, err := database.LoadTriggerSnapshot(db.SnapshotPath())
	if errors.Is(err, database.ErrNoTriggerSnapshot) {
		fmt.Fprintln(w, "Snapshot: none (triggers are not suspended)")
		return true
	}
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return false
	}

	fmt.Fprintf(w, "Snapshot: %s\n", db.SnapshotPath())
	fmt.Fprintf(w, "  Session:   %s\n", snap.SessionID)
	fmt.Fprintf(w, "  Suspended: %s\n", snap.SuspendedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "  Triggers:  %s\n", triggerNames(snap.Triggers))
	fmt.Fprintln(w, "Run 'triggerctl restore' to recreate them.")
	return true
}

func restoreTriggers(ctx context.Context, w io.Writer, db *database.Database) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	snap, err := db.RestoreTriggersFromFile(ctx)
	if errors.Is(err, database.ErrNoTriggerSnapshot) {
		fmt.Fprintln(w, "Nothing to restore: no trigger snapshot found.")
		return true
	}
	if err != nil {
		fmt.Fprintf(w, "Error: Failed to restore triggers: %v\n", err)
		return false
	}

	fmt.Fprintf(w, "Restored triggers from session %s: %s\n", snap.SessionID, triggerNames(snap.Triggers))
	return true
}

func triggerNames(triggers []database.TriggerDef) string {
	names := make([]string, 0, len(triggers))
	for _, t := range triggers {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
