package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"plex-faces/internal/logging"
	"plex-faces/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Plex metadata_type for photo items
const metadataTypePhoto = 13

// Plex tag_type used for face tags
const tagTypeFace = 0

// ErrLocked is returned by New when another plex-faces process holds the
// library lock.
var ErrLocked = errors.New("library database is locked by another plex-faces process")

// Options tunes how the library database is opened.
type Options struct {
	// ReadOnly opens the library with mode=ro and skips the advisory lock
	// file. Listing and status commands use it.
	ReadOnly bool
	// SnapshotPath overrides where trigger snapshots are persisted.
	// Defaults to "<dbPath>.triggers.yaml".
	SnapshotPath string
}

// Database is the tag store backed by a Plex Media Server library database.
type Database struct {
	db           *sql.DB
	dbPath       string
	snapshotPath string
	lock         *flock.Flock

	// mu serializes every mutation so a signal-driven Abort cannot interleave
	// with a reconcile transaction.
	mu        sync.Mutex
	suspended *TriggerSnapshot

	closeOnce sync.Once
	closeErr  error
}

// New opens the Plex library database at dbPath and, unless opts.ReadOnly
// is set, acquires the advisory lock. The schema is left alone; scans call
// Migrate once the user has agreed to modify the library.
func New(ctx context.Context, dbPath string, opts *Options) (*Database, error) {
	if opts == nil {
		opts = &Options{}
	}
	logging.Info("Database path: %s", dbPath)

	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("library database not accessible: %w", err)
	}

	var lock *flock.Flock
	if !opts.ReadOnly {
		lock = flock.New(dbPath + ".plex-faces.lock")
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire library lock: %w", err)
		}
		if !ok {
			return nil, ErrLocked
		}
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=off", dbPath)
	if opts.ReadOnly {
		connStr += "&mode=ro"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		releaseLock(lock)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		releaseLock(lock)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single connection keeps the trigger-suspended window and every
	// reconcile transaction on the same SQLite handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	snapshotPath := opts.SnapshotPath
	if snapshotPath == "" {
		snapshotPath = dbPath + ".triggers.yaml"
	}

	d := &Database{
		db:           db,
		dbPath:       dbPath,
		snapshotPath: snapshotPath,
		lock:         lock,
	}

	logging.Debug("Database opened successfully at %s", dbPath)
	return d, nil
}

func releaseLock(lock *flock.Flock) {
	if lock == nil {
		return
	}
	if err := lock.Unlock(); err != nil {
		logging.Warn("failed to release library lock: %v", err)
	}
}

// Migrate adds the plex-faces bookkeeping columns to metadata_items. It is
// a no-op when they already exist.
func (d *Database) Migrate(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	done := observeQuery("migrate")

	for _, column := range []string{"FaceUpdateTime", "PlaceUpdateTime"} {
		var columnExists bool
		err := d.db.QueryRowContext(ctx, `
			SELECT COUNT(*) > 0
			FROM pragma_table_info('metadata_items')
			WHERE name = ?
		`, column).Scan(&columnExists)
		if err != nil {
			err = fmt.Errorf("failed to check for %s column: %w", column, err)
			done(err)
			return err
		}

		if columnExists {
			continue
		}

		logging.Info("Migrating database: adding %s column to metadata_items table", column)

		// Nullable: NULL means the photo was never processed
		_, err = d.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE metadata_items ADD COLUMN %s datetime`, column))
		if err != nil {
			err = fmt.Errorf("failed to add %s column: %w", column, err)
			done(err)
			return err
		}

		logging.Info("Migration complete: %s column added", column)
	}

	done(nil)
	return nil
}

// Path returns the library database path.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection and releases the library lock.
// Only the first call has any effect.
func (d *Database) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if d.suspended != nil {
			logging.Error("Closing database with triggers still suspended; snapshot kept at %s", d.snapshotPath)
		}
		d.closeErr = d.db.Close()
		releaseLock(d.lock)
	})
	return d.closeErr
}

// Abort restores suspended triggers and closes the database. It is meant
// for signal handlers; any operation racing with it fails on the closed
// handle instead of running with triggers down.
func (d *Database) Abort(ctx context.Context) error {
	var restoreErr error

	d.mu.Lock()
	if d.suspended != nil {
		restoreErr = d.restoreTriggersLocked(ctx)
	}
	d.mu.Unlock()

	return errors.Join(restoreErr, d.Close())
}

// GetStats returns library statistics for the metrics collector.
func (d *Database) GetStats() (metrics.Stats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	stats := metrics.Stats{DBFileSizes: d.fileSizes()}

	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM metadata_items WHERE metadata_type = ?", metadataTypePhoto,
	).Scan(&stats.Photos)
	if err != nil {
		return stats, fmt.Errorf("failed to count photos: %w", err)
	}

	err = d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tags WHERE tag_type = ?),
			(SELECT COUNT(*) FROM taggings tg INNER JOIN tags t ON t.id = tg.tag_id WHERE t.tag_type = ?)
	`, tagTypeFace, tagTypeFace).Scan(&stats.FaceTags, &stats.FaceTaggings)
	if err != nil {
		return stats, fmt.Errorf("failed to count face tags: %w", err)
	}

	return stats, nil
}

func (d *Database) fileSizes() map[string]int64 {
	sizes := make(map[string]int64, 3)
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		if info, err := os.Stat(d.dbPath + suffix); err == nil {
			sizes[label] = info.Size()
		}
	}
	return sizes
}

// observeQuery starts timing an operation and returns the function that
// records its outcome.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		recordQuery(operation, start, err)
	}
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// DefaultLibraryPath returns the default Plex library database location on Linux.
func DefaultLibraryPath() string {
	return filepath.Join("/var/lib/plexmediaserver", "Library", "Application Support",
		"Plex Media Server", "Plug-in Support", "Databases", "com.plexapp.plugins.library.db")
}
