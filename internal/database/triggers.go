package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"plex-faces/internal/logging"
	"plex-faces/internal/metrics"
)

var (
	// ErrNoTriggerSnapshot is returned when there is no trigger snapshot
	// to restore from.
	ErrNoTriggerSnapshot = errors.New("no trigger snapshot")

	// ErrPendingTriggerSnapshot is returned by SuspendTriggers when a
	// snapshot from an earlier run is still on disk. It must be restored
	// (triggerctl restore) before triggers are dropped again.
	ErrPendingTriggerSnapshot = errors.New("a trigger snapshot from an earlier run is still pending, run triggerctl restore")

	// ErrTriggersSuspended is returned by SuspendTriggers when this store
	// already has its triggers suspended.
	ErrTriggersSuspended = errors.New("triggers are already suspended")
)

// SnapshotPath returns where the trigger snapshot is persisted.
func (d *Database) SnapshotPath() string {
	return d.snapshotPath
}

// TriggersSuspended reports whether this store currently holds dropped
// triggers.
func (d *Database) TriggersSuspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended != nil
}

// SuspendTriggers captures every trigger on the tags table, writes the
// snapshot to disk and drops the triggers. sessionID is recorded in the
// snapshot for the recovery tool.
func (d *Database) SuspendTriggers(ctx context.Context, sessionID string) (*TriggerSnapshot, error) {
	done := observeQuery("suspend_triggers")

	d.mu.Lock()
	defer d.mu.Unlock()

	snap, err := d.suspendTriggersLocked(ctx, sessionID)
	recordTriggerOp("suspend", err)
	done(err)
	return snap, err
}

func (d *Database) suspendTriggersLocked(ctx context.Context, sessionID string) (*TriggerSnapshot, error) {
	if d.suspended != nil {
		return nil, ErrTriggersSuspended
	}
	if _, err := os.Stat(d.snapshotPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrPendingTriggerSnapshot, d.snapshotPath)
	}

	triggers, err := listTriggers(ctx, d.db)
	if err != nil {
		return nil, err
	}

	snap := &TriggerSnapshot{
		Database:    d.dbPath,
		SessionID:   sessionID,
		SuspendedAt: time.Now().UTC(),
		Triggers:    triggers,
	}

	if err := writeSnapshot(d.snapshotPath, snap); err != nil {
		return nil, err
	}

	err = d.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, trig := range triggers {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TRIGGER IF EXISTS %q", trig.Name)); err != nil {
				return fmt.Errorf("failed to drop trigger %s: %w", trig.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		// Nothing was dropped, the snapshot is not needed
		if rmErr := os.Remove(d.snapshotPath); rmErr != nil {
			logging.Warn("failed to remove unused trigger snapshot: %v", rmErr)
		}
		return nil, err
	}

	d.suspended = snap
	logging.Info("Suspended %d triggers on tags (snapshot %s)", len(triggers), d.snapshotPath)
	return snap, nil
}

// RestoreTriggers reinstates the triggers captured by SuspendTriggers and
// removes the snapshot file. It is a no-op when nothing is suspended.
func (d *Database) RestoreTriggers(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.suspended == nil {
		return nil
	}
	return d.restoreTriggersLocked(ctx)
}

func (d *Database) restoreTriggersLocked(ctx context.Context) error {
	done := observeQuery("restore_triggers")

	err := d.applySnapshot(ctx, d.suspended)
	recordTriggerOp("restore", err)
	if err != nil {
		logging.Error("Failed to restore triggers on tags, snapshot kept at %s: %v", d.snapshotPath, err)
		done(err)
		return err
	}

	d.suspended = nil
	done(nil)
	return nil
}

// RestoreTriggersFromFile reinstates triggers from the on-disk snapshot left
// by an interrupted run. It returns the restored snapshot, or
// ErrNoTriggerSnapshot when there is none.
func (d *Database) RestoreTriggersFromFile(ctx context.Context) (*TriggerSnapshot, error) {
	done := observeQuery("restore_triggers")

	d.mu.Lock()
	defer d.mu.Unlock()

	snap, err := LoadTriggerSnapshot(d.snapshotPath)
	if err != nil {
		done(err)
		return nil, err
	}

	err = d.applySnapshot(ctx, snap)
	recordTriggerOp("restore_file", err)
	done(err)
	if err != nil {
		return nil, err
	}

	d.suspended = nil
	return snap, nil
}

// applySnapshot recreates the snapshot triggers that are missing and then
// removes the snapshot file.
func (d *Database) applySnapshot(ctx context.Context, snap *TriggerSnapshot) error {
	existing, err := listTriggers(ctx, d.db)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(existing))
	for _, trig := range existing {
		present[trig.Name] = struct{}{}
	}

	restored := 0
	err = d.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, trig := range snap.Triggers {
			if _, ok := present[trig.Name]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, trig.SQL); err != nil {
				return fmt.Errorf("failed to recreate trigger %s: %w", trig.Name, err)
			}
			restored++
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.Remove(d.snapshotPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("triggers restored but snapshot not removed: %w", err)
	}

	logging.Info("Restored %d of %d triggers on tags", restored, len(snap.Triggers))
	return nil
}

// ListTriggers returns the triggers currently defined on the tags table.
func (d *Database) ListTriggers(ctx context.Context) ([]TriggerDef, error) {
	return listTriggers(ctx, d.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listTriggers(ctx context.Context, q querier) ([]TriggerDef, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, sql FROM sqlite_master
		WHERE type = 'trigger' AND tbl_name = 'tags' AND sql IS NOT NULL
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []TriggerDef
	for rows.Next() {
		var trig TriggerDef
		if err := rows.Scan(&trig.Name, &trig.SQL); err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		triggers = append(triggers, trig)
	}
	return triggers, rows.Err()
}

// LoadTriggerSnapshot reads a snapshot written by SuspendTriggers.
func LoadTriggerSnapshot(path string) (*TriggerSnapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoTriggerSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trigger snapshot: %w", err)
	}

	var snap TriggerSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse trigger snapshot %s: %w", path, err)
	}
	return &snap, nil
}

func writeSnapshot(path string, snap *TriggerSnapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode trigger snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write trigger snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write trigger snapshot: %w", err)
	}
	return nil
}

func recordTriggerOp(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.TriggerOperationsTotal.WithLabelValues(operation, status).Inc()
}
