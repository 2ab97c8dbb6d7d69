package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plex-faces/internal/testsupport"
)

var fixtureTriggers = []string{"tags_audit_delete", "tags_audit_insert"}

func TestSuspendRestoreTriggers(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	mid := lib.AddPhoto("/photos/a.jpg")
	d := openStore(t, lib)
	ctx := context.Background()

	snap, err := d.SuspendTriggers(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, snap.Triggers, 2)
	assert.Equal(t, "session-1", snap.SessionID)
	assert.True(t, d.TriggersSuspended())
	assert.Empty(t, lib.TriggerNames())
	assert.FileExists(t, d.SnapshotPath())

	require.NoError(t, d.Reconcile(ctx, mid, []string{"Alice"}))
	assert.Zero(t, lib.AuditCount(), "triggers must not fire while suspended")

	require.NoError(t, d.RestoreTriggers(ctx))
	assert.False(t, d.TriggersSuspended())
	assert.Equal(t, fixtureTriggers, lib.TriggerNames())
	assert.NoFileExists(t, d.SnapshotPath())

	require.NoError(t, d.Reconcile(ctx, mid, []string{"Bob"}))
	assert.Equal(t, 1, lib.AuditCount())

	// Restoring again is a no-op
	require.NoError(t, d.RestoreTriggers(ctx))
}

func TestSuspendTwice(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	d := openStore(t, lib)
	ctx := context.Background()

	_, err := d.SuspendTriggers(ctx, "")
	require.NoError(t, err)

	_, err = d.SuspendTriggers(ctx, "")
	require.ErrorIs(t, err, ErrTriggersSuspended)

	require.NoError(t, d.RestoreTriggers(ctx))
}

func TestRestoreTriggersAfterCrash(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	ctx := context.Background()

	d, err := New(ctx, lib.Path, nil)
	require.NoError(t, err)
	_, err = d.SuspendTriggers(ctx, "crashed")
	require.NoError(t, err)

	// Simulate the process dying: the handle goes away without a restore
	require.NoError(t, d.Close())
	assert.Empty(t, lib.TriggerNames())

	d = openStore(t, lib)

	_, err = d.SuspendTriggers(ctx, "next")
	require.ErrorIs(t, err, ErrPendingTriggerSnapshot)
	assert.Contains(t, err.Error(), "run triggerctl restore")

	snap, err := LoadTriggerSnapshot(d.SnapshotPath())
	require.NoError(t, err)
	assert.Equal(t, "crashed", snap.SessionID)
	assert.Equal(t, lib.Path, snap.Database)

	restored, err := d.RestoreTriggersFromFile(ctx)
	require.NoError(t, err)
	assert.Len(t, restored.Triggers, 2)
	assert.Equal(t, fixtureTriggers, lib.TriggerNames())
	assert.NoFileExists(t, d.SnapshotPath())

	_, err = d.RestoreTriggersFromFile(ctx)
	require.ErrorIs(t, err, ErrNoTriggerSnapshot)
}

func TestRestoreSkipsExistingTriggers(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	d := openStore(t, lib)
	ctx := context.Background()

	_, err := d.SuspendTriggers(ctx, "")
	require.NoError(t, err)

	// Something else already put one trigger back
	_, err = lib.DB().Exec(`CREATE TRIGGER tags_audit_insert AFTER INSERT ON tags BEGIN
		INSERT INTO tag_audit (tag_id, action) VALUES (new.id, 'insert');
	END`)
	require.NoError(t, err)

	require.NoError(t, d.RestoreTriggers(ctx))
	assert.Equal(t, fixtureTriggers, lib.TriggerNames())
}

func TestAbortRestoresTriggers(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	ctx := context.Background()

	d, err := New(ctx, lib.Path, nil)
	require.NoError(t, err)
	_, err = d.SuspendTriggers(ctx, "")
	require.NoError(t, err)

	require.NoError(t, d.Abort(ctx))
	assert.Equal(t, fixtureTriggers, lib.TriggerNames())

	_, err = os.Stat(d.SnapshotPath())
	assert.True(t, os.IsNotExist(err))

	// Abort on a closed store only closes
	require.NoError(t, d.Abort(ctx))
}

func TestLoadTriggerSnapshotMissing(t *testing.T) {
	_, err := LoadTriggerSnapshot(t.TempDir() + "/none.yaml")
	require.ErrorIs(t, err, ErrNoTriggerSnapshot)
}
