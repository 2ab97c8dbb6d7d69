package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plex-faces/internal/database"
	"plex-faces/internal/testsupport"
)

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	printUsage(&out)
	assert.Contains(t, out.String(), "Usage: triggerctl <command>")
	assert.Contains(t, out.String(), "PLEX_FACES_DATABASE")
}

func TestSanitizeCommand(t *testing.T) {
	assert.Equal(t, "restore", sanitizeCommand("restore"))
	assert.Equal(t, "rm_-rf__", sanitizeCommand("rm -rf /"))
	assert.Equal(t, "__31m", sanitizeCommand("\x1b[31m"))
}

func openLibrary(t *testing.T, lib *testsupport.Library, opts *database.Options) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), lib.Path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// crash suspends the triggers and drops the handle without restoring them.
func crash(t *testing.T, lib *testsupport.Library) {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, lib.Path, nil)
	require.NoError(t, err)
	_, err = db.SuspendTriggers(ctx, "killed-session")
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestStatusHealthy(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	columns := lib.Columns("metadata_items")
	db := openLibrary(t, lib, &database.Options{ReadOnly: true})

	var out bytes.Buffer
	require.True(t, showStatus(context.Background(), &out, db))
	assert.Contains(t, out.String(), "Triggers: tags_audit_delete, tags_audit_insert")
	assert.Contains(t, out.String(), "Snapshot: none")
	assert.Equal(t, columns, lib.Columns("metadata_items"))
}

func TestStatusAfterCrash(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	crash(t, lib)
	db := openLibrary(t, lib, &database.Options{ReadOnly: true})

	var out bytes.Buffer
	require.True(t, showStatus(context.Background(), &out, db))
	assert.Contains(t, out.String(), "Triggers: none")
	assert.Contains(t, out.String(), "Session:   killed-session")
	assert.Contains(t, out.String(), "triggerctl restore")
}

func TestRestoreAfterCrash(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	crash(t, lib)
	db := openLibrary(t, lib, nil)

	var out bytes.Buffer
	require.True(t, restoreTriggers(context.Background(), &out, db))
	assert.Contains(t, out.String(), "Restored triggers from session killed-session")
	assert.Equal(t, []string{"tags_audit_delete", "tags_audit_insert"}, lib.TriggerNames())
	assert.NoFileExists(t, db.SnapshotPath())

	out.Reset()
	require.True(t, restoreTriggers(context.Background(), &out, db))
	assert.Contains(t, out.String(), "Nothing to restore")
}
