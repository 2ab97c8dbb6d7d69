package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"plex-faces/internal/database"
	"plex-faces/internal/scanner"
)

func TestFormatTagList(t *testing.T) {
	tags := []database.Tag{
		{ID: 2, MID: 10, Name: "Bob"},
		{ID: 1, MID: 10, Name: "Alice"},
		{ID: 1, MID: 11, Name: "Alice"},
		{ID: 3, MID: 0, Name: "Carol"},
	}

	assert.Equal(t, "Alice, Bob, Carol\n4 entries", formatTagList(tags))
	assert.Equal(t, "\n0 entries", formatTagList(nil))
}

func TestRenderReport(t *testing.T) {
	out := renderReport(&scanner.Report{
		Records:         12,
		Refreshed:       3,
		Empty:           2,
		UpToDate:        5,
		Missing:         1,
		Failed:          1,
		LoneTagsRemoved: 4,
	})

	assert.Contains(t, out, "Updated with faces")
	assert.Contains(t, out, "Lone tags removed")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "╭")
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	assert.Empty(t, renderTable(nil, [][]string{{"x"}}, nil))
}
