package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"plex-faces/internal/database"
	"plex-faces/internal/scanner"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderReport formats the per-outcome totals of a finished scan.
func renderReport(r *scanner.Report) string {
	count := func(n int) string { return strconv.Itoa(n) }
	rows := [][]string{
		{"Photos", count(r.Records)},
		{"Updated with faces", count(r.Refreshed)},
		{"Updated without faces", count(r.Empty)},
		{"Up to date", count(r.UpToDate)},
		{"Missing files", count(r.Missing)},
		{"Extraction failures", count(r.Failed)},
		{"With GPS position", count(r.WithPosition)},
		{"Lone tags removed", strconv.FormatInt(r.LoneTagsRemoved, 10)},
	}
	return renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}

// tagNames returns the distinct tag names in tags, sorted.
func tagNames(tags []database.Tag) []string {
	seen := make(map[string]struct{}, len(tags))
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag.Name]; ok {
			continue
		}
		seen[tag.Name] = struct{}{}
		names = append(names, tag.Name)
	}
	sort.Strings(names)
	return names
}

// formatTagList renders the list output: the sorted distinct names joined
// by commas, then the number of (record, tag) entries.
func formatTagList(tags []database.Tag) string {
	var b strings.Builder
	b.WriteString(strings.Join(tagNames(tags), ", "))
	b.WriteString("\n")
	b.WriteString(strconv.Itoa(len(tags)))
	b.WriteString(" entries")
	return b.String()
}
