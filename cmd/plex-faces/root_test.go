package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOptions(t *testing.T, args ...string) (*options, *pflag.FlagSet) {
	t.Helper()
	opts := &options{}
	flags := pflag.NewFlagSet("plex-faces", pflag.ContinueOnError)
	bindOperationFlags(flags, opts)
	require.NoError(t, flags.Parse(args))
	return opts, flags
}

func TestResolveOperation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want operation
		full bool
	}{
		{name: "no flags", args: nil, want: opHelp},
		{name: "incremental scan", args: []string{"-s"}, want: opScan},
		{name: "full scan", args: []string{"-f"}, want: opScan, full: true},
		{name: "clean", args: []string{"-c"}, want: opClean},
		{name: "list all", args: []string{"-l"}, want: opList},
		{name: "list pattern", args: []string{"-l", "Ali"}, want: opList},
		{name: "delete", args: []string{"-d", "Bob"}, want: opDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, flags := parseOptions(t, tt.args...)
			op, mode, err := opts.resolve(flags, flags.Args())
			require.NoError(t, err)
			assert.Equal(t, tt.want, op)
			assert.Equal(t, tt.full, mode.Full)
		})
	}
}

func TestResolveSinceDate(t *testing.T) {
	opts, flags := parseOptions(t, "-s", "-t", "2024-02-29")
	op, mode, err := opts.resolve(flags, flags.Args())
	require.NoError(t, err)

	assert.Equal(t, opScan, op)
	assert.False(t, mode.Full)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local), mode.Since)
}

func TestResolveRejectsInvalidCombinations(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "scan and full", args: []string{"-s", "-f"}},
		{name: "two operations", args: []string{"-c", "-l"}},
		{name: "since without scan", args: []string{"-f", "-t", "2024-01-01"}},
		{name: "bad date", args: []string{"-s", "-t", "01/02/2024"}},
		{name: "argument without list", args: []string{"-c", "Ali"}},
		{name: "empty delete", args: []string{"-d", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, flags := parseOptions(t, tt.args...)
			_, _, err := opts.resolve(flags, flags.Args())
			assert.Error(t, err)
		})
	}
}
