package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
		ok       bool
	}{
		{name: "debug", input: "debug", expected: LevelDebug, ok: true},
		{name: "info", input: "info", expected: LevelInfo, ok: true},
		{name: "warn", input: "warn", expected: LevelWarn, ok: true},
		{name: "error", input: "error", expected: LevelError, ok: true},
		{name: "case insensitive", input: "DEBUG", expected: LevelDebug, ok: true},
		{name: "warning alias", input: "warning", expected: LevelWarn, ok: true},
		{name: "surrounding space", input: " error ", expected: LevelError, ok: true},
		{name: "unknown falls back to info", input: "verbose", expected: LevelInfo, ok: false},
		{name: "empty", input: "", expected: LevelInfo, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

// captureLogs swaps in an observer core for the duration of the test.
func captureLogs(t *testing.T, level LogLevel) *observer.ObservedLogs {
	t.Helper()

	previousLevel := GetLevel()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	SetLevel(level)

	t.Cleanup(func() {
		SetLevel(previousLevel)
		SetLogger(newDefaultLogger())
	})
	return logs
}

func TestLevelFiltering(t *testing.T) {
	logs := captureLogs(t, LevelWarn)

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at warn level, got %d", len(entries))
	}
	if entries[0].Message != "warn 3" {
		t.Errorf("unexpected first message %q", entries[0].Message)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("expected error level for second entry, got %v", entries[1].Level)
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		level LogLevel
	}{
		{name: "nothing set", env: nil, level: LevelInfo},
		{name: "debug flag", env: map[string]string{"DEBUG": "true"}, level: LevelDebug},
		{name: "debug flag numeric", env: map[string]string{"DEBUG": "1", "LOG_LEVEL": "error"}, level: LevelDebug},
		{name: "debug flag off", env: map[string]string{"DEBUG": "false", "LOG_LEVEL": "warn"}, level: LevelWarn},
		{name: "junk debug flag", env: map[string]string{"DEBUG": "sure", "LOG_LEVEL": "error"}, level: LevelError},
		{name: "unknown level", env: map[string]string{"LOG_LEVEL": "loud"}, level: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levelFromEnv(func(key string) string { return tt.env[key] })
			if got != tt.level {
				t.Errorf("levelFromEnv() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestSetLevelRoundTrip(t *testing.T) {
	captureLogs(t, LevelError)
	if GetLevel() != LevelError {
		t.Errorf("GetLevel() = %v after SetLevel(LevelError)", GetLevel())
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
