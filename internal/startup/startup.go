package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"plex-faces/internal/database"
	"plex-faces/internal/filesystem"
	"plex-faces/internal/logging"
	"plex-faces/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Configuration keys
const (
	KeyDatabase       = "database"
	KeyExiftool       = "exiftool"
	KeyWorkers        = "workers"
	KeyExtractTimeout = "extract_timeout"
	KeyMetricsFile    = "metrics_file"
	KeyLogLevel       = "log_level"
	KeyMatch          = "match"
	KeyCaseSensitive  = "case_sensitive"
	KeyVolumes        = "volumes"
)

// Config holds all application configuration
type Config struct {
	DatabasePath   string
	ExiftoolPath   string
	Workers        int
	ExtractTimeout time.Duration
	MetricsFile    string
	LogLevel       logging.LogLevel
	MatchMode      database.MatchMode
	CaseSensitive  bool
	// Volumes names photo mount points for metric labels (config file only)
	Volumes map[string]string
}

// envBinding ties a configuration key to its environment variable
type envBinding struct {
	key    string
	envVar string
}

func envBindings() []envBinding {
	return []envBinding{
		{KeyDatabase, "PLEX_FACES_DATABASE"},
		{KeyExiftool, "PLEX_FACES_EXIFTOOL"},
		{KeyWorkers, workers.OverrideEnv},
		{KeyExtractTimeout, "PLEX_FACES_EXTRACT_TIMEOUT"},
		{KeyMetricsFile, "PLEX_FACES_METRICS_FILE"},
		{KeyLogLevel, "LOG_LEVEL"},
		{KeyMatch, "PLEX_FACES_MATCH"},
		{KeyCaseSensitive, "PLEX_FACES_CASE_SENSITIVE"},
	}
}

// NewViper returns a viper instance with defaults, environment bindings and
// the optional plex-faces.yaml config file search paths.
func NewViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(KeyDatabase, database.DefaultLibraryPath())
	v.SetDefault(KeyExiftool, "exiftool")
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyExtractTimeout, "30s")
	v.SetDefault(KeyMetricsFile, "")
	v.SetDefault(KeyMatch, string(database.MatchContains))
	v.SetDefault(KeyCaseSensitive, false)

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	for _, b := range envBindings() {
		if err := v.BindEnv(b.key, b.envVar); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", b.envVar, err)
		}
	}

	v.SetConfigName("plex-faces")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "plex-faces"))
	}

	return v, nil
}

// ReadConfigFile loads the config file if one exists. A missing file is not
// an error.
func ReadConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		logging.Debug("Using config file %s", v.ConfigFileUsed())
	}
	return nil
}

// LoadConfig resolves the configuration from v. Invalid optional values fall
// back to their defaults with a warning; an unusable database path is an
// error.
func LoadConfig(v *viper.Viper) (*Config, error) {
	logSystemInfo()

	// Without an explicit level the one logging derived from DEBUG/LOG_LEVEL stays
	level := logging.GetLevel()
	if name := v.GetString(KeyLogLevel); name != "" {
		parsed, ok := logging.ParseLevel(name)
		if ok {
			level = parsed
		} else {
			logging.Warn("Invalid log level %q, keeping %s", name, level)
		}
	}
	logging.SetLevel(level)

	timeoutStr := v.GetString(KeyExtractTimeout)
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout < 0 {
		logging.Warn("Invalid extract timeout %q, using default: 30s", timeoutStr)
		timeout = 30 * time.Second
	}

	workerCount := getInt(v, KeyWorkers, 0)
	if workerCount < 0 {
		logging.Warn("Invalid worker count %d, sizing from CPU count", workerCount)
		workerCount = 0
	}

	mode, ok := database.ParseMatchMode(v.GetString(KeyMatch))
	if !ok {
		logging.Warn("Invalid match mode %q, using %s", v.GetString(KeyMatch), database.MatchContains)
	}

	dbPath := v.GetString(KeyDatabase)
	if dbPath == "" {
		return nil, errors.New("library database path is empty")
	}
	dbPath, err = filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	config := &Config{
		DatabasePath:   dbPath,
		ExiftoolPath:   v.GetString(KeyExiftool),
		Workers:        workerCount,
		ExtractTimeout: timeout,
		MetricsFile:    v.GetString(KeyMetricsFile),
		LogLevel:       level,
		MatchMode:      mode,
		CaseSensitive:  v.GetBool(KeyCaseSensitive),
		Volumes:        v.GetStringMapString(KeyVolumes),
	}

	logging.Debug("------------------------------------------------------------")
	logging.Debug("CONFIGURATION")
	logging.Debug("------------------------------------------------------------")
	logging.Debug("  DATABASE:         %s", config.DatabasePath)
	logging.Debug("  EXIFTOOL:         %s", config.ExiftoolPath)
	logging.Debug("  WORKERS:          %s", workersString(config.Workers))
	logging.Debug("  EXTRACT_TIMEOUT:  %v", config.ExtractTimeout)
	logging.Debug("  METRICS_FILE:     %s", valueOrDisabled(config.MetricsFile))
	logging.Debug("  MATCH:            %s (case sensitive: %v)", config.MatchMode, config.CaseSensitive)
	logging.Debug("  LOG_LEVEL:        %s", config.LogLevel)
	for name, path := range config.Volumes {
		logging.Debug("  VOLUME %-10s %s", name+":", path)
	}

	if _, err := os.Stat(config.DatabasePath); err != nil {
		return nil, fmt.Errorf("library database not accessible: %w", err)
	}

	return config, nil
}

// TagFilter builds the tag filter for pattern from the configured match
// settings.
func (c *Config) TagFilter(pattern string) database.TagFilter {
	return database.TagFilter{
		Pattern:       pattern,
		Mode:          c.MatchMode,
		CaseSensitive: c.CaseSensitive,
	}
}

// VolumeResolver labels filesystem metrics with the configured photo volumes
// and the directory holding the library database.
func (c *Config) VolumeResolver() *filesystem.VolumeResolver {
	volumes := make(map[string]string, len(c.Volumes)+1)
	for name, path := range c.Volumes {
		volumes[name] = path
	}
	volumes["database"] = filepath.Dir(c.DatabasePath)
	return filesystem.NewVolumeResolver(volumes)
}

// CheckExiftool verifies the exiftool binary runs and logs its version.
func CheckExiftool(ctx context.Context, path string) error {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("exiftool not found: %w", err)
	}
	logging.Debug("  Exiftool path: %s", resolved)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, resolved, "-ver").Output()
	if err != nil {
		return fmt.Errorf("failed to get exiftool version: %w", err)
	}
	logging.Info("Exiftool version: %s", strings.TrimSpace(string(output)))
	return nil
}

// LogDatabaseOpened logs the time it took to open and migrate the library.
func LogDatabaseOpened(path string, duration time.Duration) {
	logging.Info("Library database opened in %v: %s", duration.Round(time.Millisecond), path)
}

// LogShutdownInitiated logs a signal-driven shutdown.
func LogShutdownInitiated(signal string) {
	logging.Warn("Received %s, restoring triggers and shutting down", signal)
}

func logSystemInfo() {
	logging.Debug("plex-faces %s (commit %s, built %s)", Version, Commit, BuildTime)
	logging.Debug("  Go version:      %s", runtime.Version())
	logging.Debug("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Debug("  CPUs available:  %d", runtime.NumCPU())
	logging.Debug("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
}

// getInt reads an integer key, tolerating junk in the environment
func getInt(v *viper.Viper, key string, defaultValue int) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func workersString(n int) string {
	if n == 0 {
		return fmt.Sprintf("auto (%d)", workers.Extractors(workers.MaxExtractors))
	}
	return strconv.Itoa(n)
}

func valueOrDisabled(s string) string {
	if s == "" {
		return "disabled"
	}
	return s
}
