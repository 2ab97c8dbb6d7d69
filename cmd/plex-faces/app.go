package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"plex-faces/internal/database"
	"plex-faces/internal/exif"
	"plex-faces/internal/logging"
	"plex-faces/internal/metrics"
	"plex-faces/internal/scanner"
	"plex-faces/internal/startup"
)

// app carries the terminal the commands talk to.
type app struct {
	in          io.Reader
	out         io.Writer
	interactive func() bool
	// watch installs the interrupt handler for an open store and returns
	// the function that removes it.
	watch func(store *database.Database) func()
}

func newApp() *app {
	return &app{
		in:  os.Stdin,
		out: os.Stdout,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		watch: watchSignals,
	}
}

// confirmMutation asks before the library database is modified.
func (a *app) confirmMutation(cfg *startup.Config, yes bool) error {
	if yes {
		return nil
	}
	if !a.interactive() {
		return errNoTerminal
	}

	question := fmt.Sprintf("This modifies %s. Stop Plex Media Server and back up the database first.", cfg.DatabasePath)
	ok, err := confirm(a.in, a.out, question)
	if err != nil {
		return err
	}
	if !ok {
		return errNotConfirmed
	}
	return nil
}

func openStore(ctx context.Context, cfg *startup.Config, readOnly bool) (*database.Database, error) {
	start := time.Now()
	store, err := database.New(ctx, cfg.DatabasePath, &database.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, err
	}
	startup.LogDatabaseOpened(cfg.DatabasePath, time.Since(start))
	return store, nil
}

// collectingStore refreshes the library gauges before the scan closes the
// store.
type collectingStore struct {
	*database.Database
	collector *metrics.Collector
}

func (s *collectingStore) Close() error {
	s.collector.Collect()
	return s.Database.Close()
}

func (a *app) runScan(ctx context.Context, cfg *startup.Config, mode scanner.ScanMode, yes bool) error {
	if err := a.confirmMutation(cfg, yes); err != nil {
		return err
	}
	if err := startup.CheckExiftool(ctx, cfg.ExiftoolPath); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return errors.Join(fmt.Errorf("failed to migrate library schema: %w", err), store.Close())
	}

	pool, err := exif.NewPool(exif.Config{
		BinaryPath: cfg.ExiftoolPath,
		Processes:  cfg.Workers,
		Timeout:    cfg.ExtractTimeout,
	})
	if err != nil {
		return errors.Join(err, store.Close())
	}

	stop := a.watch(store)
	defer stop()

	target := &collectingStore{Database: store, collector: metrics.NewCollector(store)}
	report, err := scanner.New(target, pool, scanner.Options{Workers: cfg.Workers}).Run(ctx, mode)
	if report != nil {
		fmt.Fprintln(a.out, renderReport(report))
		fmt.Fprintf(a.out, "%d photos updated\n", report.Updates())
	}

	return errors.Join(err, exportMetrics(cfg, nil))
}

func (a *app) runClean(ctx context.Context, cfg *startup.Config, yes bool) error {
	if err := a.confirmMutation(cfg, yes); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	stop := a.watch(store)
	defer stop()

	var removed int64
	err = withSuspendedTriggers(ctx, store, func(ctx context.Context) error {
		n, err := store.CleanLoneTags(ctx)
		removed = n
		return err
	})
	if err == nil {
		fmt.Fprintf(a.out, "%d lone tags removed\n", removed)
	}

	return errors.Join(err, exportMetrics(cfg, store), store.Close())
}

func (a *app) runList(ctx context.Context, cfg *startup.Config, pattern string) error {
	store, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}

	tags, err := store.ListTags(ctx, cfg.TagFilter(pattern))
	if err == nil {
		fmt.Fprintln(a.out, formatTagList(tags))
	}

	return errors.Join(err, exportMetrics(cfg, store), store.Close())
}

func (a *app) runDelete(ctx context.Context, cfg *startup.Config, pattern string, yes bool) error {
	store, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}

	filter := cfg.TagFilter(pattern)
	tags, err := store.ListTags(ctx, filter)
	if err != nil {
		return errors.Join(err, store.Close())
	}
	if len(tags) == 0 {
		fmt.Fprintf(a.out, "No face tags match %q\n", pattern)
		return store.Close()
	}

	fmt.Fprintln(a.out, "About to delete:")
	fmt.Fprintln(a.out, formatTagList(tags))
	if err := a.confirmMutation(cfg, yes); err != nil {
		return errors.Join(err, store.Close())
	}

	stop := a.watch(store)
	defer stop()

	var deleted, removed int64
	err = withSuspendedTriggers(ctx, store, func(ctx context.Context) error {
		n, err := store.DeleteTags(ctx, filter)
		if err != nil {
			return err
		}
		deleted = n

		removed, err = store.CleanLoneTags(ctx)
		return err
	})
	if err == nil {
		fmt.Fprintf(a.out, "%d entries deleted, %d lone tags removed\n", deleted, removed)
	}

	return errors.Join(err, exportMetrics(cfg, store), store.Close())
}

// withSuspendedTriggers runs fn with the tags triggers dropped and restores
// them afterwards whether or not fn failed.
func withSuspendedTriggers(ctx context.Context, store *database.Database, fn func(ctx context.Context) error) error {
	if _, err := store.SuspendTriggers(ctx, uuid.NewString()); err != nil {
		return fmt.Errorf("failed to suspend triggers: %w", err)
	}

	err := fn(ctx)

	if restoreErr := store.RestoreTriggers(ctx); restoreErr != nil {
		logging.Error("TRIGGERS NOT RESTORED, run triggerctl restore: %v", restoreErr)
		err = errors.Join(err, fmt.Errorf("trigger restore: %w", restoreErr))
	}
	return err
}

// exportMetrics writes the metrics file when one is configured. A nil
// provider exports the gauges as last collected.
func exportMetrics(cfg *startup.Config, provider metrics.StatsProvider) error {
	return metrics.NewCollector(provider).Export(cfg.MetricsFile)
}
