package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"plex-faces/internal/database"
	"plex-faces/internal/exif"
	"plex-faces/internal/filesystem"
	"plex-faces/internal/logging"
	"plex-faces/internal/metrics"
	"plex-faces/internal/workers"
)

// Upper bounds when sized from the CPU count
const (
	maxExtractWorkers = 16
	maxStatWorkers    = 64
)

var (
	// ErrScanInProgress is returned by Run while another Run is active.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrCoordinatorDone is returned by Run once a scan has finalized and
	// released the store and extractor.
	ErrCoordinatorDone = errors.New("coordinator already ran a scan")
)

// Store is the part of the tag store a scan uses.
type Store interface {
	ListPhotos(ctx context.Context) ([]database.PhotoRecord, error)
	Reconcile(ctx context.Context, mid int64, faces []string) error
	CleanLoneTags(ctx context.Context) (int64, error)
	SuspendTriggers(ctx context.Context, sessionID string) (*database.TriggerSnapshot, error)
	RestoreTriggers(ctx context.Context) error
	Close() error
}

// StatFunc returns file information for a photo path.
type StatFunc func(path string) (os.FileInfo, error)

// Options tunes a Coordinator.
type Options struct {
	// Workers caps concurrent extractions. Zero sizes it from the CPU count.
	Workers int
	// Stat overrides the file stat used by staleness checks.
	Stat StatFunc
}

// Report summarizes a finished scan.
type Report struct {
	SessionID       string
	Mode            ScanMode
	StartedAt       time.Time
	Duration        time.Duration
	Records         int
	Refreshed       int // faces found and tags replaced
	Empty           int // no face found, timestamp refreshed
	UpToDate        int
	Missing         int // stat failed
	Failed          int // extraction failed
	WithPosition    int
	LoneTagsRemoved int64
}

// Updates returns the number of records successfully updated.
func (r *Report) Updates() int {
	return r.Refreshed + r.Empty
}

// Coordinator runs one scan: it snapshots photo records, stats each file,
// extracts faces from the stale ones and applies them to the store. It owns
// the store and extractor and releases both when the scan finalizes.
type Coordinator struct {
	store     Store
	extractor exif.Extractor
	stat      StatFunc
	gate      *semaphore.Weighted
	statGate  *semaphore.Weighted
	workers   int

	running atomic.Bool
	done    atomic.Bool
}

// New creates a Coordinator.
func New(store Store, extractor exif.Extractor, opts Options) *Coordinator {
	n := opts.Workers
	if n <= 0 {
		n = workers.Extractors(maxExtractWorkers)
	}
	stat := opts.Stat
	if stat == nil {
		stat = filesystem.Stat
	}

	return &Coordinator{
		store:     store,
		extractor: extractor,
		stat:      stat,
		gate:      semaphore.NewWeighted(int64(n)),
		statGate:  semaphore.NewWeighted(int64(workers.StatChecks(maxStatWorkers))),
		workers:   n,
	}
}

type eventKind int

const (
	statDone eventKind = iota
	extractDone
)

// event is posted exactly once by every dispatched goroutine.
type event struct {
	kind eventKind
	rec  database.PhotoRecord
	info os.FileInfo
	set  *exif.FaceSet
	err  error
}

// scanRun is the loop-owned state of one Run.
type scanRun struct {
	session   *Session
	report    *Report
	events    chan event
	suspended bool
	fatal     error
}

// Run performs the scan and finalizes it exactly once. A store failure
// aborts the scan; in-flight work is drained and the finalize sequence
// still runs.
func (c *Coordinator) Run(ctx context.Context, mode ScanMode) (*Report, error) {
	if c.done.Load() {
		return nil, ErrCoordinatorDone
	}
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer c.running.Store(false)

	session := newSession(mode)
	run := &scanRun{
		session: session,
		report: &Report{
			SessionID: session.ID,
			Mode:      mode,
			StartedAt: session.StartedAt,
		},
	}

	metrics.ScanRunsTotal.WithLabelValues(mode.String()).Inc()
	logging.Info("Starting %s scan (session %s, %d extraction workers)", mode, session.ID, c.workers)

	records, err := c.store.ListPhotos(ctx)
	if err != nil {
		return c.finalize(ctx, run, fmt.Errorf("failed to list photos: %w", err))
	}
	run.report.Records = len(records)
	session.setState(StateEnumerated)
	logging.Info("Total photos: %d", len(records))

	if len(records) == 0 {
		return c.finalize(ctx, run, nil)
	}

	if _, err := c.store.SuspendTriggers(ctx, session.ID); err != nil {
		return c.finalize(ctx, run, fmt.Errorf("failed to suspend triggers: %w", err))
	}
	run.suspended = true

	// At most two events per record, so sends never block
	run.events = make(chan event, 2*len(records))

	for _, rec := range records {
		session.beginStat()
		go c.statRecord(rec, run.events)
	}
	session.setState(StateDraining)

	for ev := range run.events {
		switch ev.kind {
		case statDone:
			session.endStat()
			c.handleStat(ctx, run, ev)
		case extractDone:
			session.endExtract()
			c.handleExtract(ctx, run, ev)
		}

		if session.Quiescent() {
			break
		}
	}

	return c.finalize(ctx, run, run.fatal)
}

func (c *Coordinator) statRecord(rec database.PhotoRecord, events chan<- event) {
	ev := event{kind: statDone, rec: rec}
	defer func() {
		if r := recover(); r != nil {
			ev.info = nil
			ev.err = fmt.Errorf("stat panicked: %v", r)
		}
		events <- ev
	}()

	// Stats are never cancelled
	if err := c.statGate.Acquire(context.Background(), 1); err != nil {
		ev.err = err
		return
	}
	defer c.statGate.Release(1)

	ev.info, ev.err = c.stat(rec.File)
}

func (c *Coordinator) extractRecord(ctx context.Context, rec database.PhotoRecord, events chan<- event) {
	ev := event{kind: extractDone, rec: rec}
	defer func() {
		if r := recover(); r != nil {
			ev.set = nil
			ev.err = fmt.Errorf("extractor panicked: %v", r)
		}
		events <- ev
	}()

	if err := c.gate.Acquire(ctx, 1); err != nil {
		ev.err = err
		return
	}
	defer c.gate.Release(1)

	ev.set, ev.err = c.extractor.Extract(ctx, rec.File)
}

func (c *Coordinator) handleStat(ctx context.Context, run *scanRun, ev event) {
	if ev.err != nil {
		logging.Debug("Skipping %s: %v", ev.rec.File, ev.err)
		run.report.Missing++
		metrics.ScanRecordsTotal.WithLabelValues("missing").Inc()
		return
	}

	// No new work once the scan is aborting
	if run.fatal != nil {
		return
	}

	if !ShouldRefresh(ev.rec, ev.info.ModTime(), run.session.Mode) {
		run.report.UpToDate++
		metrics.ScanRecordsTotal.WithLabelValues("up_to_date").Inc()
		return
	}

	run.session.beginExtract()
	go c.extractRecord(ctx, ev.rec, run.events)
}

func (c *Coordinator) handleExtract(ctx context.Context, run *scanRun, ev event) {
	if ev.err != nil {
		logging.Error("Failed to extract metadata from %s: %v", ev.rec.File, ev.err)
		run.report.Failed++
		metrics.ScanRecordsTotal.WithLabelValues("failed").Inc()
		return
	}
	if run.fatal != nil {
		return
	}

	set := ev.set
	if set.Position != nil {
		run.report.WithPosition++
		logging.Debug("%s: position %.6f,%.6f", ev.rec.File, set.Position.Lat, set.Position.Lng)
	}

	if err := c.store.Reconcile(ctx, ev.rec.MID, set.Faces); err != nil {
		logging.Error("Failed to update tags of %s, aborting scan: %v", ev.rec.File, err)
		run.fatal = fmt.Errorf("failed to update %s: %w", ev.rec.File, err)
		return
	}

	if set.Empty() {
		run.report.Empty++
		metrics.ScanRecordsTotal.WithLabelValues("empty").Inc()
		logging.Info("%s: no face found", ev.rec.File)
		return
	}

	run.report.Refreshed++
	metrics.ScanRecordsTotal.WithLabelValues("refreshed").Inc()
	logging.Info("%s: %v", ev.rec.File, set.Faces)
}

// finalize runs lone-tag cleanup and trigger restore when triggers were
// suspended, then releases the extractor and the store. It runs once per
// scan; every error along the way is joined to runErr.
func (c *Coordinator) finalize(ctx context.Context, run *scanRun, runErr error) (*Report, error) {
	if !run.session.markFinalized() {
		return run.report, runErr
	}
	c.done.Store(true)

	errs := []error{runErr}

	if run.suspended {
		removed, err := c.store.CleanLoneTags(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("lone tag cleanup: %w", err))
		}
		run.report.LoneTagsRemoved = removed

		if err := c.store.RestoreTriggers(ctx); err != nil {
			logging.Error("TRIGGERS NOT RESTORED, run triggerctl restore: %v", err)
			errs = append(errs, fmt.Errorf("trigger restore: %w", err))
		}
	}

	if err := c.extractor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing extractor: %w", err))
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	report := run.report
	report.Duration = time.Since(report.StartedAt)

	metrics.ScanLastRunDuration.Set(report.Duration.Seconds())
	metrics.ScanLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.ScanLastRunUpdates.Set(float64(report.Updates()))

	logging.Info("Scan %s finished in %v: %d updates (%d with faces, %d without), %d up to date, %d missing, %d failed",
		report.SessionID, report.Duration.Round(time.Millisecond), report.Updates(),
		report.Refreshed, report.Empty, report.UpToDate, report.Missing, report.Failed)

	return report, errors.Join(errs...)
}
