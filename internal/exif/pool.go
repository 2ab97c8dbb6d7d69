package exif

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/barasher/go-exiftool"

	"plex-faces/internal/logging"
	"plex-faces/internal/metrics"
	"plex-faces/internal/workers"
)

// Upper bound on exiftool processes when sized from the CPU count
const maxProcesses = 16

// How long Close waits for engines still busy with a timed-out file
const defaultCloseGrace = 5 * time.Second

// engine is the part of *exiftool.Exiftool the pool uses.
type engine interface {
	ExtractMetadata(files ...string) []exiftool.FileMetadata
	Close() error
}

// Config controls the exiftool process pool.
type Config struct {
	// BinaryPath of exiftool. Empty means "exiftool" from PATH.
	BinaryPath string
	// Processes is the number of stay_open exiftool processes. Zero sizes
	// the pool from the CPU count.
	Processes int
	// Timeout bounds a single extraction. Zero disables it.
	Timeout time.Duration
}

// Pool is an Extractor backed by long-running exiftool processes. Each
// process handles one file at a time.
type Pool struct {
	idle       chan engine
	engines    []engine
	timeout    time.Duration
	closeGrace time.Duration

	closing   chan struct{}
	inflight  sync.WaitGroup
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// NewPool starts cfg.Processes exiftool processes.
func NewPool(cfg Config) (*Pool, error) {
	n := cfg.Processes
	if n <= 0 {
		n = workers.Extractors(maxProcesses)
	}

	opts := []func(*exiftool.Exiftool) error{
		exiftool.DateFormant(dateFormat),
		exiftool.CoordFormant(coordFormat),
	}
	if cfg.BinaryPath != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(cfg.BinaryPath))
	}

	engines := make([]engine, 0, n)
	for i := 0; i < n; i++ {
		et, err := exiftool.NewExiftool(opts...)
		if err != nil {
			for _, started := range engines {
				if closeErr := started.Close(); closeErr != nil {
					logging.Warn("failed to stop exiftool: %v", closeErr)
				}
			}
			return nil, fmt.Errorf("failed to start exiftool: %w", err)
		}
		engines = append(engines, et)
	}

	logging.Info("Started %d exiftool processes", n)
	return newPool(engines, cfg.Timeout), nil
}

func newPool(engines []engine, timeout time.Duration) *Pool {
	p := &Pool{
		idle:       make(chan engine, len(engines)),
		engines:    engines,
		timeout:    timeout,
		closeGrace: defaultCloseGrace,
		closing:    make(chan struct{}),
	}
	for _, e := range engines {
		p.idle <- e
	}
	metrics.ExtractorProcesses.Set(float64(len(engines)))
	return p
}

// Size returns the number of exiftool processes.
func (p *Pool) Size() int {
	return len(p.engines)
}

// Extract reads the face metadata of path. Extraction errors, timeouts and
// panics inside exiftool handling are returned as errors.
func (p *Pool) Extract(ctx context.Context, path string) (*FaceSet, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrExtractorClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	start := time.Now()
	set, err := p.extract(ctx, path)

	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ExtractionsTotal.WithLabelValues("success").Inc()
	metrics.FaceSourcesTotal.WithLabelValues(string(set.Source)).Inc()
	return set, nil
}

func (p *Pool) extract(ctx context.Context, path string) (*FaceSet, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var e engine
	select {
	case e = <-p.idle:
	case <-p.closing:
		return nil, ErrExtractorClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for exiftool: %w", ctx.Err())
	}

	type result struct {
		set *FaceSet
		err error
	}
	done := make(chan result, 1)

	// exiftool cannot be interrupted mid-file; on timeout the engine goes
	// back to the pool once it answers.
	go func() {
		defer func() { p.idle <- e }()
		set, err := runEngine(e, path)
		done <- result{set: set, err: err}
	}()

	select {
	case r := <-done:
		return r.set, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("extracting %s: %w", path, ctx.Err())
	}
}

func runEngine(e engine, path string) (set *FaceSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			set = nil
			err = fmt.Errorf("exiftool panicked on %s: %v", path, r)
		}
	}()

	results := e.ExtractMetadata(path)
	if len(results) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata for %s", path)
	}

	md := results[0]
	if md.Err != nil {
		return nil, fmt.Errorf("exiftool failed on %s: %w", path, md.Err)
	}
	return faceSetFromFields(path, md.Fields), nil
}

// Close waits for running extractions and stops every exiftool process.
// Engines still stuck on a timed-out file get closeGrace to come back;
// after that Close returns and they are stopped whenever they do.
// Only the first call has any effect.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.closing)
		p.mu.Unlock()

		p.inflight.Wait()

		grace := time.NewTimer(p.closeGrace)
		defer grace.Stop()

		var errs []error
		stopped := 0
	drain:
		for stopped < len(p.engines) {
			select {
			case e := <-p.idle:
				if err := e.Close(); err != nil {
					errs = append(errs, err)
				}
				stopped++
			case <-grace.C:
				stuck := len(p.engines) - stopped
				logging.Warn("%d exiftool processes still busy after %v, not waiting for them", stuck, p.closeGrace)
				go p.stopLate(stuck)
				break drain
			}
		}
		metrics.ExtractorProcesses.Set(0)
		p.closeErr = errors.Join(errs...)
		logging.Debug("Stopped %d exiftool processes", stopped)
	})
	return p.closeErr
}

// stopLate closes the next n engines returned to the pool.
func (p *Pool) stopLate(n int) {
	for i := 0; i < n; i++ {
		e := <-p.idle
		if err := e.Close(); err != nil {
			logging.Warn("failed to stop exiftool: %v", err)
		}
	}
}
