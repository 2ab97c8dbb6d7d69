package filesystem

import (
	"sync/atomic"
	"time"
)

// StatOutcome classifies the final result of a photo stat.
type StatOutcome string

const (
	OutcomeFound   StatOutcome = "found"
	OutcomeMissing StatOutcome = "missing"
	OutcomeStale   StatOutcome = "stale" // still ESTALE after every retry
	OutcomeError   StatOutcome = "error"
)

// StatEvent describes one StatWithRetry call.
type StatEvent struct {
	Volume      string
	Outcome     StatOutcome
	Attempts    int
	StaleErrors int
	Duration    time.Duration
}

// Retried reports whether the stat needed more than one attempt.
func (e StatEvent) Retried() bool {
	return e.Attempts > 1
}

// Observer receives a StatEvent for every stat. The metrics package provides
// the Prometheus implementation.
type Observer interface {
	ObserveStat(StatEvent)
}

type observerHolder struct{ Observer }

var observer atomic.Pointer[observerHolder]

// SetObserver installs the package-level observer. nil disables recording.
func SetObserver(o Observer) {
	if o == nil {
		observer.Store(nil)
		return
	}
	observer.Store(&observerHolder{o})
}

func publish(ev StatEvent) {
	if h := observer.Load(); h != nil {
		h.ObserveStat(ev)
	}
}
