package scanner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"plex-faces/internal/metrics"
)

// State of a scan session.
type State int

const (
	StateIdle State = iota
	StateEnumerated
	StateDraining
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnumerated:
		return "enumerated"
	case StateDraining:
		return "draining"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session tracks one scan: its state and the stat checks and extractions
// still in flight. It is owned by the coordinator's event loop and is not
// safe for concurrent use.
type Session struct {
	ID        string
	Mode      ScanMode
	StartedAt time.Time

	state         State
	statInFlight  int
	extractFlight int
	finalizations int
}

func newSession(mode ScanMode) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now(),
		state:     StateIdle,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// StatInFlight returns the number of stat checks not yet completed.
func (s *Session) StatInFlight() int {
	return s.statInFlight
}

// ExtractInFlight returns the number of extractions not yet completed.
func (s *Session) ExtractInFlight() int {
	return s.extractFlight
}

// Quiescent reports whether no stat check or extraction is in flight.
func (s *Session) Quiescent() bool {
	return s.statInFlight == 0 && s.extractFlight == 0
}

// Finalizations returns how many times the session was finalized.
func (s *Session) Finalizations() int {
	return s.finalizations
}

func (s *Session) setState(state State) {
	s.state = state
}

func (s *Session) beginStat() {
	s.statInFlight++
	metrics.ScanInFlight.WithLabelValues("stat").Set(float64(s.statInFlight))
}

func (s *Session) endStat() {
	if s.statInFlight == 0 {
		panic("scanner: stat completion without a dispatched stat")
	}
	s.statInFlight--
	metrics.ScanInFlight.WithLabelValues("stat").Set(float64(s.statInFlight))
}

func (s *Session) beginExtract() {
	s.extractFlight++
	metrics.ScanInFlight.WithLabelValues("extract").Set(float64(s.extractFlight))
}

func (s *Session) endExtract() {
	if s.extractFlight == 0 {
		panic("scanner: extraction completion without a dispatched extraction")
	}
	s.extractFlight--
	metrics.ScanInFlight.WithLabelValues("extract").Set(float64(s.extractFlight))
}

// markFinalized moves the session to StateFinalized. It returns false when
// the session was already finalized.
func (s *Session) markFinalized() bool {
	if s.state == StateFinalized {
		return false
	}
	s.state = StateFinalized
	s.finalizations++
	return true
}
