package scanner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCounters(t *testing.T) {
	s := newSession(ScanMode{})
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.Quiescent())

	s.beginStat()
	s.beginStat()
	assert.Equal(t, 2, s.StatInFlight())

	s.endStat()
	s.beginExtract()
	s.endStat()
	assert.False(t, s.Quiescent(), "extraction still in flight")
	assert.Equal(t, 1, s.ExtractInFlight())

	s.endExtract()
	assert.True(t, s.Quiescent())
}

func TestSessionUnderflowPanics(t *testing.T) {
	s := newSession(ScanMode{})
	assert.Panics(t, s.endStat)
	assert.Panics(t, s.endExtract)
}

func TestSessionFinalizesOnce(t *testing.T) {
	s := newSession(ScanMode{Full: true})

	assert.True(t, s.markFinalized())
	assert.False(t, s.markFinalized())
	assert.Equal(t, StateFinalized, s.State())
	assert.Equal(t, 1, s.Finalizations())
	assert.Equal(t, "finalized", s.State().String())
}
