package seedstats

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilStatsIsNoop(t *testing.T) {
	var s *Stats
	s.IncSkipped()
	s.Progress(0).ChunkDone()
	s.StartTimer("f", "build", 0)
	require.EqualValues(t, 0, s.Skipped())
	_, ok := s.GetLap("f", "build", 0)
	require.False(t, ok)
}

func TestProgressAndTimers(t *testing.T) {
	s := New()
	p := s.Progress(7)
	p.SetPhase("seeding")
	p.ChunkDone()
	p.ChunkDone()
	p.RecordGocc(4)
	p.RecordGocc(6)
	require.Equal(t, "seeding", p.Phase)
	require.EqualValues(t, 2, p.ChunksDone)
	require.InDelta(t, 5.0, p.GoccAverage(), 1e-9)

	s.StartTimer("finder1", "build", 7)
	s.EndTimer("finder1", "build", 7)
	lap, ok := s.GetLap("finder1", "build", 7)
	require.True(t, ok)
	require.False(t, lap.Running)

	s.IncSkipped()
	s.IncSkipped()
	require.EqualValues(t, 2, s.Skipped())

	var buf bytes.Buffer
	s.PrintSnapshot(&buf)
	require.Contains(t, buf.String(), "skipped=2")
	require.Contains(t, buf.String(), "seeding")
}
