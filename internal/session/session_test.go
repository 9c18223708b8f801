package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelnexus/guard/internal/models"
)

func finding(id string, sev models.Severity) models.FindingEvent {
	return models.FindingEvent{Finding: models.Finding{
		ID:       id,
		Severity: sev,
		Title:    "test finding " + id,
	}}
}

// TestProgressMonotonicMax: [10,50,30,80] отображается как [10,50,50,80]
func TestProgressMonotonicMax(t *testing.T) {
	s := New()
	s.Start()

	var observed []int
	for _, pct := range []int{10, 50, 30, 80} {
		s.Apply(models.ProgressEvent{Pct: pct})
		observed = append(observed, s.Snapshot().Progress)
	}

	assert.Equal(t, []int{10, 50, 50, 80}, observed)
}

func TestFindingsAppendOnly(t *testing.T) {
	s := New()
	s.Start()

	// повторный id не дедуплицируется
	for i := 0; i < 4; i++ {
		s.Apply(finding("dup", models.SeverityHigh))
		assert.Len(t, s.Snapshot().Findings, i+1)
	}

	s.Start()
	assert.Empty(t, s.Snapshot().Findings, "start must reset findings")
	assert.Zero(t, s.Snapshot().Progress)
	assert.Empty(t, s.Snapshot().Logs)
}

func TestLogBounded(t *testing.T) {
	s := New()
	s.Start()

	msgs := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i, m := range msgs {
		s.Apply(models.ProgressEvent{Pct: i * 10, Message: m})
	}

	logs := s.Snapshot().Logs
	assert.Equal(t, []string{"d", "e", "f", "g", "h"}, logs)
}

func TestCompleteForcesProgress100(t *testing.T) {
	s := New()
	s.Start()
	s.Apply(models.ProgressEvent{Pct: 42})
	s.Apply(models.CompleteEvent{})

	snap := s.Snapshot()
	assert.Equal(t, StateComplete, snap.State)
	assert.Equal(t, 100, snap.Progress)
}

// TestTerminalImmutable: после complete/errored события не меняют состояние
// до следующего явного Start
func TestTerminalImmutable(t *testing.T) {
	s := New()
	s.Start()
	s.Apply(finding("1", models.SeverityLow))
	s.Apply(models.CompleteEvent{})

	s.Apply(finding("2", models.SeverityCritical))
	s.Apply(models.ProgressEvent{Pct: 5})
	s.Apply(models.ErrorEvent{Message: "late"})

	snap := s.Snapshot()
	assert.Equal(t, StateComplete, snap.State)
	assert.Len(t, snap.Findings, 1)
	assert.Equal(t, 100, snap.Progress)
	assert.Empty(t, snap.Err)

	s.Start()
	assert.Equal(t, StateScanning, s.Snapshot().State)
}

func TestErrorKeepsPartialFindings(t *testing.T) {
	s := New()
	s.Start()
	s.Apply(finding("1", models.SeverityHigh))
	s.Apply(finding("2", models.SeverityMedium))
	s.Apply(models.ErrorEvent{Message: "scanner crashed"})

	snap := s.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Len(t, snap.Findings, 2)
	assert.Equal(t, "scanner crashed", snap.Err)
}

// TestPostCloseSilence: после Close никакие события не видимы снаружи
func TestPostCloseSilence(t *testing.T) {
	s := New()
	s.Start()
	s.Apply(finding("1", models.SeverityHigh))
	before := s.Snapshot()

	s.Close()
	s.Apply(finding("2", models.SeverityCritical))
	s.Apply(models.ProgressEvent{Pct: 99})
	s.Apply(models.CompleteEvent{})
	s.Start()

	after := s.Snapshot()
	assert.Equal(t, before, after)
}

func TestBySeverity(t *testing.T) {
	s := New()
	s.Start()
	s.Apply(finding("1", models.SeverityCritical))
	s.Apply(finding("2", models.SeverityCritical))
	s.Apply(finding("3", models.SeverityLow))

	b := s.BySeverity()
	assert.Equal(t, 2, b.Critical)
	assert.Equal(t, 1, b.Low)
	assert.Equal(t, 3, b.Total())
}

func TestConsumeStopsAtTerminalEvent(t *testing.T) {
	s := New()
	s.Start()

	events := make(chan models.Event, 8)
	events <- models.ProgressEvent{Pct: 20, Message: "working"}
	events <- finding("1", models.SeverityHigh)
	events <- models.CompleteEvent{}
	// событие после complete не должно попасть в состояние
	events <- finding("2", models.SeverityCritical)
	close(events)

	snap := s.Consume(events)
	assert.Equal(t, StateComplete, snap.State)
	assert.Len(t, snap.Findings, 1)
}

func TestActivityEventsIgnored(t *testing.T) {
	s := New()
	s.Start()
	s.Apply(models.ActivityEvent{Message: "someone else's scan", Severity: models.SeverityHigh})

	assert.Empty(t, s.Snapshot().Findings)
}
