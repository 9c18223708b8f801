// Package session aggregates inbound scan events into a snapshot the UI can
// render: progress, findings in arrival order and a short rolling log. A
// session does no scoring of its own — the backend owns the risk score.
package session

import (
	"sync"

	"github.com/sentinelnexus/guard/internal/models"
)

// ScanState lifecycle of one scan attempt.
type ScanState string

const (
	StateIdle     ScanState = "idle"
	StateScanning ScanState = "scanning"
	StateComplete ScanState = "complete"
	StateErrored  ScanState = "errored"
)

// maxLogLines bounds the rolling progress log; oldest lines are evicted.
const maxLogLines = 5

// Session is owned by the scope that started the scan; only that scope's
// event loop mutates it. All methods are safe for concurrent snapshots.
type Session struct {
	mu       sync.Mutex
	state    ScanState
	progress int
	findings []models.Finding
	logs     []string
	errMsg   string
	closed   bool
}

func New() *Session {
	return &Session{state: StateIdle}
}

// Start resets the session for a new scan: findings, logs and progress are
// cleared. Valid from any state, including after complete/errored.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state = StateScanning
	s.progress = 0
	s.findings = nil
	s.logs = nil
	s.errMsg = ""
}

// Apply feeds one decoded protocol event into the state machine. Events after
// Close, and mutating events after a terminal state, are discarded.
func (s *Session) Apply(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch e := ev.(type) {
	case models.ProgressEvent:
		if s.state != StateScanning {
			return
		}
		// monotonic-max clamp: late lower values never regress the bar
		if e.Pct > s.progress {
			s.progress = e.Pct
		}
		if e.Message != "" {
			s.appendLog(e.Message)
		}

	case models.FindingEvent:
		if s.state != StateScanning {
			return
		}
		// append-only, arrival order, no dedup даже при повторном id
		s.findings = append(s.findings, e.Finding)

	case models.CompleteEvent:
		if s.state != StateScanning {
			return
		}
		s.state = StateComplete
		s.progress = 100

	case models.ErrorEvent:
		if s.state != StateScanning {
			return
		}
		// partial findings stay visible
		s.state = StateErrored
		s.errMsg = e.Message
		s.appendLog(e.Message)

	case models.ActivityEvent:
		// monitor-feed traffic, not part of a scan
	}
}

func (s *Session) appendLog(line string) {
	s.logs = append(s.logs, line)
	if len(s.logs) > maxLogLines {
		s.logs = s.logs[len(s.logs)-maxLogLines:]
	}
}

// Close marks the owning scope as torn down. Any event applied afterwards
// produces no observable state change.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	State    ScanState
	Progress int
	Findings []models.Finding
	Logs     []string
	Err      string
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	findings := make([]models.Finding, len(s.findings))
	copy(findings, s.findings)
	logs := make([]string, len(s.logs))
	copy(logs, s.logs)

	return Snapshot{
		State:    s.state,
		Progress: s.progress,
		Findings: findings,
		Logs:     logs,
		Err:      s.errMsg,
	}
}

// BySeverity counts the current findings grouped by severity.
func (s *Session) BySeverity() models.SeverityBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CountBySeverity(s.findings)
}

// Consume applies events from the channel until a terminal event arrives or
// the channel closes (connection torn down), then returns the final snapshot.
func (s *Session) Consume(events <-chan models.Event) Snapshot {
	for ev := range events {
		s.Apply(ev)
		switch ev.(type) {
		case models.CompleteEvent, models.ErrorEvent:
			return s.Snapshot()
		}
	}
	return s.Snapshot()
}
