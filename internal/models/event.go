package models

import (
	"fmt"
	"time"
)

// Client → server messages.

// StartMessage запускает скан на стороне сервера
type StartMessage struct {
	Type    ScanMode `json:"type" jsonschema:"enum=code,enum=prompt,enum=pii,enum=web"`
	Content string   `json:"content"`
}

// MonitorMessage subscribes the connection to the passive activity feed.
type MonitorMessage struct {
	Type string `json:"type"`
}

func NewMonitorMessage() MonitorMessage {
	return MonitorMessage{Type: "monitor"}
}

// EventEnvelope is the raw server → client JSON frame. Which optional fields
// are present depends on EventType; Decode turns it into a typed Event.
type EventEnvelope struct {
	Timestamp   string   `json:"timestamp" jsonschema:"description=ISO-8601 event time"`
	EventType   string   `json:"event_type" jsonschema:"enum=progress,enum=finding,enum=error,enum=complete,enum=activity"`
	ProgressPct *float64 `json:"progress_pct,omitempty"`
	Message     string   `json:"message,omitempty"`
	Finding     *Finding `json:"finding,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Msg         string   `json:"msg,omitempty"`
	Details     string   `json:"details,omitempty"`
}

// Event is the closed set of decoded protocol events.
type Event interface {
	isEvent()
}

// ProgressEvent шаг выполнения скана, 0-100
type ProgressEvent struct {
	Pct     int
	Message string
}

// FindingEvent carries one finding discovered mid-scan.
type FindingEvent struct {
	Finding Finding
}

// ErrorEvent terminates the scan with a server-reported error.
type ErrorEvent struct {
	Message string
}

// CompleteEvent terminates the scan successfully.
type CompleteEvent struct {
	Message string
}

// ActivityEvent is an entry of the global monitor feed, not tied to a scan.
type ActivityEvent struct {
	Message  string
	Severity Severity
	Details  string
}

func (ProgressEvent) isEvent() {}
func (FindingEvent) isEvent()  {}
func (ErrorEvent) isEvent()    {}
func (CompleteEvent) isEvent() {}
func (ActivityEvent) isEvent() {}

// Decode maps the envelope onto a typed event. Unknown event types are an
// error so the transport can drop the frame without touching session state.
func (e EventEnvelope) Decode() (Event, error) {
	switch e.EventType {
	case "progress":
		pct := 0
		if e.ProgressPct != nil {
			pct = int(*e.ProgressPct)
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		return ProgressEvent{Pct: pct, Message: e.Message}, nil
	case "finding":
		if e.Finding == nil {
			return nil, fmt.Errorf("finding event without finding payload")
		}
		return FindingEvent{Finding: *e.Finding}, nil
	case "error":
		return ErrorEvent{Message: e.Message}, nil
	case "complete":
		return CompleteEvent{Message: e.Message}, nil
	case "activity":
		return ActivityEvent{
			Message:  e.Msg,
			Severity: ParseSeverity(e.Severity),
			Details:  e.Details,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", e.EventType)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Envelope constructors used by the server side of the protocol.

func NewProgressEnvelope(pct float64, message string) EventEnvelope {
	return EventEnvelope{Timestamp: now(), EventType: "progress", ProgressPct: &pct, Message: message}
}

func NewFindingEnvelope(f Finding) EventEnvelope {
	return EventEnvelope{Timestamp: now(), EventType: "finding", Finding: &f}
}

func NewErrorEnvelope(message string) EventEnvelope {
	return EventEnvelope{Timestamp: now(), EventType: "error", Message: message}
}

func NewCompleteEnvelope(message string) EventEnvelope {
	return EventEnvelope{Timestamp: now(), EventType: "complete", Message: message}
}

func NewActivityEnvelope(msg string, severity Severity, details string) EventEnvelope {
	return EventEnvelope{Timestamp: now(), EventType: "activity", Severity: string(severity), Msg: msg, Details: details}
}
