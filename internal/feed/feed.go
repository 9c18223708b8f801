// Package feed keeps the "live activity" view of the dashboard: a bounded
// most-recent list of scan activity entries plus running counters, fanned out
// to monitor subscribers.
package feed

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelnexus/guard/internal/models"
)

// maxEntries bounds the retained feed; older entries are evicted.
const maxEntries = 50

const activityTopic = "activity"

// Entry одна строка ленты активности
type Entry struct {
	ID       string          `json:"id"`
	Msg      string          `json:"msg"`
	Severity models.Severity `json:"severity"`
	Details  string          `json:"details,omitempty"`
	Time     time.Time       `json:"time"`
}

// Stats are the dashboard counters derived from the feed.
type Stats struct {
	TotalScans     int `json:"total_scans"`
	ThreatsBlocked int `json:"threats_blocked"`
}

type Feed struct {
	mu      sync.Mutex
	entries []Entry // most recent first
	stats   Stats
	broker  *Broker[Entry]
}

func New() *Feed {
	return &Feed{broker: NewBroker[Entry](64)}
}

// Record appends an activity entry, updates the counters and notifies
// subscribers. Severities above low count as blocked threats.
func (f *Feed) Record(msg string, severity models.Severity, details string) Entry {
	entry := Entry{
		ID:       uuid.NewString(),
		Msg:      msg,
		Severity: severity,
		Details:  details,
		Time:     time.Now().UTC(),
	}

	f.mu.Lock()
	f.entries = append([]Entry{entry}, f.entries...)
	if len(f.entries) > maxEntries {
		f.entries = f.entries[:maxEntries]
	}
	f.stats.TotalScans++
	if severity != models.SeverityInfo && severity != models.SeverityLow {
		f.stats.ThreatsBlocked++
	}
	f.mu.Unlock()

	f.broker.Publish(activityTopic, entry)
	return entry
}

// ApplyEvent records an inbound activity event from a monitor subscription.
func (f *Feed) ApplyEvent(ev models.ActivityEvent) Entry {
	return f.Record(ev.Message, ev.Severity, ev.Details)
}

// Recent returns a copy of the retained entries, most recent first.
func (f *Feed) Recent() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *Feed) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Subscribe returns a channel of new entries; release it with Unsubscribe.
func (f *Feed) Subscribe() chan Entry {
	return f.broker.Subscribe(activityTopic)
}

func (f *Feed) Unsubscribe(ch chan Entry) {
	f.broker.Unsubscribe(activityTopic, ch)
}
