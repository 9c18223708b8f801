package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelnexus/guard/internal/models"
)

func TestRecordKeepsMostRecentFirst(t *testing.T) {
	f := New()
	f.Record("first", models.SeverityInfo, "")
	f.Record("second", models.SeverityHigh, "")
	f.Record("third", models.SeverityLow, "")

	recent := f.Recent()
	assert.Len(t, recent, 3)
	assert.Equal(t, "third", recent[0].Msg)
	assert.Equal(t, "second", recent[1].Msg)
	assert.Equal(t, "first", recent[2].Msg)
	assert.NotEmpty(t, recent[0].ID)
}

func TestFeedBounded(t *testing.T) {
	f := New()
	for i := 0; i < 60; i++ {
		f.Record(fmt.Sprintf("entry %d", i), models.SeverityInfo, "")
	}

	recent := f.Recent()
	assert.Len(t, recent, 50)
	// старые записи вытеснены
	assert.Equal(t, "entry 59", recent[0].Msg)
	assert.Equal(t, "entry 10", recent[49].Msg)
}

func TestStatsCounters(t *testing.T) {
	f := New()
	f.Record("clean", models.SeverityInfo, "")
	f.Record("minor", models.SeverityLow, "")
	f.Record("bad", models.SeverityMedium, "")
	f.Record("worse", models.SeverityHigh, "")
	f.Record("worst", models.SeverityCritical, "")

	stats := f.Stats()
	assert.Equal(t, 5, stats.TotalScans)
	// info и low угрозами не считаются
	assert.Equal(t, 3, stats.ThreatsBlocked)
}

func TestSubscribersReceiveNewEntries(t *testing.T) {
	f := New()
	ch1 := f.Subscribe()
	ch2 := f.Subscribe()

	f.Record("hello", models.SeverityHigh, "details here")

	e1 := <-ch1
	e2 := <-ch2
	assert.Equal(t, "hello", e1.Msg)
	assert.Equal(t, models.SeverityHigh, e1.Severity)
	assert.Equal(t, e1.ID, e2.ID)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	f := New()
	ch := f.Subscribe()
	f.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// запись после отписки не паникует
	f.Record("after", models.SeverityInfo, "")
}

func TestApplyEventRecordsActivity(t *testing.T) {
	f := New()
	entry := f.ApplyEvent(models.ActivityEvent{
		Message:  "Code scan completed",
		Severity: models.SeverityMedium,
		Details:  "3 findings",
	})

	assert.Equal(t, "Code scan completed", entry.Msg)
	assert.Equal(t, "3 findings", entry.Details)
	assert.Equal(t, 1, f.Stats().TotalScans)
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker[int](2)
	ch := b.Subscribe("t")

	for i := 0; i < 5; i++ {
		b.Publish("t", i)
	}

	// буфер на два сообщения, остальное отброшено
	assert.Equal(t, 0, <-ch)
	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected message %d", v)
	default:
	}
}
