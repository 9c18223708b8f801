package scanserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelnexus/guard/internal/api"
	"github.com/sentinelnexus/guard/internal/models"
	"github.com/sentinelnexus/guard/internal/session"
	"github.com/sentinelnexus/guard/internal/stream"
)

const sampleCode = `api_key = "sk-abc123def456"
eval(user_input)`

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer("127.0.0.1:0", opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func wsEndpoint(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/scan"
}

// Полный путь: dial → start → события → терминальный снапшот.
func TestStreamScanEndToEnd(t *testing.T) {
	_, ts := newTestServer(t)

	conn, err := stream.Dial(context.Background(), wsEndpoint(ts))
	assert.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, conn.StartScan(models.ModeCode, sampleCode))

	sess := session.New()
	sess.Start()
	snap := sess.Consume(conn.Events())

	assert.Equal(t, session.StateComplete, snap.State)
	assert.Equal(t, 100, snap.Progress)
	assert.Len(t, snap.Findings, 2)

	breakdown := models.CountBySeverity(snap.Findings)
	assert.Equal(t, 2, breakdown.Critical)

	// у каждой находки серверный id
	for _, f := range snap.Findings {
		assert.NotEmpty(t, f.ID)
	}
}

func TestStreamScanCleanInput(t *testing.T) {
	s, ts := newTestServer(t)

	conn, err := stream.Dial(context.Background(), wsEndpoint(ts))
	assert.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, conn.StartScan(models.ModePrompt, "what is the weather today"))

	sess := session.New()
	sess.Start()
	snap := sess.Consume(conn.Events())

	assert.Equal(t, session.StateComplete, snap.State)
	assert.Empty(t, snap.Findings)

	// чистый скан тоже попадает в ленту
	stats := s.Feed().Stats()
	assert.Equal(t, 1, stats.TotalScans)
	assert.Equal(t, 0, stats.ThreatsBlocked)
}

func TestMonitorReceivesScanActivity(t *testing.T) {
	_, ts := newTestServer(t)

	monitor, err := stream.Dial(context.Background(), wsEndpoint(ts))
	assert.NoError(t, err)
	defer monitor.Close()
	assert.NoError(t, monitor.Subscribe())

	// скан на втором соединении порождает activity-события для монитора
	scanner, err := stream.Dial(context.Background(), wsEndpoint(ts))
	assert.NoError(t, err)
	defer scanner.Close()
	assert.NoError(t, scanner.StartScan(models.ModeCode, sampleCode))

	sess := session.New()
	sess.Start()
	sess.Consume(scanner.Events())

	var activities []models.ActivityEvent
	timeout := time.After(3 * time.Second)
	for len(activities) < 2 {
		select {
		case ev, open := <-monitor.Events():
			if !open {
				t.Fatal("monitor stream closed early")
			}
			if a, ok := ev.(models.ActivityEvent); ok {
				activities = append(activities, a)
			}
		case <-timeout:
			t.Fatalf("got %d activity events, want 2", len(activities))
		}
	}

	for _, a := range activities {
		assert.Equal(t, models.SeverityCritical, a.Severity)
		assert.NotEmpty(t, a.Message)
	}
}

func TestRESTScanAndHistory(t *testing.T) {
	_, ts := newTestServer(t)

	client := api.NewClient(api.Config{BaseURL: ts.URL})
	result, err := client.ScanCode(context.Background(), sampleCode)
	assert.NoError(t, err)

	assert.Equal(t, 2, result.TotalFindings)
	assert.Equal(t, 40, result.OverallRiskScore)
	assert.Equal(t, models.RiskMedium, result.RiskLevel)
	assert.False(t, result.Offline)

	// скан сохранён в истории
	resp, err := http.Get(ts.URL + "/api/v1/scans")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRESTAuthRequired(t *testing.T) {
	_, ts := newTestServer(t, WithToken("secret-token"))

	unauthed := api.NewClient(api.Config{BaseURL: ts.URL})
	_, err := unauthed.ScanCode(context.Background(), "x")
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	authed := api.NewClient(api.Config{BaseURL: ts.URL, Token: "secret-token"})
	_, err = authed.ScanCode(context.Background(), "x")
	assert.NoError(t, err)
}

func TestWebScanAcknowledged(t *testing.T) {
	s, ts := newTestServer(t)

	client := api.NewClient(api.Config{BaseURL: ts.URL})
	ack, err := client.ScanWeb(context.Background(), "https://example.com", nil)
	assert.NoError(t, err)

	assert.Equal(t, "pending", ack.Status)
	assert.NotEmpty(t, ack.TaskID)

	entries := s.Feed().Recent()
	assert.Len(t, entries, 1)
	assert.Contains(t, entries[0].Msg, "https://example.com")
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResultStoreNewestFirst(t *testing.T) {
	store := NewResultStore()
	a := &StoredScan{ID: "a", CreatedAt: time.Now()}
	b := &StoredScan{ID: "b", CreatedAt: time.Now()}
	store.Put(a)
	store.Put(b)

	all := store.All()
	assert.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	got, ok := store.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", got.ID)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}
