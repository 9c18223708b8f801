package scanserver

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sentinelnexus/guard/internal/heuristic"
	"github.com/sentinelnexus/guard/internal/models"
)

// stepDelay paces the streamed events so progress is visible in a UI.
const stepDelay = 10 * time.Millisecond

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("scanserver: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg models.StartMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// невалидный кадр пропускаем
			continue
		}

		if string(msg.Type) == "monitor" {
			s.runMonitor(conn)
			return
		}

		mode, err := models.ParseMode(string(msg.Type))
		if err != nil || msg.Content == "" {
			continue
		}

		if err := s.streamScan(conn, mode, msg.Content); err != nil {
			return
		}
	}
}

// streamScan runs one scan and streams progress, findings and the terminal
// event. The event shape mirrors the hosted backend's scan stream.
func (s *Server) streamScan(conn *websocket.Conn, mode models.ScanMode, content string) error {
	if err := conn.WriteJSON(models.NewProgressEnvelope(5, "Initializing scan engine...")); err != nil {
		return err
	}
	time.Sleep(stepDelay)
	if err := conn.WriteJSON(models.NewProgressEnvelope(10, "Running pattern matching...")); err != nil {
		return err
	}

	scan := s.runScan(mode, content)

	total := len(scan.Result.Findings)
	for i, f := range scan.Result.Findings {
		time.Sleep(stepDelay)
		pct := 10 + float64(i+1)*75/float64(total)
		if err := conn.WriteJSON(models.NewProgressEnvelope(pct, "Analyzing: "+f.Title)); err != nil {
			return err
		}
		if err := conn.WriteJSON(models.NewFindingEnvelope(f)); err != nil {
			return err
		}
	}

	time.Sleep(stepDelay)
	if err := conn.WriteJSON(models.NewProgressEnvelope(90, "Generating risk report...")); err != nil {
		return err
	}
	return conn.WriteJSON(models.NewCompleteEnvelope("Scan complete"))
}

// runScan executes the heuristic engine as the authoritative engine of this
// server: results are stored, fed to the activity feed and not labeled
// offline.
func (s *Server) runScan(mode models.ScanMode, content string) *StoredScan {
	result := heuristic.Scan(content, mode)
	result.Offline = false

	for i := range result.Findings {
		result.Findings[i].ID = newID()
		s.feed.Record(result.Findings[i].Title, result.Findings[i].Severity, truncate(result.Findings[i].Description, 200))
	}
	if len(result.Findings) == 0 {
		s.feed.Record("Clean scan — no threats found", models.SeverityInfo, "")
	}

	scan := &StoredScan{
		ID:        newID(),
		CreatedAt: time.Now().UTC(),
		Result:    result,
	}
	s.store.Put(scan)
	return scan
}

// runMonitor takes the connection over as a passive activity subscriber.
func (s *Server) runMonitor(conn *websocket.Conn) {
	ch := s.feed.Subscribe()
	defer s.feed.Unsubscribe(ch)

	// свежие записи отправляем сразу, чтобы лента не была пустой
	recent := s.feed.Recent()
	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		if err := conn.WriteJSON(models.NewActivityEnvelope(e.Msg, e.Severity, e.Details)); err != nil {
			return
		}
	}

	for entry := range ch {
		if err := conn.WriteJSON(models.NewActivityEnvelope(entry.Msg, entry.Severity, entry.Details)); err != nil {
			return
		}
	}
}

func newID() string {
	return uuid.NewString()[:8]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
