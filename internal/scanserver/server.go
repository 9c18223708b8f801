// Package scanserver is a self-contained scan backend speaking the same wire
// protocol as the hosted SentinelNexus service, backed by the heuristic
// engine. It exists for local demos and end-to-end tests of the streaming
// pipeline; it is not the production detection engine.
package scanserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentinelnexus/guard/internal/feed"
	"github.com/sentinelnexus/guard/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// локальный демо-сервер, cross-origin разрешён
		return true
	},
}

type Server struct {
	listenAddr string
	token      string
	feed       *feed.Feed
	store      *ResultStore
	server     *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithToken requires a bearer token on the REST scan endpoints.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func NewServer(listenAddr string, opts ...Option) *Server {
	s := &Server{
		listenAddr: listenAddr,
		feed:       feed.New(),
		store:      NewResultStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Feed exposes the activity feed, mainly for tests.
func (s *Server) Feed() *feed.Feed {
	return s.feed
}

// Handler builds the route table. Separate from Start so tests can mount it
// on an httptest server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/api/v1/ws/scan", s.handleWS)

	// REST scan endpoints
	mux.HandleFunc("/api/v1/scans/code", s.requireAuth(s.handleScan(models.ModeCode)))
	mux.HandleFunc("/api/v1/scans/prompt", s.requireAuth(s.handleScan(models.ModePrompt)))
	mux.HandleFunc("/api/v1/scans/pii", s.requireAuth(s.handleScan(models.ModePII)))
	mux.HandleFunc("/api/v1/scans/web", s.requireAuth(s.handleScanWeb))

	// Scan history
	mux.HandleFunc("/api/v1/scans", s.requireAuth(s.handleListScans))
	mux.HandleFunc("/api/v1/scans/", s.requireAuth(s.handleGetScan))

	// Activity feed snapshot + counters
	mux.HandleFunc("/api/v1/activity", s.handleActivity)

	// Health check
	mux.HandleFunc(
		"/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	)

	return corsMiddleware(mux)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.Handler(),
		// no WriteTimeout: it would kill long-lived websocket connections
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("scanserver: listening on %s", s.listenAddr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type scanRequest struct {
	ProjectID   string `json:"project_id"`
	ScanType    string `json:"scan_type"`
	CodeContent string `json:"code_content"`
	PromptText  string `json:"prompt_text"`
}

func (s *Server) handleScan(mode models.ScanMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		content := req.CodeContent
		if mode == models.ModePrompt {
			content = req.PromptText
		}

		result := s.runScan(mode, content)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result.Result)
	}
}

type webScanRequest struct {
	ProjectID string         `json:"project_id"`
	TargetURL string         `json:"target_url"`
	Config    map[string]any `json:"config"`
}

func (s *Server) handleScanWeb(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req webScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TargetURL == "" {
		http.Error(w, `{"error":"target_url is required"}`, http.StatusBadRequest)
		return
	}

	// web scans run as a background job against a live target; the demo
	// server only acknowledges them
	ack := map[string]string{"status": "pending", "task_id": newID()}
	s.feed.Record("Web scan queued: "+req.TargetURL, models.SeverityInfo, "")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(ack)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/scans/")
	scan, ok := s.store.Get(id)
	if !ok {
		http.Error(w, `{"error":"scan not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(scan)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.store.All())
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Entries []feed.Entry `json:"entries"`
		Stats   feed.Stats   `json:"stats"`
	}{s.feed.Recent(), s.feed.Stats()})
}
