package scanserver

import (
	"sync"
	"time"

	"github.com/sentinelnexus/guard/internal/models"
)

// StoredScan is one completed scan retained in memory for the scan history
// endpoints.
type StoredScan struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Result    models.ScanResult `json:"result"`
}

// ResultStore keeps completed scans in memory, newest first.
type ResultStore struct {
	scans map[string]*StoredScan
	order []string
	mu    sync.RWMutex
}

func NewResultStore() *ResultStore {
	return &ResultStore{scans: make(map[string]*StoredScan)}
}

func (s *ResultStore) Put(scan *StoredScan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[scan.ID]; !ok {
		s.order = append([]string{scan.ID}, s.order...)
	}
	s.scans[scan.ID] = scan
}

func (s *ResultStore) Get(id string) (*StoredScan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scan, ok := s.scans[id]
	return scan, ok
}

func (s *ResultStore) All() []*StoredScan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scans := make([]*StoredScan, 0, len(s.order))
	for _, id := range s.order {
		scans = append(scans, s.scans[id])
	}
	return scans
}
