package ingest

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of a pipeline's counters.
type Snapshot struct {
	Pipeline      string    `json:"pipeline"`
	Running       bool      `json:"running"`
	Cursor        int       `json:"cursor"`
	Pages         int       `json:"pages"`
	Seen          int       `json:"seen"`
	Skipped       int       `json:"skipped"`
	Inserted      int       `json:"inserted"`
	Failed        int       `json:"failed"`
	PageRetries   int       `json:"page_retries"`
	PointsKept    int       `json:"points_kept"`
	PointsDropped int       `json:"points_dropped"`
	PointsBadDate int       `json:"points_bad_date"`
	LastError     string    `json:"last_error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Stats is shared between a pipeline loop and readers such as the status
// server.
type Stats struct {
	mu sync.RWMutex
	s  Snapshot
}

func NewStats(pipeline string) *Stats {
	return &Stats{s: Snapshot{Pipeline: pipeline}}
}

func (st *Stats) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

func (st *Stats) update(fn func(s *Snapshot)) {
	st.mu.Lock()
	fn(&st.s)
	st.mu.Unlock()
}

func (st *Stats) start(now time.Time, cursor int) {
	st.update(func(s *Snapshot) {
		s.Running = true
		s.StartedAt = now
		s.FinishedAt = time.Time{}
		s.Cursor = cursor
	})
}

func (st *Stats) finish(now time.Time) {
	st.update(func(s *Snapshot) {
		s.Running = false
		s.FinishedAt = now
	})
}

func (st *Stats) fail(err error) {
	st.update(func(s *Snapshot) {
		s.Failed++
		s.LastError = err.Error()
	})
}
