package retry

import (
	"context"
	"sync"
	"time"
)

// recorder is a Sleeper that returns at once and keeps every duration.
type recorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recorder) calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.slept...)
}

func (r *recorder) count(d time.Duration) int {
	n := 0
	for _, c := range r.calls() {
		if c == d {
			n++
		}
	}
	return n
}
