package retry

import (
	"context"
	"time"

	"steam-market-harvester/internal/config"
)

// Tier is the granularity a failure is handled at.
type Tier int

const (
	// TierItem: one item failed; pause, then move on to the next item.
	TierItem Tier = iota
	// TierBatch: a page request failed; pause, then retry the same page.
	TierBatch
	// TierRead: a paged storage read failed; pause, then retry the same page.
	TierRead
)

func (t Tier) String() string {
	switch t {
	case TierItem:
		return "item"
	case TierBatch:
		return "batch"
	case TierRead:
		return "read"
	default:
		return "unknown"
	}
}

// Pacing is the unconditional delay after a successful round trip.
type Pacing int

const (
	PaceDetail Pacing = iota
	PaceHistory
)

func (p Pacing) String() string {
	if p == PaceDetail {
		return "detail"
	}
	return "history"
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleepFunc adapts a function to Sleeper.
type SleepFunc func(ctx context.Context, d time.Duration) error

func (f SleepFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// WallClock sleeps for real.
var WallClock Sleeper = SleepFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})

// Policy maps failure tiers and pacing kinds to pause durations. There is
// no attempt cap: callers keep going until their input is exhausted.
type Policy struct {
	ItemFailure   time.Duration
	BatchFailure  time.Duration
	ReadFailure   time.Duration
	DetailPacing  time.Duration
	HistoryPacing time.Duration

	Sleeper Sleeper
}

// FromConfig builds the production policy.
func FromConfig(cfg config.PauseConfig) Policy {
	return Policy{
		ItemFailure:   cfg.ItemFailure,
		BatchFailure:  cfg.BatchFailure,
		ReadFailure:   cfg.ReadFailure,
		DetailPacing:  cfg.DetailPacing,
		HistoryPacing: cfg.HistoryPacing,
		Sleeper:       WallClock,
	}
}

// Backoff returns the pause for a failure tier.
func (p Policy) Backoff(tier Tier) time.Duration {
	switch tier {
	case TierBatch:
		return p.BatchFailure
	case TierRead:
		return p.ReadFailure
	default:
		return p.ItemFailure
	}
}

// Interval returns the pacing delay for a successful round trip.
func (p Policy) Interval(kind Pacing) time.Duration {
	if kind == PaceDetail {
		return p.DetailPacing
	}
	return p.HistoryPacing
}

// Pause waits out the backoff for tier.
func (p Policy) Pause(ctx context.Context, tier Tier) error {
	return p.sleeper().Sleep(ctx, p.Backoff(tier))
}

// Pace waits out the steady-state interval after a success.
func (p Policy) Pace(ctx context.Context, kind Pacing) error {
	return p.sleeper().Sleep(ctx, p.Interval(kind))
}

// Until runs op until it succeeds, pausing for tier between attempts.
// onFailure is called with the attempt number (starting at 1) and error
// before each pause. It only gives up when ctx is done.
func (p Policy) Until(ctx context.Context, tier Tier, op func(ctx context.Context) error, onFailure func(attempt int, err error)) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if err := p.Pause(ctx, tier); err != nil {
			return err
		}
	}
}

func (p Policy) sleeper() Sleeper {
	if p.Sleeper == nil {
		return WallClock
	}
	return p.Sleeper
}
