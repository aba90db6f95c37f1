package pager

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pause names a point in the loop where a human-like delay is inserted.
type Pause int

const (
	PauseSettle Pause = iota
	PauseScroll
	PauseBeforeClick
	PauseRender
)

func (p Pause) String() string {
	switch p {
	case PauseSettle:
		return "settle"
	case PauseScroll:
		return "scroll"
	case PauseBeforeClick:
		return "before_click"
	case PauseRender:
		return "render"
	default:
		return "unknown"
	}
}

// Span is a closed range a random delay is drawn from.
type Span struct {
	Min, Max time.Duration
}

// DefaultSpans are the jitter ranges of each pause.
var DefaultSpans = map[Pause]Span{
	PauseSettle:      {800 * time.Millisecond, 1500 * time.Millisecond},
	PauseScroll:      {400 * time.Millisecond, 1000 * time.Millisecond},
	PauseBeforeClick: {300 * time.Millisecond, 800 * time.Millisecond},
	PauseRender:      {500 * time.Millisecond, 1200 * time.Millisecond},
}

// Delay inserts the loop's timing. Pace is called before each navigation.
type Delay interface {
	Pause(ctx context.Context, p Pause) error
	Pace(ctx context.Context) error
}

// NoDelay never waits.
type NoDelay struct{}

func (NoDelay) Pause(ctx context.Context, _ Pause) error { return ctx.Err() }
func (NoDelay) Pace(ctx context.Context) error           { return ctx.Err() }

// HumanDelay sleeps a random duration within each pause's span and spaces
// navigations at least interval apart.
type HumanDelay struct {
	spans   map[Pause]Span
	limiter *rate.Limiter

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewHumanDelay creates a delay with DefaultSpans. A zero interval disables pacing.
func NewHumanDelay(interval time.Duration) *HumanDelay {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &HumanDelay{
		spans:   DefaultSpans,
		limiter: rate.NewLimiter(limit, 1),
		rnd:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

// Pause sleeps for a random duration in the pause's span or until ctx is done.
func (d *HumanDelay) Pause(ctx context.Context, p Pause) error {
	wait := d.draw(d.spans[p])
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pace blocks until the next navigation is allowed.
func (d *HumanDelay) Pace(ctx context.Context) error {
	return d.limiter.Wait(ctx)
}

func (d *HumanDelay) draw(s Span) time.Duration {
	if s.Max <= s.Min {
		return s.Min
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return s.Min + time.Duration(d.rnd.Int64N(int64(s.Max-s.Min)+1))
}
