package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock reports the current simulation time. Components depend on this
// rather than on time.Now so tests can pin time.
type Clock interface {
	Now() time.Time
}

// WallClock follows the host clock in UTC.
type WallClock struct{}

// Now implements Clock.
func (WallClock) Now() time.Time { return time.Now().UTC() }

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances by Tick once per wall-clock Tick.
	RealTime Mode = iota
	// Accelerated advances by Tick as fast as the loop can run.
	Accelerated
)

// TimeController drives simulation time and notifies registered listeners.
// It implements Clock.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	listeners   []func(time.Time)
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulation time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime jumps simulation time to t without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.currentTime = t
	tc.mu.Unlock()
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Start runs the controller for the specified duration in a separate
// goroutine. It returns a channel that is closed when the controller
// finishes. A zero duration runs until the process exits; use Run to stop
// on a context instead.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		tc.loop(context.Background(), duration)
	}()
	return done
}

// Run advances time from the current simulation time until ctx is done.
func (tc *TimeController) Run(ctx context.Context) {
	tc.loop(ctx, 0)
}

func (tc *TimeController) loop(ctx context.Context, duration time.Duration) {
	simTime := tc.Now()
	elapsed := time.Duration(0)

	var tickC <-chan time.Time
	if tc.Mode == RealTime {
		ticker := time.NewTicker(tc.Tick)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		if duration > 0 && elapsed >= duration {
			return
		}
		if tickC != nil {
			select {
			case <-ctx.Done():
				return
			case <-tickC:
			}
		} else if ctx.Err() != nil {
			return
		}

		simTime = simTime.Add(tc.Tick)
		elapsed += tc.Tick

		tc.mu.Lock()
		tc.currentTime = simTime
		listeners := append([]func(time.Time){}, tc.listeners...)
		tc.mu.Unlock()

		for _, fn := range listeners {
			fn(simTime)
		}
	}
}
