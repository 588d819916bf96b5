package playback

import (
	"sync"
	"time"
)

// Ticker is a periodic tick source.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tick sources. Tests substitute a manual clock.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// RealClock ticks on wall time.
type RealClock struct{}

func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// InstantClock ticks as fast as the receiver can consume, for headless
// rendering where wall time does not matter.
type InstantClock struct{}

func (InstantClock) NewTicker(time.Duration) Ticker {
	t := &instantTicker{c: make(chan time.Time), done: make(chan struct{})}
	go t.run()
	return t
}

type instantTicker struct {
	c    chan time.Time
	done chan struct{}
	once sync.Once
}

func (t *instantTicker) run() {
	for {
		select {
		case <-t.done:
			return
		case t.c <- time.Time{}:
		}
	}
}

func (t *instantTicker) C() <-chan time.Time { return t.c }

func (t *instantTicker) Stop() {
	t.once.Do(func() { close(t.done) })
}
