package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivlev/storyboard/internal/board"
)

type recorder struct {
	shots     []int
	timecodes []int
	failAt    int
}

func (r *recorder) RenderShot(cue board.Cue, index int) error {
	r.shots = append(r.shots, cue.Ordinal)
	if r.failAt != 0 && cue.Ordinal == r.failAt {
		return errors.New("render failed")
	}
	return nil
}

func (r *recorder) RenderTimecode(cue board.Cue, elapsedMS int) error {
	r.timecodes = append(r.timecodes, elapsedMS)
	return nil
}

// manualClock hands out a ticker whose channel the test drives.
type manualClock struct {
	ready chan *manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{ready: make(chan *manualTicker, 1)}
}

type manualTicker struct {
	c       chan time.Time
	stopped bool
}

func (m *manualClock) NewTicker(time.Duration) Ticker {
	t := &manualTicker{c: make(chan time.Time)}
	m.ready <- t
	return t
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               { t.stopped = true }

func TestSchedulerTickCounts(t *testing.T) {
	rec := &recorder{}
	s, err := New(24, 40*time.Millisecond, rec)
	if err != nil {
		t.Fatal(err)
	}

	cues := []board.Cue{
		{Ordinal: 1, Frames: 24},
		{Ordinal: 2, Frames: 12},
	}
	if err := s.Start(cues); err != nil {
		t.Fatal(err)
	}
	if len(rec.shots) != 1 || rec.shots[0] != 1 {
		t.Fatalf("Start should render the first shot, got %v", rec.shots)
	}

	ticksOnShot := map[int]int{}
	ticks := 0
	for s.State() == Playing {
		idx, _ := s.Position()
		ticksOnShot[idx]++
		if _, err := s.Tick(); err != nil {
			t.Fatal(err)
		}
		ticks++
		if ticks > 100 {
			t.Fatal("playback never finished")
		}
	}

	if ticksOnShot[0] != 25 {
		t.Errorf("shot 0 occupied %d ticks, want 25", ticksOnShot[0])
	}
	if ticksOnShot[1] != 13 {
		t.Errorf("shot 1 occupied %d ticks, want 13", ticksOnShot[1])
	}
	if s.State() != Finished {
		t.Errorf("state = %s", s.State())
	}
	if len(rec.shots) != 2 || rec.shots[1] != 2 {
		t.Errorf("shots rendered: %v", rec.shots)
	}
	if len(rec.timecodes) != 24+12 {
		t.Errorf("expected 36 overlay refreshes, got %d", len(rec.timecodes))
	}
	if rec.timecodes[0] != 40 || rec.timecodes[23] != 960 {
		t.Errorf("unexpected elapsed values: first=%d last=%d", rec.timecodes[0], rec.timecodes[23])
	}

	// Ticks after the end are ignored.
	if st, _ := s.Tick(); st != Finished {
		t.Errorf("state after extra tick = %s", st)
	}
}

func TestSchedulerZeroDurationAdvancesImmediately(t *testing.T) {
	rec := &recorder{}
	s, _ := New(24, 40*time.Millisecond, rec)
	s.Start([]board.Cue{
		{Ordinal: 1, Frames: 0},
		{Ordinal: 2, Frames: 1},
	})

	s.Tick()
	idx, elapsed := s.Position()
	if idx != 1 || elapsed != 0 {
		t.Fatalf("expected to skip to shot 1 at 0ms, got %d at %d", idx, elapsed)
	}
	// 1 frame at 24 fps rounds to 42ms: two ticks.
	s.Tick()
	if s.State() != Playing {
		t.Fatal("should still be playing after 40ms of a 42ms shot")
	}
	s.Tick()
	if s.State() != Finished {
		t.Fatalf("state = %s", s.State())
	}
	if len(rec.shots) != 2 {
		t.Errorf("shots rendered: %v", rec.shots)
	}
}

func TestSchedulerEmptySequence(t *testing.T) {
	rec := &recorder{}
	s, _ := New(24, DefaultTick, rec)
	if err := s.Start(nil); !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}
	if s.State() != Idle {
		t.Errorf("state = %s", s.State())
	}
	if len(rec.shots) != 0 {
		t.Error("nothing should be rendered")
	}
	if err := s.Run(context.Background(), newManualClock()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Run without Start: %v", err)
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	if _, err := New(0, DefaultTick, nil); !errors.Is(err, ErrInvalidFPS) {
		t.Errorf("expected ErrInvalidFPS, got %v", err)
	}
	for _, tick := range []time.Duration{0, -time.Second, 500 * time.Microsecond} {
		if _, err := New(24, tick, nil); !errors.Is(err, ErrInvalidTick) {
			t.Errorf("tick %v: expected ErrInvalidTick, got %v", tick, err)
		}
	}
	if _, err := New(24, time.Millisecond, nil); err != nil {
		t.Errorf("1ms tick rejected: %v", err)
	}
}

func TestStartRenderErrorLeavesIdle(t *testing.T) {
	rec := &recorder{failAt: 1}
	s, _ := New(24, DefaultTick, rec)
	if err := s.Start([]board.Cue{{Ordinal: 1, Frames: 24}}); err == nil {
		t.Fatal("expected render error")
	}
	if s.State() != Idle {
		t.Errorf("state = %s, want Idle", s.State())
	}
	if state, err := s.Tick(); state != Idle || err != nil {
		t.Errorf("Tick after failed start = %s, %v", state, err)
	}
	if err := s.Run(context.Background(), InstantClock{}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Run = %v, want ErrNotStarted", err)
	}
}

func TestStopHaltsRendering(t *testing.T) {
	rec := &recorder{}
	s, _ := New(24, DefaultTick, rec)
	s.Start([]board.Cue{{Ordinal: 1, Frames: 48}})
	s.Tick()
	s.Stop()

	before := len(rec.timecodes)
	s.Tick()
	if len(rec.timecodes) != before {
		t.Error("tick after Stop must not render")
	}
	if s.State() != Idle {
		t.Errorf("state = %s", s.State())
	}
}

func TestRunFinishes(t *testing.T) {
	rec := &recorder{}
	s, _ := New(24, DefaultTick, rec)
	err := s.Play(context.Background(), []board.Cue{{Ordinal: 4, Frames: 2}, {Ordinal: 9, Frames: 3}}, InstantClock{})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if s.State() != Finished {
		t.Errorf("state = %s", s.State())
	}
	if len(rec.shots) != 2 || rec.shots[0] != 4 || rec.shots[1] != 9 {
		t.Errorf("shots rendered out of order: %v", rec.shots)
	}
}

func TestRunCancel(t *testing.T) {
	rec := &recorder{}
	s, _ := New(24, DefaultTick, rec)
	s.Start([]board.Cue{{Ordinal: 1, Frames: 240}})

	clock := newManualClock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, clock) }()

	var ticker *manualTicker
	select {
	case ticker = <-clock.ready:
	case <-time.After(time.Second):
		t.Fatal("Run never created a ticker")
	}
	ticker.c <- time.Time{}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !ticker.stopped {
		t.Error("tick source should be stopped")
	}
	if s.State() != Idle {
		t.Errorf("state = %s", s.State())
	}
}

func TestRunStopsOnRenderError(t *testing.T) {
	rec := &recorder{failAt: 2}
	s, _ := New(24, DefaultTick, rec)
	err := s.Play(context.Background(), []board.Cue{{Ordinal: 1, Frames: 1}, {Ordinal: 2, Frames: 1}}, InstantClock{})
	if err == nil {
		t.Fatal("expected render error")
	}
	if s.State() != Idle {
		t.Errorf("state = %s", s.State())
	}
}
