// Package playback advances through a storyboard sequence in fixed ticks.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/logger"
	"github.com/ivlev/storyboard/internal/timecode"
)

var (
	ErrInvalidFPS    = errors.New("fps must be positive")
	ErrInvalidTick   = errors.New("tick period must be at least 1ms")
	ErrEmptySequence = errors.New("nothing to play: no shot has a duration")
	ErrNotStarted    = errors.New("playback not started")
)

// DefaultTick gives a 25 Hz redraw rate regardless of fps.
const DefaultTick = 40 * time.Millisecond

type State int

const (
	Idle State = iota
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Renderer draws what the scheduler decides. RenderShot is called once per
// shot change and does the expensive composite; RenderTimecode is called on
// every other tick and only refreshes the overlay.
type Renderer interface {
	RenderShot(cue board.Cue, index int) error
	RenderTimecode(cue board.Cue, elapsedMS int) error
}

// Scheduler is the playback state machine. Tick and Stop may be called from
// different goroutines; once Stop returns no further render happens.
type Scheduler struct {
	fps      int
	tick     time.Duration
	renderer Renderer

	mu      sync.Mutex
	cues    []board.Cue
	state   State
	index   int
	elapsed int // ms into the current shot
}

func New(fps int, tick time.Duration, r Renderer) (*Scheduler, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFPS, fps)
	}
	if tick < time.Millisecond {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTick, tick)
	}
	return &Scheduler{fps: fps, tick: tick, renderer: r}, nil
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position returns the current shot index and the ms elapsed within it.
func (s *Scheduler) Position() (index, elapsedMS int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.elapsed
}

// Start resets the cursor and renders the first shot. An empty sequence is
// a no-op: the scheduler stays idle and ErrEmptySequence is returned. If the
// first render fails the scheduler is left Idle.
func (s *Scheduler) Start(cues []board.Cue) error {
	if len(cues) == 0 {
		return ErrEmptySequence
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cues = cues
	s.index = 0
	s.elapsed = 0
	s.state = Playing
	logger.Debug("playback started", logger.Int("cues", len(cues)), logger.Int("fps", s.fps))
	if err := s.renderShot(); err != nil {
		s.reset()
		return err
	}
	return nil
}

// Tick advances the clock by one tick period and returns the new state.
func (s *Scheduler) Tick() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Playing {
		return s.state, nil
	}
	if s.index >= len(s.cues) {
		s.finish()
		return s.state, nil
	}

	totalMS := timecode.Millis(s.cues[s.index].Frames, s.fps)
	if totalMS <= 0 {
		return s.state, s.advance()
	}

	s.elapsed += int(s.tick / time.Millisecond)
	if s.elapsed >= totalMS {
		return s.state, s.advance()
	}

	if s.renderer != nil {
		return s.state, s.renderer.RenderTimecode(s.cues[s.index], min(s.elapsed, totalMS))
	}
	return s.state, nil
}

// Stop halts playback. No render happens after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Playing {
		logger.Debug("playback stopped", logger.Int("index", s.index))
	}
	s.reset()
}

// reset must be called with mu held.
func (s *Scheduler) reset() {
	s.state = Idle
	s.cues = nil
	s.index = 0
	s.elapsed = 0
}

// advance must be called with mu held.
func (s *Scheduler) advance() error {
	s.index++
	s.elapsed = 0
	if s.index >= len(s.cues) {
		s.finish()
		return nil
	}
	return s.renderShot()
}

func (s *Scheduler) finish() {
	s.state = Finished
	logger.Debug("playback finished", logger.Int("cues", len(s.cues)))
}

func (s *Scheduler) renderShot() error {
	cue := s.cues[s.index]
	logger.Debug("shot changed", logger.Int("index", s.index), logger.Int("ordinal", cue.Ordinal), logger.Int("frames", cue.Frames))
	if s.renderer == nil {
		return nil
	}
	return s.renderer.RenderShot(cue, s.index)
}

// Run drives the scheduler from clock until the sequence finishes, the
// context is cancelled or a render fails. Start must have been called.
// The tick source is stopped before Run returns.
func (s *Scheduler) Run(ctx context.Context, clock Clock) error {
	if s.State() != Playing {
		return ErrNotStarted
	}
	if clock == nil {
		clock = RealClock{}
	}

	ticker := clock.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			s.Stop()
			return ctx.Err()
		case <-ticker.C():
			state, err := s.Tick()
			if err != nil {
				ticker.Stop()
				s.Stop()
				return err
			}
			switch state {
			case Finished:
				return nil
			case Idle:
				// stopped from elsewhere
				return nil
			}
		}
	}
}

// Play is Start followed by Run.
func (s *Scheduler) Play(ctx context.Context, cues []board.Cue, clock Clock) error {
	if err := s.Start(cues); err != nil {
		return err
	}
	return s.Run(ctx, clock)
}
