package compose

import (
	"image"
	"sync"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/config"
)

// Sink receives each finished preview frame. The frame is recycled after
// the call returns, so a sink must copy or encode it before returning.
type Sink func(frame *image.RGBA) error

// Preview is the live playback renderer: the letterboxed composite is built
// once per shot change and the cheap overlay is redrawn on every tick.
type Preview struct {
	c    *Compositor
	sink Sink
	pool *FramePool

	mu     sync.Mutex
	params config.PanelParams
	base   *image.RGBA
}

func NewPreview(c *Compositor, params config.PanelParams, sink Sink) *Preview {
	return &Preview{c: c, sink: sink, pool: NewFramePool(), params: params}
}

// Resize changes the canvas size; it applies from the next shot change.
func (p *Preview) Resize(w, h int) {
	p.mu.Lock()
	p.params.Width, p.params.Height = w, h
	p.mu.Unlock()
}

func (p *Preview) RenderShot(cue board.Cue, index int) error {
	p.mu.Lock()
	params := p.params
	p.mu.Unlock()

	base, err := p.c.Compose(cue.Artwork, params, cue.Ordinal, "")
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.base = base
	p.mu.Unlock()
	return p.RenderTimecode(cue, 0)
}

func (p *Preview) RenderTimecode(cue board.Cue, elapsedMS int) error {
	p.mu.Lock()
	base := p.base
	p.mu.Unlock()
	if base == nil {
		return nil
	}

	frame := p.pool.Get(base.Rect)
	defer p.pool.Put(frame)

	if err := p.c.Overlay(frame, base, elapsedMS, cue.Description); err != nil {
		return err
	}
	if p.sink == nil {
		return nil
	}
	return p.sink(frame)
}
