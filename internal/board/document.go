// Package board holds the storyboard document model: shots grouped into
// fixed-size pages, browsed two pages at a time.
package board

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ivlev/storyboard/internal/timecode"
)

var (
	ErrFrozen      = errors.New("document is frozen while a playback session is open")
	ErrNoSuchShot  = errors.New("no such shot")
	ErrInvalidMode = errors.New("invalid mode")
)

// Action is what a click on a storyboard cell should do.
type Action int

const (
	ActionUpload Action = iota
	ActionDraw
	ActionEditDrawing
)

func (a Action) String() string {
	switch a {
	case ActionUpload:
		return "upload"
	case ActionDraw:
		return "draw"
	case ActionEditDrawing:
		return "edit-drawing"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Cue is one entry of a playback sequence. Artwork is a read-only reference
// into the document; the document stays frozen while cues are in use.
type Cue struct {
	Artwork     image.Image
	Frames      int
	Ordinal     int
	Description string
}

// Document is a whole storyboard project.
type Document struct {
	Title string
	// Mode is the document-wide editing mode shared by every page.
	Mode  Mode
	Pages []*Page
	FPS   int
	// ClearArtworkOnDraw discards all artwork when switching into draw mode.
	// When false, artwork always survives a mode switch.
	ClearArtworkOnDraw bool

	mu    sync.RWMutex
	holds int
}

// New creates an empty document with TotalPages pages.
func New(fps int) *Document {
	if fps <= 0 {
		fps = timecode.DefaultFPS
	}
	d := &Document{Mode: ModeUpload, FPS: fps}
	d.Pages = make([]*Page, TotalPages)
	for i := range d.Pages {
		d.Pages[i] = NewPage(StartOrdinalFor(i))
	}
	return d
}

// Freeze blocks edits until the returned release func is called. Holds
// nest; the document thaws when the last one is released.
func (d *Document) Freeze() (release func()) {
	d.mu.Lock()
	d.holds++
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			d.holds--
			d.mu.Unlock()
		})
	}
}

func (d *Document) Frozen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.holds > 0
}

// edit runs fn under the write lock unless the document is frozen.
func (d *Document) edit(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.holds > 0 {
		return ErrFrozen
	}
	return fn()
}

// shot must be called with mu held.
func (d *Document) shot(ordinal int) (*Shot, error) {
	for _, p := range d.Pages {
		if p.Contains(ordinal) {
			return &p.Shots[ordinal-p.StartOrdinal], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrNoSuchShot, ordinal)
}

// Shot returns a copy of the shot with the given ordinal.
func (d *Document) Shot(ordinal int) (Shot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, err := d.shot(ordinal)
	if err != nil {
		return Shot{}, err
	}
	return *s, nil
}

// ShotCount is the number of cells in the document.
func (d *Document) ShotCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.Pages) * RowsPerPage
}

func (d *Document) SetTitle(title string) error {
	return d.edit(func() error {
		d.Title = title
		return nil
	})
}

// SetDuration parses text with the document frame rate and stores the
// result. Bad text resolves to 0 frames rather than an error.
func (d *Document) SetDuration(ordinal int, text string) (int, error) {
	frames := timecode.Parse(text, d.FPS)
	return frames, d.SetFrames(ordinal, frames)
}

func (d *Document) SetFrames(ordinal, frames int) error {
	if frames < 0 {
		frames = 0
	}
	return d.edit(func() error {
		s, err := d.shot(ordinal)
		if err != nil {
			return err
		}
		s.Frames = frames
		return nil
	})
}

func (d *Document) SetDescription(ordinal int, text string) error {
	return d.edit(func() error {
		s, err := d.shot(ordinal)
		if err != nil {
			return err
		}
		s.Description = text
		return nil
	})
}

// SetArtwork replaces a shot's artwork and records how it was acquired.
func (d *Document) SetArtwork(ordinal int, img image.Image, mode Mode) error {
	if mode != ModeUpload && mode != ModeDraw {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return d.edit(func() error {
		s, err := d.shot(ordinal)
		if err != nil {
			return err
		}
		s.Artwork = img
		s.Mode = mode
		return nil
	})
}

func (d *Document) ClearArtwork(ordinal int) error {
	return d.edit(func() error {
		s, err := d.shot(ordinal)
		if err != nil {
			return err
		}
		s.Artwork = nil
		return nil
	})
}

// SwitchMode changes the editing mode of every page at once. Artwork is
// kept unless ClearArtworkOnDraw is set and the new mode is draw.
func (d *Document) SwitchMode(mode Mode) error {
	if mode != ModeUpload && mode != ModeDraw {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return d.edit(func() error {
		d.Mode = mode
		if mode == ModeDraw && d.ClearArtworkOnDraw {
			for _, p := range d.Pages {
				for i := range p.Shots {
					p.Shots[i].Artwork = nil
				}
			}
		}
		return nil
	})
}

// CellAction decides what clicking a cell does. Existing artwork always
// opens the full-size drawing editor; the mode only matters for empty cells.
func (d *Document) CellAction(ordinal int) (Action, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, err := d.shot(ordinal)
	if err != nil {
		return 0, err
	}
	return actionFor(s, d.Mode), nil
}

func actionFor(s *Shot, mode Mode) Action {
	switch {
	case s.HasArtwork():
		return ActionEditDrawing
	case mode == ModeDraw:
		return ActionDraw
	default:
		return ActionUpload
	}
}

// Sequence flattens the document into playback order, dropping every shot
// whose duration is unset.
func (d *Document) Sequence() []Cue {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var cues []Cue
	for _, p := range d.Pages {
		for i := range p.Shots {
			s := &p.Shots[i]
			if s.Frames <= 0 {
				continue
			}
			cues = append(cues, Cue{
				Artwork:     s.Artwork,
				Frames:      s.Frames,
				Ordinal:     s.Ordinal,
				Description: s.Description,
			})
		}
	}
	return cues
}

// Replace overwrites this document's content with src field by field.
// src must not be used afterwards.
func (d *Document) Replace(src *Document) error {
	if src == d {
		return nil
	}
	src.mu.RLock()
	title, mode, pages := src.Title, src.Mode, src.Pages
	src.mu.RUnlock()

	return d.edit(func() error {
		d.Title = title
		d.Mode = mode
		d.Pages = pages
		return nil
	})
}

// Snapshot returns a copy of the page list that is safe to read while the
// document keeps changing. Artwork images are shared, not copied.
func (d *Document) Snapshot() (title string, mode Mode, pages []Page) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pages = make([]Page, len(d.Pages))
	for i, p := range d.Pages {
		pages[i] = *p
	}
	return d.Title, d.Mode, pages
}
