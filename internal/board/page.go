package board

import "github.com/ivlev/storyboard/internal/timecode"

const (
	RowsPerPage = 6
	TotalPages  = 4
)

// Page is a fixed-size group of shots numbered consecutively from StartOrdinal.
type Page struct {
	StartOrdinal int
	Shots        [RowsPerPage]Shot
}

// NewPage creates an empty page whose shots are numbered start..start+5.
func NewPage(start int) *Page {
	p := &Page{StartOrdinal: start}
	for i := range p.Shots {
		p.Shots[i] = Shot{Ordinal: start + i, Mode: ModeUpload}
	}
	return p
}

// StartOrdinalFor returns the first ordinal of the page at index.
func StartOrdinalFor(index int) int {
	return index*RowsPerPage + 1
}

// Contains reports whether ordinal falls on this page.
func (p *Page) Contains(ordinal int) bool {
	return ordinal >= p.StartOrdinal && ordinal < p.StartOrdinal+RowsPerPage
}

// TotalFrames sums the frame counts of every shot on the page.
func (p *Page) TotalFrames() int {
	total := 0
	for i := range p.Shots {
		total += p.Shots[i].Frames
	}
	return total
}

// TotalDuration normalizes the page sum once, after summing raw frames.
// It is never cached: call it whenever the page is shown.
func (p *Page) TotalDuration(fps int) (seconds, frames int) {
	return timecode.Split(p.TotalFrames(), fps)
}
