package board

import (
	"fmt"
	"image"
	"strings"

	"github.com/ivlev/storyboard/internal/timecode"
)

// Mode is the authoring mode: how new artwork is acquired.
type Mode string

const (
	ModeUpload Mode = "upload"
	ModeDraw   Mode = "draw"
)

// ParseMode accepts "upload" or "draw" (case-insensitive). An empty string
// means upload.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeUpload):
		return ModeUpload, nil
	case string(ModeDraw):
		return ModeDraw, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Shot is one storyboard cell.
type Shot struct {
	Ordinal     int
	Description string
	Frames      int // 0 means unset; such shots are skipped by playback
	Mode        Mode
	// Artwork is the full-resolution raster. Thumbnails are always derived
	// from it and never stored.
	Artwork image.Image
}

func (s *Shot) HasArtwork() bool {
	return s.Artwork != nil
}

// Duration returns the shot's length normalized to seconds and frames.
func (s *Shot) Duration(fps int) (seconds, frames int) {
	return timecode.Split(s.Frames, fps)
}
