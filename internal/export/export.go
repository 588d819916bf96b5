// Package export renders documents to still images: printable spreads of
// page panels and one full-resolution still per shot.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/compose"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/logger"
)

var (
	ErrNoSuchSpread  = errors.New("no such spread")
	ErrNothingToPlay = errors.New("no shot has a duration")
)

// Engine runs export jobs with a bounded worker pool.
type Engine struct {
	Config *config.Config
	comp   *compose.Compositor
}

func NewEngine(cfg *config.Config, comp *compose.Compositor) *Engine {
	return &Engine{Config: cfg, comp: comp}
}

// SpreadOptions controls spread rendering.
type SpreadOptions struct {
	// QR adds a code encoding the title and page number to every footer.
	QR bool
}

// Spread renders the pages of one spread independently and joins them left
// to right.
func (e *Engine) Spread(ctx context.Context, doc *board.Document, index int, opts SpreadOptions) (*image.RGBA, error) {
	title, _, pages := doc.Snapshot()
	indices := board.SpreadPages(index, len(pages))
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchSpread, index+1)
	}

	panels := make([]*image.RGBA, len(indices))
	g, ctx := errgroup.WithContext(ctx)
	for slot, pageIndex := range indices {
		page := &pages[pageIndex]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			params := compose.SheetParams{
				Width:  e.Config.SheetWidth,
				Height: e.Config.SheetHeight,
				FPS:    e.Config.FPS,
			}
			if opts.QR {
				slate, err := Slate(title, pageIndex+1, e.Config.SheetHeight/14)
				if err != nil {
					return err
				}
				params.Slate = slate
			}
			panel, err := e.comp.Sheet(page, params)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageIndex+1, err)
			}
			panels[slot] = panel
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Concat(panels), nil
}

// Concat places images side by side, top aligned, on a white background.
func Concat(images []*image.RGBA) *image.RGBA {
	w, h := 0, 0
	for _, img := range images {
		w += img.Rect.Dx()
		h = max(h, img.Rect.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Rect, image.White, image.Point{}, draw.Src)

	x := 0
	for _, img := range images {
		r := image.Rect(x, 0, x+img.Rect.Dx(), img.Rect.Dy())
		draw.Draw(dst, r, img, img.Rect.Min, draw.Src)
		x += img.Rect.Dx()
	}
	return dst
}

// Slate encodes "<title> p.<page>" as a size x size QR code.
func Slate(title string, page, size int) (image.Image, error) {
	if title == "" {
		title = "storyboard"
	}
	q, err := qrcode.New(fmt.Sprintf("%s p.%d", title, page), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr slate: %w", err)
	}
	q.DisableBorder = true
	return q.Image(max(size, 21)), nil
}

// StillName is the file name of the export still for a shot.
func StillName(ordinal int) string {
	return fmt.Sprintf("shot_%03d.png", ordinal)
}

// Stills renders every playable shot with the export variant into dir and
// returns the written paths in playback order.
func (e *Engine) Stills(ctx context.Context, doc *board.Document, dir string) ([]string, error) {
	cues := doc.Sequence()
	if len(cues) == 0 {
		return nil, ErrNothingToPlay
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	start := time.Now()
	params := e.Config.Export()
	paths := make([]string, len(cues))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Config.Workers)
	for i, cue := range cues {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := e.comp.ComposeCue(cue, params)
			if err != nil {
				return fmt.Errorf("shot %d: %w", cue.Ordinal, err)
			}
			path := filepath.Join(dir, StillName(cue.Ordinal))
			if err := WriteFile(path, frame, e.Config.JPEGQuality); err != nil {
				return fmt.Errorf("shot %d: %w", cue.Ordinal, err)
			}
			paths[i] = path
			logger.Debug("Still written", logger.Int("shot", cue.Ordinal), logger.String("path", path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Stills exported",
		logger.Int("count", len(paths)),
		logger.String("dir", dir),
		logger.Duration("elapsed", time.Since(start)))
	return paths, nil
}

// Encode writes img as JPEG for .jpg/.jpeg and PNG for anything else.
func Encode(w io.Writer, img image.Image, ext string, quality int) error {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return png.Encode(w, img)
	}
}

// WriteFile encodes img to path, choosing the format by extension.
func WriteFile(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, filepath.Ext(path), quality); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
