package compose

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/timecode"
)

const (
	labelMargin       = 10
	descriptionMargin = 15
)

// Compositor renders shot frames. It is safe for concurrent use: every
// render builds its own font faces.
type Compositor struct {
	fonts  *Fonts
	fps    int
	blank  color.RGBA
	blankW int
	blankH int
}

func New(cfg *config.Config) (*Compositor, error) {
	fonts, err := NewFonts()
	if err != nil {
		return nil, err
	}
	blank, err := config.ParseColor(cfg.BlankColor)
	if err != nil {
		return nil, err
	}
	return &Compositor{
		fonts:  fonts,
		fps:    cfg.FPS,
		blank:  blank,
		blankW: cfg.BlankWidth,
		blankH: cfg.BlankHeight,
	}, nil
}

func (c *Compositor) Fonts() *Fonts {
	return c.fonts
}

// Compose renders one shot onto a black p.Width x p.Height canvas: the
// artwork letterboxed and centered, the shot label top-left and, for the
// export variant, the description bottom-right. A shot without artwork gets
// a blank panel instead.
func (c *Compositor) Compose(art image.Image, p config.PanelParams, ordinal int, description string) (*image.RGBA, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas %dx%d", p.Width, p.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	draw.Draw(dst, dst.Rect, image.NewUniform(black), image.Point{}, draw.Src)

	c.paintArtwork(dst, art)

	label := fmt.Sprintf("Cut no. %d", ordinal)
	size := max(10, p.Height/20)
	if p.Export {
		label = fmt.Sprintf("#%d", ordinal)
		size = max(24, p.Height/20)
	}
	face, err := c.fonts.Face(size, false)
	if err != nil {
		return nil, err
	}
	drawShadowed(dst, face, label, topLeftDot(face, labelMargin, labelMargin), thinShadow)

	if p.Export && description != "" {
		if err := c.drawDescription(dst, description); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// ComposeCue is Compose for a playback cue.
func (c *Compositor) ComposeCue(cue board.Cue, p config.PanelParams) (*image.RGBA, error) {
	return c.Compose(cue.Artwork, p, cue.Ordinal, cue.Description)
}

// paintArtwork scales art into its letterbox rectangle and returns it.
func (c *Compositor) paintArtwork(dst *image.RGBA, art image.Image) image.Rectangle {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	if art == nil {
		r := Letterbox(c.blankW, c.blankH, w, h)
		draw.Draw(dst, r, image.NewUniform(c.blank), image.Point{}, draw.Src)
		return r
	}

	sb := art.Bounds()
	r := Letterbox(sb.Dx(), sb.Dy(), w, h)
	if r.Empty() {
		return r
	}
	draw.CatmullRom.Scale(dst, r, art, sb, draw.Over, nil)
	return r
}

func (c *Compositor) drawDescription(dst *image.RGBA, description string) error {
	face, err := c.fonts.Face(max(18, dst.Rect.Dy()/30), false)
	if err != nil {
		return err
	}
	text, dot := bottomRightDot(face, description, dst.Rect, descriptionMargin)
	if text == "" {
		return nil
	}
	drawShadowed(dst, face, text, dot, thinShadow)
	return nil
}

// Overlay copies base into dst and burns in the running timecode
// (bottom-left) and the description (bottom-right). dst and base must have
// the same bounds.
func (c *Compositor) Overlay(dst, base *image.RGBA, elapsedMS int, description string) error {
	if dst.Rect != base.Rect {
		return fmt.Errorf("overlay size mismatch: %v vs %v", dst.Rect, base.Rect)
	}
	draw.Draw(dst, dst.Rect, base, base.Rect.Min, draw.Src)

	h := dst.Rect.Dy()
	size := max(24, h/20)
	face, err := c.fonts.Face(size, true)
	if err != nil {
		return err
	}
	margin := h / 30
	text := timecode.Elapsed(elapsedMS, c.fps)
	dot := topLeftDot(face, dst.Rect.Min.X+margin, dst.Rect.Max.Y-margin-size)
	drawShadowed(dst, face, text, dot, wideShadow)

	if description != "" {
		return c.drawDescription(dst, description)
	}
	return nil
}

// Thumbnail derives a w x h preview of img, letterboxed on a transparent
// background. It never modifies img.
func Thumbnail(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if img == nil || w <= 0 || h <= 0 {
		return dst
	}
	sb := img.Bounds()
	r := Letterbox(sb.Dx(), sb.Dy(), w, h)
	if !r.Empty() {
		draw.ApproxBiLinear.Scale(dst, r, img, sb, draw.Src, nil)
	}
	return dst
}
