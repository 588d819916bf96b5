package compose

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}

	// Shadow offsets drawn behind the glyphs.
	thinShadow = []image.Point{image.Pt(-1, -1), image.Pt(-1, 1), image.Pt(1, -1), image.Pt(1, 1)}
	wideShadow = []image.Point{image.Pt(-2, -2), image.Pt(-2, 2), image.Pt(2, -2), image.Pt(2, 2)}
)

// Fonts holds the parsed Go fonts. Parsed fonts are safe to share; the
// faces built from them are not, so each caller gets its own face.
type Fonts struct {
	regular *opentype.Font
	bold    *opentype.Font
}

func NewFonts() (*Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Fonts{regular: regular, bold: bold}, nil
}

// Face returns a new face whose em size is px pixels. The face keeps glyph
// caches internally and must not be used from more than one goroutine.
func (f *Fonts) Face(px int, bold bool) (font.Face, error) {
	if px < 1 {
		px = 1
	}
	src := f.regular
	if bold {
		src = f.bold
	}
	return opentype.NewFace(src, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// textBox is the ink rectangle of s drawn with its baseline origin at dot.
func textBox(face font.Face, s string, dot image.Point) image.Rectangle {
	b, _ := font.BoundString(face, s)
	return image.Rect(
		dot.X+b.Min.X.Floor(), dot.Y+b.Min.Y.Floor(),
		dot.X+b.Max.X.Ceil(), dot.Y+b.Max.Y.Ceil(),
	)
}

// drawShadowed draws s in fg with its baseline origin at dot, first drawing
// it in shadow color at every offset.
func drawShadowed(dst draw.Image, face font.Face, s string, dot image.Point, offsets []image.Point) {
	d := &font.Drawer{Dst: dst, Face: face}

	d.Src = image.NewUniform(black)
	for _, o := range offsets {
		d.Dot = fixed.P(dot.X+o.X, dot.Y+o.Y)
		d.DrawString(s)
	}

	d.Src = image.NewUniform(white)
	d.Dot = fixed.P(dot.X, dot.Y)
	d.DrawString(s)
}

// topLeftDot puts the top of the face's ascent at (x, y).
func topLeftDot(face font.Face, x, y int) image.Point {
	return image.Pt(x, y+face.Metrics().Ascent.Ceil())
}

// bottomRightDot places s so its ink box ends margin pixels from the bottom
// right corner of bounds. Text that would cross the left margin is cut
// short with an ellipsis.
func bottomRightDot(face font.Face, s string, bounds image.Rectangle, margin int) (string, image.Point) {
	maxWidth := bounds.Dx() - 2*margin
	s = fitWidth(face, s, maxWidth)

	b, _ := font.BoundString(face, s)
	x := bounds.Max.X - margin - b.Max.X.Ceil()
	y := bounds.Max.Y - margin - b.Max.Y.Ceil()
	return s, image.Pt(x, y)
}

func inkWidth(face font.Face, s string) int {
	b, _ := font.BoundString(face, s)
	return b.Max.X.Ceil() - b.Min.X.Floor()
}

// fitWidth trims s rune by rune until its ink fits within maxWidth.
func fitWidth(face font.Face, s string, maxWidth int) string {
	if maxWidth <= 0 || inkWidth(face, s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if inkWidth(face, candidate) <= maxWidth {
			return candidate
		}
	}
	return ""
}
