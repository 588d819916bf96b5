// Package sketch is the freehand drawing surface: brush strokes rendered
// onto a raster, optionally over existing artwork.
package sketch

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ivlev/storyboard/internal/compose"
)

const (
	DefaultWidth  = 854
	DefaultHeight = 480
)

var (
	paper = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ink   = color.RGBA{A: 255}
)

type Point struct {
	X, Y float32
}

// Brush paints round strokes Size pixels in radius. An eraser paints paper.
type Brush struct {
	Color  color.RGBA
	Size   int
	Eraser bool
}

func DefaultBrush() Brush {
	return Brush{Color: ink, Size: 5}
}

func (b Brush) paint() color.RGBA {
	if b.Eraser {
		return paper
	}
	return b.Color
}

func (b Brush) radius() float32 {
	if b.Size < 1 {
		return 1
	}
	return float32(b.Size)
}

// Canvas owns its raster; callers get copies.
type Canvas struct {
	img   *image.RGBA
	Brush Brush
}

// NewCanvas creates a w x h white canvas. A non-nil background is scaled
// onto it, keeping its aspect ratio, so it can be drawn over.
func NewCanvas(w, h int, background image.Image) *Canvas {
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, image.NewUniform(paper), image.Point{}, draw.Src)

	if background != nil {
		sb := background.Bounds()
		if r := compose.Letterbox(sb.Dx(), sb.Dy(), w, h); !r.Empty() {
			draw.CatmullRom.Scale(img, r, background, sb, draw.Over, nil)
		}
	}
	return &Canvas{img: img, Brush: DefaultBrush()}
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Rect
}

// Image returns a copy of the current raster.
func (c *Canvas) Image() *image.RGBA {
	out := image.NewRGBA(c.img.Rect)
	copy(out.Pix, c.img.Pix)
	return out
}

// Dot stamps a single brush dab, as a press without movement does.
func (c *Canvas) Dot(p Point) {
	z := c.rasterizer()
	circle(z, p, c.Brush.radius())
	c.fill(z)
}

// Line draws a segment with round ends, 2*Size pixels wide.
func (c *Canvas) Line(a, b Point) {
	r := c.Brush.radius()
	z := c.rasterizer()

	dx, dy := b.X-a.X, b.Y-a.Y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length > 0 {
		nx, ny := -dy/length*r, dx/length*r
		z.MoveTo(a.X+nx, a.Y+ny)
		z.LineTo(b.X+nx, b.Y+ny)
		z.LineTo(b.X-nx, b.Y-ny)
		z.LineTo(a.X-nx, a.Y-ny)
		z.ClosePath()
	}
	circle(z, a, r)
	circle(z, b, r)
	c.fill(z)
}

// Stroke is a press at points[0] followed by a drag through the rest.
func (c *Canvas) Stroke(points []Point) {
	if len(points) == 0 {
		return
	}
	c.Dot(points[0])
	for i := 1; i < len(points); i++ {
		c.Line(points[i-1], points[i])
	}
}

func (c *Canvas) rasterizer() *vector.Rasterizer {
	b := c.img.Rect
	return vector.NewRasterizer(b.Dx(), b.Dy())
}

func (c *Canvas) fill(z *vector.Rasterizer) {
	z.DrawOp = draw.Over
	z.Draw(c.img, c.img.Rect, image.NewUniform(c.Brush.paint()), image.Point{})
}

// circle appends a closed polygon approximating a circle.
func circle(z *vector.Rasterizer, center Point, r float32) {
	const segments = 32
	for i := 0; i <= segments; i++ {
		angle := 2 * math.Pi * float64(i) / segments
		x := center.X + r*float32(math.Cos(angle))
		y := center.Y + r*float32(math.Sin(angle))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}
