package compose

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/timecode"
)

var (
	gridColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	headerColor = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	cellColor   = color.RGBA{R: 245, G: 245, B: 245, A: 255}
)

// SheetParams sizes a printed page panel.
type SheetParams struct {
	Width, Height int
	FPS           int
	// Slate, when set, is painted at the right end of the footer.
	Slate image.Image
}

// sheetLayout holds the column and row geometry of a page panel.
type sheetLayout struct {
	header, footer image.Rectangle
	rows           [board.RowsPerPage]image.Rectangle
	// column right edges: number, picture, description, duration
	cols [4]int
	pad  int
	line int
}

func layoutSheet(w, h int) sheetLayout {
	var l sheetLayout
	l.pad = max(4, w/150)
	l.line = max(1, w/500)

	headerH := max(20, h/24)
	footerH := max(28, h/14)
	l.header = image.Rect(0, 0, w, headerH)
	l.footer = image.Rect(0, h-footerH, w, h)

	rowH := (h - headerH - footerH) / board.RowsPerPage
	for i := range l.rows {
		y := headerH + i*rowH
		l.rows[i] = image.Rect(0, y, w, y+rowH)
	}

	l.cols[0] = w * 8 / 100
	l.cols[1] = l.cols[0] + min(w*40/100, (rowH-2*l.pad)*16/9+2*l.pad)
	l.cols[3] = w
	l.cols[2] = w - w*18/100
	return l
}

func (l sheetLayout) cell(row, col int) image.Rectangle {
	r := l.rows[row]
	x0 := 0
	if col > 0 {
		x0 = l.cols[col-1]
	}
	return image.Rect(x0, r.Min.Y, l.cols[col], r.Max.Y)
}

// Sheet renders one page as a printable panel: a header row, six shot rows
// with number, picture, description and duration columns, and a footer
// carrying the page total.
func (c *Compositor) Sheet(page *board.Page, p SheetParams) (*image.RGBA, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid sheet %dx%d", p.Width, p.Height)
	}
	fps := p.FPS
	if fps <= 0 {
		fps = c.fps
	}
	l := layoutSheet(p.Width, p.Height)
	dst := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	draw.Draw(dst, dst.Rect, image.NewUniform(white), image.Point{}, draw.Src)
	draw.Draw(dst, l.header, image.NewUniform(headerColor), image.Point{}, draw.Src)

	textPx := max(10, l.rows[0].Dy()/6)
	face, err := c.fonts.Face(textPx, false)
	if err != nil {
		return nil, err
	}
	bold, err := c.fonts.Face(max(10, l.header.Dy()*3/5), true)
	if err != nil {
		return nil, err
	}

	for col, title := range []string{"No.", "Picture", "Description", "Duration"} {
		x0 := 0
		if col > 0 {
			x0 = l.cols[col-1]
		}
		cell := image.Rect(x0, l.header.Min.Y, l.cols[col], l.header.Max.Y)
		drawCentered(dst, bold, title, cell, black)
	}

	for i := range page.Shots {
		s := &page.Shots[i]

		drawCentered(dst, bold, strconv.Itoa(s.Ordinal), l.cell(i, 0), black)

		pic := l.cell(i, 1).Inset(l.pad)
		draw.Draw(dst, pic, image.NewUniform(cellColor), image.Point{}, draw.Src)
		if s.Artwork != nil {
			sb := s.Artwork.Bounds()
			if r := Letterbox(sb.Dx(), sb.Dy(), pic.Dx(), pic.Dy()); !r.Empty() {
				draw.ApproxBiLinear.Scale(dst, r.Add(pic.Min), s.Artwork, sb, draw.Over, nil)
			}
		}

		desc := l.cell(i, 2).Inset(l.pad)
		drawWrapped(dst, face, s.Description, desc)

		drawCentered(dst, face, timecode.Format(s.Frames, fps), l.cell(i, 3), black)
	}

	sec, fr := page.TotalDuration(fps)
	footerText := l.footer
	if p.Slate != nil {
		side := l.footer.Dy() - 2*l.pad
		slate := image.Rect(l.footer.Max.X-l.pad-side, l.footer.Min.Y+l.pad, l.footer.Max.X-l.pad, l.footer.Max.Y-l.pad)
		draw.NearestNeighbor.Scale(dst, slate, p.Slate, p.Slate.Bounds(), draw.Src, nil)
		footerText.Max.X = slate.Min.X
	}
	drawCentered(dst, bold, timecode.TotalLabel(sec, fr), footerText, black)

	drawGrid(dst, l)
	return dst, nil
}

func drawGrid(dst *image.RGBA, l sheetLayout) {
	g := image.NewUniform(gridColor)
	hline := func(y int) {
		draw.Draw(dst, image.Rect(0, y, dst.Rect.Dx(), y+l.line), g, image.Point{}, draw.Src)
	}
	vline := func(x, y0, y1 int) {
		draw.Draw(dst, image.Rect(x-l.line, y0, x, y1), g, image.Point{}, draw.Src)
	}

	hline(l.header.Max.Y - l.line)
	for _, r := range l.rows {
		hline(r.Max.Y - l.line)
	}
	for _, x := range l.cols[:3] {
		vline(x, 0, l.rows[len(l.rows)-1].Max.Y)
	}
	// outer frame
	hline(0)
	hline(dst.Rect.Dy() - l.line)
	vline(l.line, 0, dst.Rect.Dy())
	vline(dst.Rect.Dx(), 0, dst.Rect.Dy())
}

func drawText(dst draw.Image, face font.Face, s string, dot image.Point, col color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face, Dot: fixed.P(dot.X, dot.Y)}
	d.DrawString(s)
}

// drawCentered centers s in r, shortening it to fit the width.
func drawCentered(dst draw.Image, face font.Face, s string, r image.Rectangle, col color.Color) {
	s = fitWidth(face, s, r.Dx()-4)
	if s == "" {
		return
	}
	b, _ := font.BoundString(face, s)
	w := b.Max.X.Ceil() - b.Min.X.Floor()
	m := face.Metrics()
	textH := (m.Ascent + m.Descent).Ceil()
	x := r.Min.X + (r.Dx()-w)/2 - b.Min.X.Floor()
	y := r.Min.Y + (r.Dy()-textH)/2 + m.Ascent.Ceil()
	drawText(dst, face, s, image.Pt(x, y), col)
}

// drawWrapped lays s out in r word by word. Lines that do not fit the
// height are dropped; the last visible line ends with an ellipsis.
func drawWrapped(dst draw.Image, face font.Face, s string, r image.Rectangle) {
	lines := wrap(face, s, r.Dx())
	lineH := face.Metrics().Height.Ceil()
	if lineH <= 0 {
		return
	}
	fit := r.Dy() / lineH
	if len(lines) > fit {
		lines = lines[:fit]
		if fit > 0 {
			lines[fit-1] = fitWidth(face, lines[fit-1]+"…", r.Dx())
		}
	}
	ascent := face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		drawText(dst, face, line, image.Pt(r.Min.X, r.Min.Y+i*lineH+ascent), black)
	}
}

func wrap(face font.Face, s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if inkWidth(face, line+" "+w) <= width {
				line += " " + w
				continue
			}
			lines = append(lines, fitWidth(face, line, width))
			line = w
		}
		lines = append(lines, fitWidth(face, line, width))
	}
	return lines
}
