package compose

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/config"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newCompositor(t *testing.T) *Compositor {
	t.Helper()
	c, err := New(config.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestLetterbox(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		dstW, dstH int
		want       image.Rectangle
	}{
		{"same aspect", 1600, 900, 1920, 1080, image.Rect(0, 0, 1920, 1080)},
		{"4:3 pillarbox", 800, 600, 1920, 1080, image.Rect(240, 0, 1680, 1080)},
		{"wide letterbox", 2000, 500, 1000, 1000, image.Rect(0, 375, 1000, 625)},
		{"square in square", 10, 10, 50, 50, image.Rect(0, 0, 50, 50)},
		{"degenerate", 0, 10, 50, 50, image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Letterbox(tt.srcW, tt.srcH, tt.dstW, tt.dstH)
			if got != tt.want {
				t.Errorf("Letterbox = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLetterboxOffsets(t *testing.T) {
	r := Letterbox(1920, 1080, 1280, 720)
	if r.Min.X != 0 || r.Min.Y != 0 {
		t.Errorf("16:9 into 16:9 should have no offset, got %v", r.Min)
	}

	r = Letterbox(640, 480, 1280, 720)
	if r.Min.X == 0 {
		t.Fatal("4:3 into 16:9 should be pillarboxed")
	}
	if r.Min.X != (1280-r.Dx())/2 {
		t.Errorf("offset_x = %d, want %d", r.Min.X, (1280-r.Dx())/2)
	}
}

func TestComposeExport(t *testing.T) {
	c := newCompositor(t)
	red := color.RGBA{R: 255, A: 255}
	art := solid(800, 600, red)

	p := config.Default().Export()
	frame, err := c.Compose(art, p, 7, "wide shot")
	if err != nil {
		t.Fatal(err)
	}
	if frame.Rect.Dx() != 1920 || frame.Rect.Dy() != 1080 {
		t.Fatalf("unexpected size %v", frame.Rect)
	}

	if got := frame.RGBAAt(100, 540); got != black {
		t.Errorf("pillarbox area should be black, got %v", got)
	}
	if got := frame.RGBAAt(960, 540); got.R < 250 || got.G > 5 || got.B > 5 {
		t.Errorf("artwork area should be red, got %v", got)
	}
	if got := frame.RGBAAt(1800, 540); got != black {
		t.Errorf("right pillarbox should be black, got %v", got)
	}
	if art.RGBAAt(0, 0) != red {
		t.Error("source artwork must not be modified")
	}
}

func TestComposeBlankArtwork(t *testing.T) {
	c := newCompositor(t)
	frame, err := c.Compose(nil, config.Default().Preview(), 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := frame.RGBAAt(480, 270); got != white {
		t.Errorf("missing artwork should render a white panel, got %v", got)
	}
}

func TestComposeRejectsEmptyCanvas(t *testing.T) {
	c := newCompositor(t)
	if _, err := c.Compose(nil, config.PanelParams{}, 1, ""); err == nil {
		t.Error("expected error for empty canvas")
	}
}

func TestOverlayDrawsOnCopy(t *testing.T) {
	c := newCompositor(t)
	base, _ := c.Compose(solid(160, 90, color.RGBA{B: 255, A: 255}), config.PanelParams{Width: 640, Height: 360}, 3, "")
	before := append([]uint8(nil), base.Pix...)

	dst := image.NewRGBA(base.Rect)
	if err := c.Overlay(dst, base, 1520, "closeup"); err != nil {
		t.Fatal(err)
	}

	for i := range before {
		if base.Pix[i] != before[i] {
			t.Fatal("Overlay must not modify the base composite")
		}
	}

	changedLeft, changedRight := 0, 0
	for y := 240; y < 360; y++ {
		for x := 0; x < 640; x++ {
			if dst.RGBAAt(x, y) != base.RGBAAt(x, y) {
				if x < 320 {
					changedLeft++
				} else {
					changedRight++
				}
			}
		}
	}
	if changedLeft == 0 {
		t.Error("timecode should be drawn bottom-left")
	}
	if changedRight == 0 {
		t.Error("description should be drawn bottom-right")
	}

	if err := c.Overlay(image.NewRGBA(image.Rect(0, 0, 10, 10)), base, 0, ""); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestConcurrentRenderingSharesCompositor(t *testing.T) {
	c := newCompositor(t)
	art := solid(320, 180, color.RGBA{G: 200, A: 255})
	p := config.PanelParams{Width: 640, Height: 360}
	page := board.NewPage(2)
	page.Shots[0].Description = "the ferry leaves the harbour"
	page.Shots[0].Frames = 48

	want, err := c.Compose(art, p, 5, "two figures on the pier at dusk")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 5; n++ {
				frame, err := c.Compose(art, p, 5, "two figures on the pier at dusk")
				if err != nil {
					t.Errorf("worker %d: Compose: %v", i, err)
					return
				}
				if !bytes.Equal(frame.Pix, want.Pix) {
					t.Errorf("worker %d: concurrent composite differs from sequential one", i)
					return
				}
				dst := image.NewRGBA(frame.Rect)
				if err := c.Overlay(dst, frame, i*1000+n*40, "closeup"); err != nil {
					t.Errorf("worker %d: Overlay: %v", i, err)
					return
				}
				if _, err := c.Sheet(page, SheetParams{Width: 620, Height: 877, FPS: 24}); err != nil {
					t.Errorf("worker %d: Sheet: %v", i, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestDescriptionStaysInsideCanvas(t *testing.T) {
	c := newCompositor(t)
	face, err := c.Fonts().Face(36, false)
	if err != nil {
		t.Fatal(err)
	}
	bounds := image.Rect(0, 0, 400, 300)

	for _, desc := range []string{"ok", strings.Repeat("a very long description ", 20)} {
		text, dot := bottomRightDot(face, desc, bounds, descriptionMargin)
		box := textBox(face, text, dot)
		if box.Max.X > bounds.Max.X-descriptionMargin || box.Max.Y > bounds.Max.Y-descriptionMargin {
			t.Errorf("%q overflows bottom-right: %v", text, box)
		}
		if box.Min.X < bounds.Min.X+descriptionMargin {
			t.Errorf("%q overflows left: %v", text, box)
		}
	}
}

func TestPreviewRenderer(t *testing.T) {
	c := newCompositor(t)
	var frames []image.Rectangle
	p := NewPreview(c, config.PanelParams{Width: 320, Height: 180, FPS: 24}, func(f *image.RGBA) error {
		frames = append(frames, f.Rect)
		return nil
	})

	cue := board.Cue{Ordinal: 1, Frames: 24, Description: "hello"}
	if err := p.RenderTimecode(cue, 40); err != nil {
		t.Fatal(err)
	}
	if len(frames) != 0 {
		t.Fatal("no frame before the first shot is rendered")
	}

	if err := p.RenderShot(cue, 0); err != nil {
		t.Fatal(err)
	}
	p.RenderTimecode(cue, 40)
	p.Resize(640, 360)
	p.RenderTimecode(cue, 80)
	p.RenderShot(cue, 1)

	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	if frames[2].Dx() != 320 {
		t.Error("resize must wait for the next shot change")
	}
	if frames[3].Dx() != 640 {
		t.Error("resize should apply on shot change")
	}
}

func TestThumbnail(t *testing.T) {
	art := solid(200, 100, color.RGBA{G: 255, A: 255})
	thumb := Thumbnail(art, 50, 50)
	if thumb.Rect.Dx() != 50 || thumb.Rect.Dy() != 50 {
		t.Fatalf("size %v", thumb.Rect)
	}
	if thumb.RGBAAt(25, 2).A != 0 {
		t.Error("letterbox band should be transparent")
	}
	if g := thumb.RGBAAt(25, 25); g.G < 250 {
		t.Errorf("center should be green, got %v", g)
	}
	if Thumbnail(nil, 10, 10).Rect.Dx() != 10 {
		t.Error("nil artwork should still produce an empty thumbnail")
	}
}

func TestFramePool(t *testing.T) {
	pool := NewFramePool()
	r := image.Rect(0, 0, 8, 8)
	a := pool.Get(r)
	if a.Rect != r {
		t.Fatalf("bounds %v", a.Rect)
	}
	pool.Put(a)
	pool.Put(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	pool.Put(nil)
	if b := pool.Get(r); b.Rect != r {
		t.Errorf("bounds %v", b.Rect)
	}
}
