package preview

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/compose"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/playback"
	"github.com/ivlev/storyboard/internal/project"
)

func newTestServer(t *testing.T, path string) (*Server, *board.Document) {
	t.Helper()
	cfg := config.Default()
	cfg.PreviewWidth, cfg.PreviewHeight = 160, 90
	cfg.SheetWidth, cfg.SheetHeight = 300, 420
	comp, err := compose.New(cfg)
	if err != nil {
		t.Fatalf("compose.New: %v", err)
	}
	doc := board.New(cfg.FPS)
	s := NewServer(cfg, doc, comp, path)
	s.Clock = playback.InstantClock{}
	return s, doc
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPing(t *testing.T) {
	s, _ := newTestServer(t, "")
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp := get(t, srv, "/ping")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "pong" {
		t.Errorf("ping = %d %q", resp.StatusCode, body)
	}
}

func TestProjectSummary(t *testing.T) {
	s, doc := newTestServer(t, "")
	doc.SetTitle("Harbour")
	doc.SetDuration(1, "2s10f")
	doc.SetDuration(2, "6f")
	doc.SetArtwork(3, image.NewRGBA(image.Rect(0, 0, 4, 4)), board.ModeDraw)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	var got ProjectSummary
	if err := json.NewDecoder(get(t, srv, "/api/project").Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Harbour" || got.Spreads != 2 || len(got.Pages) != board.TotalPages {
		t.Fatalf("summary = %+v", got)
	}
	first := got.Pages[0]
	if first.Total != "Total Duration: 2 s + 16 f" {
		t.Errorf("page total = %q", first.Total)
	}
	if first.Shots[0].Duration != "2s + 10f" || first.Shots[0].Frames != 58 {
		t.Errorf("shot 1 = %+v", first.Shots[0])
	}
	if !first.Shots[2].HasArtwork || first.Shots[2].Action != board.ActionEditDrawing.String() {
		t.Errorf("shot 3 = %+v", first.Shots[2])
	}
}

func TestSpreadAndThumbnail(t *testing.T) {
	s, doc := newTestServer(t, "")
	art := image.NewRGBA(image.Rect(0, 0, 32, 18))
	for i := range art.Pix {
		art.Pix[i] = 255
	}
	doc.SetArtwork(1, art, board.ModeUpload)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	tests := []struct {
		name   string
		path   string
		status int
		w, h   int
	}{
		{"spread", "/api/spreads/1?qr=1", http.StatusOK, 600, 420},
		{"missing spread", "/api/spreads/7", http.StatusNotFound, 0, 0},
		{"bad spread", "/api/spreads/x", http.StatusBadRequest, 0, 0},
		{"thumbnail", "/api/shots/1/thumbnail?w=64&h=36", http.StatusOK, 64, 36},
		{"default thumbnail", "/api/shots/1/thumbnail", http.StatusOK, 160, 90},
		{"no artwork", "/api/shots/2/thumbnail", http.StatusNotFound, 0, 0},
		{"no such shot", "/api/shots/99/thumbnail", http.StatusNotFound, 0, 0},
		{"bad size", "/api/shots/1/thumbnail?w=0", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv, tt.path)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			cfg, err := png.DecodeConfig(resp.Body)
			if err != nil {
				t.Fatalf("not a png: %v", err)
			}
			if cfg.Width != tt.w || cfg.Height != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.w, tt.h)
			}
		})
	}
}

func dialPlay(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/play"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPlayStreamsEveryRender(t *testing.T) {
	s, doc := newTestServer(t, "")
	doc.SetFrames(1, 24)
	doc.SetFrames(2, 12)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()
	conn := dialPlay(t, srv)
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	frames := 0
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read after %d frames: %v", frames, err)
		}
		if kind == websocket.TextMessage {
			if string(data) != FinishedMessage {
				t.Fatalf("text message %q", data)
			}
			break
		}
		if frames == 0 {
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("frame is not a jpeg: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 160 || b.Dy() != 90 {
				t.Errorf("frame size = %v", b)
			}
		}
		frames++
	}

	// one shot render plus a timecode render per tick below the shot length
	if want := (1 + 24) + (1 + 12); frames != want {
		t.Errorf("frames = %d, want %d", frames, want)
	}
}

func TestPlayEmptySequenceFinishesImmediately(t *testing.T) {
	s, _ := newTestServer(t, "")
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	conn := dialPlay(t, srv)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil || kind != websocket.TextMessage || string(data) != FinishedMessage {
		t.Fatalf("got %d %q %v, want finished", kind, data, err)
	}
}

func TestPlayResizeAppliesFromNextShot(t *testing.T) {
	s, doc := newTestServer(t, "")
	s.Clock = playback.RealClock{}
	doc.SetFrames(1, 24)
	doc.SetFrames(2, 2)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()
	conn := dialPlay(t, srv)
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	if kind, _, err := conn.ReadMessage(); err != nil || kind != websocket.BinaryMessage {
		t.Fatalf("first frame: %d %v", kind, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("size 320x180")); err != nil {
		t.Fatal(err)
	}

	var last image.Rectangle
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if kind == websocket.TextMessage {
			break
		}
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("frame is not a jpeg: %v", err)
		}
		last = img.Bounds()
	}
	if last.Dx() != 320 || last.Dy() != 180 {
		t.Errorf("second shot size = %v, want 320x180", last)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		w, h int
		ok   bool
	}{
		{"320x180", 320, 180, true},
		{"1x1", 1, 1, true},
		{"320", 0, 0, false},
		{"0x180", 0, 0, false},
		{"320x-1", 0, 0, false},
		{"axb", 0, 0, false},
		{"99999x10", 0, 0, false},
	}
	for _, tt := range tests {
		w, h, ok := parseSize(tt.in)
		if w != tt.w || h != tt.h || ok != tt.ok {
			t.Errorf("parseSize(%q) = %d, %d, %v", tt.in, w, h, ok)
		}
	}
}

func waitUnfrozen(t *testing.T, doc *board.Document) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for doc.Frozen() {
		if time.Now().After(deadline) {
			t.Fatal("document still frozen")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPlayFreezesUntilStopped(t *testing.T) {
	s, doc := newTestServer(t, "")
	s.Clock = playback.RealClock{}
	doc.SetFrames(1, 24*60)

	srv := httptest.NewServer(s.Router())
	defer srv.Close()
	conn := dialPlay(t, srv)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if kind, _, err := conn.ReadMessage(); err != nil || kind != websocket.BinaryMessage {
		t.Fatalf("first frame: %d %v", kind, err)
	}
	if !doc.Frozen() {
		t.Fatal("document not frozen during playback")
	}
	if err := doc.SetDescription(1, "late edit"); err == nil {
		t.Error("edit accepted during playback")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(StopMessage)); err != nil {
		t.Fatal(err)
	}
	waitUnfrozen(t, doc)
	if err := doc.SetDescription(1, "after"); err != nil {
		t.Errorf("edit after stop: %v", err)
	}
}

func TestReloadDeferredWhileFrozen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	s, doc := newTestServer(t, path)

	onDisk := board.New(24)
	onDisk.SetTitle("from disk")
	if err := project.SaveFile(path, onDisk); err != nil {
		t.Fatal(err)
	}

	release := doc.Freeze()
	s.reload()
	if !s.reloadPending.Load() {
		t.Error("reload not marked pending while frozen")
	}
	if title, _, _ := doc.Snapshot(); title == "from disk" {
		t.Error("frozen document was replaced")
	}

	release()
	s.reload()
	if s.reloadPending.Load() {
		t.Error("pending flag not cleared")
	}
	if title, _, _ := doc.Snapshot(); title != "from disk" {
		t.Errorf("title = %q after reload", title)
	}
}

func TestSummarizeDrawMode(t *testing.T) {
	doc := board.New(24)
	if err := doc.SwitchMode(board.ModeDraw); err != nil {
		t.Fatal(err)
	}
	got := Summarize(doc, 24)
	if got.Mode != "draw" || got.Pages[0].Shots[0].Action != board.ActionDraw.String() {
		t.Errorf("summary = %+v", got.Pages[0].Shots[0])
	}
}
