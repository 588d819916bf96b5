package preview

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/compose"
	"github.com/ivlev/storyboard/internal/export"
	"github.com/ivlev/storyboard/internal/logger"
	"github.com/ivlev/storyboard/internal/timecode"
)

const (
	defaultThumbWidth  = 160
	defaultThumbHeight = 90
	maxThumbSide       = 1920
)

type ShotSummary struct {
	Ordinal     int    `json:"ordinal"`
	Frames      int    `json:"frames"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
	Mode        string `json:"mode"`
	HasArtwork  bool   `json:"has_artwork"`
	Action      string `json:"action"`
}

type PageSummary struct {
	StartOrdinal int           `json:"start_ordinal"`
	Total        string        `json:"total"`
	Shots        []ShotSummary `json:"shots"`
}

type ProjectSummary struct {
	Title   string        `json:"title"`
	Mode    string        `json:"mode"`
	FPS     int           `json:"fps"`
	Spreads int           `json:"spreads"`
	Frozen  bool          `json:"frozen"`
	Pages   []PageSummary `json:"pages"`
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// Summarize describes the document the way the spread view presents it.
func Summarize(doc *board.Document, fps int) ProjectSummary {
	title, mode, pages := doc.Snapshot()
	out := ProjectSummary{
		Title:   title,
		Mode:    string(mode),
		FPS:     fps,
		Spreads: board.SpreadCount(len(pages)),
		Frozen:  doc.Frozen(),
	}
	for i := range pages {
		p := &pages[i]
		sec, fr := p.TotalDuration(fps)
		ps := PageSummary{StartOrdinal: p.StartOrdinal, Total: timecode.TotalLabel(sec, fr)}
		for j := range p.Shots {
			shot := &p.Shots[j]
			summary := ShotSummary{
				Ordinal:     shot.Ordinal,
				Frames:      shot.Frames,
				Duration:    timecode.Format(shot.Frames, fps),
				Description: shot.Description,
				Mode:        string(shot.Mode),
				HasArtwork:  shot.HasArtwork(),
			}
			// An edit since the snapshot may have dropped the page.
			if action, err := doc.CellAction(shot.Ordinal); err == nil {
				summary.Action = action.String()
			}
			ps.Shots = append(ps.Shots, summary)
		}
		out.Pages = append(out.Pages, ps)
	}
	return out
}

func (s *Server) ProjectHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Summarize(s.doc, s.cfg.FPS)); err != nil {
		logger.Warn("project summary write failed", logger.Err(err))
	}
}

func (s *Server) SpreadHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid spread index", http.StatusBadRequest)
		return
	}

	opts := export.SpreadOptions{QR: r.URL.Query().Get("qr") == "1"}
	img, err := s.exporter.Spread(r.Context(), s.doc, index, opts)
	if err != nil {
		if errors.Is(err, export.ErrNoSuchSpread) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logger.Error("spread render failed", logger.Int("spread", index), logger.Err(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := export.Encode(w, img, ".png", s.cfg.JPEGQuality); err != nil {
		logger.Warn("spread write failed", logger.Err(err))
	}
}

func (s *Server) ThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	ordinal, err := strconv.Atoi(chi.URLParam(r, "ordinal"))
	if err != nil {
		http.Error(w, "invalid shot number", http.StatusBadRequest)
		return
	}
	width, ok := sizeParam(r, "w", defaultThumbWidth)
	if !ok {
		http.Error(w, "invalid width", http.StatusBadRequest)
		return
	}
	height, ok := sizeParam(r, "h", defaultThumbHeight)
	if !ok {
		http.Error(w, "invalid height", http.StatusBadRequest)
		return
	}

	shot, err := s.doc.Shot(ordinal)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !shot.HasArtwork() {
		http.Error(w, "shot has no artwork", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := export.Encode(w, compose.Thumbnail(shot.Artwork, width, height), ".png", s.cfg.JPEGQuality); err != nil {
		logger.Warn("thumbnail write failed", logger.Err(err))
	}
}

func sizeParam(r *http.Request, key string, fallback int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxThumbSide {
		return 0, false
	}
	return n, true
}
