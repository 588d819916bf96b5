// Package preview serves a storyboard over HTTP: spreads and thumbnails as
// images, and live playback as a websocket frame stream.
package preview

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/compose"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/export"
	"github.com/ivlev/storyboard/internal/logger"
	"github.com/ivlev/storyboard/internal/playback"
)

type Server struct {
	cfg      *config.Config
	doc      *board.Document
	comp     *compose.Compositor
	exporter *export.Engine

	// path is the project file reloaded on change; empty disables watching.
	path string
	// Clock drives playback sessions; nil means wall-clock ticks.
	Clock playback.Clock

	upgrader      websocket.Upgrader
	sessions      atomic.Int32
	reloadPending atomic.Bool
}

func NewServer(cfg *config.Config, doc *board.Document, comp *compose.Compositor, path string) *Server {
	return &Server{
		cfg:      cfg,
		doc:      doc,
		comp:     comp,
		exporter: export.NewEngine(cfg, comp),
		path:     path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Route("/api", func(r chi.Router) {
		r.Get("/project", s.ProjectHandler)
		r.Get("/spreads/{index}", s.SpreadHandler)
		r.Get("/shots/{ordinal}/thumbnail", s.ThumbnailHandler)
	})
	r.Get("/ws/play", s.PlayHandler)

	return r
}

// ListenAndServe serves until ctx is cancelled, watching the project file
// alongside when a path was given.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.path != "" {
		go func() {
			if err := s.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Project watcher stopped", logger.Err(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Preview server listening", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}
