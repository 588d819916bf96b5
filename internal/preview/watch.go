package preview

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/logger"
	"github.com/ivlev/storyboard/internal/project"
)

// Watch reloads the project file whenever it changes on disk. The parent
// directory is watched so that editors replacing the file are noticed too.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", logger.Err(err))
		}
	}
}

// reload replaces the document with the file contents. While a playback
// session holds the document the reload is deferred until the next change
// event or the end of the last session.
func (s *Server) reload() {
	err := project.LoadFile(s.path, s.doc)
	switch {
	case err == nil:
		s.reloadPending.Store(false)
		logger.Info("Project reloaded", logger.String("path", s.path))
	case errors.Is(err, board.ErrFrozen):
		s.reloadPending.Store(true)
		logger.Info("Project reload deferred during playback", logger.String("path", s.path))
	default:
		logger.Warn("Project reload failed", logger.String("path", s.path), logger.Err(err))
	}
}
