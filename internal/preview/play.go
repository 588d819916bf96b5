package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ivlev/storyboard/internal/compose"
	"github.com/ivlev/storyboard/internal/logger"
	"github.com/ivlev/storyboard/internal/playback"
)

const (
	// FinishedMessage is the text frame sent after the last shot.
	FinishedMessage = "finished"
	// StopMessage, sent by the client, ends the session early.
	StopMessage = "stop"
	// ResizePrefix starts a client message "size WxH" that changes the
	// frame size from the next shot on.
	ResizePrefix = "size "

	writeWait = 5 * time.Second
)

// PlayHandler streams one playback session: a binary JPEG message per
// render and FinishedMessage when the sequence ends. The document stays
// frozen until the session is over; closing the socket stops playback
// before the handler returns.
func (s *Server) PlayHandler(w http.ResponseWriter, r *http.Request) {
	params := s.cfg.Preview()
	if width, ok := sizeParam(r, "w", params.Width); ok {
		params.Width = width
	}
	if height, ok := sizeParam(r, "h", params.Height); ok {
		params.Height = height
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.Err(err))
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	log := logger.L().With(logger.String("session", session))

	release := s.doc.Freeze()
	s.sessions.Add(1)
	defer func() {
		release()
		if s.sessions.Add(-1) == 0 && s.reloadPending.Load() {
			s.reload()
		}
	}()

	var buf bytes.Buffer
	sink := func(frame *image.RGBA) error {
		buf.Reset()
		if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: s.cfg.JPEGQuality}); err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.BinaryMessage, buf.Bytes())
	}

	pv := compose.NewPreview(s.comp, params, sink)
	sched, err := playback.New(s.cfg.FPS, s.cfg.Tick(), pv)
	if err != nil {
		log.Error("scheduler init failed", logger.Err(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer cancel()
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			text := string(msg)
			switch {
			case text == StopMessage:
				return
			case strings.HasPrefix(text, ResizePrefix):
				if w, h, ok := parseSize(strings.TrimPrefix(text, ResizePrefix)); ok {
					pv.Resize(w, h)
				} else {
					log.Debug("ignoring bad resize", logger.String("size", text))
				}
			}
		}
	}()

	cues := s.doc.Sequence()
	log.Info("Playback session started", logger.Int("cues", len(cues)))
	start := time.Now()

	err = sched.Play(ctx, cues, s.Clock)
	switch {
	case err == nil, errors.Is(err, playback.ErrEmptySequence):
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(FinishedMessage)); err != nil {
			log.Warn("finish message failed", logger.Err(err))
		}
		log.Info("Playback session finished", logger.Duration("elapsed", time.Since(start)))
	case errors.Is(err, context.Canceled):
		log.Info("Playback session closed by client", logger.Duration("elapsed", time.Since(start)))
	default:
		log.Warn("Playback session aborted", logger.Err(err))
	}
}

// parseSize reads "WxH" with each side bounded like the w and h query
// parameters.
func parseSize(v string) (w, h int, ok bool) {
	ws, hs, found := strings.Cut(v, "x")
	if !found {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 || w > maxThumbSide || h > maxThumbSide {
		return 0, 0, false
	}
	return w, h, true
}
