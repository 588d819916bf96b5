package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/compose"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/export"
	"github.com/ivlev/storyboard/internal/logger"
	"github.com/ivlev/storyboard/internal/playback"
	"github.com/ivlev/storyboard/internal/timecode"
)

var (
	playOut      string
	playRealtime bool
)

// headlessRenderer counts preview frames and optionally keeps each shot's
// composite as a PNG.
type headlessRenderer struct {
	preview *compose.Preview
	comp    *compose.Compositor
	params  config.PanelParams
	out     string

	shots  int
	frames int
}

func (h *headlessRenderer) RenderShot(cue board.Cue, index int) error {
	h.shots++
	fmt.Printf("[>] %d: #%d %s (%d ms)\n", index+1, cue.Ordinal,
		timecode.Format(cue.Frames, cfg.FPS), timecode.Millis(cue.Frames, cfg.FPS))
	if h.out != "" {
		frame, err := h.comp.ComposeCue(cue, h.params)
		if err != nil {
			return err
		}
		path := filepath.Join(h.out, fmt.Sprintf("preview_%03d.png", cue.Ordinal))
		if err := export.WriteFile(path, frame, cfg.JPEGQuality); err != nil {
			return err
		}
	}
	return h.preview.RenderShot(cue, index)
}

func (h *headlessRenderer) RenderTimecode(cue board.Cue, elapsedMS int) error {
	return h.preview.RenderTimecode(cue, elapsedMS)
}

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Run playback headless, reporting every shot change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := projectPath(args)
		if err != nil {
			return err
		}
		doc, err := openProject(path)
		if err != nil {
			return err
		}
		comp, err := compose.New(cfg)
		if err != nil {
			return err
		}
		if playOut != "" {
			if err := os.MkdirAll(playOut, 0755); err != nil {
				return err
			}
		}

		r := &headlessRenderer{comp: comp, params: cfg.Preview(), out: playOut}
		r.preview = compose.NewPreview(comp, cfg.Preview(), func(*image.RGBA) error {
			r.frames++
			return nil
		})
		sched, err := playback.New(cfg.FPS, cfg.Tick(), r)
		if err != nil {
			return err
		}

		var clock playback.Clock = playback.InstantClock{}
		if playRealtime {
			clock = playback.RealClock{}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		release := doc.Freeze()
		defer release()

		start := time.Now()
		cues := doc.Sequence()
		err = sched.Play(ctx, cues, clock)
		switch {
		case errors.Is(err, playback.ErrEmptySequence):
			fmt.Println("[!] Нет кадров с длительностью, воспроизводить нечего")
			return nil
		case errors.Is(err, context.Canceled):
			fmt.Println("[!] Воспроизведение остановлено")
			return nil
		case err != nil:
			return err
		}

		logger.Info("Playback finished",
			logger.Int("shots", r.shots),
			logger.Int("frames", r.frames),
			logger.Duration("elapsed", time.Since(start)))
		fmt.Printf("[+++] Воспроизведено %d кадров, %d отрисовок\n", r.shots, r.frames)
		reportStats("play", path, r.frames, start)
		return nil
	},
}

func init() {
	playCmd.Flags().StringVar(&playOut, "out", "", "directory for each shot's preview composite")
	playCmd.Flags().BoolVar(&playRealtime, "realtime", false, "tick at wall-clock speed")
	rootCmd.AddCommand(playCmd)
}
