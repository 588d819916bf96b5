package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/logger"
	"github.com/ivlev/storyboard/internal/sketch"
	"github.com/ivlev/storyboard/internal/source"
	"github.com/ivlev/storyboard/internal/system"
	"github.com/ivlev/storyboard/internal/timecode"
)

var (
	newTitle string
	newForce bool

	setShot        int
	setDuration    string
	setDescription string
	setImage       string
	setClear       bool

	importStart    int
	importDuration string
	importDPI      int

	sketchShot    int
	sketchStrokes string
)

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create an empty storyboard project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err == nil && !newForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		doc := newDocument()
		if err := doc.SetTitle(newTitle); err != nil {
			return err
		}
		if err := saveProject(path, doc); err != nil {
			return err
		}
		fmt.Printf("[+++] Создан проект: %s (%d страниц, %d кадров)\n", path, board.TotalPages, doc.ShotCount())
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Print pages, spreads and shot durations",
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
		printInfo(doc)
		return nil
	},
}

func printInfo(doc *board.Document) {
	title, mode, pages := doc.Snapshot()
	if title == "" {
		title = "(untitled)"
	}
	fmt.Printf("Title: %s\nMode:  %s\nFPS:   %d\n", title, mode, doc.FPS)

	total := 0
	browser := board.NewBrowser(len(pages))
	for {
		fmt.Printf("\n== %s ==\n", browser)
		for _, i := range board.SpreadPages(browser.Index, len(pages)) {
			p := &pages[i]
			sec, fr := p.TotalDuration(doc.FPS)
			fmt.Printf("-- Page %d (%d-%d) %s\n", i+1, p.StartOrdinal, p.StartOrdinal+board.RowsPerPage-1, timecode.TotalLabel(sec, fr))
			for j := range p.Shots {
				s := &p.Shots[j]
				art := "-"
				if s.HasArtwork() {
					art = string(s.Mode)
				}
				fmt.Printf("   #%-3d %-10s %-9s %-6s %s\n",
					s.Ordinal, timecode.Format(s.Frames, doc.FPS), timecode.Label(s.Frames), art, s.Description)
			}
			total += p.TotalFrames()
		}
		if !browser.Next() {
			break
		}
	}

	fmt.Printf("\nСуммарно: %s (%d ms)\n", timecode.Format(total, doc.FPS), timecode.Millis(total, doc.FPS))
}

var setCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Edit one shot: duration, description or artwork",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		doc, err := openProject(path)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		changed := false

		if flags.Changed("duration") {
			frames, err := doc.SetDuration(setShot, setDuration)
			if err != nil {
				return err
			}
			if frames == 0 && strings.TrimSpace(setDuration) != "" {
				fmt.Printf("[!] Длительность %q не распознана, кадр сброшен\n", setDuration)
			}
			fmt.Printf("[*] #%d: %s (%s)\n", setShot, timecode.Label(frames), timecode.Format(frames, doc.FPS))
			changed = true
		}
		if flags.Changed("description") {
			if err := doc.SetDescription(setShot, setDescription); err != nil {
				return err
			}
			changed = true
		}
		if setClear {
			if err := doc.ClearArtwork(setShot); err != nil {
				return err
			}
			changed = true
		}
		if setImage != "" {
			imgPath, err := resolveImage(setImage)
			if err != nil {
				return err
			}
			img, err := source.LoadImage(imgPath)
			if err != nil {
				return err
			}
			if err := doc.SetArtwork(setShot, img, board.ModeUpload); err != nil {
				return err
			}
			fmt.Printf("[*] #%d: изображение %s\n", setShot, imgPath)
			changed = true
		}

		if !changed {
			return errors.New("nothing to change: pass --duration, --description, --image or --clear")
		}
		return saveProject(path, doc)
	},
}

// resolveImage accepts a file or a directory, in which case the newest
// image inside is used.
func resolveImage(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return path, nil
	}
	return system.FindLatestImage(path, source.IsImage)
}

var importCmd = &cobra.Command{
	Use:   "import <file> <dir|pdf>",
	Short: "Fill consecutive shots from an image directory or PDF pages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, input := args[0], args[1]
		doc, err := openProject(path)
		if err != nil {
			return err
		}

		src, err := source.Open(input)
		if err != nil {
			return fmt.Errorf("ошибка инициализации источника: %w", err)
		}
		defer src.Close()

		n, err := source.Import(doc, src, importStart, importDPI)
		if err != nil {
			return err
		}
		if importDuration != "" {
			for ord := importStart; ord < importStart+n; ord++ {
				if _, err := doc.SetDuration(ord, importDuration); err != nil {
					return err
				}
			}
		}
		logger.Info("Artwork imported", logger.String("source", input), logger.Int("shots", n), logger.Int("first", importStart))
		if err := saveProject(path, doc); err != nil {
			return err
		}
		fmt.Printf("[+++] Импортировано %d из %d страниц, кадры #%d-#%d\n", n, src.PageCount(), importStart, importStart+n-1)
		return nil
	},
}

var modeCmd = &cobra.Command{
	Use:       "mode <file> upload|draw",
	Short:     "Switch how empty cells acquire artwork",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(board.ModeUpload), string(board.ModeDraw)},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		mode, err := board.ParseMode(args[1])
		if err != nil {
			return err
		}
		doc, err := openProject(path)
		if err != nil {
			return err
		}
		if err := doc.SwitchMode(mode); err != nil {
			return err
		}
		if mode == board.ModeDraw && doc.ClearArtworkOnDraw {
			fmt.Println("[!] Изображения удалены (clear_artwork_on_draw)")
		}
		fmt.Printf("[*] Режим: %s\n", mode)
		return saveProject(path, doc)
	},
}

var sketchCmd = &cobra.Command{
	Use:   "sketch <file>",
	Short: "Draw strokes from a YAML script over a shot's artwork",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		doc, err := openProject(path)
		if err != nil {
			return err
		}
		shot, err := doc.Shot(sketchShot)
		if err != nil {
			return err
		}
		script, err := sketch.ReadScript(sketchStrokes)
		if err != nil {
			return fmt.Errorf("ошибка чтения штрихов: %w", err)
		}

		w, h := script.Width, script.Height
		if w <= 0 || h <= 0 {
			w, h = cfg.BlankWidth, cfg.BlankHeight
		}
		canvas := sketch.NewCanvas(w, h, shot.Artwork)
		if err := script.Apply(canvas); err != nil {
			return err
		}
		if err := doc.SetArtwork(sketchShot, canvas.Image(), board.ModeDraw); err != nil {
			return err
		}
		fmt.Printf("[*] #%d: %d штрихов\n", sketchShot, len(script.Strokes))
		return saveProject(path, doc)
	},
}

func init() {
	newCmd.Flags().StringVar(&newTitle, "title", "", "storyboard title")
	newCmd.Flags().BoolVar(&newForce, "force", false, "overwrite an existing file")

	setCmd.Flags().IntVar(&setShot, "shot", 0, "shot number (1-24)")
	setCmd.Flags().StringVar(&setDuration, "duration", "", `duration such as "2s10f", "3s", "12f" or "58"`)
	setCmd.Flags().StringVar(&setDescription, "description", "", "shot description")
	setCmd.Flags().StringVar(&setImage, "image", "", "artwork file, or a directory to take the newest image from")
	setCmd.Flags().BoolVar(&setClear, "clear", false, "remove the shot's artwork")
	setCmd.MarkFlagRequired("shot")

	importCmd.Flags().IntVar(&importStart, "start", 1, "first shot to fill")
	importCmd.Flags().StringVar(&importDuration, "duration", "", "duration applied to every imported shot")
	importCmd.Flags().IntVar(&importDPI, "dpi", 150, "PDF render resolution")

	sketchCmd.Flags().IntVar(&sketchShot, "shot", 0, "shot number (1-24)")
	sketchCmd.Flags().StringVar(&sketchStrokes, "strokes", "", "YAML stroke script")
	sketchCmd.MarkFlagRequired("shot")
	sketchCmd.MarkFlagRequired("strokes")

	rootCmd.AddCommand(newCmd, infoCmd, setCmd, importCmd, modeCmd, sketchCmd)
}
