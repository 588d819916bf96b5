package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/compose"
	"github.com/ivlev/storyboard/internal/export"
)

var (
	exportSpread int
	exportOut    string
	exportFrames string
	exportQR     bool
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Render a spread image and/or one still per shot",
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
		engine := export.NewEngine(cfg, comp)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		out := exportOut
		if out == "" && exportFrames == "" {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			timestamp := time.Now().Format("2006-01-02_15-04-05")
			out = fmt.Sprintf("%s_spread%d_%s.png", name, exportSpread, timestamp)
		}

		start := time.Now()
		items := 0

		if out != "" {
			_, _, pages := doc.Snapshot()
			spreads := board.SpreadCount(len(pages))
			fmt.Printf("[*] Разворот %d / %d -> %s\n", exportSpread, spreads, out)
			img, err := engine.Spread(ctx, doc, exportSpread-1, export.SpreadOptions{QR: exportQR})
			if err != nil {
				return err
			}
			if err := export.WriteFile(out, img, cfg.JPEGQuality); err != nil {
				return err
			}
			items++
		}

		if exportFrames != "" {
			fmt.Printf("[*] Кадры %dx%d -> %s\n", cfg.ExportWidth, cfg.ExportHeight, exportFrames)
			paths, err := engine.Stills(ctx, doc, exportFrames)
			if err != nil {
				return err
			}
			items += len(paths)
		}

		fmt.Printf("[+++] Успех! Файлов: %d\n", items)
		reportStats("export", path, items, start)
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportSpread, "spread", 1, "spread number, starting at 1")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "spread image path (.png or .jpg)")
	exportCmd.Flags().StringVar(&exportFrames, "frames", "", "directory for shot_NNN.png stills")
	exportCmd.Flags().BoolVar(&exportQR, "qr", false, "add a QR slate to every page footer")
	rootCmd.AddCommand(exportCmd)
}
