package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/config"
	"github.com/ivlev/storyboard/internal/logger"
	"github.com/ivlev/storyboard/internal/project"
	"github.com/ivlev/storyboard/internal/system"
)

// set at build time with -ldflags "-X main.buildVersion=..."
var buildVersion = "dev"

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "storyboard",
	Short:         "Storyboard editor: timed shots on pages, playback preview and export",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		c.BuildVersion = buildVersion
		if err := logger.Init(c.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg = c
		system.InitResourceLimits()
		logger.Debug("Command started", logger.String("command", cmd.Name()), logger.String("build", buildVersion))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
}

// projectPath returns args[0] or, when no file is given, the newest project
// in the working directory.
func projectPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	latest, err := system.FindLatestProject(".")
	if err != nil {
		return "", err
	}
	fmt.Printf("[*] Выбран проект: %s\n", latest)
	return latest, nil
}

func newDocument() *board.Document {
	doc := board.New(cfg.FPS)
	doc.ClearArtworkOnDraw = cfg.ClearArtworkOnDraw
	return doc
}

func openProject(path string) (*board.Document, error) {
	doc := newDocument()
	if err := project.LoadFile(path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func saveProject(path string, doc *board.Document) error {
	if err := project.SaveFile(path, doc); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	logger.Info("Project saved", logger.String("path", path))
	return nil
}

// reportStats prints and logs the performance report when show_stats is on.
func reportStats(command, input string, items int, start time.Time) {
	if !cfg.ShowStats {
		return
	}
	stats := system.Collect(cfg.BuildVersion, command, input, items, time.Since(start))
	fmt.Print(stats.Report())
	if cfg.StatsLog == "" {
		return
	}
	if err := stats.AppendLog(cfg.StatsLog); err != nil {
		fmt.Printf("[!] Не удалось записать %s: %v\n", cfg.StatsLog, err)
	}
}
