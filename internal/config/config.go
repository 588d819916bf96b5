package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/storyboard/internal/timecode"
)

var ErrInvalidFPS = errors.New("fps must be positive")

type Config struct {
	FPS    int `yaml:"fps"`
	TickMS int `yaml:"tick_ms"`

	PreviewWidth  int `yaml:"preview_width"`
	PreviewHeight int `yaml:"preview_height"`
	ExportWidth   int `yaml:"export_width"`
	ExportHeight  int `yaml:"export_height"`

	// Printed page panels; a spread is two of them side by side.
	SheetWidth  int `yaml:"sheet_width"`
	SheetHeight int `yaml:"sheet_height"`
	JPEGQuality int `yaml:"jpeg_quality"`

	// Artwork-less shots play as a blank panel of this size and color.
	BlankWidth  int    `yaml:"blank_width"`
	BlankHeight int    `yaml:"blank_height"`
	BlankColor  string `yaml:"blank_color"`

	ClearArtworkOnDraw bool `yaml:"clear_artwork_on_draw"`

	Workers      int    `yaml:"workers"`
	ShowStats    bool   `yaml:"show_stats"`
	StatsLog     string `yaml:"stats_log"`
	BuildVersion string `yaml:"-"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// PanelParams describes one composited raster.
type PanelParams struct {
	Width, Height int
	FPS           int
	Export        bool
}

func Default() *Config {
	return &Config{
		FPS:           timecode.DefaultFPS,
		TickMS:        40,
		PreviewWidth:  960,
		PreviewHeight: 540,
		ExportWidth:   1920,
		ExportHeight:  1080,
		SheetWidth:    1240,
		SheetHeight:   1754,
		JPEGQuality:   90,
		BlankWidth:    854,
		BlankHeight:   480,
		BlankColor:    "white",
		Workers:       runtime.NumCPU(),
		StatsLog:      "benchmark.log",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides (a .env file in the working directory is honoured).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Existing environment variables win over .env; a missing file is fine.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.FPS = getEnvInt("STORYBOARD_FPS", c.FPS)
	c.TickMS = getEnvInt("STORYBOARD_TICK_MS", c.TickMS)
	c.Workers = getEnvInt("STORYBOARD_WORKERS", c.Workers)
	c.Log.Level = getEnv("STORYBOARD_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("STORYBOARD_LOG_FILE", c.Log.File)
	c.ClearArtworkOnDraw = getEnvBool("STORYBOARD_CLEAR_ON_DRAW", c.ClearArtworkOnDraw)
}

// Validate rejects settings that would make the time arithmetic divide by
// zero or produce empty rasters.
func (c *Config) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFPS, c.FPS)
	}
	if c.TickMS <= 0 {
		return fmt.Errorf("tick_ms must be positive: %d", c.TickMS)
	}
	sizes := []struct {
		name string
		w, h int
	}{
		{"preview", c.PreviewWidth, c.PreviewHeight},
		{"export", c.ExportWidth, c.ExportHeight},
		{"blank", c.BlankWidth, c.BlankHeight},
		{"sheet", c.SheetWidth, c.SheetHeight},
	}
	for _, s := range sizes {
		if s.w <= 0 || s.h <= 0 {
			return fmt.Errorf("%s size must be positive: %dx%d", s.name, s.w, s.h)
		}
	}
	if _, err := ParseColor(c.BlankColor); err != nil {
		return err
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality out of range: %d", c.JPEGQuality)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c *Config) Preview() PanelParams {
	return PanelParams{Width: c.PreviewWidth, Height: c.PreviewHeight, FPS: c.FPS}
}

func (c *Config) Export() PanelParams {
	return PanelParams{Width: c.ExportWidth, Height: c.ExportHeight, FPS: c.FPS, Export: true}
}

// ParseColor accepts "white", "black" or a "#rrggbb" hex value.
func ParseColor(s string) (color.RGBA, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "white":
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}, nil
	case "black":
		return color.RGBA{A: 255}, nil
	}
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
