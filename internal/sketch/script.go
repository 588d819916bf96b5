package sketch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/storyboard/internal/config"
)

// Script is a recorded drawing session: a sequence of pointer drags, each
// with the brush that was active at the time.
type Script struct {
	Width   int          `yaml:"width,omitempty"`
	Height  int          `yaml:"height,omitempty"`
	Brush   BrushSpec    `yaml:"brush"`
	Strokes []StrokeSpec `yaml:"strokes"`
}

type BrushSpec struct {
	Color  string `yaml:"color,omitempty"` // "#rrggbb", "black" or "white"
	Size   int    `yaml:"size,omitempty"`
	Eraser bool   `yaml:"eraser,omitempty"`
}

type StrokeSpec struct {
	Brush  *BrushSpec   `yaml:"brush,omitempty"` // overrides the script brush
	Points [][2]float32 `yaml:"points"`
}

func (b BrushSpec) brush(base Brush) (Brush, error) {
	out := base
	if b.Color != "" {
		c, err := config.ParseColor(b.Color)
		if err != nil {
			return Brush{}, err
		}
		out.Color = c
	}
	if b.Size > 0 {
		out.Size = b.Size
	}
	out.Eraser = b.Eraser
	return out, nil
}

// Apply replays every stroke of the script onto c.
func (s *Script) Apply(c *Canvas) error {
	base, err := s.Brush.brush(DefaultBrush())
	if err != nil {
		return fmt.Errorf("script brush: %w", err)
	}
	for i, st := range s.Strokes {
		brush := base
		if st.Brush != nil {
			if brush, err = st.Brush.brush(base); err != nil {
				return fmt.Errorf("stroke %d brush: %w", i+1, err)
			}
		}
		c.Brush = brush

		points := make([]Point, len(st.Points))
		for j, p := range st.Points {
			points[j] = Point{X: p[0], Y: p[1]}
		}
		c.Stroke(points)
	}
	c.Brush = base
	return nil
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func ReadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func WriteScript(s *Script, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
