// Package project reads and writes storyboard project files.
package project

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/timecode"
)

// ErrMalformed wraps every decode failure of a project file.
var ErrMalformed = errors.New("malformed project file")

// File is the on-disk JSON layout.
type File struct {
	Title string     `json:"title"`
	Pages []FilePage `json:"pages"`
}

type FilePage struct {
	StartNumber int       `json:"start_number"`
	Mode        string    `json:"mode"`
	Rows        []FileRow `json:"rows"`
}

type FileRow struct {
	// Duration is [seconds, frames].
	Duration    [2]int  `json:"duration"`
	Description string  `json:"description"`
	ImageData   *string `json:"image_data"` // hex-encoded PNG, null when empty
	Mode        string  `json:"mode"`
}

// Encode converts a document into its file layout.
func Encode(doc *board.Document) (*File, error) {
	title, mode, pages := doc.Snapshot()

	f := &File{Title: title, Pages: make([]FilePage, 0, len(pages))}
	for _, p := range pages {
		fp := FilePage{
			StartNumber: p.StartOrdinal,
			Mode:        string(mode),
			Rows:        make([]FileRow, 0, board.RowsPerPage),
		}
		for i := range p.Shots {
			s := &p.Shots[i]
			sec, fr := timecode.Split(s.Frames, doc.FPS)
			row := FileRow{
				Duration:    [2]int{sec, fr},
				Description: s.Description,
				Mode:        string(s.Mode),
			}
			if row.Mode == "" {
				row.Mode = string(board.ModeUpload)
			}
			if s.Artwork != nil {
				data, err := encodePNG(s.Artwork)
				if err != nil {
					return nil, fmt.Errorf("encode artwork for shot %d: %w", s.Ordinal, err)
				}
				hexData := hex.EncodeToString(data)
				row.ImageData = &hexData
			}
			fp.Rows = append(fp.Rows, row)
		}
		f.Pages = append(f.Pages, fp)
	}
	return f, nil
}

// Decode builds a fresh document from a file layout. Missing keys fall back
// to defaults and missing pages or rows stay empty; pages or rows beyond
// the fixed layout are ignored.
func Decode(f *File, fps int) (*board.Document, error) {
	doc := board.New(fps)
	doc.Title = f.Title

	modeSet := false
	for pi, fp := range f.Pages {
		if pi >= len(doc.Pages) {
			break
		}
		if !modeSet && fp.Mode != "" {
			if m, err := board.ParseMode(fp.Mode); err == nil {
				doc.Mode = m
				modeSet = true
			}
		}

		page := doc.Pages[pi]
		for ri, row := range fp.Rows {
			if ri >= board.RowsPerPage {
				break
			}
			shot := &page.Shots[ri]
			shot.Frames = timecode.Join(row.Duration[0], row.Duration[1], fps)
			shot.Description = row.Description
			if m, err := board.ParseMode(row.Mode); err == nil {
				shot.Mode = m
			}
			if row.ImageData != nil && *row.ImageData != "" {
				img, err := decodeHexPNG(*row.ImageData)
				if err != nil {
					return nil, fmt.Errorf("%w: page %d row %d: %v", ErrMalformed, pi+1, ri+1, err)
				}
				shot.Artwork = img
			}
		}
	}
	return doc, nil
}

// Save writes doc as JSON.
func Save(w io.Writer, doc *board.Document) error {
	f, err := Encode(doc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	return enc.Encode(f)
}

// Load reads a project into doc. On any error doc is left untouched.
func Load(r io.Reader, doc *board.Document) error {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	loaded, err := Decode(&f, doc.FPS)
	if err != nil {
		return err
	}
	return doc.Replace(loaded)
}

// SaveFile writes the project next to path and renames it into place, so a
// failed write never truncates an existing project.
func SaveFile(path string, doc *board.Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".storyboard-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Save(tmp, doc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func LoadFile(path string, doc *board.Document) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open project: %w", err)
	}
	defer f.Close()
	if err := Load(f, doc); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeHexPNG(s string) (image.Image, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}
