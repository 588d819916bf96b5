package source

import (
	"fmt"

	"github.com/ivlev/storyboard/internal/board"
	"github.com/ivlev/storyboard/internal/logger"
)

// Import places the pages of src into consecutive shots starting at first,
// stopping at the last shot of the document. It returns the number of shots
// filled. A page with zero width or height stops the import with
// ErrEmptyPage.
func Import(doc *board.Document, src Source, first, dpi int) (int, error) {
	count := src.PageCount()
	if count == 0 {
		return 0, ErrNoPages
	}
	if _, err := doc.Shot(first); err != nil {
		return 0, err
	}

	last := doc.ShotCount()
	filled := 0
	for i := 0; i < count && first+i <= last; i++ {
		w, h, err := src.Dimensions(i)
		if err != nil {
			return filled, fmt.Errorf("measure page %d: %w", i+1, err)
		}
		if w <= 0 || h <= 0 {
			return filled, fmt.Errorf("page %d: %w", i+1, ErrEmptyPage)
		}
		logger.Debug("Importing page",
			logger.Int("page", i+1),
			logger.Int("shot", first+i),
			logger.Float64("width", w),
			logger.Float64("height", h))

		img, err := src.Render(i, dpi)
		if err != nil {
			return filled, fmt.Errorf("render page %d: %w", i+1, err)
		}
		if err := doc.SetArtwork(first+i, img, board.ModeUpload); err != nil {
			return filled, err
		}
		filled++
	}

	if skipped := count - filled; skipped > 0 {
		logger.Warn("Import truncated at last shot",
			logger.Int("imported", filled),
			logger.Int("skipped", skipped))
	}
	return filled, nil
}
