// Package timecode converts between human duration text and frame counts
// at a fixed frame rate.
package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultFPS is the frame rate used when nothing else is configured.
const DefaultFPS = 24

// durationPattern accepts "<int>s", "<int>f" and "<int>s<int>f". A bare
// "<int>" is handled separately as a raw frame count.
var durationPattern = regexp.MustCompile(`^(?:(\d+)s)?(?:(\d+)f)?$`)

// Parse converts duration text such as "2s10f", "3s", "10f" or "48" into a
// frame count. Unparseable input yields 0; it never fails.
func Parse(text string, fps int) int {
	s := strings.ToLower(strings.Join(strings.Fields(text), ""))
	if s == "" {
		return 0
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}

	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	sec, f := 0, 0
	var err error
	if m[1] != "" {
		if sec, err = strconv.Atoi(m[1]); err != nil {
			return 0
		}
	}
	if m[2] != "" {
		if f, err = strconv.Atoi(m[2]); err != nil {
			return 0
		}
	}
	if fps <= 0 {
		return f
	}
	return Join(sec, f, fps)
}

// Split normalizes a frame count into whole seconds and remaining frames,
// so that seconds*fps + frames == total and 0 <= frames < fps.
func Split(total, fps int) (seconds, frames int) {
	if total < 0 {
		total = 0
	}
	if fps <= 0 {
		return 0, total
	}
	return total / fps, total % fps
}

// Join is the inverse of Split. A total that does not fit in an int
// yields 0.
func Join(seconds, frames, fps int) int {
	if seconds < 0 {
		seconds = 0
	}
	if frames < 0 {
		frames = 0
	}
	if fps <= 0 {
		return frames
	}
	if seconds > (math.MaxInt-frames)/fps {
		return 0
	}
	return seconds*fps + frames
}

// Label renders the compact widget form, e.g. "58 Frames".
func Label(frames int) string {
	return fmt.Sprintf("%d Frames", frames)
}

// Format renders a frame count normalized as "<s>s + <f>f".
func Format(total, fps int) string {
	s, f := Split(total, fps)
	return fmt.Sprintf("%ds + %df", s, f)
}

// TotalLabel renders a page aggregate the way the spread view shows it.
func TotalLabel(seconds, frames int) string {
	return fmt.Sprintf("Total Duration: %d s + %d f", seconds, frames)
}

// Millis converts a frame count to milliseconds, rounded to the nearest ms.
func Millis(frames, fps int) int {
	if fps <= 0 || frames <= 0 {
		return 0
	}
	whole, rem := frames/fps, frames%fps
	if whole > math.MaxInt/1000-1 {
		return math.MaxInt
	}
	return whole*1000 + (rem*2000+fps)/(2*fps)
}

// Elapsed renders the running playback timecode, e.g. "01s + 05f".
func Elapsed(elapsedMS, fps int) string {
	if elapsedMS < 0 {
		elapsedMS = 0
	}
	sec := elapsedMS / 1000
	frame := 0
	if fps > 0 {
		frame = (elapsedMS % 1000) * fps / 1000
	}
	return fmt.Sprintf("%02ds + %02df", sec, frame)
}
