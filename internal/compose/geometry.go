// Package compose renders storyboard shots into fixed-size rasters with
// burned-in labels, timecode and descriptions.
package compose

import "image"

// Letterbox fits a srcW x srcH image into a dstW x dstH canvas without
// cropping, preserving its aspect ratio, and centers it with integer
// offsets. Wider sources span the full width, others the full height.
func Letterbox(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}

	var w, h int
	// srcW/srcH > dstW/dstH, compared without floating point.
	if srcW*dstH > srcH*dstW {
		w = dstW
		h = dstW * srcH / srcW
	} else {
		h = dstH
		w = dstH * srcW / srcH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
