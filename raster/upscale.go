package raster

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/BuragaIonut/daisler/units"
)

// ScaleFactor picks the factor that makes the actual image cover the target
// box on both axes (cover-fit): the larger of the two per-axis ratios.
func ScaleFactor(targetW, targetH, actualW, actualH int) float64 {
	sx := float64(targetW) / float64(actualW)
	sy := float64(targetH) / float64(actualH)
	if sx > sy {
		return sx
	}
	return sy
}

// Upscale resamples the image by factor using the Lanczos kernel. New
// dimensions are truncated, matching the trim-box arithmetic. Callers should
// skip the call when factor <= 1: the image already covers the target.
func Upscale(img image.Image, factor float64) image.Image {
	w, h, _ := Dimensions(img)
	return imaging.Resize(img,
		units.Truncate(float64(w)*factor),
		units.Truncate(float64(h)*factor),
		imaging.Lanczos)
}
