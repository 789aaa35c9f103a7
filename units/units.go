// Package units converts between the three coordinate spaces of the print
// pipeline: physical dimensions (millimetres or inches at a given DPI),
// raster pixels, and PDF points (72 per inch).
package units

import "fmt"

// Unit identifies a physical length unit accepted from callers.
type Unit string

const (
	Millimetre Unit = "mm"
	Inch       Unit = "inch"
)

const (
	mmPerInch     = 25.4
	PointsPerInch = 72.0
)

// ParseUnit validates a user-supplied unit string.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Millimetre, Inch:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("unsupported unit %q", s)
	}
}

// MMToInch converts millimetres to inches.
func MMToInch(mm float64) float64 { return mm / mmPerInch }

// InchToMM converts inches to millimetres.
func InchToMM(in float64) float64 { return in * mmPerInch }

// Truncate is the single pixel-quantisation policy of the pipeline: values
// are truncated toward zero, matching the behaviour of deployed output.
// Changing this to rounding shifts final dimensions by up to one pixel.
func Truncate(v float64) int { return int(v) }

// PhysicalToPixels converts a physical width/height at dpi into integer pixel
// counts plus the resulting aspect ratio (width over height).
func PhysicalToPixels(width, height float64, unit Unit, dpi float64) (int, int, float64) {
	if unit == Millimetre {
		width = MMToInch(width)
		height = MMToInch(height)
	}
	wPx := Truncate(width * dpi)
	hPx := Truncate(height * dpi)
	ratio := 0.0
	if hPx > 0 {
		ratio = float64(wPx) / float64(hPx)
	}
	return wPx, hPx, ratio
}

// PixelsToPoints converts a pixel length at dpi to PDF points.
func PixelsToPoints(px int, dpi float64) float64 {
	return float64(px) / dpi * PointsPerInch
}

// BleedToPixels converts a bleed margin in millimetres to whole pixels.
func BleedToPixels(bleedMM, dpi float64) int {
	return Truncate(MMToInch(bleedMM) * dpi)
}
