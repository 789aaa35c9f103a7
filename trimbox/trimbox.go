// Package trimbox tracks the rectangle of original image content while the
// surrounding canvas grows (bleed) and scales (upscaling), and converts the
// final rectangle into PDF page coordinates.
package trimbox

import (
	"fmt"

	"github.com/BuragaIonut/daisler/units"
)

// Box is an axis-aligned rectangle in pixel space, top-left origin.
// Invariant: X1 <= X2 and Y1 <= Y2.
type Box struct {
	X1, Y1, X2, Y2 int
}

// New returns the full-image box for a w by h source.
func New(w, h int) Box { return Box{0, 0, w, h} }

func (b Box) Width() int  { return b.X2 - b.X1 }
func (b Box) Height() int { return b.Y2 - b.Y1 }

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// AfterBleed shifts the box by pad on both axes: the original content keeps
// its size but now sits pad pixels inside the expanded canvas. pad <= 0 is a
// no-op.
func (b Box) AfterBleed(pad int) Box {
	if pad <= 0 {
		return b
	}
	return Box{
		X1: b.X1 + pad,
		Y1: b.Y1 + pad,
		X2: b.X2 + pad,
		Y2: b.Y2 + pad,
	}
}

// AfterScale multiplies every coordinate by factor, truncating to integers,
// mirroring the pixel dimensions produced by the upscaler.
func (b Box) AfterScale(factor float64) Box {
	return Box{
		X1: units.Truncate(float64(b.X1) * factor),
		Y1: units.Truncate(float64(b.Y1) * factor),
		X2: units.Truncate(float64(b.X2) * factor),
		Y2: units.Truncate(float64(b.Y2) * factor),
	}
}

// PointRect is a rectangle in PDF user space: points, bottom-left origin,
// Y increasing upward.
type PointRect struct {
	X1, Y1, X2, Y2 float64
}

func (r PointRect) Width() float64  { return r.X2 - r.X1 }
func (r PointRect) Height() float64 { return r.Y2 - r.Y1 }

// ToPDFPoints converts the pixel box to PDF points and flips the Y axis.
// Image space has the origin top-left with Y growing downward; PDF pages have
// the origin bottom-left. The top edge of the image box therefore becomes the
// larger Y in page space, so Y1 and Y2 swap during the flip.
func (b Box) ToPDFPoints(dpi, pageHeightPts float64) PointRect {
	return PointRect{
		X1: units.PixelsToPoints(b.X1, dpi),
		Y1: pageHeightPts - units.PixelsToPoints(b.Y2, dpi),
		X2: units.PixelsToPoints(b.X2, dpi),
		Y2: pageHeightPts - units.PixelsToPoints(b.Y1, dpi),
	}
}
