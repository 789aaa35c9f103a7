package extend_test

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/BuragaIonut/daisler/extend"
)

func TestPrepareImageAndMask(t *testing.T) {
	src := imaging.New(100, 100, color.NRGBA{0, 0, 255, 255})
	params := extend.MaskParams{
		Width:          200,
		Height:         200,
		OverlapPercent: 10,
		ResizeOption:   "Full",
		Alignment:      extend.AlignMiddle,
		Overlap:        extend.HorizontalOverlap(),
	}

	background, mask := extend.PrepareImageAndMask(src, params)

	if b := background.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("background is %v, want 200x200", b)
	}
	if b := mask.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("mask is %v, want 200x200", b)
	}

	// Source scales 2x to fill the canvas, so the kept region is inset by
	// the 10% overlap (20px) left and right and by the 2px seam sliver top
	// and bottom.
	tests := []struct {
		x, y int
		want uint8
	}{
		{100, 100, 0},  // center: preserved
		{10, 100, 255}, // left overlap band: paintable
		{25, 100, 0},   // inside the kept region
		{100, 0, 255},  // top sliver
		{100, 100, 0},
		{190, 100, 255}, // right overlap band
	}
	for _, tt := range tests {
		if got := mask.GrayAt(tt.x, tt.y).Y; got != tt.want {
			t.Errorf("mask(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}

	// Background carries the source where it was pasted.
	if c := background.NRGBAAt(100, 100); c.B != 255 || c.R != 0 {
		t.Errorf("background center = %v, want source blue", c)
	}
}

func TestPrepareImageAndMaskAlignment(t *testing.T) {
	src := imaging.New(100, 100, color.NRGBA{255, 0, 0, 255})
	params := extend.MaskParams{
		Width:          300,
		Height:         100,
		OverlapPercent: 10,
		ResizeOption:   "Full",
		Alignment:      extend.AlignLeft,
		Overlap:        extend.OverlapSides{Right: true},
	}
	background, mask := extend.PrepareImageAndMask(src, params)

	// Source fits at 100x100 flush left; everything right of it is canvas.
	if c := background.NRGBAAt(10, 50); c.R != 255 {
		t.Errorf("source not pasted at the left edge: %v", c)
	}
	if c := background.NRGBAAt(250, 50); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("canvas right of source is %v, want white", c)
	}
	// Flush-left edge with no left overlap is not paintable at all.
	if got := mask.GrayAt(0, 50).Y; got != 0 {
		t.Errorf("mask at flush edge = %d, want 0", got)
	}
	// The right 10% band of the source may be repainted.
	if got := mask.GrayAt(95, 50).Y; got != 255 {
		t.Errorf("mask in right overlap band = %d, want 255", got)
	}
}

func TestPreviewImageAndMask(t *testing.T) {
	src := imaging.New(100, 100, color.NRGBA{0, 0, 255, 255})
	params := extend.MaskParams{
		Width:          200,
		Height:         200,
		OverlapPercent: 10,
		ResizeOption:   "Full",
		Alignment:      extend.AlignMiddle,
		Overlap:        extend.HorizontalOverlap(),
	}
	preview := extend.PreviewImageAndMask(src, params)

	// Preserved center keeps the source color.
	if c := preview.NRGBAAt(100, 100); c.B != 255 || c.R != 0 {
		t.Errorf("center = %v, want untinted blue", c)
	}
	// Paintable area is tinted red at quarter opacity over the blue source:
	// the red channel rises, blue drops.
	c := preview.NRGBAAt(10, 100)
	if c.R == 0 || c.B == 255 {
		t.Errorf("overlap band = %v, want red tint", c)
	}
}

func TestPrepareImageAndMaskMinimumSize(t *testing.T) {
	src := imaging.New(10, 10, color.NRGBA{0, 255, 0, 255})
	params := extend.MaskParams{
		Width:          1024,
		Height:         1024,
		OverlapPercent: 10,
		ResizeOption:   "Custom",
		// 1% of the fitted size would be far below the floor.
		CustomResizePercent: 1,
		Alignment:           extend.AlignMiddle,
		Overlap:             extend.HorizontalOverlap(),
	}
	background, _ := extend.PrepareImageAndMask(src, params)

	// The source may not shrink below 64px a side; at the canvas center it
	// must still be visible.
	if c := background.NRGBAAt(512, 512); c.G != 255 || c.R != 0 {
		t.Errorf("center = %v, want source green", c)
	}
	if c := background.NRGBAAt(512+40, 512); c.R != 255 {
		t.Errorf("pixel outside the 64px source = %v, want canvas white", c)
	}
}
