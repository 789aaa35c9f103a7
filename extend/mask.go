package extend

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Alignment values accepted by the service and the mask preview.
const (
	AlignMiddle = "Middle"
	AlignLeft   = "Left"
	AlignRight  = "Right"
	AlignTop    = "Top"
	AlignBottom = "Bottom"
)

// MaskParams mirror the knobs of the service's own preview: the target
// canvas, how much of the source edge the model may repaint, and where the
// source sits on the canvas.
type MaskParams struct {
	Width, Height       int
	OverlapPercent      int
	ResizeOption        string // "Full", "50%", "33%", "25%" or "Custom"
	CustomResizePercent int
	Alignment           string
	Overlap             OverlapSides
}

// minSourceSide keeps the placed source from degenerating below what the
// model can work with.
const minSourceSide = 64

// whiteGapsPatch is the sliver kept paintable along non-overlap edges so the
// model can close seams against the canvas background.
const whiteGapsPatch = 2

// PrepareImageAndMask places the source on a white target canvas and builds
// the inpainting mask: white (255) where the model generates, black (0) over
// the region of the source that must survive untouched. Overlap bands along
// the enabled edges stay white so generated content can blend into the
// source.
func PrepareImageAndMask(img image.Image, p MaskParams) (*image.NRGBA, *image.Gray) {
	// Fit the source inside the canvas.
	scale := min(float64(p.Width)/float64(img.Bounds().Dx()),
		float64(p.Height)/float64(img.Bounds().Dy()))
	newW := int(float64(img.Bounds().Dx()) * scale)
	newH := int(float64(img.Bounds().Dy()) * scale)
	source := imaging.Resize(img, newW, newH, imaging.Lanczos)

	pct := resizePercent(p)
	newW = max(int(float64(newW)*float64(pct)/100), minSourceSide)
	newH = max(int(float64(newH)*float64(pct)/100), minSourceSide)
	source = imaging.Resize(source, newW, newH, imaging.Lanczos)

	overlapX := max(newW*p.OverlapPercent/100, 1)
	overlapY := max(newH*p.OverlapPercent/100, 1)

	marginX, marginY := margins(p, newW, newH)

	background := imaging.New(p.Width, p.Height, color.NRGBA{255, 255, 255, 255})
	background = imaging.Paste(background, source, image.Pt(marginX, marginY))

	mask := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}

	left := marginX + whiteGapsPatch
	if p.Overlap.Left {
		left = marginX + overlapX
	}
	right := marginX + newW - whiteGapsPatch
	if p.Overlap.Right {
		right = marginX + newW - overlapX
	}
	top := marginY + whiteGapsPatch
	if p.Overlap.Top {
		top = marginY + overlapY
	}
	bottom := marginY + newH - whiteGapsPatch
	if p.Overlap.Bottom {
		bottom = marginY + newH - overlapY
	}

	// An edge flush against its canvas side needs no closing sliver.
	switch p.Alignment {
	case AlignLeft:
		if !p.Overlap.Left {
			left = marginX
		}
	case AlignRight:
		if !p.Overlap.Right {
			right = marginX + newW
		}
	case AlignTop:
		if !p.Overlap.Top {
			top = marginY
		}
	case AlignBottom:
		if !p.Overlap.Bottom {
			bottom = marginY + newH
		}
	}

	fillRect(mask, left, top, right, bottom, 0)
	return background, mask
}

// PreviewImageAndMask renders the mask over the placed source: the area the
// model will repaint is tinted red at quarter opacity.
func PreviewImageAndMask(img image.Image, p MaskParams) *image.NRGBA {
	background, mask := PrepareImageAndMask(img, p)
	const alpha = 64
	preview := imaging.Clone(background)
	for y := 0; y < mask.Bounds().Dy(); y++ {
		for x := 0; x < mask.Bounds().Dx(); x++ {
			if mask.GrayAt(x, y).Y == 0 {
				continue
			}
			i := preview.PixOffset(x, y)
			preview.Pix[i] = blend(preview.Pix[i], 255, alpha)
			preview.Pix[i+1] = blend(preview.Pix[i+1], 0, alpha)
			preview.Pix[i+2] = blend(preview.Pix[i+2], 0, alpha)
		}
	}
	return preview
}

func resizePercent(p MaskParams) int {
	switch p.ResizeOption {
	case "", "Full":
		return 100
	case "50%":
		return 50
	case "33%":
		return 33
	case "25%":
		return 25
	default:
		return p.CustomResizePercent
	}
}

func margins(p MaskParams, newW, newH int) (int, int) {
	var marginX, marginY int
	switch p.Alignment {
	case AlignLeft:
		marginX = 0
		marginY = (p.Height - newH) / 2
	case AlignRight:
		marginX = p.Width - newW
		marginY = (p.Height - newH) / 2
	case AlignTop:
		marginX = (p.Width - newW) / 2
		marginY = 0
	case AlignBottom:
		marginX = (p.Width - newW) / 2
		marginY = p.Height - newH
	default: // Middle
		marginX = (p.Width - newW) / 2
		marginY = (p.Height - newH) / 2
	}
	marginX = max(0, min(marginX, p.Width-newW))
	marginY = max(0, min(marginY, p.Height-newH))
	return marginX, marginY
}

// fillRect paints the inclusive rectangle, clipped to the mask bounds.
func fillRect(mask *image.Gray, x0, y0, x1, y1 int, v uint8) {
	x0 = max(x0, 0)
	y0 = max(y0, 0)
	x1 = min(x1, mask.Bounds().Dx()-1)
	y1 = min(y1, mask.Bounds().Dy()-1)
	for y := y0; y <= y1; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+mask.Bounds().Dx()]
		for x := x0; x <= x1; x++ {
			row[x] = v
		}
	}
}

func blend(base, over uint8, alpha uint16) uint8 {
	return uint8((uint16(base)*(255-alpha) + uint16(over)*alpha) / 255)
}
