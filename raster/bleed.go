package raster

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/BuragaIonut/daisler/trimbox"
)

// AddMirrorBleed expands the canvas by pad pixels on every side, filling the
// new margin with mirrored copies of the adjacent image content: edge bands
// are flipped across the edge they extend, corners are rotated 180 degrees
// (a double reflection). Mirroring keeps the trimmed sheet seamless when the
// cut lands anywhere inside the mechanical tolerance, which is why print
// shops ask for it over solid or edge-extend padding.
//
// The returned box is where the original content sits inside the expanded
// canvas. pad <= 0 returns the image unchanged with the full-bounds box.
func AddMirrorBleed(img image.Image, pad int) (image.Image, trimbox.Box) {
	w, h, _ := Dimensions(img)
	if pad <= 0 {
		return img, trimbox.New(w, h)
	}

	src := imaging.Clone(img)
	expanded := imaging.New(w+2*pad, h+2*pad, color.NRGBA{})
	expanded = imaging.Paste(expanded, src, image.Pt(pad, pad))

	// When pad exceeds the image itself the source strips are clamped; the
	// bleed degrades instead of failing.
	bandW := min(pad, w)
	bandH := min(pad, h)

	left := imaging.FlipH(imaging.Crop(src, image.Rect(0, 0, bandW, h)))
	right := imaging.FlipH(imaging.Crop(src, image.Rect(w-bandW, 0, w, h)))
	expanded = imaging.Paste(expanded, left, image.Pt(0, pad))
	expanded = imaging.Paste(expanded, right, image.Pt(pad+w, pad))

	top := imaging.FlipV(imaging.Crop(src, image.Rect(0, 0, w, bandH)))
	bottom := imaging.FlipV(imaging.Crop(src, image.Rect(0, h-bandH, w, h)))
	expanded = imaging.Paste(expanded, top, image.Pt(pad, 0))
	expanded = imaging.Paste(expanded, bottom, image.Pt(pad, pad+h))

	corner := min(pad, w, h)
	tl := imaging.Rotate180(imaging.Crop(src, image.Rect(0, 0, corner, corner)))
	tr := imaging.Rotate180(imaging.Crop(src, image.Rect(w-corner, 0, w, corner)))
	bl := imaging.Rotate180(imaging.Crop(src, image.Rect(0, h-corner, corner, h)))
	br := imaging.Rotate180(imaging.Crop(src, image.Rect(w-corner, h-corner, w, h)))
	expanded = imaging.Paste(expanded, tl, image.Pt(0, 0))
	expanded = imaging.Paste(expanded, tr, image.Pt(pad+w, 0))
	expanded = imaging.Paste(expanded, bl, image.Pt(0, pad+h))
	expanded = imaging.Paste(expanded, br, image.Pt(pad+w, pad+h))

	return expanded, trimbox.New(w, h).AfterBleed(pad)
}
