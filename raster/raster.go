// Package raster implements the image-buffer operations of the print
// pipeline on top of github.com/disintegration/imaging: decode/encode,
// mirror-bleed composition, Lanczos upscaling and the literal CMYK tag
// conversion applied before print embedding.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	// Accept WebP and BMP uploads in addition to the stdlib JPEG/PNG codecs.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Format selects the wire encoding for Encode.
type Format int

const (
	JPEG Format = iota
	PNG
)

// Decode reads an image from bytes. The format is sniffed from the data.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Encode serialises an image to bytes in the given format.
func Encode(img image.Image, f Format) ([]byte, error) {
	var buf bytes.Buffer
	format := imaging.JPEG
	if f == PNG {
		format = imaging.PNG
	}
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Dimensions returns width, height and the aspect ratio width/height.
func Dimensions(img image.Image) (int, int, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ratio := 0.0
	if h > 0 {
		ratio = float64(w) / float64(h)
	}
	return w, h, ratio
}

// ToCMYK re-tags the image into the DeviceCMYK model. This is a literal
// per-pixel model conversion, not an ICC-managed one.
func ToCMYK(img image.Image) *image.CMYK {
	if cmyk, ok := img.(*image.CMYK); ok {
		return cmyk
	}
	b := img.Bounds()
	dst := image.NewCMYK(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x-b.Min.X, y-b.Min.Y, color.CMYKModel.Convert(img.At(x, y)))
		}
	}
	return dst
}
