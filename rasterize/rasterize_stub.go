//go:build !mupdf

package rasterize

import (
	"context"
	"image"
)

// Available reports whether a renderer was compiled in.
const Available = false

// Page renders the zero-based page of the PDF in data at the given DPI.
func Page(context.Context, []byte, int, float64) (image.Image, error) {
	return nil, ErrUnavailable
}

// PageCount returns the number of pages in the PDF in data.
func PageCount(context.Context, []byte) (int, error) {
	return 0, ErrUnavailable
}
