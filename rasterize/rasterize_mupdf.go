//go:build mupdf

package rasterize

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Available reports whether a renderer was compiled in.
const Available = true

// Page renders the zero-based page of the PDF in data at the given DPI.
func Page(_ context.Context, data []byte, page int, dpi float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("rasterize: read document: %w", err)
	}
	defer doc.Close()

	if n := doc.NumPage(); page < 0 || page >= n {
		return nil, fmt.Errorf("rasterize: page %d out of range (%d pages)", page, n)
	}
	img, err := doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("rasterize: render page %d: %w", page, err)
	}
	return img, nil
}

// PageCount returns the number of pages in the PDF in data.
func PageCount(_ context.Context, data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, fmt.Errorf("rasterize: read document: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
