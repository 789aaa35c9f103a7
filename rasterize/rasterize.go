// Package rasterize renders PDF pages to images for analysis and CMYK
// conversion. The MuPDF-backed renderer requires cgo and is selected with
// the mupdf build tag; without it every call reports ErrUnavailable.
package rasterize

import "errors"

// ErrUnavailable is returned when the binary was built without the mupdf tag.
var ErrUnavailable = errors.New("rasterize: built without mupdf support")
