// Package pagebuild wraps a raster image into a single-page PDF document.
// The page is sized so that the image prints at the requested density:
// a side of px pixels at dpi dots per inch becomes (px/dpi)*72 points.
// RGB rasters are embedded as DCTDecode (JPEG) image XObjects, CMYK rasters
// as flate-compressed DeviceCMYK samples.
package pagebuild

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/BuragaIonut/daisler/pdfobj"
	"github.com/BuragaIonut/daisler/pdfwrite"
	"github.com/BuragaIonut/daisler/units"
)

// JPEGQuality is used when re-encoding RGB rasters for embedding.
const JPEGQuality = 95

// Build produces a one-page document whose page is exactly covered by img.
func Build(img image.Image, dpi float64) (*pdfobj.Document, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("pagebuild: dpi must be positive, got %g", dpi)
	}
	bounds := img.Bounds()
	pxW, pxH := bounds.Dx(), bounds.Dy()
	if pxW <= 0 || pxH <= 0 {
		return nil, fmt.Errorf("pagebuild: empty image %dx%d", pxW, pxH)
	}

	doc := pdfobj.NewDocument()

	xobj, err := imageXObject(img)
	if err != nil {
		return nil, err
	}
	imgRef := doc.Add(xobj)

	ptW := units.PixelsToPoints(pxW, dpi)
	ptH := units.PixelsToPoints(pxH, dpi)

	content := fmt.Sprintf("q\n%s 0 0 %s 0 0 cm\n/Im0 Do\nQ\n",
		pdfwrite.FormatNumber(ptW), pdfwrite.FormatNumber(ptH))
	contentRef := doc.Add(pdfobj.NewStream([]byte(content)))

	pageRef := doc.Alloc()
	pagesRef := doc.Alloc()

	xobjects := pdfobj.NewDict()
	xobjects.Set("Im0", imgRef)
	resources := pdfobj.NewDict()
	resources.Set("XObject", xobjects)

	page := pdfobj.NewDict()
	page.Set("Type", pdfobj.Name("Page"))
	page.Set("Parent", pagesRef)
	page.Set("MediaBox", pdfobj.NewArray(
		pdfobj.Integer(0), pdfobj.Integer(0), pdfobj.Real(ptW), pdfobj.Real(ptH)))
	page.Set("Resources", resources)
	page.Set("Contents", contentRef)
	doc.Set(pageRef, page)

	pages := pdfobj.NewDict()
	pages.Set("Type", pdfobj.Name("Pages"))
	pages.Set("Count", pdfobj.Integer(1))
	pages.Set("Kids", pdfobj.NewArray(pageRef))
	doc.Set(pagesRef, pages)

	catalog := pdfobj.NewDict()
	catalog.Set("Type", pdfobj.Name("Catalog"))
	catalog.Set("Pages", pagesRef)
	doc.Trailer.Set("Root", doc.Add(catalog))

	return doc, nil
}

func imageXObject(img image.Image) (*pdfobj.Stream, error) {
	if cmyk, ok := img.(*image.CMYK); ok {
		return cmykXObject(cmyk)
	}
	return jpegXObject(img)
}

func jpegXObject(img image.Image) (*pdfobj.Stream, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("pagebuild: encode jpeg: %w", err)
	}
	s := pdfobj.NewStream(buf.Bytes())
	setImageKeys(s.Dict, img.Bounds(), "DeviceRGB")
	s.Dict.Set("Filter", pdfobj.Name("DCTDecode"))
	return s, nil
}

func cmykXObject(img *image.CMYK) (*pdfobj.Stream, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		if _, err := zw.Write(row); err != nil {
			zw.Close()
			return nil, fmt.Errorf("pagebuild: compress cmyk: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("pagebuild: compress cmyk: %w", err)
	}

	s := pdfobj.NewStream(buf.Bytes())
	setImageKeys(s.Dict, bounds, "DeviceCMYK")
	s.Dict.Set("Filter", pdfobj.Name("FlateDecode"))
	return s, nil
}

func setImageKeys(d *pdfobj.Dict, bounds image.Rectangle, colorSpace string) {
	d.Set("Type", pdfobj.Name("XObject"))
	d.Set("Subtype", pdfobj.Name("Image"))
	d.Set("Width", pdfobj.Integer(bounds.Dx()))
	d.Set("Height", pdfobj.Integer(bounds.Dy()))
	d.Set("ColorSpace", pdfobj.Name(colorSpace))
	d.Set("BitsPerComponent", pdfobj.Integer(8))
}
