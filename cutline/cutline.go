// Package cutline stamps a spot-color frame onto a page of an existing PDF.
// Print RIPs identify cut paths by a named Separation ink, so the frame is
// spliced in at the object level: a Separation color space, a /CS1 resource
// entry and a stroking content stream appended after the page imagery. A
// plain red line drawn through an imaging API would look the same on screen
// but would not be recognised by the cutter.
package cutline

import (
	"fmt"

	"github.com/BuragaIonut/daisler/pdfobj"
	"github.com/BuragaIonut/daisler/pdfwrite"
	"github.com/BuragaIonut/daisler/trimbox"
)

// DefaultSpotName is the ink name most cutters are configured to look for.
const DefaultSpotName = "CutContour"

// DefaultAlternateCMYK renders the cutline as a warm orange in viewers that
// do not know the spot ink.
var DefaultAlternateCMYK = [4]float64{0.3, 0.5, 1, 0}

// SpotColorSpec describes the Separation ink used for the cutline.
type SpotColorSpec struct {
	// Name of the spot ink, e.g. "CutContour".
	Name string
	// AlternateCMYK is the tint-1 color in the DeviceCMYK alternate space.
	AlternateCMYK [4]float64
}

// DefaultSpot returns the CutContour ink with the standard alternate color.
func DefaultSpot() SpotColorSpec {
	return SpotColorSpec{Name: DefaultSpotName, AlternateCMYK: DefaultAlternateCMYK}
}

// Options control placement and stroke geometry.
type Options struct {
	// PageIndex selects the target page, zero-based.
	PageIndex int
	// Hairline strokes at width 0, the device-thinnest line.
	Hairline bool
	// StrokeWidthPt is used when Hairline is false.
	StrokeWidthPt float64
}

// DefaultOptions stamps a hairline on the first page.
func DefaultOptions() Options {
	return Options{PageIndex: 0, Hairline: true, StrokeWidthPt: 0.5}
}

// Add splices the cutline rectangle into doc. The document is modified in
// place: a Separation object is created, the page's resources gain a
// ColorSpace /CS1 entry and an ExtGState /GS0 entry, and a stroking stream
// is appended to /Contents so the frame paints over the page imagery.
func Add(doc *pdfobj.Document, rect trimbox.PointRect, spot SpotColorSpec, opts Options) error {
	pageRef, page, err := doc.Page(opts.PageIndex)
	if err != nil {
		return err
	}

	sepRef := doc.Add(separationObject(spot))

	resources, err := ensureResources(doc, pageRef, page)
	if err != nil {
		return err
	}
	if err := mergeColorSpace(doc, resources, sepRef); err != nil {
		return err
	}
	if err := mergeExtGState(doc, resources); err != nil {
		return err
	}

	strokeRef := doc.Add(pdfobj.NewStream(strokeStream(rect, opts)))
	return appendContents(doc, page, strokeRef)
}

// separationObject builds
// [/Separation /<name> /DeviceCMYK <tint transform>] where the transform is
// an exponential interpolation function with N=1: tint 0 maps to no ink,
// tint 1 to the alternate CMYK color.
func separationObject(spot SpotColorSpec) *pdfobj.Array {
	fn := pdfobj.NewDict()
	fn.Set("FunctionType", pdfobj.Integer(2))
	fn.Set("Domain", pdfobj.NewArray(pdfobj.Integer(0), pdfobj.Integer(1)))
	fn.Set("C0", pdfobj.NewArray(
		pdfobj.Integer(0), pdfobj.Integer(0), pdfobj.Integer(0), pdfobj.Integer(0)))
	fn.Set("C1", pdfobj.NewArray(
		pdfobj.Real(spot.AlternateCMYK[0]), pdfobj.Real(spot.AlternateCMYK[1]),
		pdfobj.Real(spot.AlternateCMYK[2]), pdfobj.Real(spot.AlternateCMYK[3])))
	fn.Set("N", pdfobj.Integer(1))
	return pdfobj.NewArray(
		pdfobj.Name("Separation"), pdfobj.Name(spot.Name), pdfobj.Name("DeviceCMYK"), fn)
}

// ensureResources returns the page's resources as a mutable indirect dict.
// A missing entry is created; an inline dict is promoted to an indirect
// object first so later revisions of the file can share it.
func ensureResources(doc *pdfobj.Document, pageRef pdfobj.Ref, page *pdfobj.Dict) (*pdfobj.Dict, error) {
	raw, ok := page.Get("Resources")
	if !ok {
		resources := pdfobj.NewDict()
		page.Set("Resources", doc.Add(resources))
		doc.Set(pageRef, page)
		return resources, nil
	}
	switch v := raw.(type) {
	case pdfobj.Ref:
		resources, ok := doc.Resolve(v).(*pdfobj.Dict)
		if !ok {
			return nil, structural("Resources", "reference %s does not resolve to a dictionary", v)
		}
		return resources, nil
	case *pdfobj.Dict:
		page.Set("Resources", doc.Add(v))
		doc.Set(pageRef, page)
		return v, nil
	default:
		return nil, structural("Resources", "unexpected value of type %T", raw)
	}
}

// mergeColorSpace puts /CS1 -> sepRef into Resources/ColorSpace without
// disturbing entries that are already there. An existing /CS1 is left alone.
func mergeColorSpace(doc *pdfobj.Document, resources *pdfobj.Dict, sepRef pdfobj.Ref) error {
	raw, ok := resources.Get("ColorSpace")
	if !ok {
		cs := pdfobj.NewDict()
		cs.Set(CutlineColorSpaceName, sepRef)
		resources.Set("ColorSpace", doc.Add(cs))
		return nil
	}
	var cs *pdfobj.Dict
	switch v := raw.(type) {
	case pdfobj.Ref:
		d, ok := doc.Resolve(v).(*pdfobj.Dict)
		if !ok {
			return structural("Resources.ColorSpace", "reference %s does not resolve to a dictionary", v)
		}
		cs = d
	case *pdfobj.Dict:
		cs = v
		resources.Set("ColorSpace", doc.Add(v))
	default:
		return structural("Resources.ColorSpace", "unexpected value of type %T", raw)
	}
	if _, exists := cs.Get(CutlineColorSpaceName); !exists {
		cs.Set(CutlineColorSpaceName, sepRef)
	}
	return nil
}

// mergeExtGState guarantees a fully opaque /GS0 graphics state is available.
func mergeExtGState(doc *pdfobj.Document, resources *pdfobj.Dict) error {
	gs0 := pdfobj.NewDict()
	gs0.Set("CA", pdfobj.Integer(1))
	gs0.Set("ca", pdfobj.Integer(1))

	raw, ok := resources.Get("ExtGState")
	if !ok {
		gs := pdfobj.NewDict()
		gs.Set("GS0", gs0)
		resources.Set("ExtGState", doc.Add(gs))
		return nil
	}
	var gs *pdfobj.Dict
	switch v := raw.(type) {
	case pdfobj.Ref:
		d, ok := doc.Resolve(v).(*pdfobj.Dict)
		if !ok {
			return structural("Resources.ExtGState", "reference %s does not resolve to a dictionary", v)
		}
		gs = d
	case *pdfobj.Dict:
		gs = v
		resources.Set("ExtGState", doc.Add(v))
	default:
		return structural("Resources.ExtGState", "unexpected value of type %T", raw)
	}
	if _, exists := gs.Get("GS0"); !exists {
		gs.Set("GS0", gs0)
	}
	return nil
}

// CutlineColorSpaceName is the resource key the stroke stream selects.
const CutlineColorSpaceName = "CS1"

// strokeStream draws the rectangle in the spot ink at full tint.
func strokeStream(rect trimbox.PointRect, opts Options) []byte {
	width := 0.0
	if !opts.Hairline {
		width = opts.StrokeWidthPt
	}
	return []byte(fmt.Sprintf("q\n%s w\n/%s CS\n1 SCN\n%s %s %s %s re\nS\nQ\n",
		pdfwrite.FormatNumber(width),
		CutlineColorSpaceName,
		pdfwrite.FormatNumber(rect.X1),
		pdfwrite.FormatNumber(rect.Y1),
		pdfwrite.FormatNumber(rect.Width()),
		pdfwrite.FormatNumber(rect.Height())))
}

// appendContents attaches strokeRef after the existing page content. The
// four shapes /Contents can take are handled explicitly; anything else is
// reported instead of guessed at.
func appendContents(doc *pdfobj.Document, page *pdfobj.Dict, strokeRef pdfobj.Ref) error {
	raw, ok := page.Get("Contents")
	if !ok {
		page.Set("Contents", strokeRef)
		return nil
	}
	switch v := raw.(type) {
	case pdfobj.Ref:
		switch target := doc.Resolve(v).(type) {
		case *pdfobj.Stream:
			page.Set("Contents", doc.Add(pdfobj.NewArray(v, strokeRef)))
			return nil
		case *pdfobj.Array:
			target.Append(strokeRef)
			return nil
		default:
			return structural("Contents", "reference %s resolves to %T", v, target)
		}
	case *pdfobj.Array:
		v.Append(strokeRef)
		return nil
	case *pdfobj.Stream:
		// Inline stream. Promote it so both streams can sit in an array.
		oldRef := doc.Add(v)
		page.Set("Contents", doc.Add(pdfobj.NewArray(oldRef, strokeRef)))
		return nil
	default:
		return structural("Contents", "unexpected value of type %T", raw)
	}
}

func structural(path, format string, args ...any) error {
	return &pdfobj.MalformedStructureError{
		Path:   path,
		Reason: fmt.Sprintf(format, args...),
	}
}
