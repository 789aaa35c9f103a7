package pdfobj

import "fmt"

// MalformedStructureError reports a document whose object graph does not
// match the shape an operation requires. It is fatal to the operation; the
// document is never patched around a shape we do not understand.
type MalformedStructureError struct {
	Path   string
	Reason string
}

func (e *MalformedStructureError) Error() string {
	return fmt.Sprintf("malformed pdf structure at %s: %s", e.Path, e.Reason)
}

func malformed(path, format string, args ...any) *MalformedStructureError {
	return &MalformedStructureError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Catalog resolves the document catalog via the trailer's Root entry.
func (d *Document) Catalog() (*Dict, error) {
	rootObj, ok := d.Trailer.Get("Root")
	if !ok {
		return nil, malformed("trailer", "missing Root")
	}
	catalog, ok := d.Resolve(rootObj).(*Dict)
	if !ok {
		return nil, malformed("trailer/Root", "not a dictionary")
	}
	return catalog, nil
}

// Page returns the handle and dictionary of the page at index, walking
// Catalog -> Pages -> Kids. Only flat page trees are supported; the pipeline
// emits and edits single-page documents.
func (d *Document) Page(index int) (Ref, *Dict, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return Ref{}, nil, err
	}
	pagesObj, ok := catalog.Get("Pages")
	if !ok {
		return Ref{}, nil, malformed("catalog", "missing Pages")
	}
	pages, ok := d.Resolve(pagesObj).(*Dict)
	if !ok {
		return Ref{}, nil, malformed("catalog/Pages", "not a dictionary")
	}
	kidsObj, ok := pages.Get("Kids")
	if !ok {
		return Ref{}, nil, malformed("Pages", "missing Kids")
	}
	kids, ok := kidsObj.(*Array)
	if !ok {
		return Ref{}, nil, malformed("Pages/Kids", "not an array")
	}
	if index < 0 || index >= kids.Len() {
		return Ref{}, nil, malformed("Pages/Kids", "page index %d out of range (%d pages)", index, kids.Len())
	}
	ref, ok := kids.At(index).(Ref)
	if !ok {
		return Ref{}, nil, malformed("Pages/Kids", "kid %d is not a reference", index)
	}
	page, ok := d.Resolve(ref).(*Dict)
	if !ok {
		return Ref{}, nil, malformed(ref.String(), "page object is not a dictionary")
	}
	return ref, page, nil
}

// MediaBox returns the page's media box as [llx lly urx ury].
func (d *Document) MediaBox(page *Dict) ([4]float64, error) {
	boxObj, ok := page.Get("MediaBox")
	if !ok {
		return [4]float64{}, malformed("page", "missing MediaBox")
	}
	arr, ok := d.Resolve(boxObj).(*Array)
	if !ok || arr.Len() != 4 {
		return [4]float64{}, malformed("page/MediaBox", "not a 4-element array")
	}
	var box [4]float64
	for i := 0; i < 4; i++ {
		switch v := arr.At(i).(type) {
		case Integer:
			box[i] = float64(v)
		case Real:
			box[i] = float64(v)
		default:
			return [4]float64{}, malformed("page/MediaBox", "element %d is not numeric", i)
		}
	}
	return box, nil
}
