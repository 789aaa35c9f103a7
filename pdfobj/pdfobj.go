// Package pdfobj models a PDF document as an explicitly owned graph of
// indirect objects. A Document is the single owner of its object table;
// allocation hands out stable integer handles and nothing is removed while
// the graph is being built. Object values are a closed set of variants so
// structural branching is a type switch, never string inspection.
package pdfobj

import (
	"fmt"
	"sort"
)

// Ref identifies an indirect object inside one Document.
type Ref struct {
	Num int
	Gen int
}

func (r Ref) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the closed set of PDF value variants: Name, Integer, Real,
// Boolean, String, Null, *Array, *Dict, *Stream and Ref.
type Object interface {
	pdfValue()
}

type Name string

func (Name) pdfValue() {}

type Integer int64

func (Integer) pdfValue() {}

type Real float64

func (Real) pdfValue() {}

type Boolean bool

func (Boolean) pdfValue() {}

// String is a literal PDF string.
type String []byte

func (String) pdfValue() {}

type Null struct{}

func (Null) pdfValue() {}

func (Ref) pdfValue() {}

// Array holds an ordered sequence of values.
type Array struct {
	Items []Object
}

func (*Array) pdfValue() {}

func NewArray(items ...Object) *Array { return &Array{Items: items} }

func (a *Array) Len() int           { return len(a.Items) }
func (a *Array) Append(o Object)    { a.Items = append(a.Items, o) }
func (a *Array) At(i int) Object    { return a.Items[i] }

// Dict is a name-keyed dictionary. Keys are stored without the leading
// slash.
type Dict struct {
	KV map[string]Object
}

func (*Dict) pdfValue() {}

func NewDict() *Dict { return &Dict{KV: make(map[string]Object)} }

func (d *Dict) Get(key string) (Object, bool) { o, ok := d.KV[key]; return o, ok }
func (d *Dict) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}
func (d *Dict) Delete(key string) { delete(d.KV, key) }
func (d *Dict) Len() int          { return len(d.KV) }

// SortedKeys returns the keys in lexical order for deterministic output.
func (d *Dict) SortedKeys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stream couples a dictionary with raw bytes. The Length entry is written
// from len(Data) at serialisation time.
type Stream struct {
	Dict *Dict
	Data []byte
}

func (*Stream) pdfValue() {}

func NewStream(data []byte) *Stream { return &Stream{Dict: NewDict(), Data: data} }

// Document owns the full object table of a PDF file under construction or
// under edit. Objects are only ever added while building; unreferenced
// objects are left in place and dropped by the serialiser's caller if at all.
type Document struct {
	Version string
	Trailer *Dict

	objects map[Ref]Object
	nextNum int
}

// NewDocument returns an empty document with object numbering starting at 1.
func NewDocument() *Document {
	return &Document{
		Version: "1.7",
		Trailer: NewDict(),
		objects: make(map[Ref]Object),
		nextNum: 1,
	}
}

// Alloc reserves the next object number and returns its handle. The slot is
// empty until Set is called.
func (d *Document) Alloc() Ref {
	ref := Ref{Num: d.nextNum}
	d.nextNum++
	return ref
}

// Set stores obj under ref, replacing any previous value.
func (d *Document) Set(ref Ref, obj Object) {
	d.objects[ref] = obj
	if ref.Num >= d.nextNum {
		d.nextNum = ref.Num + 1
	}
}

// Add allocates a handle and stores obj under it.
func (d *Document) Add(obj Object) Ref {
	ref := d.Alloc()
	d.objects[ref] = obj
	return ref
}

// Get returns the object stored under ref.
func (d *Document) Get(ref Ref) (Object, bool) {
	o, ok := d.objects[ref]
	return o, ok
}

// Resolve follows at most one level of indirection: a Ref value is looked up
// in the table, anything else is returned as-is.
func (d *Document) Resolve(obj Object) Object {
	if ref, ok := obj.(Ref); ok {
		if target, ok := d.objects[ref]; ok {
			return target
		}
		return Null{}
	}
	return obj
}

// Refs returns all allocated handles in ascending object-number order.
func (d *Document) Refs() []Ref {
	refs := make([]Ref, 0, len(d.objects))
	for ref := range d.objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Num < refs[j].Num })
	return refs
}

// MaxNum returns the highest allocated object number.
func (d *Document) MaxNum() int { return d.nextNum - 1 }

// Len returns the number of stored objects.
func (d *Document) Len() int { return len(d.objects) }
