// Package pdfwrite serialises a pdfobj.Document to PDF bytes: header, body
// in ascending object order, a classic cross-reference table and the
// trailer. Output is deterministic for a given document.
package pdfwrite

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/BuragaIonut/daisler/pdfobj"
)

// Marshal writes the complete file for doc.
func Marshal(doc *pdfobj.Document) ([]byte, error) {
	if _, ok := doc.Trailer.Get("Root"); !ok {
		return nil, fmt.Errorf("marshal pdf: trailer has no Root")
	}

	var buf bytes.Buffer
	version := doc.Version
	if version == "" {
		version = "1.7"
	}
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", version)

	type xrefEntry struct {
		off int64
		gen int
	}

	refs := doc.Refs()
	entries := make(map[int]xrefEntry, len(refs))
	for _, ref := range refs {
		obj, _ := doc.Get(ref)
		entries[ref.Num] = xrefEntry{off: int64(buf.Len()), gen: ref.Gen}
		fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
		writeValue(&buf, obj)
		buf.WriteString("\nendobj\n")
	}

	maxNum := 0
	if len(refs) > 0 {
		maxNum = refs[len(refs)-1].Num
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		if e, ok := entries[num]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", e.off, e.gen)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	buf.WriteString("trailer\n")
	trailer := pdfobj.NewDict()
	for _, k := range doc.Trailer.SortedKeys() {
		v, _ := doc.Trailer.Get(k)
		trailer.Set(k, v)
	}
	trailer.Set("Size", pdfobj.Integer(maxNum+1))
	writeValue(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, obj pdfobj.Object) {
	switch v := obj.(type) {
	case pdfobj.Name:
		buf.WriteByte('/')
		buf.WriteString(string(v))
	case pdfobj.Integer:
		fmt.Fprintf(buf, "%d", int64(v))
	case pdfobj.Real:
		buf.WriteString(FormatNumber(float64(v)))
	case pdfobj.Boolean:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case pdfobj.Null:
		buf.WriteString("null")
	case pdfobj.String:
		buf.WriteByte('(')
		for _, c := range []byte(v) {
			switch c {
			case '(', ')', '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			default:
				buf.WriteByte(c)
			}
		}
		buf.WriteByte(')')
	case pdfobj.Ref:
		fmt.Fprintf(buf, "%d %d R", v.Num, v.Gen)
	case *pdfobj.Array:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeValue(buf, item)
		}
		buf.WriteByte(']')
	case *pdfobj.Dict:
		writeDict(buf, v)
	case *pdfobj.Stream:
		dict := pdfobj.NewDict()
		for _, k := range v.Dict.SortedKeys() {
			val, _ := v.Dict.Get(k)
			dict.Set(k, val)
		}
		dict.Set("Length", pdfobj.Integer(len(v.Data)))
		writeDict(buf, dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString("null")
	}
}

func writeDict(buf *bytes.Buffer, d *pdfobj.Dict) {
	buf.WriteString("<<")
	for _, k := range d.SortedKeys() {
		buf.WriteString(" /")
		buf.WriteString(k)
		buf.WriteByte(' ')
		v, _ := d.Get(k)
		writeValue(buf, v)
	}
	buf.WriteString(" >>")
}

// FormatNumber renders a float the way PDF content expects: no exponent,
// trailing zeros trimmed.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = trimZeros(s)
	return s
}

func trimZeros(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
