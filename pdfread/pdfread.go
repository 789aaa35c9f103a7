// Package pdfread loads a classic single-revision or incrementally updated
// PDF into a pdfobj.Document. It resolves the startxref pointer, walks the
// cross-reference table chain through Prev links and parses every in-use
// object. Cross-reference streams and object streams are not handled; files
// using them are reported as malformed rather than silently misread.
package pdfread

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/BuragaIonut/daisler/pdfobj"
)

const maxXRefDepth = 32

type xrefEntry struct {
	offset int64
	gen    int
}

// Parse reads a full PDF file into a Document.
func Parse(data []byte) (*pdfobj.Document, error) {
	version, err := readHeader(data)
	if err != nil {
		return nil, err
	}

	start, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}

	entries := make(map[int]xrefEntry)
	trailer := pdfobj.NewDict()
	offset := start
	for depth := 0; ; depth++ {
		if depth >= maxXRefDepth {
			return nil, fmt.Errorf("xref Prev chain deeper than %d", maxXRefDepth)
		}
		section, err := parseXRefSection(data, offset, entries, trailer)
		if err != nil {
			return nil, err
		}
		prev, ok := section.Get("Prev")
		if !ok {
			break
		}
		n, ok := prev.(pdfobj.Integer)
		if !ok {
			return nil, fmt.Errorf("trailer Prev is not an integer")
		}
		offset = int64(n)
	}

	doc := pdfobj.NewDocument()
	doc.Version = version
	for _, key := range trailer.SortedKeys() {
		switch key {
		case "Size", "Prev", "XRefStm":
			continue
		}
		v, _ := trailer.Get(key)
		doc.Trailer.Set(key, v)
	}

	for num, e := range entries {
		obj, err := parseIndirectObject(data, num, e)
		if err != nil {
			return nil, err
		}
		doc.Set(pdfobj.Ref{Num: num, Gen: e.gen}, obj)
	}
	return doc, nil
}

func readHeader(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", fmt.Errorf("missing %%PDF header")
	}
	end := bytes.IndexAny(data, "\r\n")
	if end < 0 {
		end = len(data)
	}
	return string(data[len("%PDF-"):end]), nil
}

func findStartXRef(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	sc := bufio.NewScanner(bytes.NewReader(data[idx+len("startxref"):]))
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		off, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse startxref: %w", err)
		}
		if off <= 0 || off >= int64(len(data)) {
			return 0, fmt.Errorf("startxref offset out of range: %d", off)
		}
		return off, nil
	}
	return 0, fmt.Errorf("startxref value missing")
}

// parseXRefSection reads one classic table plus its trailer dictionary.
// Entries already present in dst belong to a newer revision and are kept.
// Trailer keys merge the same way, newest revision first.
func parseXRefSection(data []byte, offset int64, dst map[int]xrefEntry, trailer *pdfobj.Dict) (*pdfobj.Dict, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("xref offset out of range: %d", offset)
	}
	lx := &lexer{data: data, pos: int(offset)}
	lx.skipWS()
	if lx.readKeyword() != "xref" {
		return nil, fmt.Errorf("no xref table at offset %d", offset)
	}

	for {
		lx.skipWS()
		if bytes.HasPrefix(data[lx.pos:], []byte("trailer")) {
			lx.pos += len("trailer")
			break
		}
		startObj, count, err := readSubsectionHeader(lx)
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			lx.skipWS()
			off, gen, inUse, err := readXRefEntry(lx)
			if err != nil {
				return nil, err
			}
			num := startObj + i
			if !inUse {
				continue
			}
			if _, seen := dst[num]; seen {
				continue
			}
			dst[num] = xrefEntry{offset: off, gen: gen}
		}
	}

	obj, err := lx.parseValue()
	if err != nil {
		return nil, fmt.Errorf("parse trailer: %w", err)
	}
	section, ok := obj.(*pdfobj.Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	for _, key := range section.SortedKeys() {
		if _, seen := trailer.Get(key); seen {
			continue
		}
		v, _ := section.Get(key)
		trailer.Set(key, v)
	}
	return section, nil
}

func readSubsectionHeader(lx *lexer) (int, int, error) {
	first := lx.readNumberString()
	lx.skipWS()
	second := lx.readNumberString()
	if first == "" || second == "" {
		return 0, 0, fmt.Errorf("invalid xref subsection header at %d", lx.pos)
	}
	startObj, err := strconv.Atoi(first)
	if err != nil {
		return 0, 0, fmt.Errorf("parse xref start: %w", err)
	}
	count, err := strconv.Atoi(second)
	if err != nil {
		return 0, 0, fmt.Errorf("parse xref count: %w", err)
	}
	return startObj, count, nil
}

func readXRefEntry(lx *lexer) (int64, int, bool, error) {
	offStr := lx.readNumberString()
	lx.skipWS()
	genStr := lx.readNumberString()
	lx.skipWS()
	kind := lx.peek()
	if kind == 'n' || kind == 'f' {
		lx.pos++
	}
	if offStr == "" || genStr == "" || (kind != 'n' && kind != 'f') {
		return 0, 0, false, fmt.Errorf("invalid xref entry at %d", lx.pos)
	}
	off, err := strconv.ParseInt(offStr, 10, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse xref offset: %w", err)
	}
	gen, err := strconv.Atoi(genStr)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse xref gen: %w", err)
	}
	return off, gen, kind == 'n', nil
}

func parseIndirectObject(data []byte, num int, e xrefEntry) (pdfobj.Object, error) {
	if e.offset < 0 || e.offset >= int64(len(data)) {
		return nil, fmt.Errorf("object %d: offset out of range: %d", num, e.offset)
	}
	lx := &lexer{data: data, pos: int(e.offset)}
	lx.skipWS()
	gotNum := lx.readNumberString()
	lx.skipWS()
	gotGen := lx.readNumberString()
	lx.skipWS()
	if lx.readKeyword() != "obj" {
		return nil, fmt.Errorf("object %d: obj keyword not found at offset %d", num, e.offset)
	}
	if n, err := strconv.Atoi(gotNum); err != nil || n != num {
		return nil, fmt.Errorf("object %d: header names object %s", num, gotNum)
	}
	if g, err := strconv.Atoi(gotGen); err != nil || g != e.gen {
		return nil, fmt.Errorf("object %d: header generation %s does not match xref %d", num, gotGen, e.gen)
	}
	obj, err := lx.parseValue()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	return obj, nil
}
