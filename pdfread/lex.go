package pdfread

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/BuragaIonut/daisler/pdfobj"
)

// lexer walks a fully buffered PDF file and parses object syntax into
// pdfobj values. It handles the classic constructs only; cross-reference
// streams and object streams are out of scope for the splicer.
type lexer struct {
	data []byte
	pos  int
}

func (l *lexer) skipWS() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.data) {
		return 0
	}
	return l.data[l.pos]
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.data) {
		return 0
	}
	return l.data[l.pos+n]
}

// parseValue reads the next object value at the current position.
func (l *lexer) parseValue() (pdfobj.Object, error) {
	l.skipWS()
	if l.pos >= len(l.data) {
		return nil, fmt.Errorf("unexpected end of file at %d", l.pos)
	}
	c := l.data[l.pos]
	switch {
	case c == '<' && l.peekAt(1) == '<':
		return l.parseDict()
	case c == '<':
		return l.parseHexString()
	case c == '(':
		return l.parseLiteralString()
	case c == '[':
		return l.parseArray()
	case c == '/':
		return l.parseName()
	case isNumberStart(c):
		return l.parseNumberOrRef()
	default:
		kw := l.readKeyword()
		switch kw {
		case "true":
			return pdfobj.Boolean(true), nil
		case "false":
			return pdfobj.Boolean(false), nil
		case "null":
			return pdfobj.Null{}, nil
		}
		return nil, fmt.Errorf("unexpected token %q at %d", kw, l.pos)
	}
}

func (l *lexer) parseDict() (pdfobj.Object, error) {
	l.pos += 2 // <<
	d := pdfobj.NewDict()
	for {
		l.skipWS()
		if l.pos+1 < len(l.data) && l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			l.pos += 2
			break
		}
		if l.peek() != '/' {
			return nil, fmt.Errorf("expected name key at %d", l.pos)
		}
		key, err := l.parseName()
		if err != nil {
			return nil, err
		}
		val, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		d.Set(string(key.(pdfobj.Name)), val)
	}
	// A stream keyword directly after the dictionary turns it into a stream.
	save := l.pos
	l.skipWS()
	if bytes.HasPrefix(l.data[l.pos:], []byte("stream")) {
		return l.parseStream(d)
	}
	l.pos = save
	return d, nil
}

func (l *lexer) parseStream(dict *pdfobj.Dict) (pdfobj.Object, error) {
	l.pos += len("stream")
	if l.peek() == '\r' {
		l.pos++
	}
	if l.peek() == '\n' {
		l.pos++
	}
	start := l.pos

	end := -1
	if v, ok := dict.Get("Length"); ok {
		if n, ok := v.(pdfobj.Integer); ok && start+int(n) <= len(l.data) {
			end = start + int(n)
		}
	}
	if end < 0 {
		// Length missing or indirect. Scan for the endstream marker and
		// trim the EOL that precedes it.
		idx := bytes.Index(l.data[start:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("endstream not found after %d", start)
		}
		end = start + idx
		if end > start && l.data[end-1] == '\n' {
			end--
		}
		if end > start && l.data[end-1] == '\r' {
			end--
		}
	}

	s := pdfobj.NewStream(append([]byte(nil), l.data[start:end]...))
	for _, k := range dict.SortedKeys() {
		if k == "Length" {
			continue
		}
		v, _ := dict.Get(k)
		s.Dict.Set(k, v)
	}

	l.pos = end
	l.skipWS()
	if !bytes.HasPrefix(l.data[l.pos:], []byte("endstream")) {
		return nil, fmt.Errorf("endstream not found at %d", l.pos)
	}
	l.pos += len("endstream")
	return s, nil
}

func (l *lexer) parseArray() (pdfobj.Object, error) {
	l.pos++ // [
	a := pdfobj.NewArray()
	for {
		l.skipWS()
		if l.peek() == ']' {
			l.pos++
			return a, nil
		}
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated array at %d", l.pos)
		}
		v, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		a.Append(v)
	}
}

func (l *lexer) parseName() (pdfobj.Object, error) {
	l.pos++ // /
	var out bytes.Buffer
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isDelimiter(c) {
			break
		}
		if c == '#' && l.pos+2 < len(l.data) {
			out.WriteByte(fromHex(l.data[l.pos+1])<<4 | fromHex(l.data[l.pos+2]))
			l.pos += 3
			continue
		}
		out.WriteByte(c)
		l.pos++
	}
	return pdfobj.Name(out.String()), nil
}

func (l *lexer) parseLiteralString() (pdfobj.Object, error) {
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch c {
		case '\\':
			l.pos++
			if l.pos >= len(l.data) {
				break
			}
			esc := l.data[l.pos]
			if esc >= '0' && esc <= '7' {
				val := int(esc - '0')
				l.pos++
				for k := 0; k < 2 && l.pos < len(l.data); k++ {
					d := l.data[l.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					l.pos++
				}
				buf.WriteByte(byte(val))
				continue
			}
			buf.WriteByte(translateEscape(esc))
			l.pos++
		case '(':
			depth++
			buf.WriteByte(c)
			l.pos++
		case ')':
			depth--
			l.pos++
			if depth == 0 {
				return pdfobj.String(buf.String()), nil
			}
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
			l.pos++
		}
	}
	return nil, fmt.Errorf("unterminated literal string at %d", l.pos)
}

func (l *lexer) parseHexString() (pdfobj.Object, error) {
	l.pos++ // <
	var nib []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if len(nib)%2 == 1 {
				nib = append(nib, '0')
			}
			out := make([]byte, 0, len(nib)/2)
			for i := 0; i < len(nib); i += 2 {
				out = append(out, fromHex(nib[i])<<4|fromHex(nib[i+1]))
			}
			return pdfobj.String(out), nil
		}
		if isWhitespace(c) {
			continue
		}
		nib = append(nib, c)
	}
	return nil, fmt.Errorf("unterminated hex string at %d", l.pos)
}

func (l *lexer) parseNumberOrRef() (pdfobj.Object, error) {
	first := l.readNumberString()
	if first == "" {
		return nil, fmt.Errorf("invalid number at %d", l.pos)
	}

	// "N G R" is an indirect reference; anything else rewinds.
	save := l.pos
	l.skipWS()
	second := l.readNumberString()
	if second != "" {
		l.skipWS()
		if l.peek() == 'R' && isDelimiter(l.peekAt(1)) {
			l.pos++
			num, err1 := strconv.Atoi(first)
			gen, err2 := strconv.Atoi(second)
			if err1 == nil && err2 == nil {
				return pdfobj.Ref{Num: num, Gen: gen}, nil
			}
		}
	}
	l.pos = save

	if i, err := strconv.ParseInt(first, 10, 64); err == nil {
		return pdfobj.Integer(i), nil
	}
	f, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", first)
	}
	return pdfobj.Real(f), nil
}

func (l *lexer) readNumberString() string {
	start := l.pos
	seenDigit := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			if c >= '0' && c <= '9' {
				seenDigit = true
			}
			l.pos++
			continue
		}
		break
	}
	if !seenDigit {
		l.pos = start
		return ""
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) readKeyword() string {
	start := l.pos
	for l.pos < len(l.data) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func isNumberStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return isWhitespace(c)
	}
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}
