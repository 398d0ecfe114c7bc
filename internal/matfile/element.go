package matfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/ginty-lab/ephus/internal/node"
)

type parser struct {
	order binary.ByteOrder
	// want limits top-level decoding to the named variables; nil means all.
	want map[string]bool
}

// element is one tagged data element.
type element struct {
	typ    uint32
	data   []byte
	offset int // offset of the tag within the enclosing buffer
	next   int // offset of the following element
}

func (p *parser) element(buf []byte, off int) (element, error) {
	if off+8 > len(buf) {
		return element{}, &FormatError{Offset: off, Msg: "truncated element tag"}
	}
	w := p.order.Uint32(buf[off:])
	if w>>16 != 0 {
		// small data element: count in the upper half, data in the next 4 bytes
		size := int(w >> 16)
		if size > 4 {
			return element{}, &FormatError{Offset: off, Msg: fmt.Sprintf("small element of %d bytes", size)}
		}
		return element{typ: w & 0xffff, data: buf[off+4 : off+4+size], offset: off, next: off + 8}, nil
	}

	size := int(p.order.Uint32(buf[off+4:]))
	start := off + 8
	if size < 0 || start+size > len(buf) {
		return element{}, &FormatError{Offset: off, Msg: fmt.Sprintf("element of %d bytes overruns buffer", size)}
	}
	next := start + size
	if w != miCOMPRESSED {
		next = start + pad8(size)
		if next > len(buf) {
			next = len(buf)
		}
	}
	return element{typ: w, data: buf[start : start+size], offset: off, next: next}, nil
}

func pad8(n int) int {
	return (n + 7) &^ 7
}

// matrixHead is the common prefix of every miMATRIX payload.
type matrixHead struct {
	class   int
	complex bool
	logical bool
	dims    []int
	name    string
	rest    int // offset of the class specific payload
}

func (p *parser) matrixHeader(body []byte) (matrixHead, error) {
	var h matrixHead

	flags, err := p.element(body, 0)
	if err != nil {
		return h, err
	}
	if flags.typ != miUINT32 || len(flags.data) < 4 {
		return h, &FormatError{Offset: flags.offset, Msg: "missing array flags"}
	}
	word := p.order.Uint32(flags.data)
	h.class = int(word & 0xff)
	h.complex = word&flagComplex != 0
	h.logical = word&flagLogical != 0

	dims, err := p.element(body, flags.next)
	if err != nil {
		return h, err
	}
	raw, err := p.ints(dims)
	if err != nil {
		return h, err
	}
	h.dims = raw

	name, err := p.element(body, dims.next)
	if err != nil {
		return h, err
	}
	h.name = string(name.data)
	h.rest = name.next
	return h, nil
}

// matrix decodes one miMATRIX payload. An empty payload is an empty array.
func (p *parser) matrix(body []byte, topLevel bool) (string, node.Node, error) {
	if len(body) == 0 {
		return "", &node.Array{Shape: []int{0, 0}, Class: node.ClassDouble, Float: []float64{}}, nil
	}
	h, err := p.matrixHeader(body)
	if err != nil {
		return "", nil, err
	}
	if topLevel && p.want != nil && !p.want[h.name] {
		return h.name, nil, errSkip
	}
	numel, err := elementCount(h.dims, len(body)-h.rest)
	if err != nil {
		return h.name, nil, err
	}

	var n node.Node
	switch h.class {
	case mxCELL:
		n, err = p.cell(body, h, numel)
	case mxSTRUCT, mxOBJECT:
		n, err = p.structure(body, h, numel)
	case mxCHAR:
		n, err = p.char(body, h, numel)
	case mxDOUBLE, mxSINGLE, mxINT8, mxUINT8, mxINT16, mxUINT16, mxINT32, mxUINT32, mxINT64, mxUINT64:
		n, err = p.numeric(body, h, numel)
	case mxSPARSE:
		n = &node.Opaque{Class: "sparse", Raw: body[h.rest:]}
	case mxFUNCTION:
		n = &node.Opaque{Class: "function_handle", Raw: body[h.rest:]}
	case mxOPAQUE:
		n = &node.Opaque{Class: "opaque", Raw: body[h.rest:]}
	default:
		n = &node.Opaque{Class: fmt.Sprintf("class%d", h.class), Raw: body[h.rest:]}
	}
	return h.name, n, err
}

// elementCount returns the number of elements described by dims. Every
// element occupies at least one byte of the payload, so a count above
// payload bytes is rejected before anything is allocated.
func elementCount(dims []int, payload int) (int, error) {
	if len(dims) < 2 {
		return 0, &FormatError{Msg: fmt.Sprintf("array has %d dimensions, want at least 2", len(dims))}
	}
	for _, d := range dims {
		if d < 0 {
			return 0, &FormatError{Msg: "negative dimension"}
		}
		if d == 0 {
			return 0, nil
		}
	}
	numel := 1
	for _, d := range dims {
		if numel > payload/d {
			return 0, &FormatError{Msg: fmt.Sprintf("dimensions %v exceed a %d byte payload", dims, payload)}
		}
		numel *= d
	}
	return numel, nil
}

func (p *parser) cell(body []byte, h matrixHead, numel int) (node.Node, error) {
	elems := make([]node.Node, numel)
	off := h.rest
	for i := range elems {
		el, err := p.element(body, off)
		if err != nil {
			return nil, err
		}
		if el.typ != miMATRIX {
			return nil, &FormatError{Offset: el.offset, Msg: "cell element is not a matrix"}
		}
		if _, elems[i], err = p.matrix(el.data, false); err != nil {
			return nil, err
		}
		off = el.next
	}
	if numel == 1 {
		return &node.Object{Inner: elems[0]}, nil
	}
	return &node.Array{Shape: squeeze(h.dims), Class: node.ClassCell, Elems: toRowMajor(elems, h.dims)}, nil
}

func (p *parser) structure(body []byte, h matrixHead, numel int) (node.Node, error) {
	off := h.rest
	class := node.ClassStruct
	if h.class == mxOBJECT {
		// class name precedes the field layout
		cn, err := p.element(body, off)
		if err != nil {
			return nil, err
		}
		off = cn.next
		class = node.ClassObject
	}

	lenEl, err := p.element(body, off)
	if err != nil {
		return nil, err
	}
	lens, err := p.ints(lenEl)
	if err != nil || len(lens) != 1 || lens[0] <= 0 {
		return nil, &FormatError{Offset: lenEl.offset, Msg: "bad field name length"}
	}
	width := lens[0]

	namesEl, err := p.element(body, lenEl.next)
	if err != nil {
		return nil, err
	}
	nfields := len(namesEl.data) / width
	names := make([]string, nfields)
	for i := range names {
		raw := namesEl.data[i*width : (i+1)*width]
		names[i] = strings.TrimRight(string(raw), "\x00")
	}

	off = namesEl.next
	records := make([]node.Node, numel)
	for i := range records {
		rec := &node.Record{Names: names, Fields: make(map[string]node.Node, nfields)}
		for _, fname := range names {
			el, err := p.element(body, off)
			if err != nil {
				return nil, err
			}
			if el.typ != miMATRIX {
				return nil, &FormatError{Offset: el.offset, Msg: "struct field is not a matrix"}
			}
			_, v, err := p.matrix(el.data, false)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", fname, err)
			}
			rec.Fields[fname] = v
			off = el.next
		}
		records[i] = rec
	}
	if numel == 1 {
		return records[0], nil
	}
	return &node.Array{Shape: squeeze(h.dims), Class: class, Elems: toRowMajor(records, h.dims)}, nil
}

func (p *parser) char(body []byte, h matrixHead, numel int) (node.Node, error) {
	if numel == 0 {
		return node.Text(""), nil
	}
	el, err := p.element(body, h.rest)
	if err != nil {
		return nil, err
	}
	chars, err := p.runes(el)
	if err != nil {
		return nil, err
	}
	if len(chars) != numel {
		return nil, &FormatError{Offset: el.offset, Msg: fmt.Sprintf("char array holds %d characters, want %d", len(chars), numel)}
	}

	rows := h.dims[0]
	cols := numel / rows
	lines := make([]node.Node, rows)
	for r := 0; r < rows; r++ {
		line := make([]rune, cols)
		for c := 0; c < cols; c++ {
			line[c] = chars[r+rows*c]
		}
		lines[r] = node.Text(string(line))
	}
	if rows == 1 {
		return lines[0], nil
	}
	return &node.Array{Shape: []int{rows}, Class: node.ClassChar, Elems: lines}, nil
}

func (p *parser) runes(el element) ([]rune, error) {
	switch el.typ {
	case miUINT16, miUTF16:
		end := unicode.LittleEndian
		if p.order == binary.BigEndian {
			end = unicode.BigEndian
		}
		b, err := unicode.UTF16(end, unicode.IgnoreBOM).NewDecoder().Bytes(el.data)
		if err != nil {
			return nil, &FormatError{Offset: el.offset, Msg: err.Error()}
		}
		return []rune(string(b)), nil
	case miUTF8, miUINT8, miINT8:
		if !utf8.Valid(el.data) {
			// treat as Latin-1
			out := make([]rune, len(el.data))
			for i, c := range el.data {
				out[i] = rune(c)
			}
			return out, nil
		}
		return []rune(string(el.data)), nil
	case miUTF32, miUINT32, miINT32:
		out := make([]rune, len(el.data)/4)
		for i := range out {
			out[i] = rune(p.order.Uint32(el.data[i*4:]))
		}
		return out, nil
	default:
		return nil, &FormatError{Offset: el.offset, Msg: fmt.Sprintf("char data stored as type %d", el.typ)}
	}
}

func (p *parser) numeric(body []byte, h matrixHead, numel int) (node.Node, error) {
	el, err := p.element(body, h.rest)
	if err != nil {
		return nil, err
	}
	vals, err := p.floats(el)
	if err != nil {
		return nil, err
	}
	if len(vals) != numel {
		return nil, &FormatError{Offset: el.offset, Msg: fmt.Sprintf("array holds %d values, want %d", len(vals), numel)}
	}
	// The imaginary part of complex arrays is not kept.

	class := numericClass(h.class)
	if h.logical {
		class = node.ClassLogical
	}
	if numel == 1 {
		return node.Number(vals[0]), nil
	}
	shape := squeeze(h.dims)
	vals = toRowMajor(vals, h.dims)
	if class.IsFloat() {
		return &node.Array{Shape: shape, Class: class, Float: vals}, nil
	}
	elems := make([]node.Node, len(vals))
	for i, v := range vals {
		elems[i] = node.Number(v)
	}
	return &node.Array{Shape: shape, Class: class, Elems: elems}, nil
}

func numericClass(mx int) node.Class {
	switch mx {
	case mxSINGLE:
		return node.ClassSingle
	case mxINT8:
		return node.ClassInt8
	case mxUINT8:
		return node.ClassUint8
	case mxINT16:
		return node.ClassInt16
	case mxUINT16:
		return node.ClassUint16
	case mxINT32:
		return node.ClassInt32
	case mxUINT32:
		return node.ClassUint32
	case mxINT64:
		return node.ClassInt64
	case mxUINT64:
		return node.ClassUint64
	default:
		return node.ClassDouble
	}
}

// floats converts the payload of a numeric element to float64 regardless of
// the storage type. MATLAB may store a double array in a narrower type.
func (p *parser) floats(el element) ([]float64, error) {
	width := map[uint32]int{
		miINT8: 1, miUINT8: 1, miINT16: 2, miUINT16: 2, miINT32: 4, miUINT32: 4,
		miSINGLE: 4, miDOUBLE: 8, miINT64: 8, miUINT64: 8,
	}[el.typ]
	if width == 0 {
		return nil, &FormatError{Offset: el.offset, Msg: fmt.Sprintf("numeric data stored as type %d", el.typ)}
	}
	if len(el.data)%width != 0 {
		return nil, &FormatError{Offset: el.offset, Msg: "numeric data is not a whole number of values"}
	}

	b := el.data
	out := make([]float64, len(b)/width)
	for i := range out {
		v := b[i*width : (i+1)*width]
		switch el.typ {
		case miINT8:
			out[i] = float64(int8(v[0]))
		case miUINT8:
			out[i] = float64(v[0])
		case miINT16:
			out[i] = float64(int16(p.order.Uint16(v)))
		case miUINT16:
			out[i] = float64(p.order.Uint16(v))
		case miINT32:
			out[i] = float64(int32(p.order.Uint32(v)))
		case miUINT32:
			out[i] = float64(p.order.Uint32(v))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(p.order.Uint32(v)))
		case miDOUBLE:
			out[i] = math.Float64frombits(p.order.Uint64(v))
		case miINT64:
			out[i] = float64(int64(p.order.Uint64(v)))
		case miUINT64:
			out[i] = float64(p.order.Uint64(v))
		}
	}
	return out, nil
}

func (p *parser) ints(el element) ([]int, error) {
	vals, err := p.floats(el)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v)
	}
	return out, nil
}
