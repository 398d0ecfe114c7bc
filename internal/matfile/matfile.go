// Package matfile reads level 5 MAT-files (MATLAB versions 5 through 7.2)
// into generic record graphs.
//
// FILE STRUCTURE:
//
//	├── Header (128 bytes)
//	│   ├── descriptive text (116 bytes, "MATLAB 5.0 MAT-file, ...")
//	│   ├── subsystem data offset (8 bytes, ignored)
//	│   ├── version (2 bytes, 0x0100)
//	│   └── endian indicator (2 bytes, "IM" little-endian, "MI" big-endian)
//	└── Data elements, one per variable
//	    ├── miMATRIX: array flags, dimensions, name, class specific payload
//	    └── miCOMPRESSED: zlib stream that inflates to one miMATRIX element
//
// Every element starts with an 8-byte tag (type, byte count) and is padded
// to 8 bytes, except for compressed elements. Elements of 4 bytes or less may
// use the small element format where type and count share the first word.
//
// Values are squeezed on read: singleton dimensions are dropped, 1x1 numeric
// arrays become scalars, single-row char arrays become text, 1x1 structs
// become records and 1x1 cells become object wrappers. HDF5-based v7.3 files
// are not supported.
package matfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/ginty-lab/ephus/internal/node"
)

// Data element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
	miUTF16      = 17
	miUTF32      = 18
)

// Array classes stored in the array flags word.
const (
	mxCELL     = 1
	mxSTRUCT   = 2
	mxOBJECT   = 3
	mxCHAR     = 4
	mxSPARSE   = 5
	mxDOUBLE   = 6
	mxSINGLE   = 7
	mxINT8     = 8
	mxUINT8    = 9
	mxINT16    = 10
	mxUINT16   = 11
	mxINT32    = 12
	mxUINT32   = 13
	mxINT64    = 14
	mxUINT64   = 15
	mxFUNCTION = 16
	mxOPAQUE   = 17
)

const (
	headerSize     = 128
	headerTextSize = 116
	flagComplex    = 0x0800
	flagLogical    = 0x0200

	// compressedPeekSize is how much of a compressed element is inflated to
	// read the variable name before deciding whether to inflate the rest.
	compressedPeekSize = 512
)

var (
	// ErrNotMATFile is returned when the input does not carry a MAT-file header.
	ErrNotMATFile = errors.New("matfile: not a level 5 MAT-file")
	// ErrUnsupportedVersion is returned for HDF5-based (v7.3) or unknown versions.
	ErrUnsupportedVersion = errors.New("matfile: unsupported MAT-file version")

	errSkip = errors.New("matfile: variable not requested")
)

// FormatError reports malformed element data.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("matfile: malformed data at offset %d: %s", e.Offset, e.Msg)
}

// File is the decoded content of a MAT-file.
type File struct {
	// Text is the descriptive header text with trailing padding removed.
	Text  string
	Order binary.ByteOrder
	// Names lists the decoded variables in file order.
	Names []string
	Vars  map[string]node.Node
}

// Var returns the named top-level variable.
func (f *File) Var(name string) (node.Node, bool) {
	n, ok := f.Vars[name]
	return n, ok
}

// Parse decodes a MAT-file held in memory. When names is non-empty only the
// listed variables are decoded; the payload of every other variable is
// skipped without being interpreted.
func Parse(data []byte, names ...string) (*File, error) {
	if len(data) < headerSize {
		return nil, ErrNotMATFile
	}
	text := data[:headerTextSize]
	if bytes.HasPrefix(text, []byte("MATLAB 7.3")) {
		return nil, ErrUnsupportedVersion
	}
	if !bytes.HasPrefix(text, []byte("MATLAB 5.0")) {
		return nil, ErrNotMATFile
	}

	var order binary.ByteOrder
	switch string(data[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, &FormatError{Offset: 126, Msg: "bad endian indicator"}
	}
	if v := order.Uint16(data[124:126]); v != 0x0100 {
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnsupportedVersion, v)
	}

	p := &parser{order: order}
	if len(names) > 0 {
		p.want = make(map[string]bool, len(names))
		for _, n := range names {
			p.want[n] = true
		}
	}

	f := &File{
		Text:  string(bytes.TrimRight(text, " \x00")),
		Order: order,
		Vars:  make(map[string]node.Node),
	}
	for off := headerSize; off < len(data); {
		el, err := p.element(data, off)
		if err != nil {
			return nil, err
		}
		off = el.next

		body := el.data
		switch el.typ {
		case miCOMPRESSED:
			if p.want != nil {
				if name, ok := p.peekCompressedName(body); ok && !p.want[name] {
					continue
				}
			}
			inflated, err := inflate(body, -1)
			if err != nil {
				return nil, &FormatError{Offset: el.offset, Msg: err.Error()}
			}
			inner, err := p.element(inflated, 0)
			if err != nil {
				return nil, err
			}
			if inner.typ != miMATRIX {
				continue
			}
			body = inner.data
		case miMATRIX:
		default:
			continue
		}

		name, n, err := p.matrix(body, true)
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		if _, dup := f.Vars[name]; !dup {
			f.Names = append(f.Names, name)
		}
		f.Vars[name] = n
	}
	return f, nil
}

// Read decodes a MAT-file from r. See Parse.
func Read(r io.Reader, names ...string) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read MAT-file: %w", err)
	}
	return Parse(data, names...)
}

// inflate decompresses a zlib stream. A non-negative limit stops after that
// many bytes and tolerates a truncated result.
func inflate(b []byte, limit int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	if limit < 0 {
		return io.ReadAll(zr)
	}
	buf := make([]byte, limit)
	n, err := io.ReadFull(zr, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// peekCompressedName inflates the start of a compressed element and returns
// the name of the variable it holds.
func (p *parser) peekCompressedName(body []byte) (string, bool) {
	prefix, err := inflate(body, compressedPeekSize)
	if err != nil || len(prefix) < 8 {
		return "", false
	}
	typ := p.order.Uint32(prefix[0:4])
	if typ != miMATRIX {
		return "", false
	}
	h, err := p.matrixHeader(prefix[8:])
	if err != nil {
		return "", false
	}
	return h.name, true
}
