package testutil

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zlib"

	"github.com/ginty-lab/ephus/internal/node"
)

// MAT-file element types and array classes written by EncodeMAT.
const (
	miINT8       = 1
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miDOUBLE     = 9
	miMATRIX     = 14
	miCOMPRESSED = 15

	mxCELL   = 1
	mxSTRUCT = 2
	mxCHAR   = 4
	mxDOUBLE = 6
	mxSINGLE = 7
	mxINT8   = 8
	mxUINT8  = 9
	mxINT16  = 10
	mxUINT16 = 11
	mxINT32  = 12
	mxUINT32 = 13
	mxINT64  = 14
	mxUINT64 = 15
)

var le = binary.LittleEndian

// EncodeMAT writes vars as a little-endian level 5 MAT-file. With compress
// set every variable is stored as a zlib-compressed element, the way MATLAB
// 7 writes files by default.
func EncodeMAT(compress bool, vars ...node.Field) []byte {
	var out bytes.Buffer

	hdr := bytes.Repeat([]byte(" "), 128)
	copy(hdr, "MATLAB 5.0 MAT-file, Platform: GLNXA64, Created on: Fri Mar  4 12:01:02 2011")
	for i := 116; i < 124; i++ {
		hdr[i] = 0
	}
	le.PutUint16(hdr[124:], 0x0100)
	hdr[126], hdr[127] = 'I', 'M'
	out.Write(hdr)

	for _, v := range vars {
		el := dataElement(miMATRIX, matrixBody(v.Name, v.Value))
		if !compress {
			out.Write(el)
			continue
		}
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		_, _ = zw.Write(el)
		_ = zw.Close()
		tag := make([]byte, 8)
		le.PutUint32(tag, miCOMPRESSED)
		le.PutUint32(tag[4:], uint32(z.Len()))
		out.Write(tag)
		out.Write(z.Bytes())
	}
	return out.Bytes()
}

func dataElement(typ uint32, data []byte) []byte {
	if typ != miMATRIX && len(data) > 0 && len(data) <= 4 {
		b := make([]byte, 8)
		le.PutUint32(b, uint32(len(data))<<16|typ)
		copy(b[4:], data)
		return b
	}
	b := make([]byte, 8+(len(data)+7)&^7)
	le.PutUint32(b, typ)
	le.PutUint32(b[4:], uint32(len(data)))
	copy(b[8:], data)
	return b
}

func matrixHeader(class int, logical bool, dims []int, name string) []byte {
	flags := make([]byte, 8)
	word := uint32(class)
	if logical {
		word |= 0x0200
	}
	le.PutUint32(flags, word)

	d := make([]byte, 4*len(dims))
	for i, v := range dims {
		le.PutUint32(d[i*4:], uint32(int32(v)))
	}

	var b bytes.Buffer
	b.Write(dataElement(miUINT32, flags))
	b.Write(dataElement(miINT32, d))
	b.Write(dataElement(miINT8, []byte(name)))
	return b.Bytes()
}

func matDims(shape []int) []int {
	switch len(shape) {
	case 0:
		return []int{1, 1}
	case 1:
		return []int{1, shape[0]}
	default:
		return shape
	}
}

func matrixBody(name string, n node.Node) []byte {
	switch v := n.(type) {
	case node.Number:
		return numericBody(name, mxDOUBLE, false, []int{1, 1}, []float64{float64(v)})
	case node.Text:
		return charBody(name, string(v))
	case *node.Record:
		return structBody(name, []int{1, 1}, []*node.Record{v})
	case *node.Object:
		return cellBody(name, []int{1, 1}, []node.Node{v.Inner})
	case *node.Array:
		dims := matDims(v.Shape)
		switch {
		case v.Class.IsFloat():
			class := mxDOUBLE
			if v.Class == node.ClassSingle {
				class = mxSINGLE
			}
			return numericBody(name, class, false, dims, toColMajor(v.Float, dims))
		case v.Class == node.ClassStruct || v.Class == node.ClassObject:
			recs := make([]*node.Record, len(v.Elems))
			for i, e := range toColMajor(v.Elems, dims) {
				recs[i] = e.(*node.Record)
			}
			return structBody(name, dims, recs)
		case v.Class == node.ClassCell || v.Class == node.ClassChar:
			return cellBody(name, dims, toColMajor(v.Elems, dims))
		default:
			vals := make([]float64, len(v.Elems))
			for i, e := range v.Elems {
				vals[i] = float64(e.(node.Number))
			}
			class, logical := intClass(v.Class)
			return numericBody(name, class, logical, dims, toColMajor(vals, dims))
		}
	default:
		// empty double matrix
		return matrixHeader(mxDOUBLE, false, []int{0, 0}, name)
	}
}

func intClass(c node.Class) (int, bool) {
	switch c {
	case node.ClassInt8:
		return mxINT8, false
	case node.ClassUint8:
		return mxUINT8, false
	case node.ClassInt16:
		return mxINT16, false
	case node.ClassUint16:
		return mxUINT16, false
	case node.ClassInt32:
		return mxINT32, false
	case node.ClassUint32:
		return mxUINT32, false
	case node.ClassInt64:
		return mxINT64, false
	case node.ClassUint64:
		return mxUINT64, false
	case node.ClassLogical:
		return mxUINT8, true
	default:
		return mxDOUBLE, false
	}
}

func numericBody(name string, class int, logical bool, dims []int, vals []float64) []byte {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		le.PutUint64(data[i*8:], math.Float64bits(v))
	}
	var b bytes.Buffer
	b.Write(matrixHeader(class, logical, dims, name))
	b.Write(dataElement(miDOUBLE, data))
	return b.Bytes()
}

func charBody(name, s string) []byte {
	runes := []rune(s)
	dims := []int{1, len(runes)}
	if len(runes) == 0 {
		dims = []int{0, 0}
	}
	data := make([]byte, 2*len(runes))
	for i, r := range runes {
		le.PutUint16(data[i*2:], uint16(r))
	}
	var b bytes.Buffer
	b.Write(matrixHeader(mxCHAR, false, dims, name))
	b.Write(dataElement(miUINT16, data))
	return b.Bytes()
}

func cellBody(name string, dims []int, elems []node.Node) []byte {
	var b bytes.Buffer
	b.Write(matrixHeader(mxCELL, false, dims, name))
	for _, e := range elems {
		b.Write(dataElement(miMATRIX, matrixBody("", e)))
	}
	return b.Bytes()
}

func structBody(name string, dims []int, recs []*node.Record) []byte {
	var names []string
	if len(recs) > 0 {
		names = recs[0].Names
	}
	width := 1
	for _, n := range names {
		if len(n)+1 > width {
			width = len(n) + 1
		}
	}
	lenBuf := make([]byte, 4)
	le.PutUint32(lenBuf, uint32(width))
	nameBuf := make([]byte, width*len(names))
	for i, n := range names {
		copy(nameBuf[i*width:], n)
	}

	var b bytes.Buffer
	b.Write(matrixHeader(mxSTRUCT, false, dims, name))
	b.Write(dataElement(miINT32, lenBuf))
	b.Write(dataElement(miINT8, nameBuf))
	for _, r := range recs {
		for _, n := range names {
			b.Write(dataElement(miMATRIX, matrixBody("", r.Fields[n])))
		}
	}
	return b.Bytes()
}

// toColMajor reorders row-major data into MATLAB column-major order.
func toColMajor[T any](vals []T, dims []int) []T {
	nonSingleton := 0
	for _, d := range dims {
		if d != 1 {
			nonSingleton++
		}
	}
	if nonSingleton <= 1 {
		return vals
	}
	out := make([]T, len(vals))
	idx := make([]int, len(dims))
	for r := range vals {
		c, stride := 0, 1
		for k, d := range dims {
			c += idx[k] * stride
			stride *= d
		}
		out[c] = vals[r]
		for k := len(dims) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < dims[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out
}
