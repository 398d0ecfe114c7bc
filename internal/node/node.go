// Package node defines the generic record graph produced by a structured
// array container reader (for example a MAT-file loader) and consumed by the
// structural decoder.
//
// A Node is one of:
//
//   - Number: a numeric scalar
//   - Text: a character scalar
//   - *Array: an N-dimensional array. Floating-point arrays carry their
//     samples in Float; every other element type carries one Node per
//     element in Elems
//   - *Record: named fields in declaration order, values are Nodes
//   - *Object: a zero-dimensional wrapper around a single Node
//   - *Opaque: content the reader could not interpret (sparse matrices,
//     function handles, class objects without a struct layout)
//
// Array data is stored in row-major order regardless of the order used by
// the container on disk.
package node

import "fmt"

// Kind discriminates the Node variants.
type Kind int

const (
	KindNumber Kind = iota
	KindText
	KindArray
	KindRecord
	KindObject
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindArray:
		return "array"
	case KindRecord:
		return "record"
	case KindObject:
		return "object"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is a value in the generic record graph.
type Node interface {
	Kind() Kind
}

// Number is a numeric scalar leaf.
type Number float64

// Kind implements Node.
func (Number) Kind() Kind { return KindNumber }

// Text is a character scalar leaf.
type Text string

// Kind implements Node.
func (Text) Kind() Kind { return KindText }

// Class identifies the element type of an Array.
type Class int

const (
	ClassDouble Class = iota
	ClassSingle
	ClassInt8
	ClassUint8
	ClassInt16
	ClassUint16
	ClassInt32
	ClassUint32
	ClassInt64
	ClassUint64
	ClassLogical
	ClassChar
	ClassCell
	ClassStruct
	ClassObject
)

// IsFloat reports whether arrays of this class keep their samples in Array.Float.
func (c Class) IsFloat() bool {
	return c == ClassDouble || c == ClassSingle
}

func (c Class) String() string {
	names := [...]string{
		"double", "single", "int8", "uint8", "int16", "uint16", "int32",
		"uint32", "int64", "uint64", "logical", "char", "cell", "struct", "object",
	}
	if c >= 0 && int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Array is an N-dimensional array (N > 0).
type Array struct {
	Shape []int
	Class Class
	Float []float64
	Elems []Node
}

// Kind implements Node.
func (*Array) Kind() Kind { return KindArray }

// Len returns the number of elements in the array.
func (a *Array) Len() int {
	if a.Class.IsFloat() {
		return len(a.Float)
	}
	return len(a.Elems)
}

// Record is a named-field record. Names holds the field order.
type Record struct {
	Names  []string
	Fields map[string]Node
}

// Kind implements Node.
func (*Record) Kind() Kind { return KindRecord }

// Field returns the named field.
func (r *Record) Field(name string) (Node, bool) {
	if r == nil {
		return nil, false
	}
	n, ok := r.Fields[name]
	return n, ok
}

// Object is a zero-dimensional wrapper around a single value.
type Object struct {
	Inner Node
}

// Kind implements Node.
func (*Object) Kind() Kind { return KindObject }

// Opaque is a value the reader could not map onto the other variants.
type Opaque struct {
	Class string
	Raw   []byte
}

// Kind implements Node.
func (*Opaque) Kind() Kind { return KindOpaque }
