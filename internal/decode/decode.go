// Package decode converts a generic record graph (package node) into plain
// native values: numbers, text, numeric arrays, lists and ordered maps.
//
// Decode is total. It never fails and never copies floating-point sample
// data: a decoded *Array aliases the Float slice of the node it came from,
// so large acquisition traces are not boxed element by element.
package decode

import (
	"github.com/ginty-lab/ephus/internal/node"
)

// Value is a decoded value. It is one of Number, Text, *Array, List, *Map
// or Leaf.
type Value interface {
	isValue()
}

// Number is a numeric scalar.
type Number float64

// Text is a string scalar.
type Text string

// Array is a floating-point N-dimensional array in row-major order.
type Array struct {
	Shape []int
	Data  []float64
}

// List is an ordered sequence of decoded values.
type List []Value

// Leaf carries a node the decoder does not interpret, unchanged.
type Leaf struct {
	Node node.Node
}

func (Number) isValue() {}
func (Text) isValue()   {}
func (*Array) isValue() {}
func (List) isValue()   {}
func (*Map) isValue()   {}
func (Leaf) isValue()   {}

// Rank returns the number of dimensions of the array.
func (a *Array) Rank() int { return len(a.Shape) }

// Len returns the number of samples in the array.
func (a *Array) Len() int { return len(a.Data) }

// Decode converts n into its native representation.
//
//   - object wrappers are unwrapped
//   - floating-point arrays are returned as *Array sharing n's data
//   - all other arrays become a List of their decoded elements
//   - records become a *Map in field order
//   - scalars are returned as Number or Text
//   - anything else is returned as a Leaf
func Decode(n node.Node) Value {
	switch v := n.(type) {
	case *node.Object:
		if v == nil || v.Inner == nil {
			return Leaf{Node: n}
		}
		return Decode(v.Inner)
	case *node.Array:
		if v == nil {
			return Leaf{Node: n}
		}
		if len(v.Shape) == 0 && v.Len() == 1 {
			// zero-dimensional array: same as an object wrapper
			if v.Class.IsFloat() {
				return Number(v.Float[0])
			}
			return Decode(v.Elems[0])
		}
		if v.Class.IsFloat() {
			return &Array{Shape: v.Shape, Data: v.Float}
		}
		list := make(List, len(v.Elems))
		for i, e := range v.Elems {
			list[i] = Decode(e)
		}
		return list
	case *node.Record:
		if v == nil {
			return Leaf{Node: n}
		}
		m := NewMap(len(v.Names))
		for _, name := range v.Names {
			m.Set(name, Decode(v.Fields[name]))
		}
		return m
	case node.Number:
		return Number(v)
	case node.Text:
		return Text(v)
	default:
		return Leaf{Node: n}
	}
}
