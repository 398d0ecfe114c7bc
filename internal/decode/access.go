package decode

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup walks nested maps along path and returns the value found there.
func Lookup(v Value, path ...string) (Value, bool) {
	cur := v
	for _, name := range path {
		m, ok := cur.(*Map)
		if !ok {
			return nil, false
		}
		if cur, ok = m.Get(name); !ok {
			return nil, false
		}
	}
	return cur, true
}

// AsMap returns v as a map.
func AsMap(v Value) (*Map, bool) {
	m, ok := v.(*Map)
	return m, ok && m != nil
}

// AsText returns the string held by a Text value.
func AsText(v Value) (string, bool) {
	t, ok := v.(Text)
	return string(t), ok
}

// AsFloat coerces a scalar-like value to float64. Numeric text and
// single-element arrays and lists are accepted.
func AsFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case Number:
		return float64(x), true
	case Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	case *Array:
		if x != nil && len(x.Data) == 1 {
			return x.Data[0], true
		}
	case List:
		if len(x) == 1 {
			return AsFloat(x[0])
		}
	}
	return 0, false
}

// AsInt coerces v like AsFloat and truncates toward zero.
func AsInt(v Value) (int, bool) {
	f, ok := AsFloat(v)
	return int(f), ok
}

// AsFloats returns the samples held by v. An *Array's data is returned
// without copying; a List of numbers and a single Number produce a new slice.
func AsFloats(v Value) ([]float64, bool) {
	switch x := v.(type) {
	case *Array:
		if x == nil {
			return nil, false
		}
		return x.Data, true
	case Number:
		return []float64{float64(x)}, true
	case List:
		out := make([]float64, len(x))
		for i, e := range x {
			n, ok := e.(Number)
			if !ok {
				return nil, false
			}
			out[i] = float64(n)
		}
		return out, true
	}
	return nil, false
}

// Items returns v as a sequence. Lists are returned as is, arrays yield one
// Number per sample, and any other value is a sequence of one.
func Items(v Value) []Value {
	switch x := v.(type) {
	case List:
		return x
	case *Array:
		if x == nil {
			return nil
		}
		out := make([]Value, len(x.Data))
		for i, f := range x.Data {
			out[i] = Number(f)
		}
		return out
	case nil:
		return nil
	default:
		return []Value{v}
	}
}

// TypeName describes the variant of v for error messages.
func TypeName(v Value) string {
	switch x := v.(type) {
	case Number:
		return "number"
	case Text:
		return "text"
	case *Array:
		return fmt.Sprintf("array%v", x.Shape)
	case List:
		return fmt.Sprintf("list[%d]", len(x))
	case *Map:
		return "map"
	case Leaf:
		if x.Node == nil {
			return "leaf(nil)"
		}
		return "leaf(" + x.Node.Kind().String() + ")"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Native converts v into plain Go values (float64, string, []float64, []any,
// map[string]any) for encoding. Leaves become nil.
func Native(v Value) any {
	switch x := v.(type) {
	case Number:
		return float64(x)
	case Text:
		return string(x)
	case *Array:
		return nativeArray(x.Shape, x.Data)
	case List:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Native(e)
		}
		return out
	case *Map:
		out := make(map[string]any, x.Len())
		for _, k := range x.keys {
			out[k] = Native(x.fields[k])
		}
		return out
	default:
		return nil
	}
}

func nativeArray(shape []int, data []float64) any {
	if len(shape) <= 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	n := shape[0]
	if n == 0 {
		return []any{}
	}
	stride := len(data) / n
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = nativeArray(shape[1:], data[i*stride:(i+1)*stride])
	}
	return out
}
