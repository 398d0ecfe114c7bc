package node

// Field is a name/value pair used by NewRecord.
type Field struct {
	Name  string
	Value Node
}

// F is shorthand for a Field literal.
func F(name string, v Node) Field {
	return Field{Name: name, Value: v}
}

// NewRecord builds a Record that keeps the given field order. A repeated
// name replaces the earlier value but keeps its position.
func NewRecord(fields ...Field) *Record {
	r := &Record{Fields: make(map[string]Node, len(fields))}
	for _, f := range fields {
		if _, ok := r.Fields[f.Name]; !ok {
			r.Names = append(r.Names, f.Name)
		}
		r.Fields[f.Name] = f.Value
	}
	return r
}

// Floats builds a one-dimensional double array.
func Floats(v ...float64) *Array {
	data := make([]float64, len(v))
	copy(data, v)
	return &Array{Shape: []int{len(v)}, Class: ClassDouble, Float: data}
}

// List builds a one-dimensional cell array of the given elements.
func List(elems ...Node) *Array {
	return &Array{Shape: []int{len(elems)}, Class: ClassCell, Elems: elems}
}

// Ints builds a one-dimensional integer array of the given class.
func Ints(class Class, v ...int) *Array {
	elems := make([]Node, len(v))
	for i, x := range v {
		elems[i] = Number(x)
	}
	return &Array{Shape: []int{len(v)}, Class: class, Elems: elems}
}

// Wrap returns a zero-dimensional object wrapper around n.
func Wrap(n Node) *Object {
	return &Object{Inner: n}
}
