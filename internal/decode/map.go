package decode

// Map is a string-keyed mapping that remembers insertion order. Field order
// matters for records whose fields are addressed by position.
type Map struct {
	keys   []string
	fields map[string]Value
}

// NewMap returns an empty map with room for n keys.
func NewMap(n int) *Map {
	return &Map{
		keys:   make([]string, 0, n),
		fields: make(map[string]Value, n),
	}
}

// MapOf builds a map from alternating key/value pairs.
func MapOf(pairs ...any) *Map {
	m := NewMap(len(pairs) / 2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1].(Value))
	}
	return m
}

// Set stores v under key. A new key is appended to the key order.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.fields[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = v
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.fields[key]
	return v, ok
}

// At returns the value of the i-th key in insertion order.
func (m *Map) At(i int) (Value, bool) {
	if m == nil || i < 0 || i >= len(m.keys) {
		return nil, false
	}
	return m.fields[m.keys[i]], true
}

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}
