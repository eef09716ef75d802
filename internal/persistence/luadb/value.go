// Package luadb reads and writes the binary key/value database stored in
// `<base>.ntwtf.lua` save payloads.
//
// Every value starts with a one byte tag:
//
//	'S' text    7-bit length prefix + UTF-8 bytes
//	'N' number  float64, little endian
//	'B' boolean one byte, nonzero is true
//	'T' table   4 zero bytes, int32 LE count, then count key/value pairs
//
// Table keys are always written as text. Keys read as numbers or booleans are
// converted to their text form.
package luadb

import (
	"strconv"
)

type Kind int

const (
	KindText Kind = iota + 1
	KindNumber
	KindBoolean
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "String"
	case KindNumber:
		return "Number"
	case KindBoolean:
		return "Boolean"
	case KindTable:
		return "Table"
	default:
		return "Unknown"
	}
}

// Value is one of Text, Number, Boolean or *Table.
type Value interface {
	Kind() Kind
	// String renders the value the way the editor shows it to users.
	String() string
}

type Text string

type Number float64

type Boolean bool

func (Text) Kind() Kind    { return KindText }
func (Number) Kind() Kind  { return KindNumber }
func (Boolean) Kind() Kind { return KindBoolean }

func (v Text) String() string    { return string(v) }
func (v Number) String() string  { return formatNumber(float64(v)) }
func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }

// formatNumber prints integral floats without a fraction ("3", not "3.0").
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Table is a string keyed mapping that remembers first-insertion order, so
// re-encoding a decoded table reproduces its entry order.
type Table struct {
	keys []string
	vals map[string]Value
}

func NewTable() *Table {
	return &Table{vals: map[string]Value{}}
}

func (*Table) Kind() Kind       { return KindTable }
func (*Table) String() string   { return "[Table]" }
func (t *Table) Len() int       { return len(t.keys) }
func (t *Table) Keys() []string { return append([]string(nil), t.keys...) }

func (t *Table) Get(key string) (Value, bool) {
	v, ok := t.vals[key]
	return v, ok
}

// Set stores v under key. An existing key keeps its position.
func (t *Table) Set(key string, v Value) {
	if t.vals == nil {
		t.vals = map[string]Value{}
	}
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (t *Table) Delete(key string) bool {
	if _, ok := t.vals[key]; !ok {
		return false
	}
	delete(t.vals, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for each entry in insertion order until fn returns false.
func (t *Table) Range(fn func(key string, v Value) bool) {
	for _, k := range t.keys {
		if !fn(k, t.vals[k]) {
			return
		}
	}
}

// Merge copies every entry of src into t; src wins on collisions.
func (t *Table) Merge(src *Table) {
	src.Range(func(k string, v Value) bool {
		t.Set(k, v)
		return true
	})
}

// Equal compares two tables by key set and values, ignoring entry order.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Len() != o.Len() {
		return false
	}
	for _, k := range t.keys {
		ov, ok := o.vals[k]
		if !ok || !Equal(t.vals[k], ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := NewTable()
	t.Range(func(k string, v Value) bool {
		if sub, ok := v.(*Table); ok {
			out.Set(k, sub.Clone())
		} else {
			out.Set(k, v)
		}
		return true
	})
	return out
}

// Equal reports whether a and b hold the same variant and value. Tables are
// compared without regard to entry order.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if at, ok := a.(*Table); ok {
		return at.Equal(b.(*Table))
	}
	return a == b
}
