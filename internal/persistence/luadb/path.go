package luadb

import (
	"errors"
	"strconv"
	"strings"
)

// Flatten maps every non-table leaf under t to its dot-joined path. Tables
// only contribute path prefixes. An empty prefix adds no leading dot.
func Flatten(t *Table, prefix string) map[string]Value {
	out := map[string]Value{}
	flattenInto(out, t, prefix)
	return out
}

func flattenInto(out map[string]Value, t *Table, prefix string) {
	if t == nil {
		return
	}
	t.Range(func(k string, v Value) bool {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		if sub, ok := v.(*Table); ok {
			flattenInto(out, sub, full)
		} else {
			out[full] = v
		}
		return true
	})
}

// SetPath stores v at the dotted path, creating intermediate tables. A
// non-table value sitting on an intermediate segment is replaced by an empty
// table and its old value is lost.
func SetPath(t *Table, path string, v Value) {
	parts := strings.Split(path, ".")
	cur := t
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur.vals[part].(*Table)
		if !ok {
			next = NewTable()
			cur.Set(part, next)
		}
		cur = next
	}
	cur.Set(parts[len(parts)-1], v)
}

// GetPath looks up the value at a dotted path.
func GetPath(t *Table, path string) (Value, bool) {
	parts := strings.Split(path, ".")
	cur := t
	for i, part := range parts {
		v, ok := cur.Get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if cur, ok = v.(*Table); !ok {
			return nil, false
		}
	}
	return nil, false
}

// CoerceLike converts user text into the variant of original. Numbers that
// fail to parse become 0, out of range numbers become ±Inf and booleans
// other than "true" become false; callers that want to reject bad input
// should use ParseLike.
func CoerceLike(original Value, text string) Value {
	v, _ := ParseLike(original, text)
	return v
}

// ParseLike is CoerceLike with the parse failure reported. The returned value
// is always the coerced fallback, so callers may still use it.
func ParseLike(original Value, text string) (Value, error) {
	switch original.(type) {
	case Number:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Number(0), err
		}
		return Number(f), nil
	case Boolean:
		switch text {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		default:
			return Boolean(false), &strconv.NumError{Func: "ParseBool", Num: text, Err: strconv.ErrSyntax}
		}
	default:
		return Text(text), nil
	}
}
