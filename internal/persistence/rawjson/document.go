// Package rawjson keeps a JSON payload as bytes and edits it in place, so
// every member the editor never touches keeps its spelling, order and number
// formatting.
package rawjson

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

var ErrInvalid = errors.New("rawjson: invalid json")

// Document is a retained JSON tree. The zero value and Null() are a missing
// payload: reads find nothing and the first write starts an empty object.
type Document struct {
	raw []byte
}

func Parse(b []byte) (*Document, error) {
	if !gjson.ValidBytes(b) {
		return nil, ErrInvalid
	}
	raw := make([]byte, len(b))
	copy(raw, b)
	return &Document{raw: raw}, nil
}

func Null() *Document { return &Document{} }

func (d *Document) IsNull() bool { return d == nil || len(d.raw) == 0 }

// Path joins object keys into a gjson/sjson path, escaping every ASCII
// character that has meaning in path syntax.
func Path(keys ...string) string {
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('.')
		}
		for j := 0; j < len(k); j++ {
			c := k[j]
			if c < 0x80 && !isWord(c) {
				sb.WriteByte('\\')
			}
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isWord(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// Get returns the value at keys. No keys returns the root.
func (d *Document) Get(keys ...string) gjson.Result {
	if d.IsNull() {
		return gjson.Result{}
	}
	if len(keys) == 0 {
		return gjson.ParseBytes(d.raw)
	}
	return gjson.GetBytes(d.raw, Path(keys...))
}

func (d *Document) Exists(keys ...string) bool { return d.Get(keys...).Exists() }

// Keys lists the member names of the object at keys in document order.
func (d *Document) Keys(keys ...string) []string {
	obj := d.Get(keys...)
	if !obj.IsObject() {
		return nil
	}
	var out []string
	obj.ForEach(func(k, _ gjson.Result) bool {
		out = append(out, k.String())
		return true
	})
	return out
}

// Set writes a Go value at keys, creating missing objects on the way.
func (d *Document) Set(value any, keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("rawjson: set needs a path")
	}
	d.init()
	out, err := sjson.SetBytes(d.raw, Path(keys...), value)
	if err != nil {
		return fmt.Errorf("rawjson: set %s: %w", strings.Join(keys, "."), err)
	}
	d.raw = out
	return nil
}

// SetRaw writes already-encoded JSON at keys.
func (d *Document) SetRaw(raw []byte, keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("rawjson: set needs a path")
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("rawjson: set %s: %w", strings.Join(keys, "."), ErrInvalid)
	}
	d.init()
	out, err := sjson.SetRawBytes(d.raw, Path(keys...), raw)
	if err != nil {
		return fmt.Errorf("rawjson: set %s: %w", strings.Join(keys, "."), err)
	}
	d.raw = out
	return nil
}

// Delete removes the member at keys. A missing member is not an error.
func (d *Document) Delete(keys ...string) error {
	if d.IsNull() || !d.Exists(keys...) {
		return nil
	}
	out, err := sjson.DeleteBytes(d.raw, Path(keys...))
	if err != nil {
		return fmt.Errorf("rawjson: delete %s: %w", strings.Join(keys, "."), err)
	}
	d.raw = out
	return nil
}

func (d *Document) init() {
	if len(d.raw) == 0 {
		d.raw = []byte("{}")
	}
}

// Bytes returns the current encoding. Callers must not modify it.
func (d *Document) Bytes() []byte {
	if d.IsNull() {
		return nil
	}
	return d.raw
}

func (d *Document) Clone() *Document {
	if d.IsNull() {
		return Null()
	}
	raw := make([]byte, len(d.raw))
	copy(raw, d.raw)
	return &Document{raw: raw}
}

var indentOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// Indent renders the document human-readable with two-space indentation and
// member order unchanged.
func (d *Document) Indent() []byte {
	if d.IsNull() {
		return nil
	}
	return pretty.PrettyOptions(d.raw, indentOptions)
}
