package luadb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

const (
	tagText    byte = 0x53 // 'S'
	tagNumber  byte = 0x4E // 'N'
	tagBoolean byte = 0x42 // 'B'
	tagTable   byte = 0x54 // 'T'
)

// A table entry is at least a 2 byte key ('S' + zero length) and a 2 byte
// value ('B' + flag).
const minEntrySize = 4

// maxDepth bounds table nesting on decode.
const maxDepth = 512

// Decode reads exactly one value from b. Trailing bytes are an error.
func Decode(b []byte) (Value, error) {
	d := decoder{buf: b}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.off != len(b) {
		return nil, malformed(d.off, "%d trailing bytes", len(b)-d.off)
	}
	return v, nil
}

// Encode writes v in the tagged binary layout.
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type decoder struct {
	buf   []byte
	off   int
	depth int
}

func (d *decoder) remaining() int { return len(d.buf) - d.off }

func (d *decoder) readByte() (byte, error) {
	if d.off >= len(d.buf) {
		return 0, malformed(d.off, "unexpected end of buffer")
	}
	c := d.buf[d.off]
	d.off++
	return c, nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || n > d.remaining() {
		return nil, malformed(d.off, "need %d bytes, have %d", n, d.remaining())
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) value() (Value, error) {
	start := d.off
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagText:
		s, err := d.text()
		if err != nil {
			return nil, err
		}
		return Text(s), nil
	case tagNumber:
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return Number(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case tagBoolean:
		c, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return Boolean(c != 0), nil
	case tagTable:
		return d.table()
	default:
		return nil, malformed(start, "unknown type tag 0x%02X", tag)
	}
}

func (d *decoder) text() (string, error) {
	n, err := d.uvarint()
	if err != nil {
		return "", err
	}
	b, err := d.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", malformed(d.off-n, "invalid UTF-8 text")
	}
	return string(b), nil
}

// uvarint reads a 7-bit chunked length, low chunk first. Lengths are int32 on
// disk so at most five bytes are accepted.
func (d *decoder) uvarint() (int, error) {
	start := d.off
	var v uint64
	for shift := uint(0); ; shift += 7 {
		if shift >= 35 {
			return 0, malformed(start, "length prefix too long")
		}
		c, err := d.readByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(c&0x7F) << shift
		if c&0x80 == 0 {
			break
		}
	}
	if v > math.MaxInt32 {
		return 0, malformed(start, "length %d out of range", v)
	}
	return int(v), nil
}

func (d *decoder) table() (*Table, error) {
	if d.depth >= maxDepth {
		return nil, malformed(d.off-1, "tables nested deeper than %d", maxDepth)
	}
	d.depth++
	defer func() { d.depth-- }()

	// Padding is written as zero but not checked on read.
	if _, err := d.take(4); err != nil {
		return nil, err
	}
	start := d.off
	b, err := d.take(4)
	if err != nil {
		return nil, err
	}
	count := int32(binary.LittleEndian.Uint32(b))
	if count < 0 {
		return nil, malformed(start, "negative table count %d", count)
	}
	if int(count) > d.remaining()/minEntrySize {
		return nil, malformed(start, "table count %d exceeds remaining %d bytes", count, d.remaining())
	}

	t := NewTable()
	for i := 0; i < int(count); i++ {
		keyOff := d.off
		kv, err := d.value()
		if err != nil {
			return nil, err
		}
		key, err := keyText(kv, keyOff)
		if err != nil {
			return nil, err
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		t.Set(key, v)
	}
	return t, nil
}

func keyText(v Value, off int) (string, error) {
	switch k := v.(type) {
	case Text:
		return string(k), nil
	case Number, Boolean:
		return k.String(), nil
	default:
		return "", malformed(off, "table used as table key")
	}
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch x := v.(type) {
	case Text:
		buf.WriteByte(tagText)
		return encodeText(buf, string(x))
	case Number:
		buf.WriteByte(tagNumber)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(float64(x)))
		buf.Write(b[:])
	case Boolean:
		buf.WriteByte(tagBoolean)
		if x {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case *Table:
		buf.WriteByte(tagTable)
		return encodeTable(buf, x)
	case nil:
		return fmt.Errorf("luadb: cannot encode nil value")
	default:
		return fmt.Errorf("luadb: cannot encode %T", v)
	}
	return nil
}

func encodeTable(buf *bytes.Buffer, t *Table) error {
	if t.Len() > math.MaxInt32 {
		return fmt.Errorf("luadb: table too large (%d entries)", t.Len())
	}
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[4:], uint32(t.Len()))
	buf.Write(hdr[:])

	var err error
	t.Range(func(k string, v Value) bool {
		buf.WriteByte(tagText)
		if err = encodeText(buf, k); err != nil {
			return false
		}
		if err = encodeValue(buf, v); err != nil {
			err = fmt.Errorf("key %q: %w", k, err)
			return false
		}
		return true
	})
	return err
}

func encodeText(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxInt32 {
		return fmt.Errorf("luadb: text too long (%d bytes)", len(s))
	}
	v := uint32(len(s))
	for v >= 0x80 {
		buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	buf.WriteByte(byte(v))
	buf.WriteString(s)
	return nil
}
