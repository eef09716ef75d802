package luadb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func sampleTree() *Table {
	inner := NewTable()
	inner.Set("communist", Number(3))
	inner.Set("kim", Number(-1.5))
	deep := NewTable()
	deep.Set("seen", Boolean(true))
	inner.Set("deep", deep)

	root := NewTable()
	root.Set("reputation", inner)
	root.Set("name", Text("Harry Du Bois"))
	root.Set("empty", Text(""))
	root.Set("unicode", Text("Révachol ✓"))
	root.Set("flag", Boolean(false))
	root.Set("inf", Number(math.Inf(1)))
	return root
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sampleTree()
	b, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !Equal(in, out) {
		t.Fatalf("round trip mismatch")
	}

	// Insertion order survives, so re-encoding is byte-identical.
	b2, err := Encode(out)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(b, b2) {
		t.Fatalf("re-encode differs")
	}
}

func TestEncode_Layout(t *testing.T) {
	tbl := NewTable()
	tbl.Set("a", Boolean(true))
	b, err := Encode(tbl)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{
		'T', 0, 0, 0, 0, 1, 0, 0, 0,
		'S', 1, 'a',
		'B', 1,
	}
	if !bytes.Equal(b, want) {
		t.Fatalf("got % X want % X", b, want)
	}

	n, _ := Encode(Number(1))
	if n[0] != 'N' || len(n) != 9 || math.Float64frombits(binary.LittleEndian.Uint64(n[1:])) != 1 {
		t.Fatalf("bad number encoding % X", n)
	}
}

func TestEncode_LongTextUsesMultiByteLength(t *testing.T) {
	s := string(bytes.Repeat([]byte("x"), 300))
	b, err := Encode(Text(s))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// 300 = 0b1_0010_1100 -> 0xAC 0x02
	if b[1] != 0xAC || b[2] != 0x02 {
		t.Fatalf("length prefix % X", b[1:3])
	}
	v, err := Decode(b)
	if err != nil || string(v.(Text)) != s {
		t.Fatalf("decode: %v", err)
	}
}

func TestDecode_NumericAndBooleanKeysBecomeText(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{'T', 0, 0, 0, 0, 2, 0, 0, 0})
	buf.WriteByte('N')
	var f [8]byte
	binary.LittleEndian.PutUint64(f[:], math.Float64bits(7))
	buf.Write(f[:])
	buf.Write([]byte{'S', 1, 'x'})
	buf.Write([]byte{'B', 1})
	buf.Write([]byte{'B', 0})

	v, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tbl := v.(*Table)
	if got, _ := tbl.Get("7"); got != Text("x") {
		t.Fatalf("key 7 = %v", got)
	}
	if got, _ := tbl.Get("true"); got != Boolean(false) {
		t.Fatalf("key true = %v", got)
	}

	// Keys are re-derived as text on write.
	out, _ := Encode(tbl)
	again, err := Decode(out)
	if err != nil || !Equal(tbl, again) {
		t.Fatalf("re-decode: %v", err)
	}
	if out[9] != 'S' {
		t.Fatalf("key not written as text: % X", out[:12])
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":           {},
		"unknown tag":     {'X'},
		"short number":    {'N', 1, 2, 3},
		"missing bool":    {'B'},
		"text overrun":    {'S', 5, 'a', 'b'},
		"bad utf8":        {'S', 2, 0xff, 0xfe},
		"varint too long": {'S', 0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
		"negative count":  {'T', 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff},
		"huge count":      {'T', 0, 0, 0, 0, 0xff, 0xff, 0xff, 0x7f, 'S', 0},
		"truncated pair":  {'T', 0, 0, 0, 0, 1, 0, 0, 0, 'S', 1, 'a', 'B'},
		"table key":       {'T', 0, 0, 0, 0, 1, 0, 0, 0, 'T', 0, 0, 0, 0, 0, 0, 0, 0, 'B', 1},
		"trailing bytes":  {'B', 1, 0},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(b)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("err=%v want ErrMalformed", err)
			}
		})
	}
}

func nestedTables(n int) []byte {
	var b []byte
	for i := 0; i < n; i++ {
		b = append(b, 'T', 0, 0, 0, 0, 1, 0, 0, 0, 'S', 1, 'a')
	}
	return append(b, 'B', 1)
}

func TestDecode_NestingLimit(t *testing.T) {
	v, err := Decode(nestedTables(maxDepth))
	if err != nil {
		t.Fatalf("decode at limit: %v", err)
	}
	if _, ok := v.(*Table); !ok {
		t.Fatalf("got %T want *Table", v)
	}
	if _, err := Decode(nestedTables(maxDepth + 1)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err=%v want ErrMalformed", err)
	}
	if _, err := Decode(nestedTables(100000)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("deep err=%v want ErrMalformed", err)
	}
}

func TestDecode_PaddingIsNotValidated(t *testing.T) {
	b := []byte{'T', 9, 9, 9, 9, 0, 0, 0, 0}
	v, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.(*Table).Len() != 0 {
		t.Fatalf("expected empty table")
	}
}

func TestTable_DeleteKeepsOrder(t *testing.T) {
	tbl := NewTable()
	for _, k := range []string{"a", "b", "c"} {
		tbl.Set(k, Text(k))
	}
	if !tbl.Delete("b") {
		t.Fatalf("delete b")
	}
	if tbl.Delete("zz") {
		t.Fatalf("delete missing reported true")
	}
	tbl.Set("a", Text("A"))
	keys := tbl.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Fatalf("keys=%v", keys)
	}
}
