package luadb

import (
	"errors"
	"testing"
)

func frame(t *testing.T, kv ...any) []byte {
	t.Helper()
	tbl := NewTable()
	for i := 0; i+1 < len(kv); i += 2 {
		tbl.Set(kv[i].(string), kv[i+1].(Value))
	}
	b, err := Encode(tbl)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return b
}

func TestDecodeDatabase_MergesFramesLastWins(t *testing.T) {
	var stream []byte
	stream = append(stream, frame(t, "a", Number(1), "b", Text("one"))...)
	stream = append(stream, frame(t, "b", Text("two"), "c", Boolean(true))...)
	stream = append(stream, frame(t, "a", Number(3))...)

	db, err := DecodeDatabase(stream)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]Value{"a": Number(3), "b": Text("two"), "c": Boolean(true)}
	if db.Len() != len(want) {
		t.Fatalf("len=%d want %d", db.Len(), len(want))
	}
	for k, w := range want {
		if got, _ := db.Get(k); !Equal(got, w) {
			t.Fatalf("%s=%v want %v", k, got, w)
		}
	}
}

func TestDecodeDatabase_RecoversBeforeCorruptTrailingFrame(t *testing.T) {
	var stream []byte
	stream = append(stream, frame(t, "x", Number(1))...)
	stream = append(stream, frame(t, "y", Number(2))...)
	bad := frame(t, "z", Text("truncated payload"))
	stream = append(stream, bad[:len(bad)-5]...)

	db, err := DecodeDatabase(stream)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, k := range []string{"x", "y"} {
		if _, ok := db.Get(k); !ok {
			t.Fatalf("missing %s", k)
		}
	}
	if _, ok := db.Get("z"); ok {
		t.Fatalf("z should not be recovered")
	}
}

func TestDecodeDatabase_ResyncsPastLeadingGarbage(t *testing.T) {
	stream := append([]byte{0xde, 0xad}, frame(t, "k", Text("v"))...)
	db, err := DecodeDatabase(stream)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, _ := db.Get("k"); got != Text("v") {
		t.Fatalf("k=%v", got)
	}
}

func TestDecodeDatabase_Unparseable(t *testing.T) {
	_, err := DecodeDatabase([]byte{0xde, 0xad, 0xbe, 0xef})
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("err=%v want ErrUnparseable", err)
	}
}

func TestDecodeDatabase_Empty(t *testing.T) {
	db, err := DecodeDatabase(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("expected empty db")
	}
}

func TestEncodeDatabase_SingleFrame(t *testing.T) {
	db := sampleTree()
	b, err := EncodeDatabase(db)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	v, err := Decode(b)
	if err != nil {
		t.Fatalf("whole output is not one value: %v", err)
	}
	if !Equal(v, db) {
		t.Fatalf("mismatch")
	}
}

func TestQuery_FoldsCaseAndSorts(t *testing.T) {
	db := NewTable()
	SetPath(db, "Reputation.Kim", Number(2))
	SetPath(db, "reputation.communist", Number(1))
	SetPath(db, "money", Number(500))

	got := Query(db, "REPUTATION", 0)
	if len(got) != 2 {
		t.Fatalf("got %d results", len(got))
	}
	if got[0].Key != "Reputation.Kim" || got[1].Key != "reputation.communist" {
		t.Fatalf("order: %+v", got)
	}
	if got[0].Value != "2" || got[0].Type != "Number" {
		t.Fatalf("render: %+v", got[0])
	}
	if n := len(Query(db, "", 1)); n != 1 {
		t.Fatalf("limit: %d", n)
	}
}
