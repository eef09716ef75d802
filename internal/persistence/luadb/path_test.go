package luadb

import (
	"math"
	"testing"
)

func TestFlatten_LeavesOnly(t *testing.T) {
	flat := Flatten(sampleTree(), "")
	want := []string{
		"reputation.communist",
		"reputation.kim",
		"reputation.deep.seen",
		"name", "empty", "unicode", "flag", "inf",
	}
	if len(flat) != len(want) {
		t.Fatalf("len=%d want %d: %v", len(flat), len(want), flat)
	}
	for _, k := range want {
		if _, ok := flat[k]; !ok {
			t.Fatalf("missing %q", k)
		}
	}
	if _, ok := flat["reputation"]; ok {
		t.Fatalf("internal table should be elided")
	}
}

func TestFlatten_Prefix(t *testing.T) {
	tbl := NewTable()
	tbl.Set("a", Number(1))
	flat := Flatten(tbl, "root")
	if _, ok := flat["root.a"]; !ok {
		t.Fatalf("got %v", flat)
	}
}

func TestSetPath_ThenFlattenRecoversPaths(t *testing.T) {
	paths := map[string]Value{
		"reputation.communist": Number(1),
		"reputation.kim":       Number(2),
		"tasks.done.whirling":  Boolean(true),
		"tasks.open.body":      Text("hanging"),
		"money":                Number(500),
	}
	db := NewTable()
	for p, v := range paths {
		SetPath(db, p, v)
	}
	flat := Flatten(db, "")
	if len(flat) != len(paths) {
		t.Fatalf("len=%d want %d", len(flat), len(paths))
	}
	for p, v := range paths {
		if !Equal(flat[p], v) {
			t.Fatalf("%s=%v want %v", p, flat[p], v)
		}
	}
}

func TestSetPath_ReplacesScalarOnIntermediateSegment(t *testing.T) {
	db := NewTable()
	db.Set("a", Number(7))
	SetPath(db, "a.b", Text("x"))

	sub, ok := db.vals["a"].(*Table)
	if !ok {
		t.Fatalf("a is %T, want table", db.vals["a"])
	}
	if sub.Len() != 1 {
		t.Fatalf("old scalar leaked into new table")
	}
	if v, _ := GetPath(db, "a.b"); v != Text("x") {
		t.Fatalf("a.b=%v", v)
	}
}

func TestSetPath_OverwritesLeafType(t *testing.T) {
	db := NewTable()
	SetPath(db, "k", Number(1))
	SetPath(db, "k", Text("now text"))
	if v, _ := GetPath(db, "k"); v != Text("now text") {
		t.Fatalf("k=%v", v)
	}
}

func TestCoerceLike(t *testing.T) {
	cases := []struct {
		orig Value
		in   string
		want Value
		bad  bool
	}{
		{Number(1), "2.5", Number(2.5), false},
		{Number(1), "lots", Number(0), true},
		{Number(1), "1e400", Number(math.Inf(1)), false},
		{Number(1), "-1e400", Number(math.Inf(-1)), false},
		{Boolean(false), "true", Boolean(true), false},
		{Boolean(true), "True", Boolean(false), true},
		{Boolean(true), "false", Boolean(false), false},
		{Text("a"), "42", Text("42"), false},
	}
	for _, c := range cases {
		got := CoerceLike(c.orig, c.in)
		if !Equal(got, c.want) {
			t.Fatalf("CoerceLike(%v,%q)=%v want %v", c.orig, c.in, got, c.want)
		}
		if _, err := ParseLike(c.orig, c.in); (err != nil) != c.bad {
			t.Fatalf("ParseLike(%v,%q) err=%v", c.orig, c.in, err)
		}
	}
}
