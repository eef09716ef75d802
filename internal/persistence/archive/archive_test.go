package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeZipFixture(t *testing.T, path string, members map[string][]byte, order []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("member: %v", err)
		}
		if _, err := w.Write(members[name]); err != nil {
			t.Fatalf("write member: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func rawMembers(t *testing.T, path string) map[string]*zip.File {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = zr.Close() })
	out := map[string]*zip.File{}
	for _, f := range zr.File {
		out[f.Name] = f
	}
	return out
}

func memberBytes(t *testing.T, f *zip.File) []byte {
	t.Helper()
	b, err := readMember(f)
	if err != nil {
		t.Fatalf("read %s: %v", f.Name, err)
	}
	return b
}

func TestBaseName(t *testing.T) {
	for in, want := range map[string]string{
		"slot1.ntwtf.zip": "slot1",
		"slot1.ntwtf":     "slot1",
		"slot1.zip":       "slot1",
		"slot1":           "slot1",
		".ntwtf":          ".ntwtf",
	} {
		if got := BaseName(in); got != want {
			t.Fatalf("BaseName(%q)=%q want %q", in, got, want)
		}
	}
	if got := LuaDB.Member("s"); got != "s.ntwtf.lua" {
		t.Fatalf("member=%s", got)
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "a.ntwtf")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	loc, err := Locate(folder)
	if err != nil || loc.Kind != KindFolder || loc.Base != "a" {
		t.Fatalf("folder: %+v %v", loc, err)
	}
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Locate(other); err == nil {
		t.Fatalf("plain file accepted")
	}
}

func TestZip_RewritePreservesUnrelatedMembers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.ntwtf.zip")
	extra := bytes.Repeat([]byte("untouched payload "), 64)
	members := map[string][]byte{
		"s.1st.ntwtf.json": []byte(`{"areaId":"a"}`),
		"extra.txt":        extra,
		"s.ntwtf.lua":      {'T', 0, 0, 0, 0, 0, 0, 0, 0},
	}
	writeZipFixture(t, path, members, []string{"s.1st.ntwtf.json", "extra.txt", "s.ntwtf.lua"})

	before := rawMembers(t, path)["extra.txt"]
	beforeCRC, beforeSize := before.CRC32, before.CompressedSize64

	loc, err := Locate(path)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	b, err := Read(loc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !b.Has(FirstJSON) || !b.Has(LuaDB) || b.Has(SecondJSON) || b.Has(StatesText) {
		t.Fatalf("payload presence wrong: %v", b.Files)
	}

	b.Put(FirstJSON, []byte(`{"areaId":"b"}`))
	b.Put(StatesText, []byte("AreaState[\"x\"]={LocationState=1};\n"))
	if err := Write(loc, b); err != nil {
		t.Fatalf("write: %v", err)
	}

	after := rawMembers(t, path)
	if len(after) != 4 {
		t.Fatalf("members=%d", len(after))
	}
	if got := memberBytes(t, after["extra.txt"]); !bytes.Equal(got, extra) {
		t.Fatalf("extra.txt changed")
	}
	if after["extra.txt"].CRC32 != beforeCRC || after["extra.txt"].CompressedSize64 != beforeSize {
		t.Fatalf("extra.txt was recompressed")
	}
	if got := memberBytes(t, after["s.1st.ntwtf.json"]); string(got) != `{"areaId":"b"}` {
		t.Fatalf("first=%s", got)
	}
	if _, ok := after["s.states.lua"]; !ok {
		t.Fatalf("produced payload not appended")
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".s.ntwtf.zip.tmp-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left: %v", leftovers)
	}
}

func TestFolder_WriteAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s.ntwtf")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "screenshot.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	loc, err := Locate(dir)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	b := NewBundle(loc.Base)
	b.Put(SecondJSON, []byte(`{}`))
	if err := Write(loc, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(loc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Files) != 1 || string(got.Get(SecondJSON)) != "{}" {
		t.Fatalf("files=%v", got.Files)
	}
	if got.Size() != 2 {
		t.Fatalf("size=%d", got.Size())
	}
}

func TestRotateBackups_KeepsTwoGenerations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.ntwtf.zip")
	loc := Location{Path: path, Base: "s", Kind: KindZip}

	for i, content := range []string{"one", "two", "three"} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		rot, err := RotateBackups(loc, 2)
		if err != nil {
			t.Fatalf("rotate %d: %v", i, err)
		}
		if len(rot.Warnings) != 0 {
			t.Fatalf("warnings: %v", rot.Warnings)
		}
	}
	if b, _ := os.ReadFile(path + ".backup"); string(b) != "three" {
		t.Fatalf("backup=%q", b)
	}
	if b, _ := os.ReadFile(path + ".backup.2"); string(b) != "two" {
		t.Fatalf("backup.2=%q", b)
	}
	if _, err := os.Stat(path + ".backup.3"); !os.IsNotExist(err) {
		t.Fatalf("third generation should not exist")
	}
}

func TestRotateBackups_FolderCopiesTopLevelOnly(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s.ntwtf")
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "s.ntwtf.lua"), []byte("db"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nested", "deep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	loc := Location{Path: dir, Base: "s", Kind: KindFolder}
	if _, err := RotateBackups(loc, 2); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := RotateBackups(loc, 2); err != nil {
		t.Fatalf("rotate again: %v", err)
	}
	for _, p := range []string{dir + ".backup", dir + ".backup.2"} {
		if b, err := os.ReadFile(filepath.Join(p, "s.ntwtf.lua")); err != nil || string(b) != "db" {
			t.Fatalf("%s: %q %v", p, b, err)
		}
		if _, err := os.Stat(filepath.Join(p, "nested")); !os.IsNotExist(err) {
			t.Fatalf("%s: nested dir copied", p)
		}
	}
}

func TestRotateBackups_CopyFailureIsFatal(t *testing.T) {
	loc := Location{Path: filepath.Join(t.TempDir(), "missing.ntwtf.zip"), Base: "missing", Kind: KindZip}
	if _, err := RotateBackups(loc, 2); err == nil {
		t.Fatalf("expected error copying a missing save")
	}
}

func TestDiscover_NewestFirst(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(root, "old.ntwtf")
	newer := filepath.Join(root, "new.ntwtf.zip")
	if err := os.Mkdir(old, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "ignored.zip"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got := Discover([]string{root, filepath.Join(root, "does-not-exist")})
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Name != "new" || got[0].Kind != "zip" || got[0].Size != 3 {
		t.Fatalf("first=%+v", got[0])
	}
	if got[1].Name != "old" || got[1].Kind != "folder" {
		t.Fatalf("second=%+v", got[1])
	}
}

func TestWrite_KeepsFileModes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	dir := filepath.Join(t.TempDir(), "S.ntwtf")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	states := filepath.Join(dir, "S.states.lua")
	db := filepath.Join(dir, "S.ntwtf.lua")
	if err := os.WriteFile(states, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(db, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(db, 0o640); err != nil {
		t.Fatal(err)
	}
	loc, err := Locate(dir)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	b := NewBundle(loc.Base)
	b.Put(StatesText, []byte("y"))
	b.Put(LuaDB, []byte("y"))
	b.Put(SecondJSON, []byte("{}"))
	if err := Write(loc, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	for path, want := range map[string]os.FileMode{
		states:                                 0o644,
		db:                                     0o640,
		filepath.Join(dir, "S.2nd.ntwtf.json"): 0o644,
	} {
		fi, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if got := fi.Mode().Perm(); got != want {
			t.Fatalf("%s mode=%o want %o", filepath.Base(path), got, want)
		}
	}

	zpath := filepath.Join(t.TempDir(), "Z.ntwtf.zip")
	writeZipFixture(t, zpath, map[string][]byte{"Z.states.lua": []byte("x")}, []string{"Z.states.lua"})
	if err := os.Chmod(zpath, 0o664); err != nil {
		t.Fatal(err)
	}
	zloc, err := Locate(zpath)
	if err != nil {
		t.Fatalf("locate zip: %v", err)
	}
	zb := NewBundle(zloc.Base)
	zb.Put(StatesText, []byte("y"))
	if err := Write(zloc, zb); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	fi, err := os.Stat(zpath)
	if err != nil {
		t.Fatalf("stat zip: %v", err)
	}
	if got := fi.Mode().Perm(); got != 0o664 {
		t.Fatalf("zip mode=%o want 664", got)
	}
}
