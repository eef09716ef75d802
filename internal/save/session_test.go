package save

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"ntwtf.ai/internal/persistence/indexdb"
	plog "ntwtf.ai/internal/persistence/log"
	"ntwtf.ai/internal/persistence/luadb"
	"ntwtf.ai/internal/persistence/snapshot"
)

func TestSession_MoneyEditWritesBackup(t *testing.T) {
	path := writeFolderSave(t, t.TempDir(), "s1")
	s := NewSession(Options{BackupGenerations: 2})

	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Money != 500 {
		t.Fatalf("money=%d want 500", st.Money)
	}
	u := st.Update()
	u.Money = 700
	res, err := s.Save(u)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Backup != path+".backup" {
		t.Fatalf("backup=%q", res.Backup)
	}
	if res.State.Money != 700 {
		t.Fatalf("state money=%d", res.State.Money)
	}

	again, err := NewSession(Options{}).Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Money != 700 {
		t.Fatalf("reloaded money=%d want 700", again.Money)
	}
	old := readMember(t, res.Backup, "s1.2nd.ntwtf.json")
	if got := gjson.GetBytes(old, "playerCharacter.Money").Int(); got != 500 {
		t.Fatalf("backup money=%d want 500", got)
	}
}

func TestSession_SavePreservesCasingAndUnknownMembers(t *testing.T) {
	path := writeFolderSave(t, t.TempDir(), "s2")
	s := NewSession(Options{BackupGenerations: 1})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u := st.Update()
	u.XpAmount = 99
	u.AreaID = "church"
	if _, err := s.Save(u); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := readMember(t, path, "s2.2nd.ntwtf.json")
	if gjson.GetBytes(second, "playerCharacter.xpAmount").Exists() {
		t.Fatalf("camelCase spelling introduced")
	}
	if got := gjson.GetBytes(second, "playerCharacter.XpAmount").Int(); got != 99 {
		t.Fatalf("XpAmount=%d", got)
	}
	if !gjson.GetBytes(second, "characterSheet.mysteryField.keep").Bool() {
		t.Fatalf("unknown sheet member lost")
	}
	if got := gjson.GetBytes(second, "unknownTopLevel.1").Raw; got != "2.50" {
		t.Fatalf("number literal rewritten: %q", got)
	}
	if got := gjson.GetBytes(second, "playerCharacter.StockValue").Int(); got != 3 {
		t.Fatalf("StockValue=%d", got)
	}
	if !bytes.Contains(second, []byte("\n  ")) {
		t.Fatalf("output is not indented")
	}

	first := readMember(t, path, "s2.1st.ntwtf.json")
	if gjson.GetBytes(first, "areaId").String() != "church" {
		t.Fatalf("areaId not written")
	}
	if gjson.GetBytes(first, "partyState.futureFlag").String() != "keep" {
		t.Fatalf("unknown party member lost")
	}
}

func TestSession_ThoughtInternalizedFillsOneSlot(t *testing.T) {
	path := writeFolderSave(t, t.TempDir(), "s3")
	s := NewSession(Options{})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var found bool
	for _, th := range st.Thoughts {
		if th.Name == "hobocop" {
			found = th.State == ThoughtGained
		}
	}
	if !found {
		t.Fatalf("hobocop not listed as gained: %+v", st.Thoughts)
	}

	u := st.Update()
	u.SetThought("hobocop", ThoughtInternalized)
	if _, err := s.Save(u); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := readMember(t, path, "s3.2nd.ntwtf.json")
	for _, list := range []string{"gainedThoughts", "fixedThoughts"} {
		names := gjson.GetBytes(second, "characterSheet."+list).Array()
		if len(names) != 1 || names[0].String() != "hobocop" {
			t.Fatalf("%s=%v", list, names)
		}
	}
	if n := len(gjson.GetBytes(second, "characterSheet.cookingThoughts").Array()); n != 0 {
		t.Fatalf("cookingThoughts has %d entries", n)
	}
	slots := gjson.GetBytes(second, "thoughtCabinetState.thoughtCabinetViewState.slotStates").Array()
	if len(slots) != CabinetSlots {
		t.Fatalf("slots=%d want %d", len(slots), CabinetSlots)
	}
	filled := 0
	for _, sl := range slots {
		if sl.Get("Item1").String() == "FILLED" {
			filled++
			if sl.Get("Item2").String() != "hobocop" {
				t.Fatalf("filled slot holds %q", sl.Get("Item2").String())
			}
		}
	}
	if filled != 1 {
		t.Fatalf("filled=%d want 1", filled)
	}
	if st := gjson.GetBytes(second, "thoughtCabinetState.thoughtListState.0.state").String(); st != "FIXED" {
		t.Fatalf("cabinet state=%q", st)
	}

	again, err := NewSession(Options{}).Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, th := range again.Thoughts {
		if th.Name == "hobocop" && th.State != ThoughtInternalized {
			t.Fatalf("reloaded state=%q", th.State)
		}
	}
}

func TestSession_DatabaseEditsAndResets(t *testing.T) {
	path := writeFolderSave(t, t.TempDir(), "s4")
	s := NewSession(Options{})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Reputation.Kim != 2 || st.LuaVariableCount != 6 {
		t.Fatalf("rep=%+v count=%d", st.Reputation, st.LuaVariableCount)
	}
	u := st.Update()
	u.LuaEdits = map[string]string{
		"stats.count":         "7",
		"flags.seen_whirling": "yes",
		"not.there":           "1",
	}
	u.Reputation.Nationalist = 4
	u.ResetCheckKeys = []string{"chk1"}
	res, err := s.Save(u)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(res.Coerced) != 1 {
		t.Fatalf("coerced=%v", res.Coerced)
	}

	vars, err := s.Query("", 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	got := map[string]string{}
	for _, v := range vars {
		got[v.Key] = v.Value
	}
	if got["stats.count"] != "7" || got["flags.seen_whirling"] != "false" {
		t.Fatalf("vars=%v", got)
	}
	if _, ok := got["not.there"]; ok {
		t.Fatalf("edit to missing key created it")
	}
	if got["reputation.revacholian_nationhood"] != "4" {
		t.Fatalf("nationalist=%q", got["reputation.revacholian_nationhood"])
	}
	if _, ok := got["WhiteCheckCache.chk1"]; ok {
		t.Fatalf("database check not reset")
	}

	if len(res.State.FailedChecks) != 1 || res.State.FailedChecks[0].Key != "chk2" {
		t.Fatalf("failed=%+v", res.State.FailedChecks)
	}
	if len(res.State.SeenChecks) != 1 {
		t.Fatalf("seen=%+v", res.State.SeenChecks)
	}
}

func TestSession_MissingPayloadsTolerated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p.ntwtf")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "p.2nd.ntwtf.json"), []byte(secondFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSession(Options{})
	st, err := s.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.AreaID != "" || len(st.AreaStates) != 0 || st.LuaVariableCount != 0 {
		t.Fatalf("defaults not empty: %+v", st)
	}
	if _, err := s.Save(st.Update()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "p.1st.ntwtf.json")); !os.IsNotExist(err) {
		t.Fatalf("missing first payload was created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "p.states.lua")); err != nil {
		t.Fatalf("states not written: %v", err)
	}
}

func TestSession_MalformedJSONNamesPayload(t *testing.T) {
	path := writeFolderSave(t, t.TempDir(), "bad")
	if err := os.WriteFile(filepath.Join(path, "bad.2nd.ntwtf.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewSession(Options{}).Load(path)
	var pe *PayloadError
	if !errors.As(err, &pe) {
		t.Fatalf("err=%v want PayloadError", err)
	}
	if pe.Payload != "2nd.ntwtf.json" || pe.Op != "parse" {
		t.Fatalf("payload error=%+v", pe)
	}
}

func TestSession_NoSession(t *testing.T) {
	s := NewSession(Options{})
	if _, err := s.Save(Update{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("save err=%v", err)
	}
	if _, err := s.Query("x", 1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("query err=%v", err)
	}
	if _, err := s.State(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("state err=%v", err)
	}
}

func TestSession_RejectsUpdateForOtherSave(t *testing.T) {
	dir := t.TempDir()
	path := writeFolderSave(t, dir, "a")
	s := NewSession(Options{})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u := st.Update()
	u.FolderPath = filepath.Join(dir, "b.ntwtf")
	if _, err := s.Save(u); !errors.Is(err, ErrPathMismatch) {
		t.Fatalf("err=%v", err)
	}
}

func TestSession_ZipSaveKeepsOtherMembers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "z.ntwtf.zip")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	members := payloads(t, "z")
	members["screenshot.png"] = []byte("\x89PNG not really")
	for _, name := range []string{"z.1st.ntwtf.json", "z.2nd.ntwtf.json", "screenshot.png", "z.ntwtf.lua", "z.states.lua"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(members[name]); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSession(Options{BackupGenerations: 2})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Kind != "zip" || st.BaseName != "z" {
		t.Fatalf("kind=%q base=%q", st.Kind, st.BaseName)
	}
	u := st.Update()
	u.Money = 700
	if _, err := s.Save(u); err != nil {
		t.Fatalf("save: %v", err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer zr.Close()
	var shot []byte
	for _, f := range zr.File {
		if f.Name != "screenshot.png" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		shot, _ = io.ReadAll(rc)
		rc.Close()
	}
	if !bytes.Equal(shot, members["screenshot.png"]) {
		t.Fatalf("untouched member changed: %q", shot)
	}
	if _, err := os.Stat(path + ".backup"); err != nil {
		t.Fatalf("zip backup missing: %v", err)
	}
	again, err := NewSession(Options{}).Load(path)
	if err != nil || again.Money != 700 {
		t.Fatalf("reload money=%d err=%v", again.Money, err)
	}
}

func TestSession_RestoreAuditAndIndex(t *testing.T) {
	dir := t.TempDir()
	path := writeFolderSave(t, dir, "r")
	data := filepath.Join(dir, "data")
	audit := plog.NewAuditLogger(data)
	idx, err := indexdb.OpenSQLite(filepath.Join(data, "index.sqlite"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	s := NewSession(Options{
		BackupGenerations: 2,
		Snapshots:         snapshot.NewStore(filepath.Join(data, "snapshots"), 5),
		Audit:             audit,
		Index:             idx,
	})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u := st.Update()
	u.Money = 700
	res, err := s.Save(u)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.SnapshotID == "" {
		t.Fatalf("no restore point written")
	}
	snaps, err := s.Snapshots()
	if err != nil || len(snaps) != 1 {
		t.Fatalf("snapshots=%v err=%v", snaps, err)
	}

	restored, err := s.Restore(path, res.SnapshotID[:8])
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.State.Money != 500 {
		t.Fatalf("restored money=%d want 500", restored.State.Money)
	}

	if err := audit.Close(); err != nil {
		t.Fatalf("close audit: %v", err)
	}
	entries, err := audit.ReadAudit(path)
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	ops := []string{}
	for _, e := range entries {
		ops = append(ops, e.Op)
	}
	if len(ops) != 3 || ops[0] != "load" || ops[1] != "save" || ops[2] != "restore" {
		t.Fatalf("audit ops=%v", ops)
	}

	hist, err := idx.History(context.Background(), path, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("history=%d events want 3", len(hist))
	}
	isnaps, err := idx.Snapshots(context.Background(), path)
	if err != nil || len(isnaps) != 2 {
		t.Fatalf("indexed snapshots=%d err=%v", len(isnaps), err)
	}
}

func TestProject_Display(t *testing.T) {
	path := writeFolderSave(t, t.TempDir(), "d")
	s := NewSession(Options{})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cat := s.Catalogs()

	if st.Health != 4 || st.Morale != 5 || st.Day != 1 || st.Hours != 8 || st.Minutes != 30 {
		t.Fatalf("character=%+v", st)
	}
	if len(st.Abilities) != 1 || !st.Abilities[0].IsSignature || st.Abilities[0].TypeCode != "INT" {
		t.Fatalf("abilities=%+v", st.Abilities)
	}
	if len(st.Skills) != 1 || st.Skills[0].ModifierCount != 1 || st.Skills[0].AbilityType != "INT" {
		t.Fatalf("skills=%+v", st.Skills)
	}
	if len(st.OwnedItems) != 2 {
		t.Fatalf("items=%+v", st.OwnedItems)
	}
	jacket, pills := st.OwnedItems[0], st.OwnedItems[1]
	if !jacket.IsEquipped || jacket.EquipSlot != "jacket_slot" || pills.IsEquipped || pills.SubstanceUses != 2 {
		t.Fatalf("jacket=%+v pills=%+v", jacket, pills)
	}
	if len(st.Tasks) != 1 {
		t.Fatalf("tasks=%+v", st.Tasks)
	}
	task := st.Tasks[0]
	if task.AcquiredTime != "Day 1, 09:05" || !task.IsResolved || !task.IsNew || task.Description != "TASK.find_gun" {
		t.Fatalf("task=%+v", task)
	}
	if len(st.FailedChecks) != 2 || st.FailedChecks[0].SkillDisplayName != cat.SkillDisplayNameByType("LOGIC") {
		t.Fatalf("failed=%+v", st.FailedChecks)
	}
	if !st.SeenChecks[0].IsSeenOnly {
		t.Fatalf("seen=%+v", st.SeenChecks)
	}
	if len(st.Containers) != 1 || st.Containers[0].ItemCount != 2 || st.Containers[0].TotalValue != 6 {
		t.Fatalf("containers=%+v", st.Containers)
	}
	if st.AreaStates["whirling"] != 2 || st.ShownOrbs["orb1"] != 1 || !st.DoorStates["door_a"] {
		t.Fatalf("states=%v %v %v", st.AreaStates, st.ShownOrbs, st.DoorStates)
	}
	if !st.PartyState.IsKimInParty || st.PartyState.SleepLocation != 3 {
		t.Fatalf("party=%+v", st.PartyState)
	}
}

func TestSession_RejectsUnreadableStateKeys(t *testing.T) {
	for name, mutate := range map[string]func(u *Update){
		"area key closes bracket": func(u *Update) { u.AreaStates = map[string]int64{"cellar\"]": 3} },
		"orb key with newline":    func(u *Update) { u.ShownOrbs = map[string]int64{"newline\nkey": 4} },
		"empty area key":          func(u *Update) { u.AreaStates = map[string]int64{"": 1} },
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFolderSave(t, t.TempDir(), "k")
			s := NewSession(Options{BackupGenerations: 1})
			st, err := s.Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			u := st.Update()
			mutate(&u)
			if _, err := s.Save(u); !errors.Is(err, ErrStateKey) {
				t.Fatalf("err=%v want ErrStateKey", err)
			}
			if got := string(readMember(t, path, "k.states.lua")); got != statesFixture {
				t.Fatalf("states rewritten: %q", got)
			}
			if _, err := os.Stat(path + ".backup"); !os.IsNotExist(err) {
				t.Fatalf("backup stat err=%v want not exist", err)
			}
		})
	}
}

func TestSession_EquipmentOnlyHoldsOwnedSlottedItems(t *testing.T) {
	path := writeFolderSave(t, t.TempDir(), "e")
	s := NewSession(Options{})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u := st.Update()
	u.OwnedItems = []InventoryItemDisplay{
		{Name: "jacket", IsOwned: true, IsEquipped: true, EquipSlot: "jacket_slot"},
		{Name: "ghost_tie", IsOwned: false, IsEquipped: true, EquipSlot: "neck_slot"},
		{Name: "hat", IsOwned: true, IsEquipped: true},
	}
	if _, err := s.Save(u); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := readMember(t, path, "e.2nd.ntwtf.json")
	eq := gjson.GetBytes(second, "inventoryState.inventoryViewState.equipment").Map()
	if len(eq) != 1 || eq["jacket_slot"].String() != "jacket" {
		t.Fatalf("equipment=%v want {jacket_slot: jacket}", eq)
	}
	names := func(path string) []string {
		var out []string
		for _, v := range gjson.GetBytes(second, path).Array() {
			out = append(out, v.String())
		}
		return out
	}
	if got := names("characterSheet.gainedItems"); len(got) != 2 || got[0] != "jacket" || got[1] != "hat" {
		t.Fatalf("gainedItems=%v want [jacket hat]", got)
	}
	if got := names("characterSheet.equippedItems"); len(got) != 3 || got[0] != "jacket" || got[1] != "ghost_tie" || got[2] != "hat" {
		t.Fatalf("equippedItems=%v want [jacket ghost_tie hat]", got)
	}
}

func TestSession_ResetDeletesDottedCheckKeyDirectly(t *testing.T) {
	path := writeFolderSave(t, t.TempDir(), "d")
	db := fixtureDB()
	v, _ := luadb.GetPath(db, "WhiteCheckCache")
	checks := v.(*luadb.Table)
	checks.Set("whirling.door", luadb.Boolean(true))
	nested := luadb.NewTable()
	nested.Set("door", luadb.Boolean(true))
	checks.Set("whirling", nested)
	raw, err := luadb.EncodeDatabase(db)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "d.ntwtf.lua"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSession(Options{})
	st, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u := st.Update()
	u.ResetCheckKeys = []string{"whirling.door"}
	if _, err := s.Save(u); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := luadb.DecodeDatabase(readMember(t, path, "d.ntwtf.lua"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	v, _ = luadb.GetPath(got, "WhiteCheckCache")
	checks = v.(*luadb.Table)
	if _, ok := checks.Get("whirling.door"); ok {
		t.Fatalf("dotted check key not deleted")
	}
	if _, ok := luadb.GetPath(got, "WhiteCheckCache.whirling.door"); !ok {
		t.Fatalf("nested whirling.door was deleted")
	}
}
