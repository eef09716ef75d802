package save

import (
	"fmt"
	"sort"

	"ntwtf.ai/internal/persistence/archive"
	"ntwtf.ai/internal/persistence/luadb"
	"ntwtf.ai/internal/persistence/rawjson"
	"ntwtf.ai/internal/persistence/states"
)

// CabinetSlots is the fixed number of thought cabinet slots.
const CabinetSlots = 12

// Patcher merges an Update into a loaded save. Objects the save does not
// already have are left absent; members inside an existing object are written
// with whatever casing the object already uses.
type Patcher struct {
	prober *rawjson.Prober
	// failed and seen white check caches, by member name.
	checkTables [2]string
}

func NewPatcher(prober *rawjson.Prober, whiteCheckTables []string) *Patcher {
	p := &Patcher{prober: prober, checkTables: [2]string{"WhiteCheckCache", "SeenWhiteCheckCache"}}
	if len(whiteCheckTables) == 2 {
		copy(p.checkTables[:], whiteCheckTables)
	}
	if p.prober == nil {
		p.prober = rawjson.NewProber(nil)
	}
	return p
}

// Result is the outcome of Apply.
type Result struct {
	Bundle *archive.Bundle
	// Coerced lists database edits whose text did not parse as the type of
	// the existing leaf and were stored as the fallback (0 or false).
	Coerced []string
	// Fields names the groups of fields written.
	Fields []string
}

// Apply mutates l's documents, database and states in place and serializes
// them. Callers that may discard the result should pass a Clone.
func (p *Patcher) Apply(l *Loaded, u Update) (Result, error) {
	var res Result
	if err := checkStateKeys(u); err != nil {
		return res, err
	}

	first := &docPatch{d: l.First, pr: p.prober}
	p.patchFirst(first, u)
	if first.err != nil {
		return res, payloadErr(archive.FirstJSON, "patch", first.err)
	}

	second := &docPatch{d: l.Second, pr: p.prober}
	p.patchSecond(second, u)
	if second.err != nil {
		return res, payloadErr(archive.SecondJSON, "patch", second.err)
	}

	res.Coerced = p.patchDatabase(l.DB, u)
	l.States = states.Table{AreaStates: copyMap(u.AreaStates), ShownOrbs: copyMap(u.ShownOrbs)}

	b := archive.NewBundle(l.Location.Base)
	if !l.First.IsNull() {
		b.Put(archive.FirstJSON, l.First.Indent())
	}
	if !l.Second.IsNull() {
		b.Put(archive.SecondJSON, l.Second.Indent())
	}
	db, err := luadb.EncodeDatabase(l.DB)
	if err != nil {
		return res, payloadErr(archive.LuaDB, "encode", err)
	}
	b.Put(archive.LuaDB, db)
	b.Put(archive.StatesText, []byte(states.Serialize(l.States)))

	res.Bundle = b
	res.Fields = append(first.fields, second.fields...)
	res.Fields = append(res.Fields, "database", "states")
	return res, nil
}

func checkStateKeys(u Update) error {
	for _, m := range []map[string]int64{u.AreaStates, u.ShownOrbs} {
		for k := range m {
			if !states.ValidKey(k) {
				return fmt.Errorf("%w: %q", ErrStateKey, k)
			}
		}
	}
	return nil
}

// docPatch writes into one document and keeps the first error.
type docPatch struct {
	d      *rawjson.Document
	pr     *rawjson.Prober
	err    error
	fields []string
}

// object resolves path and reports whether an object exists there.
func (p *docPatch) object(path ...string) ([]string, bool) {
	resolved := p.pr.ResolvePath(p.d, path...)
	return resolved, p.d.Get(resolved...).IsObject()
}

func (p *docPatch) set(obj []string, key string, v any) {
	if p.err != nil {
		return
	}
	k := p.pr.Resolve(p.d, obj, key)
	p.err = p.d.Set(v, append(append([]string(nil), obj...), k)...)
}

func (p *docPatch) del(obj []string, key string) {
	if p.err != nil {
		return
	}
	p.err = p.d.Delete(append(append([]string(nil), obj...), key)...)
}

func (p *docPatch) touched(field string) { p.fields = append(p.fields, field) }

func (p *Patcher) patchFirst(d *docPatch, u Update) {
	root, ok := d.object()
	if !ok {
		return
	}
	d.set(root, "areaId", u.AreaID)
	d.touched("area_id")

	party, ok := d.object("partyState")
	if !ok {
		return
	}
	ps := u.PartyState
	d.set(party, "isKimInParty", ps.IsKimInParty)
	d.set(party, "isKimLeftOutside", ps.IsKimLeftOutside)
	d.set(party, "isKimAbandoned", ps.IsKimAbandoned)
	d.set(party, "isKimAwayUpToMorning", ps.IsKimAwayUpToMorning)
	d.set(party, "isKimSleepingInHisRoom", ps.IsKimSleepingInHisRoom)
	d.set(party, "isKimSayingGoodMorning", ps.IsKimSayingGoodMorning)
	d.set(party, "isCunoInParty", ps.IsCunoInParty)
	d.set(party, "isCunoLeftOutside", ps.IsCunoLeftOutside)
	d.set(party, "isCunoAbandoned", ps.IsCunoAbandoned)
	d.set(party, "hasHangover", ps.HasHangover)
	d.set(party, "sleepLocation", ps.SleepLocation)
	d.set(party, "waitLocation", ps.WaitLocation)
	d.set(party, "cunoWaitLocation", ps.CunoWaitLocation)
	d.set(party, "timeSinceKimWentSleepingInHisRoom", ps.TimeSinceKimWentSleepingInHisRoom)
	d.set(party, "kimLastArrivalLocation", ps.KimLastArrivalLocation)
	d.set(party, "cunoLastArrivalLocation", ps.CunoLastArrivalLocation)
	d.touched("party_state")
}

func (p *Patcher) patchSecond(d *docPatch, u Update) {
	if _, ok := d.object(); !ok {
		return
	}

	if pc, ok := d.object("playerCharacter"); ok {
		d.set(pc, "xpAmount", u.XpAmount)
		d.set(pc, "level", u.Level)
		d.set(pc, "skillPoints", u.SkillPoints)
		d.set(pc, "money", u.Money)
		if hp, ok := d.object(append(pc, "healingPools")...); ok {
			d.set(hp, "ENDURANCE", u.Health)
			d.set(hp, "VOLITION", u.Morale)
		}
		d.touched("player_character")
	}

	if t, ok := d.object("sunshineClockTimeHolder", "time"); ok {
		d.set(t, "dayCounter", u.Day)
		d.set(t, "realDayCounter", u.Day)
		d.set(t, "dayMinutes", u.Hours*60+u.Minutes)
		d.touched("time")
	}

	if cs, ok := d.object("characterSheet"); ok {
		p.patchSheet(d, cs, u)
	}
	if tc, ok := d.object("thoughtCabinetState"); ok {
		p.patchCabinet(d, tc, u)
	}

	if gm, ok := d.object("gameModeState"); ok {
		d.set(gm, "gameMode", u.GameMode)
		d.touched("game_mode")
	}

	if hud, ok := d.object("hudState"); ok {
		h := u.HudState
		d.set(hud, "tequilaPortraitObscured", h.PortraitObscured)
		d.set(hud, "tequilaPortraitShaved", h.PortraitShaved)
		d.set(hud, "tequilaPortraitExpressionStopped", h.PortraitExpressionStopped)
		d.set(hud, "tequilaPortraitFascist", h.PortraitFascist)
		d.set(hud, "charsheetNotification", h.CharsheetNotification)
		d.set(hud, "inventoryNotification", h.InventoryNotification)
		d.set(hud, "journalNotification", h.JournalNotification)
		d.set(hud, "thcNotification", h.ThcNotification)
		d.set(hud, "invClothesNotification", h.InvClothesNotification)
		d.set(hud, "invPawnablesNotification", h.InvPawnablesNotification)
		d.set(hud, "invReadingNotification", h.InvReadingNotification)
		d.set(hud, "invToolsNotification", h.InvToolsNotification)
		d.touched("hud_state")
	}

	if w, ok := d.object("weatherState"); ok {
		d.set(w, "weatherPreset", u.WeatherPreset)
		d.touched("weather")
	}

	if ivs, ok := d.object("inventoryState", "inventoryViewState"); ok {
		d.set(ivs, "bullets", u.Bullets)
		d.set(ivs, "equipment", equipment(u.OwnedItems))
		d.touched("inventory")
	}

	if vih, ok := d.object("variousItemsHolder"); ok {
		doors := u.DoorStates
		if doors == nil {
			doors = map[string]bool{}
		}
		d.set(vih, "DoorStates", doors)
		d.touched("door_states")
	}

	if jt, ok := d.object("aquiredJournalTasks"); ok {
		f := u.LocationFlags
		d.set(jt, "wasChurchVisited", f.WasChurchVisited)
		d.set(jt, "wasFishingVillageVisited", f.WasFishingVillageVisited)
		d.set(jt, "wasQuicktravelChurchDiscovered", f.WasQuicktravelChurchDiscovered)
		d.set(jt, "wasQuicktravelFishingVillageDiscovered", f.WasQuicktravelFishingVillageDiscovered)
		d.touched("location_flags")
	}

	if len(u.ResetCheckKeys)+len(u.ResetSeenCheckKeys) > 0 {
		if holder, ok := d.object("failedWhiteChecksHolder"); ok {
			resets := [2][]string{u.ResetCheckKeys, u.ResetSeenCheckKeys}
			for i, table := range p.checkTables {
				obj, ok := d.object(append(holder, table)...)
				if !ok {
					continue
				}
				for _, key := range resets[i] {
					d.del(obj, key)
				}
			}
			d.touched("white_checks")
		}
	}
}

func (p *Patcher) patchSheet(d *docPatch, cs []string, u Update) {
	for _, a := range u.Abilities {
		e, ok := d.object(append(cs, a.SaveKey)...)
		if !ok {
			continue
		}
		d.set(e, "value", a.Value)
		d.set(e, "maximumValue", max(a.MaximumValue, a.Value))
		d.set(e, "isSignature", a.IsSignature)
	}
	for _, s := range u.Skills {
		e, ok := d.object(append(cs, s.SaveKey)...)
		if !ok {
			continue
		}
		d.set(e, "value", s.Value)
		d.set(e, "maximumValue", max(s.MaximumValue, s.Value))
		d.set(e, "rankValue", s.RankValue)
		d.set(e, "hasAdvancement", s.HasAdvancement)
		d.set(e, "isSignature", s.IsSignature)
	}

	gained, equipped := []string{}, []string{}
	for _, it := range u.OwnedItems {
		if it.IsOwned {
			gained = append(gained, it.Name)
		}
		if it.IsEquipped {
			equipped = append(equipped, it.Name)
		}
	}
	d.set(cs, "gainedItems", gained)
	d.set(cs, "equippedItems", equipped)

	l := thoughtLists(u.Thoughts)
	d.set(cs, "gainedThoughts", l.gained)
	d.set(cs, "cookingThoughts", l.cooking)
	d.set(cs, "fixedThoughts", l.fixed)
	d.set(cs, "forgottenThoughts", l.forgotten)
	d.touched("character_sheet")
}

type lists struct {
	gained, cooking, fixed, forgotten []string
}

// thoughtLists expands each thought state into list membership. Every
// acquired state implies "gained".
func thoughtLists(ts []ThoughtDisplay) lists {
	l := lists{gained: []string{}, cooking: []string{}, fixed: []string{}, forgotten: []string{}}
	for _, t := range ts {
		switch t.State {
		case ThoughtGained:
			l.gained = append(l.gained, t.Name)
		case ThoughtProcessing:
			l.gained = append(l.gained, t.Name)
			l.cooking = append(l.cooking, t.Name)
		case ThoughtInternalized:
			l.gained = append(l.gained, t.Name)
			l.fixed = append(l.fixed, t.Name)
		case ThoughtForgotten:
			l.gained = append(l.gained, t.Name)
			l.forgotten = append(l.forgotten, t.Name)
		}
	}
	return l
}

type thoughtRecord struct {
	Name     string  `json:"name"`
	IsFresh  bool    `json:"isFresh"`
	State    string  `json:"state"`
	TimeLeft float64 `json:"timeLeft"`
}

type slotRecord struct {
	Item1 string `json:"Item1"`
	Item2 string `json:"Item2"`
}

func cabinetToken(state string) string {
	switch state {
	case ThoughtInternalized:
		return "FIXED"
	case ThoughtProcessing:
		return "COOKING"
	case ThoughtForgotten:
		return "FORGOTTEN"
	default:
		return "GAINED"
	}
}

func (p *Patcher) patchCabinet(d *docPatch, tc []string, u Update) {
	list := []thoughtRecord{}
	slots := []slotRecord{}
	for _, t := range u.Thoughts {
		if t.State == ThoughtNotAcquired || t.State == "" {
			continue
		}
		list = append(list, thoughtRecord{Name: t.Name, State: cabinetToken(t.State), TimeLeft: t.TimeLeft})
		if t.State == ThoughtInternalized || t.State == ThoughtProcessing {
			slots = append(slots, slotRecord{Item1: "FILLED", Item2: t.Name})
		}
	}
	for len(slots) < CabinetSlots {
		slots = append(slots, slotRecord{Item1: "EMPTY", Item2: ""})
	}

	d.set(tc, "thoughtListState", list)
	if view, ok := d.object(append(tc, "thoughtCabinetViewState")...); ok {
		d.set(view, "slotStates", slots)
	}
	d.touched("thought_cabinet")
}

// equipment maps slot to item name for owned, equipped items that carry a
// slot label.
func equipment(items []InventoryItemDisplay) map[string]string {
	out := map[string]string{}
	for _, it := range items {
		if it.IsOwned && it.IsEquipped && it.EquipSlot != "" {
			out[it.EquipSlot] = it.Name
		}
	}
	return out
}

func (p *Patcher) patchDatabase(db *luadb.Database, u Update) []string {
	var coerced []string
	if len(u.LuaEdits) > 0 {
		flat := luadb.Flatten(db, "")
		keys := make([]string, 0, len(u.LuaEdits))
		for k := range u.LuaEdits {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			orig, ok := flat[k]
			if !ok {
				continue
			}
			v, err := luadb.ParseLike(orig, u.LuaEdits[k])
			if err != nil {
				coerced = append(coerced, fmt.Sprintf("%s=%q", k, u.LuaEdits[k]))
			}
			luadb.SetPath(db, k, v)
		}
	}

	rep := u.Reputation
	for i, v := range []float64{rep.Communist, rep.Ultraliberal, rep.Moralist, rep.Nationalist, rep.Kim} {
		luadb.SetPath(db, reputationPaths[i], luadb.Number(v))
	}

	// Resets also clear same-named database tables when the save keeps
	// checks there.
	resets := [2][]string{u.ResetCheckKeys, u.ResetSeenCheckKeys}
	for i, table := range p.checkTables {
		v, ok := luadb.GetPath(db, table)
		t, isTable := v.(*luadb.Table)
		if !ok || !isTable {
			continue
		}
		for _, key := range resets[i] {
			t.Delete(key)
		}
	}
	return coerced
}
