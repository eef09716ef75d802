package save

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"ntwtf.ai/internal/catalogs"
	"ntwtf.ai/internal/persistence/luadb"
)

var reputationPaths = [...]string{
	"reputation.communist",
	"reputation.ultraliberal",
	"reputation.moralist",
	"reputation.revacholian_nationhood",
	"reputation.kim",
}

// Project builds the display state of l. Lists come out in a stable order:
// abilities and skills in key map order, everything else by name or key.
func Project(l *Loaded, cat *catalogs.Catalogs) FullState {
	first, second, cs := &l.FirstView, &l.SecondView, &l.Sheet
	pc := second.PlayerCharacter
	t := second.SunshineClockTimeHolder.Time

	fs := FullState{
		FolderPath:  l.Location.Path,
		BaseName:    l.Location.Base,
		Kind:        l.Location.Kind.String(),
		XpAmount:    pc.XpAmount,
		Level:       pc.Level,
		SkillPoints: pc.SkillPoints,
		Money:       pc.Money,
		Health:      pc.HealingPools.Endurance,
		Morale:      pc.HealingPools.Volition,
		Day:         t.DayCounter,
		Hours:       t.Hours(),
		Minutes:     t.Minutes(),

		Abilities:  projectAbilities(cs, cat),
		Skills:     projectSkills(cs, cat),
		OwnedItems: projectItems(second, cs, cat),
		Bullets:    second.InventoryState.InventoryViewState.Bullets,
		Thoughts:   projectThoughts(second, cs, cat),
		Tasks:      projectTasks(second, cat),

		AreaID:     first.AreaID,
		PartyState: first.PartyState,
		HudState:   projectHud(second.HudState),
		GameMode:   second.GameModeState.GameMode,
		LocationFlags: LocationFlags{
			WasChurchVisited:                       second.AcquiredJournalTasks.WasChurchVisited,
			WasFishingVillageVisited:               second.AcquiredJournalTasks.WasFishingVillageVisited,
			WasQuicktravelChurchDiscovered:         second.AcquiredJournalTasks.WasQuicktravelChurchDiscovered,
			WasQuicktravelFishingVillageDiscovered: second.AcquiredJournalTasks.WasQuicktravelFishingVillageDiscovered,
		},
		WeatherPreset: second.WeatherState.WeatherPreset,

		FailedChecks: projectFailedChecks(second, cat),
		SeenChecks:   projectSeenChecks(second, cat),
		Containers:   projectContainers(second),

		DoorStates: copyMap(second.VariousItemsHolder.DoorStates),
		AreaStates: copyMap(l.States.AreaStates),
		ShownOrbs:  copyMap(l.States.ShownOrbs),
	}

	flat := luadb.Flatten(l.DB, "")
	rep := func(key string) float64 {
		if n, ok := flat[key].(luadb.Number); ok {
			return float64(n)
		}
		return 0
	}
	fs.Reputation = ReputationDisplay{
		Communist:    rep(reputationPaths[0]),
		Ultraliberal: rep(reputationPaths[1]),
		Moralist:     rep(reputationPaths[2]),
		Nationalist:  rep(reputationPaths[3]),
		Kim:          rep(reputationPaths[4]),
	}
	fs.LuaVariableCount = len(flat)
	return fs
}

func projectAbilities(cs *CharacterSheet, cat *catalogs.Catalogs) []AbilityDisplay {
	out := []AbilityDisplay{}
	for _, m := range cat.KeyMap.Abilities {
		e, ok := cs.Abilities[m.SaveKey]
		if !ok {
			continue
		}
		out = append(out, AbilityDisplay{
			SaveKey:      m.SaveKey,
			DisplayName:  m.DisplayName,
			TypeCode:     m.SkillType,
			Value:        e.Value,
			MaximumValue: e.MaximumValue,
			IsSignature:  e.IsSignature,
		})
	}
	return out
}

func projectSkills(cs *CharacterSheet, cat *catalogs.Catalogs) []SkillDisplay {
	out := []SkillDisplay{}
	for _, m := range cat.KeyMap.Skills {
		e, ok := cs.Skills[m.SaveKey]
		if !ok {
			continue
		}
		mods := 0
		for _, mod := range cs.SkillModifierCauseMap[m.SkillType] {
			if mod.Type != "CALCULATED_ABILITY" {
				mods++
			}
		}
		ability := m.Ability
		if ability == "" {
			ability = e.AbilityType
		}
		out = append(out, SkillDisplay{
			SaveKey:           m.SaveKey,
			DisplayName:       m.DisplayName,
			TypeCode:          m.SkillType,
			AbilityType:       ability,
			Description:       cat.SkillDescription(m.DisplayName),
			Value:             e.Value,
			MaximumValue:      e.MaximumValue,
			CalculatedAbility: e.CalculatedAbility,
			RankValue:         e.RankValue,
			HasAdvancement:    e.HasAdvancement,
			IsSignature:       e.IsSignature,
			ModifierCount:     mods,
		})
	}
	return out
}

func projectItems(second *SecondFile, cs *CharacterSheet, cat *catalogs.Catalogs) []InventoryItemDisplay {
	slots := map[string]string{}
	for slot, name := range second.InventoryState.InventoryViewState.Equipment {
		if prev, ok := slots[name]; !ok || slot < prev {
			slots[name] = slot
		}
	}
	uses := map[string]int64{}
	for _, it := range second.InventoryState.ItemListState {
		if _, ok := uses[it.ItemName]; !ok {
			uses[it.ItemName] = it.SubstanceUses
		}
	}

	out := []InventoryItemDisplay{}
	for _, name := range cs.GainedItems {
		d := InventoryItemDisplay{
			Name:          name,
			DisplayName:   name,
			IsOwned:       true,
			IsEquipped:    contains(cs.EquippedItems, name),
			EquipSlot:     slots[name],
			SubstanceUses: uses[name],
		}
		if def, ok := cat.Items[name]; ok {
			d.DisplayName = def.DisplayName
			d.Description = def.Description
			d.Bonus = def.MediumTextValue
			d.IsQuestItem = def.IsQuestItem
			d.IsCursed = def.IsCursed()
			d.IsSubstance = def.IsSubstance()
		}
		out = append(out, d)
	}
	return out
}

// projectThoughts lists every catalog thought plus any thought the save
// mentions that the catalog lacks, so an Update built from the result keeps
// them.
func projectThoughts(second *SecondFile, cs *CharacterSheet, cat *catalogs.Catalogs) []ThoughtDisplay {
	timeLeft := map[string]float64{}
	for _, ts := range second.ThoughtCabinetState.ThoughtListState {
		if _, ok := timeLeft[ts.Name]; !ok {
			timeLeft[ts.Name] = ts.TimeLeft
		}
	}

	names := map[string]bool{}
	for name := range cat.Thoughts {
		names[name] = true
	}
	for _, list := range [][]string{cs.GainedThoughts, cs.CookingThoughts, cs.FixedThoughts, cs.ForgottenThoughts} {
		for _, name := range list {
			names[name] = true
		}
	}
	for name := range timeLeft {
		names[name] = true
	}

	out := make([]ThoughtDisplay, 0, len(names))
	for name := range names {
		d := ThoughtDisplay{
			Name:        name,
			DisplayName: name,
			State:       thoughtState(cs, name),
			TimeLeft:    timeLeft[name],
		}
		if def, ok := cat.Thoughts[name]; ok {
			d.DisplayName = def.DisplayName
			d.Description = def.Description
			d.BonusWhileProcessing = def.BonusWhileProcessing
			d.BonusWhenCompleted = def.BonusWhenCompleted
			d.CompletionDescription = def.CompletionDescription
			d.ThoughtType = def.ThoughtType
			d.TimeToInternalize = def.TimeToInternalize
			d.Requirement = def.Requirement
			d.IsCursed = def.IsCursed()
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func thoughtState(cs *CharacterSheet, name string) string {
	switch {
	case contains(cs.FixedThoughts, name):
		return ThoughtInternalized
	case contains(cs.CookingThoughts, name):
		return ThoughtProcessing
	case contains(cs.ForgottenThoughts, name):
		return ThoughtForgotten
	case contains(cs.GainedThoughts, name):
		return ThoughtGained
	default:
		return ThoughtNotAcquired
	}
}

func projectTasks(second *SecondFile, cat *catalogs.Catalogs) []TaskDisplay {
	jt := &second.AcquiredJournalTasks
	out := make([]TaskDisplay, 0, len(jt.TaskAcquisitions))
	for name, at := range jt.TaskAcquisitions {
		subs := []string{}
		for sub := range jt.SubtaskAcquisitions[name] {
			subs = append(subs, sub)
		}
		sort.Strings(subs)
		for i, sub := range subs {
			subs[i] = cat.TaskDescription(sub)
		}
		out = append(out, TaskDisplay{
			TaskName:     name,
			Description:  cat.TaskDescription(name),
			AcquiredTime: fmt.Sprintf("Day %d, %02d:%02d", at.DayCounter, at.Hours(), at.Minutes()),
			IsResolved:   resolved(jt.TaskResolutions[name]),
			IsNew:        jt.TaskNewStates[name],
			Subtasks:     subs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskName < out[j].TaskName })
	return out
}

// resolved reports whether a resolution record is a non-empty object.
func resolved(raw json.RawMessage) bool {
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return false
	}
	n := 0
	r.ForEach(func(_, _ gjson.Result) bool {
		n++
		return false
	})
	return n > 0
}

func projectHud(h HudState) HudStateDisplay {
	return HudStateDisplay{
		PortraitObscured:          h.TequilaPortraitObscured,
		PortraitShaved:            h.TequilaPortraitShaved,
		PortraitExpressionStopped: h.TequilaPortraitExpressionStopped,
		PortraitFascist:           h.TequilaPortraitFascist,
		CharsheetNotification:     h.CharsheetNotification,
		InventoryNotification:     h.InventoryNotification,
		JournalNotification:       h.JournalNotification,
		ThcNotification:           h.ThcNotification,
		InvClothesNotification:    h.InvClothesNotification,
		InvPawnablesNotification:  h.InvPawnablesNotification,
		InvReadingNotification:    h.InvReadingNotification,
		InvToolsNotification:      h.InvToolsNotification,
	}
}

func checkDisplay(key string, c WhiteCheck, cat *catalogs.Catalogs) WhiteCheckDisplay {
	return WhiteCheckDisplay{
		Key:               key,
		FlagName:          c.FlagName,
		SkillType:         c.SkillType,
		SkillDisplayName:  cat.SkillDisplayNameByType(c.SkillType),
		Difficulty:        c.Difficulty,
		LastSkillValue:    c.LastSkillValue,
		LastTargetValue:   c.LastTargetValue,
		CheckPrecondition: c.CheckPrecondition,
	}
}

func projectFailedChecks(second *SecondFile, cat *catalogs.Catalogs) []WhiteCheckDisplay {
	out := []WhiteCheckDisplay{}
	for key, raw := range second.FailedWhiteChecksHolder.WhiteCheckCache {
		var c WhiteCheck
		if json.Unmarshal(raw, &c) != nil {
			continue
		}
		out = append(out, checkDisplay(key, c, cat))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func projectSeenChecks(second *SecondFile, cat *catalogs.Catalogs) []WhiteCheckDisplay {
	out := []WhiteCheckDisplay{}
	for key, c := range second.FailedWhiteChecksHolder.SeenWhiteCheckCache {
		d := checkDisplay(key, c, cat)
		d.IsSeenOnly = c.IsOnlySeen
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func projectContainers(second *SecondFile) []ContainerDisplay {
	out := []ContainerDisplay{}
	for id, items := range second.ContainerSourceState.ItemRegistry {
		var total int64
		for _, it := range items {
			total += it.CalculatedValue
		}
		out = append(out, ContainerDisplay{
			ContainerID: id,
			ItemCount:   len(items),
			TotalValue:  total,
			Items:       append([]ContainerItem{}, items...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContainerID < out[j].ContainerID })
	return out
}
