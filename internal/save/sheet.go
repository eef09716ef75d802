package save

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"ntwtf.ai/internal/catalogs"
)

// CharacterSheet is the classified view of the second payload's character
// sheet. Members that are neither a known ability/skill key nor one of the
// named collections are left out of the view; they stay in the document.
type CharacterSheet struct {
	Abilities map[string]SkillEntry
	Skills    map[string]SkillEntry

	GainedItems       []string
	EquippedItems     []string
	GainedThoughts    []string
	CookingThoughts   []string
	FixedThoughts     []string
	ForgottenThoughts []string
	SelectedPanelName string

	SkillModifierCauseMap   map[string][]ModifierEntry
	AbilityModifierCauseMap map[string][]ModifierEntry
}

type SkillEntry struct {
	SkillType                        string          `json:"skillType"`
	AbilityType                      string          `json:"abilityType"`
	Dirty                            bool            `json:"dirty"`
	Value                            int64           `json:"value"`
	ValueWithoutPerceptionsSubSkills int64           `json:"valueWithoutPerceptionsSubSkills"`
	DamageValue                      int64           `json:"damageValue"`
	MaximumValue                     int64           `json:"maximumValue"`
	CalculatedAbility                int64           `json:"calculatedAbility"`
	RankValue                        int64           `json:"rankValue"`
	HasAdvancement                   bool            `json:"hasAdvancement"`
	IsSignature                      bool            `json:"isSignature"`
	Modifiers                        json.RawMessage `json:"modifiers"`
}

type ModifierEntry struct {
	Type          string        `json:"type"`
	Amount        int64         `json:"amount"`
	Explanation   string        `json:"explanation"`
	SkillType     string        `json:"skillType"`
	ModifierCause ModifierCause `json:"modifierCause"`
}

type ModifierCause struct {
	ModifierKey       string `json:"ModifierKey"`
	ModifierCauseType string `json:"ModifierCauseType"`
}

// ParseCharacterSheet classifies every member of raw. It has no side effects
// and never fails: members that do not decode are skipped.
func ParseCharacterSheet(raw gjson.Result, km catalogs.KeyMap) CharacterSheet {
	cs := CharacterSheet{
		Abilities: map[string]SkillEntry{},
		Skills:    map[string]SkillEntry{},
	}
	if !raw.IsObject() {
		return cs
	}
	raw.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if _, ok := km.Ability(key); ok {
			var e SkillEntry
			if json.Unmarshal([]byte(v.Raw), &e) == nil {
				cs.Abilities[key] = e
			}
			return true
		}
		if _, ok := km.Skill(key); ok {
			var e SkillEntry
			if json.Unmarshal([]byte(v.Raw), &e) == nil {
				cs.Skills[key] = e
			}
			return true
		}
		switch key {
		case "gainedItems":
			cs.GainedItems = stringList(v)
		case "equippedItems":
			cs.EquippedItems = stringList(v)
		case "gainedThoughts":
			cs.GainedThoughts = stringList(v)
		case "cookingThoughts":
			cs.CookingThoughts = stringList(v)
		case "fixedThoughts":
			cs.FixedThoughts = stringList(v)
		case "forgottenThoughts":
			cs.ForgottenThoughts = stringList(v)
		case "selectedPanelName":
			if v.Type == gjson.String {
				cs.SelectedPanelName = v.Str
			}
		case "SkillModifierCauseMap":
			cs.SkillModifierCauseMap = modifierMap(v)
		case "AbilityModifierCauseMap":
			cs.AbilityModifierCauseMap = modifierMap(v)
		}
		return true
	})
	return cs
}

// stringList decodes an array of strings, or nothing if any element is not a
// string.
func stringList(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	ok := true
	v.ForEach(func(_, e gjson.Result) bool {
		if e.Type != gjson.String {
			ok = false
			return false
		}
		out = append(out, e.Str)
		return true
	})
	if !ok {
		return nil
	}
	return out
}

func modifierMap(v gjson.Result) map[string][]ModifierEntry {
	var out map[string][]ModifierEntry
	if json.Unmarshal([]byte(v.Raw), &out) != nil {
		return nil
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
