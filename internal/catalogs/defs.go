package catalogs

import (
	"encoding/json"
	"strings"
)

// ItemDef is one entry of items_inventory.json. Exports from different tool
// versions spell a few fields differently; UnmarshalJSON accepts both.
type ItemDef struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	DisplayName     string  `json:"display_name"`
	Description     string  `json:"description"`
	ItemType        float64 `json:"item_type"`
	ItemGroup       float64 `json:"item_group"`
	ItemValue       float64 `json:"item_value"`
	Bonus           string  `json:"bonus"`
	MediumTextValue string  `json:"medium_text_value"`
	IsQuestItem     bool    `json:"is_quest_item"`
	Autoequip       string  `json:"autoequip"`
	Cursed          string  `json:"cursed"`
	Substance       string  `json:"is_substance"`
	Consumable      string  `json:"is_consumable"`
	MultipleAllowed string  `json:"multiple_allowed"`
}

func (d *ItemDef) UnmarshalJSON(b []byte) error {
	type plain ItemDef
	var aux struct {
		plain
		MediumTextValueAlt string `json:"MediumTextValue"`
		SubstanceAlt       string `json:"isSubstance"`
		ConsumableAlt      string `json:"isConsumable"`
		MultipleAllowedAlt string `json:"multipleAllowed"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*d = ItemDef(aux.plain)
	d.MediumTextValue = first(d.MediumTextValue, aux.MediumTextValueAlt)
	d.Substance = first(d.Substance, aux.SubstanceAlt)
	d.Consumable = first(d.Consumable, aux.ConsumableAlt)
	d.MultipleAllowed = first(d.MultipleAllowed, aux.MultipleAllowedAlt)
	return nil
}

func first(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (d ItemDef) IsCursed() bool     { return strings.EqualFold(d.Cursed, "true") }
func (d ItemDef) IsSubstance() bool  { return strings.EqualFold(d.Substance, "true") }
func (d ItemDef) IsConsumable() bool { return strings.EqualFold(d.Consumable, "true") }

type SkillDef struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	Description     string `json:"description"`
	LongDescription string `json:"long_description"`
	AttributeGroup  string `json:"attribute_group"`
	IsAttribute     bool   `json:"is_attribute"`
}

type ThoughtDef struct {
	ID                    int64   `json:"id"`
	Name                  string  `json:"name"`
	DisplayName           string  `json:"display_name"`
	Description           string  `json:"description"`
	ThoughtType           string  `json:"thought_type"`
	BonusWhileProcessing  string  `json:"bonus_while_processing"`
	BonusWhenCompleted    string  `json:"bonus_when_completed"`
	CompletionDescription string  `json:"completion_description"`
	TimeToInternalize     float64 `json:"time_to_internalize"`
	Requirement           string  `json:"requirement"`
	Cursed                string  `json:"is_cursed"`
}

func (d ThoughtDef) IsCursed() bool { return strings.EqualFold(d.Cursed, "true") }

type VariableDef struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	InitialValue json.RawMessage `json:"initial_value,omitempty"`
	Description  string          `json:"description"`
}

// CatalogItem is the listing shape offered to a UI picking items to add.
type CatalogItem struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Bonus       string `json:"bonus"`
	IsQuestItem bool   `json:"is_quest_item"`
	IsCursed    bool   `json:"is_cursed"`
	IsSubstance bool   `json:"is_substance"`
}
