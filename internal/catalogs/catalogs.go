// Package catalogs loads the static game definitions the editor uses to
// classify and label save data: the character sheet key map plus item,
// thought and variable descriptions.
package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed defaults/*.json
var defaultFS embed.FS

const (
	keyMapFile    = "skill_key_map.json"
	skillsFile    = "actors_skills.json"
	itemsFile     = "items_inventory.json"
	thoughtsFile  = "items_thoughts.json"
	tasksFile     = "variables_tasks.json"
	variablesFile = "variables_all.json"
)

type Catalogs struct {
	KeyMap    KeyMap
	Skills    map[string]SkillDef
	Items     map[string]ItemDef
	Thoughts  map[string]ThoughtDef
	Tasks     map[string]VariableDef
	Variables map[string]VariableDef

	// Digests maps each file name to the sha256 of the bytes loaded for it.
	Digests map[string]string
}

type KeyMap struct {
	Abilities           []AbilityMapping `json:"abilities"`
	Skills              []SkillMapping   `json:"skills"`
	EquipmentSlots      []string         `json:"equipment_slots"`
	InventoryCategories []string         `json:"inventory_categories"`
	ModifierCauseTypes  []string         `json:"modifier_cause_types"`
	ThoughtStates       []string         `json:"thought_states"`
	HealingPoolTypes    []string         `json:"healing_pool_types"`
}

type AbilityMapping struct {
	SaveKey     string   `json:"save_key"`
	SkillType   string   `json:"skill_type"`
	DisplayName string   `json:"display_name"`
	Skills      []string `json:"skills,omitempty"`
}

type SkillMapping struct {
	SaveKey     string `json:"save_key"`
	SkillType   string `json:"skill_type"`
	DisplayName string `json:"display_name"`
	Ability     string `json:"ability"`
}

func (k KeyMap) Ability(saveKey string) (AbilityMapping, bool) {
	for _, a := range k.Abilities {
		if a.SaveKey == saveKey {
			return a, true
		}
	}
	return AbilityMapping{}, false
}

func (k KeyMap) Skill(saveKey string) (SkillMapping, bool) {
	for _, s := range k.Skills {
		if s.SaveKey == saveKey {
			return s, true
		}
	}
	return SkillMapping{}, false
}

func (k KeyMap) SkillByType(skillType string) (SkillMapping, bool) {
	for _, s := range k.Skills {
		if s.SkillType == skillType {
			return s, true
		}
	}
	return SkillMapping{}, false
}

// Load reads every catalog file from dir. Files missing from dir, or all of
// them when dir is empty, come from the embedded defaults.
func Load(dir string) (*Catalogs, error) {
	c := &Catalogs{Digests: map[string]string{}}

	if err := c.load(dir, keyMapFile, &c.KeyMap); err != nil {
		return nil, err
	}
	var skills []SkillDef
	if err := c.load(dir, skillsFile, &skills); err != nil {
		return nil, err
	}
	var items []ItemDef
	if err := c.load(dir, itemsFile, &items); err != nil {
		return nil, err
	}
	var thoughts []ThoughtDef
	if err := c.load(dir, thoughtsFile, &thoughts); err != nil {
		return nil, err
	}
	var tasks, vars []VariableDef
	if err := c.load(dir, tasksFile, &tasks); err != nil {
		return nil, err
	}
	if err := c.load(dir, variablesFile, &vars); err != nil {
		return nil, err
	}

	c.Skills = make(map[string]SkillDef, len(skills))
	for _, sk := range skills {
		c.Skills[sk.Name] = sk
	}
	c.Items = make(map[string]ItemDef, len(items))
	for _, it := range items {
		c.Items[it.Name] = it
	}
	c.Thoughts = make(map[string]ThoughtDef, len(thoughts))
	for _, th := range thoughts {
		c.Thoughts[th.Name] = th
	}
	c.Tasks = byName(tasks)
	c.Variables = byName(vars)
	return c, nil
}

// Default returns the embedded catalogs.
func Default() *Catalogs {
	c, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("catalogs: embedded defaults: %v", err))
	}
	return c
}

func (c *Catalogs) load(dir, name string, out any) error {
	raw, err := readCatalogFile(dir, name)
	if err != nil {
		return err
	}
	c.Digests[name] = sha256Hex(raw)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func readCatalogFile(dir, name string) ([]byte, error) {
	if strings.TrimSpace(dir) != "" {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return defaultFS.ReadFile("defaults/" + name)
}

func byName(vs []VariableDef) map[string]VariableDef {
	out := make(map[string]VariableDef, len(vs))
	for _, v := range vs {
		out[v.Name] = v
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SkillDisplayNameByType falls back to the type code itself.
func (c *Catalogs) SkillDisplayNameByType(skillType string) string {
	if s, ok := c.KeyMap.SkillByType(skillType); ok {
		return s.DisplayName
	}
	return skillType
}

// TaskDescription falls back to the task name itself.
func (c *Catalogs) TaskDescription(name string) string {
	if t, ok := c.Tasks[name]; ok {
		return t.Description
	}
	return name
}

func (c *Catalogs) VariableDescription(name string) string {
	return c.Variables[name].Description
}

// SkillDescription looks the skill up by display name, case-insensitively.
func (c *Catalogs) SkillDescription(displayName string) string {
	for _, s := range c.Skills {
		if strings.EqualFold(s.DisplayName, displayName) {
			return s.Description
		}
	}
	return ""
}

// ItemList is every catalog item sorted by display name.
func (c *Catalogs) ItemList() []CatalogItem {
	out := make([]CatalogItem, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, CatalogItem{
			Name:        it.Name,
			DisplayName: it.DisplayName,
			Description: it.Description,
			Bonus:       it.MediumTextValue,
			IsQuestItem: it.IsQuestItem,
			IsCursed:    it.IsCursed(),
			IsSubstance: it.IsSubstance(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ThoughtNames is every catalog thought name, sorted.
func (c *Catalogs) ThoughtNames() []string {
	out := make([]string, 0, len(c.Thoughts))
	for name := range c.Thoughts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
