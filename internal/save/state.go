package save

// Thought states as shown to and accepted from a UI.
const (
	ThoughtNotAcquired  = "NotAcquired"
	ThoughtGained       = "Gained"
	ThoughtProcessing   = "Processing"
	ThoughtInternalized = "Internalized"
	ThoughtForgotten    = "Forgotten"
)

// FullState is everything a UI shows for one loaded save.
type FullState struct {
	FolderPath string `json:"folder_path"`
	BaseName   string `json:"base_name"`
	Kind       string `json:"kind"`

	XpAmount    int64 `json:"xp_amount"`
	Level       int64 `json:"level"`
	SkillPoints int64 `json:"skill_points"`
	Money       int64 `json:"money"`
	Health      int64 `json:"health"`
	Morale      int64 `json:"morale"`
	Day         int64 `json:"day"`
	Hours       int64 `json:"hours"`
	Minutes     int64 `json:"minutes"`

	Abilities []AbilityDisplay `json:"abilities"`
	Skills    []SkillDisplay   `json:"skills"`

	OwnedItems []InventoryItemDisplay `json:"owned_items"`
	Bullets    int64                  `json:"bullets"`

	Thoughts []ThoughtDisplay `json:"thoughts"`
	Tasks    []TaskDisplay    `json:"tasks"`

	AreaID        string          `json:"area_id"`
	PartyState    PartyState      `json:"party_state"`
	HudState      HudStateDisplay `json:"hud_state"`
	GameMode      string          `json:"game_mode"`
	LocationFlags LocationFlags   `json:"location_flags"`

	WeatherPreset    int64             `json:"weather_preset"`
	Reputation       ReputationDisplay `json:"reputation"`
	LuaVariableCount int               `json:"lua_variable_count"`

	FailedChecks []WhiteCheckDisplay `json:"failed_checks"`
	SeenChecks   []WhiteCheckDisplay `json:"seen_checks"`

	Containers []ContainerDisplay `json:"containers"`

	DoorStates map[string]bool  `json:"door_states"`
	AreaStates map[string]int64 `json:"area_states"`
	ShownOrbs  map[string]int64 `json:"shown_orbs"`
}

type AbilityDisplay struct {
	SaveKey      string `json:"save_key"`
	DisplayName  string `json:"display_name"`
	TypeCode     string `json:"type_code"`
	Value        int64  `json:"value"`
	MaximumValue int64  `json:"maximum_value"`
	IsSignature  bool   `json:"is_signature"`
}

type SkillDisplay struct {
	SaveKey           string `json:"save_key"`
	DisplayName       string `json:"display_name"`
	TypeCode          string `json:"type_code"`
	AbilityType       string `json:"ability_type"`
	Description       string `json:"description"`
	Value             int64  `json:"value"`
	MaximumValue      int64  `json:"maximum_value"`
	CalculatedAbility int64  `json:"calculated_ability"`
	RankValue         int64  `json:"rank_value"`
	HasAdvancement    bool   `json:"has_advancement"`
	IsSignature       bool   `json:"is_signature"`
	ModifierCount     int    `json:"modifier_count"`
}

type InventoryItemDisplay struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Description   string `json:"description"`
	Bonus         string `json:"bonus"`
	IsOwned       bool   `json:"is_owned"`
	IsEquipped    bool   `json:"is_equipped"`
	EquipSlot     string `json:"equip_slot"`
	IsQuestItem   bool   `json:"is_quest_item"`
	IsCursed      bool   `json:"is_cursed"`
	IsSubstance   bool   `json:"is_substance"`
	SubstanceUses int64  `json:"substance_uses"`
}

type ThoughtDisplay struct {
	Name                  string  `json:"name"`
	DisplayName           string  `json:"display_name"`
	Description           string  `json:"description"`
	BonusWhileProcessing  string  `json:"bonus_while_processing"`
	BonusWhenCompleted    string  `json:"bonus_when_completed"`
	CompletionDescription string  `json:"completion_description"`
	ThoughtType           string  `json:"thought_type"`
	TimeToInternalize     float64 `json:"time_to_internalize"`
	Requirement           string  `json:"requirement"`
	IsCursed              bool    `json:"is_cursed"`
	State                 string  `json:"state"`
	TimeLeft              float64 `json:"time_left"`
}

type TaskDisplay struct {
	TaskName     string   `json:"task_name"`
	Description  string   `json:"description"`
	AcquiredTime string   `json:"acquired_time"`
	IsResolved   bool     `json:"is_resolved"`
	IsNew        bool     `json:"is_new"`
	Subtasks     []string `json:"subtasks"`
}

type HudStateDisplay struct {
	PortraitObscured          bool `json:"portrait_obscured"`
	PortraitShaved            bool `json:"portrait_shaved"`
	PortraitExpressionStopped bool `json:"portrait_expression_stopped"`
	PortraitFascist           bool `json:"portrait_fascist"`
	CharsheetNotification     bool `json:"charsheet_notification"`
	InventoryNotification     bool `json:"inventory_notification"`
	JournalNotification       bool `json:"journal_notification"`
	ThcNotification           bool `json:"thc_notification"`
	InvClothesNotification    bool `json:"inv_clothes_notification"`
	InvPawnablesNotification  bool `json:"inv_pawnables_notification"`
	InvReadingNotification    bool `json:"inv_reading_notification"`
	InvToolsNotification      bool `json:"inv_tools_notification"`
}

type LocationFlags struct {
	WasChurchVisited                       bool `json:"was_church_visited"`
	WasFishingVillageVisited               bool `json:"was_fishing_village_visited"`
	WasQuicktravelChurchDiscovered         bool `json:"was_quicktravel_church_discovered"`
	WasQuicktravelFishingVillageDiscovered bool `json:"was_quicktravel_fishing_village_discovered"`
}

// ReputationDisplay mirrors the reputation.* leaves of the database.
// Nationalist is stored as reputation.revacholian_nationhood.
type ReputationDisplay struct {
	Communist    float64 `json:"communist"`
	Ultraliberal float64 `json:"ultraliberal"`
	Moralist     float64 `json:"moralist"`
	Nationalist  float64 `json:"nationalist"`
	Kim          float64 `json:"kim"`
}

type WhiteCheckDisplay struct {
	Key               string `json:"key"`
	FlagName          string `json:"flag_name"`
	SkillType         string `json:"skill_type"`
	SkillDisplayName  string `json:"skill_display_name"`
	Difficulty        int64  `json:"difficulty"`
	LastSkillValue    int64  `json:"last_skill_value"`
	LastTargetValue   int64  `json:"last_target_value"`
	CheckPrecondition string `json:"check_precondition"`
	IsSeenOnly        bool   `json:"is_seen_only"`
}

type ContainerDisplay struct {
	ContainerID string          `json:"container_id"`
	ItemCount   int             `json:"item_count"`
	TotalValue  int64           `json:"total_value"`
	Items       []ContainerItem `json:"items"`
}

// Update carries every editable field. Fields not listed here cannot be
// changed through the editor. LuaEdits maps flat database keys to new text,
// converted to the type of the existing leaf.
type Update struct {
	FolderPath string `json:"folder_path"`
	BaseName   string `json:"base_name"`

	XpAmount    int64 `json:"xp_amount"`
	Level       int64 `json:"level"`
	SkillPoints int64 `json:"skill_points"`
	Money       int64 `json:"money"`
	Health      int64 `json:"health"`
	Morale      int64 `json:"morale"`
	Day         int64 `json:"day"`
	Hours       int64 `json:"hours"`
	Minutes     int64 `json:"minutes"`

	Abilities  []AbilityDisplay       `json:"abilities"`
	Skills     []SkillDisplay         `json:"skills"`
	OwnedItems []InventoryItemDisplay `json:"owned_items"`
	Bullets    int64                  `json:"bullets"`
	Thoughts   []ThoughtDisplay       `json:"thoughts"`

	AreaID        string          `json:"area_id"`
	PartyState    PartyState      `json:"party_state"`
	HudState      HudStateDisplay `json:"hud_state"`
	GameMode      string          `json:"game_mode"`
	LocationFlags LocationFlags   `json:"location_flags"`

	WeatherPreset int64             `json:"weather_preset"`
	Reputation    ReputationDisplay `json:"reputation"`
	LuaEdits      map[string]string `json:"lua_edits"`

	ResetCheckKeys     []string `json:"reset_check_keys"`
	ResetSeenCheckKeys []string `json:"reset_seen_check_keys"`

	DoorStates map[string]bool  `json:"door_states"`
	AreaStates map[string]int64 `json:"area_states"`
	ShownOrbs  map[string]int64 `json:"shown_orbs"`
}

// Update returns an Update that leaves the save as it is. Callers change the
// fields they want before saving.
func (f FullState) Update() Update {
	return Update{
		FolderPath:    f.FolderPath,
		BaseName:      f.BaseName,
		XpAmount:      f.XpAmount,
		Level:         f.Level,
		SkillPoints:   f.SkillPoints,
		Money:         f.Money,
		Health:        f.Health,
		Morale:        f.Morale,
		Day:           f.Day,
		Hours:         f.Hours,
		Minutes:       f.Minutes,
		Abilities:     append([]AbilityDisplay(nil), f.Abilities...),
		Skills:        append([]SkillDisplay(nil), f.Skills...),
		OwnedItems:    append([]InventoryItemDisplay(nil), f.OwnedItems...),
		Bullets:       f.Bullets,
		Thoughts:      append([]ThoughtDisplay(nil), f.Thoughts...),
		AreaID:        f.AreaID,
		PartyState:    f.PartyState,
		HudState:      f.HudState,
		GameMode:      f.GameMode,
		LocationFlags: f.LocationFlags,
		WeatherPreset: f.WeatherPreset,
		Reputation:    f.Reputation,
		LuaEdits:      map[string]string{},
		DoorStates:    copyMap(f.DoorStates),
		AreaStates:    copyMap(f.AreaStates),
		ShownOrbs:     copyMap(f.ShownOrbs),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SetThought changes the state of the named thought, adding it if missing.
func (u *Update) SetThought(name, state string) {
	for i := range u.Thoughts {
		if u.Thoughts[i].Name == name {
			u.Thoughts[i].State = state
			return
		}
	}
	u.Thoughts = append(u.Thoughts, ThoughtDisplay{Name: name, DisplayName: name, State: state})
}
