package save

import "encoding/json"

// The typed views below decode the two JSON payloads for display. Member
// names are matched case-insensitively by encoding/json, which absorbs the
// camelCase/PascalCase drift between game versions. The views are read-only:
// writes go through the retained documents.

type FirstFile struct {
	AreaID                    string            `json:"areaId"`
	PartyState                PartyState        `json:"partyState"`
	FowUnrevealersStatusCache map[string]string `json:"fowUnrevealersStatusCache"`
}

type PartyState struct {
	IsKimInParty                      bool  `json:"isKimInParty"`
	IsKimLeftOutside                  bool  `json:"isKimLeftOutside"`
	IsKimAbandoned                    bool  `json:"isKimAbandoned"`
	IsKimAwayUpToMorning              bool  `json:"isKimAwayUpToMorning"`
	IsKimSleepingInHisRoom            bool  `json:"isKimSleepingInHisRoom"`
	IsKimSayingGoodMorning            bool  `json:"isKimSayingGoodMorning"`
	IsCunoInParty                     bool  `json:"isCunoInParty"`
	IsCunoLeftOutside                 bool  `json:"isCunoLeftOutside"`
	IsCunoAbandoned                   bool  `json:"isCunoAbandoned"`
	HasHangover                       bool  `json:"hasHangover"`
	SleepLocation                     int64 `json:"sleepLocation"`
	WaitLocation                      int64 `json:"waitLocation"`
	CunoWaitLocation                  int64 `json:"cunoWaitLocation"`
	TimeSinceKimWentSleepingInHisRoom int64 `json:"timeSinceKimWentSleepingInHisRoom"`
	KimLastArrivalLocation            int64 `json:"kimLastArrivalLocation"`
	CunoLastArrivalLocation           int64 `json:"cunoLastArrivalLocation"`
}

type SecondFile struct {
	VariousItemsHolder      VariousItemsHolder      `json:"variousItemsHolder"`
	SunshineClockTimeHolder SunshineClockTimeHolder `json:"sunshineClockTimeHolder"`
	PlayerCharacter         PlayerCharacter         `json:"playerCharacter"`
	HudState                HudState                `json:"hudState"`
	AcquiredJournalTasks    AcquiredJournalTasks    `json:"aquiredJournalTasks"`
	FailedWhiteChecksHolder FailedWhiteChecksHolder `json:"failedWhiteChecksHolder"`
	WeatherState            WeatherState            `json:"weatherState"`
	InventoryState          InventoryState          `json:"inventoryState"`
	ThoughtCabinetState     ThoughtCabinetState     `json:"thoughtCabinetState"`
	ContainerSourceState    ContainerSourceState    `json:"containerSourceState"`
	GameModeState           GameModeState           `json:"gameModeState"`
	// CharacterSheet is classified separately, see ParseCharacterSheet.
	CharacterSheet json.RawMessage `json:"characterSheet"`
}

type VariousItemsHolder struct {
	Obsessions  []string        `json:"Obsessions"`
	DoorStates  map[string]bool `json:"DoorStates"`
	BuildNumber string          `json:"BuildNumber"`
}

type SunshineClockTimeHolder struct {
	Time         GameTimestamp   `json:"time"`
	TimeOverride json.RawMessage `json:"timeOverride"`
}

type GameTimestamp struct {
	DayCounter     int64 `json:"dayCounter"`
	RealDayCounter int64 `json:"realDayCounter"`
	DayMinutes     int64 `json:"dayMinutes"`
	Seconds        int64 `json:"seconds"`
}

func (t GameTimestamp) Hours() int64   { return t.DayMinutes / 60 }
func (t GameTimestamp) Minutes() int64 { return t.DayMinutes % 60 }

type PlayerCharacter struct {
	XpAmount         int64        `json:"xpAmount"`
	Level            int64        `json:"level"`
	SkillPoints      int64        `json:"skillPoints"`
	Money            int64        `json:"money"`
	StockValue       int64        `json:"stockValue"`
	NewPointsToSpend bool         `json:"newPointsToSpend"`
	HealingPools     HealingPools `json:"healingPools"`
}

type HealingPools struct {
	Endurance int64 `json:"ENDURANCE"`
	Volition  int64 `json:"VOLITION"`
}

type HudState struct {
	TequilaPortraitObscured          bool `json:"tequilaPortraitObscured"`
	TequilaPortraitShaved            bool `json:"tequilaPortraitShaved"`
	TequilaPortraitExpressionStopped bool `json:"tequilaPortraitExpressionStopped"`
	TequilaPortraitFascist           bool `json:"tequilaPortraitFascist"`
	CharsheetNotification            bool `json:"charsheetNotification"`
	InventoryNotification            bool `json:"inventoryNotification"`
	JournalNotification              bool `json:"journalNotification"`
	ThcNotification                  bool `json:"thcNotification"`
	InvClothesNotification           bool `json:"invClothesNotification"`
	InvPawnablesNotification         bool `json:"invPawnablesNotification"`
	InvReadingNotification           bool `json:"invReadingNotification"`
	InvToolsNotification             bool `json:"invToolsNotification"`
}

type AcquiredJournalTasks struct {
	TaskAcquisitions                       map[string]GameTimestamp            `json:"TaskAquisitions"`
	TaskResolutions                        map[string]json.RawMessage          `json:"TaskResolutions"`
	SubtaskAcquisitions                    map[string]map[string]GameTimestamp `json:"SubtaskAquisitions"`
	TaskNewStates                          map[string]bool                     `json:"TaskNewStates"`
	LastActiveTask                         string                              `json:"LastActiveTask"`
	LastDoneTask                           string                              `json:"LastDoneTask"`
	TasksTabNotifyIcon                     bool                                `json:"TasksTabNotifyIcon"`
	WasChurchVisited                       bool                                `json:"wasChurchVisited"`
	WasFishingVillageVisited               bool                                `json:"wasFishingVillageVisited"`
	WasQuicktravelChurchDiscovered         bool                                `json:"wasQuicktravelChurchDiscovered"`
	WasQuicktravelFishingVillageDiscovered bool                                `json:"wasQuicktravelFishingVillageDiscovered"`
}

// FailedWhiteChecksHolder keeps the failed-check cache raw: entries that do
// not decode as a WhiteCheck are skipped in the display, not rejected.
type FailedWhiteChecksHolder struct {
	WhiteCheckCache     map[string]json.RawMessage `json:"WhiteCheckCache"`
	SeenWhiteCheckCache map[string]WhiteCheck      `json:"SeenWhiteCheckCache"`
}

type WhiteCheck struct {
	FlagName            string `json:"FlagName"`
	SkillType           string `json:"SkillType"`
	LastSkillValue      int64  `json:"LastSkillValue"`
	LastTargetValue     int64  `json:"LastTargetValue"`
	Difficulty          int64  `json:"difficulty"`
	CheckPrecondition   string `json:"checkPrecondition"`
	IsOnlySeen          bool   `json:"isOnlySeen"`
	CheckTargetArticyID string `json:"checkTargetArticyId"`
}

type WeatherState struct {
	WeatherPreset int64 `json:"weatherPreset"`
}

type InventoryState struct {
	ItemListState      []ItemState        `json:"itemListState"`
	InventoryViewState InventoryViewState `json:"inventoryViewState"`
	WearingBodysuit    bool               `json:"wearingBodysuit"`
}

type ItemState struct {
	ItemName          string `json:"itemName"`
	IsFresh           bool   `json:"isFresh"`
	SubstanceUses     int64  `json:"substanceUses"`
	SubstanceTimeLeft int64  `json:"substanceTimeLeft"`
}

type InventoryViewState struct {
	Equipment        map[string]string `json:"equipment"`
	Bullets          int64             `json:"bullets"`
	Keys             []string          `json:"keys"`
	LastSelectedItem string            `json:"lastSelectedItem"`
}

type ThoughtCabinetState struct {
	ThoughtListState        []ThoughtState          `json:"thoughtListState"`
	ThoughtCabinetViewState ThoughtCabinetViewState `json:"thoughtCabinetViewState"`
}

type ThoughtState struct {
	Name     string  `json:"name"`
	IsFresh  bool    `json:"isFresh"`
	State    string  `json:"state"`
	TimeLeft float64 `json:"timeLeft"`
}

type ThoughtCabinetViewState struct {
	SlotStates          []SlotState `json:"slotStates"`
	SelectedProjectName string      `json:"selectedProjectName"`
}

type SlotState struct {
	Item1 string  `json:"Item1"`
	Item2 *string `json:"Item2"`
}

type ContainerSourceState struct {
	ItemRegistry map[string][]ContainerItem `json:"itemRegistry"`
}

type ContainerItem struct {
	Name            string  `json:"name"`
	Probability     float64 `json:"probability"`
	Value           int64   `json:"value"`
	Deviation       int64   `json:"deviation"`
	CalculatedValue int64   `json:"calculatedValue"`
	BonusLoot       bool    `json:"bonusLoot"`
}

type GameModeState struct {
	GameMode    string `json:"gameMode"`
	WasSwitched bool   `json:"wasSwitched"`
}
