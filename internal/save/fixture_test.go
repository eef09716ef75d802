package save

import (
	"os"
	"path/filepath"
	"testing"

	"ntwtf.ai/internal/persistence/luadb"
)

const firstFixture = `{
  "areaId": "whirling",
  "partyState": {"isKimInParty": true, "sleepLocation": 3, "futureFlag": "keep"},
  "fowUnrevealersStatusCache": {}
}`

const secondFixture = `{
  "playerCharacter": {"XpAmount": 10, "Level": 2, "SkillPoints": 1, "Money": 500, "StockValue": 3,
    "healingPools": {"ENDURANCE": 4, "VOLITION": 5}},
  "sunshineClockTimeHolder": {"time": {"dayCounter": 1, "realDayCounter": 1, "dayMinutes": 510, "seconds": 0}},
  "characterSheet": {
    "intellect": {"skillType": "INT", "value": 3, "maximumValue": 5, "isSignature": true},
    "logic": {"skillType": "LOGIC", "abilityType": "INT", "value": 3, "maximumValue": 4, "rankValue": 1},
    "gainedItems": ["jacket", "pills"],
    "equippedItems": ["jacket"],
    "gainedThoughts": ["hobocop"],
    "cookingThoughts": [],
    "fixedThoughts": [],
    "forgottenThoughts": [],
    "selectedPanelName": "skills",
    "SkillModifierCauseMap": {"LOGIC": [{"type": "CALCULATED_ABILITY", "amount": 3}, {"type": "ITEM", "amount": 1}]},
    "mysteryField": {"keep": true}
  },
  "thoughtCabinetState": {
    "thoughtListState": [{"name": "hobocop", "isFresh": true, "state": "GAINED", "timeLeft": 0}],
    "thoughtCabinetViewState": {"slotStates": [], "selectedProjectName": ""}
  },
  "inventoryState": {
    "itemListState": [{"itemName": "pills", "substanceUses": 2}],
    "inventoryViewState": {"equipment": {"jacket_slot": "jacket"}, "bullets": 2}
  },
  "aquiredJournalTasks": {
    "TaskAquisitions": {"TASK.find_gun": {"dayCounter": 1, "dayMinutes": 545}},
    "TaskResolutions": {"TASK.find_gun": {"resolved": 1}},
    "TaskNewStates": {"TASK.find_gun": true},
    "wasChurchVisited": false
  },
  "failedWhiteChecksHolder": {
    "WhiteCheckCache": {
      "chk1": {"FlagName": "f1", "SkillType": "LOGIC", "difficulty": 10},
      "chk2": {"FlagName": "f2", "SkillType": "DRAMA", "difficulty": 12}
    },
    "SeenWhiteCheckCache": {"seen1": {"FlagName": "s1", "SkillType": "LOGIC", "isOnlySeen": true}}
  },
  "containerSourceState": {"itemRegistry": {"box": [{"name": "coin", "calculatedValue": 5}, {"name": "rag", "calculatedValue": 1}]}},
  "variousItemsHolder": {"DoorStates": {"door_a": true}},
  "unknownTopLevel": [1, 2.50, "x"]
}`

const statesFixture = "AreaState[\"whirling\"]={LocationState=2};\nShownOrbs[\"orb1\"]={OrbSeen=1};\n"

func fixtureDB() *luadb.Database {
	db := luadb.NewTable()
	luadb.SetPath(db, "reputation.kim", luadb.Number(2))
	luadb.SetPath(db, "reputation.communist", luadb.Number(1))
	luadb.SetPath(db, "flags.seen_whirling", luadb.Boolean(true))
	luadb.SetPath(db, "stats.count", luadb.Number(5))
	luadb.SetPath(db, "WhiteCheckCache.chk1", luadb.Boolean(true))
	luadb.SetPath(db, "WhiteCheckCache.chk2", luadb.Boolean(true))
	return db
}

// payloads returns the four fixture payloads keyed by member name.
func payloads(t *testing.T, base string) map[string][]byte {
	t.Helper()
	db, err := luadb.EncodeDatabase(fixtureDB())
	if err != nil {
		t.Fatalf("encode db: %v", err)
	}
	return map[string][]byte{
		base + ".1st.ntwtf.json": []byte(firstFixture),
		base + ".2nd.ntwtf.json": []byte(secondFixture),
		base + ".ntwtf.lua":      db,
		base + ".states.lua":     []byte(statesFixture),
	}
}

// writeFolderSave creates <dir>/<base>.ntwtf with the fixture payloads.
func writeFolderSave(t *testing.T, dir, base string) string {
	t.Helper()
	path := filepath.Join(dir, base+".ntwtf")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range payloads(t, base) {
		if err := os.WriteFile(filepath.Join(path, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func readMember(t *testing.T, path, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(path, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return b
}
