// Package states reads and writes the `.states.lua` payload: two flat
// key -> integer tables, one line per entry.
//
//	AreaState["<key>"]={LocationState=<int>};
//	ShownOrbs["<key>"]={OrbSeen=<int>};
package states

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	areaRe = regexp.MustCompile(`AreaState\["(.+?)"\]\s*=\s*\{LocationState=(-?\d+)\}`)
	orbRe  = regexp.MustCompile(`ShownOrbs\["(.+?)"\]\s*=\s*\{OrbSeen=(-?\d+)\}`)
)

// Table holds the decoded contents of a states payload.
type Table struct {
	AreaStates map[string]int64 `json:"area_states"`
	ShownOrbs  map[string]int64 `json:"shown_orbs"`
}

func New() Table {
	return Table{AreaStates: map[string]int64{}, ShownOrbs: map[string]int64{}}
}

// Parse collects every non-overlapping match of both line grammars anywhere in
// text. Unrelated text is ignored and a repeated key keeps its last value.
// Integers that overflow int64 decode as 0.
func Parse(text string) Table {
	t := New()
	scan(areaRe, text, t.AreaStates)
	scan(orbRe, text, t.ShownOrbs)
	return t
}

func scan(re *regexp.Regexp, text string, into map[string]int64) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			n = 0
		}
		into[m[1]] = n
	}
}

// Serialize writes area lines then orb lines, each block sorted by key.
func Serialize(t Table) string {
	var sb strings.Builder
	for _, k := range sortedKeys(t.AreaStates) {
		sb.WriteString(`AreaState["`)
		sb.WriteString(k)
		sb.WriteString(`"]={LocationState=`)
		sb.WriteString(strconv.FormatInt(t.AreaStates[k], 10))
		sb.WriteString("};\n")
	}
	for _, k := range sortedKeys(t.ShownOrbs) {
		sb.WriteString(`ShownOrbs["`)
		sb.WriteString(k)
		sb.WriteString(`"]={OrbSeen=`)
		sb.WriteString(strconv.FormatInt(t.ShownOrbs[k], 10))
		sb.WriteString("};\n")
	}
	return sb.String()
}

// Len is the total entry count of both tables.
func (t Table) Len() int { return len(t.AreaStates) + len(t.ShownOrbs) }

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := New()
	for k, v := range t.AreaStates {
		out.AreaStates[k] = v
	}
	for k, v := range t.ShownOrbs {
		out.ShownOrbs[k] = v
	}
	return out
}

// ValidKey reports whether k survives a Serialize/Parse round trip.
func ValidKey(k string) bool {
	return k != "" && !strings.ContainsAny(k, "\n") && !strings.Contains(k, `"]`)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
