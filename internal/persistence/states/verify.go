package states

import (
	"fmt"
	"sort"

	"github.com/Shopify/go-lua"
)

// Evaluate runs text as Lua with AreaState and ShownOrbs predeclared as empty
// tables and reads both back. It is the reference the regex grammar in Parse
// is checked against.
func Evaluate(text string) (Table, error) {
	l := lua.NewState()
	lua.OpenLibraries(l)
	l.NewTable()
	l.SetGlobal("AreaState")
	l.NewTable()
	l.SetGlobal("ShownOrbs")

	if err := lua.DoString(l, text); err != nil {
		return Table{}, fmt.Errorf("states: lua: %w", err)
	}

	t := New()
	if err := readGlobal(l, "AreaState", "LocationState", t.AreaStates); err != nil {
		return Table{}, err
	}
	if err := readGlobal(l, "ShownOrbs", "OrbSeen", t.ShownOrbs); err != nil {
		return Table{}, err
	}
	return t, nil
}

func readGlobal(l *lua.State, name, field string, into map[string]int64) error {
	l.Global(name)
	defer l.Pop(1)
	if !l.IsTable(-1) {
		return fmt.Errorf("states: global %s is %s, not a table", name, lua.TypeNameOf(l, -1))
	}
	l.PushNil()
	for l.Next(-2) {
		// stack: table, key, value
		if l.TypeOf(-2) != lua.TypeString || !l.IsTable(-1) {
			l.Pop(1)
			continue
		}
		key, _ := l.ToString(-2)
		l.Field(-1, field)
		if n, ok := l.ToInteger(-1); ok {
			into[key] = int64(n)
		}
		l.Pop(2)
	}
	return nil
}

// Mismatch is one entry where Parse and Evaluate disagree.
type Mismatch struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	Regex *int64 `json:"regex,omitempty"`
	Lua   *int64 `json:"lua,omitempty"`
}

// Verify parses text both ways and lists the differences, sorted by table then
// key. An empty result means the grammar saw exactly what the game would.
func Verify(text string) ([]Mismatch, error) {
	evaluated, err := Evaluate(text)
	if err != nil {
		return nil, err
	}
	parsed := Parse(text)
	var out []Mismatch
	out = diff(out, "AreaState", parsed.AreaStates, evaluated.AreaStates)
	out = diff(out, "ShownOrbs", parsed.ShownOrbs, evaluated.ShownOrbs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func diff(out []Mismatch, table string, regex, evaluated map[string]int64) []Mismatch {
	for k, v := range regex {
		e, ok := evaluated[k]
		if ok && e == v {
			continue
		}
		m := Mismatch{Table: table, Key: k, Regex: ptr(v)}
		if ok {
			m.Lua = ptr(e)
		}
		out = append(out, m)
	}
	for k, e := range evaluated {
		if _, ok := regex[k]; !ok {
			out = append(out, Mismatch{Table: table, Key: k, Lua: ptr(e)})
		}
	}
	return out
}

func ptr(v int64) *int64 { return &v }
