package main

import (
	"fmt"
	"strconv"
	"strings"

	"ntwtf.ai/internal/save"
)

// applyAssignments turns `field=value` arguments into changes on u.
//
//	money=700 xp=10 level=3 skill_points=1 health=4 morale=5 bullets=2
//	day=3 time=08:30 area=whirling weather=2
//	rep.kim=2.5 lua.<flat key>=<text> thought.<name>=<state>
//	skill.<save key>=<value> ability.<save key>=<value>
//	reset_check=<key> reset_seen=<key>
func applyAssignments(u *save.Update, args []string) error {
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return fmt.Errorf("%q: want field=value", a)
		}
		if err := assign(u, k, v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	return nil
}

var intFields = map[string]func(u *save.Update) *int64{
	"money":        func(u *save.Update) *int64 { return &u.Money },
	"xp":           func(u *save.Update) *int64 { return &u.XpAmount },
	"level":        func(u *save.Update) *int64 { return &u.Level },
	"skill_points": func(u *save.Update) *int64 { return &u.SkillPoints },
	"health":       func(u *save.Update) *int64 { return &u.Health },
	"morale":       func(u *save.Update) *int64 { return &u.Morale },
	"bullets":      func(u *save.Update) *int64 { return &u.Bullets },
	"day":          func(u *save.Update) *int64 { return &u.Day },
	"weather":      func(u *save.Update) *int64 { return &u.WeatherPreset },
}

func assign(u *save.Update, k, v string) error {
	if f, ok := intFields[k]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*f(u) = n
		return nil
	}

	switch k {
	case "time":
		h, m, ok := strings.Cut(v, ":")
		if !ok {
			return fmt.Errorf("want HH:MM")
		}
		hh, err1 := strconv.ParseInt(h, 10, 64)
		mm, err2 := strconv.ParseInt(m, 10, 64)
		if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
			return fmt.Errorf("bad time %q", v)
		}
		u.Hours, u.Minutes = hh, mm
		return nil
	case "area":
		u.AreaID = v
		return nil
	case "reset_check":
		u.ResetCheckKeys = append(u.ResetCheckKeys, v)
		return nil
	case "reset_seen":
		u.ResetSeenCheckKeys = append(u.ResetSeenCheckKeys, v)
		return nil
	}

	prefix, name, ok := strings.Cut(k, ".")
	if !ok || name == "" {
		return fmt.Errorf("unknown field")
	}
	switch prefix {
	case "lua":
		if u.LuaEdits == nil {
			u.LuaEdits = map[string]string{}
		}
		u.LuaEdits[name] = v
	case "thought":
		switch v {
		case save.ThoughtNotAcquired, save.ThoughtGained, save.ThoughtProcessing, save.ThoughtInternalized, save.ThoughtForgotten:
		default:
			return fmt.Errorf("unknown thought state %q", v)
		}
		u.SetThought(name, v)
	case "rep":
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		switch name {
		case "communist":
			u.Reputation.Communist = f
		case "ultraliberal":
			u.Reputation.Ultraliberal = f
		case "moralist":
			u.Reputation.Moralist = f
		case "nationalist":
			u.Reputation.Nationalist = f
		case "kim":
			u.Reputation.Kim = f
		default:
			return fmt.Errorf("unknown reputation %q", name)
		}
	case "skill", "ability":
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		if !setStat(u, prefix, name, n) {
			return fmt.Errorf("no %s %q in this save", prefix, name)
		}
	default:
		return fmt.Errorf("unknown field")
	}
	return nil
}

func setStat(u *save.Update, kind, key string, n int64) bool {
	if kind == "ability" {
		for i := range u.Abilities {
			if u.Abilities[i].SaveKey == key {
				u.Abilities[i].Value = n
				return true
			}
		}
		return false
	}
	for i := range u.Skills {
		if u.Skills[i].SaveKey == key {
			u.Skills[i].Value = n
			return true
		}
	}
	return false
}
