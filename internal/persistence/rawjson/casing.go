package rawjson

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Style is one key spelling the prober tries.
type Style string

const (
	StyleExact  Style = "exact"
	StylePascal Style = "pascal"
	StyleCamel  Style = "camel"
)

var DefaultStyles = []Style{StyleExact, StylePascal, StyleCamel}

func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleExact, StylePascal, StyleCamel:
		return Style(s), nil
	default:
		return "", fmt.Errorf("rawjson: unknown casing style %q", s)
	}
}

func (s Style) apply(name string) string {
	switch s {
	case StylePascal:
		return withFirst(name, unicode.ToUpper)
	case StyleCamel:
		return withFirst(name, unicode.ToLower)
	default:
		return name
	}
}

func withFirst(s string, f func(rune) rune) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(f(r)) + s[n:]
}

// Prober picks the spelling of a member name the document already uses.
// Save files from different game versions disagree on casing, and the game
// ignores spellings it does not expect.
type Prober struct {
	styles []Style
}

func NewProber(styles []Style) *Prober {
	if len(styles) == 0 {
		styles = DefaultStyles
	}
	return &Prober{styles: append([]Style(nil), styles...)}
}

// Resolve returns the first variant of name present in the object at obj, or
// name itself when no variant exists.
func (p *Prober) Resolve(d *Document, obj []string, name string) string {
	o := d.Get(obj...)
	if !o.IsObject() {
		return name
	}
	for _, s := range p.styles {
		cand := s.apply(name)
		if o.Get(Path(cand)).Exists() {
			return cand
		}
	}
	return name
}

// Set resolves each key of path against the document, left to right, and
// writes value at the resolved path. It returns the path written.
func (p *Prober) Set(d *Document, value any, path ...string) ([]string, error) {
	resolved := p.ResolvePath(d, path...)
	return resolved, d.Set(value, resolved...)
}

// ResolvePath resolves every segment of path in turn.
func (p *Prober) ResolvePath(d *Document, path ...string) []string {
	out := make([]string, 0, len(path))
	for _, k := range path {
		out = append(out, p.Resolve(d, out, k))
	}
	return out
}

// Get reads through resolved spellings.
func (p *Prober) Get(d *Document, path ...string) gjson.Result {
	return d.Get(p.ResolvePath(d, path...)...)
}

// Delete removes the member at the resolved path.
func (p *Prober) Delete(d *Document, path ...string) error {
	return d.Delete(p.ResolvePath(d, path...)...)
}
