// Package archive reads and writes a save as a unit: the four payloads stored
// either as loose files in a `<base>.ntwtf` folder or as members of a zip
// archive next to members the editor does not know about.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Kind int

const (
	KindFolder Kind = iota
	KindZip
)

func (k Kind) String() string {
	if k == KindZip {
		return "zip"
	}
	return "folder"
}

// Payload names one of the four logical files of a save.
type Payload int

const (
	FirstJSON Payload = iota
	SecondJSON
	LuaDB
	StatesText
)

var Payloads = []Payload{FirstJSON, SecondJSON, LuaDB, StatesText}

func (p Payload) String() string {
	switch p {
	case FirstJSON:
		return "1st.ntwtf.json"
	case SecondJSON:
		return "2nd.ntwtf.json"
	case LuaDB:
		return "ntwtf.lua"
	case StatesText:
		return "states.lua"
	default:
		return fmt.Sprintf("payload(%d)", int(p))
	}
}

// PayloadByName is the inverse of Payload.String.
func PayloadByName(name string) (Payload, bool) {
	for _, p := range Payloads {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}

// Member is the file or zip member name of p for a save with the given base.
func (p Payload) Member(base string) string { return base + "." + p.String() }

var ErrNotSave = errors.New("archive: not a save folder or zip")

// BaseName strips the save suffix from a folder or archive file name.
func BaseName(name string) string {
	for _, suffix := range []string{".ntwtf.zip", ".zip", ".ntwtf"} {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// Location is a resolved save on disk.
type Location struct {
	Path string `json:"path"`
	Base string `json:"base_name"`
	Kind Kind   `json:"-"`
}

func (l Location) IsZip() bool { return l.Kind == KindZip }

// Locate resolves path to a save. Directories are folder saves; regular
// files must carry a .zip suffix.
func Locate(path string) (Location, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Location{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return Location{}, fmt.Errorf("archive: locate %s: %w", path, err)
	}
	name := filepath.Base(abs)
	loc := Location{Path: abs, Base: BaseName(name)}
	switch {
	case fi.IsDir():
		loc.Kind = KindFolder
	case fi.Mode().IsRegular() && strings.HasSuffix(name, ".zip"):
		loc.Kind = KindZip
	default:
		return Location{}, fmt.Errorf("%w: %s", ErrNotSave, path)
	}
	return loc, nil
}
