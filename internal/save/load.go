package save

import (
	"encoding/json"
	"errors"
	"fmt"

	"ntwtf.ai/internal/catalogs"
	"ntwtf.ai/internal/persistence/archive"
	"ntwtf.ai/internal/persistence/luadb"
	"ntwtf.ai/internal/persistence/rawjson"
	"ntwtf.ai/internal/persistence/states"
)

var (
	ErrNoSession = errors.New("save: no save loaded")
	// ErrStateKey rejects an area or orb key the states file cannot hold.
	ErrStateKey = errors.New("save: invalid states key")
)

// PayloadError names the payload an operation failed on.
type PayloadError struct {
	Payload string
	Op      string
	Err     error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Payload, e.Op, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

func payloadErr(p archive.Payload, op string, err error) error {
	return &PayloadError{Payload: p.String(), Op: op, Err: err}
}

// Loaded is one parsed save: the retained documents the patcher edits, the
// typed views the projection reads, and the bytes as they were on disk.
type Loaded struct {
	Location archive.Location
	Original *archive.Bundle

	First  *rawjson.Document
	Second *rawjson.Document
	DB     *luadb.Database
	States states.Table

	FirstView  FirstFile
	SecondView SecondFile
	Sheet      CharacterSheet
}

// LoadPath locates and reads a save folder or zip.
func LoadPath(path string, cat *catalogs.Catalogs, prober *rawjson.Prober) (*Loaded, error) {
	loc, err := archive.Locate(path)
	if err != nil {
		return nil, err
	}
	b, err := archive.Read(loc)
	if err != nil {
		return nil, err
	}
	return LoadBundle(loc, b, cat, prober)
}

// LoadBundle parses the payloads in b. A missing payload gives an empty
// structure. A payload that is present but does not parse is an error.
func LoadBundle(loc archive.Location, b *archive.Bundle, cat *catalogs.Catalogs, prober *rawjson.Prober) (*Loaded, error) {
	l := &Loaded{
		Location: loc,
		Original: b,
		First:    rawjson.Null(),
		Second:   rawjson.Null(),
		DB:       luadb.NewTable(),
		States:   states.New(),
	}

	var err error
	if l.First, err = parseJSON(b, archive.FirstJSON, &l.FirstView); err != nil {
		return nil, err
	}
	if l.Second, err = parseJSON(b, archive.SecondJSON, &l.SecondView); err != nil {
		return nil, err
	}
	l.Sheet = ParseCharacterSheet(prober.Get(l.Second, "characterSheet"), cat.KeyMap)

	if b.Has(archive.LuaDB) {
		if l.DB, err = luadb.DecodeDatabase(b.Get(archive.LuaDB)); err != nil {
			return nil, payloadErr(archive.LuaDB, "decode", err)
		}
	}
	if b.Has(archive.StatesText) {
		l.States = states.Parse(string(b.Get(archive.StatesText)))
	}
	return l, nil
}

func parseJSON(b *archive.Bundle, p archive.Payload, view any) (*rawjson.Document, error) {
	if !b.Has(p) {
		return rawjson.Null(), nil
	}
	raw := b.Get(p)
	doc, err := rawjson.Parse(raw)
	if err != nil {
		return nil, payloadErr(p, "parse", err)
	}
	if err := json.Unmarshal(raw, view); err != nil {
		return nil, payloadErr(p, "decode", err)
	}
	return doc, nil
}

// Clone copies everything the patcher mutates. Views and the original bytes
// are shared.
func (l *Loaded) Clone() *Loaded {
	c := *l
	c.First = l.First.Clone()
	c.Second = l.Second.Clone()
	c.DB = l.DB.Clone()
	c.States = l.States.Clone()
	return &c
}
