package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const saveSchemaURL = "https://ntwtf.ai/schemas/save.schema.json"

var (
	saveOnce   sync.Once
	saveSchema *jsonschema.Schema
	saveErr    error
)

func compileSave() (*jsonschema.Schema, error) {
	saveOnce.Do(func() {
		b, err := schemaFS.ReadFile("schemas/save.schema.json")
		if err != nil {
			saveErr = err
			return
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		if err := c.AddResource(saveSchemaURL, bytes.NewReader(b)); err != nil {
			saveErr = err
			return
		}
		saveSchema, saveErr = c.Compile(saveSchemaURL)
	})
	return saveSchema, saveErr
}

// ValidateSaveRequest checks a raw SAVE message against the embedded schema.
func ValidateSaveRequest(msg []byte) error {
	s, err := compileSave()
	if err != nil {
		return fmt.Errorf("protocol: compile save schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("protocol: decode: %w", err)
	}
	return s.Validate(v)
}
