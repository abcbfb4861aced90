package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed structure.schema.json
var structureSchemaJSON []byte

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func documentSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(structureSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("structure.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("structure.schema.json")
	})
	return compiledSchema, compileErr
}

// ValidateDocument checks a raw structure document against the embedded JSON
// schema. The instance must be JSON-decoded (map[string]any shaped).
func ValidateDocument(doc any) error {
	sch, err := documentSchema()
	if err != nil {
		return err
	}
	return sch.Validate(doc)
}

// ParseDocument validates raw JSON against the embedded schema, decodes it
// into a Structure, and runs CheckStructure. Error-level issues reject the
// document; warnings are returned alongside the structure.
func ParseDocument(raw []byte) (*Structure, []Issue, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, nil, fmt.Errorf("document schema: %w", err)
	}

	var s Structure
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, nil, fmt.Errorf("decode structure: %w", err)
	}

	issues := CheckStructure(&s)
	if HasErrors(issues) {
		return nil, issues, fmt.Errorf("structure %q has configuration errors", s.ID)
	}
	return &s, issues, nil
}
