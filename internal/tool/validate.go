package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// validator compiles each tool's declared parameter schema once and
// checks arguments against it before execution, so malformed model
// output is rejected with a readable message instead of reaching
// tool-specific code.
type validator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

func newValidator() *validator {
	return &validator{compiled: make(map[string]*jsonschema.Schema)}
}

// validate checks params against t's schema. A tool with no schema, or a
// schema that fails to compile, is treated as unvalidated rather than
// unusable.
func (v *validator) validate(t Tool, params json.RawMessage) error {
	raw := t.Schema()
	if len(raw) == 0 {
		return nil
	}

	v.mu.Lock()
	schema, ok := v.compiled[t.Name()]
	if !ok {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(t.Name()+".json", bytes.NewReader(raw)); err == nil {
			schema, _ = compiler.Compile(t.Name() + ".json")
		}
		v.compiled[t.Name()] = schema
	}
	v.mu.Unlock()

	if schema == nil {
		return nil
	}

	var doc any
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(params, &doc); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("arguments do not match the tool schema: %w", err)
	}
	return nil
}
