package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var schemaCache struct {
	once sync.Once
	data []byte
	err  error
}

// JSONSchema reflects the root Config struct into a JSON Schema, for
// editor completion and external config validation. The reflection runs
// once per process.
func JSONSchema() ([]byte, error) {
	schemaCache.once.Do(func() {
		reflector := &jsonschema.Reflector{FieldNameTag: "yaml"}
		schemaCache.data, schemaCache.err = json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	})
	return schemaCache.data, schemaCache.err
}
