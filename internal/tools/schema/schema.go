// Package schema validates tool-call arguments against the JSON Schema
// carried on each Tool, following the compile-once, validate-decoded
// validator (pkg/pluginsdk/validation.go): compile once per distinct schema
// string, cache the compiled schema, and validate a decoded JSON value
// rather than a raw byte string.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var cache sync.Map

// Validate checks that params (raw JSON object bytes) satisfies argSchema
// (a JSON Schema document). An empty or missing argSchema is treated as
// "no constraint" and always passes, since not every tool declares one.
func Validate(argSchema, params json.RawMessage) error {
	if len(argSchema) == 0 {
		return nil
	}

	compiled, err := compile(argSchema)
	if err != nil {
		return fmt.Errorf("tools/schema: compile schema: %w", err)
	}

	var decoded any
	if len(params) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(params, &decoded); err != nil {
		return fmt.Errorf("tools/schema: decode params: %w", err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("tools/schema: params do not satisfy schema: %w", err)
	}
	return nil
}

func compile(argSchema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(argSchema)
	if cached, ok := cache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	compiled, err := jsonschema.CompileString("tool.schema.json", key)
	if err != nil {
		return nil, err
	}
	cache.Store(key, compiled)
	return compiled, nil
}
