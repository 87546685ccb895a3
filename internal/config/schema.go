// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated settings schema.
const SchemaID = "https://holomush.dev/schemas/hitreg.schema.json"

var (
	schemaOnce     sync.Once
	schemaCompiled *jschema.Schema
	schemaErr      error
)

// GenerateSchema generates a JSON Schema from the Settings struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Settings{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "HitReg Settings"
	schema.Description = "Schema for hitreg.yaml"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateSchema validates YAML settings data against the settings schema.
// An empty document is valid.
func ValidateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("CONFIG_INVALID_YAML").Wrap(err)
	}
	if doc == nil {
		return nil
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return oops.Code("CONFIG_SCHEMA_VIOLATION").Errorf("%s", FormatSchemaError(err))
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("hitreg.schema.json", doc); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
			return
		}
		schemaCompiled, schemaErr = c.Compile("hitreg.schema.json")
		if schemaErr != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(schemaErr)
		}
	})
	return schemaCompiled, schemaErr
}

// toJSONTypes rewrites YAML-decoded values into the shapes encoding/json
// would produce, so the validator sees numbers as json.Number.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONTypes(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONTypes(item)
		}
		return out
	case int, int64, uint64, float64:
		b, err := json.Marshal(val)
		if err != nil {
			return val
		}
		return json.Number(b)
	default:
		return val
	}
}

// FormatSchemaError strips validator boilerplate from a schema error.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.Index(msg, "\n"); i >= 0 {
		// first line names the schema URL; the detail follows
		detail := strings.TrimSpace(msg[i+1:])
		if detail != "" {
			return detail
		}
	}
	return msg
}
