package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Schemas for the resource documents the CLI accepts. Validation happens
// before anything is sent, so a typo fails locally with a schema error
// instead of a server round trip.

const deviceSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["kind", "metadata", "spec"],
  "properties": {
    "kind": {"const": "Device"},
    "metadata": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "pattern": "^[a-z0-9]([-a-z0-9]*[a-z0-9])?$", "maxLength": 63},
        "labels": {"type": "object"}
      }
    },
    "spec": {
      "type": "object",
      "required": ["fleet"],
      "properties": {
        "fleet": {"type": "string", "minLength": 1},
        "model": {"type": "string"},
        "serial": {"type": "string"},
        "tags": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

const fleetSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["kind", "metadata"],
  "properties": {
    "kind": {"const": "Fleet"},
    "metadata": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "pattern": "^[a-z0-9]([-a-z0-9]*[a-z0-9])?$", "maxLength": 63}
      }
    },
    "spec": {
      "type": "object",
      "properties": {
        "description": {"type": "string"},
        "channel": {"type": "string", "enum": ["stable", "beta", "nightly"]}
      }
    }
  }
}`

const firmwareSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["kind", "metadata", "spec"],
  "properties": {
    "kind": {"const": "Firmware"},
    "metadata": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "pattern": "^[a-z0-9]([-.a-z0-9]*[a-z0-9])?$", "maxLength": 127}
      }
    },
    "spec": {
      "type": "object",
      "required": ["version"],
      "properties": {
        "version": {"type": "string", "pattern": "^v?[0-9]+\\.[0-9]+\\.[0-9]+"},
        "image": {"type": "string"},
        "channel": {"type": "string", "enum": ["stable", "beta", "nightly"]}
      }
    }
  }
}`

const userSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["kind", "metadata"],
  "properties": {
    "kind": {"const": "User"},
    "metadata": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1, "maxLength": 63}
      }
    },
    "spec": {
      "type": "object",
      "properties": {
        "email": {"type": "string"},
        "role": {"type": "string", "enum": ["admin", "operator", "member"]}
      }
    }
  }
}`

const workspaceSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["kind", "metadata"],
  "properties": {
    "kind": {"const": "Workspace"},
    "metadata": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "pattern": "^[a-z0-9]([-a-z0-9]*[a-z0-9])?$", "maxLength": 63}
      }
    }
  }
}`

var (
	kindSchemas     map[string]*jsonschema.Schema
	kindSchemasOnce sync.Once
	kindSchemasErr  error
)

// schemaForKind returns the compiled schema for a resource kind.
func schemaForKind(kind string) (*jsonschema.Schema, error) {
	kindSchemasOnce.Do(func() {
		sources := map[string]string{
			KindDevice:    deviceSchema,
			KindFleet:     fleetSchema,
			KindFirmware:  firmwareSchema,
			KindUser:      userSchema,
			KindWorkspace: workspaceSchema,
		}
		kindSchemas = make(map[string]*jsonschema.Schema, len(sources))
		for k, src := range sources {
			sch, err := compileSchema(src)
			if err != nil {
				kindSchemasErr = fmt.Errorf("schema for %s: %w", k, err)
				return
			}
			kindSchemas[k] = sch
		}
	})
	if kindSchemasErr != nil {
		return nil, kindSchemasErr
	}
	sch, ok := kindSchemas[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for kind %s", kind)
	}
	return sch, nil
}

// compileSchema compiles a JSON schema string into a jsonschema.Schema.
// It validates the schema is valid JSON and handles self-referential schemas.
func compileSchema(schema string) (*jsonschema.Schema, error) {
	if !gjson.Valid(schema) {
		return nil, fmt.Errorf("invalid JSON schema")
	}

	compiler := jsonschema.NewCompiler()
	// Allow schemas with $id to refer to themselves
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		if url == "inline://schema" {
			return io.NopCloser(bytes.NewReader([]byte(schema))), nil
		}
		return nil, fmt.Errorf("unsupported schema ref: %s", url)
	}
	err := compiler.AddResource("inline://schema", bytes.NewReader([]byte(schema)))
	if err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiledSchema, err := compiler.Compile("inline://schema")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return compiledSchema, nil
}

// ValidateResourcePayload checks a resource document against the schema for
// its kind.
func ValidateResourcePayload(kind string, jsonData []byte) error {
	sch, err := schemaForKind(kind)
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(jsonData, &v); err != nil {
		return fmt.Errorf("resource is not valid JSON: %v", err)
	}
	if err := sch.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid resource: %s", flattenValidationError(ve))
		}
		return fmt.Errorf("invalid resource: %v", err)
	}
	return nil
}

// flattenValidationError picks the most specific cause out of a validation
// error tree; the root message is usually just "doesn't validate with ...".
func flattenValidationError(ve *jsonschema.ValidationError) string {
	cur := ve
	for len(cur.Causes) > 0 {
		cur = cur.Causes[0]
	}
	loc := cur.InstanceLocation
	if loc == "" {
		return cur.Message
	}
	return fmt.Sprintf("%s: %s", loc, cur.Message)
}
