package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemavalidator "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "https://wasmfn.dev/schemas/config.json"

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(reflectSchema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}

func reflectSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&Config{})
	schema.ID = schemaURL
	schema.Title = "wasmfn daemon configuration"
	return schema
}

var compiledSchema = sync.OnceValues(func() (*jsonschemavalidator.Schema, error) {
	raw, err := Schema()
	if err != nil {
		return nil, err
	}
	compiler := jsonschemavalidator.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// validateDocument checks the raw YAML document against the schema, so
// unknown keys and wrongly typed values are reported with their location.
func validateDocument(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("invalid config schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// Round trip through JSON so the validator sees plain JSON values.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to prepare config for validation: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var obj any
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("failed to prepare config for validation: %w", err)
	}

	if err := sch.Validate(obj); err != nil {
		var ve *jsonschemavalidator.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("config does not match schema: %s", ve.Error())
		}
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
