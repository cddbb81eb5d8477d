package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

//go:generate go run ../tools/schema-generator -o ../schema/portal.schema.json

// GenerateSchema generates the JSON Schema for portal.yml / portal.toml.
// Unknown keys are rejected.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		// Expand struct references instead of using $ref for cleaner base schema.
		ExpandedStruct: true,
		// Use YAML field names for property names
		FieldNameTag: "yaml",
	}

	schema := r.Reflect(&Settings{})
	schema.Title = "i2pportal configuration"
	schema.Description = "Session settings for the i2pportal container entrypoint. Environment variables take precedence."

	return json.MarshalIndent(schema, "", "  ")
}
