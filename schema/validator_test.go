package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "port": {"type": "integer", "minimum": 1, "maximum": 65535},
    "name": {"type": "string"}
  },
  "additionalProperties": false
}`

func TestValidator(t *testing.T) {
	v, err := NewValidator("test.json", []byte(testSchema))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"port": 7654, "name": "router"}))

	err = v.Validate(map[string]interface{}{"port": 70000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/port")

	err = v.Validate(map[string]interface{}{"unknown": true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestNewValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewValidator("bad.json", []byte(`{"type": 12}`))
	assert.Error(t, err)
}
