package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidGraphQLName(t *testing.T) {
	assert.True(t, ValidGraphQLName("Widget"))
	assert.True(t, ValidGraphQLName("_private"))
	assert.True(t, ValidGraphQLName("widget_name"))
	assert.False(t, ValidGraphQLName("123Widget"))
	assert.False(t, ValidGraphQLName("widget-name"))
	assert.False(t, ValidGraphQLName(""))
}

func TestMappingTypeSupportsRange(t *testing.T) {
	assert.True(t, MappingDate.SupportsRange())
	assert.True(t, MappingInteger.SupportsRange())
	assert.True(t, MappingLong.SupportsRange())
	assert.True(t, MappingFloat.SupportsRange())
	assert.True(t, MappingDouble.SupportsRange())
	assert.False(t, MappingKeyword.SupportsRange())
	assert.False(t, MappingText.SupportsRange())
	assert.False(t, MappingBoolean.SupportsRange())
}

func TestValidateJSONSchemaOptionsAllowsKnownKeys(t *testing.T) {
	err := ValidateJSONSchemaOptions(JSONSchemaOptions{"maxLength": 10, "pattern": "^a$"})
	assert.Nil(t, err)
}

func TestValidateJSONSchemaOptionsRejectsUnknownKey(t *testing.T) {
	err := ValidateJSONSchemaOptions(JSONSchemaOptions{"unknownKeyword": true})
	if assert.NotNil(t, err) {
		assert.Equal(t, JSONSchema, err.Category)
	}
}

func TestValidateJSONSchemaOptionsRejectsReservedMetadataKey(t *testing.T) {
	err := ValidateJSONSchemaOptions(JSONSchemaOptions{"ElasticGraphInternal": true})
	if assert.NotNil(t, err) {
		assert.Contains(t, err.Message, "reserved")
	}
}
