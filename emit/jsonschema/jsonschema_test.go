package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/derive"
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

func buildWidgetRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	s := schema.New()
	schema.RegisterBuiltIns(s)
	require.NoError(t, s.Errors().AsError())

	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Field(schema.NewField("name", typeref.NewNamed("String")))
		b.Field(schema.NewField("created_at", typeref.NewNonNull(typeref.NewNamed("DateTime"))))
		b.Index(&schema.IndexDescriptor{
			Name:     "widgets",
			Rollover: &schema.Rollover{Granularity: schema.Monthly, TimestampFieldPath: "created_at"},
		})
	})
	s.JSONSchemaVersion(1, errs.Location{})
	require.NoError(t, s.Errors().AsError())

	namer := typeref.NewNamer(typeref.SnakeCase, nil, nil, nil, nil)
	e := derive.New(s.Registry(), namer)
	require.NoError(t, e.Run())
	return s.Registry()
}

func TestEmitFailsWithoutJSONSchemaVersion(t *testing.T) {
	s := schema.New()
	schema.RegisterBuiltIns(s)
	_, _, err := Emit(s.Registry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json_schema_version")
}

func TestEmitVersionedArtifactCarriesElasticGraphMetadata(t *testing.T) {
	reg := buildWidgetRegistry(t)
	public, versioned, err := Emit(reg)
	require.NoError(t, err)
	require.NotNil(t, public)
	require.NotNil(t, versioned)

	widgetDef, ok := versioned.Defs["Widget"]
	require.True(t, ok)
	props, ok := widgetDef["properties"].(Def)
	require.True(t, ok)
	nameDef, ok := props["name"].(Def)
	require.True(t, ok)
	meta, ok := nameDef["ElasticGraph"].(Def)
	require.True(t, ok)
	assert.Equal(t, "name", meta["nameInIndex"])
}

func TestEmitPublicArtifactStripsElasticGraphMetadata(t *testing.T) {
	reg := buildWidgetRegistry(t)
	public, _, err := Emit(reg)
	require.NoError(t, err)

	widgetDef, ok := public.Defs["Widget"]
	require.True(t, ok)
	props, ok := widgetDef["properties"].(Def)
	require.True(t, ok)
	nameDef := props["name"]
	if asDef, ok := nameDef.(Def); ok {
		_, hasMeta := asDef["ElasticGraph"]
		assert.False(t, hasMeta)
	}
}

func TestEmitForcesRolloverFieldNonNull(t *testing.T) {
	reg := buildWidgetRegistry(t)
	widget, ok := reg.Lookup("Widget")
	require.True(t, ok)
	for _, f := range widget.Fields {
		if f.Name == "created_at" {
			f.Type = typeref.NewNamed("DateTime")
		}
	}
	_, versioned, err := Emit(reg)
	require.NoError(t, err)

	widgetDef := versioned.Defs["Widget"]
	props := widgetDef["properties"].(Def)
	createdAt := props["created_at"].(Def)
	allOf, ok := createdAt["allOf"].([]Def)
	require.True(t, ok)
	_, hasAnyOf := allOf[0]["anyOf"]
	assert.False(t, hasAnyOf, "rollover timestamp field must not be nullable in JSON Schema")
}

func TestEmitPrunesUnreferencedDefs(t *testing.T) {
	reg := buildWidgetRegistry(t)
	public, _, err := Emit(reg)
	require.NoError(t, err)

	_, ok := public.Defs["WidgetConnection"]
	assert.False(t, ok, "GraphQL-only connection types must not appear in JSON Schema $defs")
}

func TestBuildEnvelopeDefEnumeratesIndexedTypeNames(t *testing.T) {
	reg := buildWidgetRegistry(t)
	def := buildEnvelopeDef(reg, 1)
	props := def["properties"].(Def)
	typeDef := props["type"].(Def)
	assert.Equal(t, []string{"Widget"}, typeDef["enum"])
}

func TestRefNameStripsDefsPrefix(t *testing.T) {
	assert.Equal(t, "Widget", refName("#/$defs/Widget"))
	assert.Equal(t, "not-a-ref", refName("not-a-ref"))
}
