package sdl

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/derive"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// buildWidgetRegistry runs a small Widget/Orphan schema through the
// derivation engine so this package's tests exercise real derived
// output rather than hand-built fixtures.
func buildWidgetRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	s := schema.New()
	schema.RegisterBuiltIns(s)
	require.NoError(t, s.Errors().AsError())

	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Field(schema.NewField("name", typeref.NewNonNull(typeref.NewNamed("String"))))
		b.Index(&schema.IndexDescriptor{Name: "widgets"})
	})
	s.ObjectType("Orphan", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("note", typeref.NewNamed("String")))
	})
	require.NoError(t, s.Errors().AsError())

	namer := typeref.NewNamer(typeref.SnakeCase, nil, nil, nil, nil)
	e := derive.New(s.Registry(), namer)
	require.NoError(t, e.Run())
	return s.Registry()
}

func TestRenderProducesParseableObjectBlock(t *testing.T) {
	reg := buildWidgetRegistry(t)
	out, err := Render(reg)
	require.NoError(t, err)
	assert.Contains(t, out, "type Widget")
	assert.Contains(t, out, "id: ID!")
}

func TestRenderFailsOnDanglingFieldType(t *testing.T) {
	s := schema.New()
	schema.RegisterBuiltIns(s)
	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("gizmo", typeref.NewNamed("Gizmo")))
	})
	require.NoError(t, s.Errors().AsError())

	_, err := Render(s.Registry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined type")
}

func TestRenderNormalizedRoundTripsThroughParser(t *testing.T) {
	reg := buildWidgetRegistry(t)
	out, err := RenderNormalized(reg)
	require.NoError(t, err)
	assert.Contains(t, out, "type Widget")
}

func TestRenderNormalizedPrunesUnreachableTypes(t *testing.T) {
	reg := buildWidgetRegistry(t)
	out, err := RenderNormalized(reg)
	require.NoError(t, err)
	assert.NotContains(t, out, "type Orphan")
}

func TestReachableTypeNamesMatchesExpectedClosure(t *testing.T) {
	reg := buildWidgetRegistry(t)
	reachable := ReachableTypeNames(reg)

	expected := map[string]bool{
		"PageInfo":                          true,
		"Cursor":                            true,
		"ElasticGraphEventEnvelopeOp":       true,
		"ElasticGraphEventEnvelopeTypeEnum": true,
		schema.EnvelopeTypeName:             true,
		"Widget":                            true,
		"WidgetConnection":                  true,
		"WidgetEdge":                        true,
	}

	for name := range expected {
		if diff := pretty.Compare(true, reachable[name]); diff != "" {
			t.Errorf("expected %q reachable, diff: %s", name, diff)
		}
	}
	assert.False(t, reachable["Orphan"], "Orphan has no index and is referenced by nothing reachable")
}
