package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/derive"
	"go.elasticgraph.dev/compiler/emit/sdl"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

func buildComponentRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	s := schema.New()
	schema.RegisterBuiltIns(s)
	require.NoError(t, s.Errors().AsError())

	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Field(schema.NewField("name", typeref.NewNonNull(typeref.NewNamed("String"))))
		b.Index(&schema.IndexDescriptor{Name: "widgets", RouteWith: "id"})
	})
	s.ObjectType("Component", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Field(schema.NewField("widget_id", typeref.NewNonNull(typeref.NewNamed("ID")), schema.IndexingOnly()))
		b.Field(schema.NewField("widget", typeref.NewNamed("Widget"),
			schema.WithRelationship(schema.RelationshipSpec{
				Name: "r", Cardinality: schema.One, RelatedType: "Widget",
				ForeignKey: "widget_id", Direction: schema.Out,
			})))
		b.Field(schema.NewField("widget_name", typeref.NewNamed("String"),
			schema.WithSourcedFrom("r", "name")))
		b.Index(&schema.IndexDescriptor{Name: "components"})
	})
	require.NoError(t, s.Errors().AsError())

	namer := typeref.NewNamer(typeref.SnakeCase, nil, nil, nil, nil)
	e := derive.New(s.Registry(), namer)
	require.NoError(t, e.Run())
	return s.Registry()
}

func TestEmitBuildsObjectAndScalarMetadata(t *testing.T) {
	reg := buildComponentRegistry(t)
	bundle := Emit(reg, nil, nil)

	widgetMeta, ok := bundle.ObjectTypesByName["Widget"]
	require.True(t, ok)
	assert.Equal(t, "id", widgetMeta.IndexFieldPathByGraphQLName["id"])

	scalarMeta, ok := bundle.ScalarTypesByName["String"]
	require.True(t, ok)
	assert.NotEmpty(t, scalarMeta.MappingType)
}

func TestEmitPrunesUsingReachableTypeNames(t *testing.T) {
	reg := buildComponentRegistry(t)
	reachable := sdl.ReachableTypeNames(reg)
	bundle := Emit(reg, reachable, nil)

	_, ok := bundle.ObjectTypesByName["Widget"]
	assert.True(t, ok)

	// Filter inputs are GraphQL argument types, never emitted as object
	// type metadata regardless of reachability.
	_, ok = bundle.ObjectTypesByName["WidgetFilterInput"]
	assert.False(t, ok)
}

func TestCategoryForTagsDerivedGraphQLOnlyTypesBySuffix(t *testing.T) {
	assert.Equal(t, "relay_edge", categoryFor(&schema.Type{Name: "WidgetEdge", GraphQLOnly: true}))
	assert.Equal(t, "relay_connection", categoryFor(&schema.Type{Name: "WidgetConnection", GraphQLOnly: true}))
	assert.Equal(t, "scalar_aggregated_values", categoryFor(&schema.Type{Name: "IntAggregatedValues", GraphQLOnly: true}))
	assert.Equal(t, "aggregation", categoryFor(&schema.Type{Name: "WidgetAggregation", GraphQLOnly: true}))
	assert.Equal(t, "grouped_by", categoryFor(&schema.Type{Name: "WidgetGroupedBy", GraphQLOnly: true}))
	assert.Equal(t, "", categoryFor(&schema.Type{Name: "Widget", GraphQLOnly: false}))
}

func TestBuildIndexMetadataCapturesRouteAndRollover(t *testing.T) {
	idx := &schema.IndexDescriptor{
		Name:      "widgets",
		RouteWith: "workspace_id",
		Rollover:  &schema.Rollover{Granularity: schema.Monthly, TimestampFieldPath: "created_at"},
		DefaultSort: []schema.SortClause{
			{FieldPath: "created_at", Direction: schema.Desc},
		},
	}
	meta := buildIndexMetadata(idx)
	assert.Equal(t, "workspace_id", meta.RouteWith)
	assert.Equal(t, "created_at", meta.RolloverOn)
	assert.Equal(t, []string{"created_at_Desc"}, meta.DefaultSort)
}

func TestUpdateTargetsFromSourcedFromGroupsBySourceType(t *testing.T) {
	reg := buildComponentRegistry(t)
	targets := UpdateTargetsFromSourcedFrom(reg)

	widgetTargets, ok := targets["Widget"]
	require.True(t, ok)
	require.Len(t, widgetTargets, 1)
	assert.Equal(t, "Component", widgetTargets[0].DestinationType)
	assert.Equal(t, "widget_id", widgetTargets[0].JoinKey)
	assert.Equal(t, "name", widgetTargets[0].FieldPaths["widget_name"])
}

func TestBuildEnumMetadataOnlyRecordsRenamedValues(t *testing.T) {
	enum := &schema.Type{
		Name: "Status",
		EnumValues: []schema.EnumValue{
			{CanonicalName: "ACTIVE", OriginalName: "ACTIVE"},
			{CanonicalName: "ARCHIVED", OriginalName: "RETIRED"},
		},
	}
	meta := buildEnumMetadata(enum)
	assert.NotContains(t, meta.ValueOverrides, "ACTIVE")
	assert.Equal(t, "ARCHIVED", meta.ValueOverrides["RETIRED"])
}
