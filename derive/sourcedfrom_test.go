package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

func TestCloseSourcedFromCopiesTypeFromRelatedField(t *testing.T) {
	e, s := widgetsFixture(t)
	component, ok := s.Registry().Lookup("Component")
	require.True(t, ok)
	for _, f := range component.Fields {
		if f.Name == "widget_name" {
			f.Type = nil
		}
	}

	batch := errs.NewBatch()
	e.derivePagination(batch)
	e.closeRelationships(batch)
	e.closeSourcedFrom(batch)
	require.NoError(t, batch.AsError())

	var widgetName *schema.Field
	for _, f := range component.Fields {
		if f.Name == "widget_name" {
			widgetName = f
		}
	}
	require.NotNil(t, widgetName)
	require.NotNil(t, widgetName.Type)
	assert.Equal(t, "String", string(widgetName.Type.FullyUnwrapped()))
}

func TestCloseSourcedFromRejectsUnknownRelationshipName(t *testing.T) {
	e, s := newTestEngine(t)
	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Field(schema.NewField("name", typeref.NewNonNull(typeref.NewNamed("String"))))
		b.Index(&schema.IndexDescriptor{Name: "widgets"})
	})
	s.ObjectType("Component", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("widget_name", typeref.NewNamed("String"),
			schema.WithSourcedFrom("missingRelationship", "name")))
	})
	require.NoError(t, s.Errors().AsError())

	batch := errs.NewBatch()
	e.closeSourcedFrom(batch)
	require.Error(t, batch.AsError())
	assert.Contains(t, batch.AsError().Error(), "no relationship named")
}

func TestCloseSourcedFromRejectsUnresolvableFieldPath(t *testing.T) {
	e, s := widgetsFixture(t)
	component, _ := s.Registry().Lookup("Component")
	for _, f := range component.Fields {
		if f.Name == "widget_name" {
			f.SourcedFrom.FieldPath = "does_not_exist"
		}
	}

	batch := errs.NewBatch()
	e.derivePagination(batch)
	e.closeRelationships(batch)
	e.closeSourcedFrom(batch)
	require.Error(t, batch.AsError())
	assert.Contains(t, batch.AsError().Error(), "no field at path")
	assert.NotEmpty(t, e.sourcedFromErrs.Errors())
}

func TestCloseSourcedFromLeavesUserPinnedTypeAlone(t *testing.T) {
	e, s := newTestEngine(t)
	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Field(schema.NewField("name", typeref.NewNonNull(typeref.NewNamed("String"))))
		b.Index(&schema.IndexDescriptor{Name: "widgets"})
	})
	s.ObjectType("Component", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("widget_id", typeref.NewNonNull(typeref.NewNamed("ID")), schema.IndexingOnly()))
		b.Field(schema.NewField("widget", typeref.NewNamed("Widget"),
			schema.WithRelationship(schema.RelationshipSpec{
				Name: "r", Cardinality: schema.One, RelatedType: "Widget",
				ForeignKey: "widget_id", Direction: schema.Out,
			})))
		b.Field(schema.NewField("widget_name", typeref.NewNonNull(typeref.NewNamed("String")),
			schema.WithSourcedFrom("r", "name")))
	})
	require.NoError(t, s.Errors().AsError())

	batch := errs.NewBatch()
	e.derivePagination(batch)
	e.closeRelationships(batch)
	e.closeSourcedFrom(batch)
	require.NoError(t, batch.AsError())

	component, _ := s.Registry().Lookup("Component")
	for _, f := range component.Fields {
		if f.Name == "widget_name" {
			assert.True(t, f.Type.IsNonNull(), "user-pinned NonNull wrapper must survive sourced_from closure")
		}
	}
}

func TestFindFieldByPathResolvesNestedSegments(t *testing.T) {
	_, s := widgetsFixture(t)
	season, _ := s.Registry().Lookup("Season")

	field, ok := findFieldByPath(s.Registry(), season, "year")
	require.True(t, ok)
	assert.Equal(t, "year", field.Name)

	field, ok = findFieldByPath(s.Registry(), season, "players.name")
	require.True(t, ok)
	assert.Equal(t, "name", field.Name)

	_, ok = findFieldByPath(s.Registry(), season, "nonexistent")
	assert.False(t, ok)
}

func TestSplitPathHandlesSingleAndMultiSegmentPaths(t *testing.T) {
	assert.Equal(t, []string{"a"}, splitPath("a"))
	assert.Equal(t, []string{"a", "b", "c"}, splitPath("a.b.c"))
}
