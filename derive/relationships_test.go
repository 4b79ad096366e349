package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

func TestCloseRelationshipsRewritesOneCardinalityToRelatedType(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.derivePagination(batch)
	e.closeRelationships(batch)
	require.NoError(t, batch.AsError())

	component, ok := s.Registry().Lookup("Component")
	require.True(t, ok)
	var widgetField *schema.Field
	for _, f := range component.Fields {
		if f.Name == "widget" {
			widgetField = f
		}
	}
	require.NotNil(t, widgetField)
	assert.Equal(t, "Widget", string(widgetField.Type.FullyUnwrapped()))

	var hasDirective bool
	for _, d := range widgetField.Directives {
		if d.Name == "elasticGraphRelationshipArgs" {
			hasDirective = true
			assert.Equal(t, "widget_id", d.Args["foreignKey"])
		}
	}
	assert.True(t, hasDirective)
}

func TestCloseRelationshipsRejectsUndefinedRelatedType(t *testing.T) {
	e, s := newTestEngine(t)
	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
	})
	s.ObjectType("Component", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("gizmo", typeref.NewNamed("Gizmo"),
			schema.WithRelationship(schema.RelationshipSpec{
				Name: "r", Cardinality: schema.One, RelatedType: "Gizmo", Direction: schema.Out,
			})))
	})
	require.NoError(t, s.Errors().AsError())

	batch := errs.NewBatch()
	e.closeRelationships(batch)
	require.Error(t, batch.AsError())
	assert.Contains(t, batch.AsError().Error(), "not a defined type")
}

func TestCloseRelationshipsRejectsNonIndexableRelatedType(t *testing.T) {
	e, s := newTestEngine(t)
	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
	})
	s.ObjectType("Component", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("widget", typeref.NewNamed("Widget"),
			schema.WithRelationship(schema.RelationshipSpec{
				Name: "r", Cardinality: schema.One, RelatedType: "Widget", Direction: schema.Out,
			})))
	})
	require.NoError(t, s.Errors().AsError())

	batch := errs.NewBatch()
	e.closeRelationships(batch)
	require.Error(t, batch.AsError())
	assert.Contains(t, batch.AsError().Error(), "not an indexed type")
}

func TestEnsureForeignKeyFieldSkipsWhenUserDeclaredItAlready(t *testing.T) {
	e, s := newTestEngine(t)
	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Index(&schema.IndexDescriptor{Name: "widgets"})
	})
	s.ObjectType("Component", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("widget_id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Field(schema.NewField("widget", typeref.NewNamed("Widget"),
			schema.WithRelationship(schema.RelationshipSpec{
				Name: "r", Cardinality: schema.One, RelatedType: "Widget",
				ForeignKey: "widget_id", Direction: schema.Out,
			})))
	})
	require.NoError(t, s.Errors().AsError())

	component, _ := s.Registry().Lookup("Component")
	fieldCountBefore := len(component.Fields)

	batch := errs.NewBatch()
	e.closeRelationships(batch)
	require.NoError(t, batch.AsError())

	assert.Len(t, component.Fields, fieldCountBefore)
}

func TestEnsureForeignKeyFieldSynthesizesListTypeForManyCardinality(t *testing.T) {
	e, s := newTestEngine(t)
	s.ObjectType("Widget", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("id", typeref.NewNonNull(typeref.NewNamed("ID"))))
		b.Index(&schema.IndexDescriptor{Name: "widgets"})
	})
	s.ObjectType("Team", func(b *schema.ObjectBuilder) {
		b.Field(schema.NewField("widgets", typeref.NewList(typeref.NewNonNull(typeref.NewNamed("Widget"))),
			schema.WithRelationship(schema.RelationshipSpec{
				Name: "r", Cardinality: schema.Many, RelatedType: "Widget",
				ForeignKey: "widget_ids", Direction: schema.Out,
			})))
	})
	require.NoError(t, s.Errors().AsError())

	batch := errs.NewBatch()
	e.derivePagination(batch)
	e.closeRelationships(batch)
	require.NoError(t, batch.AsError())

	team, _ := s.Registry().Lookup("Team")
	var fk *schema.Field
	for _, f := range team.Fields {
		if f.Name == "widget_ids" {
			fk = f
		}
	}
	require.NotNil(t, fk)
	assert.True(t, fk.Type.IsList())
}
