package derive

import (
	"fmt"

	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// closeRelationships closes every field carrying a
// relates_to_one/relates_to_many declaration: validate the far side,
// synthesize the foreign key field when the user didn't declare one
// explicitly, and rewrite the field's GraphQL-facing type into either a
// direct reference (One) or a paginated connection (Many), with
// filter/order_by/first arguments attached the same way
// sub-aggregation connections carry theirs since the
// declarative Field model has no native arguments concept.
//
// Relationship closure must run before sourced_from closure: a
// sourced_from declaration names a relationship by RelationshipName,
// and closeSourcedFrom needs the relationship already validated and its
// foreign key field already in place to resolve the indexer-side path.
func (e *Engine) closeRelationships(batch *errs.Batch) {
	for _, t := range e.Registry.All() {
		if t.Kind != schema.KindObject && t.Kind != schema.KindInterface {
			continue
		}
		for _, f := range t.Fields {
			if f.Relationship == nil {
				continue
			}
			e.closeOneRelationship(t, f, batch)
		}
	}
}

func (e *Engine) closeOneRelationship(owner *schema.Type, f *schema.Field, batch *errs.Batch) {
	rel := f.Relationship
	related, ok := e.Registry.Lookup(rel.RelatedType)
	if !ok {
		batch.Add(errs.Newf(errs.Structural, owner.Name,
			"field %q relates_to %q, but %q is not a defined type", f.Name, rel.RelatedType, rel.RelatedType))
		return
	}
	if !isIndexable(related) {
		batch.Add(errs.Newf(errs.Structural, owner.Name,
			"field %q relates to %q, which is not an indexed type", f.Name, rel.RelatedType))
		return
	}

	e.ensureForeignKeyField(owner, rel, batch)

	filterInputName := e.Namer.DerivedName(rel.RelatedType, typeref.FilterInput)
	sortOrderInputName := e.Namer.DerivedName(rel.RelatedType, typeref.SortOrderInput)

	if rel.Cardinality == schema.Many {
		connName := e.Namer.DerivedName(rel.RelatedType, typeref.Connection)
		e.deriveConnectionFor(connName, rel.RelatedType, true, batch)
		f.Type = typeref.NewNamed(connName)
		f.Directives = append(f.Directives, schema.Directive{
			Name: "elasticGraphRelationshipArgs",
			Args: map[string]interface{}{
				"filter":     filterInputName,
				"order_by":   sortOrderInputName,
				"first":      "Int",
				"foreignKey": rel.ForeignKey,
				"direction":  string(rel.Direction),
			},
		})
		return
	}

	f.Type = typeref.NewNamed(rel.RelatedType)
	f.Directives = append(f.Directives, schema.Directive{
		Name: "elasticGraphRelationshipArgs",
		Args: map[string]interface{}{
			"foreignKey": rel.ForeignKey,
			"direction":  string(rel.Direction),
		},
	})
}

// ensureForeignKeyField synthesizes the foreign key field backing a
// relationship when the user didn't already declare a field under that
// name. User-defined fields always win over synthesized ones: we only
// touch a type's Fields slice when ForeignKey isn't already present
// there.
//
// Out: the key lives on owner, pointing at the related document.
// In: the key lives on the related type, pointing back at owner,
// except for a one-side self-reference (related == owner), where there
// is no separate "other side" to host a plain ID -- instead a typed
// field referencing owner's own type is synthesized.
func (e *Engine) ensureForeignKeyField(owner *schema.Type, rel *schema.RelationshipSpec, batch *errs.Batch) {
	if rel.ForeignKey == "" {
		return
	}

	if rel.Direction == schema.Out {
		for _, existing := range owner.Fields {
			if existing.Name == rel.ForeignKey {
				return
			}
		}
		owner.Fields = append(owner.Fields, e.newForeignKeyField(rel.ForeignKey, typeref.NewNamed("ID"), rel.Cardinality))
		e.noteGenerated(fmt.Sprintf("%s.%s", owner.Name, rel.ForeignKey))
		return
	}

	related, ok := e.Registry.Lookup(rel.RelatedType)
	if !ok {
		return // closeOneRelationship already reported the missing related type
	}

	if related.Name == owner.Name && rel.Cardinality == schema.One {
		for _, existing := range owner.Fields {
			if existing.Name == rel.ForeignKey {
				return
			}
		}
		fk := schema.NewField(rel.ForeignKey, typeref.NewNamed(owner.Name), schema.IndexingOnly())
		owner.Fields = append(owner.Fields, fk)
		e.noteGenerated(fmt.Sprintf("%s.%s", owner.Name, rel.ForeignKey))
		return
	}

	var onOwner, onRelated *schema.Field
	for _, f := range owner.Fields {
		if f.Name == rel.ForeignKey {
			onOwner = f
			break
		}
	}
	for _, f := range related.Fields {
		if f.Name == rel.ForeignKey {
			onRelated = f
			break
		}
	}
	if onOwner != nil && onRelated != nil && onOwner.Type.String() != onRelated.Type.String() {
		e.relationshipWarnings = append(e.relationshipWarnings, fmt.Sprintf(
			"relationship %q: foreign key %q is defined inconsistently on both %q (%s) and %q (%s)",
			rel.Name, rel.ForeignKey, owner.Name, onOwner.Type, related.Name, onRelated.Type))
	}
	if onRelated != nil {
		return
	}

	related.Fields = append(related.Fields, e.newForeignKeyField(rel.ForeignKey, typeref.NewNamed("ID"), rel.Cardinality))
	e.noteGenerated(fmt.Sprintf("%s.%s", related.Name, rel.ForeignKey))
}

func (e *Engine) newForeignKeyField(name string, idType typeref.Ref, cardinality schema.Cardinality) *schema.Field {
	fkType := idType
	if cardinality == schema.Many {
		fkType = typeref.NewList(typeref.NewNonNull(idType))
	}
	return schema.NewField(name, fkType, schema.IndexingOnly())
}
