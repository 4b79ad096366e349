package derive

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// deriveSortOrders builds, for every indexable object/interface type, a
// `<T>SortOrderInput` enum whose values are `<path>_ASC`/`<path>_DESC`
// for every sortable leaf field reachable from T (direct leaves only,
// same depth rule aggregations.go applies to grouped_by -- deeper
// ordering is expressed by repeating entries in the list-valued
// order_by argument, not by the enum itself).
//
// When the type has an id field, the enum also carries an
// elasticGraphCursorTiebreaker directive naming it. No extra enum
// values are added for it, and no pass or emitter in this module
// appends id to a requested ordering.
func (e *Engine) deriveSortOrders(batch *errs.Batch) {
	for _, t := range e.Registry.All() {
		if !isIndexable(t) {
			continue
		}
		e.deriveSortOrderFor(t, batch)
	}
}

func (e *Engine) deriveSortOrderFor(t *schema.Type, batch *errs.Batch) {
	name := e.Namer.DerivedName(t.Name, typeref.SortOrderInput)
	enum := &schema.Type{Name: name, Kind: schema.KindEnum}

	idFieldName := findIDFieldName(t)

	for _, f := range t.Fields {
		if f.GraphQLOnly || !isLeafField(e.Registry, f) || f.Type.IsList() {
			continue
		}
		enum.EnumValues = append(enum.EnumValues,
			schema.EnumValue{CanonicalName: typeref.SortOrderValueName([]string{f.Name}, false), OriginalName: f.Name + "_ASC"},
			schema.EnumValue{CanonicalName: typeref.SortOrderValueName([]string{f.Name}, true), OriginalName: f.Name + "_DESC"},
		)
	}

	if idFieldName != "" {
		// Records the tiebreaker field on the enum only; emit/runtime
		// does not read this directive.
		enum.Directives = append(enum.Directives, schema.Directive{
			Name: "elasticGraphCursorTiebreaker",
			Args: map[string]interface{}{"field": idFieldName},
		})
	}

	e.register(enum, batch)
}

func findIDFieldName(t *schema.Type) string {
	for _, f := range t.Fields {
		if f.Name == "id" {
			return f.Name
		}
	}
	return ""
}
