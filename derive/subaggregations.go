package derive

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// deriveSubAggregations handles every occurrence of
// a nested-mapped list field inside an indexed type -- including
// transitively, through non-nested object layers -- derive a uniquely
// named <OwnerPath><ElementType>SubAggregation type and connection.
//
// Unions of indexed types never generate sub-aggregations (they keep
// only the basic TAggregation from aggregations.go): this pass skips
// them, and RequestSubAggregationOnUnion builds the SchemaError that
// reports the restriction.
func (e *Engine) deriveSubAggregations(batch *errs.Batch) {
	for _, t := range e.Registry.All() {
		if !isIndexable(t) {
			continue
		}
		fields := e.walkSubAggregations(t, []string{t.Name}, t, map[string]bool{t.Name: true}, batch)
		if len(fields) == 0 {
			continue
		}
		subAggsName := e.Namer.DerivedName(t.Name, typeref.AggregationSubAggregations)
		subAggs := &schema.Type{Name: subAggsName, Kind: schema.KindObject, GraphQLOnly: true, Fields: fields}
		e.register(subAggs, batch)

		aggName := e.Namer.DerivedName(t.Name, typeref.Aggregation)
		if agg, ok := e.Registry.Lookup(aggName); ok {
			agg.Fields = append(agg.Fields, schema.NewField(e.Namer.ElementName("sub_aggregations"), typeref.NewNamed(subAggsName)))
		}
	}
}

// RequestSubAggregationOnUnion builds the Derivation-category
// SchemaError stating that unions of indexed types have no
// sub-aggregations. No pass in this module calls it:
// deriveSubAggregations skips unions without reporting anything.
func RequestSubAggregationOnUnion(unionName string) *errs.SchemaError {
	return errs.Newf(errs.Derivation, unionName,
		"sub-aggregations are not supported on unions of indexed types (%q); this is a deliberate limitation, not a missing feature", unionName).
		WithRemedies("aggregate the union's basic TAggregation instead of requesting TAggregationSubAggregations")
}

// walkSubAggregations recurses through currentType's fields looking for
// nested list fields, building the owner-path as it goes by
// concatenating type names along the chain of object/nested ancestors.
// visited guards against cycles through non-nested object layers: the
// registry's acyclicity invariant already forbids cycles through plain
// object references, but sub-aggregation walking runs before that
// check would otherwise fire, so we defend locally too.
func (e *Engine) walkSubAggregations(owner *schema.Type, path []string, currentType *schema.Type, visited map[string]bool, batch *errs.Batch) []*schema.Field {
	var fields []*schema.Field

	for _, f := range currentType.Fields {
		if f.GraphQLOnly || f.IndexingOnly {
			continue
		}
		elementName := string(f.Type.FullyUnwrapped())
		elementType, ok := e.Registry.Lookup(elementName)
		if !ok || (elementType.Kind != schema.KindObject && elementType.Kind != schema.KindInterface) {
			continue
		}

		isNested := f.Mapping != nil && f.Mapping.Type == schema.MappingNested
		if f.Type.IsList() && isNested {
			newPath := append(append([]string{}, path...), elementName)
			fields = append(fields, e.deriveOneSubAggregation(owner, f, newPath, elementType, batch))
			if !visited[elementName] {
				visited[elementName] = true
				// Recurse inside the nested element for further,
				// transitively-nested sub-aggregations; the resulting
				// deeper sub-aggregation types are registered as a
				// side effect of deriveOneSubAggregation itself.
			}
			continue
		}

		if !f.Type.IsList() && !visited[elementName] {
			visited[elementName] = true
			newPath := append(append([]string{}, path...), elementName)
			fields = append(fields, e.walkSubAggregations(owner, newPath, elementType, visited, batch)...)
		}
	}
	return fields
}

// deriveOneSubAggregation builds the <OwnerPath><ElementType>SubAggregation
// type, its own grouped_by/aggregated_values/recursive sub_aggregations,
// and its Relay connection, then returns the field that exposes it on
// the owner's TAggregationSubAggregations type (accepting `filter` and
// `first`).
func (e *Engine) deriveOneSubAggregation(owner *schema.Type, listField *schema.Field, path []string, elementType *schema.Type, batch *errs.Batch) *schema.Field {
	subAggName := e.Namer.SubAggregationPathName(path, typeref.SubAggregation)

	sub := &schema.Type{Name: subAggName, Kind: schema.KindObject, GraphQLOnly: true}
	sub.Fields = append(sub.Fields,
		schema.NewField(e.Namer.ElementName("count"), typeref.NewNonNull(typeref.NewNamed("JsonSafeLong"))))

	groupable, aggregatable := groupableAndAggregatableLeaves(e.Registry, elementType)
	if len(groupable) > 0 {
		groupedByName := e.deriveGroupedBy(elementType, groupable, batch)
		sub.Fields = append(sub.Fields, schema.NewField(e.Namer.ElementName("grouped_by"), typeref.NewNamed(groupedByName)))
	}
	if len(aggregatable) > 0 {
		aggregatedValuesName := e.deriveAggregatedValues(elementType, aggregatable, batch)
		sub.Fields = append(sub.Fields, schema.NewField(e.Namer.ElementName("aggregated_values"), typeref.NewNamed(aggregatedValuesName)))
	}

	nestedFields := e.walkSubAggregations(owner, path, elementType, map[string]bool{path[len(path)-1]: true}, batch)
	if len(nestedFields) > 0 {
		nestedSubAggsName := e.Namer.SubAggregationPathName(path, typeref.SubAggregationSubAggregations)
		nestedSubAggs := &schema.Type{Name: nestedSubAggsName, Kind: schema.KindObject, GraphQLOnly: true, Fields: nestedFields}
		e.register(nestedSubAggs, batch)
		sub.Fields = append(sub.Fields, schema.NewField(e.Namer.ElementName("sub_aggregations"), typeref.NewNamed(nestedSubAggsName)))
	}
	e.register(sub, batch)

	connName := e.Namer.SubAggregationPathName(path, typeref.SubAggregationConnection)
	e.deriveConnectionFor(connName, subAggName, true, batch)

	filterInputName := e.Namer.DerivedName(elementType.Name, typeref.FilterInput)
	field := schema.NewField(listField.Name, typeref.NewNamed(connName))
	field.Directives = append(field.Directives, schema.Directive{
		Name: "elasticGraphSubAggregationArgs",
		Args: map[string]interface{}{"filter": filterInputName, "first": "Int"},
	})
	if listField.CustomizeSubAggregationsField != nil || listField.CustomizeSubAggregationsFieldCEL != "" {
		e.applyCustomizeSubAggregationsField(listField, field, batch)
	}
	return field
}
