package derive

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// deriveAggregations builds a *TAggregation type for every indexed
// object/interface/union type.
func (e *Engine) deriveAggregations(batch *errs.Batch) {
	for _, t := range e.Registry.All() {
		if !isIndexable(t) && t.Kind != schema.KindUnion {
			continue
		}
		if t.Kind == schema.KindUnion && !unionOfIndexedTypes(e.Registry, t) {
			continue
		}
		e.deriveAggregationFor(t, batch)
	}
}

func unionOfIndexedTypes(reg *schema.Registry, u *schema.Type) bool {
	for _, member := range u.UnionMembers {
		mt, ok := reg.Lookup(member)
		if !ok || !isIndexable(mt) {
			return false
		}
	}
	return len(u.UnionMembers) > 0
}

func (e *Engine) deriveAggregationFor(t *schema.Type, batch *errs.Batch) {
	aggName := e.Namer.DerivedName(t.Name, typeref.Aggregation)
	agg := &schema.Type{Name: aggName, Kind: schema.KindObject, GraphQLOnly: true}
	agg.Fields = append(agg.Fields,
		schema.NewField(e.Namer.ElementName("count"), typeref.NewNonNull(typeref.NewNamed("JsonSafeLong"))))

	groupable, aggregatable := groupableAndAggregatableLeaves(e.Registry, t)

	if len(groupable) > 0 {
		groupedByName := e.deriveGroupedBy(t, groupable, batch)
		agg.Fields = append(agg.Fields, schema.NewField(e.Namer.ElementName("grouped_by"), typeref.NewNamed(groupedByName)))
	}
	if len(aggregatable) > 0 {
		aggregatedValuesName := e.deriveAggregatedValues(t, aggregatable, batch)
		agg.Fields = append(agg.Fields, schema.NewField(e.Namer.ElementName("aggregated_values"), typeref.NewNamed(aggregatedValuesName)))
	}

	// sub_aggregations is attached by subaggregations.go once it knows
	// whether T actually owns any nested list fields; it mutates agg
	// in place by looking the type back up in the registry, so we
	// register it here first.
	e.register(agg, batch)
}

// groupableAndAggregatableLeaves walks t's direct fields: this compiler
// does not recurse into sub-objects for top-level grouped_by/
// aggregated_values; recursion through nested objects is exactly what
// sub-aggregations exist to express.
func groupableAndAggregatableLeaves(reg *schema.Registry, t *schema.Type) (groupable, aggregatable []*schema.Field) {
	for _, f := range t.Fields {
		if f.GraphQLOnly || !isLeafField(reg, f) {
			continue
		}
		if f.Groupable {
			groupable = append(groupable, f)
		}
		if f.Aggregatable {
			aggregatable = append(aggregatable, f)
		}
	}
	return
}

func (e *Engine) deriveGroupedBy(t *schema.Type, fields []*schema.Field, batch *errs.Batch) string {
	name := e.Namer.DerivedName(t.Name, typeref.GroupedBy)
	grouped := &schema.Type{Name: name, Kind: schema.KindObject, GraphQLOnly: true}
	for _, f := range fields {
		groupedField := schema.NewField(f.Name, f.Type)
		if f.Tag != nil || f.TagCEL != "" {
			e.applyTag(f, groupedField, batch)
		}
		grouped.Fields = append(grouped.Fields, groupedField)

		mapping, ok := scalarMapping(e.Registry, f)
		if ok && (mapping == schema.MappingDate || mapping == schema.MappingDateTime) {
			grouped.Fields = append(grouped.Fields,
				e.dateGroupingField(f, "as_day_of_week"),
				e.dateGroupingField(f, "as_time_of_day"),
				e.dateGroupingField(f, "as_date"),
				e.dateGroupingField(f, "as_date_time"),
			)
		}
	}
	e.register(grouped, batch)
	return name
}

// dateGroupingField builds one of the date/time subfield accessors
// (as_day_of_week, as_time_of_day, ...) with the per-bucket parameters
// (granularity, time_zone, offset, offset_ms) attached via directive.
func (e *Engine) dateGroupingField(f *schema.Field, accessor string) *schema.Field {
	field := schema.NewField(e.Namer.ElementName(accessor), typeref.NewNamed("String"))
	field.Directives = append(field.Directives, schema.Directive{
		Name: "elasticGraphDateGroupingParams",
		Args: map[string]interface{}{
			"sourceField": f.Name,
			"granularity": e.Namer.ElementName("granularity"),
			"timeZone":    e.Namer.ElementName("time_zone"),
			"offset":      e.Namer.ElementName("offset"),
			"offsetMs":    e.Namer.ElementName("offset_ms"),
		},
	})
	return field
}

func (e *Engine) deriveAggregatedValues(t *schema.Type, fields []*schema.Field, batch *errs.Batch) string {
	name := e.Namer.DerivedName(t.Name, typeref.AggregatedValues)
	values := &schema.Type{Name: name, Kind: schema.KindObject, GraphQLOnly: true}
	for _, f := range fields {
		selectorName := e.Namer.DerivedName(string(f.Type.FullyUnwrapped()), "AggregatedValuesSelector")
		selector, ok := e.Registry.Lookup(selectorName)
		if !ok {
			selector = e.buildAggregatedValuesSelector(selectorName, f.Type, batch)
		}
		_ = selector
		valueField := schema.NewField(f.Name, typeref.NewNamed(selectorName))
		if f.Tag != nil || f.TagCEL != "" {
			e.applyTag(f, valueField, batch)
		}
		values.Fields = append(values.Fields, valueField)
	}
	e.register(values, batch)
	return name
}

// buildAggregatedValuesSelector builds the `{sum, avg, min, max,
// cardinality, approximate_distinct_value_count}` selector type for a
// leaf scalar type. The "exact" functions (sum/avg/min/max/cardinality)
// and the approximate one are tagged via elasticGraphExact /
// elasticGraphApproximate directives; the runtime metadata emitter
// does not read them.
func (e *Engine) buildAggregatedValuesSelector(name string, leaf typeref.Ref, batch *errs.Batch) *schema.Type {
	named := typeref.NewNamed(string(leaf.FullyUnwrapped()))
	sel := &schema.Type{Name: name, Kind: schema.KindObject, GraphQLOnly: true}
	sel.Fields = append(sel.Fields,
		exactAgg(e, "sum", named),
		exactAgg(e, "avg", named),
		exactAgg(e, "min", named),
		exactAgg(e, "max", named),
		exactAgg(e, "cardinality", typeref.NewNamed("JsonSafeLong")),
		approxAgg(e, "approximate_distinct_value_count", typeref.NewNamed("JsonSafeLong")),
	)
	e.register(sel, batch)
	return sel
}

func exactAgg(e *Engine, name string, typ typeref.Ref) *schema.Field {
	f := schema.NewField(e.Namer.ElementName(name), typ)
	f.Directives = append(f.Directives, schema.Directive{Name: "elasticGraphExact"})
	return f
}

func approxAgg(e *Engine, name string, typ typeref.Ref) *schema.Field {
	f := schema.NewField(e.Namer.ElementName(name), typ)
	f.Directives = append(f.Directives, schema.Directive{Name: "elasticGraphApproximate"})
	return f
}
