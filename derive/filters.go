package derive

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// deriveFilters builds a *FilterInput for every scalar/enum/object/
// interface/union type in the registry. Each type's own *FilterInput is
// independent of the others (no ordering constraint among them), so
// this single pass is enough; cross-references between sibling filter
// inputs (any_of referencing the same FilterInput) are fine because
// typeref.Ref only needs a name, not the target to already be
// registered.
func (e *Engine) deriveFilters(batch *errs.Batch) {
	for _, t := range e.Registry.All() {
		if !isFilterable(t) {
			continue
		}
		filterInputName := e.Namer.DerivedName(t.Name, typeref.FilterInput)
		filterInput := e.buildFilterInput(t, filterInputName, true)
		e.register(filterInput, batch)

		// ListElementFilterInput: same predicates, no "not".
		elemName := e.Namer.DerivedName(t.Name, typeref.ListElementFilterInput)
		elemInput := e.buildFilterInput(t, elemName, false)
		e.register(elemInput, batch)

		// ListFilterInput: wraps the above with any_satisfy/all_of/count.
		listName := e.Namer.DerivedName(t.Name, typeref.ListFilterInput)
		listInput := &schema.Type{Name: listName, Kind: schema.KindInput}
		listInput.Fields = append(listInput.Fields,
			schema.NewField(e.Namer.ElementName("any_satisfy"), typeref.NewNamed(elemName)),
			schema.NewField(e.Namer.ElementName("all_of"), typeref.NewList(typeref.NewNonNull(typeref.NewNamed(listName)))),
			schema.NewField(e.Namer.ElementName("count"), typeref.NewNamed("IntFilterInput")),
		)
		e.register(listInput, batch)

		if t.Kind == schema.KindObject {
			// FieldsListFilterInput applies when T is referenced as a
			// plain (non-nested) list field elsewhere; since that's a
			// property of the referencing field rather than of T
			// itself (nested-ness is decided per use-site, see
			// subaggregations.go), we derive it unconditionally for
			// every object type and let the SDL pruning pass drop it
			// if nothing ever references it as such a list.
			fieldsListName := e.Namer.DerivedName(t.Name, typeref.FieldsListFilterInput)
			fieldsListInput := e.buildFilterInput(t, fieldsListName, true)
			fieldsListInput.Fields = append(fieldsListInput.Fields,
				schema.NewField(e.Namer.ElementName("count"), typeref.NewNamed("IntFilterInput")))
			e.register(fieldsListInput, batch)
		}
	}

	e.registerIntFilterInput(batch)
}

func isFilterable(t *schema.Type) bool {
	switch t.Kind {
	case schema.KindScalar, schema.KindEnum, schema.KindObject, schema.KindInterface, schema.KindUnion:
		return true
	default:
		return false
	}
}

// buildFilterInput builds the full predicate set for t, optionally
// including "not" (excluded for *ListElementFilterInput).
func (e *Engine) buildFilterInput(t *schema.Type, name string, includeNot bool) *schema.Type {
	filter := &schema.Type{Name: name, Kind: schema.KindInput}
	named := typeref.NewNamed(t.Name)

	filter.Fields = append(filter.Fields,
		schema.NewField(e.Namer.ElementName("any_of"), typeref.NewList(typeref.NewNonNull(typeref.NewNamed(name)))))
	if includeNot {
		filter.Fields = append(filter.Fields, schema.NewField(e.Namer.ElementName("not"), typeref.NewNamed(name)))
	}

	switch t.Kind {
	case schema.KindScalar:
		e.addScalarPredicates(filter, t, named)
	case schema.KindEnum:
		filter.Fields = append(filter.Fields,
			schema.NewField(e.Namer.ElementName("equal_to_any_of"), typeref.NewList(named)))
	case schema.KindUnion:
		filter.Fields = append(filter.Fields,
			schema.NewField(e.Namer.ElementName("equal_to_any_of"), typeref.NewList(named)))
	case schema.KindObject, schema.KindInterface:
		if t.Name == "GeoLocation" || isGeoPoint(t) {
			e.addGeoPredicates(filter)
		}
		for _, f := range t.Fields {
			if !f.Filterable || f.GraphQLOnly {
				continue
			}
			subFilterName := e.filterInputNameFor(f)
			if subFilterName == "" {
				continue
			}
			filter.Fields = append(filter.Fields, schema.NewField(f.Name, typeref.NewNamed(subFilterName)))
		}
	}
	return filter
}

// filterInputNameFor picks the right derived filter-input name for a
// field reference, accounting for list-ness.
func (e *Engine) filterInputNameFor(f *schema.Field) string {
	base := string(f.Type.FullyUnwrapped())
	if f.Type.IsList() {
		return e.Namer.DerivedName(base, typeref.ListFilterInput)
	}
	return e.Namer.DerivedName(base, typeref.FilterInput)
}

func isGeoPoint(t *schema.Type) bool {
	if t.Kind != schema.KindObject {
		return false
	}
	names := map[string]bool{}
	for _, f := range t.Fields {
		names[f.Name] = true
	}
	return names["latitude"] && names["longitude"]
}

func (e *Engine) addScalarPredicates(filter *schema.Type, t *schema.Type, named typeref.Named) {
	filter.Fields = append(filter.Fields,
		schema.NewField(e.Namer.ElementName("equal_to_any_of"), typeref.NewList(named)))

	m := t.Scalar.Mapping.Type
	if m.SupportsRange() {
		for _, op := range []string{"gt", "gte", "lt", "lte"} {
			filter.Fields = append(filter.Fields, schema.NewField(e.Namer.ElementName(op), named))
		}
	}
	if m == schema.MappingDate || m == schema.MappingDateTime {
		timeOfDayName := e.Namer.DerivedName(t.Name, "TimeOfDayFilterInput")
		timeOfDay := &schema.Type{Name: timeOfDayName, Kind: schema.KindInput}
		timeOfDay.Fields = append(timeOfDay.Fields,
			schema.NewField(e.Namer.ElementName("gt"), named),
			schema.NewField(e.Namer.ElementName("gte"), named),
			schema.NewField(e.Namer.ElementName("lt"), named),
			schema.NewField(e.Namer.ElementName("lte"), named),
			schema.NewField(e.Namer.ElementName("equal_to_any_of"), typeref.NewList(named)),
			schema.NewField(e.Namer.ElementName("time_zone"), typeref.NewNamed("String")),
		)
		e.noteGenerated(timeOfDayName)
		_ = e.Registry.MustRegister(timeOfDay)
		filter.Fields = append(filter.Fields, schema.NewField(e.Namer.ElementName("time_of_day"), typeref.NewNamed(timeOfDayName)))
	}
	if m == schema.MappingText {
		filter.Fields = append(filter.Fields, schema.NewField(e.Namer.ElementName("matches"), named))

		queryName := e.Namer.DerivedName(t.Name, "MatchesQueryFilterInput")
		query := &schema.Type{Name: queryName, Kind: schema.KindInput}
		query.Fields = append(query.Fields,
			schema.NewField(e.Namer.ElementName("query"), typeref.NewNonNull(typeref.NewNamed("String"))),
			schema.NewField(e.Namer.ElementName("allowed_edits_per_term"), typeref.NewNamed("MatchesQueryAllowedEditsPerTerm")),
			schema.NewField(e.Namer.ElementName("require_all_terms"), typeref.NewNamed("Boolean")),
		)
		e.noteGenerated(queryName)
		_ = e.Registry.MustRegister(query)
		filter.Fields = append(filter.Fields, schema.NewField(e.Namer.ElementName("matches_query"), typeref.NewNamed(queryName)))

		phraseName := e.Namer.DerivedName(t.Name, "MatchesPhraseFilterInput")
		phrase := &schema.Type{Name: phraseName, Kind: schema.KindInput}
		phrase.Fields = append(phrase.Fields,
			schema.NewField(e.Namer.ElementName("phrase"), typeref.NewNonNull(typeref.NewNamed("String"))))
		e.noteGenerated(phraseName)
		_ = e.Registry.MustRegister(phrase)
		filter.Fields = append(filter.Fields, schema.NewField(e.Namer.ElementName("matches_phrase"), typeref.NewNamed(phraseName)))
	}
}

func (e *Engine) addGeoPredicates(filter *schema.Type) {
	nearName := "GeoLocationDistanceFilterInput"
	near := &schema.Type{Name: nearName, Kind: schema.KindInput}
	near.Fields = append(near.Fields,
		schema.NewField(e.Namer.ElementName("latitude"), typeref.NewNonNull(typeref.NewNamed("Float"))),
		schema.NewField(e.Namer.ElementName("longitude"), typeref.NewNonNull(typeref.NewNamed("Float"))),
		schema.NewField(e.Namer.ElementName("max_distance"), typeref.NewNonNull(typeref.NewNamed("Float"))),
		schema.NewField(e.Namer.ElementName("unit"), typeref.NewNonNull(typeref.NewNamed("DistanceUnit"))),
	)
	if _, ok := e.Registry.Lookup(nearName); !ok {
		e.noteGenerated(nearName)
		_ = e.Registry.MustRegister(near)
	}
	filter.Fields = append(filter.Fields, schema.NewField(e.Namer.ElementName("near"), typeref.NewNamed(nearName)))
}

// registerIntFilterInput ensures the IntFilterInput used by every
// *ListFilterInput's `count` field (and *FieldsListFilterInput's)
// exists exactly once, derived the same way any other scalar's filter
// would be "count: IntFilterInput (maps to an
// internal __counts field)".
func (e *Engine) registerIntFilterInput(batch *errs.Batch) {
	if _, ok := e.Registry.Lookup("IntFilterInput"); ok {
		return
	}
	intType, ok := e.Registry.Lookup("Int")
	if !ok {
		return
	}
	filter := e.buildFilterInput(intType, "IntFilterInput", true)
	e.register(filter, batch)
}
