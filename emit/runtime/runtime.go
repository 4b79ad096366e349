// Package runtime implements the Runtime Metadata Emitter:
// a single bundle of per-type, per-field, per-index, and per-enum
// metadata consumed by the query and indexing processes.
package runtime

import (
	"go.elasticgraph.dev/compiler/schema"
)

// ObjectTypeMetadata is one object_types_by_name entry.
type ObjectTypeMetadata struct {
	IndexFieldPathByGraphQLName map[string]string `json:"index_field_path_by_graphql_name"`
	AggregatedValueComputations map[string]string  `json:"aggregated_value_computations,omitempty"`
	SubAggregationPaths         []string           `json:"sub_aggregation_paths,omitempty"`
	UpdateTargets                []UpdateTarget     `json:"update_targets,omitempty"`
	ElasticGraphCategory         string             `json:"elasticgraph_category,omitempty"`
}

// UpdateTarget is one sourced_from-closure entry: which
// destination type/fields a source type's events must update.
type UpdateTarget struct {
	DestinationType string            `json:"destination_type"`
	JoinKey         string            `json:"join_key"` // destination-to-source join key mapping
	FieldPaths      map[string]string `json:"field_paths"` // destination field -> source field path
}

// ScalarTypeMetadata is one scalar_types_by_name entry.
type ScalarTypeMetadata struct {
	MappingType string `json:"mapping_type"`
}

// EnumTypeMetadata is one enum_types_by_name entry: per-value overrides.
type EnumTypeMetadata struct {
	ValueOverrides map[string]string `json:"value_overrides,omitempty"`
}

// IndexDefinitionMetadata is one index_definitions_by_name entry.
type IndexDefinitionMetadata struct {
	RouteWith   string   `json:"route_with,omitempty"`
	RolloverOn  string   `json:"rollover_on,omitempty"`
	DefaultSort []string `json:"default_sort,omitempty"`
}

// Bundle is the top-level runtime metadata artifact.
type Bundle struct {
	ObjectTypesByName             map[string]ObjectTypeMetadata `json:"object_types_by_name"`
	ScalarTypesByName             map[string]ScalarTypeMetadata `json:"scalar_types_by_name"`
	EnumTypesByName                map[string]EnumTypeMetadata   `json:"enum_types_by_name"`
	IndexDefinitionsByName         map[string]IndexDefinitionMetadata `json:"index_definitions_by_name"`
	SchemaElementNames              map[string]string             `json:"schema_element_names"`
	GraphQLExtensionModules         []string                      `json:"graphql_extension_modules"`
	StaticScriptIDsByScopedName     map[string]string             `json:"static_script_ids_by_scoped_name"`
}

// Emit builds the runtime metadata bundle for a fully derived registry,
// pruning any entry whose type name is not present in reachableTypeNames
// (the set the SDL emitter's normalization pass computed).
func Emit(reg *schema.Registry, reachableTypeNames map[string]bool, updateTargetsBySourceType map[string][]UpdateTarget) *Bundle {
	b := &Bundle{
		ObjectTypesByName:         map[string]ObjectTypeMetadata{},
		ScalarTypesByName:         map[string]ScalarTypeMetadata{},
		EnumTypesByName:           map[string]EnumTypeMetadata{},
		IndexDefinitionsByName:    map[string]IndexDefinitionMetadata{},
		SchemaElementNames:        map[string]string{},
		StaticScriptIDsByScopedName: map[string]string{},
	}

	for _, t := range reg.All() {
		if reachableTypeNames != nil && !reachableTypeNames[t.Name] {
			continue
		}
		switch t.Kind {
		case schema.KindObject, schema.KindInterface:
			b.ObjectTypesByName[t.Name] = buildObjectMetadata(t, updateTargetsBySourceType[t.Name])
		case schema.KindScalar:
			b.ScalarTypesByName[t.Name] = ScalarTypeMetadata{MappingType: string(t.Scalar.Mapping.Type)}
		case schema.KindEnum:
			b.EnumTypesByName[t.Name] = buildEnumMetadata(t)
		}
		if t.Index != nil {
			b.IndexDefinitionsByName[t.Index.Name] = buildIndexMetadata(t.Index)
		}
	}

	for _, ext := range reg.Extensions() {
		b.GraphQLExtensionModules = append(b.GraphQLExtensionModules, ext.ModuleRef)
	}

	return b
}

func buildObjectMetadata(t *schema.Type, updateTargets []UpdateTarget) ObjectTypeMetadata {
	meta := ObjectTypeMetadata{
		IndexFieldPathByGraphQLName: map[string]string{},
		UpdateTargets:               updateTargets,
	}
	for _, f := range t.Fields {
		meta.IndexFieldPathByGraphQLName[f.Name] = f.NameInIndex
	}
	meta.ElasticGraphCategory = categoryFor(t)
	if len(meta.UpdateTargets) == 0 {
		meta.UpdateTargets = nil
	}
	return meta
}

// categoryFor classifies a derived GraphQL-surface-only type so runtime
// consumers can special-case connections/edges/aggregation selectors
// without string-matching on the derived name, via an elasticgraph_category
// tag (e.g. relay_edge, relay_connection, scalar_aggregated_values).
func categoryFor(t *schema.Type) string {
	if !t.GraphQLOnly {
		return ""
	}
	switch {
	case hasSuffix(t.Name, "Edge"):
		return "relay_edge"
	case hasSuffix(t.Name, "Connection"):
		return "relay_connection"
	case hasSuffix(t.Name, "AggregatedValues"):
		return "scalar_aggregated_values"
	case hasSuffix(t.Name, "Aggregation"):
		return "aggregation"
	case hasSuffix(t.Name, "GroupedBy"):
		return "grouped_by"
	default:
		return ""
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func buildEnumMetadata(t *schema.Type) EnumTypeMetadata {
	overrides := map[string]string{}
	for _, v := range t.EnumValues {
		if v.CanonicalName != v.OriginalName {
			overrides[v.OriginalName] = v.CanonicalName
		}
	}
	return EnumTypeMetadata{ValueOverrides: overrides}
}

func buildIndexMetadata(idx *schema.IndexDescriptor) IndexDefinitionMetadata {
	meta := IndexDefinitionMetadata{RouteWith: idx.RouteWith}
	if idx.Rollover != nil {
		meta.RolloverOn = idx.Rollover.TimestampFieldPath
	}
	for _, c := range idx.DefaultSort {
		meta.DefaultSort = append(meta.DefaultSort, c.FieldPath+"_"+string(c.Direction))
	}
	return meta
}

// UpdateTargetsFromSourcedFrom derives the per-source-type update
// targets from the completed, derivation-closed registry: for every
// destination field with sourced_from set, group by (source type,
// relationship) and collect the destination-field -> source-field-path
// mapping.
func UpdateTargetsFromSourcedFrom(reg *schema.Registry) map[string][]UpdateTarget {
	grouped := map[string]map[string]*UpdateTarget{} // sourceType -> destType -> target

	for _, t := range reg.All() {
		if t.Kind != schema.KindObject && t.Kind != schema.KindInterface {
			continue
		}
		for _, f := range t.Fields {
			if f.SourcedFrom == nil {
				continue
			}
			var rel *schema.RelationshipSpec
			for _, candidate := range t.Fields {
				if candidate.Relationship != nil && candidate.Relationship.Name == f.SourcedFrom.RelationshipName {
					rel = candidate.Relationship
					break
				}
			}
			if rel == nil {
				continue
			}
			byDest, ok := grouped[rel.RelatedType]
			if !ok {
				byDest = map[string]*UpdateTarget{}
				grouped[rel.RelatedType] = byDest
			}
			target, ok := byDest[t.Name]
			if !ok {
				target = &UpdateTarget{DestinationType: t.Name, JoinKey: rel.ForeignKey, FieldPaths: map[string]string{}}
				byDest[t.Name] = target
			}
			target.FieldPaths[f.NameInIndex] = f.SourcedFrom.FieldPath
		}
	}

	out := map[string][]UpdateTarget{}
	for sourceType, byDest := range grouped {
		for _, target := range byDest {
			out[sourceType] = append(out[sourceType], *target)
		}
	}
	return out
}
