// Package jsonschema implements the JSON Schema Emitter:
// two related artifacts -- a pruned public schema and a versioned
// internal schema carrying per-field indexing metadata -- built from
// the same completed registry the SDL emitter reads.
package jsonschema

import (
	"sort"

	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"

	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// Def is one entry of the $defs dictionary; kept as a plain
// map[string]interface{} since draft-7 schemas are inherently
// heterogeneous and a typed struct would fight the format at every
// composition rule (allOf/oneOf/anyOf).
type Def = map[string]interface{}

// Artifact is one of the two documents this package emits: the public
// (pruned, metadata-stripped) schema or the versioned (internal,
// fully-annotated) schema.
type Artifact struct {
	Schema            string            `json:"$schema"`
	JSONSchemaVersion int               `json:"json_schema_version"`
	Defs              map[string]Def    `json:"$defs"`
}

const draft7 = "http://json-schema.org/draft-07/schema#"

// keywordIndexMaxLength and textIndexMaxLength are the default string
// length bounds applied to String/ID scalars, chosen per mapping kind
// (keyword vs text).
const (
	keywordIndexMaxLength = 8191
	textIndexMaxLength    = 32766
)

// Emit builds both artifacts for a fully derived registry and
// self-validates the public one.
func Emit(reg *schema.Registry) (public, versioned *Artifact, err error) {
	version, ok := reg.JSONSchemaVersion()
	if !ok {
		return nil, nil, errs.New(errs.JSONSchema, "json_schema_version", "json_schema_version was never set")
	}

	versioned = &Artifact{Schema: draft7, JSONSchemaVersion: version, Defs: map[string]Def{}}

	for _, t := range reg.All() {
		def, skip := buildDef(reg, t, true)
		if !skip {
			versioned.Defs[t.Name] = def
		}
	}
	versioned.Defs[schema.EnvelopeTypeName] = buildEnvelopeDef(reg, version)

	public = &Artifact{Schema: draft7, JSONSchemaVersion: version, Defs: map[string]Def{}}
	for name, def := range versioned.Defs {
		public.Defs[name] = stripInternalMetadata(def)
	}
	prunePublic(public, reg)

	if err := selfValidate(public); err != nil {
		return nil, nil, err
	}
	return public, versioned, nil
}

// buildDef renders one type's $defs entry composition
// rules. withMetadata controls whether per-field {"ElasticGraph": {...}}
// blocks are attached (only true for the versioned artifact).
func buildDef(reg *schema.Registry, t *schema.Type, withMetadata bool) (Def, bool) {
	switch t.Kind {
	case schema.KindScalar:
		return buildScalarDef(t), false
	case schema.KindEnum:
		values := make([]string, 0, len(t.EnumValues))
		for _, v := range t.EnumValues {
			values = append(values, v.CanonicalName)
		}
		return Def{"type": "string", "enum": values}, false
	case schema.KindUnion:
		var oneOf []Def
		for _, m := range t.UnionMembers {
			oneOf = append(oneOf, Def{"$ref": "#/$defs/" + m})
		}
		return Def{"oneOf": oneOf, "required": []string{"__typename"}}, false
	case schema.KindInterface:
		var oneOf []Def
		for _, other := range reg.All() {
			if other.Kind != schema.KindObject {
				continue
			}
			for _, impl := range other.ImplementedInterfaces {
				if impl == t.Name {
					oneOf = append(oneOf, Def{"$ref": "#/$defs/" + other.Name})
				}
			}
		}
		return Def{"oneOf": oneOf, "required": []string{"__typename"}}, false
	case schema.KindObject:
		if t.GraphQLOnly {
			// Derived GraphQL-surface-only plumbing (connections, edges,
			// aggregations, page info, ...) never appears in an event
			// payload, so it has no place in the JSON Schema artifacts.
			return nil, true
		}
		return buildObjectDef(reg, t, withMetadata), false
	default:
		return nil, true
	}
}

func buildScalarDef(t *schema.Type) Def {
	def := Def{"type": t.Scalar.JSONSchemaType}
	switch t.Name {
	case "Int":
		def["minimum"] = -2147483648
		def["maximum"] = 2147483647
	case "JsonSafeLong":
		def["minimum"] = -(int64(1)<<53 - 1)
		def["maximum"] = int64(1)<<53 - 1
	case "LongString":
		def["minimum"] = -(int64(1)<<63 - 1)
		def["maximum"] = int64(1)<<63 - 1
	case "String", "ID":
		def["maxLength"] = keywordIndexMaxLength
	}
	for k, v := range t.Scalar.JSONSchemaOpts {
		def[k] = v
	}
	return def
}

func buildObjectDef(reg *schema.Registry, t *schema.Type, withMetadata bool) Def {
	props := Def{
		"__typename": Def{"type": "string", "const": t.Name, "default": t.Name},
	}
	var required []string
	if t.Index != nil {
		required = append(required, "__typename")
	}

	indexRoleFields := forcedNonNullFields(t)

	for _, f := range t.Fields {
		if f.GraphQLOnly {
			continue
		}
		fieldDef := fieldSchema(f, indexRoleFields[f.Name])
		if withMetadata {
			fieldDef = Def{
				"allOf": []Def{fieldDef},
				"ElasticGraph": Def{
					"type":        f.Type.String(),
					"nameInIndex": f.NameInIndex,
				},
			}
		}
		props[f.NameInIndex] = fieldDef
		required = append(required, f.NameInIndex)
	}

	sort.Strings(required)
	return Def{"type": "object", "properties": props, "required": required}
}

// forcedNonNullFields names the fields of t that back its index's
// rollover timestamp or shard-routing key -- these must be treated as
// required/non-null in the JSON Schema even when nullable in GraphQL,
//
func forcedNonNullFields(t *schema.Type) map[string]bool {
	forced := map[string]bool{}
	if t.Index == nil {
		return forced
	}
	if t.Index.Rollover != nil {
		forced[t.Index.Rollover.TimestampFieldPath] = true
	}
	if t.Index.RouteWith != "" {
		forced[t.Index.RouteWith] = true
	}
	return forced
}

// fieldSchema renders one field's type as a draft-7 fragment: nullable
// types become anyOf[ref, null], lists become {type: array, items:
// <element>}, and any json_schema customization is merged in via allOf,
//forceNonNull additionally drops the anyOf-null branch
// and, for string-backed scalars, appends a non-blank pattern.
func fieldSchema(f *schema.Field, forceNonNull bool) Def {
	base := typeSchema(f.Type, f.Type.IsNonNull() || forceNonNull)

	custom := Def{}
	for k, v := range f.JSONSchemaOpts {
		custom[k] = v
	}
	isStringLike := f.Type.FullyUnwrapped() == "String" || f.Type.FullyUnwrapped() == "ID"
	if forceNonNull && isStringLike {
		custom["pattern"] = "^.+$"
	}
	if f.Mapping != nil && f.Mapping.Type == schema.MappingText && isStringLike {
		if _, overridden := custom["maxLength"]; !overridden {
			custom["maxLength"] = textIndexMaxLength
		}
	}
	if len(custom) == 0 {
		return base
	}
	return Def{"allOf": []Def{base, custom}}
}

// typeSchema renders r as a draft-7 fragment, unwrapping List/NonNull
// recursively. nonNull suppresses the anyOf-null wrapper a nullable
// reference would otherwise get.
func typeSchema(r typeref.Ref, nonNull bool) Def {
	switch v := r.(type) {
	case typeref.NonNull:
		return typeSchema(v.Of, true)
	case typeref.List:
		return Def{"type": "array", "items": typeSchema(v.Of, false)}
	default:
		ref := Def{"$ref": "#/$defs/" + string(r.FullyUnwrapped())}
		if nonNull {
			return ref
		}
		return Def{"anyOf": []Def{ref, {"type": "null"}}}
	}
}

func buildEnvelopeDef(reg *schema.Registry, version int) Def {
	var typeNames []string
	for _, t := range reg.All() {
		if t.Kind == schema.KindObject && t.Index != nil {
			typeNames = append(typeNames, t.Name)
		}
	}
	sort.Strings(typeNames)

	return Def{
		"type": "object",
		"properties": Def{
			"op":                  Def{"type": "string", "enum": []string{"upsert"}},
			"type":                Def{"type": "string", "enum": typeNames},
			"id":                  Def{"type": "string"},
			"version":             Def{"type": "integer", "minimum": 0, "maximum": int64(1) << 62},
			"record":              Def{"type": "object"},
			"latency_timestamps":  Def{"type": "object", "patternProperties": Def{`^\w+_at$`: Def{"type": "string", "format": "date-time"}}},
			"message_id":          Def{"type": "string"},
			"json_schema_version": Def{"const": version},
		},
		"required": []string{"op", "type", "id", "version", "json_schema_version"},
	}
}

// stripInternalMetadata removes the {"ElasticGraph": {...}} blocks a
// versioned-artifact field definition carries, producing the public
// form
func stripInternalMetadata(def Def) Def {
	out := Def{}
	for k, v := range def {
		if k == "properties" {
			props, ok := v.(Def)
			if !ok {
				out[k] = v
				continue
			}
			strippedProps := Def{}
			for pk, pv := range props {
				strippedProps[pk] = stripFieldMetadata(pv)
			}
			out[k] = strippedProps
			continue
		}
		out[k] = v
	}
	return out
}

func stripFieldMetadata(v interface{}) interface{} {
	def, ok := v.(Def)
	if !ok {
		return v
	}
	if _, hasMeta := def["ElasticGraph"]; hasMeta {
		if allOf, ok := def["allOf"].([]Def); ok && len(allOf) > 0 {
			return allOf[0]
		}
	}
	return def
}

// prunePublic prunes the public artifact: starting from the envelope
// and the indexable type names, compute the reachable closure through
// $ref and drop every unreferenced $defs entry.
func prunePublic(a *Artifact, reg *schema.Registry) {
	roots := []string{schema.EnvelopeTypeName}
	for _, t := range reg.All() {
		if (t.Kind == schema.KindObject || t.Kind == schema.KindInterface) && t.Index != nil {
			roots = append(roots, t.Name)
		}
	}

	reachable := map[string]bool{}
	var walk func(name string)
	walk = func(name string) {
		if reachable[name] {
			return
		}
		def, ok := a.Defs[name]
		if !ok {
			return
		}
		reachable[name] = true
		for _, ref := range collectRefs(def) {
			walk(ref)
		}
	}
	for _, r := range roots {
		walk(r)
	}

	for name := range a.Defs {
		if !reachable[name] {
			delete(a.Defs, name)
		}
	}
}

func collectRefs(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case Def:
		if ref, ok := val["$ref"].(string); ok {
			out = append(out, refName(ref))
		}
		for _, sub := range val {
			out = append(out, collectRefs(sub)...)
		}
	case []Def:
		for _, sub := range val {
			out = append(out, collectRefs(sub)...)
		}
	case []interface{}:
		for _, sub := range val {
			out = append(out, collectRefs(sub)...)
		}
	}
	return out
}

func refName(ref string) string {
	const prefix = "#/$defs/"
	if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
		return ref[len(prefix):]
	}
	return ref
}

// selfValidate compiles the public artifact as a meta-schema document
// through santhosh-tekuri/jsonschema/v5, confirming every $def is itself
// valid draft-7 before it's handed to callers -- a defect here (e.g. a
// malformed allOf produced by a customization bug) is caught at compile
// time instead of surfacing as a runtime validation failure against real
// event payloads.
func selfValidate(a *Artifact) error {
	compiler := jsonschemav5.NewCompiler()
	compiler.Draft = jsonschemav5.Draft7

	doc := map[string]interface{}{
		"$schema": a.Schema,
		"$defs":   a.Defs,
	}
	if err := compiler.AddResource("elasticgraph://compiled-schema.json", doc); err != nil {
		return errs.Newf(errs.JSONSchema, "<schema>", "public JSON Schema artifact is malformed: %v", err)
	}
	if _, err := compiler.Compile("elasticgraph://compiled-schema.json"); err != nil {
		return errs.Newf(errs.JSONSchema, "<schema>", "public JSON Schema artifact failed self-validation: %v", err)
	}
	return nil
}
