// Package schema implements the Schema Model & Registry:
// the user-facing builder API used to declare types, fields, indices,
// relationships, and deprecated elements, plus the registry that
// stores them with O(1) lookup by name and enforces uniqueness.
//
// The builder surface exposes setter-style methods on a struct handed
// back to the caller (Field, Implements, Index, Directive) instead of
// reopening the struct, and duplicate registration errors rather than
// panicking. Every field is registered explicitly through the builder
// rather than reflected over a Go struct's exported fields, because the
// schema here describes *data* (ingested events and derived GraphQL
// types), not a set of Go methods to call at request time.
package schema

import (
	"regexp"

	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/typeref"
)

// EnvelopeTypeName is the reserved name for the outermost event
// payload type. It may never be user-defined.
const EnvelopeTypeName = "ElasticGraphEventEnvelope"

var reservedTypeNames = map[string]bool{
	EnvelopeTypeName: true,
	"PageInfo":       true,
	"Cursor":         true,
}

var graphqlNamePattern = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// ValidGraphQLName reports whether name is a syntactically valid
// GraphQL name.
func ValidGraphQLName(name string) bool {
	return graphqlNamePattern.MatchString(name)
}

// Kind tags which of the six entity shapes a Type is.
type Kind string

const (
	KindObject    Kind = "OBJECT"
	KindInterface Kind = "INTERFACE"
	KindUnion     Kind = "UNION"
	KindEnum      Kind = "ENUM"
	KindScalar    Kind = "SCALAR"
	KindInput     Kind = "INPUT_OBJECT"
)

// MappingType enumerates the datastore mapping "type:" values the
// compiler understands well enough to derive filters/aggregations for:
// date, numeric families, text, geo_point, and the built-in scalar
// bounds.
type MappingType string

const (
	MappingKeyword  MappingType = "keyword"
	MappingText     MappingType = "text"
	MappingInteger  MappingType = "integer"
	MappingLong     MappingType = "long"
	MappingFloat    MappingType = "float"
	MappingDouble   MappingType = "double"
	MappingDate     MappingType = "date"
	MappingDateTime MappingType = "date_time"
	MappingBoolean  MappingType = "boolean"
	MappingGeoPoint MappingType = "geo_point"
	MappingObject   MappingType = "object"
	MappingNested   MappingType = "nested"
)

func (m MappingType) isNumeric() bool {
	switch m {
	case MappingInteger, MappingLong, MappingFloat, MappingDouble:
		return true
	}
	return false
}

// SupportsRange reports whether the mapping type supports gt/gte/lt/lte
// range filters.
func (m MappingType) SupportsRange() bool {
	return m == MappingDate || m.isNumeric()
}

// Mapping is a field's datastore mapping descriptor.
type Mapping struct {
	Type    MappingType
	Options map[string]interface{} // extra datastore-specific options
}

// JSONSchemaOptions is the validated key/value map accepted for a
// field's json_schema override. Keys outside AllowedJSONSchemaKeys are
// rejected at registration time.
type JSONSchemaOptions map[string]interface{}

// AllowedJSONSchemaKeys is the fixed allowlist of JSON-Schema draft-7
// keywords a field's json_schema override may set. Any key beginning
// with "ElasticGraph" is additionally always forbidden (it is reserved
// internal metadata), even though it is not itself in this list.
var AllowedJSONSchemaKeys = map[string]bool{
	"maxLength": true, "minLength": true,
	"minimum": true, "maximum": true,
	"exclusiveMinimum": true, "exclusiveMaximum": true,
	"pattern": true, "format": true,
	"multipleOf": true,
}

// ValidateJSONSchemaOptions enforces the allowlist and the reserved
// "ElasticGraph" metadata-key prohibition.
func ValidateJSONSchemaOptions(opts JSONSchemaOptions) *errs.SchemaError {
	for k := range opts {
		if k == "ElasticGraph" || len(k) >= len("ElasticGraph") && k[:len("ElasticGraph")] == "ElasticGraph" {
			return errs.Newf(errs.JSONSchema, k, "json_schema option %q uses the reserved ElasticGraph metadata key", k)
		}
		if !AllowedJSONSchemaKeys[k] {
			return errs.Newf(errs.JSONSchema, k, "json_schema option %q is not in the allowed key set", k).
				WithRemedies("allowed keys: maxLength, minLength, minimum, maximum, exclusiveMinimum, exclusiveMaximum, pattern, format, multipleOf")
		}
	}
	return nil
}

// ScalarDescriptor holds a scalar type's two mandatory descriptors: a
// datastore Mapping and a JSON Schema "type:" descriptor.
type ScalarDescriptor struct {
	Mapping        Mapping
	JSONSchemaType string // e.g. "string", "integer", "number", "boolean"
	JSONSchemaOpts JSONSchemaOptions
}

// EnumValue is one value of an Enum type.
type EnumValue struct {
	CanonicalName string
	OriginalName  string
	Docs          string
	Directives    []Directive
}

// Directive is a verbatim GraphQL directive application, e.g.
// @deprecated(reason: "...") or a custom directive from an extension.
type Directive struct {
	Name string
	Args map[string]interface{}
}

// Type is the tagged variant of every schema entity. Only one of the
// Object/Interface/Union/Enum/Scalar/Input fields is populated,
// selected by Kind. It is represented as a single struct with a
// discriminant rather than an interface since every derivation rule
// needs to pattern-match on Kind and mutate fields in place during the
// derivation phase.
type Type struct {
	Name        string
	Kind        Kind
	Docs        string
	Directives  []Directive
	GraphQLOnly bool // object types only: not indexed, GraphQL-surface only

	Fields []*Field // Object, Interface, Input

	ImplementedInterfaces []string // Object only
	Index                 *IndexDescriptor // Object/Interface only
	DerivedIndexedTypeRules []DerivedIndexedTypeRule // Object only

	UnionMembers []string // Union only, insertion order

	EnumValues []EnumValue // Enum only, insertion order

	Scalar *ScalarDescriptor // Scalar only

	// RenamedFrom/DeletedFields support version evolution.
	RenamedFrom  []string
	DeletedFields []DeprecatedElement
}

// DerivedIndexedTypeRule describes one "derive_indexed_type_fields"
// rule: merging a source record into a derived document via an update
// script.
type DerivedIndexedTypeRule struct {
	SourceTypeName string
	ID             string // destination document id expression (e.g. field path on source)
	Merges         []FieldMerge
}

// FieldMerge is one `<op> "<dest_field>", from: "<source_field>"` entry
// of a DerivedIndexedTypeRule.
type FieldMerge struct {
	Op          string // e.g. "append_only_set", "set"
	DestField   string
	SourceField string
}

// DeprecatedElement records a rename/deletion of a type or field, used
// by the version evolution pass.
type DeprecatedElement struct {
	Name      string
	DefinedAt errs.Location
	DefinedVia string // human-readable display string, e.g. "Widget.deleted_field(\"oldName\")"
}

// Field is the attribute bag backing one field declaration.
type Field struct {
	Name        string
	NameInIndex string // defaults to Name
	Type        typeref.Ref

	GraphQLOnly  bool
	IndexingOnly bool
	Groupable    bool
	Aggregatable bool
	Filterable   bool

	Mapping        *Mapping
	JSONSchemaOpts JSONSchemaOptions

	SourcedFrom *SourcedFrom
	Relationship *RelationshipSpec
	RuntimeScript *RuntimeScript

	Docs       string
	Directives []Directive

	Tag                           func(*Field)
	CustomizeSubAggregationsField func(*Field)

	// TagCEL/CustomizeSubAggregationsFieldCEL are the declarative,
	// string-predicate form of Tag/CustomizeSubAggregationsField: a CEL
	// expression evaluated against a field-scoped activation (name,
	// graphql_type, mapping_type, groupable, aggregatable, filterable)
	// that must return a bool. When true, the derivation engine invokes
	// the matching Go-callback hook for this field; when both the CEL
	// and Go-callback forms are set, the field is customized only if
	// the predicate evaluates true. Additive to the callback form, not
	// a replacement.
	TagCEL                           string
	CustomizeSubAggregationsFieldCEL string

	RenamedFrom []string

	// synthesized is set by the derivation engine when it creates a
	// field that the user did not declare (e.g. a synthesized foreign
	// key), so that "prefer user-defined fields over synthesized ones"
	// can tell them apart.
	synthesized bool
}

// SourcedFrom marks a destination field as populated by the indexer
// from a related source-side event.
type SourcedFrom struct {
	RelationshipName string
	FieldPath        string
}

// Cardinality of a relationship's far side.
type Cardinality string

const (
	One  Cardinality = "One"
	Many Cardinality = "Many"
)

// Direction of a relationship's foreign key.
type Direction string

const (
	Out Direction = "Out"
	In  Direction = "In"
)

// RelationshipSpec is a field's relates_to_one/relates_to_many
// metadata.
type RelationshipSpec struct {
	Name        string
	Cardinality Cardinality
	RelatedType string
	ForeignKey  string
	Direction   Direction
}

// RuntimeScript marks a field as computed at query time rather than
// indexed.
type RuntimeScript struct {
	Name string
	Args map[string]interface{}
}
