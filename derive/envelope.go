package derive

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// EnvelopeOpEnumName and EnvelopeTypeEnumName are the two enums the
// envelope's `op` and `type` fields reference
const (
	EnvelopeOpEnumName   = "ElasticGraphEventEnvelopeOp"
	EnvelopeTypeEnumName = "ElasticGraphEventEnvelopeTypeEnum"
)

// deriveEnvelope builds the envelope type: it enumerates
// the names of every indexable concrete object type (via
// EnvelopeTypeEnumName) plus the reserved metadata fields (op, type,
// id, version, record, latency_timestamps, message_id,
// json_schema_version). It is registered last, once every other
// derivation has finished and the set of indexable concrete types is
// final.
//
// record's shape is inherently polymorphic -- it's whichever indexable
// type `type` names -- so it carries an elasticGraphPolymorphicRecord
// directive instead of a concrete typeref; emit/jsonschema special-cases
// this field rather than resolving it like an ordinary object field.
func (e *Engine) deriveEnvelope(batch *errs.Batch) {
	e.deriveEnvelopeTypeEnum(batch)
	e.deriveEnvelopeOpEnum(batch)

	envelope := &schema.Type{Name: schema.EnvelopeTypeName, Kind: schema.KindObject, GraphQLOnly: true}
	envelope.Fields = append(envelope.Fields,
		schema.NewField(e.Namer.ElementName("op"), typeref.NewNonNull(typeref.NewNamed(EnvelopeOpEnumName))),
		schema.NewField(e.Namer.ElementName("type"), typeref.NewNonNull(typeref.NewNamed(EnvelopeTypeEnumName))),
		schema.NewField(e.Namer.ElementName("id"), typeref.NewNonNull(typeref.NewNamed("String"))),
		schema.NewField(e.Namer.ElementName("version"), typeref.NewNonNull(typeref.NewNamed("JsonSafeLong"))),
		recordField(e),
		schema.NewField(e.Namer.ElementName("latency_timestamps"), typeref.NewNamed("String")),
		schema.NewField(e.Namer.ElementName("message_id"), typeref.NewNamed("String")),
		schema.NewField(e.Namer.ElementName("json_schema_version"), typeref.NewNonNull(typeref.NewNamed("JsonSafeLong"))),
	)
	e.register(envelope, batch)
}

func recordField(e *Engine) *schema.Field {
	f := schema.NewField(e.Namer.ElementName("record"), typeref.NewNamed("String"))
	f.Directives = append(f.Directives, schema.Directive{Name: "elasticGraphPolymorphicRecord"})
	return f
}

// deriveEnvelopeTypeEnum builds the enum of every indexable concrete
// object type's name, used as the envelope's `type` field. It
// enumerates the names of every indexable concrete (non-abstract,
// non-derived) object type.
func (e *Engine) deriveEnvelopeTypeEnum(batch *errs.Batch) {
	enum := &schema.Type{Name: EnvelopeTypeEnumName, Kind: schema.KindEnum}
	for _, t := range e.Registry.All() {
		if t.Kind != schema.KindObject || t.Index == nil {
			continue
		}
		enum.EnumValues = append(enum.EnumValues, schema.EnumValue{CanonicalName: t.Name, OriginalName: t.Name})
	}
	e.register(enum, batch)
}

func (e *Engine) deriveEnvelopeOpEnum(batch *errs.Batch) {
	enum := &schema.Type{Name: EnvelopeOpEnumName, Kind: schema.KindEnum}
	enum.EnumValues = append(enum.EnumValues, schema.EnumValue{CanonicalName: "UPSERT", OriginalName: "upsert"})
	e.register(enum, batch)
}
