package schema

// RegisterBuiltIns registers the built-in scalar types every schema
// gets for free: the GraphQL built-ins (String, Int, Float, Boolean,
// ID) plus the ElasticGraph-specific numeric/temporal scalars
// (Int/JsonSafeLong/LongString bounds, Date/DateTime mapping). As its
// last step it applies the on_built_in_types hooks registered so far;
// hooks registered after this call do not see these scalars.
func RegisterBuiltIns(s *Schema) {
	reg := func(name string, mapping MappingType, jsonType string, opts JSONSchemaOptions) {
		s.ScalarType(name, func(b *ScalarBuilder) {
			b.MappingType(Mapping{Type: mapping})
			b.JSONSchema(jsonType, opts)
		})
	}

	reg("ID", MappingKeyword, "string", nil)
	reg("String", MappingKeyword, "string", nil)
	reg("Boolean", MappingBoolean, "boolean", nil)
	reg("Int", MappingInteger, "integer", JSONSchemaOptions{
		"minimum": -2147483648, "maximum": 2147483647,
	})
	reg("Float", MappingDouble, "number", nil)
	// JsonSafeLong: values representable exactly by an IEEE754 double,
	// i.e. within +/-(2^53-1)
	reg("JsonSafeLong", MappingLong, "integer", JSONSchemaOptions{
		"minimum": -(int64(1)<<53 - 1), "maximum": int64(1)<<53 - 1,
	})
	// LongString: full int64 range, represented as a JSON string so
	// precision survives JSON's float64 number type
	reg("LongString", MappingLong, "string", JSONSchemaOptions{
		"pattern": `^-?[0-9]{1,19}$`,
	})
	reg("Date", MappingDate, "string", JSONSchemaOptions{"format": "date"})
	reg("DateTime", MappingDateTime, "string", JSONSchemaOptions{"format": "date-time"})
	reg("Cursor", MappingKeyword, "string", nil)

	s.registry.ApplyBuiltInHooks(func(t *Type) bool { return t.Kind == KindScalar })
}

// builtInScalarNames is consulted by emitters to tell apart built-in
// scalars (never pruned, never emitted with datastore-specific
// wrapping beyond their primitive definitions) from user scalars.
var builtInScalarNames = map[string]bool{
	"ID": true, "String": true, "Boolean": true, "Int": true, "Float": true,
	"JsonSafeLong": true, "LongString": true, "Date": true, "DateTime": true, "Cursor": true,
}

// IsBuiltInScalar reports whether name is one of the scalars registered
// by RegisterBuiltIns.
func IsBuiltInScalar(name string) bool { return builtInScalarNames[name] }
