package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBuiltInsRegistersExpectedScalars(t *testing.T) {
	s := New()
	RegisterBuiltIns(s)
	require.NoError(t, s.Errors().AsError())

	for _, name := range []string{"ID", "String", "Boolean", "Int", "Float", "JsonSafeLong", "LongString", "Date", "DateTime", "Cursor"} {
		typ, ok := s.Registry().Lookup(name)
		require.Truef(t, ok, "expected built-in scalar %q to be registered", name)
		assert.Equal(t, KindScalar, typ.Kind)
		assert.True(t, IsBuiltInScalar(name))
	}

	assert.False(t, IsBuiltInScalar("Widget"))
}

func TestIntBoundsAreInt32Range(t *testing.T) {
	s := New()
	RegisterBuiltIns(s)
	typ, _ := s.Registry().Lookup("Int")
	assert.Equal(t, -2147483648, typ.Scalar.JSONSchemaOpts["minimum"])
	assert.Equal(t, 2147483647, typ.Scalar.JSONSchemaOpts["maximum"])
}

func TestOnBuiltInTypesHookSeesEveryScalar(t *testing.T) {
	s := New()
	var seen []string
	s.OnBuiltInTypes(func(t *Type) { seen = append(seen, t.Name) })
	RegisterBuiltIns(s)

	assert.Len(t, seen, len(builtInScalarNames))
}
