package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/errs"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Type{Name: "Widget", Kind: KindObject})
	require.Nil(t, err)

	typ, ok := r.Lookup("Widget")
	require.True(t, ok)
	assert.Equal(t, "Widget", typ.Name)

	_, ok = r.Lookup("Missing")
	assert.False(t, ok)
}

func TestRegistryRegisterAfterUserDefinitionCompleteFails(t *testing.T) {
	r := NewRegistry()
	r.CompleteUserDefinition()
	err := r.Register(&Type{Name: "Widget", Kind: KindObject})
	require.NotNil(t, err)
	assert.Equal(t, errs.Structural, err.Category)
}

func TestRegistryAllSortedAlphabetically(t *testing.T) {
	r := NewRegistry()
	require.Nil(t, r.Register(&Type{Name: "Zebra", Kind: KindObject}))
	require.Nil(t, r.Register(&Type{Name: "Apple", Kind: KindObject}))
	require.Nil(t, r.Register(&Type{Name: "Mango", Kind: KindObject}))

	var names []string
	for _, t := range r.All() {
		names = append(names, t.Name)
	}
	assert.Equal(t, []string{"Apple", "Mango", "Zebra"}, names)
}

func TestRegistryOfKindFilters(t *testing.T) {
	r := NewRegistry()
	require.Nil(t, r.Register(&Type{Name: "Widget", Kind: KindObject}))
	require.Nil(t, r.Register(&Type{Name: "Status", Kind: KindEnum}))

	objects := r.OfKind(KindObject)
	require.Len(t, objects, 1)
	assert.Equal(t, "Widget", objects[0].Name)
}

func TestRegistrySetJSONSchemaVersionOnceOnly(t *testing.T) {
	r := NewRegistry()
	require.Nil(t, r.SetJSONSchemaVersion(1, errs.Location{}))
	err := r.SetJSONSchemaVersion(2, errs.Location{})
	require.NotNil(t, err)

	v, ok := r.JSONSchemaVersion()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestRegistryDeprecatedElements(t *testing.T) {
	r := NewRegistry()
	r.AddDeprecatedElement(DeprecatedElement{Name: "Gadget"})
	r.AddDeprecatedElement(DeprecatedElement{Name: "old_field"})

	deprecated := r.DeprecatedElements()
	require.Len(t, deprecated, 2)
	assert.Equal(t, "Gadget", deprecated[0].Name)
}

func TestRegistryApplyBuiltInHooksOnlyTouchesMatchingTypes(t *testing.T) {
	r := NewRegistry()
	require.Nil(t, r.Register(&Type{Name: "String", Kind: KindScalar}))
	require.Nil(t, r.Register(&Type{Name: "Widget", Kind: KindObject}))

	var touched []string
	r.OnBuiltInTypes(func(t *Type) { touched = append(touched, t.Name) })
	r.ApplyBuiltInHooks(func(t *Type) bool { return t.Kind == KindScalar })

	assert.Equal(t, []string{"String"}, touched)
}

func TestRegistryMemoizationCachesOnlyAfterUserDefinitionComplete(t *testing.T) {
	r := NewRegistry()
	calls := 0
	compute := func() []*Field {
		calls++
		return []*Field{{Name: "id"}}
	}

	r.FieldReferencesByType("Widget", compute)
	r.FieldReferencesByType("Widget", compute)
	assert.Equal(t, 2, calls, "cache must be bypassed before user definition completes")

	r.CompleteUserDefinition()
	r.FieldReferencesByType("Widget", compute)
	r.FieldReferencesByType("Widget", compute)
	assert.Equal(t, 3, calls, "second post-completion call should hit the cache")
}

func TestRegistryRawSDLFragmentsInOrder(t *testing.T) {
	r := NewRegistry()
	r.AddRawSDL("directive @foo on FIELD_DEFINITION")
	r.AddRawSDL("directive @bar on FIELD_DEFINITION")

	assert.Equal(t, []string{
		"directive @foo on FIELD_DEFINITION",
		"directive @bar on FIELD_DEFINITION",
	}, r.RawSDLFragments())
}
