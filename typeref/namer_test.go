package typeref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedNameDefaultFormat(t *testing.T) {
	n := NewNamer(SnakeCase, nil, nil, nil, nil)
	assert.Equal(t, "WidgetFilterInput", n.DerivedName("Widget", FilterInput))
	assert.Equal(t, "WidgetAggregatedValues", n.DerivedName("Widget", AggregatedValues))
	assert.Equal(t, "WidgetEdge", n.DerivedName("Widget", Edge))
}

func TestDerivedNameTypeNameOverrideConsumed(t *testing.T) {
	n := NewNamer(SnakeCase, nil, map[string]string{"WidgetFilterInput": "WidgetWhere"}, nil, nil)
	assert.Equal(t, "WidgetWhere", n.DerivedName("Widget", FilterInput))

	warnings := n.UnusedOverrides(nil)
	assert.Empty(t, warnings)
}

func TestDerivedNameFormatOverride(t *testing.T) {
	n := NewNamer(SnakeCase, map[Category]string{FilterInput: "%sWhere"}, nil, nil, nil)
	assert.Equal(t, "WidgetWhere", n.DerivedName("Widget", FilterInput))
}

func TestSubAggregationPathNameSkipsConnectionSegments(t *testing.T) {
	n := NewNamer(SnakeCase, nil, nil, nil, nil)
	name := n.SubAggregationPathName([]string{"Team", "SeasonsConnection", "Season"}, SubAggregation)
	assert.Equal(t, "TeamSeasonSubAggregation", name)
}

func TestEnumValueNameOverride(t *testing.T) {
	n := NewNamer(SnakeCase, nil, nil, map[string]map[string]string{"Status": {"ACTIVE": "LIVE"}}, nil)
	assert.Equal(t, "LIVE", n.EnumValueName("Status", "ACTIVE"))
	assert.Equal(t, "ARCHIVED", n.EnumValueName("Status", "ARCHIVED"))
}

func TestElementNameCasing(t *testing.T) {
	snake := NewNamer(SnakeCase, nil, nil, nil, nil)
	assert.Equal(t, "equal_to_any_of", snake.ElementName("equal_to_any_of"))

	camel := NewNamer(CamelCase, nil, nil, nil, nil)
	assert.Equal(t, "equalToAnyOf", camel.ElementName("equal_to_any_of"))
}

func TestElementNameOverrideTakesPriorityOverCasing(t *testing.T) {
	n := NewNamer(CamelCase, nil, nil, nil, map[string]string{"equal_to_any_of": "in"})
	assert.Equal(t, "in", n.ElementName("equal_to_any_of"))
}

func TestSortOrderValueName(t *testing.T) {
	assert.Equal(t, "created_at_ASC", SortOrderValueName([]string{"created_at"}, false))
	assert.Equal(t, "created_at_DESC", SortOrderValueName([]string{"created_at"}, true))
}

func TestUnusedOverridesReportedWithSuggestion(t *testing.T) {
	n := NewNamer(SnakeCase, nil, map[string]string{"WigetFilterInput": "WigetWhere"}, nil, nil)
	// Never consult the override via DerivedName, so it stays unused.
	warnings := n.UnusedOverrides([]string{"WidgetFilterInput", "ComponentFilterInput"})

	require.Len(t, warnings, 1)
	assert.Equal(t, "type_name_override", warnings[0].Kind)
	assert.Equal(t, "WigetFilterInput", warnings[0].Name)
	assert.Equal(t, "WidgetFilterInput", warnings[0].Suggestion)
	assert.Contains(t, warnings[0].String(), "unused type_name_override")
	assert.Contains(t, warnings[0].String(), "did you mean")
}

func TestUnusedOverridesEmptyWhenAllConsumed(t *testing.T) {
	n := NewNamer(SnakeCase, nil, map[string]string{"WidgetFilterInput": "WidgetWhere"}, nil, nil)
	n.DerivedName("Widget", FilterInput)
	assert.Empty(t, n.UnusedOverrides(nil))
}
