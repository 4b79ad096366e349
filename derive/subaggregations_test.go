package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/errs"
)

func TestDeriveSubAggregationsBuildsOwnerPathNamedType(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.deriveAggregations(batch)
	e.derivePagination(batch)
	e.deriveFilters(batch)
	e.deriveSubAggregations(batch)
	require.NoError(t, batch.AsError())

	seasonSubAgg, ok := s.Registry().Lookup("WidgetSeasonSubAggregation")
	require.True(t, ok)

	var names []string
	for _, f := range seasonSubAgg.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "count")
	assert.Contains(t, names, "grouped_by")
	assert.Contains(t, names, "sub_aggregations")
}

func TestDeriveSubAggregationsRecursesIntoNestedLists(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.deriveAggregations(batch)
	e.derivePagination(batch)
	e.deriveFilters(batch)
	e.deriveSubAggregations(batch)
	require.NoError(t, batch.AsError())

	playerSubAgg, ok := s.Registry().Lookup("WidgetSeasonPlayerSubAggregation")
	require.True(t, ok)

	var names []string
	for _, f := range playerSubAgg.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "count")
	assert.Contains(t, names, "grouped_by")
	assert.Contains(t, names, "aggregated_values")
}

func TestDeriveSubAggregationsAttachesFieldToSubAggregationsType(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.deriveAggregations(batch)
	e.derivePagination(batch)
	e.deriveFilters(batch)
	e.deriveSubAggregations(batch)
	require.NoError(t, batch.AsError())

	widgetSubAggs, ok := s.Registry().Lookup("WidgetAggregationSubAggregations")
	require.True(t, ok)

	var found bool
	for _, f := range widgetSubAggs.Fields {
		if f.Name == "seasons" {
			found = true
			for _, d := range f.Directives {
				if d.Name == "elasticGraphSubAggregationArgs" {
					assert.Equal(t, "Int", d.Args["first"])
				}
			}
		}
	}
	assert.True(t, found)
}

func TestDeriveSubAggregationsAttachesSubAggregationsFieldToAggregationType(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.deriveAggregations(batch)
	e.derivePagination(batch)
	e.deriveFilters(batch)
	e.deriveSubAggregations(batch)
	require.NoError(t, batch.AsError())

	agg, ok := s.Registry().Lookup("WidgetAggregation")
	require.True(t, ok)

	var found bool
	for _, f := range agg.Fields {
		if f.Name == "sub_aggregations" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRequestSubAggregationOnUnionReturnsSchemaError(t *testing.T) {
	err := RequestSubAggregationOnUnion("IndexedThing")
	require.NotNil(t, err)
	assert.Equal(t, errs.Derivation, err.Category)
	assert.Contains(t, err.Message, "not supported on unions")
}
