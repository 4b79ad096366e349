package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/errs"
)

func TestDeriveSortOrdersBuildsAscDescPerLeafField(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.deriveSortOrders(batch)
	require.NoError(t, batch.AsError())

	sortOrder, ok := s.Registry().Lookup("WidgetSortOrderInput")
	require.True(t, ok)

	var names []string
	for _, v := range sortOrder.EnumValues {
		names = append(names, v.OriginalName)
	}
	assert.Contains(t, names, "name_ASC")
	assert.Contains(t, names, "name_DESC")
	assert.Contains(t, names, "weight_in_grams_ASC")
	assert.Contains(t, names, "weight_in_grams_DESC")
}

func TestDeriveSortOrdersSkipsListFields(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.deriveSortOrders(batch)
	require.NoError(t, batch.AsError())

	sortOrder, ok := s.Registry().Lookup("WidgetSortOrderInput")
	require.True(t, ok)
	for _, v := range sortOrder.EnumValues {
		assert.NotContains(t, v.OriginalName, "seasons")
	}
}

func TestDeriveSortOrdersRecordsCursorTiebreakerWhenIDPresent(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.deriveSortOrders(batch)
	require.NoError(t, batch.AsError())

	sortOrder, ok := s.Registry().Lookup("WidgetSortOrderInput")
	require.True(t, ok)

	var found bool
	for _, d := range sortOrder.Directives {
		if d.Name == "elasticGraphCursorTiebreaker" {
			found = true
			assert.Equal(t, "id", d.Args["field"])
		}
	}
	assert.True(t, found)
}

func TestDeriveSortOrdersOnlyCoversIndexableTypes(t *testing.T) {
	e, s := widgetsFixture(t)
	batch := errs.NewBatch()
	e.deriveSortOrders(batch)
	require.NoError(t, batch.AsError())

	_, ok := s.Registry().Lookup("SeasonSortOrderInput")
	assert.False(t, ok)
}

func TestFindIDFieldNameReturnsEmptyWhenAbsent(t *testing.T) {
	_, s := widgetsFixture(t)
	season, _ := s.Registry().Lookup("Season")
	assert.Equal(t, "", findIDFieldName(season))

	widget, _ := s.Registry().Lookup("Widget")
	assert.Equal(t, "id", findIDFieldName(widget))
}
