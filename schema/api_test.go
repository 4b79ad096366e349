package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineSchemaBuildsAndReleasesSlot(t *testing.T) {
	s, err := DefineSchema(func(s *Schema) {
		s.ObjectType("Widget", func(b *ObjectBuilder) {})
	})
	require.NoError(t, err)
	require.NotNil(t, s)

	_, ok := s.Registry().Lookup("Widget")
	assert.True(t, ok)
	assert.Nil(t, Active(), "slot must be released after DefineSchema returns")
}

func TestDefineSchemaRejectsReentrantCall(t *testing.T) {
	var innerErr error
	_, err := DefineSchema(func(s *Schema) {
		_, innerErr = DefineSchema(func(*Schema) {})
	})
	require.NoError(t, err)
	assert.Equal(t, ErrAlreadyActive, innerErr)
}

func TestDefineSchemaReturnsAccumulatedErrors(t *testing.T) {
	_, err := DefineSchema(func(s *Schema) {
		s.ObjectType("Widget", func(b *ObjectBuilder) {})
		s.ObjectType("Widget", func(b *ObjectBuilder) {})
	})
	require.Error(t, err)
	assert.Nil(t, Active())
}

func TestDefineSchemaReleasesSlotAfterPanic(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = DefineSchema(func(s *Schema) {
			panic("boom")
		})
	})
	assert.Nil(t, Active(), "slot must be released even when build panics")

	_, err := DefineSchema(func(s *Schema) {})
	assert.NoError(t, err)
}
