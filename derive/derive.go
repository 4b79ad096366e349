// Package derive implements the Derivation Engine: once the
// user phase is complete, it walks the registry and materializes every
// derived type/field/directive/cross-reference a complete schema needs
// (filters, aggregations, sub-aggregations, Relay pagination,
// relationship closure, sourced_from closure, sort orders, and the
// envelope) back into the registry.
//
// Each concern lives in its own file (filters.go, aggregations.go,
// ...) -- one file per responsibility, all operating on the same
// shared Engine.
package derive

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// Engine holds everything the derivation rules need: the registry being
// populated, the namer for derived-type/element names, and a private
// copy of the Derivation-category errors present when sourced_from
// closure ran (see closeSourcedFrom).
type Engine struct {
	Registry *schema.Registry
	Namer    *typeref.Namer

	sourcedFromErrs *errs.Batch
	generatedCandidateNames []string // every derived name actually produced, for spell-check
	relationshipWarnings   []string  // inconsistent-foreign-key warnings from closeRelationships
}

// New constructs a derivation Engine.
func New(reg *schema.Registry, namer *typeref.Namer) *Engine {
	return &Engine{Registry: reg, Namer: namer, sourcedFromErrs: errs.NewBatch()}
}

// Run executes every derivation rule in dependency order:
// pagination/sort-order/filters/aggregations are purely additive
// per-type and can run in any order relative to each other, but
// relationship closure must run before sourced_from closure (which
// needs resolved relationships), and sub-aggregations must run after
// filters (sub-aggregation connections accept a TFilterInput argument).
// Finally the envelope is derived once every indexable concrete type is
// known.
func (e *Engine) Run() error {
	e.Registry.CompleteUserDefinition()

	batch := errs.NewBatch()

	e.derivePagination(batch)
	e.deriveSortOrders(batch)
	e.deriveFilters(batch)
	e.deriveAggregations(batch)

	e.closeRelationships(batch)
	e.closeSourcedFrom(batch)

	e.deriveSubAggregations(batch)

	e.deriveEnvelope(batch)

	for _, w := range e.Namer.UnusedOverrides(e.generatedCandidateNames) {
		_ = w // surfaced by the compiler package via Warnings(); kept here for callers using derive directly
	}

	return batch.AsError()
}

// Warnings returns unused-override warnings, computed against every
// name this derivation run actually produced.
func (e *Engine) Warnings() []typeref.UnusedOverrideWarning {
	return e.Namer.UnusedOverrides(e.generatedCandidateNames)
}

// RelationshipWarnings returns every inconsistent-both-sides-defined
// foreign key warning accumulated during closeRelationships.
func (e *Engine) RelationshipWarnings() []string {
	return e.relationshipWarnings
}

func (e *Engine) noteGenerated(name string) {
	e.generatedCandidateNames = append(e.generatedCandidateNames, name)
}

// register is a small helper used by every derivation file: register a
// newly derived type, noting its name for spell-check candidates and
// surfacing any collision as a Derivation-category SchemaError into
// batch.
func (e *Engine) register(t *schema.Type, batch *errs.Batch) {
	e.noteGenerated(t.Name)
	if err := e.Registry.MustRegister(t); err != nil {
		batch.Add(err)
	}
}

// isIndexable reports whether t (object or interface) has an index
// descriptor.
func isIndexable(t *schema.Type) bool {
	return (t.Kind == schema.KindObject || t.Kind == schema.KindInterface) && t.Index != nil
}

// scalarMapping resolves the MappingType backing a leaf field's type,
// or ("", false) if the field's fully-unwrapped type is not a scalar.
func scalarMapping(reg *schema.Registry, f *schema.Field) (schema.MappingType, bool) {
	if f.Mapping != nil {
		return f.Mapping.Type, true
	}
	named := string(f.Type.FullyUnwrapped())
	t, ok := reg.Lookup(named)
	if !ok || t.Kind != schema.KindScalar || t.Scalar == nil {
		return "", false
	}
	return t.Scalar.Mapping.Type, true
}

func isLeafField(reg *schema.Registry, f *schema.Field) bool {
	named := string(f.Type.FullyUnwrapped())
	t, ok := reg.Lookup(named)
	if !ok {
		return false
	}
	return t.Kind == schema.KindScalar || t.Kind == schema.KindEnum
}
