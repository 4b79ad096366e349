// Package typeref implements an immutable type-reference structure: a
// recursive Named/List/NonNull tree used everywhere a field, argument,
// or derived type needs to point at another type without yet resolving
// it.
//
// The tagging approach (an unexported marker method preventing
// arbitrary values from satisfying the interface) repurposes a runtime
// type-tagging pattern for compile-time schema references instead of
// runtime execution values.
package typeref

import (
	"fmt"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Ref is a type reference: Named, List, or NonNull. Unlike a runtime
// graphql.Type, a Ref never carries a resolved definition inline --
// resolution against a registry happens through Resolver, so
// references can be constructed before their target type is declared.
type Ref interface {
	fmt.Stringer

	// isRef is a no-op used to tag the known Ref implementations.
	isRef()

	// FullyUnwrapped strips every List/NonNull wrapper and returns the
	// bare Named reference underneath.
	FullyUnwrapped() Named

	// IsList reports whether the reference is a list, either directly or
// under an outer NonNull.
	IsList() bool

	// IsNonNull reports whether the outermost wrapper is a NonNull.
	IsNonNull() bool
}

// Named references a type by name, e.g. "String" or "Widget".
type Named string

func (n Named) isRef()                 {}
func (n Named) String() string         { return string(n) }
func (n Named) FullyUnwrapped() Named  { return n }
func (n Named) IsList() bool           { return false }
func (n Named) IsNonNull() bool        { return false }

// List wraps another reference as a GraphQL list type: [Of].
type List struct{ Of Ref }

func (l List) isRef()                { }
func (l List) String() string        { return fmt.Sprintf("[%s]", l.Of) }
func (l List) FullyUnwrapped() Named { return l.Of.FullyUnwrapped() }
func (l List) IsList() bool          { return true }
func (l List) IsNonNull() bool       { return false }

// NonNull wraps another reference as a GraphQL non-null type: Of!.
type NonNull struct{ Of Ref }

func (n NonNull) isRef()                { }
func (n NonNull) String() string        { return fmt.Sprintf("%s!", n.Of) }
func (n NonNull) FullyUnwrapped() Named { return n.Of.FullyUnwrapped() }
func (n NonNull) IsList() bool          { return n.Of.IsList() }
func (n NonNull) IsNonNull() bool       { return true }

var (
	_ Ref = Named("")
	_ Ref = List{}
	_ Ref = NonNull{}
)

// internCache gives every distinct canonical string form of a Ref a
// single stable value("Type references are cached by
// canonical string form for identity"). This lets callers compare Refs
// built independently (e.g. by two different derivation rules) with
// ==, as the cache always returns the previously interned value for an
// identical canonical string.
type internCache struct {
	mu    sync.Mutex
	byKey map[string]Ref
}

var cache = &internCache{byKey: make(map[string]Ref)}

// Intern returns the canonical instance of r, caching by its String()
// form. Scalars/objects/interfaces/unions/enums/inputs are all
// referenced the same way (Named), so interning only needs to key off
// the rendered string.
func Intern(r Ref) Ref {
	key := r.String()
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if existing, ok := cache.byKey[key]; ok {
		return existing
	}
	cache.byKey[key] = r
	return r
}

// NewNamed normalizes name to NFC (so visually identical Unicode names
// can't silently collide, per the ambient-stack NFC normalization rule)
// and returns the interned Named reference for it.
func NewNamed(name string) Named {
	normalized := norm.NFC.String(name)
	return Intern(Named(normalized)).(Named)
}

// NewList returns the interned List-of-of reference.
func NewList(of Ref) Ref {
	return Intern(List{Of: of})
}

// NewNonNull returns the interned NonNull-of-of reference.
func NewNonNull(of Ref) Ref {
	return Intern(NonNull{Of: of})
}

// Resolver looks up the definition a Ref's Named core points at. The
// registry package implements this; typeref stays decoupled from the
// registry to avoid an import cycle (registry depends on typeref for
// field types, not the reverse).
type Resolver interface {
	// Resolve returns the kind tag of the type registered under name,
	// or false if no such type is registered.
	Resolve(name string) (kind string, ok bool)
}

// ResolvesTo reports whether r's fully-unwrapped name resolves in res
// to one of the given kinds (e.g. "object", "interface").
func ResolvesTo(r Ref, res Resolver, kinds ...string) bool {
	kind, ok := res.Resolve(string(r.FullyUnwrapped()))
	if !ok {
		return false
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
