package schema

import (
	"sort"
	"sync"

	"go.elasticgraph.dev/compiler/errs"
)

// GraphQLExtension records one register_graphql_extension call, to be
// re-loaded by the runtime process at query-execution time; the
// compiler only threads the reference through to the runtime metadata
// artifact.
type GraphQLExtension struct {
	ModuleRef string
	DefinedAt errs.Location
	Config    map[string]interface{}
}

// Registry accumulates every entity registered through the builder API
// and answers lookups by name in O(1).
//
// Registration happens during the user phase; CompleteUserDefinition()
// flips the `user_definition_complete` flag once, after which the
// memoization caches (populated by the derive package) are consulted,
// and a further Register call for a non-derived type returns a
// Structural SchemaError instead of panicking, so a caller can surface
// it the same way as any other SchemaError. AddRawSDL,
// AddDeprecatedElement, SetJSONSchemaVersion, AddExtension and
// OnBuiltInTypes do not check the flag.
type Registry struct {
	mu sync.Mutex

	types        map[string]*Type
	insertOrder  []string // first-registration order, for diagnostics only
	rawSDL       []string
	deprecated   []DeprecatedElement
	extensions   []GraphQLExtension
	builtInHooks []func(*Type)

	jsonSchemaVersion   int
	jsonSchemaVersionAt errs.Location
	jsonSchemaVersionSet bool

	userDefinitionComplete bool

	// memoization caches, populated lazily by the derive package once
	// userDefinitionComplete is true; bypassed (left nil) before then.
	fieldRefsByType       map[string][]*Field
	subAggPathsByType     map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register adds a new Type under t.Name. Fails if the name is reserved,
// already registered, or not a syntactically valid GraphQL name.
func (r *Registry) Register(t *Type) *errs.SchemaError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userDefinitionComplete {
		return errs.New(errs.Structural, t.Name, "cannot register new types after the derivation phase has begun")
	}
	if !ValidGraphQLName(t.Name) {
		return errs.Newf(errs.Structural, t.Name, "%q is not a valid GraphQL name", t.Name)
	}
	if reservedTypeNames[t.Name] {
		return errs.Newf(errs.Structural, t.Name, "%q is a reserved type name and may not be user-defined", t.Name)
	}
	if _, exists := r.types[t.Name]; exists {
		return errs.Newf(errs.Structural, t.Name, "duplicate type name %q", t.Name)
	}

	r.types[t.Name] = t
	r.insertOrder = append(r.insertOrder, t.Name)
	return nil
}

// MustRegister is Register but stores the type unconditionally,
// intended for derivation-phase insertions which have already computed
// a guaranteed-unique name and want to skip the reserved-name check
// (several derived types, e.g. *Connection, legitimately share a
// naming convention with built-ins like PageInfo's neighbors).
func (r *Registry) MustRegister(t *Type) *errs.SchemaError {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.Name]; exists {
		return errs.Newf(errs.Derivation, t.Name, "derived type name %q collides with an existing type", t.Name)
	}
	r.types[t.Name] = t
	r.insertOrder = append(r.insertOrder, t.Name)
	return nil
}

// Lookup returns the type registered under name, if any.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[name]
	return t, ok
}

// Resolve implements typeref.Resolver.
func (r *Registry) Resolve(name string) (kind string, ok bool) {
	t, ok := r.Lookup(name)
	if !ok {
		return "", false
	}
	return string(t.Kind), true
}

// All returns every registered type, sorted alphabetically by name
// (the canonical emission order).
func (r *Registry) All() []*Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*Type, len(names))
	for i, n := range names {
		out[i] = r.types[n]
	}
	return out
}

// OfKind filters All() by Kind.
func (r *Registry) OfKind(k Kind) []*Type {
	var out []*Type
	for _, t := range r.All() {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

// AddRawSDL appends a verbatim SDL fragment.
func (r *Registry) AddRawSDL(fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rawSDL = append(r.rawSDL, fragment)
}

// RawSDLFragments returns every raw_sdl fragment, in registration order.
func (r *Registry) RawSDLFragments() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.rawSDL))
	copy(out, r.rawSDL)
	return out
}

// AddDeprecatedElement records a deleted_type/renamed_from/deleted_field
// entry.
func (r *Registry) AddDeprecatedElement(d DeprecatedElement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deprecated = append(r.deprecated, d)
}

// DeprecatedElements returns every registered deprecated element.
func (r *Registry) DeprecatedElements() []DeprecatedElement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeprecatedElement, len(r.deprecated))
	copy(out, r.deprecated)
	return out
}

// SetJSONSchemaVersion sets the model's JSON Schema version exactly
// once. A second call is a Structural error.
func (r *Registry) SetJSONSchemaVersion(v int, at errs.Location) *errs.SchemaError {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v <= 0 {
		return errs.Newf(errs.JSONSchema, "json_schema_version", "json_schema_version must be a positive integer, got %d", v)
	}
	if r.jsonSchemaVersionSet {
		return errs.Newf(errs.JSONSchema, "json_schema_version", "json_schema_version was already set to %d", r.jsonSchemaVersion).
			WithLocation(r.jsonSchemaVersionAt).
			WithRemedies("json_schema_version may only be called once per schema")
	}
	r.jsonSchemaVersion = v
	r.jsonSchemaVersionAt = at
	r.jsonSchemaVersionSet = true
	return nil
}

// JSONSchemaVersion returns the set version, or (0, false) if unset.
func (r *Registry) JSONSchemaVersion() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jsonSchemaVersion, r.jsonSchemaVersionSet
}

// AddExtension records a register_graphql_extension call.
func (r *Registry) AddExtension(e GraphQLExtension) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions = append(r.extensions, e)
}

// Extensions returns every registered extension.
func (r *Registry) Extensions() []GraphQLExtension {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]GraphQLExtension, len(r.extensions))
	copy(out, r.extensions)
	return out
}

// OnBuiltInTypes registers a callback applied to every built-in type at
// the end of registration.
func (r *Registry) OnBuiltInTypes(fn func(*Type)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtInHooks = append(r.builtInHooks, fn)
}

// ApplyBuiltInHooks runs every on_built_in_types callback against every
// currently-registered built-in type (scalars registered by
// RegisterBuiltIns). Called by RegisterBuiltIns once it has registered
// the built-in scalars.
func (r *Registry) ApplyBuiltInHooks(isBuiltIn func(*Type) bool) {
	r.mu.Lock()
	hooks := append([]func(*Type){}, r.builtInHooks...)
	types := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, t)
	}
	r.mu.Unlock()

	for _, t := range types {
		if !isBuiltIn(t) {
			continue
		}
		for _, h := range hooks {
			h(t)
		}
	}
}

// CompleteUserDefinition flips user_definition_complete. Idempotent.
func (r *Registry) CompleteUserDefinition() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userDefinitionComplete = true
}

// UserDefinitionComplete reports whether the derivation phase has begun.
func (r *Registry) UserDefinitionComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userDefinitionComplete
}

// FieldReferencesByType returns the memoized field-reference index for
// typeName, computing it on first access after the derivation phase has
// begun (caches are bypassed before then). fn only runs when the cache
// is cold.
func (r *Registry) FieldReferencesByType(typeName string, fn func() []*Field) []*Field {
	if !r.UserDefinitionComplete() {
		return fn()
	}
	r.mu.Lock()
	if r.fieldRefsByType == nil {
		r.fieldRefsByType = make(map[string][]*Field)
	}
	if cached, ok := r.fieldRefsByType[typeName]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	computed := fn()

	r.mu.Lock()
	r.fieldRefsByType[typeName] = computed
	r.mu.Unlock()
	return computed
}

// SubAggregationPathsByType is the analogous memoized cache for
// sub-aggregation paths.
func (r *Registry) SubAggregationPathsByType(typeName string, fn func() []string) []string {
	if !r.UserDefinitionComplete() {
		return fn()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subAggPathsByType == nil {
		r.subAggPathsByType = make(map[string][]string)
	}
	if cached, ok := r.subAggPathsByType[typeName]; ok {
		return cached
	}
	computed := fn()
	r.subAggPathsByType[typeName] = computed
	return computed
}
