package schema

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/typeref"
)

// Schema is the top-level builder handed to user code. Every
// registration entry point is a method on this type.
type Schema struct {
	registry *Registry
	errs     *errs.Batch
}

// New returns an empty Schema ready to accept user-phase registrations.
func New() *Schema {
	return &Schema{registry: NewRegistry(), errs: errs.NewBatch()}
}

// Registry exposes the underlying registry to the compiler package
// once the user phase is complete.
func (s *Schema) Registry() *Registry { return s.registry }

// Errors returns every error accumulated by builder calls so far.
func (s *Schema) Errors() *errs.Batch { return s.errs }

func (s *Schema) record(err *errs.SchemaError) {
	s.errs.Add(err)
}

// ObjectBuilder is returned by ObjectType to declare an object type's
// fields, interfaces, directives, and optional index through a
// setter-style chained API operating on declarative attributes rather
// than Go reflection targets.
type ObjectBuilder struct {
	s *Schema
	t *Type
}

// ObjectType registers a new object type and returns a builder for its
// body
func (s *Schema) ObjectType(name string, build func(*ObjectBuilder)) *ObjectBuilder {
	t := &Type{Name: name, Kind: KindObject}
	if err := s.registry.Register(t); err != nil {
		s.record(err)
		return &ObjectBuilder{s: s, t: t}
	}
	b := &ObjectBuilder{s: s, t: t}
	if build != nil {
		build(b)
	}
	return b
}

// Doc sets the type's documentation string.
func (b *ObjectBuilder) Doc(docs string) *ObjectBuilder { b.t.Docs = docs; return b }

// Directive appends a directive application to the type.
func (b *ObjectBuilder) Directive(d Directive) *ObjectBuilder {
	b.t.Directives = append(b.t.Directives, d)
	return b
}

// Implements declares that this object implements the named interface.
func (b *ObjectBuilder) Implements(interfaceName string) *ObjectBuilder {
	b.t.ImplementedInterfaces = append(b.t.ImplementedInterfaces, interfaceName)
	return b
}

// GraphQLOnly marks the object as not indexed (GraphQL-surface only).
func (b *ObjectBuilder) GraphQLOnly() *ObjectBuilder { b.t.GraphQLOnly = true; return b }

// Field registers a field on the object, input, or interface type.
// Full name_in_index uniqueness is checked by the derivation engine
// once the whole model is known; a cheap same-type duplicate-name
// check happens here.
func (b *ObjectBuilder) Field(f *Field) *ObjectBuilder {
	if f.NameInIndex == "" {
		f.NameInIndex = f.Name
	}
	for _, existing := range b.t.Fields {
		if existing.Name == f.Name {
			b.s.record(errs.Newf(errs.Structural, b.t.Name, "duplicate field %q on type %q", f.Name, b.t.Name))
			return b
		}
	}
	b.t.Fields = append(b.t.Fields, f)
	return b
}

// Index declares the type as indexed with the given descriptor.
// Rollover/routing fields must resolve to fields already defined on
// this type at the point Index is called.
func (b *ObjectBuilder) Index(idx *IndexDescriptor) *ObjectBuilder {
	idx.declarationOrdinal = len(b.t.Fields)
	if err := validateIndexAgainstFields(b.t, idx); err != nil {
		b.s.record(err)
	}
	b.t.Index = idx
	return b
}

// DeriveIndexedTypeFields registers one dynamic-script merge rule
// for this type.
func (b *ObjectBuilder) DeriveIndexedTypeFields(rule DerivedIndexedTypeRule) *ObjectBuilder {
	b.t.DerivedIndexedTypeRules = append(b.t.DerivedIndexedTypeRules, rule)
	return b
}

// RenamedFrom registers that this type used to be called oldName.
func (b *ObjectBuilder) RenamedFrom(oldName string, at errs.Location) *ObjectBuilder {
	b.t.RenamedFrom = append(b.t.RenamedFrom, oldName)
	b.s.registry.AddDeprecatedElement(DeprecatedElement{
		Name: oldName, DefinedAt: at,
		DefinedVia: b.t.Name + ".renamed_from(\"" + oldName + "\")",
	})
	return b
}

// DeletedField registers that oldName used to be a field of this type
// and has since been removed.
func (b *ObjectBuilder) DeletedField(oldName string, at errs.Location) *ObjectBuilder {
	elem := DeprecatedElement{
		Name: oldName, DefinedAt: at,
		DefinedVia: b.t.Name + ".deleted_field(\"" + oldName + "\")",
	}
	b.t.DeletedFields = append(b.t.DeletedFields, elem)
	b.s.registry.AddDeprecatedElement(elem)
	return b
}

func validateIndexAgainstFields(t *Type, idx *IndexDescriptor) *errs.SchemaError {
	findLeaf := func(path string) (*Field, bool) {
		for _, f := range t.Fields {
			if f.Name == path {
				return f, true
			}
		}
		return nil, false
	}

	if idx.Rollover != nil {
		f, ok := findLeaf(idx.Rollover.TimestampFieldPath)
		if !ok {
			return errs.Newf(errs.Index, t.Name, "index %q rollover field %q is not defined on %q before the index declaration",
				idx.Name, idx.Rollover.TimestampFieldPath, t.Name)
		}
		unwrapped := string(f.Type.FullyUnwrapped())
		if unwrapped != "Date" && unwrapped != "DateTime" {
			return errs.Newf(errs.Index, t.Name, "index %q rollover field %q must be Date or DateTime, got %s",
				idx.Name, idx.Rollover.TimestampFieldPath, unwrapped)
		}
	}
	if idx.RouteWith != "" {
		f, ok := findLeaf(idx.RouteWith)
		if !ok {
			return errs.Newf(errs.Index, t.Name, "index %q routing field %q is not defined on %q before the index declaration",
				idx.Name, idx.RouteWith, t.Name)
		}
		if f.Type.IsList() {
			return errs.Newf(errs.Index, t.Name, "index %q routing field %q must not be a list", idx.Name, idx.RouteWith)
		}
	}
	return nil
}

// InterfaceBuilder declares an interface type's body.
type InterfaceBuilder struct {
	s *Schema
	t *Type
}

// InterfaceType registers a new interface type
func (s *Schema) InterfaceType(name string, build func(*InterfaceBuilder)) *InterfaceBuilder {
	t := &Type{Name: name, Kind: KindInterface}
	if err := s.registry.Register(t); err != nil {
		s.record(err)
		return &InterfaceBuilder{s: s, t: t}
	}
	b := &InterfaceBuilder{s: s, t: t}
	if build != nil {
		build(b)
	}
	return b
}

func (b *InterfaceBuilder) Doc(docs string) *InterfaceBuilder { b.t.Docs = docs; return b }

func (b *InterfaceBuilder) Directive(d Directive) *InterfaceBuilder {
	b.t.Directives = append(b.t.Directives, d)
	return b
}

func (b *InterfaceBuilder) Field(f *Field) *InterfaceBuilder {
	if f.NameInIndex == "" {
		f.NameInIndex = f.Name
	}
	b.t.Fields = append(b.t.Fields, f)
	return b
}

// Index makes every implementer of this interface indexable through
// it
func (b *InterfaceBuilder) Index(idx *IndexDescriptor) *InterfaceBuilder {
	if err := validateIndexAgainstFields(b.t, idx); err != nil {
		b.s.record(err)
	}
	b.t.Index = idx
	return b
}

// UnionBuilder declares a union type's members.
type UnionBuilder struct {
	s *Schema
	t *Type
}

// UnionType registers a new union type
func (s *Schema) UnionType(name string, build func(*UnionBuilder)) *UnionBuilder {
	t := &Type{Name: name, Kind: KindUnion}
	if err := s.registry.Register(t); err != nil {
		s.record(err)
		return &UnionBuilder{s: s, t: t}
	}
	b := &UnionBuilder{s: s, t: t}
	if build != nil {
		build(b)
	}
	return b
}

func (b *UnionBuilder) Doc(docs string) *UnionBuilder { b.t.Docs = docs; return b }

func (b *UnionBuilder) Member(objectTypeName string) *UnionBuilder {
	b.t.UnionMembers = append(b.t.UnionMembers, objectTypeName)
	return b
}

func (b *UnionBuilder) Directive(d Directive) *UnionBuilder {
	b.t.Directives = append(b.t.Directives, d)
	return b
}

// EnumBuilder declares an enum type's values.
type EnumBuilder struct {
	s *Schema
	t *Type
}

// EnumType registers a new enum type
func (s *Schema) EnumType(name string, build func(*EnumBuilder)) *EnumBuilder {
	t := &Type{Name: name, Kind: KindEnum}
	if err := s.registry.Register(t); err != nil {
		s.record(err)
		return &EnumBuilder{s: s, t: t}
	}
	b := &EnumBuilder{s: s, t: t}
	if build != nil {
		build(b)
	}
	return b
}

func (b *EnumBuilder) Doc(docs string) *EnumBuilder { b.t.Docs = docs; return b }

// Value appends a value, using name as both canonical and original
// name. No pass or emitter in this module rewrites CanonicalName
// through Namer.EnumValueName, so enum_value_overrides_by_type entries
// are not applied to enum values declared here.
func (b *EnumBuilder) Value(name string, docs string) *EnumBuilder {
	b.t.EnumValues = append(b.t.EnumValues, EnumValue{CanonicalName: name, OriginalName: name, Docs: docs})
	return b
}

// ScalarBuilder declares a scalar type's descriptors.
type ScalarBuilder struct {
	s *Schema
	t *Type
}

// ScalarType registers a new scalar typeBoth a
// Mapping and a JSONSchema descriptor are mandatory; Build
// must call both MappingType and JSONSchema before the user phase
// ends, or the compiler will reject the model.
func (s *Schema) ScalarType(name string, build func(*ScalarBuilder)) *ScalarBuilder {
	t := &Type{Name: name, Kind: KindScalar, Scalar: &ScalarDescriptor{}}
	if err := s.registry.Register(t); err != nil {
		s.record(err)
		return &ScalarBuilder{s: s, t: t}
	}
	b := &ScalarBuilder{s: s, t: t}
	if build != nil {
		build(b)
	}
	if t.Scalar.Mapping.Type == "" {
		s.record(errs.Newf(errs.Structural, name, "scalar %q must declare a datastore mapping", name))
	}
	if t.Scalar.JSONSchemaType == "" {
		s.record(errs.Newf(errs.JSONSchema, name, "scalar %q must declare a json_schema type", name))
	}
	return b
}

func (b *ScalarBuilder) Doc(docs string) *ScalarBuilder { b.t.Docs = docs; return b }

func (b *ScalarBuilder) MappingType(m Mapping) *ScalarBuilder {
	b.t.Scalar.Mapping = m
	return b
}

func (b *ScalarBuilder) JSONSchema(jsonType string, opts JSONSchemaOptions) *ScalarBuilder {
	if err := ValidateJSONSchemaOptions(opts); err != nil {
		b.s.record(err)
	}
	b.t.Scalar.JSONSchemaType = jsonType
	b.t.Scalar.JSONSchemaOpts = opts
	return b
}

// InputBuilder declares an input type's fields.
type InputBuilder struct {
	s *Schema
	t *Type
}

// InputType registers a new input type
func (s *Schema) InputType(name string, build func(*InputBuilder)) *InputBuilder {
	t := &Type{Name: name, Kind: KindInput}
	if err := s.registry.Register(t); err != nil {
		s.record(err)
		return &InputBuilder{s: s, t: t}
	}
	b := &InputBuilder{s: s, t: t}
	if build != nil {
		build(b)
	}
	return b
}

func (b *InputBuilder) Doc(docs string) *InputBuilder { b.t.Docs = docs; return b }

func (b *InputBuilder) Field(f *Field) *InputBuilder {
	b.t.Fields = append(b.t.Fields, f)
	return b
}

// RawSDL appends a verbatim SDL fragment
func (s *Schema) RawSDL(fragment string) { s.registry.AddRawSDL(fragment) }

// DeletedType registers that name used to be a type and has since been
// removed entirely schema.deleted_type.
func (s *Schema) DeletedType(name string, at errs.Location) {
	s.registry.AddDeprecatedElement(DeprecatedElement{
		Name: name, DefinedAt: at, DefinedVia: "schema.deleted_type(\"" + name + "\")",
	})
}

// JSONSchemaVersion sets the model's JSON Schema version exactly once,
//
func (s *Schema) JSONSchemaVersion(v int, at errs.Location) {
	if err := s.registry.SetJSONSchemaVersion(v, at); err != nil {
		s.record(err)
	}
}

// RegisterGraphQLExtension records an extension to be re-loaded at
// runtime
func (s *Schema) RegisterGraphQLExtension(moduleRef string, at errs.Location, config map[string]interface{}) {
	s.registry.AddExtension(GraphQLExtension{ModuleRef: moduleRef, DefinedAt: at, Config: config})
}

// OnBuiltInTypes registers a callback applied to every built-in type at
// the end of registration
func (s *Schema) OnBuiltInTypes(fn func(*Type)) {
	s.registry.OnBuiltInTypes(fn)
}

// NewField is a small convenience constructor so call sites read close
// to a declarative `Field{Name: ..., Type: ...}` literal (which would
// also work directly; this only fills in the NameInIndex default and
// the boolean flags via functional options).
func NewField(name string, typ typeref.Ref, opts ...FieldOption) *Field {
	f := &Field{Name: name, NameInIndex: name, Type: typ, Filterable: true}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FieldOption configures a Field built via NewField.
type FieldOption func(*Field)

func WithNameInIndex(n string) FieldOption { return func(f *Field) { f.NameInIndex = n } }
func GraphQLOnly() FieldOption              { return func(f *Field) { f.GraphQLOnly = true } }
func IndexingOnly() FieldOption             { return func(f *Field) { f.IndexingOnly = true } }
func Groupable() FieldOption                { return func(f *Field) { f.Groupable = true } }
func Aggregatable() FieldOption             { return func(f *Field) { f.Aggregatable = true } }
func NotFilterable() FieldOption            { return func(f *Field) { f.Filterable = false } }
func WithMapping(m Mapping) FieldOption     { return func(f *Field) { f.Mapping = &m } }
func WithDocs(d string) FieldOption         { return func(f *Field) { f.Docs = d } }
func WithSourcedFrom(relationship, path string) FieldOption {
	return func(f *Field) { f.SourcedFrom = &SourcedFrom{RelationshipName: relationship, FieldPath: path} }
}
func WithRelationship(r RelationshipSpec) FieldOption {
	return func(f *Field) { f.Relationship = &r }
}
func WithJSONSchemaOpts(o JSONSchemaOptions) FieldOption {
	return func(f *Field) { f.JSONSchemaOpts = o }
}
func WithTag(fn func(*Field)) FieldOption { return func(f *Field) { f.Tag = fn } }
func WithTagCEL(expr string) FieldOption  { return func(f *Field) { f.TagCEL = expr } }
func WithCustomizeSubAggregationsField(fn func(*Field)) FieldOption {
	return func(f *Field) { f.CustomizeSubAggregationsField = fn }
}
func WithCustomizeSubAggregationsFieldCEL(expr string) FieldOption {
	return func(f *Field) { f.CustomizeSubAggregationsFieldCEL = expr }
}
