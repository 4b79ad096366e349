package derive

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
)

// closeSourcedFrom validates every field declared with
// sourced_from: it must name a relationship that exists on its owning type
// and a field path that resolves against the relationship's related
// type. Every problem found is recorded into batch rather than
// returned on first failure -- sourced_from mistakes are almost always
// independent of one another (a typo'd relationship name here doesn't
// invalidate a typo'd field path there), so a single compile should
// surface all of them at once, mirroring e.sourcedFromErrs's purpose.
func (e *Engine) closeSourcedFrom(batch *errs.Batch) {
	for _, t := range e.Registry.All() {
		if t.Kind != schema.KindObject && t.Kind != schema.KindInterface {
			continue
		}
		for _, f := range t.Fields {
			if f.SourcedFrom == nil {
				continue
			}
			e.closeOneSourcedFrom(t, f, batch)
		}
	}
	if !batch.Empty() {
		// Also keep a private copy of every Derivation-category error in
		// batch at this point. batch is shared with the earlier passes,
		// so the copy can include their derived-name collisions too.
		// Neither Engine.Run nor the compiler package reads the copy.
		for _, err := range batch.Errors() {
			if err.Category == errs.Derivation {
				e.sourcedFromErrs.Add(err)
			}
		}
	}
}

func (e *Engine) closeOneSourcedFrom(owner *schema.Type, f *schema.Field, batch *errs.Batch) {
	sf := f.SourcedFrom

	var rel *schema.RelationshipSpec
	var relField *schema.Field
	for _, candidate := range owner.Fields {
		if candidate.Relationship != nil && candidate.Relationship.Name == sf.RelationshipName {
			rel = candidate.Relationship
			relField = candidate
			break
		}
	}
	if rel == nil {
		batch.Add(errs.Newf(errs.Derivation, owner.Name,
			"field %q has sourced_from(%q, ...) but %q has no relationship named %q",
			f.Name, sf.RelationshipName, owner.Name, sf.RelationshipName).
			WithRemedies("declare the relationship with relates_to_one/relates_to_many before referencing it in sourced_from"))
		return
	}

	related, ok := e.Registry.Lookup(rel.RelatedType)
	if !ok {
		// closeRelationships already reported the missing related type;
		// avoid a duplicate diagnostic here.
		return
	}

	pathField, ok := findFieldByPath(e.Registry, related, sf.FieldPath)
	if !ok {
		batch.Add(errs.Newf(errs.Derivation, owner.Name,
			"field %q sourced_from(%q, %q): %q has no field at path %q",
			f.Name, sf.RelationshipName, sf.FieldPath, rel.RelatedType, sf.FieldPath).
			WithRemedies("field paths are dot-separated field names resolved against the related type"))
		return
	}

	// The destination field's GraphQL type must agree with the source's,
	// unless the user already pinned one explicitly (the same "prefer
	// user-defined fields over synthesized ones" rule applies here too:
	// we only adjust fields the derivation engine itself produced).
	if f.Type == nil {
		f.Type = pathField.Type
	}
	_ = relField
}

// findFieldByPath resolves a dot-separated field path against t,
// descending into nested object types for each segment but one.
func findFieldByPath(reg *schema.Registry, t *schema.Type, path string) (*schema.Field, bool) {
	segments := splitPath(path)
	current := t
	var found *schema.Field
	for i, seg := range segments {
		var match *schema.Field
		for _, f := range current.Fields {
			if f.Name == seg {
				match = f
				break
			}
		}
		if match == nil {
			return nil, false
		}
		found = match
		if i == len(segments)-1 {
			break
		}
		next, ok := reg.Lookup(string(match.Type.FullyUnwrapped()))
		if !ok || (next.Kind != schema.KindObject && next.Kind != schema.KindInterface) {
			return nil, false
		}
		current = next
	}
	return found, true
}

func splitPath(path string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	segments = append(segments, path[start:])
	return segments
}
