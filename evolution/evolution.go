// Package evolution implements Version Evolution & Merge: merging a
// newly compiled versioned JSON Schema artifact against the full set
// of previously dumped versioned artifacts (v1, v2, ..., vN), enforcing
// the artifact guard that json_schema_version only moves forward, and
// tagging each merged artifact with a semantic version string.
package evolution

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"go.elasticgraph.dev/compiler/emit/jsonschema"
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
)

// Result is the outcome of merging the current compile against every
// prior versioned artifact supplied to Merge.
type Result struct {
	Merged        *jsonschema.Artifact
	SemVer        string
	RenamedTypes  map[string]string // old name -> new name, for types carrying renamed_from
	RenamedFields map[string]string // "Type.oldField" -> "Type.newField"
	Warnings      []string
}

// Merge folds every prior versioned artifact's $defs into current's,
// resolving each historical field's identity against the current
// schema and collecting every problem found across the full supplied
// history rather than stopping at the first. priors need not be sorted
// and may contain nil entries (a caller that has no artifact for a
// given generation); both are normalized away before the merge runs.
//
// Per-field resolution runs for every (prior version, type, field)
// triple found in priors' $defs:
//  1. exact name match against the current schema;
//  2. else a field.renamed_from(old_name) chain on the owning type;
//  3. else a type.renamed_from(old_name) chain, followed by a name
//     match (steps 1-2) against the renamed-to type;
//  4. else a schema.deleted_type/type.deleted_field marker, resolved
//     as deleted.
//
// An unresolved field is an error carrying the three allowed remedies.
// A field that resolves as deleted but backed the owning type's
// mandatory rollover/routing index leaf is also an error: those two
// fields must be renamed, never simply removed. Historical definitions
// of the same field that disagree about its current JSON type are
// collected as conflict errors. Deprecated-element markers that never
// matched anything across the whole supplied history are reported as
// warnings.
//
// The artifact guard -- current.JSONSchemaVersion must exceed the most
// recent prior's -- still applies whenever cfg.EnforceJSONSchemaVersion
// is true.
func Merge(reg *schema.Registry, cfg *schema.Config, current *jsonschema.Artifact, priors ...*jsonschema.Artifact) (*Result, error) {
	batch := errs.NewBatch()

	history := sortedHistory(priors)
	if len(history) == 0 {
		sv, err := tagSemVer(current.JSONSchemaVersion)
		if err != nil {
			return nil, err
		}
		return &Result{Merged: current, SemVer: sv, RenamedTypes: map[string]string{}, RenamedFields: map[string]string{}}, nil
	}

	mostRecent := history[len(history)-1]
	var guardWarnings []string
	if current.JSONSchemaVersion <= mostRecent.JSONSchemaVersion {
		if cfg.EnforceJSONSchemaVersion {
			batch.Add(errs.Newf(errs.Evolution, "json_schema_version",
				"json_schema_version %d does not exceed the prior version %d", current.JSONSchemaVersion, mostRecent.JSONSchemaVersion).
				WithRemedies("bump json_schema_version in the schema definition",
					"or set EnforceJSONSchemaVersion: false to compile an out-of-order artifact intentionally"))
		} else {
			guardWarnings = append(guardWarnings, fmt.Sprintf(
				"json_schema_version %d does not exceed the prior version %d; continuing because EnforceJSONSchemaVersion is false",
				current.JSONSchemaVersion, mostRecent.JSONSchemaVersion))
		}
	}

	renamedTypes := renamedTypeMap(reg)
	renamedFields := renamedFieldMap(reg)
	deletedTypes := deletedTypeSet(reg)
	deletedFields := deletedFieldSet(reg)
	usage := newUsageTracker()

	merged := &jsonschema.Artifact{
		Schema:            current.Schema,
		JSONSchemaVersion: current.JSONSchemaVersion,
		Defs:              map[string]jsonschema.Def{},
	}
	for name, def := range current.Defs {
		merged.Defs[name] = def
	}

	for _, prior := range history {
		names := make([]string, 0, len(prior.Defs))
		for name := range prior.Defs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			mergeOneType(reg, name, prior.Defs[name], prior.JSONSchemaVersion,
				renamedTypes, deletedTypes, renamedFields, deletedFields, usage, merged, batch)
		}
	}

	if err := batch.AsError(); err != nil {
		return nil, err
	}

	sv, err := tagSemVer(current.JSONSchemaVersion)
	if err != nil {
		return nil, err
	}

	return &Result{
		Merged:        merged,
		SemVer:        sv,
		RenamedTypes:  renamedTypes,
		RenamedFields: renamedFields,
		Warnings:      append(guardWarnings, usage.unusedWarnings(renamedTypes, renamedFields, deletedTypes, deletedFields)...),
	}, nil
}

// mergeOneType resolves one historical type definition (oldName, def,
// as it existed in json_schema_version) against the current registry
// and, if it survives, walks its fields.
func mergeOneType(reg *schema.Registry, oldName string, def jsonschema.Def, version int,
	renamedTypes map[string]string, deletedTypes map[string]bool,
	renamedFields map[string]string, deletedFields map[string]bool,
	usage *usageTracker, merged *jsonschema.Artifact, batch *errs.Batch) {

	if newName, ok := renamedTypes[oldName]; ok {
		usage.markRenamedType(oldName)
		resolveFields(reg, newName, oldName, def, version, renamedFields, deletedFields, usage, merged, batch)
		return
	}

	if deletedTypes[oldName] {
		usage.markDeletedType(oldName)
		merged.Defs[versionedKey(oldName, version)] = def
		return
	}

	if _, stillPresent := merged.Defs[oldName]; !stillPresent {
		batch.Add(errs.Newf(errs.Evolution, oldName,
			"type %q existed in json_schema_version %d but is absent from the new schema with no renamed_from or deleted marker",
			oldName, version).
			WithRemedies(fmt.Sprintf("add %s.renamed_from(%q) if it was renamed", oldName, oldName),
				"or declare it deleted if removal is intentional"))
		return
	}

	resolveFields(reg, oldName, oldName, def, version, renamedFields, deletedFields, usage, merged, batch)
}

// resolveFields walks every property (old field name) of a historical
// type definition and resolves each one's identity against
// currentTypeName.
func resolveFields(reg *schema.Registry, currentTypeName, priorTypeName string, def jsonschema.Def, version int,
	renamedFields map[string]string, deletedFields map[string]bool, usage *usageTracker,
	merged *jsonschema.Artifact, batch *errs.Batch) {

	currentType, ok := reg.Lookup(currentTypeName)
	if !ok {
		return
	}
	props, _ := def["properties"].(map[string]interface{})
	if props == nil {
		return
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, oldField := range names {
		currentField := resolveOneField(currentType, priorTypeName, oldField, version, renamedFields, deletedFields, usage, batch)
		if currentField != "" {
			checkMappingConflict(currentType, currentField, priorTypeName, oldField, props[oldField], merged, version, batch)
		}
	}
}

// resolveOneField applies the four-step identity resolution to a
// single historical field and returns the current field name it
// resolved to, or "" if it resolved as deleted or could not be
// resolved at all.
func resolveOneField(currentType *schema.Type, priorTypeName, oldField string, version int,
	renamedFields map[string]string, deletedFields map[string]bool, usage *usageTracker, batch *errs.Batch) string {

	for _, f := range currentType.Fields {
		if f.Name == oldField {
			return f.Name
		}
	}

	renameKey := currentType.Name + "." + oldField
	if newKey, ok := renamedFields[renameKey]; ok {
		usage.markRenamedField(renameKey)
		if i := lastDot(newKey); i >= 0 {
			return newKey[i+1:]
		}
		return newKey
	}

	deleteKey := currentType.Name + "." + oldField
	if deletedFields[deleteKey] {
		usage.markDeletedField(deleteKey)
		if isRequiredIndexLeaf(currentType, oldField) {
			batch.Add(errs.Newf(errs.Evolution, currentType.Name,
				"field %q backed index %q's mandatory rollover/routing leaf in json_schema_version %d and was deleted rather than renamed",
				oldField, currentType.Index.Name, version).
				WithRemedies("restore the field", "or rename it with a field-level RenamedFrom instead of deleting it"))
		}
		return ""
	}

	batch.Add(errs.Newf(errs.Evolution, currentType.Name,
		"field %q existed on %q in json_schema_version %d but cannot be resolved against the current schema",
		oldField, priorTypeName, version).
		WithRemedies(
			fmt.Sprintf("add a field-level RenamedFrom(%q) if it was renamed", oldField),
			fmt.Sprintf("add %s.DeletedField(%q, ...) if it was intentionally removed", currentType.Name, oldField),
			"or restore the field if its removal was accidental",
		))
	return ""
}

// checkMappingConflict flags a historical definition that disagrees
// with the merged current definition about a resolved field's JSON
// type -- e.g. a prior version declared it a string and the current
// one is an integer, with no mapping change recorded anywhere.
func checkMappingConflict(currentType *schema.Type, currentField, priorTypeName, oldField string,
	oldPropDef interface{}, merged *jsonschema.Artifact, version int, batch *errs.Batch) {

	oldProp, ok := oldPropDef.(map[string]interface{})
	if !ok {
		return
	}
	oldJSONType, ok := oldProp["type"]
	if !ok {
		return
	}
	currentDef, ok := merged.Defs[currentType.Name]
	if !ok {
		return
	}
	currentProps, ok := currentDef["properties"].(map[string]interface{})
	if !ok {
		return
	}
	currentProp, ok := currentProps[currentField].(map[string]interface{})
	if !ok {
		return
	}
	currentJSONType, ok := currentProp["type"]
	if !ok {
		return
	}
	if fmt.Sprint(oldJSONType) != fmt.Sprint(currentJSONType) {
		batch.Add(errs.Newf(errs.Evolution, currentType.Name,
			"field %q (was %q.%q in json_schema_version %d) had JSON type %v historically but %v currently -- a historical definition conflict",
			currentField, priorTypeName, oldField, version, oldJSONType, currentJSONType))
	}
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// isRequiredIndexLeaf reports whether fieldName backs t's rollover
// timestamp or shard-routing key.
func isRequiredIndexLeaf(t *schema.Type, fieldName string) bool {
	if t.Index == nil {
		return false
	}
	if t.Index.Rollover != nil && t.Index.Rollover.TimestampFieldPath == fieldName {
		return true
	}
	return t.Index.RouteWith == fieldName
}

// sortedHistory drops nil entries from priors and returns the rest
// sorted ascending by JSONSchemaVersion.
func sortedHistory(priors []*jsonschema.Artifact) []*jsonschema.Artifact {
	var out []*jsonschema.Artifact
	for _, p := range priors {
		if p != nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JSONSchemaVersion < out[j].JSONSchemaVersion })
	return out
}

// versionedKey names a retired type's historical $defs entry so it
// remains addressable by a $ref without colliding with any live type
// name
func versionedKey(name string, version int) string {
	return fmt.Sprintf("%s_v%d", name, version)
}

// renamedTypeMap inverts every type's RenamedFrom list into old name ->
// current name type.renamed_from.
func renamedTypeMap(reg *schema.Registry) map[string]string {
	out := map[string]string{}
	for _, t := range reg.All() {
		for _, old := range t.RenamedFrom {
			out[old] = t.Name
		}
	}
	return out
}

// renamedFieldMap inverts every field's RenamedFrom list into
// "Type.oldField" -> "Type.newField"
// field.renamed_from.
func renamedFieldMap(reg *schema.Registry) map[string]string {
	out := map[string]string{}
	for _, t := range reg.All() {
		for _, f := range t.Fields {
			for _, old := range f.RenamedFrom {
				out[t.Name+"."+old] = t.Name + "." + f.Name
			}
		}
	}
	return out
}

// deletedTypeSet collects the names recorded via schema.deleted_type
// calls. These are distinguished from renamed-type and deleted-field
// markers (which also flow through Registry.DeprecatedElements) by the
// DefinedVia prefix schema.DeletedType always uses.
func deletedTypeSet(reg *schema.Registry) map[string]bool {
	out := map[string]bool{}
	for _, el := range reg.DeprecatedElements() {
		if len(el.DefinedVia) >= len("schema.deleted_type(") && el.DefinedVia[:len("schema.deleted_type(")] == "schema.deleted_type(" {
			out[el.Name] = true
		}
	}
	return out
}

// deletedFieldSet collects every "Type.oldField" recorded via a
// type's DeletedField calls, read directly off each type's
// DeletedFields slice rather than the registry's flat deprecated-
// element list, since only the type-scoped slice carries the owning
// type name.
func deletedFieldSet(reg *schema.Registry) map[string]bool {
	out := map[string]bool{}
	for _, t := range reg.All() {
		for _, el := range t.DeletedFields {
			out[t.Name+"."+el.Name] = true
		}
	}
	return out
}

// usageTracker records which deprecated-element markers were actually
// consulted while resolving the supplied history, so Merge can warn
// about the ones that matched nothing (spec item: unused deprecated
// elements).
type usageTracker struct {
	renamedTypes  map[string]bool
	renamedFields map[string]bool
	deletedTypes  map[string]bool
	deletedFields map[string]bool
}

func newUsageTracker() *usageTracker {
	return &usageTracker{
		renamedTypes:  map[string]bool{},
		renamedFields: map[string]bool{},
		deletedTypes:  map[string]bool{},
		deletedFields: map[string]bool{},
	}
}

func (u *usageTracker) markRenamedType(name string)  { u.renamedTypes[name] = true }
func (u *usageTracker) markRenamedField(key string)   { u.renamedFields[key] = true }
func (u *usageTracker) markDeletedType(name string)   { u.deletedTypes[name] = true }
func (u *usageTracker) markDeletedField(key string)   { u.deletedFields[key] = true }

func (u *usageTracker) unusedWarnings(renamedTypes, renamedFields map[string]string, deletedTypes, deletedFields map[string]bool) []string {
	var warnings []string

	var oldTypeNames []string
	for old := range renamedTypes {
		oldTypeNames = append(oldTypeNames, old)
	}
	sort.Strings(oldTypeNames)
	for _, old := range oldTypeNames {
		if !u.renamedTypes[old] {
			warnings = append(warnings, fmt.Sprintf("renamed_from(%q) on type %q did not match any historical version", old, renamedTypes[old]))
		}
	}

	var fieldKeys []string
	for key := range renamedFields {
		fieldKeys = append(fieldKeys, key)
	}
	sort.Strings(fieldKeys)
	for _, key := range fieldKeys {
		if !u.renamedFields[key] {
			warnings = append(warnings, fmt.Sprintf("field renamed_from backing %q did not match any historical version", key))
		}
	}

	var deletedTypeNames []string
	for name := range deletedTypes {
		deletedTypeNames = append(deletedTypeNames, name)
	}
	sort.Strings(deletedTypeNames)
	for _, name := range deletedTypeNames {
		if !u.deletedTypes[name] {
			warnings = append(warnings, fmt.Sprintf("deleted_type(%q) did not match any historical version", name))
		}
	}

	var deletedFieldKeys []string
	for key := range deletedFields {
		deletedFieldKeys = append(deletedFieldKeys, key)
	}
	sort.Strings(deletedFieldKeys)
	for _, key := range deletedFieldKeys {
		if !u.deletedFields[key] {
			warnings = append(warnings, fmt.Sprintf("deleted_field backing %q did not match any historical version", key))
		}
	}

	return warnings
}

// tagSemVer renders a json_schema_version integer as the semantic
// version string assigned to each emitted versioned-schema artifact:
// major component equals json_schema_version, minor/patch are always
// zero since a json_schema_version bump is always treated as the
// breaking unit.
func tagSemVer(jsonSchemaVersion int) (string, error) {
	v, err := semver.NewVersion(fmt.Sprintf("%d.0.0", jsonSchemaVersion))
	if err != nil {
		return "", errs.Newf(errs.Evolution, "json_schema_version", "could not tag semver for version %d: %v", jsonSchemaVersion, err)
	}
	return v.String(), nil
}
