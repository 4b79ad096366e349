// Package datastore implements the Datastore Config Emitter: index and
// template configuration and the scripts that back dynamic
// derived-indexed-type rules, read straight off the completed registry.
package datastore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"go.elasticgraph.dev/compiler/schema"
)

// Mapping is one leaf/object/nested entry of a mappings.properties tree.
type Mapping = map[string]interface{}

// IndexTemplate is one index_templates entry, emitted when its
// IndexDescriptor declares rollover.
type IndexTemplate struct {
	IndexPatterns         []string               `json:"index_patterns"`
	Settings              map[string]interface{} `json:"settings"`
	Mappings              Mapping                `json:"mappings"`
	CustomTimestampRanges map[string]interface{} `json:"custom_timestamp_ranges,omitempty"`
}

// Index is one concrete indices entry, emitted when its IndexDescriptor
// has no rollover.
type Index struct {
	Settings map[string]interface{} `json:"settings"`
	Mappings Mapping                `json:"mappings"`
}

// Script is one scripts entry, content-addressed by its source.
type Script struct {
	Context string `json:"context"` // "update" or "filter"
	Language string `json:"language"`
	Source  string `json:"source"`
}

// Artifact is the top-level datastore config document.
type Artifact struct {
	IndexTemplates map[string]IndexTemplate `json:"index_templates"`
	Indices        map[string]Index         `json:"indices"`
	Scripts        map[string]Script        `json:"scripts"`
}

// Emit builds the datastore config artifact for every indexed
// object/interface type in reg.
func Emit(reg *schema.Registry, indexDocumentSizes bool) *Artifact {
	a := &Artifact{
		IndexTemplates: map[string]IndexTemplate{},
		Indices:        map[string]Index{},
		Scripts:        map[string]Script{},
	}

	for _, t := range reg.All() {
		if (t.Kind != schema.KindObject && t.Kind != schema.KindInterface) || t.Index == nil {
			continue
		}
		mappings := buildMappings(reg, t, indexDocumentSizes)
		settings := buildSettings(t.Index)

		if t.Index.Rollover != nil {
			a.IndexTemplates[t.Index.Name] = IndexTemplate{
				IndexPatterns:         []string{t.Index.Name + "_rollover-*"},
				Settings:              settings,
				Mappings:              mappings,
				CustomTimestampRanges: buildCustomRanges(t.Index.Rollover),
			}
		} else {
			a.Indices[t.Index.Name] = Index{Settings: settings, Mappings: mappings}
		}

		for _, rule := range t.DerivedIndexedTypeRules {
			script := buildDynamicScript(t, rule)
			a.Scripts[scriptID(script)] = script
		}
	}

	for name, script := range staticScripts() {
		a.Scripts[name] = script
	}

	return a
}

// buildMappings walks t's field tree -- each leaf
// contributes {type, ...options}, each plain object subfield contributes
// a properties subtree, each nested list contributes a nested subtree,
// and, when indexDocumentSizes is enabled, a synthesized __counts
// object records the length of each list field declared directly on t,
// keyed by its name_in_index. List fields inside object or nested
// subfields get no __counts entry, and no key is a dotted path.
func buildMappings(reg *schema.Registry, t *schema.Type, indexDocumentSizes bool) Mapping {
	properties := Mapping{}
	counts := Mapping{}

	for _, f := range t.Fields {
		if f.GraphQLOnly {
			continue
		}
		properties[f.NameInIndex] = mappingFor(reg, f)
		if f.Type.IsList() {
			counts[f.NameInIndex] = Mapping{"type": "integer"}
		}
	}

	mappings := Mapping{"properties": properties}
	if indexDocumentSizes && len(counts) > 0 {
		properties["__counts"] = Mapping{"type": "object", "properties": counts}
	}
	return mappings
}

func mappingFor(reg *schema.Registry, f *schema.Field) Mapping {
	if f.Mapping != nil {
		m := Mapping{"type": string(f.Mapping.Type)}
		for k, v := range f.Mapping.Options {
			m[k] = v
		}
		return m
	}

	named := string(f.Type.FullyUnwrapped())
	target, ok := reg.Lookup(named)
	if !ok {
		return Mapping{"type": "keyword"}
	}
	switch target.Kind {
	case schema.KindScalar:
		return Mapping{"type": string(target.Scalar.Mapping.Type)}
	case schema.KindEnum:
		return Mapping{"type": "keyword"}
	case schema.KindObject, schema.KindInterface:
		sub := Mapping{}
		for _, sf := range target.Fields {
			if sf.GraphQLOnly {
				continue
			}
			sub[sf.NameInIndex] = mappingFor(reg, sf)
		}
		if f.Type.IsList() {
			return Mapping{"type": "nested", "properties": sub}
		}
		return Mapping{"type": "object", "properties": sub}
	default:
		return Mapping{"type": "keyword"}
	}
}

func buildSettings(idx *schema.IndexDescriptor) map[string]interface{} {
	settings := map[string]interface{}{}
	if idx.RouteWith != "" {
		settings["index.routing_partition_size"] = "custom"
	}
	for k, v := range idx.SettingsOverrides {
		settings[k] = v
	}
	return settings
}

func buildCustomRanges(r *schema.Rollover) map[string]interface{} {
	if len(r.CustomRanges) == 0 {
		return nil
	}
	out := map[string]interface{}{}
	for _, cr := range r.CustomRanges {
		entry := map[string]interface{}{}
		if cr.Before != nil {
			entry["before"] = *cr.Before
		}
		if cr.After != nil {
			entry["after"] = *cr.After
		}
		out[cr.NameSuffix] = entry
	}
	return out
}

// buildDynamicScript renders one derive_indexed_type_fields rule as an
// update script: an `append_only_set "widget_ids", from: "id"`-style
// merge operation becomes a script source line.
func buildDynamicScript(t *schema.Type, rule schema.DerivedIndexedTypeRule) Script {
	var lines []string
	for _, m := range rule.Merges {
		switch m.Op {
		case "append_only_set":
			lines = append(lines, fmt.Sprintf(
				"if (!ctx._source.containsKey('%s')) { ctx._source.%s = [] } if (!ctx._source.%s.contains(params.%s)) { ctx._source.%s.add(params.%s) }",
				m.DestField, m.DestField, m.DestField, m.SourceField, m.DestField, m.SourceField))
		default:
			lines = append(lines, fmt.Sprintf("ctx._source.%s = params.%s", m.DestField, m.SourceField))
		}
	}
	return Script{
		Context:  "update",
		Language: "painless",
		Source:   strings.Join(lines, "\n"),
	}
}

// scriptID content-addresses a script by the SHA-256 of its source, so
// scripts are keyed by a stable content-addressed ID.
func scriptID(s Script) string {
	sum := sha256.Sum256([]byte(s.Context + "\n" + s.Source))
	return "script_" + hex.EncodeToString(sum[:])[:16]
}

// EmitPostgresDDL renders an optional relational-shadow-table DDL
// script, one CREATE TABLE per indexed object type, for installations
// that mirror indexed documents into Postgres for ad hoc SQL access.
// This output is off by default and never consumed by the core
// compile pipeline -- it exists purely as a secondary emission target.
func EmitPostgresDDL(reg *schema.Registry) string {
	var out strings.Builder
	for _, t := range reg.All() {
		if t.Kind != schema.KindObject || t.Index == nil {
			continue
		}
		fmt.Fprintf(&out, "CREATE TABLE %s (\n", pq.QuoteIdentifier(t.Index.Name))
		var cols []string
		for _, f := range t.Fields {
			if f.GraphQLOnly || f.Type.IsList() {
				continue
			}
			cols = append(cols, fmt.Sprintf("  %s %s", pq.QuoteIdentifier(f.NameInIndex), postgresColumnType(f)))
		}
		out.WriteString(strings.Join(cols, ",\n"))
		out.WriteString("\n);\n\n")
	}
	return out.String()
}

func postgresColumnType(f *schema.Field) string {
	if f.Mapping == nil {
		return "text"
	}
	switch f.Mapping.Type {
	case schema.MappingInteger:
		return "integer"
	case schema.MappingLong:
		return "bigint"
	case schema.MappingFloat, schema.MappingDouble:
		return "double precision"
	case schema.MappingBoolean:
		return "boolean"
	case schema.MappingDate, schema.MappingDateTime:
		return "timestamptz"
	default:
		return "text"
	}
}

// staticScripts returns the fixed repository of scripts loaded
// independent of any user schema, keyed by scoped name. None are needed
// by the derivations this compiler currently performs; the map exists so
// the runtime metadata emitter's static_script_ids_by_scoped_name has a
// stable, always-present source to read from.
func staticScripts() map[string]Script {
	return map[string]Script{}
}
