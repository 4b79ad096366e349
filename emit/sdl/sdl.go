// Package sdl implements the GraphQL SDL Emitter: render
// the registry to a canonical, deterministic SDL string, then round-trip
// it through a real GraphQL parser to verify it is syntactically valid
// and to prune types nothing actually references.
//
// The printing logic (per-kind sections, alphabetical sort, description
// blocks, directive argument rendering) prints this compiler's
// declarative *schema.Type registry directly, rather than a live
// graphql.Schema object.
package sdl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql/language/parser"

	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
)

// envelopeGroup names the types emitted last, in this fixed order,
// rather than interleaved alphabetically with the rest of their kind.
var envelopeGroup = []string{
	"ElasticGraphEventEnvelopeOp",
	"ElasticGraphEventEnvelopeTypeEnum",
	schema.EnvelopeTypeName,
}

// Render produces the canonical SDL for reg: alphabetical by name within
// each of (scalars, interfaces, objects, unions, enums, inputs), fields
// in declaration order, directives in declaration order, the envelope
// group emitted last, followed by every raw_sdl fragment verbatim.
func Render(reg *schema.Registry) (string, error) {
	if err := verify(reg); err != nil {
		return "", err
	}

	envelopeSet := make(map[string]bool, len(envelopeGroup))
	for _, n := range envelopeGroup {
		envelopeSet[n] = true
	}

	var out strings.Builder
	printByKind(&out, reg, schema.KindScalar, envelopeSet)
	printByKind(&out, reg, schema.KindInterface, envelopeSet)
	printByKind(&out, reg, schema.KindObject, envelopeSet)
	printByKind(&out, reg, schema.KindUnion, envelopeSet)
	printByKind(&out, reg, schema.KindEnum, envelopeSet)
	printByKind(&out, reg, schema.KindInput, envelopeSet)

	for _, name := range envelopeGroup {
		if t, ok := reg.Lookup(name); ok {
			printType(&out, reg, t)
		}
	}

	for _, frag := range reg.RawSDLFragments() {
		out.WriteString(strings.TrimRight(frag, " \t"))
		out.WriteString("\n\n")
	}

	return stripTrailingWhitespace(out.String()), nil
}

// RenderNormalized is Render followed by a round-trip normalization
// step: re-parse with a real GraphQL parser (to guarantee syntactic
// validity) and prune any type unreachable (see ReachableTypeNames)
// from the indexable types, the envelope group, PageInfo and Cursor;
// raw SDL fragments are appended as-is and do not keep a type reachable.
func RenderNormalized(reg *schema.Registry) (string, error) {
	first, err := Render(reg)
	if err != nil {
		return "", err
	}
	if _, parseErr := parser.Parse(parser.ParseParams{Source: first}); parseErr != nil {
		return "", errs.Newf(errs.Structural, "<schema>", "emitted SDL failed to re-parse: %v", parseErr)
	}

	reachable := ReachableTypeNames(reg)
	var out strings.Builder
	for _, kind := range []schema.Kind{schema.KindScalar, schema.KindInterface, schema.KindObject, schema.KindUnion, schema.KindEnum, schema.KindInput} {
		names := sortedNamesOfKind(reg, kind)
		for _, name := range names {
			if envelopeSetContains(name) {
				continue
			}
			if !reachable[name] {
				continue
			}
			t, _ := reg.Lookup(name)
			printType(&out, reg, t)
		}
	}
	for _, name := range envelopeGroup {
		if t, ok := reg.Lookup(name); ok {
			printType(&out, reg, t)
		}
	}
	for _, frag := range reg.RawSDLFragments() {
		out.WriteString(strings.TrimRight(frag, " \t"))
		out.WriteString("\n\n")
	}

	normalized := stripTrailingWhitespace(out.String())
	if _, parseErr := parser.Parse(parser.ParseParams{Source: normalized}); parseErr != nil {
		return "", errs.Newf(errs.Structural, "<schema>", "pruned SDL failed to re-parse: %v", parseErr)
	}
	return normalized, nil
}

func envelopeSetContains(name string) bool {
	for _, n := range envelopeGroup {
		if n == name {
			return true
		}
	}
	return false
}

// verify checks that for every registered object/interface/input type,
// each field's return type is resolvable.
func verify(reg *schema.Registry) error {
	batch := errs.NewBatch()
	for _, t := range reg.All() {
		if t.Kind != schema.KindObject && t.Kind != schema.KindInterface && t.Kind != schema.KindInput {
			continue
		}
		for _, f := range t.Fields {
			name := string(f.Type.FullyUnwrapped())
			if isBuiltinScalarName(name) {
				continue
			}
			if _, ok := reg.Lookup(name); !ok {
				batch.Add(errs.Newf(errs.Structural, t.Name,
					"field %q of type %q references undefined type %q", f.Name, t.Name, name))
			}
		}
	}
	return batch.AsError()
}

func isBuiltinScalarName(name string) bool {
	switch name {
	case "ID", "String", "Boolean", "Int", "Float":
		return true
	}
	return false
}

// ReachableTypeNames computes the closure of every type reachable by
// field type, implemented-interface, or union-member edges, starting
// from every indexable type, the envelope group, and PageInfo/Cursor.
// Exported so the runtime metadata emitter can prune in lockstep with
// the normalized SDL this package produces.
func ReachableTypeNames(reg *schema.Registry) map[string]bool {
	seen := map[string]bool{"PageInfo": true, "Cursor": true}
	for _, name := range envelopeGroup {
		seen[name] = true
	}
	var stack []string
	for _, t := range reg.All() {
		if (t.Kind == schema.KindObject || t.Kind == schema.KindInterface) && t.Index != nil {
			if !seen[t.Name] {
				seen[t.Name] = true
				stack = append(stack, t.Name)
			}
		}
	}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		push := func(n string) {
			if n == "" || isBuiltinScalarName(n) || seen[n] {
				return
			}
			seen[n] = true
			stack = append(stack, n)
		}
		for _, f := range t.Fields {
			push(string(f.Type.FullyUnwrapped()))
		}
		for _, iface := range t.ImplementedInterfaces {
			push(iface)
		}
		for _, m := range t.UnionMembers {
			push(m)
		}
	}
	return seen
}

func sortedNamesOfKind(reg *schema.Registry, kind schema.Kind) []string {
	var names []string
	for _, t := range reg.OfKind(kind) {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

func printByKind(out *strings.Builder, reg *schema.Registry, kind schema.Kind, skip map[string]bool) {
	for _, name := range sortedNamesOfKind(reg, kind) {
		if skip[name] {
			continue
		}
		t, _ := reg.Lookup(name)
		printType(out, reg, t)
	}
}

func stripTrailingWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

func printType(out *strings.Builder, reg *schema.Registry, t *schema.Type) {
	switch t.Kind {
	case schema.KindScalar:
		printDescription(out, t.Docs, 0)
		fmt.Fprintf(out, "scalar %s%s\n\n", t.Name, printDirectives(t.Directives))
	case schema.KindEnum:
		printDescription(out, t.Docs, 0)
		fmt.Fprintf(out, "enum %s%s {\n", t.Name, printDirectives(t.Directives))
		for _, v := range t.EnumValues {
			printDescription(out, v.Docs, 2)
			fmt.Fprintf(out, "  %s%s\n", v.CanonicalName, printDirectives(v.Directives))
		}
		out.WriteString("}\n\n")
	case schema.KindUnion:
		printDescription(out, t.Docs, 0)
		fmt.Fprintf(out, "union %s%s = %s\n\n", t.Name, printDirectives(t.Directives), strings.Join(t.UnionMembers, " | "))
	case schema.KindInput:
		printDescription(out, t.Docs, 0)
		fmt.Fprintf(out, "input %s%s {\n", t.Name, printDirectives(t.Directives))
		for _, f := range t.Fields {
			printDescription(out, f.Docs, 2)
			fmt.Fprintf(out, "  %s: %s%s\n", f.Name, f.Type.String(), printDirectives(f.Directives))
		}
		out.WriteString("}\n\n")
	case schema.KindInterface:
		printDescription(out, t.Docs, 0)
		fmt.Fprintf(out, "interface %s%s {\n", t.Name, printDirectives(t.Directives))
		printFields(out, t.Fields)
		out.WriteString("}\n\n")
	case schema.KindObject:
		printDescription(out, t.Docs, 0)
		implements := ""
		if len(t.ImplementedInterfaces) > 0 {
			implements = " implements " + strings.Join(t.ImplementedInterfaces, " & ")
		}
		fmt.Fprintf(out, "type %s%s%s {\n", t.Name, implements, printDirectives(t.Directives))
		printFields(out, t.Fields)
		out.WriteString("}\n\n")
	}
}

func printFields(out *strings.Builder, fields []*schema.Field) {
	for _, f := range fields {
		if f.IndexingOnly {
			continue
		}
		printDescription(out, f.Docs, 2)
		args := printFieldArgs(f.Directives)
		fmt.Fprintf(out, "  %s%s: %s%s\n", f.Name, args, f.Type.String(), printDirectives(f.Directives))
	}
}

// printFieldArgs renders GraphQL arguments for fields whose arguments
// were attached via the elasticGraphSubAggregationArgs/
// elasticGraphRelationshipArgs directive convention (see derive's
// subaggregations.go and relationships.go) rather than a native
// arguments list on schema.Field.
func printFieldArgs(directives []schema.Directive) string {
	for _, d := range directives {
		if d.Name != "elasticGraphSubAggregationArgs" && d.Name != "elasticGraphRelationshipArgs" {
			continue
		}
		var parts []string
		if v, ok := d.Args["filter"]; ok {
			parts = append(parts, fmt.Sprintf("filter: %v", v))
		}
		if v, ok := d.Args["order_by"]; ok {
			parts = append(parts, fmt.Sprintf("order_by: %v", v))
		}
		if v, ok := d.Args["first"]; ok {
			parts = append(parts, fmt.Sprintf("first: %v", v))
		}
		if len(parts) == 0 {
			continue
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return ""
}

func printDirectives(directives []schema.Directive) string {
	var b strings.Builder
	for _, d := range directives {
		b.WriteString(" @")
		b.WriteString(d.Name)
		if len(d.Args) == 0 {
			continue
		}
		keys := make([]string, 0, len(d.Args))
		for k := range d.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, d.Args[k]))
		}
		b.WriteString("(")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func printDescription(out *strings.Builder, docs string, indent int) {
	if docs == "" {
		return
	}
	pad := strings.Repeat(" ", indent)
	out.WriteString(pad)
	out.WriteString(`"""`)
	out.WriteString("\n")
	for _, line := range strings.Split(docs, "\n") {
		out.WriteString(pad)
		out.WriteString(line)
		out.WriteString("\n")
	}
	out.WriteString(pad)
	out.WriteString(`"""`)
	out.WriteString("\n")
}
