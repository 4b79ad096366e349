package typeref

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// Category enumerates the derived-type name categories the namer
// knows how to produce
type Category string

const (
	FilterInput                   Category = "FilterInput"
	ListFilterInput                Category = "ListFilterInput"
	ListElementFilterInput         Category = "ListElementFilterInput"
	FieldsListFilterInput          Category = "FieldsListFilterInput"
	Aggregation                    Category = "Aggregation"
	AggregatedValues               Category = "AggregatedValues"
	GroupedBy                      Category = "GroupedBy"
	AggregationSubAggregations     Category = "AggregationSubAggregations"
	SubAggregation                 Category = "SubAggregation"
	SubAggregationConnection       Category = "SubAggregationConnection"
	SubAggregationSubAggregations  Category = "SubAggregationSubAggregations"
	Edge                           Category = "Edge"
	Connection                     Category = "Connection"
	SortOrder                      Category = "SortOrder"
	SortOrderInput                 Category = "SortOrderInput"
)

// defaultFormats are the "%s Suffix"-shaped naming templates,
// collapsed (no space) the way GraphQL type names are actually written.
var defaultFormats = map[Category]string{
	FilterInput:                  "%sFilterInput",
	ListFilterInput:               "%sListFilterInput",
	ListElementFilterInput:        "%sListElementFilterInput",
	FieldsListFilterInput:         "%sFieldsListFilterInput",
	Aggregation:                   "%sAggregation",
	AggregatedValues:              "%sAggregatedValues",
	GroupedBy:                     "%sGroupedBy",
	AggregationSubAggregations:    "%sAggregationSubAggregations",
	SubAggregation:                "%sSubAggregation",
	SubAggregationConnection:      "%sSubAggregationConnection",
	SubAggregationSubAggregations: "%sSubAggregationSubAggregations",
	Edge:                          "%sEdge",
	Connection:                    "%sConnection",
	SortOrder:                     "%sSortOrder",
	SortOrderInput:                "%sSortOrderInput",
}

// CasingForm selects how generated schema-element names (fields like
// equal_to_any_of vs equalToAnyOf) are cased, per the
// schema_element_names.form compiler option in 
type CasingForm int

const (
	SnakeCase CasingForm = iota
	CamelCase
)

// Namer generates names for derived types and schema elements, honors
// per-category format overrides and per-name overrides, and tracks
// which overrides were actually consulted so unused ones can be
// reported as warnings at the end of compilation.
type Namer struct {
	casing CasingForm

	formatOverrides map[Category]string
	typeNameOverrides map[string]string
	enumValueOverrides map[string]map[string]string
	elementNameOverrides map[string]string

	usedTypeOverrides       map[string]bool
	usedEnumValueOverrides  map[string]bool // key: "EnumType.value"
	usedElementOverrides    map[string]bool
	usedFormatOverrides     map[Category]bool
}

// NewNamer constructs a Namer with the given casing form and override
// tables (any of the maps may be nil, meaning "no overrides of that
// kind").
func NewNamer(casing CasingForm,
	formatOverrides map[Category]string,
	typeNameOverrides map[string]string,
	enumValueOverrides map[string]map[string]string,
	elementNameOverrides map[string]string,
) *Namer {
	return &Namer{
		casing:               casing,
		formatOverrides:      formatOverrides,
		typeNameOverrides:    typeNameOverrides,
		enumValueOverrides:   enumValueOverrides,
		elementNameOverrides: elementNameOverrides,

		usedTypeOverrides:      make(map[string]bool),
		usedEnumValueOverrides: make(map[string]bool),
		usedElementOverrides:   make(map[string]bool),
		usedFormatOverrides:    make(map[Category]bool),
	}
}

// formatFor returns the template to use for a category, recording
// whether an override was consulted.
func (n *Namer) formatFor(cat Category) string {
	if f, ok := n.formatOverrides[cat]; ok {
		n.usedFormatOverrides[cat] = true
		return f
	}
	return defaultFormats[cat]
}

// DerivedName computes the derived type name for base under cat,
// consulting (and marking used) any type_name_overrides entry that
// matches the mechanically-generated name.
func (n *Namer) DerivedName(base string, cat Category) string {
	generated := fmt.Sprintf(n.formatFor(cat), base)
	if override, ok := n.typeNameOverrides[generated]; ok {
		n.usedTypeOverrides[generated] = true
		return override
	}
	return generated
}

// SubAggregationPathName builds the owner-path-qualified name used for
// nested sub-aggregation types: concatenate type names
// along the chain of object/nested ancestors, skipping "Connection"
// intermediate nodes, then apply the SubAggregation/-Connection/
// -SubAggregations category template to the concatenation.
func (n *Namer) SubAggregationPathName(pathSegments []string, cat Category) string {
	filtered := make([]string, 0, len(pathSegments))
	for _, seg := range pathSegments {
		if strings.HasSuffix(seg, "Connection") {
			continue
		}
		filtered = append(filtered, seg)
	}
	return n.DerivedName(strings.Join(filtered, ""), cat)
}

// EnumValueName resolves the canonical emitted name for an enum value,
// consulting enum_value_overrides_by_type[enumType][original].
func (n *Namer) EnumValueName(enumType, original string) string {
	if byType, ok := n.enumValueOverrides[enumType]; ok {
		if override, ok := byType[original]; ok {
			n.usedEnumValueOverrides[enumType+"."+original] = true
			return override
		}
	}
	return original
}

// ElementName cases a canonical schema-element name (e.g.
// "equal_to_any_of") per the configured CasingForm, honoring any
// schema_element_name_overrides entry for the canonical form first.
func (n *Namer) ElementName(canonical string) string {
	if override, ok := n.elementNameOverrides[canonical]; ok {
		n.usedElementOverrides[canonical] = true
		return override
	}
	switch n.casing {
	case CamelCase:
		return strcase.ToLowerCamel(canonical)
	default:
		return canonical
	}
}

// SortOrderValueName builds a `<path>_ASC` / `<path>_DESC` enum value
// nameThe path's underscore-joined leaf segments are
// left alone regardless of casing form, since sort order enum values
// are GraphQL enum literals (traditionally SCREAMING_SNAKE by
// convention), not schema element names.
func SortOrderValueName(pathSegments []string, descending bool) string {
	suffix := "ASC"
	if descending {
		suffix = "DESC"
	}
	return strings.Join(pathSegments, "_") + "_" + suffix
}

// UnusedOverrideWarning describes one override that was registered but
// never consulted during compilation.
type UnusedOverrideWarning struct {
	Kind       string // "type_name_override", "enum_value_override", "element_name_override", "derived_type_name_format"
	Name       string
	Suggestion string
}

func (w UnusedOverrideWarning) String() string {
	msg := fmt.Sprintf("unused %s %q", w.Kind, w.Name)
	if w.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", w.Suggestion)
	}
	return msg
}

// UnusedOverrides reports every override/format that was registered but
// never consulted, each annotated with a spell-check suggestion drawn
// from candidates (the set of names that *were* actually generated
// during compilation) "unused ones produce warnings
// (with spell-check suggestions)".
func (n *Namer) UnusedOverrides(candidates []string) []UnusedOverrideWarning {
	var warnings []UnusedOverrideWarning

	keys := make([]string, 0, len(n.typeNameOverrides))
	for k := range n.typeNameOverrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !n.usedTypeOverrides[k] {
			warnings = append(warnings, UnusedOverrideWarning{
				Kind: "type_name_override", Name: k, Suggestion: closestMatch(k, candidates),
			})
		}
	}

	var enumKeys []string
	for enumType, byVal := range n.enumValueOverrides {
		for orig := range byVal {
			enumKeys = append(enumKeys, enumType+"."+orig)
		}
	}
	sort.Strings(enumKeys)
	for _, k := range enumKeys {
		if !n.usedEnumValueOverrides[k] {
			warnings = append(warnings, UnusedOverrideWarning{
				Kind: "enum_value_override", Name: k, Suggestion: closestMatch(k, candidates),
			})
		}
	}

	var elemKeys []string
	for k := range n.elementNameOverrides {
		elemKeys = append(elemKeys, k)
	}
	sort.Strings(elemKeys)
	for _, k := range elemKeys {
		if !n.usedElementOverrides[k] {
			warnings = append(warnings, UnusedOverrideWarning{
				Kind: "element_name_override", Name: k, Suggestion: closestMatch(k, candidates),
			})
		}
	}

	var formatKeys []string
	for cat := range n.formatOverrides {
		formatKeys = append(formatKeys, string(cat))
	}
	sort.Strings(formatKeys)
	for _, k := range formatKeys {
		if !n.usedFormatOverrides[Category(k)] {
			warnings = append(warnings, UnusedOverrideWarning{
				Kind: "derived_type_name_format", Name: k, Suggestion: closestMatch(k, candidates),
			})
		}
	}

	return warnings
}

// closestMatch returns the candidate with the smallest Levenshtein
// distance to target, or "" if candidates is empty. None of the
// retrieved example repos vendor a fuzzy-matching library, so this is
// implemented directly against the standard library -- a ~20-line
// edit-distance routine does not justify a dependency.
func closestMatch(target string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein(target, c)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}
