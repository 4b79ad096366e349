package schema

import (
	"io"
	"os"

	charmlog "charm.land/log/v2"
	"github.com/redis/go-redis/v9"

	"go.elasticgraph.dev/compiler/typeref"
)

// ExtensionModule is one extension_modules entry: a pluggable builder
// extension loaded before built-in type registration so it may
// customize built-ins.
type ExtensionModule struct {
	Name  string
	Apply func(*Schema)
}

// Config bundles every option the compiler entry point accepts,
// including naming/casing overrides and the ambient-stack additions
// (Logger, DerivationCache).
type Config struct {
	CasingForm             typeref.CasingForm
	SchemaElementNameOverrides map[string]string
	TypeNameOverrides      map[string]string
	EnumValueOverridesByType map[string]map[string]string
	DerivedTypeNameFormats map[typeref.Category]string

	IndexDocumentSizes bool

	// EnforceJSONSchemaVersion relaxes the version-evolution artifact
	// guard from abort to warning when false.
	EnforceJSONSchemaVersion bool

	ExtensionModules []ExtensionModule

	// Logger receives every compiler warning (unused overrides, unused
	// deprecated elements, relaxed version-guard notices). Defaults to
	// a charm.land/log/v2 logger writing to stderr.
	Logger *charmlog.Logger

	// DerivationCache, if set, memoizes (type name, json_schema_version)
	// -> derived-artifact-hash across separate compiler invocations.
	// Purely additive: in-process derivation always runs regardless of
	// cache hits, so a misconfigured cache cannot produce a wrong
	// artifact, only a slower one.
	DerivationCache *redis.Client
}

// DefaultConfig returns the zero-configuration defaults: snake_case
// element names, no overrides, strict version enforcement, and a
// stderr logger.
func DefaultConfig() *Config {
	return &Config{
		CasingForm:               typeref.SnakeCase,
		EnforceJSONSchemaVersion: true,
		Logger:                   newDefaultLogger(os.Stderr),
	}
}

func newDefaultLogger(w io.Writer) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{Prefix: "elasticgraph-compile"})
}

// Namer builds a typeref.Namer from the config's naming options.
func (c *Config) Namer() *typeref.Namer {
	return typeref.NewNamer(c.CasingForm, c.DerivedTypeNameFormats, c.TypeNameOverrides,
		c.EnumValueOverridesByType, c.SchemaElementNameOverrides)
}
