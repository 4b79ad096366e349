// Command elasticgraph-compile runs the schema compiler's full pipeline
// against one of the schemas registered in this binary and writes every
// emitted artifact to an output directory.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"go.elasticgraph.dev/compiler/compiler"
	"go.elasticgraph.dev/compiler/emit/jsonschema"
	"go.elasticgraph.dev/compiler/examples/widgets"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// registeredSchemas maps --schema values to the Go package that defines
// them. A real deployment links its own domain package into this binary
// and adds an entry here; the compiler itself never loads schema
// definitions dynamically, since they are Go code, not a data format.
var registeredSchemas = map[string]func() *schema.Schema{
	"widgets":         widgets.Define,
	"widgets-evolved": widgets.DefineEvolved,
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		schemaName          string
		outputDir           string
		casing              string
		relaxVersionGuard   bool
		indexDocumentSizes  bool
		priorSchemaPath     string
	)

	cmd := &cobra.Command{
		Use:   "elasticgraph-compile",
		Short: "Compile a registered schema definition into SDL, JSON Schema, datastore config, and runtime metadata artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			define, ok := registeredSchemas[schemaName]
			if !ok {
				return fmt.Errorf("unknown --schema %q (known: %s)", schemaName, knownSchemaNames())
			}

			cfg := schema.DefaultConfig()
			cfg.EnforceJSONSchemaVersion = !relaxVersionGuard
			cfg.IndexDocumentSizes = indexDocumentSizes
			switch casing {
			case "snake_case":
				cfg.CasingForm = typeref.SnakeCase
			case "camelCase":
				cfg.CasingForm = typeref.CamelCase
			default:
				return fmt.Errorf("--casing must be snake_case or camelCase, got %q", casing)
			}

			var prior *jsonschema.Artifact
			if priorSchemaPath != "" {
				loaded, err := loadPriorArtifact(priorSchemaPath)
				if err != nil {
					return err
				}
				prior = loaded
			}

			artifacts, err := compiler.Compile(context.Background(), define(), cfg, prior)
			if err != nil {
				return err
			}

			for _, w := range artifacts.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}

			return writeArtifacts(outputDir, artifacts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&schemaName, "schema", "widgets", "registered schema to compile")
	flags.StringVar(&outputDir, "output-dir", "./elasticgraph-out", "directory to write emitted artifacts into")
	flags.StringVar(&casing, "casing", "snake_case", "schema_element_names.form: snake_case or camelCase")
	flags.BoolVar(&relaxVersionGuard, "relax-version-guard", false, "downgrade the json_schema_version artifact guard from error to warning")
	flags.BoolVar(&indexDocumentSizes, "index-document-sizes", false, "include per-field size accounting in the datastore mappings")
	flags.StringVar(&priorSchemaPath, "prior", "", "path to the previously compiled versioned JSON Schema artifact, for version evolution merging")

	return cmd
}

func knownSchemaNames() string {
	names := make([]string, 0, len(registeredSchemas))
	for name := range registeredSchemas {
		names = append(names, name)
	}
	return fmt.Sprintf("%v", names)
}

// loadPriorArtifact reads the prior compile's versioned JSON Schema
// artifact back from the json_schema.versioned.json file a previous
// invocation of this command wrote (see writeJSON below) -- plain
// encoding/json, matching the format it was written in.
func loadPriorArtifact(path string) (*jsonschema.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading --prior artifact: %w", err)
	}
	var a jsonschema.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing --prior artifact: %w", err)
	}
	return &a, nil
}

func writeArtifacts(dir string, a *compiler.Artifacts) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "schema.graphql"), []byte(a.SDL), 0o644); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "json_schema.public.json"), a.PublicJSONSchema); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "json_schema.versioned.json"), a.VersionedJSONSchema); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "datastore_config.json"), a.Datastore); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "runtime_metadata.json"), a.Runtime); err != nil {
		return err
	}
	if err := writeYAML(filepath.Join(dir, "evolution.yaml"), a.Evolution); err != nil {
		return err
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
