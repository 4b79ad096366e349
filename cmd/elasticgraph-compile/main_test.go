package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.elasticgraph.dev/compiler/compiler"
	"go.elasticgraph.dev/compiler/emit/datastore"
	"go.elasticgraph.dev/compiler/emit/jsonschema"
	"go.elasticgraph.dev/compiler/emit/runtime"
	"go.elasticgraph.dev/compiler/evolution"
)

func TestKnownSchemaNamesListsRegisteredEntries(t *testing.T) {
	names := knownSchemaNames()
	assert.Contains(t, names, "widgets")
	assert.Contains(t, names, "widgets-evolved")
}

func TestLoadPriorArtifactRoundTripsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prior.json")
	want := &jsonschema.Artifact{JSONSchemaVersion: 3, Defs: map[string]jsonschema.Def{
		"Widget": {"type": "object"},
	}}
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := loadPriorArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.JSONSchemaVersion)
	assert.Contains(t, got.Defs, "Widget")
}

func TestLoadPriorArtifactRejectsMissingFile(t *testing.T) {
	_, err := loadPriorArtifact(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
}

func TestWriteArtifactsProducesEveryExpectedFile(t *testing.T) {
	dir := t.TempDir()
	artifacts := &compiler.Artifacts{
		SDL:                 "type Widget { id: ID! }\n",
		PublicJSONSchema:    &jsonschema.Artifact{JSONSchemaVersion: 1, Defs: map[string]jsonschema.Def{}},
		VersionedJSONSchema: &jsonschema.Artifact{JSONSchemaVersion: 1, Defs: map[string]jsonschema.Def{}},
		Datastore:           &datastore.Artifact{IndexTemplates: map[string]datastore.IndexTemplate{}, Indices: map[string]datastore.Index{}, Scripts: map[string]datastore.Script{}},
		Runtime:             &runtime.Bundle{},
		Evolution:           &evolution.Result{SemVer: "1.0.0"},
	}

	require.NoError(t, writeArtifacts(dir, artifacts))

	for _, name := range []string{
		"schema.graphql",
		"json_schema.public.json",
		"json_schema.versioned.json",
		"datastore_config.json",
		"runtime_metadata.json",
		"evolution.yaml",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoErrorf(t, err, "expected %s to be written", name)
	}

	sdlContents, err := os.ReadFile(filepath.Join(dir, "schema.graphql"))
	require.NoError(t, err)
	assert.Equal(t, artifacts.SDL, string(sdlContents))
}
