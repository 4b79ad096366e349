// Package compiler ties the schema builder, derivation engine, emitters,
// and version evolution pass into a single entry point:
// Compile(schema, config) -> artifacts or errors.
package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go.elasticgraph.dev/compiler/derive"
	"go.elasticgraph.dev/compiler/emit/datastore"
	"go.elasticgraph.dev/compiler/emit/jsonschema"
	"go.elasticgraph.dev/compiler/emit/runtime"
	"go.elasticgraph.dev/compiler/emit/sdl"
	"go.elasticgraph.dev/compiler/evolution"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

var tracer = otel.Tracer("elasticgraph/compiler")

// Artifacts is every document Compile produces.
type Artifacts struct {
	SDL                 string
	PublicJSONSchema    *jsonschema.Artifact
	VersionedJSONSchema *jsonschema.Artifact
	Datastore           *datastore.Artifact
	Runtime             *runtime.Bundle
	Evolution           *evolution.Result
	Warnings            []string
}

// PriorVersionedSchema is the previously compiled versioned JSON Schema
// artifact, supplied by the caller (typically loaded from the output
// directory of the prior compile) so Compile can run the version
// evolution merge. Pass nil on a repository's first compile.
type PriorVersionedSchema = jsonschema.Artifact

// Compile runs the full pipeline: close the user phase, derive, emit
// every artifact, and merge against the prior version. Each phase is
// wrapped in its own span under the "elasticgraph/compiler" tracer so a
// slow compile can be attributed to a specific phase.
func Compile(ctx context.Context, s *schema.Schema, cfg *schema.Config, prior *PriorVersionedSchema) (*Artifacts, error) {
	ctx, span := tracer.Start(ctx, "Compile")
	defer span.End()

	if cfg == nil {
		cfg = schema.DefaultConfig()
	}

	if err := s.Errors().AsError(); err != nil {
		span.SetStatus(codes.Error, "user phase reported errors")
		return nil, err
	}

	reg := s.Registry()
	namer := cfg.Namer()

	engine := derive.New(reg, namer)
	if err := runPhase(ctx, "derive", func(ctx context.Context) error {
		return engine.Run()
	}); err != nil {
		span.SetStatus(codes.Error, "derivation failed")
		return nil, err
	}
	warnings := warningStrings(engine.Warnings())
	warnings = append(warnings, engine.RelationshipWarnings()...)

	var renderedSDL string
	if err := runPhase(ctx, "emit_sdl", func(ctx context.Context) error {
		out, err := sdl.RenderNormalized(reg)
		renderedSDL = out
		return err
	}); err != nil {
		span.SetStatus(codes.Error, "SDL emission failed")
		return nil, err
	}

	var publicSchema, versionedSchema *jsonschema.Artifact
	if err := runPhase(ctx, "emit_jsonschema", func(ctx context.Context) error {
		pub, ver, err := jsonschema.Emit(reg)
		publicSchema, versionedSchema = pub, ver
		return err
	}); err != nil {
		span.SetStatus(codes.Error, "JSON Schema emission failed")
		return nil, err
	}
	checkDerivationCache(ctx, cfg, versionedSchema)

	var ds *datastore.Artifact
	if err := runPhase(ctx, "emit_datastore", func(ctx context.Context) error {
		ds = datastore.Emit(reg, cfg.IndexDocumentSizes)
		return nil
	}); err != nil {
		return nil, err
	}

	var rt *runtime.Bundle
	if err := runPhase(ctx, "emit_runtime", func(ctx context.Context) error {
		reachable := sdl.ReachableTypeNames(reg)
		updateTargets := runtime.UpdateTargetsFromSourcedFrom(reg)
		rt = runtime.Emit(reg, reachable, updateTargets)
		for scriptID := range ds.Scripts {
			rt.StaticScriptIDsByScopedName[scriptID] = scriptID
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var evoResult *evolution.Result
	if err := runPhase(ctx, "evolution", func(ctx context.Context) error {
		result, err := evolution.Merge(reg, cfg, versionedSchema, prior)
		evoResult = result
		return err
	}); err != nil {
		span.SetStatus(codes.Error, "version evolution merge failed")
		return nil, err
	}
	if evoResult != nil {
		warnings = append(warnings, evoResult.Warnings...)
	}

	if cfg.Logger != nil {
		for _, w := range warnings {
			cfg.Logger.Warn(w)
		}
	}

	span.SetAttributes(
		attribute.Int("elasticgraph.json_schema_version", versionedSchema.JSONSchemaVersion),
		attribute.Int("elasticgraph.warning_count", len(warnings)),
		attribute.String("elasticgraph.artifact_checksum", checksum(renderedSDL)),
	)

	return &Artifacts{
		SDL:                 renderedSDL,
		PublicJSONSchema:    publicSchema,
		VersionedJSONSchema: versionedSchema,
		Datastore:           ds,
		Runtime:             rt,
		Evolution:           evoResult,
		Warnings:            warnings,
	}, nil
}

func runPhase(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("elasticgraph.phase", name)))
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func warningStrings(ws []typeref.UnusedOverrideWarning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}

func checksum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// checkDerivationCache memoizes each type's derived-artifact hash in
// cfg.DerivationCache, keyed by (type name, json_schema_version), so a
// CI pipeline running repeated compiles can see when a type's derived
// shape actually changed between runs. Derivation above has already
// run unconditionally and in-process; a cache miss, a stale entry, or
// an unreachable Redis instance only costs an Info log line, never
// correctness.
func checkDerivationCache(ctx context.Context, cfg *schema.Config, versioned *jsonschema.Artifact) {
	if cfg.DerivationCache == nil || versioned == nil {
		return
	}
	client := cfg.DerivationCache

	names := make([]string, 0, len(versioned.Defs))
	for name := range versioned.Defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := fmt.Sprintf("elasticgraph:derivation:%s:%d", name, versioned.JSONSchemaVersion)
		hash := checksum(fmt.Sprintf("%v", versioned.Defs[name]))

		prior, err := client.Get(ctx, key).Result()
		switch {
		case err != nil && err != redis.Nil:
			if cfg.Logger != nil {
				cfg.Logger.Info("derivation cache unreachable, continuing without it", "err", err)
			}
			return
		case err == nil && prior != hash:
			if cfg.Logger != nil {
				cfg.Logger.Info("derivation hash changed since last cached compile", "type", name, "json_schema_version", versioned.JSONSchemaVersion)
			}
		}

		if err := client.Set(ctx, key, hash, 0).Err(); err != nil && cfg.Logger != nil {
			cfg.Logger.Info("derivation cache write failed, continuing without it", "err", err)
		}
	}
}
