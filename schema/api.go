package schema

import (
	"sync"

	"go.elasticgraph.dev/compiler/errs"
)

// activeSlot is the process-wide "current API" slot: a scoped
// acquisition in place of a global mutable thread-local. Exactly one
// schema definition may be active at a time; DefineSchema acquires it
// for the duration of the user's callback and releases it on every
// exit path (including panics), without needing a defer-based
// finalizer exposed to the caller.
var activeSlot struct {
	mu     sync.Mutex
	active *Schema
}

// ErrAlreadyActive is returned by DefineSchema when called re-entrantly:
// recursive redefinition is not supported, since the slot is
// single-threaded.
var ErrAlreadyActive = errs.New(errs.Structural, "", "a schema definition is already active; recursive define_schema is not supported")

// DefineSchema is the public `define_schema` entry point:
// it acquires the process-wide active-API slot, runs build against a
// fresh Schema, and guarantees release of the slot on every exit path,
// including a panic inside build (which is re-raised after the slot is
// released, so the caller's stack trace still shows the original
// panic).
func DefineSchema(build func(*Schema)) (*Schema, error) {
	activeSlot.mu.Lock()
	if activeSlot.active != nil {
		activeSlot.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	s := New()
	activeSlot.active = s
	activeSlot.mu.Unlock()

	defer func() {
		activeSlot.mu.Lock()
		activeSlot.active = nil
		activeSlot.mu.Unlock()
	}()

	build(s)

	if !s.Errors().Empty() {
		return s, s.Errors().AsError()
	}
	return s, nil
}

// Active returns the currently-active Schema, for builder extensions
// that need to reach it without having been passed it directly (e.g.
// an extension module registered before built-in type registration).
// Returns nil if no definition is active.
func Active() *Schema {
	activeSlot.mu.Lock()
	defer activeSlot.mu.Unlock()
	return activeSlot.active
}
