// Package errs defines the single error kind surfaced by the schema
// compiler, SchemaError, and the batching helper used by the derivation
// engine and version evolution pass to report every independent problem
// found in a pass instead of failing on the first one.
package errs

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Category tags the broad origin of a SchemaError.
type Category string

const (
	Structural Category = "structural"
	Index      Category = "index_integrity"
	JSONSchema Category = "json_schema"
	Derivation Category = "derivation"
	Evolution  Category = "evolution"
	Naming     Category = "naming"
)

// Location points at the user-code site a SchemaError is attributed to,
// when known. Zero value means "unknown location".
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// SchemaError is the only error kind this compiler ever raises. Every
// validation or emission failure is represented as one of these, never
// a bare error string, so that callers can branch on Category and so
// that remedies are always attached to the message.
type SchemaError struct {
	Category Category
	Name     string // offending type/field/index name, when applicable
	Message  string
	At       Location
	Remedies []string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Category))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.At.File != "" {
		fmt.Fprintf(&b, " (at %s)", e.At)
	}
	for _, r := range e.Remedies {
		b.WriteString("\n  - ")
		b.WriteString(r)
	}
	return b.String()
}

// New builds a SchemaError with no location and no remedies attached.
func New(cat Category, name, message string) *SchemaError {
	return &SchemaError{Category: cat, Name: name, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting of the message.
func Newf(cat Category, name, format string, args ...interface{}) *SchemaError {
	return New(cat, name, fmt.Sprintf(format, args...))
}

// WithLocation attaches a source location and returns the receiver for
// chaining at the call site.
func (e *SchemaError) WithLocation(loc Location) *SchemaError {
	e.At = loc
	return e
}

// WithRemedies attaches one or more actionable remedies to the error.
func (e *SchemaError) WithRemedies(remedies ...string) *SchemaError {
	e.Remedies = append(e.Remedies, remedies...)
	return e
}

// Batch accumulates independent SchemaErrors across a single pass (the
// sourced_from closure in derive, and the historical-version merge in
// evolution) and reports them together.
//
// Each Batch is tagged with a random correlation ID so that separate
// concurrent or sequential compiler runs can be told apart in logs even
// though their error text may otherwise be byte-identical.
type Batch struct {
	ID     string
	errors []*SchemaError
}

// NewBatch starts a new error batch.
func NewBatch() *Batch {
	return &Batch{ID: uuid.NewString()}
}

// Add records one problem in the batch. Nil errors are ignored so
// callers can unconditionally Add the result of a fallible helper.
func (b *Batch) Add(err *SchemaError) {
	if err == nil {
		return
	}
	b.errors = append(b.errors, err)
}

// Empty reports whether the batch accumulated zero errors.
func (b *Batch) Empty() bool {
	return len(b.errors) == 0
}

// Errors returns the accumulated errors in the order they were added.
func (b *Batch) Errors() []*SchemaError {
	return b.errors
}

// AsError returns nil if the batch is empty, otherwise a single error
// whose message enumerates every accumulated problem, prefixed with the
// batch's correlation ID so operators can find the matching log lines.
func (b *Batch) AsError() error {
	if b.Empty() {
		return nil
	}
	var lines []string
	for _, e := range b.errors {
		lines = append(lines, e.Error())
	}
	return fmt.Errorf("schema compilation failed with %d error(s) [batch %s]:\n%s",
		len(b.errors), b.ID, strings.Join(lines, "\n"))
}
