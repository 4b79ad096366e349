package derive

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
)

// celFieldEnv is the shared CEL environment every Tag/
// CustomizeSubAggregationsField predicate is compiled against: a
// single "field" variable exposing the attributes a schema author is
// likely to branch on.
var celFieldEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("field", cel.MapType(cel.StringType, cel.DynType)))
})

var celProgramCache = struct {
	sync.RWMutex
	byExpr map[string]cel.Program
}{byExpr: map[string]cel.Program{}}

// compileCELPredicate compiles and caches expr against celFieldEnv.
func compileCELPredicate(expr string) (cel.Program, error) {
	celProgramCache.RLock()
	prg, ok := celProgramCache.byExpr[expr]
	celProgramCache.RUnlock()
	if ok {
		return prg, nil
	}

	env, err := celFieldEnv()
	if err != nil {
		return nil, fmt.Errorf("cel environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err = env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}

	celProgramCache.Lock()
	celProgramCache.byExpr[expr] = prg
	celProgramCache.Unlock()
	return prg, nil
}

// evalFieldPredicate evaluates expr against f's attributes, returning
// whether the predicate matched.
func evalFieldPredicate(expr string, f *schema.Field) (bool, error) {
	prg, err := compileCELPredicate(expr)
	if err != nil {
		return false, err
	}
	input := map[string]interface{}{
		"field": map[string]interface{}{
			"name":         f.Name,
			"graphql_type": f.Type.String(),
			"groupable":    f.Groupable,
			"aggregatable": f.Aggregatable,
			"filterable":   f.Filterable,
		},
	}
	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", expr, err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate %q did not evaluate to a bool", expr)
	}
	return val, nil
}

// applyTag runs original's tag customize hook against derived: with no
// CEL predicate set, the literal Go callback runs unconditionally; a
// CEL predicate, if set, gates it (both set: callback fires only when the
// predicate is true; CEL alone with no callback attaches a marker
// directive recording that the predicate matched).
func (e *Engine) applyTag(original, derived *schema.Field, batch *errs.Batch) {
	applyCustomizeHook(original.TagCEL, original.Tag, "elasticGraphTagged", derived, batch)
}

// applyCustomizeSubAggregationsField runs original's
// customize_sub_aggregations_field hook against the derived
// sub-aggregation connection field, with the same CEL-gating semantics
// as applyTag.
func (e *Engine) applyCustomizeSubAggregationsField(original, derived *schema.Field, batch *errs.Batch) {
	applyCustomizeHook(original.CustomizeSubAggregationsFieldCEL, original.CustomizeSubAggregationsField, "elasticGraphSubAggregationsCustomized", derived, batch)
}

func applyCustomizeHook(celExpr string, hook func(*schema.Field), markerDirective string, derived *schema.Field, batch *errs.Batch) {
	if celExpr == "" {
		if hook != nil {
			hook(derived)
		}
		return
	}

	matched, err := evalFieldPredicate(celExpr, derived)
	if err != nil {
		batch.Add(errs.Newf(errs.Derivation, derived.Name, "customize predicate %q: %v", celExpr, err))
		return
	}
	if !matched {
		return
	}
	if hook != nil {
		hook(derived)
		return
	}
	derived.Directives = append(derived.Directives, schema.Directive{Name: markerDirective})
}
