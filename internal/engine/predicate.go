package engine

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"formflow-backend/internal/schema"
)

// Predicate is an injected custom validator. It receives the question's
// current answer and the full response map and reports whether the answer is
// valid. Predicates live in code, never in the persisted structure, so the
// structure document stays serializable.
type Predicate func(value any, responses map[string]any) (bool, error)

// PredicateRegistry holds named predicates referenced by custom validation
// rules. Registration happens at startup; lookups are concurrent-safe.
type PredicateRegistry struct {
	mu    sync.RWMutex
	preds map[string]Predicate
}

func NewPredicateRegistry() *PredicateRegistry {
	return &PredicateRegistry{preds: make(map[string]Predicate)}
}

func (r *PredicateRegistry) Register(name string, p Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preds[name] = p
}

func (r *PredicateRegistry) Get(name string) Predicate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preds[name]
}

// runCustomRule evaluates a custom validation rule. A missing predicate, a
// panicking predicate, or an expression error all surface as a validation
// failure, never as a propagated error.
func runCustomRule(rule *schema.ValidationRule, value any, responses map[string]any, preds *PredicateRegistry) (valid bool) {
	defer func() {
		if recover() != nil {
			valid = false
		}
	}()

	if rule.Predicate != "" {
		if preds == nil {
			return false
		}
		p := preds.Get(rule.Predicate)
		if p == nil {
			return false
		}
		ok, err := p(value, responses)
		return err == nil && ok
	}

	if rule.Expr != "" {
		// CheckStructure compiles at load time. A structure assembled in
		// code may arrive uncompiled; compile locally without writing back,
		// the rule can be shared across concurrent passes.
		prog, ok := rule.Compiled.(*vm.Program)
		if !ok || prog == nil {
			compiled, err := schema.CompilePredicate(rule.Expr)
			if err != nil {
				return false
			}
			prog = compiled
		}
		env := map[string]any{"value": value, "answers": responses}
		result, err := expr.Run(prog, env)
		if err != nil {
			return false
		}
		b, ok := result.(bool)
		return ok && b
	}

	return false
}
