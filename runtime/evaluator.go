package runtime

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Eval evaluates an expression against the given environment using
// expr-lang. Missing variables resolve to nil rather than failing
// compilation, so predicates can probe optional output fields.
func Eval(expression string, env map[string]any) (any, error) {
	if env == nil {
		env = map[string]any{}
	}

	// null as alias for nil (JSON/YAML compatibility)
	env["null"] = nil

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

// EvalPredicate evaluates a conditional-transition predicate, which must
// produce a boolean.
func EvalPredicate(expression string, env map[string]any) (bool, error) {
	result, err := Eval(expression, env)
	if err != nil {
		return false, fmt.Errorf("error evaluating predicate %s: %w", expression, err)
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("predicate %s evaluated to %T, expected boolean", expression, result)
	}
	return b, nil
}
