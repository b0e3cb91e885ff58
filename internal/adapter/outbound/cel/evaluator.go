// Package cel provides a CEL-based product expression evaluator used to
// filter catalog listings, e.g. `price < 100.0 && has_tag(tags, "audio")`.
package cel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/lumenshop/storefront/internal/domain/catalog"
)

// maxExpressionLength is the maximum allowed length for expressions.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit per evaluation.
const maxCostBudget = 100_000

// maxNestingDepth is the maximum allowed parenthesis/bracket nesting depth.
const maxNestingDepth = 50

// evalTimeout is the maximum time allowed for a single evaluation.
const evalTimeout = 2 * time.Second

// interruptCheckFreq is how often (in comprehension iterations) context cancellation is checked.
const interruptCheckFreq = 100

var stringSliceType = reflect.TypeOf([]string{})

// ErrInvalidExpression is returned when an expression fails validation or compilation.
var ErrInvalidExpression = errors.New("invalid product expression")

// Evaluator compiles and evaluates product expressions.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a new evaluator with the product environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := NewProductEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create product environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Compile validates, parses and type-checks expr, returning a compiled program.
// The expression must yield a bool. Errors wrap ErrInvalidExpression.
func (e *Evaluator) Compile(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: expression is empty", ErrInvalidExpression)
	}
	if len(expr) > maxExpressionLength {
		return nil, fmt.Errorf("%w: expression too long: %d characters (max %d)",
			ErrInvalidExpression, len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must return bool, got %s", ErrInvalidExpression, ast.OutputType())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}
	return prg, nil
}

// validateNesting checks that the expression does not exceed the maximum
// nesting depth for parentheses, brackets and braces.
func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// Evaluate runs a compiled program against p.
func (e *Evaluator) Evaluate(ctx context.Context, prg cel.Program, p catalog.Product) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(ctx, BuildProductActivation(p))
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}

	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return a boolean, got %T", result.Value())
	}
	return b, nil
}

// Matcher compiles expr once and returns a predicate usable as catalog.Filter.Match.
func (e *Evaluator) Matcher(ctx context.Context, expr string) (func(catalog.Product) (bool, error), error) {
	prg, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	return func(p catalog.Product) (bool, error) {
		return e.Evaluate(ctx, prg, p)
	}, nil
}
