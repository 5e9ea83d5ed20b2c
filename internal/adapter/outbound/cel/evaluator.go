// Package cel provides a CEL-based filter evaluator for monitor
// records, used by fileguardctl's `monitor --filter` to narrow a live
// or historical record stream client-side.
package cel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

// maxExpressionLength bounds a filter expression's source length.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit, preventing a crafted
// filter expression from burning unbounded CPU per record.
const maxCostBudget = 100_000

// maxNestingDepth bounds parenthesis/bracket nesting depth.
const maxNestingDepth = 50

// evalTimeout bounds a single record's filter evaluation.
const evalTimeout = 2 * time.Second

// interruptCheckFreq is how often (in comprehension iterations)
// context cancellation is checked during evaluation.
const interruptCheckFreq = 100

// Evaluator compiles and evaluates CEL filter expressions against
// monitor records.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a new CEL evaluator over the record filter
// environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := NewRecordEnvironment()
	if err != nil {
		return nil, fmt.Errorf("cel: build record environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Compile parses and type-checks a filter expression.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("cel: compile: %w", issues.Err())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("cel: build program: %w", err)
	}

	return prg, nil
}

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
		return fmt.Errorf("cel: expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// ValidateExpression checks that expr is syntactically valid, within
// the length and nesting limits, and type-checks against the record
// environment.
func (e *Evaluator) ValidateExpression(expr string) error {
	if expr == "" {
		return errors.New("cel: expression is empty")
	}
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("cel: expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return err
	}
	_, err := e.Compile(expr)
	return err
}

// Evaluate runs a compiled program against rec, returning whether the
// expression matched it.
func (e *Evaluator) Evaluate(prg cel.Program, rec monitor.Record) (bool, error) {
	activation := BuildRecordActivation(rec)

	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return false, fmt.Errorf("cel: evaluate: %w", err)
	}

	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cel: expression did not return a boolean, got %T", result.Value())
	}

	return boolResult, nil
}
