// SPDX-License-Identifier: Apache-2.0

package condition

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// CELEvaluator handles evaluation of boolean CEL expressions
type CELEvaluator struct {
	env *cel.Env
}

// NewCELEvaluator creates a CEL evaluator with the given string variables declared
func NewCELEvaluator(variables ...string) (*CELEvaluator, error) {
	opts := make([]cel.EnvOption, 0, len(variables))
	for _, name := range variables {
		opts = append(opts, cel.Variable(name, cel.StringType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %w", err)
	}

	return &CELEvaluator{env: env}, nil
}

// Compile parses and type-checks an expression that must yield a boolean
func (e *CELEvaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error parsing expression: %w", issues.Err())
	}

	checked, issues := e.env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error type-checking expression: %w", issues.Err())
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must evaluate to a boolean, got %s", checked.OutputType())
	}

	program, err := e.env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("error compiling expression: %w", err)
	}
	return program, nil
}

// Evaluate runs a compiled program and converts the result to a boolean
func Evaluate(program cel.Program, data map[string]interface{}) (bool, error) {
	result, _, err := program.Eval(data)
	if err != nil {
		return false, fmt.Errorf("error evaluating expression: %w", err)
	}

	if result.Type() != types.BoolType {
		return false, fmt.Errorf("expression did not evaluate to a boolean")
	}

	return result.Value().(bool), nil
}
