// Package alerts evaluates low-stock rules over batch stock totals.
// The default rule fires when the total on hand drops to the batch's
// warning quantity; custom policies are CEL expressions over the same
// variables.
package alerts

import (
	"github.com/google/cel-go/cel"

	"clinicstock/internal/core/apperror"
)

// DefaultRule is used when no custom expression is configured.
const DefaultRule = "quantity <= warning"

// Rule is a compiled low-stock policy.
//
// Available variables:
//
//	quantity    double  total on hand across all pools, base units
//	warning     double  the batch's warning threshold, base units
//	batchNumber string  manufacturer batch number
//	expired     bool    whether the batch is past its expiry date
type Rule struct {
	expr    string
	program cel.Program
}

// CompileRule parses and type-checks a CEL expression into a Rule.
// The expression must evaluate to bool.
func CompileRule(expr string) (*Rule, error) {
	if expr == "" {
		expr = DefaultRule
	}

	env, err := cel.NewEnv(
		cel.Variable("quantity", cel.DoubleType),
		cel.Variable("warning", cel.DoubleType),
		cel.Variable("batchNumber", cel.StringType),
		cel.Variable("expired", cel.BoolType),
	)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, apperror.NewValidation("invalid alert rule").
			WithDetail("rule", expr).
			WithCause(issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, apperror.NewValidation("alert rule must evaluate to bool").
			WithDetail("rule", expr).
			WithDetail("outputType", ast.OutputType().String())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, apperror.NewValidation("invalid alert rule").
			WithDetail("rule", expr).
			WithCause(err)
	}

	return &Rule{expr: expr, program: program}, nil
}

// Expr returns the source expression.
func (r *Rule) Expr() string {
	return r.expr
}

// Input is one evaluation of the rule.
type Input struct {
	Quantity    float64
	Warning     float64
	BatchNumber string
	Expired     bool
}

// Eval runs the rule against the input.
func (r *Rule) Eval(in Input) (bool, error) {
	out, _, err := r.program.Eval(map[string]any{
		"quantity":    in.Quantity,
		"warning":     in.Warning,
		"batchNumber": in.BatchNumber,
		"expired":     in.Expired,
	})
	if err != nil {
		return false, apperror.NewValidation("alert rule evaluation failed").
			WithDetail("rule", r.expr).
			WithCause(err)
	}
	fired, ok := out.Value().(bool)
	if !ok {
		return false, apperror.NewValidation("alert rule must evaluate to bool").
			WithDetail("rule", r.expr)
	}
	return fired, nil
}
