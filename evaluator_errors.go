package timetravel

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Branch string
	// Position is the timeline position being evaluated, or -1 when the
	// expression ran against the live document.
	Position int
	Err      error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := "branch=" + e.Branch
	if e.Position >= 0 {
		where = fmt.Sprintf("%s position=%d", where, e.Position)
	}
	return fmt.Sprintf("timetravel: %s evaluator %s %s: %v", e.Engine, describeExpression(e.Expr), where, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "timetravel:") {
		return err
	}
	return fmt.Errorf("timetravel: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, branch string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Branch == "" {
			evalErr.Branch = branch
		}
		return evalErr
	}

	return &EvaluationError{
		Engine:   engine,
		Expr:     expr,
		Branch:   branch,
		Position: -1,
		Err:      err,
	}
}

// atPosition records the timeline position on an evaluation error.
func atPosition(err error, position int) error {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		evalErr.Position = position
	}
	return err
}
