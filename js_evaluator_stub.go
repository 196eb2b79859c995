//go:build !js_eval

package timetravel

const jsEvaluatorAvailable = false

// NewJSEvaluator needs the js_eval build tag. Without it the result is nil and
// WithEvaluator(nil) keeps the default expr evaluator.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}
