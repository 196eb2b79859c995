package timetravel

import "errors"

var (
	// ErrNoEvaluator is returned when no evaluator could be resolved.
	ErrNoEvaluator = errors.New("timetravel: evaluator not configured")
	// ErrUnknownAction is returned by Dispatch for unregistered names.
	ErrUnknownAction = errors.New("timetravel: unknown action")
	// ErrNonBooleanResult is returned when a predicate does not yield a bool.
	ErrNonBooleanResult = errors.New("timetravel: expression did not return a bool")
	// ErrDuplicateStore is returned by Registry.Register for a taken name.
	ErrDuplicateStore = errors.New("timetravel: store already registered")
	// ErrStoreNotFound is returned by Registry.Lookup for a missing name.
	ErrStoreNotFound = errors.New("timetravel: store not found")
)
