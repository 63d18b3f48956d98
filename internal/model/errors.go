package model

import "errors"

// Sentinel errors shared across the harness. Callers classify failures with
// errors.Is; packages wrap these with fmt.Errorf("...: %w", ...) context.
var (
	// ErrCapability reports a model that lacks a capability required by the
	// requested strategy or by multi-subject execution. Fatal for that model's
	// run; other models in a suite are unaffected.
	ErrCapability = errors.New("capability not satisfied")

	// ErrConfiguration reports malformed construction arguments. Raised at
	// construction time, never mid-run.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrAdapterState reports a bind/unbind protocol violation on a composite
	// model. Indicates a harness-logic bug.
	ErrAdapterState = errors.New("invalid adapter state")
)
