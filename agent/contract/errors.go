package contract

import "errors"

var (
	// ErrClassifierUnavailable covers transport failures, timeouts, and
	// an open circuit. Recovered by the orchestrator's fallback rule,
	// never surfaced to the user.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrToolNotPermitted marks a tool selection outside the turn's
	// gated set. Internal invariant violation: logged, turn aborted.
	ErrToolNotPermitted = errors.New("tool not permitted")

	// ErrToolExecution marks a failure inside a tool action. Recovered:
	// apology reply, failed attempt recorded, state otherwise unchanged.
	ErrToolExecution = errors.New("tool execution failed")

	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
)
