// Package ingesterr defines the error taxonomy the ingest core classifies
// every failure into (spec §7). Each type wraps a cause; callers use
// errors.As to recover the class and decide whether a delivery is acked,
// dropped, or sent to dead-letter retry, the same narrow-typed-error shape
// the teacher uses for its own domain errors rather than a generic error
// registry.
package ingesterr

import "fmt"

// TransientTransportError marks a broker disconnect or publish timeout.
// The reconnect loop in internal/broker handles these directly; they never
// count against a delivery's dead-letter retry budget.
type TransientTransportError struct {
	Cause error
}

func (e *TransientTransportError) Error() string {
	return fmt.Sprintf("transient transport error: %v", e.Cause)
}

func (e *TransientTransportError) Unwrap() error { return e.Cause }

// HardDecodeError marks a payload that is structurally invalid: short read,
// wrong tag, invalid UTF-8. The delivery carrying it is dropped, never
// retried (spec §4.2, §7).
type HardDecodeError struct {
	Cause error
}

func (e *HardDecodeError) Error() string {
	return fmt.Sprintf("hard decode error: %v", e.Cause)
}

func (e *HardDecodeError) Unwrap() error { return e.Cause }

// PolicyDrop marks a delivery that is acked without any side effect because
// a filter rule excludes it: the startup-ignore set, an unregistered owner
// or program, an unrecognized instruction or one with the wrong account
// count for its expected layout, or a non-confirmed slot status (spec
// §4.2, §7). An ignored auction house is not a PolicyDrop: its state
// change is still written and only activity emission is skipped.
type PolicyDrop struct {
	Reason string
}

func (e *PolicyDrop) Error() string {
	return fmt.Sprintf("policy drop: %s", e.Reason)
}

// StorageError marks a database failure: pool exhaustion, constraint
// violation, deadlock, or a writer-gateway closure exceeding its timeout.
// It is surfaced to the handler as Err, driving the delivery into
// dead-letter retry (spec §7).
type StorageError struct {
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %v", e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// DispatchError marks a failed follow-up publish (HTTP fetch, search
// upsert, job message). It is logged but never rolls back the database
// transaction that already committed; the lost dispatch is recoverable via
// later re-observation of the same on-chain state or an operator-triggered
// refresh job (spec §4.4.6, §7).
type DispatchError struct {
	Cause error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error: %v", e.Cause)
}

func (e *DispatchError) Unwrap() error { return e.Cause }
