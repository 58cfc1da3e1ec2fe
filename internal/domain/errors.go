package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPolicyUnavailable indicates the policy store could not be read.
// Admission fails closed on this error; the caller may retry.
var ErrPolicyUnavailable = errors.New("policy store unavailable")

// ErrStoreUnavailable indicates the record store failed during admission
// or aggregation. The call fails with no partial writes; the caller may
// retry with the same input.
var ErrStoreUnavailable = errors.New("record store unavailable")

// ErrNotFound indicates a record lookup matched nothing for the tenant.
var ErrNotFound = errors.New("not found")

// ValidationError reports a candidate record or policy update that fails
// structural preconditions. It names the offending fields and is never
// retried; the record is never persisted.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

// ValidateRecord checks the structural preconditions that must hold
// before admission logic runs: non-empty identifiers and text, score in
// [0, 1], non-negative latency. Failing them is distinct from the
// SampledOut and QuotaExceeded admission outcomes.
func ValidateRecord(rec *EvaluationRecord) error {
	var fields []string
	if rec.InteractionID == "" {
		fields = append(fields, "interaction_id")
	}
	if rec.Prompt == "" {
		fields = append(fields, "prompt")
	}
	if rec.Response == "" {
		fields = append(fields, "response")
	}
	if rec.Score < 0 || rec.Score > 1 {
		fields = append(fields, "score")
	}
	if rec.LatencyMs < 0 {
		fields = append(fields, "latency_ms")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
