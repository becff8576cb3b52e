package types

import (
	"context"
	"fmt"
	"strings"
)

// OperationResult is returned by every mutating habit operation. On
// failure Data is the zero value and Error carries a human-readable
// message.
type OperationResult[T any] struct {
	Success   bool      `json:"success"`
	Data      T         `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Kind      ErrorKind `json:"kind,omitempty"`
	NeedsAuth bool      `json:"needsAuth,omitempty"`

	// Recovered is set when an authentication failure was repaired by
	// auto-recovery and the operation may be retried.
	Recovered bool `json:"recovered,omitempty"`
}

// Succeeded returns a successful result holding data.
func Succeeded[T any](data T) OperationResult[T] {
	return OperationResult[T]{Success: true, Data: data}
}

// BatchResult aggregates the outcomes of a batch operation. Errors holds
// one "<id>: <message>" entry per failure, in input order.
type BatchResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
	NeedsAuth  bool     `json:"needsAuth"`
}

// BatchError formats a per-item failure.
func BatchError(id, message string) string {
	return fmt.Sprintf("%s: %s", id, message)
}

// FailedIDs extracts the ids of the failed items so they can be retried.
func (r BatchResult) FailedIDs() []string {
	ids := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		id, _, ok := strings.Cut(e, ": ")
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Severity grades a diagnostic issue.
type Severity string

// Issue severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Issue is one finding of a credential diagnosis.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Diagnostic is the outcome of diagnosing an authentication failure.
type Diagnostic struct {
	IsHealthy       bool     `json:"isHealthy"`
	Issues          []Issue  `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// HasCritical reports whether any issue is critical.
func (d Diagnostic) HasCritical() bool {
	for _, is := range d.Issues {
		if is.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Diagnoser inspects authentication failures and tries to repair the
// credential. A true AttemptAutoRecovery result means the failed
// operation may be retried.
type Diagnoser interface {
	Diagnose(ctx context.Context, err error) Diagnostic
	AttemptAutoRecovery(ctx context.Context, d Diagnostic) bool
}
