package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchResultFailedIDs(t *testing.T) {
	r := BatchResult{
		Successful: 1,
		Failed:     2,
		Errors:     []string{BatchError("h2", "Habit not found"), BatchError("h3", "Invalid credentials: a: b")},
	}
	assert.Equal(t, []string{"h2", "h3"}, r.FailedIDs())
	assert.Empty(t, BatchResult{}.FailedIDs())
}

func TestDiagnosticHasCritical(t *testing.T) {
	assert.False(t, Diagnostic{IsHealthy: true}.HasCritical())
	assert.False(t, Diagnostic{Issues: []Issue{{Severity: SeverityWarning}}}.HasCritical())
	assert.True(t, Diagnostic{Issues: []Issue{{Severity: SeverityInfo}, {Severity: SeverityCritical}}}.HasCritical())
}

func TestSucceeded(t *testing.T) {
	r := Succeeded("x")
	assert.True(t, r.Success)
	assert.Equal(t, "x", r.Data)
	assert.Empty(t, r.Error)
}
