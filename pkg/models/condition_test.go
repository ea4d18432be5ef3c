package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateEquals(t *testing.T) {
	entity := map[string]any{"status": "completed", "total": 150.0}

	tests := []struct {
		name      string
		condition Condition
		expected  bool
	}{
		{
			name:      "string match",
			condition: Condition{Field: "status", Operator: OperatorEquals, Value: "completed"},
			expected:  true,
		},
		{
			name:      "string mismatch",
			condition: Condition{Field: "status", Operator: OperatorEquals, Value: "scheduled"},
			expected:  false,
		},
		{
			name:      "numeric value compared as string",
			condition: Condition{Field: "total", Operator: OperatorEquals, Value: 150.0},
			expected:  true,
		},
		{
			name:      "not_equals",
			condition: Condition{Field: "status", Operator: OperatorNotEquals, Value: "scheduled"},
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.condition.Evaluate(entity))
		})
	}
}

func TestEvaluateContains(t *testing.T) {
	entity := map[string]any{"tags": "vip,priority", "notes": ""}

	c := Condition{Field: "tags", Operator: OperatorContains, Value: "vip"}
	assert.True(t, c.Evaluate(entity))

	c = Condition{Field: "tags", Operator: OperatorContains, Value: "overdue"}
	assert.False(t, c.Evaluate(entity))
}

func TestEvaluateEmptiness(t *testing.T) {
	entity := map[string]any{"notes": "", "phone": "+15550001111"}

	assert.True(t, (&Condition{Field: "notes", Operator: OperatorIsEmpty}).Evaluate(entity))
	assert.False(t, (&Condition{Field: "phone", Operator: OperatorIsEmpty}).Evaluate(entity))
	assert.True(t, (&Condition{Field: "phone", Operator: OperatorIsNotEmpty}).Evaluate(entity))
	assert.False(t, (&Condition{Field: "notes", Operator: OperatorIsNotEmpty}).Evaluate(entity))
}

func TestEvaluateMissingFieldIsEmpty(t *testing.T) {
	entity := map[string]any{"id": "job-1"}

	assert.True(t, (&Condition{Field: "ghost", Operator: OperatorIsEmpty}).Evaluate(entity))
	assert.False(t, (&Condition{Field: "ghost", Operator: OperatorIsNotEmpty}).Evaluate(entity))
	assert.False(t, (&Condition{Field: "ghost", Operator: OperatorEquals, Value: "x"}).Evaluate(entity))

	// Missing field never satisfies a numeric comparison.
	assert.False(t, (&Condition{Field: "ghost", Operator: OperatorGreaterThan, Value: 10}).Evaluate(entity))
	assert.False(t, (&Condition{Field: "ghost", Operator: OperatorLessThan, Value: 10}).Evaluate(entity))
}

func TestEvaluateNilEntity(t *testing.T) {
	assert.True(t, (&Condition{Field: "any", Operator: OperatorIsEmpty}).Evaluate(nil))
	assert.False(t, (&Condition{Field: "any", Operator: OperatorEquals, Value: "x"}).Evaluate(nil))
}

func TestEvaluateNumericComparisons(t *testing.T) {
	entity := map[string]any{
		"total":    500.0,
		"count":    3,
		"estimate": "1200.50",
	}

	tests := []struct {
		name      string
		condition Condition
		expected  bool
	}{
		{"greater than true", Condition{Field: "total", Operator: OperatorGreaterThan, Value: 100}, true},
		{"greater than false", Condition{Field: "total", Operator: OperatorGreaterThan, Value: 1000}, false},
		{"less than true", Condition{Field: "count", Operator: OperatorLessThan, Value: 10}, true},
		{"string operand coerced", Condition{Field: "estimate", Operator: OperatorGreaterThan, Value: "1000"}, true},
		{"non-numeric operand", Condition{Field: "total", Operator: OperatorGreaterThan, Value: "abc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.condition.Evaluate(entity))
		})
	}
}

func TestEvaluateUnknownOperator(t *testing.T) {
	c := Condition{Field: "status", Operator: "matches_regex", Value: ".*"}
	assert.False(t, c.Evaluate(map[string]any{"status": "completed"}))
}
