package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOperator is the comparison applied by a condition node.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
)

// Condition is a (field, operator, value) triple evaluated against an
// entity snapshot.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals not_equals contains is_empty is_not_empty greater_than less_than"`
	Value    any               `json:"value,omitempty"`
}

// Evaluate applies the condition to an entity snapshot. A missing field is
// treated as empty rather than raising an error, so workflows authored
// against optional fields degrade gracefully.
func (c *Condition) Evaluate(entity map[string]any) bool {
	var actual any
	if entity != nil {
		actual = entity[c.Field]
	}

	switch c.Operator {
	case OperatorEquals:
		return stringify(actual) == stringify(c.Value)
	case OperatorNotEquals:
		return stringify(actual) != stringify(c.Value)
	case OperatorContains:
		return strings.Contains(stringify(actual), stringify(c.Value))
	case OperatorIsEmpty:
		return stringify(actual) == ""
	case OperatorIsNotEmpty:
		return stringify(actual) != ""
	case OperatorGreaterThan:
		a, b, ok := numericPair(actual, c.Value)

		return ok && a > b
	case OperatorLessThan:
		a, b, ok := numericPair(actual, c.Value)

		return ok && a < b
	default:
		return false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}

	return fmt.Sprintf("%v", v)
}

// numericPair coerces both operands to float64. JSON decoding hands us
// float64 for numbers, but builder-authored values are often strings.
func numericPair(a, b any) (float64, float64, bool) {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)

	return fa, fb, okA && okB
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)

		return f, err == nil
	default:
		return 0, false
	}
}
