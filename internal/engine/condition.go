package engine

import (
	"strconv"
	"strings"
	"time"

	"formflow-backend/internal/schema"
)

// Evaluate resolves a conditional rule against the current response map.
// It is total: any combination of operator and mismatched value types
// resolves to false, never to a panic or error. An absent response key is
// treated the same as a nil answer.
func Evaluate(rule schema.ConditionalRule, responses map[string]any) bool {
	val := responses[rule.Field]

	switch rule.Operator {
	case schema.OpIsEmpty:
		return isEmpty(val)
	case schema.OpIsNotEmpty:
		return !isEmpty(val)
	case schema.OpEquals:
		return valuesEqual(val, rule.Value)
	case schema.OpNotEquals:
		return !valuesEqual(val, rule.Value)
	case schema.OpContains:
		return containsValue(val, rule.Value)
	case schema.OpGreaterThan:
		cmp, ok := compareOrdered(val, rule.Value)
		return ok && cmp > 0
	case schema.OpLessThan:
		cmp, ok := compareOrdered(val, rule.Value)
		return ok && cmp < 0
	}
	return false
}

// isEmpty treats a missing key, nil, empty string, empty list and empty map
// as empty. Booleans and numbers are never empty: false is an answer.
func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// valuesEqual applies equality appropriate to the value shape: numeric for
// numbers, case-sensitive for strings, set equality for list answers.
// Mismatched shapes are unequal.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat64(a); ok {
		fb, ok := toFloat64(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	as, aok := toStringSlice(a)
	bs, bok := toStringSlice(b)
	if aok && bok {
		return setEqual(as, bs)
	}
	return false
}

// containsValue checks substring containment for string answers and
// membership for list answers. Any other shape resolves to false.
func containsValue(val, needle any) bool {
	switch v := val.(type) {
	case string:
		s, ok := stringify(needle)
		return ok && strings.Contains(v, s)
	case []any:
		for _, item := range v {
			if valuesEqual(item, needle) {
				return true
			}
		}
	case []string:
		s, ok := stringify(needle)
		if !ok {
			return false
		}
		for _, item := range v {
			if item == s {
				return true
			}
		}
	}
	return false
}

// compareOrdered orders two values when both are numbers or both parse as
// dates. Anything else reports not-comparable.
func compareOrdered(a, b any) (int, bool) {
	if fa, aok := toFloat64(a); aok {
		fb, bok := toFloat64(b)
		if !bok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}

	ta, aok := parseDate(a)
	tb, bok := parseDate(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case ta.Before(tb):
		return -1, true
	case ta.After(tb):
		return 1, true
	}
	return 0, true
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}

func parseDate(val any) (time.Time, bool) {
	s, ok := val.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toFloat64 converts numeric types to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// stringify renders scalar values as strings. Lists and maps are not
// stringifiable.
func stringify(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		if s {
			return "true", true
		}
		return "false", true
	case nil:
		return "", false
	}
	if f, ok := toFloat64(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func toStringSlice(v any) ([]string, bool) {
	switch items := v.(type) {
	case []string:
		return items, true
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := stringify(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func setEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		if seen[s] == 0 {
			return false
		}
		seen[s]--
	}
	return true
}
