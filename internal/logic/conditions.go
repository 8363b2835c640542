// Package logic evaluates conditional rules and validates answers of an
// assessment. Nothing here touches storage; inputs are a question (or a whole
// assessment) and the current answers keyed by question id.
package logic

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/garnizeh/talentflow/pkg/models"
)

type comparator func(answer, want any) bool

// conditions is indexed by models.Condition. A zero entry never matches.
var conditions = [models.NumConditions]comparator{
	models.CondEquals:       equals,
	models.CondNotEquals:    func(a, w any) bool { return !equals(a, w) },
	models.CondContains:     contains,
	models.CondNotContains:  func(a, w any) bool { return !contains(a, w) },
	models.CondGreaterThan:  numeric(func(a, w float64) bool { return a > w }),
	models.CondLessThan:     numeric(func(a, w float64) bool { return a < w }),
	models.CondGreaterEqual: numeric(func(a, w float64) bool { return a >= w }),
	models.CondLessEqual:    numeric(func(a, w float64) bool { return a <= w }),
	models.CondIsEmpty:      func(a, _ any) bool { return IsEmpty(a) },
	models.CondIsNotEmpty:   func(a, _ any) bool { return !IsEmpty(a) },
}

// Holds reports whether rule's condition is met by the current answers.
func Holds(rule models.ConditionalRule, responses map[string]any) bool {
	if !rule.Condition.Valid() {
		return false
	}
	cmp := conditions[rule.Condition]
	if cmp == nil {
		return false
	}
	return cmp(responses[rule.DependsOn], rule.Value)
}

// equals is strict: no coercion between strings and numbers. Numbers of
// different Go types compare by value.
func equals(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func contains(a, w any) bool {
	if a == nil {
		return false
	}
	return strings.Contains(stringify(a), stringify(w))
}

func numeric(op func(a, w float64) bool) comparator {
	return func(a, w any) bool {
		fa, ok := toFloat(a)
		if !ok {
			return false
		}
		fw, ok := toFloat(w)
		if !ok {
			return false
		}
		return op(fa, fw)
	}
}

// IsEmpty reports whether an answer is missing: nil, a blank string, or an
// empty list or object.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// number accepts only numeric Go types.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// toFloat also parses numeric strings. Blank strings and NaN are not numbers.
func toFloat(v any) (float64, bool) {
	if f, ok := number(v); ok {
		return f, !math.IsNaN(f)
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	}
	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
