package vorm

import (
	"fmt"
	"regexp"
	"time"

	"github.com/vormlabs/vorm/i18n"
	"github.com/vormlabs/vorm/internal/engine"
)

// Constraint is a secondary predicate evaluated against a coerced value.
// Constraints are independent of each other; the checker evaluates every
// declared constraint and reports all violations, in declaration order.
// Constraints that do not apply to the value's kind (for example MinLen on an
// int) are skipped.
type Constraint struct {
	name   string
	params map[string]any
	check  func(v any) bool
	// err records a malformed declaration (bad pattern); surfaced by Compile.
	err error
}

// Name returns the constraint's name ("min", "max_len", "pattern", ...).
func (c Constraint) Name() string { return c.name }

func numOf(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func lenOf(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		return len([]rune(t)), true
	case []any:
		return len(t), true
	case map[string]any:
		return len(t), true
	default:
		return 0, false
	}
}

// Min declares an inclusive numeric lower bound.
func Min(n float64) Constraint {
	return Constraint{name: "min", params: map[string]any{"min": n}, check: func(v any) bool {
		f, ok := numOf(v)
		return !ok || f >= n
	}}
}

// Max declares an inclusive numeric upper bound.
func Max(n float64) Constraint {
	return Constraint{name: "max", params: map[string]any{"max": n}, check: func(v any) bool {
		f, ok := numOf(v)
		return !ok || f <= n
	}}
}

// ExclusiveMin declares an exclusive numeric lower bound.
func ExclusiveMin(n float64) Constraint {
	return Constraint{name: "exclusive_min", params: map[string]any{"exclusive_min": n}, check: func(v any) bool {
		f, ok := numOf(v)
		return !ok || f > n
	}}
}

// ExclusiveMax declares an exclusive numeric upper bound.
func ExclusiveMax(n float64) Constraint {
	return Constraint{name: "exclusive_max", params: map[string]any{"exclusive_max": n}, check: func(v any) bool {
		f, ok := numOf(v)
		return !ok || f < n
	}}
}

// MultipleOf declares a multiple-of constraint. Integer values use exact
// remainder semantics; float64 values use the engine's documented epsilon.
func MultipleOf(n float64) Constraint {
	return Constraint{name: "multiple_of", params: map[string]any{"multiple_of": n}, check: func(v any) bool {
		switch t := v.(type) {
		case int64:
			if n == float64(int64(n)) {
				return engine.IntMultipleOf(t, int64(n))
			}
			return engine.FloatMultipleOf(float64(t), n)
		case float64:
			return engine.FloatMultipleOf(t, n)
		default:
			return true
		}
	}}
}

// MinLen declares a minimum length for strings (in runes), slices, and maps.
func MinLen(n int) Constraint {
	return Constraint{name: "min_len", params: map[string]any{"min_len": n}, check: func(v any) bool {
		l, ok := lenOf(v)
		return !ok || l >= n
	}}
}

// MaxLen declares a maximum length for strings (in runes), slices, and maps.
func MaxLen(n int) Constraint {
	return Constraint{name: "max_len", params: map[string]any{"max_len": n}, check: func(v any) bool {
		l, ok := lenOf(v)
		return !ok || l <= n
	}}
}

// Pattern declares a whole-string anchored regular expression match, not a
// search. A malformed expression is reported by Compile, not at check time.
func Pattern(expr string) Constraint {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	c := Constraint{name: "pattern", params: map[string]any{"pattern": expr}, err: err}
	c.check = func(v any) bool {
		s, ok := v.(string)
		if !ok || re == nil {
			return true
		}
		return re.MatchString(s)
	}
	return c
}

// Before declares an exclusive upper bound for time values.
func Before(t time.Time) Constraint {
	return Constraint{name: "before", params: map[string]any{"before": t}, check: func(v any) bool {
		ts, ok := v.(time.Time)
		return !ok || ts.Before(t)
	}}
}

// After declares an exclusive lower bound for time values.
func After(t time.Time) Constraint {
	return Constraint{name: "after", params: map[string]any{"after": t}, check: func(v any) bool {
		ts, ok := v.(time.Time)
		return !ok || ts.After(t)
	}}
}

// checkConstraints evaluates every constraint independently and returns all
// violations at the given field path. It never stops at the first violation.
func checkConstraints(v any, cons []Constraint, at PathRef, input any) ErrorList {
	var errs ErrorList
	for _, c := range cons {
		if c.check == nil || c.check(v) {
			continue
		}
		fe := FieldError{
			Path:    at.String(),
			Kind:    KindConstraintViolation,
			Message: fmt.Sprintf("%s: %s", i18n.T(KindConstraintViolation, nil), c.name),
			Input:   input,
			Params:  constraintParams(c, v),
		}
		errs = AppendErrors(errs, fe)
	}
	return errs
}

func constraintParams(c Constraint, got any) map[string]any {
	out := map[string]any{"constraint": c.name, "got": got}
	for k, v := range c.params {
		out[k] = v
	}
	return out
}
