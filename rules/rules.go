// Package rules provides ready-made model rules and combinators over them.
// A model rule inspects the fully validated draft record and returns the
// errors it found; combinators compose rules without touching the engine.
package rules

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	vorm "github.com/vormlabs/vorm"
)

// Rule is the bare shape of a model rule body.
type Rule = func(ctx context.Context, draft map[string]any) []vorm.FieldError

// Named wraps a bare rule body as a ModelRule.
func Named(name string, fn Rule) vorm.ModelRule {
	return vorm.ModelRule{Name: name, Fn: fn}
}

// Op defines simple comparison operators for If(...).Then(...).
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of rules.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional that evaluates a draft path against a value using
// an operator. The path uses dotted field notation like "status" or
// "billing.plan".
func If(path string, op Op, want any) Conditional {
	return Conditional{path: path, op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Then attaches rules to run when the condition is satisfied.
func (c Conditional) Then(rs ...vorm.ModelRule) vorm.ModelRule {
	return vorm.ModelRule{
		Name: "if_then",
		Fn: func(ctx context.Context, draft map[string]any) []vorm.FieldError {
			if !evalConditional(draft, c) {
				return nil
			}
			var all []vorm.FieldError
			for _, r := range rs {
				if r.Fn == nil {
					continue
				}
				if errs := r.Fn(ctx, draft); len(errs) > 0 {
					all = append(all, errs...)
					if vorm.IsFailFast(ctx) {
						return all
					}
				}
			}
			return all
		},
	}
}

// Required requires every named field to carry a value in the draft.
func Required(fields ...string) vorm.ModelRule {
	return vorm.ModelRule{
		Name: "required",
		Fn: func(_ context.Context, draft map[string]any) []vorm.FieldError {
			var out []vorm.FieldError
			for _, f := range fields {
				if _, ok := valueAtPath(draft, f); !ok {
					out = append(out, vorm.FieldError{
						Path:    f,
						Kind:    vorm.KindModelRejection,
						Message: "field is required",
						Rule:    "required",
					})
				}
			}
			return out
		},
	}
}

// AtLeastOne requires at least one of the named fields to carry a value.
func AtLeastOne(fields ...string) vorm.ModelRule {
	return vorm.ModelRule{
		Name: "at_least_one",
		Fn: func(_ context.Context, draft map[string]any) []vorm.FieldError {
			for _, f := range fields {
				if _, ok := valueAtPath(draft, f); ok {
					return nil
				}
			}
			return []vorm.FieldError{{
				Kind:    vorm.KindModelRejection,
				Message: fmt.Sprintf("at least one of %v must be set", fields),
				Rule:    "at_least_one",
				Params:  map[string]any{"fields": append([]string(nil), fields...)},
			}}
		},
	}
}

// MutuallyExclusive forbids more than one of the named fields being set.
func MutuallyExclusive(fields ...string) vorm.ModelRule {
	return vorm.ModelRule{
		Name: "mutually_exclusive",
		Fn: func(_ context.Context, draft map[string]any) []vorm.FieldError {
			var set []string
			for _, f := range fields {
				if _, ok := valueAtPath(draft, f); ok {
					set = append(set, f)
				}
			}
			if len(set) <= 1 {
				return nil
			}
			return []vorm.FieldError{{
				Kind:    vorm.KindModelRejection,
				Message: fmt.Sprintf("fields %v are mutually exclusive", set),
				Rule:    "mutually_exclusive",
				Params:  map[string]any{"fields": set},
			}}
		},
	}
}

// UniqueBy ensures elements of the slice at field have unique values under
// the element key. Elements may be validated records or plain maps; elements
// missing the key are skipped. Each duplicate is reported at its own indexed
// path.
// Note: mixed-type keys stringify and may collide; keep the key a single type.
func UniqueBy(field, key string) vorm.ModelRule {
	name := "unique_by"
	return vorm.ModelRule{
		Name: name,
		Fn: func(_ context.Context, draft map[string]any) []vorm.FieldError {
			val, ok := valueAtPath(draft, field)
			if !ok {
				return nil
			}
			items, ok := val.([]any)
			if !ok {
				return nil
			}
			seen := map[string]int{}
			var out []vorm.FieldError
			for i, el := range items {
				kv, ok := elementValue(el, key)
				if !ok {
					continue
				}
				fp := fmt.Sprint(kv)
				if first, dup := seen[fp]; dup {
					out = append(out, vorm.FieldError{
						Path:    vorm.Root().Field(field).Index(i).Key(key).String(),
						Kind:    vorm.KindModelRejection,
						Message: "duplicate value",
						Rule:    name,
						Params:  map[string]any{"first": first, "dup": i, "key": fp},
					})
				} else {
					seen[fp] = i
				}
			}
			return out
		},
	}
}

// And executes all rules and concatenates errors, short-circuiting under
// fail-fast.
func And(rs ...vorm.ModelRule) vorm.ModelRule {
	return vorm.ModelRule{
		Name: "and",
		Fn: func(ctx context.Context, draft map[string]any) []vorm.FieldError {
			var out []vorm.FieldError
			for _, r := range rs {
				if r.Fn == nil {
					continue
				}
				if errs := r.Fn(ctx, draft); len(errs) > 0 {
					out = append(out, errs...)
					if vorm.IsFailFast(ctx) {
						return out
					}
				}
			}
			return out
		},
	}
}

// Or succeeds when any rule returns no errors. When every rule fails, the
// branch with the fewest errors is reported.
func Or(rs ...vorm.ModelRule) vorm.ModelRule {
	return vorm.ModelRule{
		Name: "or",
		Fn: func(ctx context.Context, draft map[string]any) []vorm.FieldError {
			var best []vorm.FieldError
			bestSet := false
			for _, r := range rs {
				if r.Fn == nil {
					continue
				}
				errs := r.Fn(ctx, draft)
				if len(errs) == 0 {
					return nil
				}
				if !bestSet || len(errs) < len(best) {
					best = errs
					bestSet = true
				}
			}
			if bestSet {
				return best
			}
			return nil
		},
	}
}

// ------- helpers -------

func evalConditional(draft map[string]any, c Conditional) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !evalConditional(draft, it) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if evalConditional(draft, it) {
				return true
			}
		}
		return false
	}
	cur, ok := valueAtPath(draft, c.path)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

// valueAtPath walks a dotted path through nested records, maps, and slices.
func valueAtPath(draft map[string]any, path string) (any, bool) {
	var cur any = draft
	for _, seg := range strings.Split(path, ".") {
		v, ok := elementValue(cur, seg)
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func elementValue(el any, seg string) (any, bool) {
	switch e := el.(type) {
	case vorm.Record:
		return e.Get(seg)
	case map[string]any:
		v, ok := e[seg]
		return v, ok
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(e) {
			return nil, false
		}
		return e[idx], true
	}
	return nil, false
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return reflect.DeepEqual(cur, want)
	case Ne:
		return !reflect.DeepEqual(cur, want)
	default:
		return compareOrdered(cur, op, want)
	}
}

func compareOrdered(cur any, op Op, want any) bool {
	a, aok := asFloat(cur)
	b, bok := asFloat(want)
	if !aok || !bok {
		return false
	}
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
