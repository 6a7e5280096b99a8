package dsl

import (
	"fmt"
	"time"

	vorm "github.com/vormlabs/vorm"
)

// Type bundles a type descriptor with field-level constraints while the
// builder assembles a FieldSpec. Constraint chainers append; descriptors are
// never mutated.
type Type struct {
	desc vorm.TypeDesc
	cons []vorm.Constraint
	errs []error
}

// String declares a string field type.
func String() Type { return Type{desc: vorm.String()} }

// Int declares an integer field type.
func Int() Type { return Type{desc: vorm.Int()} }

// Float declares a floating-point field type.
func Float() Type { return Type{desc: vorm.Float()} }

// Bool declares a boolean field type.
func Bool() Type { return Type{desc: vorm.Bool()} }

// Time declares a time field type.
func Time() Type { return Type{desc: vorm.Time()} }

// Enum declares an enumerated-literal type over a primitive base.
func Enum(base Type, literals ...any) Type {
	t := Type{desc: vorm.Enum(base.desc, literals...), errs: base.errs}
	if len(base.cons) > 0 {
		t.errs = append(t.errs, fmt.Errorf("enum base carries constraints; attach them to the field instead"))
	}
	return t
}

// SliceOf declares a homogeneous sequence. Element types must be bare:
// constraints are field-level, so constrain the slice on the field or model
// the element as a nested schema.
func SliceOf(elem Type) Type {
	t := Type{desc: vorm.SliceOf(elem.desc), errs: elem.errs}
	if len(elem.cons) > 0 {
		t.errs = append(t.errs, fmt.Errorf("slice element carries constraints; use a nested model or a rule"))
	}
	return t
}

// MapOf declares a string-keyed mapping. Value types must be bare, as with
// SliceOf.
func MapOf(elem Type) Type {
	t := Type{desc: vorm.MapOf(elem.desc), errs: elem.errs}
	if len(elem.cons) > 0 {
		t.errs = append(t.errs, fmt.Errorf("map value carries constraints; use a nested model or a rule"))
	}
	return t
}

// Union declares a union of alternatives, resolved left-to-right at the type
// level. Alternatives must be bare types.
func Union(alts ...Type) Type {
	descs := make([]vorm.TypeDesc, 0, len(alts))
	var errs []error
	for _, a := range alts {
		descs = append(descs, a.desc)
		errs = append(errs, a.errs...)
		if len(a.cons) > 0 {
			errs = append(errs, fmt.Errorf("union alternative carries constraints; union resolution is type-level only"))
		}
	}
	return Type{desc: vorm.Union(descs...), errs: errs}
}

// Nested declares a nested model reference.
func Nested(s *vorm.Schema) Type { return Type{desc: vorm.Nested(s)} }

// ---- constraint chainers ----

func (t Type) with(c vorm.Constraint) Type {
	t.cons = append(append([]vorm.Constraint{}, t.cons...), c)
	return t
}

// Min sets an inclusive numeric lower bound.
func (t Type) Min(n float64) Type { return t.with(vorm.Min(n)) }

// Max sets an inclusive numeric upper bound.
func (t Type) Max(n float64) Type { return t.with(vorm.Max(n)) }

// ExclusiveMin sets an exclusive numeric lower bound.
func (t Type) ExclusiveMin(n float64) Type { return t.with(vorm.ExclusiveMin(n)) }

// ExclusiveMax sets an exclusive numeric upper bound.
func (t Type) ExclusiveMax(n float64) Type { return t.with(vorm.ExclusiveMax(n)) }

// MultipleOf requires the value to be a multiple of n.
func (t Type) MultipleOf(n float64) Type { return t.with(vorm.MultipleOf(n)) }

// MinLen sets a minimum length for strings, slices, and maps.
func (t Type) MinLen(n int) Type { return t.with(vorm.MinLen(n)) }

// MaxLen sets a maximum length for strings, slices, and maps.
func (t Type) MaxLen(n int) Type { return t.with(vorm.MaxLen(n)) }

// Pattern requires a whole-string anchored match.
func (t Type) Pattern(expr string) Type { return t.with(vorm.Pattern(expr)) }

// Before requires a time value strictly before the bound.
func (t Type) Before(bound time.Time) Type { return t.with(vorm.Before(bound)) }

// After requires a time value strictly after the bound.
func (t Type) After(bound time.Time) Type { return t.with(vorm.After(bound)) }
