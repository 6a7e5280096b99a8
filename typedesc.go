package vorm

// TypeDesc describes a field's declared target type. Descriptors are built
// with the constructors below and are immutable after construction.
type TypeDesc interface {
	typeName() string
}

type stringType struct{}
type intType struct{}
type floatType struct{}
type boolType struct{}
type timeType struct{}

func (stringType) typeName() string { return "string" }
func (intType) typeName() string    { return "int" }
func (floatType) typeName() string  { return "float" }
func (boolType) typeName() string   { return "bool" }
func (timeType) typeName() string   { return "time" }

// String declares a string target type.
func String() TypeDesc { return stringType{} }

// Int declares an integer target type. Coerced values are int64.
func Int() TypeDesc { return intType{} }

// Float declares a floating-point target type. Coerced values are float64.
func Float() TypeDesc { return floatType{} }

// Bool declares a boolean target type.
func Bool() TypeDesc { return boolType{} }

// Time declares a time target type. ISO-8601-shaped strings coerce to
// time.Time.
func Time() TypeDesc { return timeType{} }

type enumType struct {
	base     TypeDesc
	literals []any
}

func (e enumType) typeName() string { return "enum" }

// Enum declares an enumerated-literal type over an underlying primitive base.
// A value must equal one of the literals after coercion through the base type.
func Enum(base TypeDesc, literals ...any) TypeDesc {
	return enumType{base: base, literals: append([]any(nil), literals...)}
}

type sliceType struct{ elem TypeDesc }

func (s sliceType) typeName() string { return "slice" }

// SliceOf declares a homogeneous sequence of elem.
func SliceOf(elem TypeDesc) TypeDesc { return sliceType{elem: elem} }

type mapType struct{ elem TypeDesc }

func (m mapType) typeName() string { return "map" }

// MapOf declares a string-keyed mapping with values of elem.
func MapOf(elem TypeDesc) TypeDesc { return mapType{elem: elem} }

type unionType struct{ alts []TypeDesc }

func (u unionType) typeName() string { return "union" }

// Union declares a union of alternatives. Coercion tries each alternative
// left-to-right in declaration order; the first alternative that coerces wins.
// Resolution is type-level only, never constraint-level.
func Union(alts ...TypeDesc) TypeDesc { return unionType{alts: append([]TypeDesc(nil), alts...)} }

type nestedType struct{ schema *Schema }

func (n nestedType) typeName() string {
	if n.schema != nil {
		return "model:" + n.schema.Name
	}
	return "model"
}

// Nested declares a nested model reference. Validation recurses into the
// referenced schema's compiled plan and reports sub-errors under the parent
// field path.
func Nested(s *Schema) TypeDesc { return nestedType{schema: s} }
