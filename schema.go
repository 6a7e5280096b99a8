package vorm

import "context"

// Schema is a named, ordered set of field specifications. A Schema is declared
// once, compiled once, and the resulting Plan is reused for every validation.
// Schemas must not be mutated after Compile.
type Schema struct {
	Name string
	// Extends lists parent schemas whose fields are merged in order before
	// this schema's own fields. A child field with the same name overrides
	// the parent's spec entirely.
	Extends []*Schema
	Fields  []FieldSpec
	Extra   ExtraPolicy
	// PopulateByName additionally accepts the internal field name for aliased
	// fields. By default an aliased field only matches its alias key.
	PopulateByName bool
	// PreModel hooks run against the raw input mapping before any field
	// pipeline, for key renaming and cross-field input reshaping.
	PreModel []ModelHook
	// PostModel rules run against the fully validated draft record, only when
	// every field succeeded.
	PostModel []ModelRule
}

// FieldSpec is one field's full declaration within a Schema.
type FieldSpec struct {
	Name string
	// Alias is an alternate external input key. When set it takes precedence
	// over Name; Name is only consulted when the schema enables
	// PopulateByName.
	Alias string
	Type  TypeDesc
	// Optional marks the field as allowed to be absent without a default.
	// A field without a default and without Optional is required.
	Optional    bool
	Default     *DefaultPolicy
	Constraints []Constraint
	// PreHooks run against the raw value before coercion, in declaration
	// order. The first rejection stops this field's pipeline.
	PreHooks []FieldHook
	// Rules are post-coercion custom validators, run in declaration order
	// against the coerced, constraint-passed value with read-only access to
	// already-finished sibling fields.
	Rules []FieldRule
}

type defaultKind int

const (
	defaultStatic defaultKind = iota
	defaultFactory
	defaultDependent
)

// DefaultPolicy describes how an absent field is filled. Defaults bypass
// coercion and constraints; declare them already in the target type.
type DefaultPolicy struct {
	kind      defaultKind
	static    any
	factory   func() any
	reads     []string
	dependent func(ctx context.Context, rc RuleCtx) (any, error)
}

// DefaultValue declares a static default. Mutable values (maps, slices) are
// deep-copied per use so records never share a default instance.
func DefaultValue(v any) *DefaultPolicy {
	return &DefaultPolicy{kind: defaultStatic, static: v}
}

// DefaultFactory declares a factory default invoked fresh for every record.
func DefaultFactory(fn func() any) *DefaultPolicy {
	return &DefaultPolicy{kind: defaultFactory, factory: fn}
}

// DefaultFrom declares a dependent default computed from already-validated
// sibling fields. The reads set feeds the compile-time dependency graph.
func DefaultFrom(reads []string, fn func(ctx context.Context, rc RuleCtx) (any, error)) *DefaultPolicy {
	return &DefaultPolicy{kind: defaultDependent, reads: append([]string(nil), reads...), dependent: fn}
}

// FieldHook is a pre-coercion transform over the raw value. Returning an error
// rejects the value; returning a new value replaces it.
type FieldHook struct {
	Name string
	Fn   func(ctx context.Context, raw any) (any, error)
}

// FieldRule is a post-coercion custom validator. Reads declares the sibling
// fields the rule consults; the compiler orders field execution so every read
// target finishes first, and rejects cycles. Returning an error rejects the
// value; otherwise the returned value replaces it.
type FieldRule struct {
	Name  string
	Reads []string
	Fn    func(ctx context.Context, v any, rc RuleCtx) (any, error)
}

// ModelHook reshapes the raw input mapping before field pipelines run.
type ModelHook struct {
	Name string
	Fn   func(ctx context.Context, raw map[string]any) (map[string]any, error)
}

// ModelRule inspects the fully validated draft record. It may reject by
// returning errors, or transform field values by mutating the draft in place.
type ModelRule struct {
	Name string
	Fn   func(ctx context.Context, draft map[string]any) []FieldError
}

// RuleCtx gives rules and dependent defaults read-only access to finished
// sibling values and a PathRef anchored at the current field.
type RuleCtx struct {
	path PathRef
	done map[string]any
}

// Sibling returns the finished value of a sibling field. It reports false when
// the sibling is absent (optional without default) or not yet finished.
func (rc RuleCtx) Sibling(name string) (any, bool) {
	v, ok := rc.done[name]
	return v, ok
}

// Path returns a PathRef anchored at the field under validation.
func (rc RuleCtx) Path() PathRef { return rc.path }

// Reject builds a rejection error at the current field path. Use it as the
// return value of a FieldRule or FieldHook.
func (rc RuleCtx) Reject(msg string, kv ...any) error {
	return ErrorList{rc.path.Error(KindCustom, msg, kv...)}
}
