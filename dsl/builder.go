package dsl

import (
	"context"
	"errors"
	"fmt"

	vorm "github.com/vormlabs/vorm"
)

// ModelBuilder assembles a Schema through a fluent chain. Field declarations
// are staged by Field and flushed when the chain moves on, so the declaration
// order in code is the declaration order of the schema.
type ModelBuilder struct {
	name    string
	extends []*vorm.Schema
	fields  []vorm.FieldSpec
	extra   vorm.ExtraPolicy
	byName  bool
	pre     []vorm.ModelHook
	post    []vorm.ModelRule
	pending *FieldStep
	errs    []error
}

// Model starts a builder for a schema with the given name.
func Model(name string) *ModelBuilder {
	return &ModelBuilder{name: name}
}

// Extend merges a parent schema's fields before this model's own declarations.
// Call order is merge order.
func (b *ModelBuilder) Extend(parent *vorm.Schema) *ModelBuilder {
	b.flush()
	b.extends = append(b.extends, parent)
	return b
}

// Field stages a field declaration and returns a step for per-field options.
// A field with neither Required, Optional, nor a default is required.
func (b *ModelBuilder) Field(name string, t Type) *FieldStep {
	b.flush()
	b.errs = append(b.errs, t.errs...)
	st := &FieldStep{
		b: b,
		spec: vorm.FieldSpec{
			Name:        name,
			Type:        t.desc,
			Constraints: append([]vorm.Constraint(nil), t.cons...),
		},
	}
	b.pending = st
	return st
}

// ExtraIgnore drops unknown input keys silently.
func (b *ModelBuilder) ExtraIgnore() *ModelBuilder {
	b.flush()
	b.extra = vorm.ExtraIgnore
	return b
}

// ExtraForbid reports every unknown input key as an error.
func (b *ModelBuilder) ExtraForbid() *ModelBuilder {
	b.flush()
	b.extra = vorm.ExtraForbid
	return b
}

// ExtraAllow carries unknown input keys through to the output record.
func (b *ModelBuilder) ExtraAllow() *ModelBuilder {
	b.flush()
	b.extra = vorm.ExtraAllow
	return b
}

// PopulateByName lets aliased fields also match their internal name.
func (b *ModelBuilder) PopulateByName() *ModelBuilder {
	b.flush()
	b.byName = true
	return b
}

// PreModel registers a hook over the raw input mapping, run before any field
// pipeline.
func (b *ModelBuilder) PreModel(name string, fn func(ctx context.Context, raw map[string]any) (map[string]any, error)) *ModelBuilder {
	b.flush()
	b.pre = append(b.pre, vorm.ModelHook{Name: name, Fn: fn})
	return b
}

// PostModel registers a rule over the fully validated draft record.
func (b *ModelBuilder) PostModel(name string, fn func(ctx context.Context, draft map[string]any) []vorm.FieldError) *ModelBuilder {
	b.flush()
	b.post = append(b.post, vorm.ModelRule{Name: name, Fn: fn})
	return b
}

// Build finalizes the schema. Declaration mistakes recorded during chaining
// surface here; structural problems surface at Compile.
func (b *ModelBuilder) Build() (*vorm.Schema, error) {
	b.flush()
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("dsl: model %q: %w", b.name, errors.Join(b.errs...))
	}
	return &vorm.Schema{
		Name:           b.name,
		Extends:        append([]*vorm.Schema(nil), b.extends...),
		Fields:         append([]vorm.FieldSpec(nil), b.fields...),
		Extra:          b.extra,
		PopulateByName: b.byName,
		PreModel:       append([]vorm.ModelHook(nil), b.pre...),
		PostModel:      append([]vorm.ModelRule(nil), b.post...),
	}, nil
}

// MustBuild is Build panicking on error, for package-level declarations.
func (b *ModelBuilder) MustBuild() *vorm.Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Compile builds the schema and compiles it in one step.
func (b *ModelBuilder) Compile() (*vorm.Plan, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	return vorm.Compile(s)
}

// MustCompile is Compile panicking on error.
func (b *ModelBuilder) MustCompile() *vorm.Plan {
	p, err := b.Compile()
	if err != nil {
		panic(err)
	}
	return p
}

func (b *ModelBuilder) flush() {
	if b.pending == nil {
		return
	}
	b.fields = append(b.fields, b.pending.spec)
	b.pending = nil
}

// FieldStep narrows the chain to the field just declared. Every method either
// refines the field or hands control back to the builder.
type FieldStep struct {
	b    *ModelBuilder
	spec vorm.FieldSpec
}

// Required marks the field as required. This is the default; the method exists
// so declarations can say so explicitly.
func (st *FieldStep) Required() *FieldStep {
	st.spec.Optional = false
	return st
}

// Optional allows the field to be absent without a default.
func (st *FieldStep) Optional() *FieldStep {
	st.spec.Optional = true
	return st
}

// Alias sets the external input key. The alias takes precedence over the
// field name unless the model enables PopulateByName.
func (st *FieldStep) Alias(key string) *FieldStep {
	st.spec.Alias = key
	return st
}

// Default fills the field with a static value when absent. Mutable defaults
// are copied per record.
func (st *FieldStep) Default(v any) *FieldStep {
	st.spec.Default = vorm.DefaultValue(v)
	return st
}

// Factory fills the field by invoking fn fresh for every record.
func (st *FieldStep) Factory(fn func() any) *FieldStep {
	st.spec.Default = vorm.DefaultFactory(fn)
	return st
}

// DefaultFrom fills the field from already-validated siblings named in reads.
func (st *FieldStep) DefaultFrom(reads []string, fn func(ctx context.Context, rc vorm.RuleCtx) (any, error)) *FieldStep {
	st.spec.Default = vorm.DefaultFrom(reads, fn)
	return st
}

// PreHook registers a raw-value transform run before coercion.
func (st *FieldStep) PreHook(name string, fn func(ctx context.Context, raw any) (any, error)) *FieldStep {
	st.spec.PreHooks = append(st.spec.PreHooks, vorm.FieldHook{Name: name, Fn: fn})
	return st
}

// Rule registers a post-coercion validator. Reads declares the sibling fields
// the rule consults; the compiler orders execution accordingly.
func (st *FieldStep) Rule(name string, reads []string, fn func(ctx context.Context, v any, rc vorm.RuleCtx) (any, error)) *FieldStep {
	st.spec.Rules = append(st.spec.Rules, vorm.FieldRule{Name: name, Reads: reads, Fn: fn})
	return st
}

// Field closes this field and stages the next one.
func (st *FieldStep) Field(name string, t Type) *FieldStep { return st.b.Field(name, t) }

// Extend closes this field and merges a parent schema.
func (st *FieldStep) Extend(parent *vorm.Schema) *ModelBuilder { return st.b.Extend(parent) }

// ExtraIgnore closes this field and sets the unknown-key policy.
func (st *FieldStep) ExtraIgnore() *ModelBuilder { return st.b.ExtraIgnore() }

// ExtraForbid closes this field and sets the unknown-key policy.
func (st *FieldStep) ExtraForbid() *ModelBuilder { return st.b.ExtraForbid() }

// ExtraAllow closes this field and sets the unknown-key policy.
func (st *FieldStep) ExtraAllow() *ModelBuilder { return st.b.ExtraAllow() }

// PopulateByName closes this field and enables name fallback for aliases.
func (st *FieldStep) PopulateByName() *ModelBuilder { return st.b.PopulateByName() }

// PreModel closes this field and registers a model-level input hook.
func (st *FieldStep) PreModel(name string, fn func(ctx context.Context, raw map[string]any) (map[string]any, error)) *ModelBuilder {
	return st.b.PreModel(name, fn)
}

// PostModel closes this field and registers a model-level rule.
func (st *FieldStep) PostModel(name string, fn func(ctx context.Context, draft map[string]any) []vorm.FieldError) *ModelBuilder {
	return st.b.PostModel(name, fn)
}

// Build closes this field and finalizes the schema.
func (st *FieldStep) Build() (*vorm.Schema, error) { return st.b.Build() }

// MustBuild closes this field and finalizes the schema, panicking on error.
func (st *FieldStep) MustBuild() *vorm.Schema { return st.b.MustBuild() }

// Compile closes this field, builds, and compiles.
func (st *FieldStep) Compile() (*vorm.Plan, error) { return st.b.Compile() }

// MustCompile closes this field, builds, and compiles, panicking on error.
func (st *FieldStep) MustCompile() *vorm.Plan { return st.b.MustCompile() }
