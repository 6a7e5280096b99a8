package vorm

import (
	"context"
	"sort"

	"github.com/vormlabs/vorm/i18n"
)

// Validate executes the compiled plan against a raw input mapping. It runs
// pre-model hooks, then every field pipeline in the plan's topological order,
// applies the extra-field policy, and runs post-model rules only when every
// field succeeded. On success it returns a complete immutable Record; on
// failure it returns a zero Record and an ErrorList carrying every collected
// error, never just the first. A record is never half-populated.
func (p *Plan) Validate(ctx context.Context, raw map[string]any, opts ...ValidateOpt) (Record, error) {
	var opt ValidateOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.FailFast {
		ctx = WithFailFast(ctx, true)
	}

	input := make(map[string]any, len(raw))
	for k, v := range raw {
		input[k] = v
	}

	for _, h := range p.preModel {
		next, err := h.Fn(ctx, input)
		if err != nil {
			return Record{}, toFieldErrors(err, Root(), KindModelRejection, h.Name, nil)
		}
		if next != nil {
			input = next
		}
	}

	draft := make(map[string]any, len(p.fields))
	buckets := make(map[string]ErrorList, len(p.fields))
	consumed := make(map[string]bool, len(input))
	failed := false

	for _, pf := range p.fields {
		val, stored, errs := p.runField(ctx, pf, input, draft, consumed)
		if len(errs) > 0 {
			buckets[pf.spec.Name] = errs
			failed = true
			if IsFailFast(ctx) {
				break
			}
			continue
		}
		if stored {
			draft[pf.spec.Name] = val
		}
	}

	var unknownErrs ErrorList
	var extras []string
	if !(failed && IsFailFast(ctx)) {
		unknownErrs, extras = p.applyExtraPolicy(input, consumed, draft)
	}

	var modelErrs ErrorList
	if !failed && len(unknownErrs) == 0 {
		modelErrs = p.runModelRules(ctx, draft)
	}

	if failed || len(unknownErrs) > 0 || len(modelErrs) > 0 {
		return Record{}, p.report(buckets, unknownErrs, modelErrs)
	}

	keys := make([]string, 0, len(draft))
	for _, name := range p.declared {
		if _, ok := draft[name]; ok {
			keys = append(keys, name)
		}
	}
	keys = append(keys, extras...)
	return newRecord(keys, draft), nil
}

// Validate is the package-level entry point mirroring Plan.Validate.
func Validate(ctx context.Context, p *Plan, raw map[string]any, opts ...ValidateOpt) (Record, error) {
	return p.Validate(ctx, raw, opts...)
}

// runField drives one field through its pipeline: input lookup (alias before
// name), default application, pre-hooks, coercion, constraint checks, then
// custom rules with sibling access. It returns either a final value or the
// field's collected errors; sibling fields are never affected.
func (p *Plan) runField(ctx context.Context, pf *planField, input, draft map[string]any, consumed map[string]bool) (any, bool, ErrorList) {
	spec := pf.spec
	at := Root().Field(spec.Name)

	raw, present := p.lookup(spec, input, consumed)
	if !present {
		if spec.Default != nil {
			v, err := p.applyDefault(ctx, spec, draft, at)
			if err != nil {
				return nil, false, toFieldErrors(err, at, KindCustom, "", nil)
			}
			// defaults are declared in the target type: no coercion, no constraints
			return v, true, nil
		}
		if spec.Optional {
			return nil, false, nil
		}
		fe := at.Error(KindMissingRequired, i18n.T(KindMissingRequired, nil), "field", spec.Name)
		if spec.Alias != "" {
			fe.Params["alias"] = spec.Alias
		}
		return nil, false, ErrorList{fe}
	}

	original := raw
	for _, h := range spec.PreHooks {
		next, err := h.Fn(ctx, raw)
		if err != nil {
			// first pre-hook rejection stops this field's pipeline
			return nil, false, toFieldErrors(err, at, KindCustom, h.Name, original)
		}
		raw = next
	}

	v, cerrs := p.coerce(ctx, spec.Type, raw)
	if len(cerrs) > 0 {
		return nil, false, prefixErrors(at, cerrs)
	}

	if verrs := checkConstraints(v, spec.Constraints, at, original); len(verrs) > 0 {
		return nil, false, verrs
	}

	rc := RuleCtx{path: at, done: draft}
	for _, r := range spec.Rules {
		next, err := r.Fn(ctx, v, rc)
		if err != nil {
			return nil, false, toFieldErrors(err, at, KindCustom, r.Name, original)
		}
		v = next
	}
	return v, true, nil
}

// lookup resolves the input key for a field. A declared alias takes precedence
// over the internal name; the name is only consulted when the schema enables
// PopulateByName or no alias is declared.
func (p *Plan) lookup(spec FieldSpec, input map[string]any, consumed map[string]bool) (any, bool) {
	if spec.Alias != "" {
		if p.populateByName {
			// both spellings are recognized even when only one carries a value
			consumed[spec.Alias] = true
			consumed[spec.Name] = true
			if v, ok := input[spec.Alias]; ok {
				return v, true
			}
			v, ok := input[spec.Name]
			return v, ok
		}
		consumed[spec.Alias] = true
		v, ok := input[spec.Alias]
		return v, ok
	}
	consumed[spec.Name] = true
	v, ok := input[spec.Name]
	return v, ok
}

func (p *Plan) applyDefault(ctx context.Context, spec FieldSpec, draft map[string]any, at PathRef) (any, error) {
	d := spec.Default
	switch d.kind {
	case defaultFactory:
		return d.factory(), nil
	case defaultDependent:
		return d.dependent(ctx, RuleCtx{path: at, done: draft})
	default:
		return deepCopyValue(d.static), nil
	}
}

// applyExtraPolicy resolves input keys no field consumed. Forbid yields one
// error per unknown key, allow passes values through into the draft, ignore
// drops them. Keys are processed in sorted order for determinism.
func (p *Plan) applyExtraPolicy(input map[string]any, consumed map[string]bool, draft map[string]any) (ErrorList, []string) {
	var unknown []string
	for k := range input {
		if !consumed[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)

	switch p.extra {
	case ExtraForbid:
		var errs ErrorList
		for _, k := range unknown {
			fe := Root().Field(k).Error(KindUnknownField, i18n.T(KindUnknownField, nil), "key", k)
			fe.Input = input[k]
			errs = AppendErrors(errs, fe)
		}
		return errs, nil
	case ExtraAllow:
		for _, k := range unknown {
			draft[k] = input[k]
		}
		return nil, unknown
	default: // ExtraIgnore
		return nil, nil
	}
}

// runModelRules executes post-validation whole-model rules against the fully
// typed draft. Rules may mutate the draft to transform values; returned errors
// default to the model_rejection kind at the record root.
func (p *Plan) runModelRules(ctx context.Context, draft map[string]any) ErrorList {
	var errs ErrorList
	for _, r := range p.postModel {
		out := r.Fn(ctx, draft)
		for _, fe := range out {
			if fe.Kind == "" {
				fe.Kind = KindModelRejection
			}
			if fe.Message == "" {
				fe.Message = i18n.T(fe.Kind, nil)
			}
			if fe.Rule == "" {
				fe.Rule = r.Name
			}
			errs = AppendErrors(errs, fe)
		}
		if len(errs) > 0 && IsFailFast(ctx) {
			return errs
		}
	}
	return errs
}

// report flattens collected errors into the stable output order: field
// declaration order first (each field's errors keep their within-field order,
// nested errors depth-first), then unknown-key errors in sorted key order,
// then model-level errors.
func (p *Plan) report(buckets map[string]ErrorList, unknown, model ErrorList) ErrorList {
	var out ErrorList
	for _, name := range p.declared {
		out = AppendErrors(out, buckets[name]...)
	}
	out = AppendErrors(out, unknown...)
	out = AppendErrors(out, model...)
	return out
}

// toFieldErrors normalizes an error returned by a hook or rule. ErrorList
// values keep their entries with paths rebased under the field; any other
// error becomes a single entry of the given kind.
func toFieldErrors(err error, at PathRef, kind, rule string, input any) ErrorList {
	if el, ok := AsErrorList(err); ok {
		base := at.String()
		out := make(ErrorList, 0, len(el))
		for _, fe := range el {
			if fe.Path == "" {
				fe.Path = base
			} else if fe.Path != base && base != "" && !hasPathPrefix(fe.Path, base) {
				fe.Path = joinPath(base, fe.Path)
			}
			if fe.Kind == "" {
				fe.Kind = kind
			}
			if fe.Rule == "" {
				fe.Rule = rule
			}
			if fe.Input == nil {
				fe.Input = input
			}
			out = append(out, fe)
		}
		return out
	}
	fe := at.Error(kind, err.Error())
	fe.Rule = rule
	fe.Cause = err
	fe.Input = input
	return ErrorList{fe}
}

func hasPathPrefix(path, base string) bool {
	if len(path) < len(base) || path[:len(base)] != base {
		return false
	}
	if len(path) == len(base) {
		return true
	}
	return path[len(base)] == '.' || path[len(base)] == '['
}
