package vorm

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/vormlabs/vorm/i18n"
	"github.com/vormlabs/vorm/internal/engine"
)

// coerce converts a raw value toward a type descriptor. Returned error paths
// are relative to the value's own root; the field pipeline prefixes them with
// the field path. Coercion is deterministic and referentially transparent
// given (value, descriptor); absence is handled by the pipeline before coerce
// is ever invoked.
func (p *Plan) coerce(ctx context.Context, t TypeDesc, raw any) (any, ErrorList) {
	switch d := t.(type) {
	case stringType:
		return primitive(engine.String(raw))(t, raw)
	case intType:
		return primitive(engine.Int(raw))(t, raw)
	case floatType:
		return primitive(engine.Float(raw))(t, raw)
	case boolType:
		return primitive(engine.Bool(raw))(t, raw)
	case timeType:
		return primitive(engine.Time(raw))(t, raw)
	case enumType:
		return p.coerceEnum(ctx, d, raw)
	case unionType:
		return p.coerceUnion(ctx, d, raw)
	case sliceType:
		return p.coerceSlice(ctx, d, raw)
	case mapType:
		return p.coerceMap(ctx, d, raw)
	case nestedType:
		return p.coerceNested(ctx, d, raw)
	default:
		return nil, ErrorList{typeError(Root(), t, raw, "unsupported type descriptor")}
	}
}

// primitive adapts an engine conversion result into the coerce signature.
func primitive[T any](v T, err error) func(t TypeDesc, raw any) (any, ErrorList) {
	return func(t TypeDesc, raw any) (any, ErrorList) {
		if err != nil {
			return nil, ErrorList{typeError(Root(), t, raw, "")}
		}
		return v, nil
	}
}

func typeError(at PathRef, t TypeDesc, raw any, msg string) FieldError {
	if msg == "" {
		msg = fmt.Sprintf("%s: expected %s, got %s", i18n.T(KindTypeError, nil), t.typeName(), engine.KindName(raw))
	}
	fe := at.Error(KindTypeError, msg, "expected", t.typeName(), "got", engine.KindName(raw))
	fe.Input = raw
	return fe
}

func (p *Plan) coerceEnum(ctx context.Context, d enumType, raw any) (any, ErrorList) {
	v, errs := p.coerce(ctx, d.base, raw)
	if len(errs) > 0 {
		return nil, errs
	}
	for _, lit := range d.literals {
		lv, lerrs := p.coerce(ctx, d.base, lit)
		if len(lerrs) > 0 {
			continue
		}
		if reflect.DeepEqual(v, lv) {
			return v, nil
		}
	}
	fe := typeError(Root(), d, raw, fmt.Sprintf("%s: not one of the declared literals", i18n.T(KindTypeError, nil)))
	fe.Params["literals"] = append([]any(nil), d.literals...)
	return nil, ErrorList{fe}
}

// coerceUnion tries each alternative left-to-right; the first alternative that
// coerces wins. There is no backtracking against later constraint checks.
func (p *Plan) coerceUnion(ctx context.Context, d unionType, raw any) (any, ErrorList) {
	for _, alt := range d.alts {
		if v, errs := p.coerce(ctx, alt, raw); len(errs) == 0 {
			return v, nil
		}
	}
	names := make([]string, 0, len(d.alts))
	for _, alt := range d.alts {
		names = append(names, alt.typeName())
	}
	fe := typeError(Root(), d, raw, fmt.Sprintf("%s: no union alternative matched", i18n.T(KindTypeError, nil)))
	fe.Params["alternatives"] = names
	return nil, ErrorList{fe}
}

// coerceSlice converts elementwise and keeps going after a failed element so
// every problem surfaces at its indexed sub-path in one run.
func (p *Plan) coerceSlice(ctx context.Context, d sliceType, raw any) (any, ErrorList) {
	src, ok := raw.([]any)
	if !ok {
		return nil, ErrorList{typeError(Root(), d, raw, "")}
	}
	out := make([]any, 0, len(src))
	var errs ErrorList
	for i, el := range src {
		v, sub := p.coerce(ctx, d.elem, el)
		if len(sub) > 0 {
			errs = AppendErrors(errs, prefixErrors(Root().Index(i), sub)...)
			continue
		}
		out = append(out, v)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// coerceMap converts values elementwise over sorted keys for deterministic
// error ordering.
func (p *Plan) coerceMap(ctx context.Context, d mapType, raw any) (any, ErrorList) {
	src, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrorList{typeError(Root(), d, raw, "")}
	}
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(src))
	var errs ErrorList
	for _, k := range keys {
		v, sub := p.coerce(ctx, d.elem, src[k])
		if len(sub) > 0 {
			errs = AppendErrors(errs, prefixErrors(Root().Key(k), sub)...)
			continue
		}
		out[k] = v
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// coerceNested delegates to the nested schema's compiled plan. Sub-errors come
// back relative to the nested root and are prefixed by the caller.
func (p *Plan) coerceNested(ctx context.Context, d nestedType, raw any) (any, ErrorList) {
	src, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrorList{typeError(Root(), d, raw, "")}
	}
	sub, ok := p.nested[d.schema]
	if !ok {
		// compiled plans always carry reachable nested schemas; this guards
		// hand-built plans only
		return nil, ErrorList{typeError(Root(), d, raw, "nested schema not compiled")}
	}
	rec, err := sub.Validate(ctx, src)
	if err != nil {
		if el, ok := AsErrorList(err); ok {
			return nil, el
		}
		return nil, ErrorList{typeError(Root(), d, raw, err.Error())}
	}
	return rec, nil
}

// deepCopyValue copies mutable raw structures so static defaults are never
// shared across records.
func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
