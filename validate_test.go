package vorm_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	vorm "github.com/vormlabs/vorm"
)

func mustPlan(t *testing.T, s *vorm.Schema) *vorm.Plan {
	t.Helper()
	p, err := vorm.Compile(s)
	if err != nil {
		t.Fatalf("compile %s: %v", s.Name, err)
	}
	return p
}

func errorList(t *testing.T, err error) vorm.ErrorList {
	t.Helper()
	el, ok := vorm.AsErrorList(err)
	if !ok {
		t.Fatalf("want ErrorList, got %v", err)
	}
	return el
}

func TestValidateAggregatesAllErrors(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "agg", Fields: []vorm.FieldSpec{
		{Name: "age", Type: vorm.Int(), Constraints: []vorm.Constraint{vorm.Min(0)}},
		{Name: "name", Type: vorm.String()},
		{Name: "score", Type: vorm.Float()},
	}})

	_, err := p.Validate(context.Background(), map[string]any{
		"age":   "not-a-number",
		"score": true,
	})
	el := errorList(t, err)
	if len(el) != 3 {
		t.Fatalf("want 3 errors, got %d: %v", len(el), el)
	}
	// declaration order: age, name, score
	if el[0].Path != "age" || el[0].Kind != vorm.KindTypeError {
		t.Fatalf("el[0] = %+v", el[0])
	}
	if el[1].Path != "name" || el[1].Kind != vorm.KindMissingRequired {
		t.Fatalf("el[1] = %+v", el[1])
	}
	if el[2].Path != "score" || el[2].Kind != vorm.KindTypeError {
		t.Fatalf("el[2] = %+v", el[2])
	}
}

func TestValidateReportOrderIsDeterministic(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "det", Fields: []vorm.FieldSpec{
		{Name: "a", Type: vorm.Int()},
		{Name: "b", Type: vorm.Int()},
		{Name: "c", Type: vorm.Int()},
	}})

	var first []string
	for run := 0; run < 20; run++ {
		_, err := p.Validate(context.Background(), map[string]any{})
		el := errorList(t, err)
		paths := make([]string, len(el))
		for i, fe := range el {
			paths[i] = fe.Path
		}
		if run == 0 {
			first = paths
			continue
		}
		if !reflect.DeepEqual(paths, first) {
			t.Fatalf("run %d order %v != %v", run, paths, first)
		}
	}
	if !reflect.DeepEqual(first, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", first)
	}
}

func TestValidateNoPartialRecordOnFailure(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "partial", Fields: []vorm.FieldSpec{
		{Name: "ok", Type: vorm.Int()},
		{Name: "bad", Type: vorm.Int()},
	}})

	rec, err := p.Validate(context.Background(), map[string]any{"ok": 1, "bad": "x"})
	if err == nil {
		t.Fatal("want error")
	}
	if rec.Len() != 0 {
		t.Fatalf("failed run must not leak a partial record, got %v", rec.Map())
	}
}

func TestValidateAliasPrecedence(t *testing.T) {
	base := vorm.FieldSpec{Name: "user_id", Type: vorm.Int(), Alias: "id"}

	t.Run("alias only by default", func(t *testing.T) {
		p := mustPlan(t, &vorm.Schema{Name: "alias", Fields: []vorm.FieldSpec{base}})

		rec, err := p.Validate(context.Background(), map[string]any{"id": 7})
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if v, _ := rec.Get("user_id"); v != int64(7) {
			t.Fatalf("user_id = %v", v)
		}

		// internal name alone does not satisfy the field
		_, err = p.Validate(context.Background(), map[string]any{"user_id": 7})
		el := errorList(t, err)
		if el[0].Kind != vorm.KindMissingRequired {
			t.Fatalf("want missing_required, got %+v", el[0])
		}
	})

	t.Run("populate by name accepts both", func(t *testing.T) {
		p := mustPlan(t, &vorm.Schema{Name: "alias", PopulateByName: true, Fields: []vorm.FieldSpec{base}})

		rec, err := p.Validate(context.Background(), map[string]any{"user_id": 7})
		if err != nil {
			t.Fatalf("validate by name: %v", err)
		}
		if v, _ := rec.Get("user_id"); v != int64(7) {
			t.Fatalf("user_id = %v", v)
		}

		// alias still wins when both spellings are present
		rec, err = p.Validate(context.Background(), map[string]any{"id": 1, "user_id": 2})
		if err != nil {
			t.Fatalf("validate both: %v", err)
		}
		if v, _ := rec.Get("user_id"); v != int64(1) {
			t.Fatalf("alias should win, user_id = %v", v)
		}
	})
}

func TestValidateExtraPolicies(t *testing.T) {
	fields := []vorm.FieldSpec{{Name: "a", Type: vorm.Int()}}
	in := map[string]any{"a": 1, "zz": true, "mm": "x"}

	t.Run("ignore", func(t *testing.T) {
		p := mustPlan(t, &vorm.Schema{Name: "ig", Fields: fields, Extra: vorm.ExtraIgnore})
		rec, err := p.Validate(context.Background(), in)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if rec.Has("zz") || rec.Len() != 1 {
			t.Fatalf("unknown keys must be dropped: %v", rec.Map())
		}
	})

	t.Run("forbid", func(t *testing.T) {
		p := mustPlan(t, &vorm.Schema{Name: "fb", Fields: fields, Extra: vorm.ExtraForbid})
		_, err := p.Validate(context.Background(), in)
		el := errorList(t, err)
		if len(el) != 2 {
			t.Fatalf("want one error per unknown key, got %v", el)
		}
		// sorted key order
		if el[0].Path != "mm" || el[1].Path != "zz" {
			t.Fatalf("unknown keys not sorted: %v", el)
		}
		if el[0].Kind != vorm.KindUnknownField {
			t.Fatalf("kind = %s", el[0].Kind)
		}
	})

	t.Run("allow", func(t *testing.T) {
		p := mustPlan(t, &vorm.Schema{Name: "al", Fields: fields, Extra: vorm.ExtraAllow})
		rec, err := p.Validate(context.Background(), in)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if v, _ := rec.Get("zz"); v != true {
			t.Fatalf("extras must pass through, zz = %v", v)
		}
		// declared first, extras appended sorted
		want := []string{"a", "mm", "zz"}
		if !reflect.DeepEqual(rec.Keys(), want) {
			t.Fatalf("keys = %v, want %v", rec.Keys(), want)
		}
	})
}

func TestValidateStaticDefaultIsolation(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "def", Fields: []vorm.FieldSpec{
		{Name: "tags", Type: vorm.SliceOf(vorm.String()), Default: vorm.DefaultValue([]any{"x"})},
	}})

	r1, err := p.Validate(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	v1, _ := r1.Get("tags")
	v1.([]any)[0] = "mutated"

	r2, err := p.Validate(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	v2, _ := r2.Get("tags")
	if v2.([]any)[0] != "x" {
		t.Fatalf("records share the static default: %v", v2)
	}
}

func TestValidateFactoryDefault(t *testing.T) {
	n := 0
	p := mustPlan(t, &vorm.Schema{Name: "fac", Fields: []vorm.FieldSpec{
		{Name: "seq", Type: vorm.Int(), Default: vorm.DefaultFactory(func() any { n++; return int64(n) })},
	}})

	for want := 1; want <= 3; want++ {
		rec, err := p.Validate(context.Background(), map[string]any{})
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if v, _ := rec.Get("seq"); v != int64(want) {
			t.Fatalf("factory must run per record: got %v, want %d", v, want)
		}
	}
}

func TestValidateDependentDefault(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "dep", Fields: []vorm.FieldSpec{
		{Name: "country", Type: vorm.String()},
		{Name: "currency", Type: vorm.String(), Default: vorm.DefaultFrom([]string{"country"}, func(_ context.Context, rc vorm.RuleCtx) (any, error) {
			if c, _ := rc.Sibling("country"); c == "JP" {
				return "JPY", nil
			}
			return "USD", nil
		})},
	}})

	rec, err := p.Validate(context.Background(), map[string]any{"country": "JP"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v, _ := rec.Get("currency"); v != "JPY" {
		t.Fatalf("currency = %v", v)
	}
}

func TestValidateDefaultSkipsCoercionAndConstraints(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "skip", Fields: []vorm.FieldSpec{
		{Name: "level", Type: vorm.Int(), Constraints: []vorm.Constraint{vorm.Min(10)}, Default: vorm.DefaultValue(int64(1))},
	}})

	rec, err := p.Validate(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("defaults bypass constraints: %v", err)
	}
	if v, _ := rec.Get("level"); v != int64(1) {
		t.Fatalf("level = %v", v)
	}
}

func TestValidateOptionalAbsentLeavesNoSlot(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "opt", Fields: []vorm.FieldSpec{
		{Name: "a", Type: vorm.Int()},
		{Name: "nick", Type: vorm.String(), Optional: true},
	}})

	rec, err := p.Validate(context.Background(), map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rec.Has("nick") {
		t.Fatal("absent optional field must have no slot")
	}
}

func TestValidateExplicitNullIsTypeError(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "null", Fields: []vorm.FieldSpec{
		{Name: "a", Type: vorm.Int(), Optional: true},
	}})

	_, err := p.Validate(context.Background(), map[string]any{"a": nil})
	el := errorList(t, err)
	if el[0].Kind != vorm.KindTypeError {
		t.Fatalf("explicit null must be a type error, got %+v", el[0])
	}
}

func TestValidatePreModelHookReshapesInput(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{
		Name:   "pre",
		Fields: []vorm.FieldSpec{{Name: "name", Type: vorm.String()}},
		PreModel: []vorm.ModelHook{{Name: "rename", Fn: func(_ context.Context, raw map[string]any) (map[string]any, error) {
			if v, ok := raw["fullName"]; ok {
				raw["name"] = v
				delete(raw, "fullName")
			}
			return raw, nil
		}}},
	})

	rec, err := p.Validate(context.Background(), map[string]any{"fullName": "ada"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v, _ := rec.Get("name"); v != "ada" {
		t.Fatalf("name = %v", v)
	}
}

func TestValidatePreModelHookRejection(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{
		Name:   "prefail",
		Fields: []vorm.FieldSpec{{Name: "a", Type: vorm.Int(), Optional: true}},
		PreModel: []vorm.ModelHook{{Name: "deny", Fn: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, errors.New("payload rejected")
		}}},
	})

	_, err := p.Validate(context.Background(), map[string]any{})
	el := errorList(t, err)
	if el[0].Kind != vorm.KindModelRejection || el[0].Path != "" {
		t.Fatalf("pre-model rejection = %+v", el[0])
	}
	if el[0].Rule != "deny" {
		t.Fatalf("rule = %q", el[0].Rule)
	}
}

func TestValidatePostModelRuleRejects(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{
		Name: "post",
		Fields: []vorm.FieldSpec{
			{Name: "start", Type: vorm.Int()},
			{Name: "end", Type: vorm.Int()},
		},
		PostModel: []vorm.ModelRule{{Name: "range", Fn: func(_ context.Context, draft map[string]any) []vorm.FieldError {
			if draft["end"].(int64) <= draft["start"].(int64) {
				return []vorm.FieldError{{Path: "end", Message: "end must be after start"}}
			}
			return nil
		}}},
	})

	_, err := p.Validate(context.Background(), map[string]any{"start": 5, "end": 5})
	el := errorList(t, err)
	if el[0].Kind != vorm.KindModelRejection || el[0].Path != "end" || el[0].Rule != "range" {
		t.Fatalf("post-model error = %+v", el[0])
	}
}

func TestValidatePostModelRuleTransforms(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{
		Name:   "xform",
		Fields: []vorm.FieldSpec{{Name: "code", Type: vorm.String()}},
		PostModel: []vorm.ModelRule{{Name: "upper", Fn: func(_ context.Context, draft map[string]any) []vorm.FieldError {
			draft["code"] = "X-" + draft["code"].(string)
			return nil
		}}},
	})

	rec, err := p.Validate(context.Background(), map[string]any{"code": "42"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v, _ := rec.Get("code"); v != "X-42" {
		t.Fatalf("code = %v", v)
	}
}

func TestValidatePostModelSkippedWhenFieldsFailed(t *testing.T) {
	ran := false
	p := mustPlan(t, &vorm.Schema{
		Name:   "skiprules",
		Fields: []vorm.FieldSpec{{Name: "a", Type: vorm.Int()}},
		PostModel: []vorm.ModelRule{{Name: "spy", Fn: func(_ context.Context, _ map[string]any) []vorm.FieldError {
			ran = true
			return nil
		}}},
	})

	if _, err := p.Validate(context.Background(), map[string]any{}); err == nil {
		t.Fatal("want error")
	}
	if ran {
		t.Fatal("post-model rules must not run over an incomplete draft")
	}
}

func TestValidateFailFastStopsAtFirstField(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "ff", Fields: []vorm.FieldSpec{
		{Name: "a", Type: vorm.Int()},
		{Name: "b", Type: vorm.Int()},
	}})

	_, err := p.Validate(context.Background(), map[string]any{}, vorm.ValidateOpt{FailFast: true})
	el := errorList(t, err)
	if len(el) != 1 || el[0].Path != "a" {
		t.Fatalf("fail-fast should report only the first field, got %v", el)
	}
}

func TestValidateCrossFieldRuleIndependentOfDeclarationOrder(t *testing.T) {
	// discount is declared before price but reads it; execution order follows
	// the dependency graph.
	p := mustPlan(t, &vorm.Schema{Name: "cross", Fields: []vorm.FieldSpec{
		{Name: "discount", Type: vorm.Float(), Rules: []vorm.FieldRule{{
			Name:  "bounded",
			Reads: []string{"price"},
			Fn: func(_ context.Context, v any, rc vorm.RuleCtx) (any, error) {
				price, _ := rc.Sibling("price")
				if v.(float64) > price.(float64) {
					return nil, rc.Reject("discount exceeds price")
				}
				return v, nil
			},
		}}},
		{Name: "price", Type: vorm.Float()},
	}})

	if _, err := p.Validate(context.Background(), map[string]any{"discount": 5, "price": 10}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	_, err := p.Validate(context.Background(), map[string]any{"discount": 20, "price": 10})
	el := errorList(t, err)
	if el[0].Path != "discount" || el[0].Kind != vorm.KindCustom {
		t.Fatalf("cross-field error = %+v", el[0])
	}
}

func TestValidateFieldRuleTransformsValue(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "trim", Fields: []vorm.FieldSpec{
		{Name: "email", Type: vorm.String(), Rules: []vorm.FieldRule{{
			Name: "lower",
			Fn: func(_ context.Context, v any, _ vorm.RuleCtx) (any, error) {
				return "lowered:" + v.(string), nil
			},
		}}},
	}})

	rec, err := p.Validate(context.Background(), map[string]any{"email": "A@B"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v, _ := rec.Get("email"); v != "lowered:A@B" {
		t.Fatalf("email = %v", v)
	}
}

func TestValidatePreHookRunsBeforeCoercion(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "hook", Fields: []vorm.FieldSpec{
		{Name: "n", Type: vorm.Int(), PreHooks: []vorm.FieldHook{{
			Name: "strip",
			Fn: func(_ context.Context, raw any) (any, error) {
				return raw.(string)[1:], nil
			},
		}}},
	}})

	rec, err := p.Validate(context.Background(), map[string]any{"n": "#42"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v, _ := rec.Get("n"); v != int64(42) {
		t.Fatalf("n = %v", v)
	}
}

func TestValidateMissingRequiredCarriesAlias(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "miss", Fields: []vorm.FieldSpec{
		{Name: "user_id", Type: vorm.Int(), Alias: "id"},
	}})

	_, err := p.Validate(context.Background(), map[string]any{})
	el := errorList(t, err)
	if el[0].Params["alias"] != "id" || el[0].Params["field"] != "user_id" {
		t.Fatalf("params = %v", el[0].Params)
	}
}

func TestErrorListSummary(t *testing.T) {
	el := vorm.ErrorList{
		{Path: "a", Kind: vorm.KindTypeError},
		{Path: "", Kind: vorm.KindModelRejection},
		{Path: "c", Kind: vorm.KindCustom},
		{Path: "d", Kind: vorm.KindCustom},
	}
	got := el.Error()
	want := "type_error at a; model_rejection at (root); custom at c; ... (total 4)"
	if got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
}
