package vorm_test

import (
	"context"
	"strings"
	"testing"

	vorm "github.com/vormlabs/vorm"
)

func orderPlan(t *testing.T) *vorm.Plan {
	t.Helper()
	item := &vorm.Schema{Name: "item", Fields: []vorm.FieldSpec{
		{Name: "sku", Type: vorm.String()},
		{Name: "qty", Type: vorm.Int(), Constraints: []vorm.Constraint{vorm.Min(1)}},
	}}
	return mustPlan(t, &vorm.Schema{Name: "order", Fields: []vorm.FieldSpec{
		{Name: "order_id", Type: vorm.Int(), Alias: "id"},
		{Name: "items", Type: vorm.SliceOf(vorm.Nested(item))},
	}, Extra: vorm.ExtraForbid})
}

func TestValidateFromJSON(t *testing.T) {
	body := `{"id": 9, "items": [{"sku": "A-1", "qty": "2"}]}`
	rec, err := vorm.ValidateFrom(context.Background(), orderPlan(t), vorm.JSONBytes([]byte(body)))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v, _ := rec.Get("order_id"); v != int64(9) {
		t.Fatalf("order_id = %v (%T)", v, v)
	}
	items, _ := rec.Get("items")
	sub := items.([]any)[0].(vorm.Record)
	if qty, _ := sub.Get("qty"); qty != int64(2) {
		t.Fatalf("qty = %v", qty)
	}
}

func TestValidateFromJSONPreservesLargeIntegers(t *testing.T) {
	p := mustPlan(t, &vorm.Schema{Name: "big", Fields: []vorm.FieldSpec{
		{Name: "n", Type: vorm.Int()},
	}})
	// would lose precision through float64
	body := `{"n": 9007199254740993}`
	rec, err := vorm.ValidateFrom(context.Background(), p, vorm.JSONBytes([]byte(body)))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v, _ := rec.Get("n"); v != int64(9007199254740993) {
		t.Fatalf("n = %v", v)
	}
}

func TestValidateFromJSONReader(t *testing.T) {
	r := strings.NewReader(`{"id": 1, "items": []}`)
	if _, err := vorm.ValidateFrom(context.Background(), orderPlan(t), vorm.JSONReader(r)); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateFromJSONNonObject(t *testing.T) {
	_, err := vorm.ValidateFrom(context.Background(), orderPlan(t), vorm.JSONBytes([]byte(`[1,2]`)))
	el := errorList(t, err)
	if el[0].Kind != vorm.KindTypeError || el[0].Path != "" {
		t.Fatalf("non-object input = %+v", el[0])
	}
}

func TestValidateFromJSONSyntaxError(t *testing.T) {
	_, err := vorm.ValidateFrom(context.Background(), orderPlan(t), vorm.JSONBytes([]byte(`{`)))
	if err == nil {
		t.Fatal("want decode error")
	}
	if _, ok := vorm.AsErrorList(err); ok {
		t.Fatalf("syntax errors are transport errors, not validation errors: %v", err)
	}
}

func TestValidateFromYAML(t *testing.T) {
	body := `
id: 3
items:
  - sku: A-1
    qty: 1
  - sku: B-2
    qty: 0
`
	_, err := vorm.ValidateFrom(context.Background(), orderPlan(t), vorm.YAMLBytes([]byte(body)))
	el := errorList(t, err)
	if len(el) != 1 || el[0].Path != "items[1].qty" {
		t.Fatalf("errors = %v", el)
	}
	if el[0].Kind != vorm.KindConstraintViolation {
		t.Fatalf("kind = %s", el[0].Kind)
	}
}

func TestValidateFromYAMLScalarDocument(t *testing.T) {
	_, err := vorm.ValidateFrom(context.Background(), orderPlan(t), vorm.YAMLBytes([]byte(`just a string`)))
	el := errorList(t, err)
	if el[0].Kind != vorm.KindTypeError {
		t.Fatalf("scalar document = %+v", el[0])
	}
}

func TestValidateFromReportsUnknownKeys(t *testing.T) {
	body := `{"id": 1, "items": [], "debug": true}`
	_, err := vorm.ValidateFrom(context.Background(), orderPlan(t), vorm.JSONBytes([]byte(body)))
	el := errorList(t, err)
	if len(el) != 1 || el[0].Kind != vorm.KindUnknownField || el[0].Path != "debug" {
		t.Fatalf("errors = %v", el)
	}
}
