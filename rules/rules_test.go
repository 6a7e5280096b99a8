package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vorm "github.com/vormlabs/vorm"
	"github.com/vormlabs/vorm/rules"
)

func TestIfThen(t *testing.T) {
	r := rules.If("status", rules.Eq, "active").Then(rules.Required("plan"))

	errs := r.Fn(context.Background(), map[string]any{"status": "active"})
	require.Len(t, errs, 1)
	assert.Equal(t, "plan", errs[0].Path)
	assert.Equal(t, vorm.KindModelRejection, errs[0].Kind)

	errs = r.Fn(context.Background(), map[string]any{"status": "inactive"})
	assert.Empty(t, errs)
}

func TestIfOrderedComparison(t *testing.T) {
	r := rules.If("total", rules.Gt, 100).Then(rules.Required("approval"))

	errs := r.Fn(context.Background(), map[string]any{"total": int64(250)})
	require.Len(t, errs, 1)

	errs = r.Fn(context.Background(), map[string]any{"total": int64(50)})
	assert.Empty(t, errs)
}

func TestIfAllAndIfAny(t *testing.T) {
	both := rules.IfAll(
		rules.If("a", rules.Eq, true),
		rules.If("b", rules.Eq, true),
	).Then(rules.Required("c"))

	assert.Len(t, both.Fn(context.Background(), map[string]any{"a": true, "b": true}), 1)
	assert.Empty(t, both.Fn(context.Background(), map[string]any{"a": true, "b": false}))

	either := rules.If("a", rules.Eq, true).Or(rules.If("b", rules.Eq, true)).Then(rules.Required("c"))
	assert.Len(t, either.Fn(context.Background(), map[string]any{"b": true}), 1)
	assert.Empty(t, either.Fn(context.Background(), map[string]any{}))
}

func TestAtLeastOne(t *testing.T) {
	r := rules.AtLeastOne("email", "phone")

	assert.Empty(t, r.Fn(context.Background(), map[string]any{"phone": "555"}))

	errs := r.Fn(context.Background(), map[string]any{})
	require.Len(t, errs, 1)
	assert.Equal(t, vorm.KindModelRejection, errs[0].Kind)
	assert.Equal(t, "", errs[0].Path)
}

func TestMutuallyExclusive(t *testing.T) {
	r := rules.MutuallyExclusive("card", "invoice")

	assert.Empty(t, r.Fn(context.Background(), map[string]any{"card": "x"}))

	errs := r.Fn(context.Background(), map[string]any{"card": "x", "invoice": "y"})
	require.Len(t, errs, 1)
	assert.Equal(t, "mutually_exclusive", errs[0].Rule)
}

func TestUniqueBy(t *testing.T) {
	draft := map[string]any{
		"items": []any{
			map[string]any{"sku": "A-1"},
			map[string]any{"sku": "B-2"},
			map[string]any{"sku": "A-1"},
		},
	}

	errs := rules.UniqueBy("items", "sku").Fn(context.Background(), draft)
	require.Len(t, errs, 1)
	assert.Equal(t, "items[2].sku", errs[0].Path)
	assert.Equal(t, 0, errs[0].Params["first"])
	assert.Equal(t, 2, errs[0].Params["dup"])
}

func TestUniqueBySkipsElementsMissingKey(t *testing.T) {
	draft := map[string]any{
		"items": []any{
			map[string]any{"sku": "A-1"},
			map[string]any{"name": "no sku"},
		},
	}
	assert.Empty(t, rules.UniqueBy("items", "sku").Fn(context.Background(), draft))
}

func TestAndConcatenates(t *testing.T) {
	r := rules.And(rules.Required("a"), rules.Required("b"))
	errs := r.Fn(context.Background(), map[string]any{})
	assert.Len(t, errs, 2)
}

func TestAndFailFastShortCircuits(t *testing.T) {
	called := false
	spy := rules.Named("spy", func(context.Context, map[string]any) []vorm.FieldError {
		called = true
		return nil
	})

	ctx := vorm.WithFailFast(context.Background(), true)
	errs := rules.And(rules.Required("a"), spy).Fn(ctx, map[string]any{})
	assert.Len(t, errs, 1)
	assert.False(t, called)
}

func TestOrReturnsSmallestBranch(t *testing.T) {
	r := rules.Or(
		rules.Required("a", "b"),
		rules.Required("c"),
	)
	errs := r.Fn(context.Background(), map[string]any{})
	require.Len(t, errs, 1)
	assert.Equal(t, "c", errs[0].Path)

	assert.Empty(t, r.Fn(context.Background(), map[string]any{"c": 1}))
}
