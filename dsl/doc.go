// Package dsl provides the fluent builder for vorm schemas.
//
// A model is declared once, usually at package level, and compiled into a
// reusable plan:
//
//	plan := dsl.Model("user").
//		Field("user_id", dsl.Int().Min(1)).Alias("id").Required().
//		Field("name", dsl.String().MinLen(1).MaxLen(64)).
//		Field("tags", dsl.SliceOf(dsl.String())).Default([]any{}).
//		ExtraForbid().
//		MustCompile()
//
// Builders are not safe for concurrent use; the compiled plan is.
package dsl
