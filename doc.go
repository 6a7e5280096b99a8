// Package vorm provides:
//
// - Declarative record schemas (fields, types, constraints, defaults, aliases)
// - A one-time compile step producing an immutable, reusable validation Plan
// - Coercion of untyped input (decoded JSON/YAML maps) into typed Records
// - A stable error model via ErrorList (dotted path, kind, message, input)
// - Full-error aggregation across independent fields, never first-error-only
//
// Design policy:
//   - Keep only public APIs in the root package; put primitive conversions
//     under internal/.
//   - Place the builder DSL under dsl/, rule combinators under rules/, struct
//     binding under bind/.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	plan, err := vorm.Compile(schema)
//	rec, err := plan.Validate(ctx, raw)
//	rec, err := vorm.ValidateFrom(ctx, plan, vorm.JSONBytes(data))
package vorm
