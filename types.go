package vorm

import "context"

// ExtraPolicy controls how unknown input keys are handled.
type ExtraPolicy int

const (
	ExtraIgnore ExtraPolicy = iota // Drop unknown keys.
	ExtraForbid                    // Reject unknown keys with an error.
	ExtraAllow                     // Pass unknown keys through into the Record unvalidated.
)

func (p ExtraPolicy) String() string {
	switch p {
	case ExtraForbid:
		return "forbid"
	case ExtraAllow:
		return "allow"
	default:
		return "ignore"
	}
}

// ValidateOpt bundles per-call validation options.
type ValidateOpt struct {
	// FailFast stops the run at the first failed field instead of aggregating
	// every error. Aggregation is the default.
	FailFast bool
}

// ---- Validate-time context options ----

type contextKey int

const _ctxKeyFailFast contextKey = iota

// WithFailFast returns a child context that marks fail-fast validation
// behavior. Set by Validate based on ValidateOpt and consumed by field
// pipelines and rule runners.
func WithFailFast(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, _ctxKeyFailFast, enabled)
}

// IsFailFast reports whether the current run should stop on the first error.
func IsFailFast(ctx context.Context) bool {
	v := ctx.Value(_ctxKeyFailFast)
	b, _ := v.(bool)
	return b
}
