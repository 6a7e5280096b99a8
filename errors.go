package vorm

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds (exported consts for IDE completion and type safety by convention)
const (
	KindMissingRequired     = "missing_required"
	KindTypeError           = "type_error"
	KindConstraintViolation = "constraint_violation"
	KindCustom              = "custom"
	KindModelRejection      = "model_rejection"
	KindUnknownField        = "unknown_field"
)

// FieldError represents a single validation entry.
type FieldError struct {
	Path    string // Dotted field path (for example: items[2].price).
	Kind    string // One of the kinds listed above.
	Message string
	// Input is the offending raw input value, kept for diagnostics. Best-effort:
	// missing-required entries carry nil.
	Input any
	// Params carries structured parameters (e.g., {"min":1, "max":10, "got":42})
	// for i18n and observability.
	Params map[string]any
	// Rule optionally records the rule name that produced this error.
	Rule string
	// Cause optionally records the underlying error.
	Cause error
}

// ErrorList is an ordered collection of validation errors that implements error.
type ErrorList []FieldError

// Error summarizes the first few entries.
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(el)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fe := el[i]
		p := fe.Path
		if p == "" {
			p = "(root)"
		}
		// e.g. type_error at items[2].price
		fmt.Fprintf(b, "%s at %s", fe.Kind, p)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendErrors appends entries to the destination, initializing the slice when
// needed.
func AppendErrors(dst ErrorList, more ...FieldError) ErrorList {
	if dst == nil {
		dst = ErrorList{}
	}
	dst = append(dst, more...)
	return dst
}

// AsErrorList extracts an ErrorList from an error using errors.As internally.
func AsErrorList(err error) (ErrorList, bool) {
	if err == nil {
		return nil, false
	}
	var el ErrorList
	if errors.As(err, &el) {
		return el, true
	}
	return nil, false
}

// CompileError reports a schema-definition problem: duplicate field names,
// alias collisions, cyclic rule dependencies, malformed constraints. It is a
// programmer error surfaced eagerly by Compile, never a runtime data error.
type CompileError struct {
	Schema string // schema name
	Field  string // offending field, empty for model-level problems
	Reason string
	Err    error // optional underlying error
}

func (e *CompileError) Error() string {
	b := &strings.Builder{}
	b.WriteString("vorm: compile ")
	b.WriteString(e.Schema)
	if e.Field != "" {
		fmt.Fprintf(b, ": field %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		fmt.Fprintf(b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error { return e.Err }
