package vorm

import (
	"fmt"
	"strconv"
	"strings"
)

// PathRef builds dotted field paths in a chain-safe way and creates FieldErrors.
type PathRef interface {
	Field(name string) PathRef
	Index(i int) PathRef
	Key(k string) PathRef
	String() string
	Error(kind, msg string, kv ...any) FieldError
}

// Root returns a PathRef anchored at the record root. Its String() is empty.
func Root() PathRef { return &pathRef{parts: nil} }

// At parses a dotted/indexed path such as "items[1].price" into a PathRef.
func At(path string) PathRef {
	if path == "" {
		return Root()
	}
	pr := &pathRef{}
	for _, seg := range strings.Split(path, ".") {
		for {
			open := strings.IndexByte(seg, '[')
			if open < 0 {
				if seg != "" {
					pr.parts = append(pr.parts, pathPart{name: seg})
				}
				break
			}
			if open > 0 {
				pr.parts = append(pr.parts, pathPart{name: seg[:open]})
			}
			close := strings.IndexByte(seg, ']')
			if close < 0 {
				// malformed, keep remainder as a literal segment
				pr.parts = append(pr.parts, pathPart{name: seg[open:]})
				break
			}
			if i, err := strconv.Atoi(seg[open+1 : close]); err == nil {
				pr.parts = append(pr.parts, pathPart{index: i, isIndex: true})
			} else {
				pr.parts = append(pr.parts, pathPart{name: seg[open+1 : close]})
			}
			seg = seg[close+1:]
		}
	}
	return pr
}

type pathPart struct {
	name    string
	index   int
	isIndex bool
}

type pathRef struct {
	parts []pathPart
}

func (p *pathRef) Field(name string) PathRef {
	if name == "" {
		return p
	}
	return &pathRef{parts: append(append([]pathPart{}, p.parts...), pathPart{name: name})}
}

func (p *pathRef) Index(i int) PathRef {
	return &pathRef{parts: append(append([]pathPart{}, p.parts...), pathPart{index: i, isIndex: true})}
}

// Key addresses a mapping entry. Rendered like a field segment.
func (p *pathRef) Key(k string) PathRef { return p.Field(k) }

func (p *pathRef) String() string {
	if len(p.parts) == 0 {
		return ""
	}
	b := &strings.Builder{}
	for i, part := range p.parts {
		if part.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(part.index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part.name)
	}
	return b.String()
}

func (p *pathRef) Error(kind, msg string, kv ...any) FieldError {
	var m map[string]any
	if len(kv) > 0 {
		m = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	return FieldError{Path: p.String(), Kind: kind, Message: msg, Params: m}
}

// joinPath prefixes a relative dotted path with a base path. An empty relative
// path addresses the base itself.
func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	if base == "" {
		return rel
	}
	if rel[0] == '[' {
		return base + rel
	}
	return base + "." + rel
}

// prefixErrors rebases child errors under the given base path. Child paths are
// relative to the child's own root.
func prefixErrors(base PathRef, errs ErrorList) ErrorList {
	if len(errs) == 0 {
		return nil
	}
	bp := base.String()
	out := make(ErrorList, 0, len(errs))
	for _, fe := range errs {
		fe.Path = joinPath(bp, fe.Path)
		out = append(out, fe)
	}
	return out
}
