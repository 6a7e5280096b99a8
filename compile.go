package vorm

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Plan is the compiled, immutable artifact derived from a Schema: merged field
// specs in a topologically ordered execution sequence, plus the whole-model
// hooks and policies. A Plan is safe for concurrent use by any number of
// validation runs.
type Plan struct {
	name           string
	fields         []*planField // execution order (topological)
	byName         map[string]*planField
	declared       []string // field names in declaration order, for reporting
	nested         map[*Schema]*Plan
	preModel       []ModelHook
	postModel      []ModelRule
	extra          ExtraPolicy
	populateByName bool
}

// Name returns the compiled schema's name.
func (p *Plan) Name() string { return p.name }

// Fields returns the field names in execution (topological) order.
func (p *Plan) Fields() []string {
	out := make([]string, 0, len(p.fields))
	for _, f := range p.fields {
		out = append(out, f.spec.Name)
	}
	return out
}

type planField struct {
	spec    FieldSpec
	declIdx int
	deps    []string // sibling fields that must finish first
}

// Compile builds a ValidationPlan from a Schema. It merges parent schemas,
// resolves the rule dependency graph into a stable topological order, and
// rejects malformed declarations with a CompileError. Compilation is a pure
// function of the Schema: compiling twice yields equivalent plans.
func Compile(s *Schema) (*Plan, error) {
	return compileSchema(s, map[*Schema]bool{})
}

// MustCompile is like Compile but panics on error.
func MustCompile(s *Schema) *Plan {
	p, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return p
}

func compileSchema(s *Schema, inProgress map[*Schema]bool) (*Plan, error) {
	if s == nil {
		return nil, &CompileError{Schema: "", Reason: "nil schema"}
	}
	if inProgress[s] {
		return nil, &CompileError{Schema: s.Name, Reason: "recursive model reference"}
	}
	inProgress[s] = true
	defer delete(inProgress, s)

	specs, pre, post, err := mergeSchemas(s)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		name:           s.Name,
		byName:         make(map[string]*planField, len(specs)),
		declared:       make([]string, 0, len(specs)),
		nested:         map[*Schema]*Plan{},
		preModel:       pre,
		postModel:      post,
		extra:          s.Extra,
		populateByName: s.PopulateByName,
	}

	all := make([]*planField, 0, len(specs))
	for i, spec := range specs {
		if err := checkFieldSpec(s.Name, spec); err != nil {
			return nil, err
		}
		pf := &planField{spec: spec, declIdx: i, deps: fieldDeps(spec)}
		all = append(all, pf)
		p.byName[spec.Name] = pf
		p.declared = append(p.declared, spec.Name)
	}

	if err := checkAliases(s.Name, all); err != nil {
		return nil, err
	}
	ordered, err := topoSort(s.Name, all, p.byName)
	if err != nil {
		return nil, err
	}
	p.fields = ordered

	// compile nested model references reachable from field types
	for _, pf := range all {
		if err := compileNested(pf.spec.Type, p.nested, inProgress); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// mergeSchemas flattens the inheritance chain. Parent fields come first in
// their own order; a child field with a parent's name overrides the parent's
// spec in place, so only the child's pipeline applies to that field. Model
// hooks run parent-declared first, then child-declared.
func mergeSchemas(s *Schema) ([]FieldSpec, []ModelHook, []ModelRule, error) {
	var fields []FieldSpec
	index := map[string]int{}
	var pre []ModelHook
	var post []ModelRule

	var add func(sc *Schema) error
	add = func(sc *Schema) error {
		for _, parent := range sc.Extends {
			if parent == nil {
				return &CompileError{Schema: s.Name, Reason: "nil parent schema"}
			}
			if err := add(parent); err != nil {
				return err
			}
		}
		seenHere := map[string]bool{}
		for _, spec := range sc.Fields {
			if seenHere[spec.Name] {
				return &CompileError{Schema: sc.Name, Field: spec.Name, Reason: "duplicate field"}
			}
			seenHere[spec.Name] = true
			if i, ok := index[spec.Name]; ok {
				fields[i] = spec // child override keeps the parent's position
				continue
			}
			index[spec.Name] = len(fields)
			fields = append(fields, spec)
		}
		pre = append(pre, sc.PreModel...)
		post = append(post, sc.PostModel...)
		return nil
	}
	if err := add(s); err != nil {
		return nil, nil, nil, err
	}
	return fields, pre, post, nil
}

func checkFieldSpec(schema string, spec FieldSpec) error {
	if spec.Name == "" {
		return &CompileError{Schema: schema, Reason: "field with empty name"}
	}
	if spec.Type == nil {
		return &CompileError{Schema: schema, Field: spec.Name, Reason: "missing type"}
	}
	for _, c := range spec.Constraints {
		if c.err != nil {
			return &CompileError{Schema: schema, Field: spec.Name, Reason: "malformed constraint " + c.name, Err: c.err}
		}
	}
	if spec.Default != nil {
		d := spec.Default
		if d.kind == defaultFactory && d.factory == nil {
			return &CompileError{Schema: schema, Field: spec.Name, Reason: "factory default without function"}
		}
		if d.kind == defaultDependent && d.dependent == nil {
			return &CompileError{Schema: schema, Field: spec.Name, Reason: "dependent default without function"}
		}
	}
	return nil
}

func checkAliases(schema string, all []*planField) error {
	byKey := map[string]string{}
	for _, pf := range all {
		byKey[pf.spec.Name] = pf.spec.Name
	}
	for _, pf := range all {
		a := pf.spec.Alias
		if a == "" {
			continue
		}
		if owner, ok := byKey[a]; ok && owner != pf.spec.Name {
			return &CompileError{Schema: schema, Field: pf.spec.Name, Reason: fmt.Sprintf("alias %q collides with field %q", a, owner)}
		}
		byKey[a] = pf.spec.Name
	}
	return nil
}

// fieldDeps collects the sibling fields a field's rules and dependent default
// read. Duplicates are dropped, order preserved.
func fieldDeps(spec FieldSpec) []string {
	var deps []string
	seen := map[string]bool{}
	addAll := func(names []string) {
		for _, n := range names {
			if n == spec.Name || seen[n] {
				continue
			}
			seen[n] = true
			deps = append(deps, n)
		}
	}
	for _, r := range spec.Rules {
		addAll(r.Reads)
	}
	if spec.Default != nil {
		addAll(spec.Default.reads)
	}
	return deps
}

// topoSort orders fields so every dependency finishes before its dependents,
// breaking ties by declaration order for determinism. Unknown read targets and
// cycles are compile errors.
func topoSort(schema string, all []*planField, byName map[string]*planField) ([]*planField, error) {
	indegree := make(map[string]int, len(all))
	dependents := make(map[string][]string, len(all))
	for _, pf := range all {
		indegree[pf.spec.Name] = 0
	}
	for _, pf := range all {
		for _, dep := range pf.deps {
			if _, ok := byName[dep]; !ok {
				return nil, &CompileError{Schema: schema, Field: pf.spec.Name, Reason: fmt.Sprintf("reads unknown field %q", dep)}
			}
			indegree[pf.spec.Name]++
			dependents[dep] = append(dependents[dep], pf.spec.Name)
		}
	}

	var ready []*planField
	for _, pf := range all {
		if indegree[pf.spec.Name] == 0 {
			ready = append(ready, pf)
		}
	}
	sortByDecl(ready)

	ordered := make([]*planField, 0, len(all))
	for len(ready) > 0 {
		pf := ready[0]
		ready = ready[1:]
		ordered = append(ordered, pf)
		var released []*planField
		for _, name := range dependents[pf.spec.Name] {
			indegree[name]--
			if indegree[name] == 0 {
				released = append(released, byName[name])
			}
		}
		if len(released) > 0 {
			ready = append(ready, released...)
			sortByDecl(ready)
		}
	}
	if len(ordered) != len(all) {
		var stuck []string
		for name, d := range indegree {
			if d > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, &CompileError{Schema: schema, Reason: fmt.Sprintf("cyclic field dependency involving %v", stuck)}
	}
	return ordered, nil
}

func sortByDecl(fs []*planField) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].declIdx < fs[j].declIdx })
}

// compileNested walks a type descriptor and compiles every nested model
// reference it contains.
func compileNested(t TypeDesc, into map[*Schema]*Plan, inProgress map[*Schema]bool) error {
	switch d := t.(type) {
	case nestedType:
		if d.schema == nil {
			return &CompileError{Reason: "nil nested schema"}
		}
		if _, ok := into[d.schema]; ok {
			return nil
		}
		sub, err := compileSchema(d.schema, inProgress)
		if err != nil {
			return err
		}
		into[d.schema] = sub
	case sliceType:
		return compileNested(d.elem, into, inProgress)
	case mapType:
		return compileNested(d.elem, into, inProgress)
	case unionType:
		for _, alt := range d.alts {
			if err := compileNested(alt, into, inProgress); err != nil {
				return err
			}
		}
	case enumType:
		return compileNested(d.base, into, inProgress)
	}
	return nil
}

// ---- plan cache ----

var (
	planCache    sync.Map // *Schema -> *Plan
	compileGroup singleflight.Group
)

// CompileCached returns the cached Plan for a Schema, compiling it once on
// first use. Concurrent first-use calls for the same Schema collapse into a
// single compilation. Failed compilations are not cached so a corrected schema
// value compiles cleanly.
func CompileCached(s *Schema) (*Plan, error) {
	if p, ok := planCache.Load(s); ok {
		return p.(*Plan), nil
	}
	v, err, _ := compileGroup.Do(fmt.Sprintf("%p", s), func() (any, error) {
		if p, ok := planCache.Load(s); ok {
			return p.(*Plan), nil
		}
		p, err := Compile(s)
		if err != nil {
			return nil, err
		}
		planCache.Store(s, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Plan), nil
}
