package vorm

// Record is an immutable mapping of field name to final typed value, produced
// by a successful validation run. Keys iterate in field declaration order with
// passed-through extras (ExtraAllow) appended in sorted order.
type Record struct {
	keys   []string
	values map[string]any
}

func newRecord(keys []string, values map[string]any) Record {
	return Record{keys: keys, values: values}
}

// Get returns the value for a field name.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether the record carries a value for the field name. Optional
// fields without defaults leave no slot when absent from input.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Len returns the number of populated fields.
func (r Record) Len() int { return len(r.values) }

// Keys returns the populated field names in declaration order.
func (r Record) Keys() []string { return append([]string(nil), r.keys...) }

// Map returns a shallow copy of the record as a plain map for downstream
// consumers (serializers, struct binding).
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
