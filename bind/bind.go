// Package bind decodes validated records into user structs.
//
// Struct fields are matched by the `vorm` tag, falling back to a
// case-insensitive field-name match when no tag is present:
//
//	type User struct {
//	    ID   int64  `vorm:"user_id"`
//	    Name string `vorm:"name"`
//	}
package bind

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"

	vorm "github.com/vormlabs/vorm"
)

// Decode copies a validated record into out, which must be a non-nil struct
// pointer. Nested records decode into nested structs; unmatched record keys
// are ignored so ExtraAllow passthrough never breaks binding.
func Decode(rec vorm.Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "vorm",
		Result:     out,
		DecodeHook: recordToMapHook,
	})
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	if err := dec.Decode(flatten(rec)); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	return nil
}

var recordType = reflect.TypeOf(vorm.Record{})

// recordToMapHook lets mapstructure see nested records as plain maps.
func recordToMapHook(from reflect.Type, _ reflect.Type, data any) (any, error) {
	if from != recordType {
		return data, nil
	}
	return flatten(data.(vorm.Record)), nil
}

func flatten(rec vorm.Record) map[string]any {
	out := rec.Map()
	for k, v := range out {
		switch e := v.(type) {
		case vorm.Record:
			out[k] = flatten(e)
		case []any:
			items := make([]any, len(e))
			for i, it := range e {
				if r, ok := it.(vorm.Record); ok {
					items[i] = flatten(r)
				} else {
					items[i] = it
				}
			}
			out[k] = items
		}
	}
	return out
}
