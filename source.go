package vorm

import (
	"bytes"
	"context"
	"fmt"
	"io"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vormlabs/vorm/i18n"
)

// Source abstracts over raw-mapping inputs. The core never parses transport
// formats during validation; a Source decodes bytes into the untyped mapping
// that Validate consumes.
type Source interface {
	Decode() (map[string]any, error)
	Name() string
}

// JSONBytes wraps a JSON byte slice as a Source.
func JSONBytes(b []byte) Source { return jsonSource{r: bytes.NewReader(b)} }

// JSONReader wraps an io.Reader producing JSON as a Source.
func JSONReader(r io.Reader) Source { return jsonSource{r: r} }

type jsonSource struct{ r io.Reader }

func (s jsonSource) Name() string { return "json" }

func (s jsonSource) Decode() (map[string]any, error) {
	dec := j.NewDecoder(s.r)
	// numbers stay json.Number so integer inputs survive transport intact
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("vorm: decode json: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrorList{Root().Error(KindTypeError, i18n.T(KindTypeError, nil)+": expected object")}
	}
	return m, nil
}

// YAMLBytes wraps a YAML byte slice as a Source. Only the first document is
// decoded.
func YAMLBytes(b []byte) Source { return yamlSource{b: b} }

type yamlSource struct{ b []byte }

func (s yamlSource) Name() string { return "yaml" }

func (s yamlSource) Decode() (map[string]any, error) {
	var v any
	if err := yaml.Unmarshal(s.b, &v); err != nil {
		return nil, fmt.Errorf("vorm: decode yaml: %w", err)
	}
	m, ok := normalizeYAML(v).(map[string]any)
	if !ok {
		return nil, ErrorList{Root().Error(KindTypeError, i18n.T(KindTypeError, nil)+": expected mapping")}
	}
	return m, nil
}

// normalizeYAML rewrites yaml.v3 decoding artifacts (map[any]any keys from
// legacy documents, nested values) into the map[string]any / []any shape the
// engine expects.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeYAML(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeYAML(e)
		}
		return out
	default:
		return v
	}
}

// ValidateFrom decodes a Source into a raw mapping and validates it against
// the plan. It is strictly a convenience wrapper over Plan.Validate.
func ValidateFrom(ctx context.Context, p *Plan, src Source, opts ...ValidateOpt) (Record, error) {
	raw, err := src.Decode()
	if err != nil {
		if el, ok := AsErrorList(err); ok {
			return Record{}, el
		}
		return Record{}, err
	}
	return p.Validate(ctx, raw, opts...)
}
