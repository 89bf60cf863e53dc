package persist

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hafiza/internal/state"
)

// Codec converts snapshots to and from their stored text form.
type Codec struct {
	Name        string
	Serialize   func(*state.Object) (string, error)
	Deserialize func(string) (*state.Object, error)
}

// JSONCodec stores snapshots as plain JSON. This is the default.
var JSONCodec = Codec{
	Name: "json",
	Serialize: func(o *state.Object) (string, error) {
		data, err := state.MarshalValue(o)
		return string(data), err
	},
	Deserialize: decodeJSON,
}

// CanonicalCodec stores snapshots as RFC 8785 canonical JSON, so equal
// snapshots always produce byte-identical rows.
var CanonicalCodec = Codec{
	Name: "canonical",
	Serialize: func(o *state.Object) (string, error) {
		data, err := state.MarshalCanonical(o)
		return string(data), err
	},
	Deserialize: decodeJSON,
}

// YAMLCodec stores snapshots as YAML documents.
var YAMLCodec = Codec{
	Name: "yaml",
	Serialize: func(o *state.Object) (string, error) {
		data, err := yaml.Marshal(state.ToGo(o))
		if err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		return string(data), nil
	},
	Deserialize: func(s string) (*state.Object, error) {
		var raw map[string]any
		if err := yaml.Unmarshal([]byte(s), &raw); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if raw == nil {
			return state.Empty(), nil
		}
		v, err := state.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return v.(*state.Object), nil
	},
}

func decodeJSON(s string) (*state.Object, error) {
	return state.DecodeObject([]byte(s))
}

// CodecByName returns a built-in codec: "json", "canonical" or "yaml".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec, nil
	case "canonical":
		return CanonicalCodec, nil
	case "yaml":
		return YAMLCodec, nil
	default:
		return Codec{}, fmt.Errorf("unknown codec %q (want json, canonical or yaml)", name)
	}
}
