package merge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ToMap converts v to its JSON object form, honouring json struct tags.
func ToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var out map[string]any
	if err = json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%T does not encode to a JSON object: %w", v, err)
	}
	return out, nil
}

// Decode fills out from a JSON-like map using json tag names.
func Decode(in map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		ZeroFields: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err = decoder.Decode(in); err != nil {
		return fmt.Errorf("decode into %T: %w", out, err)
	}
	return nil
}

// Hydrate overlays payload onto defaults with SafeMerge and returns the typed
// result. Fields absent from defaults' JSON form are never set from payload.
func Hydrate[T any](defaults T, payload map[string]any) (T, error) {
	target, err := ToMap(defaults)
	if err != nil {
		return defaults, fmt.Errorf("hydrate: %w", err)
	}

	out := defaults
	if err = Decode(SafeMerge(target, payload), &out); err != nil {
		return defaults, fmt.Errorf("hydrate: %w", err)
	}
	return out, nil
}
