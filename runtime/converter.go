package runtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DecodeInput converts the engine's raw input map into a typed value using
// json tags. Steps with structured inputs recover their concrete type here,
// at the one call site where it is statically known.
func DecodeInput[I any](input map[string]any) (I, error) {
	var target I
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &target,
		TagName: "json",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return target, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return target, fmt.Errorf("failed to decode input: %w", err)
	}

	return target, nil
}

// EncodeOutput converts a typed output into the map the engine stores,
// via a JSON round-trip so json tags and nested structs behave.
func EncodeOutput[O any](output O) (map[string]any, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal output: %w", err)
	}

	return result, nil
}
