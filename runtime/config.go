package runtime

import (
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

// InitializeConfig prepares a config struct in one call: apply defaults
// from struct tags, merge raw values (yaml-tagged), then validate the
// merged result.
func InitializeConfig(config any, rawValues map[string]any) error {
	if err := defaults.Set(config); err != nil {
		slog.Error("config: failed to apply defaults",
			"config_type", reflect.TypeOf(config).String(),
			"error", err)
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	if len(rawValues) > 0 {
		if err := mergeConfigValues(rawValues, config); err != nil {
			slog.Error("config: failed to apply values",
				"config_type", reflect.TypeOf(config).String(),
				"error", err)
			return fmt.Errorf("failed to apply config values: %w", err)
		}
	}

	configValue := reflect.ValueOf(config)
	if configValue.Kind() == reflect.Ptr {
		configValue = configValue.Elem()
	}

	if err := validate.Struct(configValue.Interface()); err != nil {
		slog.Error("config validation failed",
			"config_type", reflect.TypeOf(config).String(),
			"error", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// mergeConfigValues merges a raw map into the config struct using yaml
// tags, because config structs use yaml tags for field mapping.
func mergeConfigValues(rawValues map[string]any, config any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  config,
		TagName: "yaml",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(rawValues)
}
