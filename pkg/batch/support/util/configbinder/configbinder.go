// Package configbinder decodes loosely typed property maps (as found under provider sections
// of application.yaml) into typed structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds props to target using the target's `yaml` tags.
// Strings are converted to numbers, bools and durations where the target field requires it.
func BindProperties(props map[string]interface{}, target interface{}) error {
	if len(props) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "yaml",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(props); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}

// BindStringProperties is BindProperties for flat string maps (e.g. values read from the environment).
func BindStringProperties(props map[string]string, target interface{}) error {
	converted := make(map[string]interface{}, len(props))
	for k, v := range props {
		converted[k] = v
	}
	return BindProperties(converted, target)
}
