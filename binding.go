package flexconfig

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/saruyev/flexconfig/internal/flatmap"
)

// BindOptions customizes Unmarshal behavior.
type BindOptions struct {
	// TagName selects the struct tag used for field mapping. Defaults to
	// "json".
	TagName string

	// ErrorUnused makes decoding fail when the section carries keys the
	// target struct has no field for.
	ErrorUnused bool
}

// Unmarshal decodes this section into target, which must be a pointer to a
// struct or map. The flat section keys are rebuilt into a hierarchical
// structure, decoded weakly typed (strings convert to numbers, bools,
// durations and comma-separated slices), then default values are applied,
// required fields checked, and Validate called when the target implements
// ConfigValidator.
func (f *FlexConfig) Unmarshal(target any, options *BindOptions) error {
	if target == nil {
		return ErrConfigNil
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ErrTargetNotPointer
	}

	tagName := "json"
	errorUnused := false
	if options != nil {
		if options.TagName != "" {
			tagName = options.TagName
		}
		errorUnused = options.ErrorUnused
	}

	hierarchical := flatmap.Unflatten(f.Flat())

	config := &mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          tagName,
		ErrorUnused:      errorUnused,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return fmt.Errorf("binding decoder: %w", err)
	}
	if err := decoder.Decode(hierarchical); err != nil {
		return fmt.Errorf("binding %q: %w", f.base, err)
	}

	if rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	return ValidateConfig(target)
}
