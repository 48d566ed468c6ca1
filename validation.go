package flexconfig

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Struct tag keys recognized during binding.
const (
	tagDefault  = "default"
	tagRequired = "required"
)

// ConfigValidator is implemented by configuration structs that carry custom
// validation logic beyond required-field checking. Unmarshal calls Validate
// after defaults are applied.
type ConfigValidator interface {
	Validate() error
}

// ValidateConfig applies default values, checks required fields and runs
// custom validation on a pointer-to-struct configuration object.
func ValidateConfig(cfg any) error {
	if cfg == nil {
		return ErrConfigNil
	}
	if err := ProcessDefaults(cfg); err != nil {
		return err
	}
	if err := ValidateRequired(cfg); err != nil {
		return err
	}
	if validator, ok := cfg.(ConfigValidator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
	}
	return nil
}

// ProcessDefaults sets fields carrying a `default:"value"` tag when the
// field still holds its zero value. Nested structs are processed
// recursively; nil struct pointers are left untouched.
func ProcessDefaults(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrTargetNotPointer
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return ErrTargetNotStruct
	}
	return processStructDefaults(v)
}

func processStructDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			if err := processStructDefaults(field); err != nil {
				return fmt.Errorf("field %s: %w", fieldType.Name, err)
			}
			continue
		}
		if field.Kind() == reflect.Ptr && !field.IsNil() && field.Elem().Kind() == reflect.Struct {
			if err := processStructDefaults(field.Elem()); err != nil {
				return fmt.Errorf("field %s: %w", fieldType.Name, err)
			}
			continue
		}

		defaultVal, ok := fieldType.Tag.Lookup(tagDefault)
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefaultValue(field, defaultVal); err != nil {
			return fmt.Errorf("field %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

func setDefaultValue(field reflect.Value, defaultVal string) error {
	// Durations are int64 under the hood but parse from "30s" style strings.
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(defaultVal)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(defaultVal)
	case reflect.Bool:
		b, err := strconv.ParseBool(defaultVal)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(defaultVal, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
		}
		if field.OverflowInt(i) {
			return fmt.Errorf("%w: %s", ErrDefaultValueParseError, defaultVal)
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(defaultVal, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
		}
		if field.OverflowUint(u) {
			return fmt.Errorf("%w: %s", ErrDefaultValueParseError, defaultVal)
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(defaultVal, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
		}
		if field.OverflowFloat(f) {
			return fmt.Errorf("%w: %s", ErrDefaultValueParseError, defaultVal)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, field.Type())
		}
		parts := strings.Split(defaultVal, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for i, p := range parts {
			slice.Index(i).SetString(strings.TrimSpace(p))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, field.Kind())
	}
	return nil
}

// ValidateRequired checks fields tagged `required:"true"` for zero values,
// reporting every missing field in one error.
func ValidateRequired(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrTargetNotPointer
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return ErrTargetNotStruct
	}

	var missing []string
	collectMissingRequired(v, "", &missing)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrRequiredFieldMissing, strings.Join(missing, ", "))
	}
	return nil
}

func collectMissingRequired(v reflect.Value, prefix string, missing *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		name := fieldType.Name
		if prefix != "" {
			name = prefix + "." + name
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			collectMissingRequired(field, name, missing)
			continue
		}
		if field.Kind() == reflect.Ptr && !field.IsNil() && field.Elem().Kind() == reflect.Struct {
			collectMissingRequired(field.Elem(), name, missing)
			continue
		}

		if fieldType.Tag.Get(tagRequired) == "true" && field.IsZero() {
			*missing = append(*missing, name)
		}
	}
}
