package flexconfig

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// Value is a single configuration value with typed conversion accessors.
// Missing keys yield a zero Value: accessors return zero values or typed
// errors, never panic.
type Value struct {
	raw   string
	key   string
	found bool
	null  bool
}

// Exists reports whether the key was present in any source.
func (v Value) Exists() bool { return v.found }

// IsNull reports whether the key was present but carried an explicit null.
func (v Value) IsNull() bool { return v.null }

// Key returns the full path the value was read from.
func (v Value) Key() string { return v.key }

// String returns the raw string value, or "" when missing or null.
func (v Value) String() string { return v.raw }

// StringOr returns the raw value, or def when the key is missing or null.
func (v Value) StringOr(def string) string {
	if !v.found || v.null {
		return def
	}
	return v.raw
}

// Int converts the value to int.
func (v Value) Int() (int, error) {
	i, err := v.Int64()
	return int(i), err
}

// IntOr converts to int, falling back to def on missing keys or errors.
func (v Value) IntOr(def int) int {
	i, err := v.Int()
	if err != nil {
		return def
	}
	return i
}

// Int64 converts the value to int64.
func (v Value) Int64() (int64, error) {
	if err := v.available(); err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(strings.TrimSpace(v.raw), 10, 64)
	if err != nil {
		return 0, v.conversionError("int64", err)
	}
	return i, nil
}

// Uint64 converts the value to uint64.
func (v Value) Uint64() (uint64, error) {
	if err := v.available(); err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(strings.TrimSpace(v.raw), 10, 64)
	if err != nil {
		return 0, v.conversionError("uint64", err)
	}
	return u, nil
}

// Float64 converts the value to float64.
func (v Value) Float64() (float64, error) {
	if err := v.available(); err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	if err != nil {
		return 0, v.conversionError("float64", err)
	}
	return f, nil
}

// Bool converts the value to bool. Beyond strconv.ParseBool it accepts the
// usual configuration spellings yes/no and on/off, case-insensitively.
func (v Value) Bool() (bool, error) {
	if err := v.available(); err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(v.raw)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v.raw))
	if err != nil {
		return false, v.conversionError("bool", err)
	}
	return b, nil
}

// BoolOr converts to bool, falling back to def on missing keys or errors.
func (v Value) BoolOr(def bool) bool {
	b, err := v.Bool()
	if err != nil {
		return def
	}
	return b
}

// Duration converts the value using time.ParseDuration ("250ms", "1h30m").
func (v Value) Duration() (time.Duration, error) {
	if err := v.available(); err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(strings.TrimSpace(v.raw))
	if err != nil {
		return 0, v.conversionError("duration", err)
	}
	return d, nil
}

// Time converts the value using RFC 3339 layout.
func (v Value) Time() (time.Time, error) {
	if err := v.available(); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(v.raw))
	if err != nil {
		return time.Time{}, v.conversionError("time", err)
	}
	return t, nil
}

// StringSlice splits a comma-separated value, trimming whitespace around
// elements. Missing and null values yield an empty slice.
func (v Value) StringSlice() []string {
	if !v.found || v.null || strings.TrimSpace(v.raw) == "" {
		return nil
	}
	parts := strings.Split(v.raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// As converts the raw value into the type of target, which must be a non-nil
// pointer. Conversion is reflection-driven and covers all primitive kinds as
// well as time.Duration.
func (v Value) As(target any) error {
	if err := v.available(); err != nil {
		return err
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ErrTargetNotPointer
	}
	elem := rv.Elem()
	converted, err := cast.FromType(v.raw, elem.Type())
	if err != nil {
		return v.conversionError(elem.Type().String(), err)
	}
	elem.Set(reflect.ValueOf(converted))
	return nil
}

func (v Value) available() error {
	if !v.found {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, v.key)
	}
	if v.null {
		return fmt.Errorf("%w: %s", ErrValueNull, v.key)
	}
	return nil
}

func (v Value) conversionError(kind string, err error) error {
	return fmt.Errorf("%w: %s to %s: %w", ErrConversion, v.key, kind, err)
}
