package flexconfig

import "errors"

// Configuration errors.
var (
	ErrNoFeeders        = errors.New("no feeders registered")
	ErrFeederFailed     = errors.New("feeder failed")
	ErrKeyNotFound      = errors.New("key not found")
	ErrValueNull        = errors.New("value is null")
	ErrConversion       = errors.New("cannot convert value")
	ErrConfigNil        = errors.New("config is nil")
	ErrTargetNotPointer = errors.New("target must be a non-nil pointer")
	ErrTargetNotStruct  = errors.New("target must be a pointer to struct")

	// Binding and validation errors.
	ErrRequiredFieldMissing      = errors.New("required field is missing")
	ErrUnsupportedTypeForDefault = errors.New("unsupported type for default value")
	ErrDefaultValueParseError    = errors.New("failed to parse default value")
	ErrValidationFailed          = errors.New("config validation failed")

	// Reload errors.
	ErrWatcherClosed = errors.New("watcher is closed")
)
