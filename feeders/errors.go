package feeders

import "errors"

// Feeder errors. Wrapped with file and position context where available.
var (
	ErrFileUnreadable      = errors.New("feeder: cannot read file")
	ErrMalformedDotEnvLine = errors.New("feeder: malformed .env line")
	ErrMalformedDocument   = errors.New("feeder: cannot parse document")
	ErrHTTPStatus          = errors.New("feeder: unexpected HTTP status")
	ErrHTTPRequest         = errors.New("feeder: request failed")
)
