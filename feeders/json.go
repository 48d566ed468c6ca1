package feeders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/saruyev/flexconfig/internal/flatmap"
)

// JSONFeeder reads a JSON file and flattens nested objects and arrays into
// colon-delimited keys.
type JSONFeeder struct {
	Path string

	// Optional suppresses the error when the file does not exist.
	Optional bool
}

// NewJSONFeeder creates a JSONFeeder reading the given file.
func NewJSONFeeder(path string) JSONFeeder {
	return JSONFeeder{Path: path}
}

// Name implements Feeder.
func (f JSONFeeder) Name() string { return "json(" + f.Path + ")" }

// IsOptional implements OptionalFeeder.
func (f JSONFeeder) IsOptional() bool { return f.Optional }

// Feed implements Feeder.
func (f JSONFeeder) Feed(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDocument, f.Path, err)
	}

	return flatmap.Flatten(doc), nil
}
