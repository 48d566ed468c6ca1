package feeders

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/saruyev/flexconfig/internal/flatmap"
)

// TOMLFeeder reads a TOML file and flattens nested tables and arrays into
// colon-delimited keys.
type TOMLFeeder struct {
	Path string

	// Optional suppresses the error when the file does not exist.
	Optional bool
}

// NewTOMLFeeder creates a TOMLFeeder reading the given file.
func NewTOMLFeeder(path string) TOMLFeeder {
	return TOMLFeeder{Path: path}
}

// Name implements Feeder.
func (f TOMLFeeder) Name() string { return "toml(" + f.Path + ")" }

// IsOptional implements OptionalFeeder.
func (f TOMLFeeder) IsOptional() bool { return f.Optional }

// Feed implements Feeder.
func (f TOMLFeeder) Feed(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDocument, f.Path, err)
	}

	return flatmap.Flatten(doc), nil
}
