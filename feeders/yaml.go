package feeders

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/saruyev/flexconfig/internal/flatmap"
)

// YAMLFeeder reads a YAML file and flattens nested mappings and sequences
// into colon-delimited keys.
type YAMLFeeder struct {
	Path string

	// Optional suppresses the error when the file does not exist.
	Optional bool
}

// NewYAMLFeeder creates a YAMLFeeder reading the given file.
func NewYAMLFeeder(path string) YAMLFeeder {
	return YAMLFeeder{Path: path}
}

// Name implements Feeder.
func (f YAMLFeeder) Name() string { return "yaml(" + f.Path + ")" }

// IsOptional implements OptionalFeeder.
func (f YAMLFeeder) IsOptional() bool { return f.Optional }

// Feed implements Feeder.
func (f YAMLFeeder) Feed(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDocument, f.Path, err)
	}

	return flatmap.Flatten(doc), nil
}
