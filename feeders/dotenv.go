package feeders

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// DotEnvFeeder reads a .env style file. Lines are KEY=VALUE pairs; blank
// lines and #-comments are skipped, an optional "export " prefix is
// tolerated, and single or double quotes around values are stripped. Double
// underscores in names map to the hierarchical separator, matching EnvFeeder.
type DotEnvFeeder struct {
	Path string

	// Optional suppresses the error when the file does not exist.
	Optional bool
}

// NewDotEnvFeeder creates a DotEnvFeeder reading the given file.
func NewDotEnvFeeder(path string) DotEnvFeeder {
	return DotEnvFeeder{Path: path}
}

// Name implements Feeder.
func (f DotEnvFeeder) Name() string { return "dotenv(" + f.Path + ")" }

// IsOptional implements OptionalFeeder.
func (f DotEnvFeeder) IsOptional() bool { return f.Optional }

// Feed implements Feeder.
func (f DotEnvFeeder) Feed(_ context.Context) (Snapshot, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}
	defer file.Close()

	snapshot := make(Snapshot)
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		text = strings.TrimPrefix(text, "export ")

		name, val, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %s line %d", ErrMalformedDotEnvLine, f.Path, line)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: %s line %d", ErrMalformedDotEnvLine, f.Path, line)
		}
		val = unquote(strings.TrimSpace(val))

		key := strings.ReplaceAll(name, "__", Separator)
		snapshot[key] = value(val)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}

	return snapshot, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
