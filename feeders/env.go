package feeders

import (
	"context"
	"os"
	"strings"
)

// EnvFeeder reads environment variables into a snapshot. A double underscore
// in the variable name maps to the hierarchical separator, so
// DATABASE__CONNECTIONSTRING becomes DATABASE:CONNECTIONSTRING. Lookup on the
// store side is case-insensitive, so the upper-cased form matches keys from
// file sources.
type EnvFeeder struct {
	// Prefix restricts the feeder to variables starting with the prefix and
	// trims it from the resulting keys. Empty means all variables.
	Prefix string
}

// NewEnvFeeder creates an EnvFeeder for variables carrying the given prefix.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Name implements Feeder.
func (f EnvFeeder) Name() string {
	if f.Prefix == "" {
		return "env"
	}
	return "env(" + f.Prefix + ")"
}

// Feed implements Feeder.
func (f EnvFeeder) Feed(_ context.Context) (Snapshot, error) {
	prefix := strings.ToUpper(f.Prefix)
	snapshot := make(Snapshot)

	for _, pair := range os.Environ() {
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			if !strings.HasPrefix(strings.ToUpper(name), prefix) {
				continue
			}
			name = name[len(prefix):]
			name = strings.TrimPrefix(name, "_")
		}
		if name == "" {
			continue
		}
		key := strings.ReplaceAll(name, "__", Separator)
		snapshot[key] = value(val)
	}

	return snapshot, nil
}
