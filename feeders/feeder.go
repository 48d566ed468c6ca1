// Package feeders provides configuration feeders that load flat key-value
// snapshots from various sources: in-memory maps, environment variables,
// .env, JSON, YAML and TOML files, and remote HTTP endpoints.
//
// Every feeder produces a Snapshot keyed by colon-delimited hierarchical
// paths ("Database:ConnectionString"). Feeders are combined by the builder
// in registration order; later feeders override earlier ones.
package feeders

import (
	"context"

	"github.com/saruyev/flexconfig/internal/flatmap"
)

// Separator is the hierarchical key separator used in snapshot keys.
const Separator = flatmap.Separator

// Snapshot is a flat view of configuration data. A nil value marks a key that
// is present but explicitly null.
type Snapshot = map[string]*string

// Feeder loads a configuration snapshot from a single source.
type Feeder interface {
	// Name identifies the feeder in logs and change events.
	Name() string

	// Feed loads the current snapshot. Implementations must be safe to call
	// repeatedly: reload re-feeds every registered feeder.
	Feed(ctx context.Context) (Snapshot, error)
}

// OptionalFeeder marks a feeder whose failures are tolerated. The builder
// skips the layer and logs a warning instead of failing the build.
type OptionalFeeder interface {
	Feeder
	IsOptional() bool
}

func value(s string) *string {
	return &s
}
