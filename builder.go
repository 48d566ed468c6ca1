package flexconfig

import (
	"context"
	"fmt"

	"github.com/saruyev/flexconfig/feeders"
)

// Builder accumulates feeders and constructs a FlexConfig. Feeders apply in
// registration order; a key provided by a later feeder overrides the same
// key from an earlier one.
type Builder struct {
	feeders   []feeders.Feeder
	logger    Logger
	pairs     *feeders.MemoryFeeder
	observers []Observer
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{logger: NopLogger{}}
}

// WithLogger sets the logger used by the config and its feeders.
func (b *Builder) WithLogger(logger Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithObserver registers a lifecycle event observer before the config is
// built, so it also receives the initial loaded event.
func (b *Builder) WithObserver(observer Observer) *Builder {
	if observer != nil {
		b.observers = append(b.observers, observer)
	}
	return b
}

// AddFeeder appends any feeder.
func (b *Builder) AddFeeder(f feeders.Feeder) *Builder {
	b.feeders = append(b.feeders, f)
	return b
}

// AddValue records a single key-value pair. All pairs added this way share
// one in-memory layer anchored at the position of the first AddValue call.
func (b *Builder) AddValue(key, value string) *Builder {
	if b.pairs == nil {
		b.pairs = feeders.NewNamedMemoryFeeder("values", nil)
		b.feeders = append(b.feeders, b.pairs)
	}
	b.pairs.Set(key, value)
	return b
}

// AddValues records multiple key-value pairs into the shared in-memory layer.
func (b *Builder) AddValues(values map[string]string) *Builder {
	for k, v := range values {
		b.AddValue(k, v)
	}
	return b
}

// AddJSONFile appends a JSON file feeder.
func (b *Builder) AddJSONFile(path string) *Builder {
	return b.AddFeeder(feeders.NewJSONFeeder(path))
}

// AddOptionalJSONFile appends a JSON file feeder that tolerates a missing file.
func (b *Builder) AddOptionalJSONFile(path string) *Builder {
	return b.AddFeeder(feeders.JSONFeeder{Path: path, Optional: true})
}

// AddYAMLFile appends a YAML file feeder.
func (b *Builder) AddYAMLFile(path string) *Builder {
	return b.AddFeeder(feeders.NewYAMLFeeder(path))
}

// AddOptionalYAMLFile appends a YAML file feeder that tolerates a missing file.
func (b *Builder) AddOptionalYAMLFile(path string) *Builder {
	return b.AddFeeder(feeders.YAMLFeeder{Path: path, Optional: true})
}

// AddTOMLFile appends a TOML file feeder.
func (b *Builder) AddTOMLFile(path string) *Builder {
	return b.AddFeeder(feeders.NewTOMLFeeder(path))
}

// AddDotEnvFile appends a .env file feeder.
func (b *Builder) AddDotEnvFile(path string) *Builder {
	return b.AddFeeder(feeders.NewDotEnvFeeder(path))
}

// AddEnv appends an environment variable feeder for the given prefix.
func (b *Builder) AddEnv(prefix string) *Builder {
	return b.AddFeeder(feeders.NewEnvFeeder(prefix))
}

// AddHTTP appends a remote JSON endpoint feeder.
func (b *Builder) AddHTTP(url string) *Builder {
	return b.AddFeeder(feeders.NewHTTPFeeder(url))
}

// Build loads every feeder and returns the merged configuration. Mandatory
// feeder failures abort the build; optional feeder failures are logged and
// their layer is left empty.
func (b *Builder) Build(ctx context.Context) (*FlexConfig, error) {
	if len(b.feeders) == 0 {
		return nil, ErrNoFeeders
	}

	cfg := &FlexConfig{
		store:     newStore(),
		feeders:   b.feeders,
		logger:    b.logger,
		observers: b.observers,
	}

	layers := make([]*layer, len(b.feeders))
	for i, feeder := range b.feeders {
		snapshot, err := feeder.Feed(ctx)
		if err != nil {
			if isOptional(feeder) {
				b.logger.Warn("skipping optional feeder", "feeder", feeder.Name(), "error", err)
				layers[i] = newLayer(feeder.Name(), nil)
				continue
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrFeederFailed, feeder.Name(), err)
		}
		layers[i] = newLayer(feeder.Name(), snapshot)
		b.logger.Debug("feeder loaded", "feeder", feeder.Name(), "keys", len(snapshot))
	}

	cfg.store.setLayers(layers)
	b.logger.Info("configuration built", "feeders", len(b.feeders))
	cfg.emitEvent(ctx, EventTypeLoaded, map[string]any{
		"feeders": len(b.feeders),
		"version": cfg.store.currentVersion(),
	})
	return cfg, nil
}
