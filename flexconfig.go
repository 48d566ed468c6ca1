// Package flexconfig provides layered configuration access with hierarchical
// key navigation, type conversion and reload support.
//
// Configuration data is merged from ordered feeders (in-memory values,
// environment variables, JSON/YAML/TOML files, remote endpoints, cloud
// providers) into a flat store keyed by colon-delimited paths. Keys are
// case-insensitive; later feeders override earlier ones.
//
// Basic usage:
//
//	cfg, err := flexconfig.NewBuilder().
//		AddYAMLFile("config.yaml").
//		AddEnv("MYAPP").
//		Build(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	dsn := cfg.Get("Database:ConnectionString").String()
//	port := cfg.Get("Server:Port").IntOr(8080)
package flexconfig

import (
	"context"
	"fmt"
	"sync"

	"github.com/saruyev/flexconfig/feeders"
)

// FlexConfig is the configuration facade. The zero value is not usable;
// construct instances through a Builder. All methods are safe for concurrent
// use, including during reloads.
type FlexConfig struct {
	store   *store
	feeders []feeders.Feeder
	logger  Logger

	// base is the section prefix; empty at the root. Sections share the
	// root's store and reload machinery.
	base string
	root *FlexConfig

	reloadMu sync.Mutex

	callbackMu sync.RWMutex
	onChange   map[uint64]func(version uint64)
	nextCbID   uint64

	observerMu sync.RWMutex
	observers  []Observer
}

// Get resolves a colon-delimited (or dotted) path relative to this section.
// Missing keys return a zero Value; navigation never panics.
func (f *FlexConfig) Get(path string) Value {
	full := f.fullPath(path)
	e, ok := f.store.lookup(full)
	if !ok {
		return Value{key: full}
	}
	if e.value == nil {
		return Value{key: full, found: true, null: true}
	}
	return Value{key: full, found: true, raw: *e.value}
}

// Exists reports whether the path holds a value or has descendants.
func (f *FlexConfig) Exists(path string) bool {
	return f.store.exists(f.fullPath(path))
}

// Section returns a view rooted at the given path. Sections of absent paths
// are valid and empty; values written by later reloads become visible
// through existing sections.
func (f *FlexConfig) Section(path string) *FlexConfig {
	root := f.rootConfig()
	return &FlexConfig{
		store:  f.store,
		logger: f.logger,
		base:   normalizeJoin(f.base, path),
		root:   root,
	}
}

// Keys returns the immediate child key names of this section, sorted, in
// their original casing.
func (f *FlexConfig) Keys() []string {
	return f.store.children(f.base)
}

// Flat returns every key under this section relative to it. Intended for
// diagnostics and tests; values may be nil for explicit nulls.
func (f *FlexConfig) Flat() map[string]*string {
	return f.store.flat(f.base)
}

// Version returns the current change token. It increases on every reload
// that changed data.
func (f *FlexConfig) Version() uint64 {
	return f.store.currentVersion()
}

// Logger returns the configured logger.
func (f *FlexConfig) Logger() Logger {
	return f.logger
}

func (f *FlexConfig) fullPath(path string) string {
	return normalizeJoin(f.base, path)
}

func (f *FlexConfig) rootConfig() *FlexConfig {
	if f.root != nil {
		return f.root
	}
	return f
}

func normalizeJoin(base, path string) string {
	p := normalizeKeyPreserveCase(path)
	if base == "" {
		return p
	}
	if p == "" {
		return base
	}
	return base + Separator + p
}

// normalizeKeyPreserveCase converts dotted paths to colon form and trims
// stray separators without touching case; case folding happens in the store.
func normalizeKeyPreserveCase(path string) string {
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '.' {
			c = ':'
		}
		out = append(out, c)
	}
	s := string(out)
	for len(s) > 0 && s[0] == ':' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == ':' {
		s = s[:len(s)-1]
	}
	return s
}

// Reload re-feeds every registered feeder and atomically swaps the merged
// view. Optional feeders that fail keep their previous layer. Change
// callbacks and observers fire only when the merged data actually changed.
func (f *FlexConfig) Reload(ctx context.Context) error {
	root := f.rootConfig()
	root.reloadMu.Lock()
	defer root.reloadMu.Unlock()

	layers := make([]*layer, len(root.feeders))
	root.store.mu.RLock()
	previous := root.store.layers
	root.store.mu.RUnlock()

	for i, feeder := range root.feeders {
		snapshot, err := feeder.Feed(ctx)
		if err != nil {
			if isOptional(feeder) {
				root.logger.Warn("optional feeder failed during reload, keeping previous layer",
					"feeder", feeder.Name(), "error", err)
				if i < len(previous) {
					layers[i] = previous[i]
				} else {
					layers[i] = newLayer(feeder.Name(), nil)
				}
				continue
			}
			root.emitEvent(ctx, EventTypeReloadFailed, map[string]any{
				"feeder": feeder.Name(),
				"error":  err.Error(),
			})
			return fmt.Errorf("%w: %s: %w", ErrFeederFailed, feeder.Name(), err)
		}
		layers[i] = newLayer(feeder.Name(), snapshot)
	}

	changed := root.store.setLayers(layers)
	if !changed {
		root.logger.Debug("reload completed without changes")
		return nil
	}

	version := root.store.currentVersion()
	root.logger.Info("configuration reloaded", "version", version)
	root.emitEvent(ctx, EventTypeReloaded, map[string]any{"version": version})
	root.notifyChange(version)
	return nil
}

// OnChange registers a callback invoked after each reload that changed data.
// The returned cancel function removes the registration.
func (f *FlexConfig) OnChange(fn func(version uint64)) (cancel func()) {
	root := f.rootConfig()
	root.callbackMu.Lock()
	defer root.callbackMu.Unlock()
	if root.onChange == nil {
		root.onChange = make(map[uint64]func(uint64))
	}
	id := root.nextCbID
	root.nextCbID++
	root.onChange[id] = fn
	return func() {
		root.callbackMu.Lock()
		defer root.callbackMu.Unlock()
		delete(root.onChange, id)
	}
}

func (f *FlexConfig) notifyChange(version uint64) {
	f.callbackMu.RLock()
	callbacks := make([]func(uint64), 0, len(f.onChange))
	for _, cb := range f.onChange {
		callbacks = append(callbacks, cb)
	}
	f.callbackMu.RUnlock()

	for _, cb := range callbacks {
		cb(version)
	}
}

func isOptional(f feeders.Feeder) bool {
	opt, ok := f.(feeders.OptionalFeeder)
	return ok && opt.IsOptional()
}
