package feeders

import "context"

// MemoryFeeder serves literal key-value pairs. It is the building block for
// programmatic configuration and for test scenarios that accumulate data
// before constructing a config.
type MemoryFeeder struct {
	values Snapshot
	name   string
}

// NewMemoryFeeder creates a MemoryFeeder from the given pairs. The map is
// copied so later mutation of the argument does not leak into the feeder.
func NewMemoryFeeder(values map[string]string) *MemoryFeeder {
	snapshot := make(Snapshot, len(values))
	for k, v := range values {
		snapshot[k] = value(v)
	}
	return &MemoryFeeder{values: snapshot, name: "memory"}
}

// NewNamedMemoryFeeder creates a MemoryFeeder with an explicit name, useful
// when several in-memory layers are stacked.
func NewNamedMemoryFeeder(name string, values map[string]string) *MemoryFeeder {
	f := NewMemoryFeeder(values)
	f.name = name
	return f
}

// Set adds or replaces a single key. Takes effect on the next Feed.
func (m *MemoryFeeder) Set(key, val string) *MemoryFeeder {
	m.values[key] = value(val)
	return m
}

// SetNull records a key that is present but carries no value.
func (m *MemoryFeeder) SetNull(key string) *MemoryFeeder {
	m.values[key] = nil
	return m
}

// Name implements Feeder.
func (m *MemoryFeeder) Name() string { return m.name }

// Feed implements Feeder.
func (m *MemoryFeeder) Feed(_ context.Context) (Snapshot, error) {
	snapshot := make(Snapshot, len(m.values))
	for k, v := range m.values {
		snapshot[k] = v
	}
	return snapshot, nil
}
