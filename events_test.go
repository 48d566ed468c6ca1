package flexconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saruyev/flexconfig/feeders"
)

func TestNewConfigEvent(t *testing.T) {
	event := NewConfigEvent(EventTypeReloaded, map[string]any{"version": 2})

	assert.Equal(t, EventTypeReloaded, event.Type())
	assert.Equal(t, "flexconfig", event.Source())
	assert.False(t, event.Time().IsZero())

	id, err := uuid.Parse(event.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestBuilderObserverReceivesLoadedEvent(t *testing.T) {
	var types []string
	observer := ObserverFunc(func(_ context.Context, event CloudEvent) error {
		types = append(types, event.Type())
		return nil
	})

	memory := feeders.NewMemoryFeeder(map[string]string{"K": "1"})
	cfg, err := NewBuilder().
		WithObserver(observer).
		AddFeeder(memory).
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{EventTypeLoaded}, types)

	memory.Set("K", "2")
	require.NoError(t, cfg.Reload(context.Background()))
	assert.Equal(t, []string{EventTypeLoaded, EventTypeReloaded}, types)
}

func TestFailingObserverDoesNotAbortReload(t *testing.T) {
	memory := feeders.NewMemoryFeeder(map[string]string{"K": "1"})
	cfg, err := NewBuilder().AddFeeder(memory).Build(context.Background())
	require.NoError(t, err)

	var later int
	cfg.RegisterObserver(ObserverFunc(func(context.Context, CloudEvent) error {
		return errors.New("observer exploded")
	}))
	cfg.RegisterObserver(ObserverFunc(func(context.Context, CloudEvent) error {
		later++
		return nil
	}))

	memory.Set("K", "2")
	require.NoError(t, cfg.Reload(context.Background()))
	assert.Equal(t, 1, later, "observers after a failing one still run")
	assert.Equal(t, "2", cfg.Get("K").String())
}

func TestObserversRegisteredOnSectionReachRoot(t *testing.T) {
	memory := feeders.NewMemoryFeeder(map[string]string{"App:K": "1"})
	cfg, err := NewBuilder().AddFeeder(memory).Build(context.Background())
	require.NoError(t, err)

	var seen int
	cfg.Section("App").RegisterObserver(ObserverFunc(func(context.Context, CloudEvent) error {
		seen++
		return nil
	}))

	memory.Set("App:K", "2")
	require.NoError(t, cfg.Reload(context.Background()))
	assert.Equal(t, 1, seen)
}
