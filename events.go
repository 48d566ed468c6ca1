package flexconfig

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is an alias for the CloudEvents Event type for convenience.
type CloudEvent = cloudevents.Event

// Configuration lifecycle event types emitted to registered observers.
const (
	EventTypeLoaded          = "com.flexconfig.config.loaded"
	EventTypeReloaded        = "com.flexconfig.config.reloaded"
	EventTypeReloadFailed    = "com.flexconfig.config.reload.failed"
	EventTypeSourceRefreshed = "com.flexconfig.source.refreshed"

	eventSource = "flexconfig"
)

// Observer receives configuration lifecycle events. Observer callbacks run
// synchronously on the reloading goroutine; long-running work should be
// dispatched elsewhere.
type Observer interface {
	OnConfigEvent(ctx context.Context, event CloudEvent) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event CloudEvent) error

// OnConfigEvent implements Observer.
func (f ObserverFunc) OnConfigEvent(ctx context.Context, event CloudEvent) error {
	return f(ctx, event)
}

// NewConfigEvent creates a CloudEvent in the standardized format used for
// configuration notifications.
func NewConfigEvent(eventType string, data any) CloudEvent {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(eventSource)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

// generateEventID returns a UUIDv7 identifier; v7 carries timestamp bits so
// event IDs sort in emission order. Falls back to v4 when v7 fails.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// RegisterObserver adds an observer for configuration lifecycle events.
func (f *FlexConfig) RegisterObserver(observer Observer) {
	root := f.rootConfig()
	root.observerMu.Lock()
	defer root.observerMu.Unlock()
	root.observers = append(root.observers, observer)
}

func (f *FlexConfig) emitEvent(ctx context.Context, eventType string, data any) {
	root := f.rootConfig()
	root.observerMu.RLock()
	observers := make([]Observer, len(root.observers))
	copy(observers, root.observers)
	root.observerMu.RUnlock()

	if len(observers) == 0 {
		return
	}

	event := NewConfigEvent(eventType, data)
	for _, observer := range observers {
		if err := observer.OnConfigEvent(ctx, event); err != nil {
			root.logger.Warn("config observer failed", "type", eventType, "error", err)
		}
	}
}
