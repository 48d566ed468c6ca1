// Package inject integrates flexconfig with a lightweight module container:
// modules register typed configuration sections, declare the services they
// provide and require, and are initialized in dependency order with
// reflection-based service injection.
package inject

import (
	"context"
	"reflect"
)

// Module is a registrable component. Name must be unique within the
// application; Init runs after configuration sections are bound.
type Module interface {
	Name() string
	Init(app Application) error
}

// Configurable is implemented by modules that bind a configuration section.
// RegisterConfig runs before any module's Init, so sections are populated by
// the time initialization starts.
type Configurable interface {
	RegisterConfig(app Application) error
}

// DependencyAware modules declare other modules they must initialize after.
type DependencyAware interface {
	Dependencies() []string
}

// ServiceAware modules provide named services to the registry and require
// services from it.
type ServiceAware interface {
	ProvidesServices() []ServiceProvider
	RequiresServices() []ServiceDependency
}

// Startable modules are started after all modules initialized, in
// initialization order.
type Startable interface {
	Start(ctx context.Context) error
}

// Stoppable modules are stopped in reverse initialization order.
type Stoppable interface {
	Stop(ctx context.Context) error
}

// ServiceProvider describes one service a module contributes.
type ServiceProvider struct {
	Name        string
	Description string
	Instance    any
}

// ServiceDependency describes one service a module requires. A dependency is
// matched by name, or by interface when MatchByInterface is set, in which
// case the registry is scanned for any service implementing
// SatisfiesInterface.
type ServiceDependency struct {
	Name               string
	Required           bool
	MatchByInterface   bool
	SatisfiesInterface reflect.Type
}

// InjectableModule is implemented by modules that receive matched services.
// The container calls InjectService once per resolved dependency before Init.
type InjectableModule interface {
	InjectService(name string, service any) error
}
