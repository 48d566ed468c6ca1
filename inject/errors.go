package inject

import "errors"

var (
	ErrServiceAlreadyRegistered = errors.New("service already registered")
	ErrServiceNotFound          = errors.New("service not found")
	ErrServiceIncompatible      = errors.New("service cannot be assigned to target")
	ErrRequiredServiceNotFound  = errors.New("required service not found for module")
	ErrTargetNotPointer         = errors.New("target must be a non-nil pointer")
	ErrModuleAlreadyRegistered  = errors.New("module already registered")
	ErrModuleDependencyMissing  = errors.New("module depends on non-existent module")
	ErrCircularDependency       = errors.New("circular dependency detected")
	ErrConfigSectionNotFound    = errors.New("config section not found")
	ErrNotInjectable            = errors.New("module does not accept injected services")
)
