package inject

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ServiceRegistry holds named service instances and supports lookup by name
// or by implemented interface.
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{services: make(map[string]any)}
}

// Register adds a service under a unique name.
func (r *ServiceRegistry) Register(name string, service any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrServiceAlreadyRegistered, name)
	}
	r.services[name] = service
	return nil
}

// Lookup returns a service by name.
func (r *ServiceRegistry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}

// Names returns all registered service names, sorted.
func (r *ServiceRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ImplementorsOf scans the registry for services implementing the given
// interface type, returning their names sorted. This is the discovery
// mechanism behind interface-matched dependencies.
func (r *ServiceRegistry) ImplementorsOf(iface reflect.Type) []string {
	if iface == nil || iface.Kind() != reflect.Interface {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, svc := range r.services {
		if svc == nil {
			continue
		}
		if implementsInterface(reflect.TypeOf(svc), iface) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Assign copies the named service into target using the same compatibility
// rules as interface-matched injection: target may be a pointer to an
// interface the service implements, to the service's concrete type, or to
// its element type.
func (r *ServiceRegistry) Assign(name string, target any) error {
	svc, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return ErrTargetNotPointer
	}

	serviceType := reflect.TypeOf(svc)
	targetType := targetValue.Elem().Type()

	switch {
	case targetType.Kind() == reflect.Interface && serviceType.Implements(targetType):
		targetValue.Elem().Set(reflect.ValueOf(svc))
	case serviceType.AssignableTo(targetType):
		targetValue.Elem().Set(reflect.ValueOf(svc))
	case serviceType.Kind() == reflect.Ptr && serviceType.Elem().AssignableTo(targetType):
		targetValue.Elem().Set(reflect.ValueOf(svc).Elem())
	default:
		return fmt.Errorf("%w: service %q of type %s cannot be assigned to %s",
			ErrServiceIncompatible, name, serviceType, targetType)
	}
	return nil
}

// InjectFields fills exported struct fields of target tagged `inject:"name"`
// from the registry. An empty tag value matches by the field's interface
// type instead of by name.
func (r *ServiceRegistry) InjectFields(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrTargetNotPointer
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		tag, ok := fieldType.Tag.Lookup("inject")
		if !ok || !field.CanSet() {
			continue
		}

		if tag != "" {
			if err := r.Assign(tag, field.Addr().Interface()); err != nil {
				return fmt.Errorf("field %s: %w", fieldType.Name, err)
			}
			continue
		}

		// Tag without a name: match by the field's interface type.
		names := r.ImplementorsOf(fieldType.Type)
		if len(names) == 0 {
			return fmt.Errorf("%w: no service implements %s for field %s",
				ErrServiceNotFound, fieldType.Type, fieldType.Name)
		}
		if err := r.Assign(names[0], field.Addr().Interface()); err != nil {
			return fmt.Errorf("field %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

func implementsInterface(t, iface reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(iface) {
		return true
	}
	return t.Kind() == reflect.Ptr && t.Elem().Implements(iface)
}
