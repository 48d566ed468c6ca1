package inject

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/saruyev/flexconfig"
)

// Application is the module container contract. It exposes the underlying
// configuration, the service registry and the module lifecycle.
type Application interface {
	Config() *flexconfig.FlexConfig
	Logger() flexconfig.Logger

	RegisterModule(module Module) error
	RegisterConfigSection(name string, target any) error
	ConfigSection(name string) (any, error)

	RegisterService(name string, service any) error
	GetService(name string, target any) error
	Registry() *ServiceRegistry

	Init() error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// StdApplication is the standard Application implementation.
type StdApplication struct {
	cfg      *flexconfig.FlexConfig
	logger   flexconfig.Logger
	registry *ServiceRegistry

	mu       sync.Mutex
	modules  map[string]Module
	sections map[string]any
	order    []string
	started  []string
	inited   bool
}

// NewStdApplication creates an application bound to a configuration. The
// config's logger is reused for container logging.
func NewStdApplication(cfg *flexconfig.FlexConfig) *StdApplication {
	app := &StdApplication{
		cfg:      cfg,
		logger:   cfg.Logger(),
		registry: NewServiceRegistry(),
		modules:  make(map[string]Module),
		sections: make(map[string]any),
	}

	// Typed sections stay current across reloads.
	cfg.OnChange(func(version uint64) {
		app.rebindSections(version)
	})
	return app
}

// Config returns the application configuration.
func (app *StdApplication) Config() *flexconfig.FlexConfig { return app.cfg }

// Logger returns the application logger.
func (app *StdApplication) Logger() flexconfig.Logger { return app.logger }

// Registry returns the service registry.
func (app *StdApplication) Registry() *ServiceRegistry { return app.registry }

// RegisterModule adds a module. Must be called before Init.
func (app *StdApplication) RegisterModule(module Module) error {
	app.mu.Lock()
	defer app.mu.Unlock()
	if _, exists := app.modules[module.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrModuleAlreadyRegistered, module.Name())
	}
	app.modules[module.Name()] = module
	app.logger.Debug("registered module", "module", module.Name())
	return nil
}

// RegisterConfigSection binds the named configuration section into target, a
// pointer to struct. The section is decoded immediately and re-decoded after
// every reload that changed data.
func (app *StdApplication) RegisterConfigSection(name string, target any) error {
	if err := app.cfg.Section(name).Unmarshal(target, nil); err != nil {
		return fmt.Errorf("bind config section %q: %w", name, err)
	}
	app.mu.Lock()
	defer app.mu.Unlock()
	app.sections[name] = target
	return nil
}

// ConfigSection returns the bound target of a previously registered section.
func (app *StdApplication) ConfigSection(name string) (any, error) {
	app.mu.Lock()
	defer app.mu.Unlock()
	target, ok := app.sections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigSectionNotFound, name)
	}
	return target, nil
}

func (app *StdApplication) rebindSections(version uint64) {
	app.mu.Lock()
	sections := make(map[string]any, len(app.sections))
	for name, target := range app.sections {
		sections[name] = target
	}
	app.mu.Unlock()

	for name, target := range sections {
		if err := app.cfg.Section(name).Unmarshal(target, nil); err != nil {
			app.logger.Error("rebinding config section after reload failed",
				"section", name, "version", version, "error", err)
		}
	}
}

// RegisterService adds a service to the registry.
func (app *StdApplication) RegisterService(name string, service any) error {
	if err := app.registry.Register(name, service); err != nil {
		return err
	}
	app.logger.Debug("registered service", "name", name, "type", reflect.TypeOf(service))
	return nil
}

// GetService copies the named service into target; see ServiceRegistry.Assign.
func (app *StdApplication) GetService(name string, target any) error {
	return app.registry.Assign(name, target)
}

// Init registers module configurations, resolves initialization order and
// initializes every module, injecting required services and collecting
// provided ones. Module callbacks run outside the application mutex so they
// may call back into RegisterConfigSection, ConfigSection and the service
// methods.
func (app *StdApplication) Init() error {
	app.mu.Lock()
	if app.inited {
		app.mu.Unlock()
		return nil
	}
	modules := app.snapshotModules()
	app.mu.Unlock()

	for name, module := range modules {
		configurable, ok := module.(Configurable)
		if !ok {
			continue
		}
		if err := configurable.RegisterConfig(app); err != nil {
			return fmt.Errorf("register config for module %s: %w", name, err)
		}
	}

	order, err := app.resolveDependencies(modules)
	if err != nil {
		return err
	}

	for _, name := range order {
		module := modules[name]

		if err := app.injectServices(module); err != nil {
			return fmt.Errorf("inject services for module %s: %w", name, err)
		}

		if err := module.Init(app); err != nil {
			return fmt.Errorf("initialize module %s: %w", name, err)
		}

		if aware, ok := module.(ServiceAware); ok {
			for _, provided := range aware.ProvidesServices() {
				if err := app.registry.Register(provided.Name, provided.Instance); err != nil {
					return fmt.Errorf("module %s: %w", name, err)
				}
			}
		}

		app.logger.Info("initialized module", "module", name)
	}

	app.mu.Lock()
	app.order = order
	app.inited = true
	app.mu.Unlock()
	return nil
}

// Start starts modules implementing Startable in initialization order.
// Module Start callbacks run outside the application mutex.
func (app *StdApplication) Start(ctx context.Context) error {
	app.mu.Lock()
	order := append([]string(nil), app.order...)
	modules := app.snapshotModules()
	app.mu.Unlock()

	for _, name := range order {
		startable, ok := modules[name].(Startable)
		if !ok {
			continue
		}
		if err := startable.Start(ctx); err != nil {
			return fmt.Errorf("start module %s: %w", name, err)
		}
		app.mu.Lock()
		app.started = append(app.started, name)
		app.mu.Unlock()
		app.logger.Info("started module", "module", name)
	}
	return nil
}

// Stop stops started modules in reverse order, collecting the first error.
// Module Stop callbacks run outside the application mutex.
func (app *StdApplication) Stop(ctx context.Context) error {
	app.mu.Lock()
	started := app.started
	app.started = nil
	modules := app.snapshotModules()
	app.mu.Unlock()

	var firstErr error
	for i := len(started) - 1; i >= 0; i-- {
		name := started[i]
		stoppable, ok := modules[name].(Stoppable)
		if !ok {
			continue
		}
		if err := stoppable.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop module %s: %w", name, err)
		}
	}
	return firstErr
}

// snapshotModules copies the module map. Callers must hold app.mu.
func (app *StdApplication) snapshotModules() map[string]Module {
	modules := make(map[string]Module, len(app.modules))
	for name, module := range app.modules {
		modules[name] = module
	}
	return modules
}

func (app *StdApplication) injectServices(module Module) error {
	aware, ok := module.(ServiceAware)
	if !ok {
		// Field injection still applies to plain modules.
		return app.injectFields(module)
	}

	for _, dep := range aware.RequiresServices() {
		name := dep.Name
		if dep.MatchByInterface {
			matches := app.registry.ImplementorsOf(dep.SatisfiesInterface)
			if len(matches) == 0 {
				if dep.Required {
					return fmt.Errorf("%w: no service implements %s",
						ErrRequiredServiceNotFound, dep.SatisfiesInterface)
				}
				continue
			}
			name = matches[0]
		}

		svc, found := app.registry.Lookup(name)
		if !found {
			if dep.Required {
				return fmt.Errorf("%w: %s", ErrRequiredServiceNotFound, dep.Name)
			}
			continue
		}

		injectable, ok := module.(InjectableModule)
		if !ok {
			return fmt.Errorf("%w: %s requires %s", ErrNotInjectable, module.Name(), dep.Name)
		}
		if err := injectable.InjectService(dep.Name, svc); err != nil {
			return err
		}
	}

	return app.injectFields(module)
}

func (app *StdApplication) injectFields(module Module) error {
	v := reflect.ValueOf(module)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	return app.registry.InjectFields(module)
}

// resolveDependencies orders modules so dependencies initialize first.
// Explicit dependencies come from DependencyAware; implicit ones from
// matching provided service names against required ones.
func (app *StdApplication) resolveDependencies(modules map[string]Module) ([]string, error) {
	graph := make(map[string][]string, len(modules))
	providers := make(map[string]string)

	for name, module := range modules {
		graph[name] = nil
		if aware, ok := module.(DependencyAware); ok {
			graph[name] = append(graph[name], aware.Dependencies()...)
		}
		if aware, ok := module.(ServiceAware); ok {
			for _, svc := range aware.ProvidesServices() {
				providers[svc.Name] = name
			}
		}
	}

	for name, module := range modules {
		aware, ok := module.(ServiceAware)
		if !ok {
			continue
		}
		for _, dep := range aware.RequiresServices() {
			if provider, found := providers[dep.Name]; found && provider != name {
				graph[name] = append(graph[name], provider)
			}
		}
	}

	var order []string
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(string) error
	visit = func(node string) error {
		if visiting[node] {
			return fmt.Errorf("%w: %s", ErrCircularDependency, node)
		}
		if visited[node] {
			return nil
		}
		visiting[node] = true
		for _, dep := range graph[node] {
			if _, exists := modules[dep]; !exists {
				return fmt.Errorf("%w: %s depends on %s", ErrModuleDependencyMissing, node, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[node] = false
		visited[node] = true
		order = append(order, node)
		return nil
	}

	for node := range graph {
		if err := visit(node); err != nil {
			return nil, err
		}
	}

	app.logger.Debug("module initialization order", "order", order)
	return order, nil
}
