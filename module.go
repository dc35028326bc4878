package registry

import "reflect"

// Module is a registration action. Modules group related registrations so
// they can be installed together.
type Module func(*ServiceRegistry) error

// NewModule creates a module with the given name from other modules.
// Modules run in order; the first failure stops the module and is wrapped
// in a ModuleError.
//
// Example:
//
//	var StorageModule = registry.NewModule("storage",
//	    registry.Provide[Database](NewDatabaseFactory(), registry.WithLifetime(registry.Singleton)),
//	    registry.Provide[UserStore](userStoreFactory,
//	        registry.WithLifetime(registry.Scoped),
//	        registry.DependsOn(registry.TypeOf[Database]()),
//	    ),
//	)
//
//	var AppModule = registry.NewModule("app",
//	    StorageModule,
//	    registry.Provide[Mailer](&SMTPMailer{}),
//	)
func NewModule(name string, modules ...Module) Module {
	return func(r *ServiceRegistry) error {
		for _, m := range modules {
			if m == nil {
				continue
			}

			if err := m(r); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// Provide creates a module that registers impl under the interface type T.
func Provide[T any](impl any, opts ...ServiceOption) Module {
	return func(r *ServiceRegistry) error {
		return r.RegisterService(TypeOf[T](), impl, opts...)
	}
}

// ProvideKey creates a module that registers impl under key.
func ProvideKey(key reflect.Type, impl any, opts ...ServiceOption) Module {
	return func(r *ServiceRegistry) error {
		return r.RegisterService(key, impl, opts...)
	}
}

// DecorateWith creates a module that adds a decorator for the interface type T.
func DecorateWith[T any](d Decorator) Module {
	return func(r *ServiceRegistry) error {
		return r.Decorate(TypeOf[T](), d)
	}
}

// Install runs modules against the registry in order and stops at the first
// failure. Registrations made before the failure are kept.
func (r *ServiceRegistry) Install(modules ...Module) error {
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m(r); err != nil {
			return err
		}
	}
	return nil
}
