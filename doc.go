// Package registry provides typed registries and a service registry that
// resolves interface types to implementation instances.
//
// # Overview
//
// Three registries share one minimal contract, Registry[K, V]:
//   - Store: an ordered, concurrency-safe key/value store
//   - HandlerRegistry: discriminator strings to handler implementation types
//   - ServiceRegistry: interface types to implementations, with Singleton,
//     Scoped and Transient lifetimes and declared dependencies
//
// # Handler Registry
//
// Record which type answers which discriminator:
//
//	handlers := registry.NewHandlerRegistry()
//	registry.RegisterHandler[*JSONHandler](handlers, "json")
//
//	t, err := handlers.Get("json") // reflect.Type of *JSONHandler
//
// # Service Registry
//
// Bind interface types to factories or ready instances, then resolve them:
//
//	services := registry.NewServiceRegistry()
//	registry.RegisterService[Logger](services, &ConsoleLogger{})
//	registry.RegisterService[UserStore](services,
//	    registry.Factory(func(deps registry.Dependencies) (any, error) {
//	        logger, err := registry.Dep[Logger](deps)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return NewUserStore(logger), nil
//	    }),
//	    registry.WithLifetime(registry.Scoped),
//	    registry.DependsOn(registry.TypeOf[Logger]()),
//	)
//
//	scope := registry.NewScope()
//	defer services.EndScope(scope)
//
//	store, err := registry.Resolve[UserStore](services, scope)
//	// store.Value() is the instance, store.Metadata() describes the resolution
//
// Dependencies are declared, not inferred: a factory receives the instances
// of the keys passed to DependsOn, in order.
//
// # Lifetimes
//
//   - Singleton: one instance, created on first resolution and cached until
//     Close or Unregister
//   - Scoped: one instance per scope, released by EndScope
//   - Transient: a new instance on every resolution
//
// A Singleton that depends, directly or through Transient bindings, on a
// Scoped binding keeps the Scoped instance of the scope it was first built
// in. Validate reports such graphs as a LifetimeConflictError, and so does
// resolution when the registry is created WithStrictLifetimes.
//
// # Multiple Implementations
//
// Registering a second implementation for a key adds an alternative.
// Resolution uses the first registered binding unless one was registered
// with AsDefault. GetRegistrationsByInterface lists every alternative.
//
// Instances bound directly, rather than through a factory, are stored as
// given. The typed helpers such as Get and Resolve report a
// TypeMismatchError when the value does not implement the requested type.
//
// # Modules and Decorators
//
// Group registrations into modules and install them together:
//
//	var StorageModule = registry.NewModule("storage",
//	    registry.Provide[Database](registry.Factory(newDatabase)),
//	    registry.DecorateWith[Database](withTracing),
//	)
//
//	if err := services.Install(StorageModule); err != nil {
//	    return err
//	}
//	if err := services.Validate(); err != nil {
//	    return err // missing bindings, cycles and lifetime conflicts
//	}
//
// Decorators run once per construction, before an instance is cached.
//
// # Disposal
//
// Cached instances implementing Disposable or DisposableWithContext are
// closed in reverse creation order by EndScope for scoped instances and by
// Close for everything still cached. SetDefault and Default hold a
// process-wide registry for code that cannot receive one explicitly.
//
// # Error Handling
//
// Errors are typed values matching sentinel errors with errors.Is:
//   - DuplicateKeyError (ErrDuplicateKey): identical binding registered twice
//   - KeyNotFoundError (ErrKeyNotFound): Get of an unbound key
//   - UnresolvedDependencyError (ErrUnresolvedDependency): resolution reached an unbound key
//   - CyclicDependencyError (ErrCyclicDependency): declared dependencies form a cycle
//   - InvalidBindingError (ErrInvalidBinding): malformed binding declaration
//   - LifetimeConflictError (ErrInvalidBinding): Singleton capturing a Scoped binding
//
// Errors returned by factories are passed through unchanged.
//
// # Thread Safety
//
// All registries are safe for concurrent use. Resolution never holds the
// binding lock while constructing, and concurrent first resolutions of a
// Singleton construct it exactly once.
package registry
