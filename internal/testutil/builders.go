package testutil

import (
	"sync/atomic"
	"time"

	"github.com/junioryono/registry"
)

// Counter counts factory invocations.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() {
	c.n.Add(1)
}

func (c *Counter) Count() int {
	return int(c.n.Load())
}

// CountingFactory wraps newFn in a Factory that counts its invocations.
func CountingFactory(newFn func(registry.Dependencies) (any, error)) (registry.Factory, *Counter) {
	c := &Counter{}
	return func(d registry.Dependencies) (any, error) {
		c.Inc()
		return newFn(d)
	}, c
}

// SlowFactory returns a counting factory that sleeps for delay before
// constructing, which widens race windows in concurrency tests.
func SlowFactory(delay time.Duration, newFn func() any) (registry.Factory, *Counter) {
	return CountingFactory(func(registry.Dependencies) (any, error) {
		time.Sleep(delay)
		return newFn(), nil
	})
}

// FailingFactory returns a counting factory that always fails with ErrConstruction.
func FailingFactory() (registry.Factory, *Counter) {
	return CountingFactory(func(registry.Dependencies) (any, error) {
		return nil, ErrConstruction
	})
}

// LoggerFactory constructs a TestLogger.
func LoggerFactory(registry.Dependencies) (any, error) {
	return NewTestLogger(), nil
}

// DatabaseFactory constructs a TestDatabase from a declared Logger dependency.
func DatabaseFactory(d registry.Dependencies) (any, error) {
	logger, err := registry.Dep[Logger](d)
	if err != nil {
		return nil, err
	}
	return &TestDatabase{Logger: logger, Name: "db"}, nil
}

// UserStoreFactory constructs a TestUserStore from a declared Database dependency.
func UserStoreFactory(d registry.Dependencies) (any, error) {
	db, err := registry.Dep[Database](d)
	if err != nil {
		return nil, err
	}
	return &TestUserStore{DB: db, Scope: string(d.Scope())}, nil
}

// NewStackRegistry returns a registry with Logger (Singleton), Database
// (Singleton, depends on Logger) and UserStore (Scoped, depends on Database).
func NewStackRegistry(opts ...registry.Option) (*registry.ServiceRegistry, error) {
	r := registry.NewServiceRegistry(opts...)
	err := r.Install(
		registry.Provide[Logger](registry.Factory(LoggerFactory)),
		registry.Provide[Database](registry.Factory(DatabaseFactory),
			registry.DependsOn(registry.TypeOf[Logger]())),
		registry.Provide[UserStore](registry.Factory(UserStoreFactory),
			registry.WithLifetime(registry.Scoped),
			registry.DependsOn(registry.TypeOf[Database]())),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}
