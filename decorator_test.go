package registry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/registry"
	"github.com/junioryono/registry/internal/testutil"
)

// prefixLogger prefixes every message before passing it on.
type prefixLogger struct {
	testutil.Logger
	prefix string
}

func (l *prefixLogger) Log(msg string) {
	l.Logger.Log(l.prefix + msg)
}

func withPrefix(prefix string) func(testutil.Logger) (testutil.Logger, error) {
	return func(inner testutil.Logger) (testutil.Logger, error) {
		return &prefixLogger{Logger: inner, prefix: prefix}, nil
	}
}

func TestDecorate(t *testing.T) {
	t.Run("wraps the constructed instance", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory)))
		require.NoError(t, registry.DecorateFunc(r, withPrefix("[app] ")))

		logger := testutil.AssertResolvable[testutil.Logger](t, r, registry.GlobalScope)
		logger.Log("started")

		assert.IsType(t, &prefixLogger{}, logger)
		assert.Equal(t, []string{"[app] started"}, logger.Messages())
	})

	t.Run("decorators nest in registration order", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory)))
		require.NoError(t, registry.DecorateFunc(r, withPrefix("inner:")))
		require.NoError(t, registry.DecorateFunc(r, withPrefix("outer:")))

		logger := testutil.AssertResolvable[testutil.Logger](t, r, registry.GlobalScope)
		logger.Log("x")

		assert.Equal(t, []string{"inner:outer:x"}, logger.Messages())
	})

	t.Run("cached instances are decorated once", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		var calls int
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory)))
		require.NoError(t, r.Decorate(loggerKey, func(instance any) (any, error) {
			calls++
			return instance, nil
		}))

		for range 3 {
			testutil.AssertResolvable[testutil.Logger](t, r, registry.GlobalScope)
		}
		assert.Equal(t, 1, calls)
	})

	t.Run("transient instances are decorated every time", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		var calls int
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory),
			registry.WithLifetime(registry.Transient)))
		require.NoError(t, r.Decorate(loggerKey, func(instance any) (any, error) {
			calls++
			return instance, nil
		}))

		for range 3 {
			testutil.AssertResolvable[testutil.Logger](t, r, registry.GlobalScope)
		}
		assert.Equal(t, 3, calls)
	})

	t.Run("decorated dependency is injected", func(t *testing.T) {
		r, err := testutil.NewStackRegistry()
		require.NoError(t, err)
		require.NoError(t, registry.DecorateFunc(r, withPrefix("db> ")))

		db := testutil.AssertResolvable[testutil.Database](t, r, registry.GlobalScope)
		db.Query("select 1")

		logger := testutil.AssertResolvable[testutil.Logger](t, r, registry.GlobalScope)
		assert.Equal(t, []string{"db> query: select 1"}, logger.Messages())
	})

	t.Run("failure is reported and nothing is cached", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		boom := errors.New("boom")
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory)))
		require.NoError(t, r.Decorate(loggerKey, func(any) (any, error) { return nil, boom }))

		_, err := r.ResolveService(loggerKey, registry.GlobalScope)

		var de registry.DecoratorError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, loggerKey, de.Key)
		assert.Equal(t, 0, de.Index)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, r.Stats().SingletonCount)
	})

	t.Run("nil result is rejected", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory)))
		require.NoError(t, r.Decorate(loggerKey, func(any) (any, error) { return nil, nil }))

		_, err := r.ResolveService(loggerKey, registry.GlobalScope)
		assert.ErrorIs(t, err, registry.ErrNilImplementation)
	})

	t.Run("typed decorator rejects foreign instances", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory)))
		require.NoError(t, r.Decorate(loggerKey, func(any) (any, error) { return "not a logger", nil }))
		require.NoError(t, registry.DecorateFunc(r, withPrefix("x")))

		_, err := r.ResolveService(loggerKey, registry.GlobalScope)

		var mismatch registry.TypeMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, "decorate", mismatch.Context)
	})

	t.Run("decorators survive unregister", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory)))
		require.NoError(t, registry.DecorateFunc(r, withPrefix("p:")))

		require.True(t, r.Unregister(loggerKey))
		require.NoError(t, r.RegisterService(loggerKey, registry.Factory(testutil.LoggerFactory)))

		logger := testutil.AssertResolvable[testutil.Logger](t, r, registry.GlobalScope)
		assert.IsType(t, &prefixLogger{}, logger)
	})

	t.Run("invalid decorators", func(t *testing.T) {
		r := registry.NewServiceRegistry()

		assert.ErrorIs(t, r.Decorate(nil, func(v any) (any, error) { return v, nil }), registry.ErrNilKey)
		assert.ErrorIs(t, r.Decorate(loggerKey, nil), registry.ErrInvalidBinding)

		require.NoError(t, r.Close())
		assert.ErrorIs(t, r.Decorate(loggerKey, func(v any) (any, error) { return v, nil }), registry.ErrRegistryClosed)
	})
}
