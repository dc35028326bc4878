package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/registry"
	"github.com/junioryono/registry/internal/testutil"
)

type (
	connection interface{ Close() error }
	session    interface{ Close() error }
	tracer     interface {
		Close(ctx context.Context) error
	}
)

func TestScope(t *testing.T) {
	t.Run("new scopes are unique", func(t *testing.T) {
		seen := make(map[registry.Scope]bool)
		for range 100 {
			s := registry.NewScope()
			require.NotEmpty(t, s)
			require.NotEqual(t, registry.GlobalScope, s)
			require.False(t, seen[s])
			seen[s] = true
		}
	})

	t.Run("context round trip", func(t *testing.T) {
		scope := registry.NewScope()
		ctx := registry.ContextWithScope(context.Background(), scope)

		got, ok := registry.ScopeFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, scope, got)

		_, ok = registry.ScopeFromContext(context.Background())
		assert.False(t, ok)

		_, ok = registry.ScopeFromContext(registry.ContextWithScope(context.Background(), ""))
		assert.False(t, ok, "empty scope is not a scope")
	})

	t.Run("registry context round trip", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		ctx := registry.ContextWithRegistry(context.Background(), r)

		got, ok := registry.RegistryFromContext(ctx)
		assert.True(t, ok)
		assert.Same(t, r, got)

		_, ok = registry.RegistryFromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("resolve from context", func(t *testing.T) {
		r, err := testutil.NewStackRegistry()
		require.NoError(t, err)

		scope := registry.NewScope()
		ctx := registry.ContextWithScope(context.Background(), scope)

		fromCtx, err := registry.ResolveFromContext[testutil.UserStore](ctx, r)
		require.NoError(t, err)
		direct := testutil.AssertResolvable[testutil.UserStore](t, r, scope)
		testutil.AssertSameInstance(t, fromCtx.Value(), direct)

		global, err := registry.ResolveFromContext[testutil.UserStore](context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, registry.GlobalScope, global.GetMetadata(registry.MetaScope, nil))
		testutil.AssertDifferentInstances(t, global.Value(), direct)
	})
}

func TestEndScope(t *testing.T) {
	newScopedRegistry := func(t *testing.T, rec *testutil.DisposalRecorder, closeErr error) *registry.ServiceRegistry {
		t.Helper()

		r := registry.NewServiceRegistry()
		require.NoError(t, registry.RegisterService[connection](r, registry.Factory(func(registry.Dependencies) (any, error) {
			return &testutil.DisposableService{Name: "connection", Recorder: rec, Err: closeErr}, nil
		}), registry.WithLifetime(registry.Scoped)))
		require.NoError(t, registry.RegisterService[session](r, registry.Factory(func(registry.Dependencies) (any, error) {
			return &testutil.DisposableService{Name: "session", Recorder: rec, Err: closeErr}, nil
		}), registry.WithLifetime(registry.Scoped), registry.DependsOn(registry.TypeOf[connection]())))
		return r
	}

	t.Run("disposes in reverse creation order", func(t *testing.T) {
		rec := &testutil.DisposalRecorder{}
		r := newScopedRegistry(t, rec, nil)

		scope := registry.NewScope()
		testutil.AssertResolvable[session](t, r, scope)

		require.NoError(t, r.EndScope(scope))
		assert.Equal(t, []string{"session", "connection"}, rec.Closed())
		assert.Empty(t, r.Scopes())
	})

	t.Run("other scopes are untouched", func(t *testing.T) {
		rec := &testutil.DisposalRecorder{}
		r := newScopedRegistry(t, rec, nil)

		ended, kept := registry.NewScope(), registry.NewScope()
		testutil.AssertResolvable[connection](t, r, ended)
		survivor := testutil.AssertResolvable[connection](t, r, kept)

		require.NoError(t, r.EndScope(ended))

		assert.Equal(t, []string{"connection"}, rec.Closed())
		assert.False(t, survivor.(*testutil.DisposableService).IsClosed())
		assert.Equal(t, []registry.Scope{kept}, r.Scopes())
	})

	t.Run("singletons are not disposed", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		svc := &testutil.DisposableService{Name: "singleton"}
		require.NoError(t, registry.RegisterService[connection](r, svc))

		scope := registry.NewScope()
		testutil.AssertResolvable[connection](t, r, scope)
		require.NoError(t, r.EndScope(scope))

		assert.False(t, svc.IsClosed())
	})

	t.Run("unknown scope is a no-op", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		assert.NoError(t, r.EndScope("never-used"))
	})

	t.Run("empty scope is rejected", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		assert.ErrorIs(t, r.EndScope(""), registry.ErrScopeEmpty)
	})

	t.Run("disposal failures are aggregated", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &testutil.DisposalRecorder{}
		r := newScopedRegistry(t, rec, boom)

		scope := registry.NewScope()
		testutil.AssertResolvable[session](t, r, scope)

		err := r.EndScope(scope)

		var de registry.DisposalError
		require.True(t, errors.As(err, &de))
		assert.Len(t, de.Errors, 2)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"session", "connection"}, rec.Closed(), "every instance is closed despite failures")
	})

	t.Run("context disposal receives the context", func(t *testing.T) {
		r := registry.NewServiceRegistry()
		svc := &testutil.ContextDisposableService{Name: "tracer"}
		require.NoError(t, registry.RegisterService[tracer](r, registry.Factory(func(registry.Dependencies) (any, error) {
			return svc, nil
		}), registry.WithLifetime(registry.Scoped)))

		scope := registry.NewScope()
		testutil.AssertResolvable[tracer](t, r, scope)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := r.EndScopeContext(ctx, scope)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Same(t, ctx, svc.Ctx)
	})

	t.Run("scope can be reused after it ends", func(t *testing.T) {
		rec := &testutil.DisposalRecorder{}
		r := newScopedRegistry(t, rec, nil)

		scope := registry.NewScope()
		first := testutil.AssertResolvable[connection](t, r, scope)
		require.NoError(t, r.EndScope(scope))
		second := testutil.AssertResolvable[connection](t, r, scope)

		testutil.AssertDifferentInstances(t, first, second)
		assert.False(t, second.(*testutil.DisposableService).IsClosed())
	})

	t.Run("stats track scopes", func(t *testing.T) {
		r := newScopedRegistry(t, nil, nil)

		s1, s2 := registry.NewScope(), registry.NewScope()
		testutil.AssertResolvable[session](t, r, s1)
		testutil.AssertResolvable[connection](t, r, s2)

		stats := r.Stats()
		assert.Equal(t, 2, stats.ActiveScopes)
		assert.Equal(t, 3, stats.ScopedCount)

		require.NoError(t, r.EndScope(s1))
		assert.Equal(t, 1, r.Stats().ActiveScopes)
		assert.Equal(t, int64(2), r.Stats().Evictions)
	})
}
