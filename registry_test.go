package registry_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/registry"
)

func TestStore(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		s := registry.NewStore[string, int]()

		require.NoError(t, s.Register("a", 1))

		v, err := s.Get("a")
		require.NoError(t, err)
		assert.Equal(t, 1, v)
		assert.True(t, s.IsRegistered("a"))
	})

	t.Run("duplicate key fails", func(t *testing.T) {
		s := registry.NewStore[string, int]()
		require.NoError(t, s.Register("a", 1))

		err := s.Register("a", 2)
		require.Error(t, err)
		assert.True(t, registry.IsDuplicate(err))

		v, _ := s.Get("a")
		assert.Equal(t, 1, v, "original binding must be kept")
	})

	t.Run("missing key fails with suggestions", func(t *testing.T) {
		s := registry.NewStore[string, int]()
		require.NoError(t, s.Register("json", 1))
		require.NoError(t, s.Register("jsonl", 2))

		_, err := s.Get("jso")
		require.Error(t, err)
		assert.ErrorIs(t, err, registry.ErrKeyNotFound)

		var nf registry.KeyNotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "jso", nf.Key)
		assert.Contains(t, err.Error(), "Did you mean")
	})

	t.Run("keys keep insertion order", func(t *testing.T) {
		s := registry.NewStore[string, int]()
		for i, k := range []string{"c", "a", "b"} {
			require.NoError(t, s.Register(k, i))
		}

		assert.Equal(t, []string{"c", "a", "b"}, s.Keys())
		assert.Equal(t, 3, s.Len())
	})

	t.Run("keys returns a snapshot", func(t *testing.T) {
		s := registry.NewStore[string, int]()
		require.NoError(t, s.Register("a", 1))

		keys := s.Keys()
		keys[0] = "mutated"

		assert.Equal(t, []string{"a"}, s.Keys())
	})

	t.Run("unregister", func(t *testing.T) {
		s := registry.NewStore[string, int]()
		require.NoError(t, s.Register("a", 1))
		require.NoError(t, s.Register("b", 2))

		assert.True(t, s.Unregister("a"))
		assert.False(t, s.Unregister("a"))
		assert.False(t, s.IsRegistered("a"))
		assert.Equal(t, []string{"b"}, s.Keys())

		require.NoError(t, s.Register("a", 3), "key can be registered again")
	})

	t.Run("overwrite keeps position", func(t *testing.T) {
		s := registry.NewStore[string, int]()
		require.NoError(t, s.Register("a", 1))
		require.NoError(t, s.Register("b", 2))

		assert.True(t, s.Overwrite("a", 10))
		assert.False(t, s.Overwrite("c", 3))

		v, _ := s.Get("a")
		assert.Equal(t, 10, v)
		assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
	})

	t.Run("range stops early and may re-enter", func(t *testing.T) {
		s := registry.NewStore[string, int]()
		for i := range 5 {
			require.NoError(t, s.Register(fmt.Sprint(i), i))
		}

		var seen []int
		s.Range(func(k string, v int) bool {
			seen = append(seen, v)
			assert.True(t, s.IsRegistered(k))
			return v < 2
		})

		assert.Equal(t, []int{0, 1, 2}, seen)
	})

	t.Run("concurrent register and get", func(t *testing.T) {
		s := registry.NewStore[int, int]()

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Register(i, i*i))
			}()
			go func() {
				defer wg.Done()
				_ = s.Keys()
				_, _ = s.Get(i)
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, s.Len())
	})

	t.Run("satisfies Registry", func(t *testing.T) {
		var r registry.Registry[string, int] = registry.NewStore[string, int]()
		require.NoError(t, r.Register("x", 1))
		assert.True(t, r.Unregister("x"))
	})
}
