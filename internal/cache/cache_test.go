package cache

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	first  struct{ n int }
	second struct{ n int }
	third  struct{ n int }
)

var (
	keyFirst  = reflect.TypeFor[*first]()
	keySecond = reflect.TypeFor[*second]()
	keyThird  = reflect.TypeFor[*third]()
)

func TestInstanceCache_Singletons(t *testing.T) {
	c := New()

	_, ok := c.Singleton(keyFirst)
	assert.False(t, ok)

	a := &first{n: 1}
	c.SetSingleton(keyFirst, a)
	c.SetSingleton(keySecond, &second{n: 2})

	got, ok := c.Singleton(keyFirst)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.True(t, c.HasSingleton(keySecond))

	stats := c.Statistics()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 2, stats.SingletonCount)
}

func TestInstanceCache_SetSingletonKeepsFirstPosition(t *testing.T) {
	c := New()
	c.SetSingleton(keyFirst, &first{n: 1})
	c.SetSingleton(keySecond, &second{})
	c.SetSingleton(keyFirst, &first{n: 2})

	entries := c.Clear()
	require.Len(t, entries, 2)
	assert.Equal(t, keyFirst, entries[0].Key)
	assert.Equal(t, 2, entries[0].Instance.(*first).n)
}

func TestInstanceCache_Scoped(t *testing.T) {
	c := New()

	_, ok := c.Scoped("s1", keyFirst)
	assert.False(t, ok)
	assert.Empty(t, c.ScopeIDs(), "lookups do not create scopes")

	a := &first{n: 1}
	stored, existed := c.GetOrSetScoped("s1", keyFirst, a)
	assert.Same(t, a, stored)
	assert.False(t, existed)

	stored, existed = c.GetOrSetScoped("s1", keyFirst, &first{n: 2})
	assert.Same(t, a, stored, "existing instance wins")
	assert.True(t, existed)

	got, ok := c.Scoped("s1", keyFirst)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = c.Scoped("s2", keyFirst)
	assert.False(t, ok)

	c.GetOrSetScoped("s2", keySecond, &second{})
	assert.Equal(t, []string{"s1", "s2"}, c.ScopeIDs())
	assert.Equal(t, 1, c.ScopeSize("s1"))
	assert.Equal(t, 0, c.ScopeSize("missing"))
}

func TestInstanceCache_ClearScope(t *testing.T) {
	c := New()
	c.GetOrSetScoped("s1", keyFirst, &first{})
	c.GetOrSetScoped("s1", keySecond, &second{})
	c.GetOrSetScoped("s1", keyThird, &third{})
	c.GetOrSetScoped("s2", keyFirst, &first{})

	entries := c.ClearScope("s1")

	require.Len(t, entries, 3)
	assert.Equal(t, []reflect.Type{keyFirst, keySecond, keyThird},
		[]reflect.Type{entries[0].Key, entries[1].Key, entries[2].Key})
	assert.Equal(t, []string{"s2"}, c.ScopeIDs())
	assert.Nil(t, c.ClearScope("s1"))
	assert.Equal(t, int64(3), c.Statistics().Evictions)
}

func TestInstanceCache_GetOrSetScopedAfterClear(t *testing.T) {
	c := New()
	stale := c.scope("s1")
	c.ClearScope("s1")

	_, _, ok := stale.getOrSet(keyFirst, &first{})
	assert.False(t, ok, "a cleared scope rejects writes")

	a := &first{n: 1}
	stored, existed := c.GetOrSetScoped("s1", keyFirst, a)
	assert.Same(t, a, stored)
	assert.False(t, existed)

	entries := c.ClearScope("s1")
	require.Len(t, entries, 1)
	assert.Same(t, a, entries[0].Instance)
}

func TestInstanceCache_GetOrSetScopedRacingClear(t *testing.T) {
	c := New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		stored  int
		cleared int
	)
	for i := range 200 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, existed := c.GetOrSetScoped("s1", keyFirst, &first{n: i}); !existed {
				mu.Lock()
				stored++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			n := len(c.ClearScope("s1"))
			mu.Lock()
			cleared += n
			mu.Unlock()
		}()
	}
	wg.Wait()
	cleared += len(c.ClearScope("s1"))

	assert.Equal(t, stored, cleared, "every stored instance is handed back by ClearScope")
}

func TestInstanceCache_Evict(t *testing.T) {
	c := New()
	c.SetSingleton(keyFirst, &first{})
	c.SetSingleton(keySecond, &second{})
	c.GetOrSetScoped("s1", keyFirst, &first{})
	c.GetOrSetScoped("s2", keyFirst, &first{})
	c.GetOrSetScoped("s2", keyThird, &third{})

	evicted := c.Evict(keyFirst)

	assert.Len(t, evicted, 3)
	assert.False(t, c.HasSingleton(keyFirst))
	assert.True(t, c.HasSingleton(keySecond))
	assert.Equal(t, 0, c.ScopeSize("s1"))
	assert.Equal(t, 1, c.ScopeSize("s2"))

	entries := c.ClearScope("s2")
	require.Len(t, entries, 1)
	assert.Equal(t, keyThird, entries[0].Key)

	assert.Empty(t, c.Evict(keyFirst))
}

func TestInstanceCache_Clear(t *testing.T) {
	c := New()
	c.SetSingleton(keyFirst, &first{})
	c.SetSingleton(keySecond, &second{})
	c.GetOrSetScoped("s1", keyThird, &third{})

	entries := c.Clear()

	assert.Len(t, entries, 2, "only singletons are returned")
	stats := c.Statistics()
	assert.Equal(t, 0, stats.SingletonCount)
	assert.Equal(t, 0, stats.ActiveScopes)
	assert.Equal(t, int64(3), stats.Evictions)
}

func TestInstanceCache_Concurrent(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	winners := make([]any, 100)
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			winners[i], _ = c.GetOrSetScoped("shared", keyFirst, &first{n: i})
			c.SetSingleton(keySecond, &second{n: i})
			_, _ = c.Singleton(keySecond)
			_ = c.Statistics()
		}()
	}
	wg.Wait()

	for _, w := range winners {
		assert.Same(t, winners[0], w)
	}
	assert.Equal(t, 1, c.ScopeSize("shared"))
	assert.Equal(t, 1, c.Statistics().SingletonCount)
}
