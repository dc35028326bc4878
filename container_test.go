package registry_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/registry"
)

func TestContainer(t *testing.T) {
	t.Run("value and metadata", func(t *testing.T) {
		c := registry.NewContainer(42, map[string]any{"source": "test"})

		assert.Equal(t, 42, c.Value())
		assert.Equal(t, map[string]any{"source": "test"}, c.Metadata())
		assert.Equal(t, "test", c.GetMetadata("source", nil))
		assert.Equal(t, "fallback", c.GetMetadata("missing", "fallback"))
	})

	t.Run("metadata is isolated from the input map", func(t *testing.T) {
		meta := map[string]any{"k": 1}
		c := registry.NewContainer("v", meta)

		meta["k"] = 2
		meta["extra"] = true

		assert.Equal(t, 1, c.GetMetadata("k", nil))
		assert.Nil(t, c.GetMetadata("extra", nil))
	})

	t.Run("metadata is isolated from callers", func(t *testing.T) {
		c := registry.NewContainer("v", map[string]any{"k": 1})

		got := c.Metadata()
		got["k"] = 99

		assert.Equal(t, 1, c.GetMetadata("k", nil))
	})

	t.Run("nil metadata yields an empty map", func(t *testing.T) {
		c := registry.NewContainer("v", nil)

		assert.NotNil(t, c.Metadata())
		assert.Empty(t, c.Metadata())
	})

	t.Run("widen and narrow", func(t *testing.T) {
		var s fmt.Stringer = registry.GlobalScope
		c := registry.NewContainer(s, map[string]any{"k": "v"})

		wide := registry.Widen(c)
		assert.Equal(t, registry.GlobalScope, wide.Value())
		assert.Equal(t, "v", wide.GetMetadata("k", nil))

		narrow, err := registry.Narrow[fmt.Stringer](wide)
		require.NoError(t, err)
		assert.Equal(t, "global", narrow.Value().String())
		assert.Equal(t, "v", narrow.GetMetadata("k", nil))
	})

	t.Run("narrow to an unrelated type fails", func(t *testing.T) {
		wide := registry.Widen(registry.NewContainer(42, nil))

		_, err := registry.Narrow[string](wide)

		var mismatch registry.TypeMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, "int", mismatch.Actual.String())
	})
}

func TestLifetime(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "Singleton", registry.Singleton.String())
		assert.Equal(t, "Scoped", registry.Scoped.String())
		assert.Equal(t, "Transient", registry.Transient.String())
		assert.Equal(t, "Unknown(7)", registry.Lifetime(7).String())
	})

	t.Run("validity", func(t *testing.T) {
		assert.True(t, registry.Transient.IsValid())
		assert.False(t, registry.Lifetime(-1).IsValid())
		assert.False(t, registry.Lifetime(3).IsValid())
	})

	t.Run("parse", func(t *testing.T) {
		for in, want := range map[string]registry.Lifetime{
			"singleton": registry.Singleton,
			" Scoped ":  registry.Scoped,
			"TRANSIENT": registry.Transient,
		} {
			got, err := registry.ParseLifetime(in)
			require.NoError(t, err, in)
			assert.Equal(t, want, got, in)
		}

		_, err := registry.ParseLifetime("forever")
		var le registry.LifetimeError
		assert.True(t, errors.As(err, &le))
	})

	t.Run("text and json", func(t *testing.T) {
		text, err := registry.Scoped.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "Scoped", string(text))

		var l registry.Lifetime
		require.NoError(t, l.UnmarshalJSON([]byte(`"transient"`)))
		assert.Equal(t, registry.Transient, l)

		data, err := registry.Singleton.MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, `"Singleton"`, string(data))

		_, err = registry.Lifetime(9).MarshalText()
		assert.Error(t, err)
	})
}
