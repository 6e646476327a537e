package serenity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateOrUpdate(t *testing.T) {
	registry := NewRegistry[*Conversation]()

	key, conv := registry.CreateOrUpdate("session-1", func() *Conversation {
		return &Conversation{ChatID: "chat-1"}
	}, nil)
	assert.Equal(t, "session-1", key)
	assert.Equal(t, "chat-1", conv.ChatID)
	assert.Equal(t, 1, registry.Len())

	// Existing entry: build must not run again, update runs on it.
	var updated bool
	key2, conv2 := registry.CreateOrUpdate("session-1", func() *Conversation {
		t.Fatal("build ran for an existing entry")
		return nil
	}, func(c *Conversation) {
		updated = true
		assert.Same(t, conv, c)
	})
	assert.Equal(t, key, key2)
	assert.Same(t, conv, conv2)
	assert.True(t, updated)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryGeneratesKeys(t *testing.T) {
	registry := NewRegistry[int]()

	key1, _ := registry.CreateOrUpdate("", func() int { return 1 }, nil)
	key2, _ := registry.CreateOrUpdate("", func() int { return 2 }, nil)

	require.NotEmpty(t, key1)
	require.NotEmpty(t, key2)
	assert.NotEqual(t, key1, key2)
	assert.Equal(t, 2, registry.Len())
}

func TestRegistryGetAndDestroy(t *testing.T) {
	registry := NewRegistry[string]()
	registry.CreateOrUpdate("k", func() string { return "v" }, nil)

	got, ok := registry.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	assert.True(t, registry.Destroy("k"))
	assert.False(t, registry.Destroy("k"))

	_, ok = registry.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry[int]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, _ := registry.CreateOrUpdate("", func() int { return 0 }, nil)
			registry.Get(key)
			registry.Destroy(key)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, registry.Len())
}
