package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()

	room, created := r.GetOrCreate("42", 2)
	require.NotNil(t, room)
	assert.True(t, created)
	assert.Equal(t, "42", room.ID)
	assert.Len(t, room.Slots, 2)
	assert.Equal(t, 2, room.Settings.MaxPlayers)

	again, created := r.GetOrCreate("42", 2)
	assert.False(t, created)
	assert.Same(t, room, again)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryGetAndDelete(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get("missing")
	assert.False(t, ok)

	r.GetOrCreate("42", 2)
	_, ok = r.Get("42")
	assert.True(t, ok)

	r.Delete("42")
	_, ok = r.Get("42")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryIDs(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("a", 2)
	r.GetOrCreate("b", 2)

	assert.ElementsMatch(t, []string{"a", "b"}, r.IDs())
}
