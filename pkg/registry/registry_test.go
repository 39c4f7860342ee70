package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := NewBaseRegistry[string]()

	require.NoError(t, r.Register("a", "alpha"))
	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "alpha", v)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewBaseRegistry[int]()

	require.NoError(t, r.Register("x", 1))
	assert.Error(t, r.Register("x", 2))

	v, _ := r.Get("x")
	assert.Equal(t, 1, v, "duplicate registration must not overwrite")
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	r := NewBaseRegistry[int]()
	assert.Error(t, r.Register("", 1))
}

func TestNamesPreserveRegistrationOrder(t *testing.T) {
	r := NewBaseRegistry[int]()

	for i, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(name, i))
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Names())
	assert.Equal(t, []int{0, 1, 2}, r.List())
}

func TestRemove(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))

	require.NoError(t, r.Remove("a"))
	assert.Equal(t, []string{"b"}, r.Names())
	assert.Error(t, r.Remove("a"), "removing absent entry should fail")
}

func TestCountAndClear(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))

	assert.Equal(t, 2, r.Count())
	r.Clear()
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.Names())
}
