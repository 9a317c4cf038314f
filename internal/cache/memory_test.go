package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T, maxCost int64) *Memory {
	t.Helper()
	m, err := NewMemory(maxCost)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestMemory_SaveGet(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t, 0)

	_, ok, err := m.Get(ctx, "users:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Save(ctx, "users:abc", []byte(`{"primary":"users"}`), 0))

	data, ok, err := m.Get(ctx, "users:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"primary":"users"}`, string(data))

	require.NoError(t, m.Delete(ctx, "users:abc"))
	_, ok, _ = m.Get(ctx, "users:abc")
	assert.False(t, ok)
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t, 0)

	require.NoError(t, m.Save(ctx, "short", []byte("x"), 20*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, ok, _ := m.Get(ctx, "short")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemory_RejectsOversizedEntry(t *testing.T) {
	m := newMemory(t, 8)
	err := m.Save(context.Background(), "big", make([]byte, 64), 0)
	assert.Error(t, err)
}
