package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValue_Idempotency(t *testing.T) {
	kv := NewKeyValue()
	ctx := context.Background()

	exists, _, err := kv.CheckAndSet(ctx, "k", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, val, err := kv.CheckAndSet(ctx, "k", nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "processing", string(val))

	require.NoError(t, kv.Update(ctx, "k", []byte("done"), time.Minute))
	_, val, err = kv.CheckAndSet(ctx, "k", nil, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "done", string(val))

	require.NoError(t, kv.Release(ctx, "k"))
	exists, _, err = kv.CheckAndSet(ctx, "k", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKeyValue_DeliveryExpiry(t *testing.T) {
	kv := NewKeyValue()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := kv.FirstSeen(ctx, "d1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = kv.FirstSeen(ctx, "d1", time.Minute)
	require.NoError(t, err)
	assert.False(t, first)

	now = now.Add(time.Minute)
	first, err = kv.FirstSeen(ctx, "d1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, kv.Forget(ctx, "d1"))
	first, err = kv.FirstSeen(ctx, "d1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
}
