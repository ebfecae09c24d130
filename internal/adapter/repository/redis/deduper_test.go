package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryDeduper_FirstSeen(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	d := NewDeliveryDeduper(client)
	ctx := context.Background()

	first, err := d.FirstSeen(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.FirstSeen(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := d.FirstSeen(ctx, "evt-2", time.Hour)
	require.NoError(t, err)
	assert.True(t, other)

	assert.True(t, mr.Exists(d.prefix+"evt-1"))
}

func TestDeliveryDeduper_Expiry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	d := NewDeliveryDeduper(client)
	ctx := context.Background()

	_, err := d.FirstSeen(ctx, "evt-1", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	first, err := d.FirstSeen(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestDeliveryDeduper_Forget(t *testing.T) {
	client, _ := newTestRedisClient(t)
	defer client.Close()

	d := NewDeliveryDeduper(client)
	ctx := context.Background()

	_, err := d.FirstSeen(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	require.NoError(t, d.Forget(ctx, "evt-1"))

	first, err := d.FirstSeen(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestDeliveryDeduper_ServerDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()

	mr.Close()

	_, err := NewDeliveryDeduper(client).FirstSeen(context.Background(), "evt-1", time.Hour)
	assert.Error(t, err)
}
