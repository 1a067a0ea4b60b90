package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, prefix string) (*miniredis.Miniredis, RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := NewRedisAdapter(t.Name()+"-"+mr.Addr(), prefix, &Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	return mr, adapter
}

func TestNewRedisAdapter_CachedPerName(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := &Options{Addrs: []string{mr.Addr()}}

	first, err := NewRedisAdapter(t.Name(), "", opts)
	require.NoError(t, err)
	second, err := NewRedisAdapter(t.Name(), "other:", opts)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, GetRedis(t.Name()))
}

func TestNewRedisAdapter_Unreachable(t *testing.T) {
	_, err := NewRedisAdapter(t.Name(), "", &Options{
		Addrs:       []string{"127.0.0.1:1"},
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	assert.Error(t, err)
}

func TestKeyOperations_UsePrefix(t *testing.T) {
	mr, adapter := newTestAdapter(t, "app:")
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := mr.Get("app:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	val, err := adapter.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	ok, err := adapter.SetNX(ctx, "k", []byte("w"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := adapter.Exist(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, adapter.Del(ctx, "k"))
	_, err = adapter.Get(ctx, "k")
	assert.ErrorIs(t, err, NilError)

	ok, err = adapter.SetNX(ctx, "k", []byte("w"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPublish_ChannelIsNotPrefixed(t *testing.T) {
	_, adapter := newTestAdapter(t, "app:")
	ctx := context.Background()

	sub := adapter.Client().Subscribe(ctx, "news")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, adapter.Publish(ctx, "news", []byte("hello")))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "news", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestStreams(t *testing.T) {
	mr, adapter := newTestAdapter(t, "app:")
	ctx := context.Background()

	require.NoError(t, adapter.XGroupCreateMkStream(ctx, "jobs", "workers", "0"))
	require.NoError(t, adapter.XGroupCreateMkStream(ctx, "jobs", "workers", "0"), "existing group is not an error")
	assert.True(t, mr.Exists("app:jobs"))

	_, err := adapter.XReadGroup(ctx, "workers", "c1", "jobs", 10)
	assert.ErrorIs(t, err, NilError)

	id, err := adapter.XAdd(ctx, "jobs", map[string]interface{}{"data": "one"})
	require.NoError(t, err)

	n, err := adapter.XLen(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msgs, err := adapter.XReadGroup(ctx, "workers", "c1", "jobs", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "one", msgs[0].Values["data"])

	pending, err := adapter.XPending(ctx, "jobs", "workers", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c1", pending[0].Consumer)

	claimed, err := adapter.XClaim(ctx, "jobs", "workers", "c2", 0, id)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, adapter.XAck(ctx, "jobs", "workers", id))
	pending, err = adapter.XPending(ctx, "jobs", "workers", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
