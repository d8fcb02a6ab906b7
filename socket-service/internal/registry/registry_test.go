package registry

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisMirror_Keys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	r := newRedisMirror(client, Config{Prefix: "jevah:socket", KeyTTL: 30 * time.Second})

	assert.Equal(t, "jevah:socket:stream:s1:viewers", r.viewersKey("s1"))
	assert.Equal(t, "jevah:socket:stream:s1:status", r.statusKey("s1"))
	assert.Equal(t, "jevah:socket:online", r.onlineKey())
	assert.Equal(t, "jevah:socket:online:u1", r.userKey("u1"))
	assert.Equal(t, "jevah:socket:presence", r.presenceKey())
	assert.Equal(t, 10*time.Second, r.heartbeatInterval)
}

func TestRedisMirror_TracksManagedKeysOnFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	r := newRedisMirror(client, Config{Prefix: "p"})
	ctx := context.Background()

	assert.Error(t, r.SetViewers(ctx, "s1", 3))
	assert.Error(t, r.UserOnline(ctx, "u1"))

	r.mu.RLock()
	assert.Equal(t, 3, r.viewers["s1"])
	assert.Contains(t, r.online, "u1")
	r.mu.RUnlock()

	assert.Error(t, r.SetViewers(ctx, "s1", 0))
	assert.Error(t, r.UserOffline(ctx, "u1"))

	r.mu.RLock()
	assert.NotContains(t, r.viewers, "s1")
	assert.NotContains(t, r.online, "u1")
	r.mu.RUnlock()
}

func TestNoop(t *testing.T) {
	var m PresenceMirror = Noop{}
	ctx := context.Background()
	assert.NoError(t, m.SetViewers(ctx, "s1", 1))
	assert.NoError(t, m.SetStreamStatus(ctx, "s1", "live", "u1"))
	assert.NoError(t, m.UserOnline(ctx, "u1"))
	assert.NoError(t, m.UserOffline(ctx, "u1"))
	assert.NoError(t, m.SetUserStatus(ctx, "u1", "away"))
	assert.NoError(t, m.StartHeartbeat(ctx))
	assert.NoError(t, m.Close())
}
