package registry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
)

// Config holds the Redis connection and key lifetime settings.
type Config struct {
	Address           string
	Password          string
	DB                int
	Prefix            string
	HeartbeatInterval time.Duration
	KeyTTL            time.Duration
}

const statusTTL = 24 * time.Hour

// Redis key patterns:
// {prefix}:stream:{stream_id}:viewers   STRING<count>  - concurrent viewers, refreshed by heartbeat
// {prefix}:stream:{stream_id}:status    HASH           - status, updated_by, updated_at
// {prefix}:online                       SET<user_id>   - users online on this instance
// {prefix}:online:{user_id}             STRING         - liveness marker, refreshed by heartbeat
// {prefix}:presence                     HASH           - user_id -> last announced status

type RedisMirror struct {
	client            *redis.Client
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration

	mu      sync.RWMutex
	viewers map[string]int      // stream id -> last mirrored count
	online  map[string]struct{} // user ids online here
	cancel  context.CancelFunc
}

func NewRedisMirror(cfg Config) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisMirror(client, cfg), nil
}

func newRedisMirror(client *redis.Client, cfg Config) *RedisMirror {
	ttl := cfg.KeyTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = ttl / 3
	}
	return &RedisMirror{
		client:            client,
		prefix:            cfg.Prefix,
		keyTTL:            ttl,
		heartbeatInterval: interval,
		viewers:           make(map[string]int),
		online:            make(map[string]struct{}),
	}
}

func (r *RedisMirror) viewersKey(streamID string) string {
	return fmt.Sprintf("%s:stream:%s:viewers", r.prefix, streamID)
}

func (r *RedisMirror) statusKey(streamID string) string {
	return fmt.Sprintf("%s:stream:%s:status", r.prefix, streamID)
}

func (r *RedisMirror) onlineKey() string {
	return r.prefix + ":online"
}

func (r *RedisMirror) userKey(userID string) string {
	return fmt.Sprintf("%s:online:%s", r.prefix, userID)
}

func (r *RedisMirror) presenceKey() string {
	return r.prefix + ":presence"
}

func (r *RedisMirror) SetViewers(ctx context.Context, streamID string, count int) error {
	key := r.viewersKey(streamID)

	if count <= 0 {
		r.mu.Lock()
		delete(r.viewers, streamID)
		r.mu.Unlock()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear viewers: %w", err)
		}
		return nil
	}

	r.mu.Lock()
	r.viewers[streamID] = count
	r.mu.Unlock()

	if err := r.client.Set(ctx, key, strconv.Itoa(count), r.keyTTL).Err(); err != nil {
		return fmt.Errorf("failed to set viewers: %w", err)
	}
	return nil
}

func (r *RedisMirror) SetStreamStatus(ctx context.Context, streamID, status, updatedBy string) error {
	key := r.statusKey(streamID)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"status":     status,
		"updated_by": updatedBy,
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, statusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set stream status: %w", err)
	}
	return nil
}

func (r *RedisMirror) UserOnline(ctx context.Context, userID string) error {
	r.mu.Lock()
	r.online[userID] = struct{}{}
	r.mu.Unlock()

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.onlineKey(), userID)
	pipe.Set(ctx, r.userKey(userID), "1", r.keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark user online: %w", err)
	}
	return nil
}

func (r *RedisMirror) UserOffline(ctx context.Context, userID string) error {
	r.mu.Lock()
	delete(r.online, userID)
	r.mu.Unlock()

	pipe := r.client.TxPipeline()
	pipe.SRem(ctx, r.onlineKey(), userID)
	pipe.Del(ctx, r.userKey(userID))
	pipe.HDel(ctx, r.presenceKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark user offline: %w", err)
	}
	return nil
}

func (r *RedisMirror) SetUserStatus(ctx context.Context, userID, status string) error {
	if err := r.client.HSet(ctx, r.presenceKey(), userID, status).Err(); err != nil {
		return fmt.Errorf("failed to set user status: %w", err)
	}
	return nil
}

func (r *RedisMirror) StartHeartbeat(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.heartbeatLoop(ctx)
	l := log.L()
	l.Info().Dur("interval", r.heartbeatInterval).Dur("ttl", r.keyTTL).Msg("presence mirror heartbeat started")
	return nil
}

func (r *RedisMirror) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshKeys(ctx)
		}
	}
}

func (r *RedisMirror) refreshKeys(ctx context.Context) {
	r.mu.RLock()
	viewers := make(map[string]int, len(r.viewers))
	for id, n := range r.viewers {
		viewers[id] = n
	}
	users := make([]string, 0, len(r.online))
	for id := range r.online {
		users = append(users, id)
	}
	r.mu.RUnlock()

	pipe := r.client.Pipeline()
	for id, n := range viewers {
		pipe.Set(ctx, r.viewersKey(id), strconv.Itoa(n), r.keyTTL)
	}
	for _, id := range users {
		pipe.Set(ctx, r.userKey(id), "1", r.keyTTL)
	}
	if len(viewers)+len(users) == 0 {
		return
	}
	if _, err := pipe.Exec(ctx); err != nil {
		l := log.L()
		l.Error().Err(err).Int("keys", len(viewers)+len(users)).Msg("failed to refresh presence keys")
	}
}

func (r *RedisMirror) StopHeartbeat() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *RedisMirror) Close() error {
	r.StopHeartbeat()
	return r.client.Close()
}
