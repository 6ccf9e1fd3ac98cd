package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/ports"
)

const keyPrefix = "postrella:lock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a single-instance SET NX lock.
type RedisLock struct {
	client redis.UniversalClient
}

var _ ports.SweepLock = (*RedisLock)(nil)

func NewRedisLock(client redis.UniversalClient) *RedisLock {
	return &RedisLock{client: client}
}

// Acquire takes the named lock for ttl or returns domain.ErrSweepInProgress.
func (l *RedisLock) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrSweepInProgress
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		return nil
	}
	return release, nil
}

// Local serializes sweeps inside one process. It is used when no Redis
// address is configured.
type Local struct {
	mu   sync.Mutex
	held map[string]uint64
	seq  uint64
}

var _ ports.SweepLock = (*Local)(nil)

func NewLocal() *Local {
	return &Local{held: map[string]uint64{}}
}

func (l *Local) Acquire(_ context.Context, name string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[name]; busy {
		return nil, domain.ErrSweepInProgress
	}
	l.seq++
	token := l.seq
	l.held[name] = token

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[name] == token {
			delete(l.held, name)
		}
		return nil
	}
	return release, nil
}
