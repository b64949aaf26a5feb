// Package lock provides the per-actor in-flight guard that stops one user
// from running two hold attempts on the same row at the same time.
package lock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by Acquire when the key is already taken.
var ErrHeld = errors.New("lock already held")

// Guard hands out short-lived exclusive keys.  The returned release func
// is safe to call more than once.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Key builds the guard key for an actor working on a row.
func Key(actor, row string) string {
	return "inflight:" + strings.ToLower(strings.TrimSpace(actor)) + ":" + strings.ToUpper(strings.TrimSpace(row))
}

// Local is an in-process Guard backed by a mutex-protected set.
type Local struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewLocal() *Local { return &Local{busy: make(map[string]struct{})} }

func (l *Local) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[key]; ok {
		return nil, ErrHeld
	}
	l.busy[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.busy, key)
			l.mu.Unlock()
		})
	}, nil
}

// Redis is a Guard shared by every instance through SET NX with a TTL.
// The TTL frees keys left behind by a crashed instance.  Each key holds a
// random token and release only deletes the key while it still holds that
// token, so an attempt that outlived its TTL cannot free a newer one.
type Redis struct {
	rdb   *redis.Client
	ttl   time.Duration
	token func() string
}

// releaseIfOwner deletes KEYS[1] only when its value is ARGV[1].
var releaseIfOwner = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl, token: uuid.NewString}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	tok := r.token()
	ok, err := r.rdb.SetNX(ctx, key, tok, r.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// the request context may be gone by now
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseIfOwner.Run(ctx, r.rdb, []string{key}, tok).Err()
		})
	}, nil
}
