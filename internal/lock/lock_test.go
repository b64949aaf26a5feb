package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyNormalizes(t *testing.T) {
	assert.Equal(t, "inflight:me@example.org:AA", Key(" Me@Example.org", "aa "))
}

func TestLocalExclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrHeld)

	_, err = l.Acquire(ctx, "other")
	assert.NoError(t, err)

	release()
	release()
	again, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	again()
}

func TestLocalConcurrentSingleWinner(t *testing.T) {
	l := NewLocal()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Acquire(context.Background(), "k"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}

func newTestRedis(ttl time.Duration, tokens ...string) (*Redis, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	g := NewRedis(db, ttl)
	i := 0
	g.token = func() string {
		tok := tokens[i%len(tokens)]
		i++
		return tok
	}
	return g, mock
}

func TestRedisAcquireAndRelease(t *testing.T) {
	g, mock := newTestRedis(10*time.Second, "tok-1")

	mock.ExpectSetNX("inflight:a:B", "tok-1", 10*time.Second).SetVal(true)
	mock.ExpectEvalSha(releaseIfOwner.Hash(), []string{"inflight:a:B"}, "tok-1").SetVal(int64(1))

	release, err := g.Acquire(context.Background(), "inflight:a:B")
	require.NoError(t, err)
	release()
	release()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReleaseAfterExpiryLeavesNewOwner(t *testing.T) {
	g, mock := newTestRedis(time.Second, "first", "second")
	ctx := context.Background()

	mock.ExpectSetNX("k", "first", time.Second).SetVal(true)
	mock.ExpectSetNX("k", "second", time.Second).SetVal(true)
	// the key now holds "second"; the stale release deletes nothing
	mock.ExpectEvalSha(releaseIfOwner.Hash(), []string{"k"}, "first").SetVal(int64(0))

	stale, err := g.Acquire(ctx, "k")
	require.NoError(t, err)
	_, err = g.Acquire(ctx, "k")
	require.NoError(t, err)
	stale()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisAcquireContended(t *testing.T) {
	g, mock := newTestRedis(0, "tok")

	mock.ExpectSetNX("k", "tok", 15*time.Second).SetVal(false)
	_, err := g.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisAcquireError(t *testing.T) {
	g, mock := newTestRedis(time.Second, "tok")

	mock.ExpectSetNX("k", "tok", time.Second).SetErr(errors.New("connection refused"))
	_, err := g.Acquire(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrHeld))
}
