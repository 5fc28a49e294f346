package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, zap.NewNop()), mr
}

func rateLimitError(t *testing.T, err error) *autherrors.Error {
	t.Helper()
	var opErr *autherrors.Error
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, 429, opErr.Status)
	assert.Equal(t, "RATE_LIMITED", opErr.Code)
	return opErr
}

func TestLimiter_CheckAllowsUpToMax(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.NoError(t, l.Check(ctx, "api:1.2.3.4", time.Minute, 5))
	}

	err := l.Check(ctx, "api:1.2.3.4", time.Minute, 5)
	require.Error(t, err)
	opErr := rateLimitError(t, err)
	assert.Greater(t, opErr.RetryAfter, 0)
	assert.LessOrEqual(t, opErr.RetryAfter, 60)
}

func TestLimiter_CheckKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	require.Error(t, exhaust(ctx, l, "api:1.1.1.1", 2))
	assert.NoError(t, l.Check(ctx, "api:2.2.2.2", time.Minute, 2))
}

func exhaust(ctx context.Context, l *Limiter, key string, max int) error {
	for i := 0; i <= max; i++ {
		if err := l.Check(ctx, key, time.Minute, max); err != nil {
			return err
		}
	}
	return nil
}

func TestLimiter_WindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	require.Error(t, exhaust(ctx, l, "api:1.2.3.4", 3))

	mr.FastForward(time.Minute + time.Second)

	assert.NoError(t, l.Check(ctx, "api:1.2.3.4", time.Minute, 3))
}

func TestLimiter_PeekDoesNotCount(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	// Any number of peeks below the budget stays allowed.
	for i := 0; i < 20; i++ {
		assert.NoError(t, l.Peek(ctx, "login:a@b.c:1.2.3.4", time.Minute, 3))
	}

	l.Increment(ctx, "login:a@b.c:1.2.3.4", time.Minute)
	l.Increment(ctx, "login:a@b.c:1.2.3.4", time.Minute)
	assert.NoError(t, l.Peek(ctx, "login:a@b.c:1.2.3.4", time.Minute, 3))

	l.Increment(ctx, "login:a@b.c:1.2.3.4", time.Minute)
	err := l.Peek(ctx, "login:a@b.c:1.2.3.4", time.Minute, 3)
	require.Error(t, err)
	rateLimitError(t, err)
}

func TestLimiter_ResetClearsCounter(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Increment(ctx, "login:a@b.c:1.2.3.4", time.Minute)
	}
	require.Error(t, l.Peek(ctx, "login:a@b.c:1.2.3.4", time.Minute, 3))

	l.Reset(ctx, "login:a@b.c:1.2.3.4")
	assert.NoError(t, l.Peek(ctx, "login:a@b.c:1.2.3.4", time.Minute, 3))
}

func TestLimiter_FailsOpenWhenStoreIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := New(client, zap.NewNop())

	mr.Close()

	ctx := context.Background()
	assert.NoError(t, l.Check(ctx, "api:1.2.3.4", time.Minute, 1))
	assert.NoError(t, l.Check(ctx, "api:1.2.3.4", time.Minute, 1))
	assert.NoError(t, l.Peek(ctx, "login:a@b.c:1.2.3.4", time.Minute, 1))
}

func TestLoginLimiter_OnlyFailuresCount(t *testing.T) {
	l, _ := newTestLimiter(t)
	ll := NewLoginLimiter(l, 15*time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, ll.Check(ctx, "a@b.c", "1.2.3.4"))
		ll.RecordFailure(ctx, "a@b.c", "1.2.3.4")
	}

	err := ll.Check(ctx, "a@b.c", "1.2.3.4")
	require.Error(t, err)
	rateLimitError(t, err)

	// A different address for the same account is unaffected.
	assert.NoError(t, ll.Check(ctx, "a@b.c", "5.6.7.8"))
}

func TestLoginLimiter_SuccessClearsBudget(t *testing.T) {
	l, _ := newTestLimiter(t)
	ll := NewLoginLimiter(l, 15*time.Minute, 2)
	ctx := context.Background()

	ll.RecordFailure(ctx, "a@b.c", "1.2.3.4")
	ll.RecordFailure(ctx, "a@b.c", "1.2.3.4")
	require.Error(t, ll.Check(ctx, "a@b.c", "1.2.3.4"))

	ll.RecordSuccess(ctx, "a@b.c", "1.2.3.4")
	assert.NoError(t, ll.Check(ctx, "a@b.c", "1.2.3.4"))
}

func TestAPILimiter_Check(t *testing.T) {
	l, _ := newTestLimiter(t)
	al := NewAPILimiter(l, time.Minute, 2)
	ctx := context.Background()

	assert.NoError(t, al.Check(ctx, "1.2.3.4"))
	assert.NoError(t, al.Check(ctx, "1.2.3.4"))

	err := al.Check(ctx, "1.2.3.4")
	require.Error(t, err)
	rateLimitError(t, err)

	assert.NoError(t, al.Check(ctx, "5.6.7.8"))
}
