package ratelimit

import (
	"context"
	"time"
)

// LoginLimiter throttles credential-guessing per (email, caller address)
// pair. Only failed attempts count toward the budget; a successful login
// clears the pair's counter.
type LoginLimiter struct {
	limiter *Limiter
	window  time.Duration
	max     int
}

func NewLoginLimiter(limiter *Limiter, window time.Duration, max int) *LoginLimiter {
	return &LoginLimiter{limiter: limiter, window: window, max: max}
}

func loginKey(email, ip string) string {
	return "login:" + email + ":" + ip
}

func (l *LoginLimiter) Check(ctx context.Context, email, ip string) error {
	return l.limiter.Peek(ctx, loginKey(email, ip), l.window, l.max)
}

func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) {
	l.limiter.Increment(ctx, loginKey(email, ip), l.window)
}

func (l *LoginLimiter) RecordSuccess(ctx context.Context, email, ip string) {
	l.limiter.Reset(ctx, loginKey(email, ip))
}

// APILimiter throttles all requests per caller address with a looser budget.
type APILimiter struct {
	limiter *Limiter
	window  time.Duration
	max     int
}

func NewAPILimiter(limiter *Limiter, window time.Duration, max int) *APILimiter {
	return &APILimiter{limiter: limiter, window: window, max: max}
}

func (l *APILimiter) Check(ctx context.Context, ip string) error {
	return l.limiter.Check(ctx, "api:"+ip, l.window, l.max)
}
