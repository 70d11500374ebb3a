package ratelimit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dobble-room-server/internal/ratelimit"
)

func TestLimiter_AllowsUpToMaxWithinWindow(t *testing.T) {
	now := int64(0)
	l := ratelimit.NewWithClock(ratelimit.Config{WindowMs: 1000, MaxRequests: 3}, func() int64 { return now })

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	now := int64(0)
	l := ratelimit.NewWithClock(ratelimit.Config{WindowMs: 1000, MaxRequests: 1}, func() int64 { return now })

	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	now = 1000
	assert.True(t, l.Allow("k"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	now := int64(0)
	l := ratelimit.NewWithClock(ratelimit.Config{WindowMs: 1000, MaxRequests: 1}, func() int64 { return now })

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("a"))
}

func TestLimiter_Forget(t *testing.T) {
	now := int64(0)
	l := ratelimit.NewWithClock(ratelimit.Config{WindowMs: 1000, MaxRequests: 1}, func() int64 { return now })

	assert.True(t, l.Allow("k"))
	l.Forget("k")
	assert.True(t, l.Allow("k"))
}
