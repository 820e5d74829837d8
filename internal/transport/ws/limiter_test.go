package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Boundary(t *testing.T) {
	req := require.New(t)

	now := time.Now()
	l := NewRateLimiter(60*time.Second, 20)
	l.now = func() time.Time { return now }

	for i := 0; i < 20; i++ {
		req.True(l.Allow("conn-1", "join-code"), "event %d within budget", i+1)
	}

	// 21-е в том же окне — отказ
	req.False(l.Allow("conn-1", "join-code"))

	// отказ не записывается: окно истекло — бюджет снова полный
	now = now.Add(61 * time.Second)
	req.True(l.Allow("conn-1", "join-code"))
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	req := require.New(t)

	l := NewRateLimiter(60*time.Second, 1)
	req.True(l.Allow("conn-1", "join-code"))
	req.False(l.Allow("conn-1", "join-code"))

	// другое событие и другое соединение не затронуты
	req.True(l.Allow("conn-1", "leave-code"))
	req.True(l.Allow("conn-2", "join-code"))
}

func TestRateLimiter_SweepEvictsIdleKeys(t *testing.T) {
	req := require.New(t)

	now := time.Now()
	l := NewRateLimiter(60*time.Second, 20)
	l.now = func() time.Time { return now }

	l.Allow("conn-1", "join-code")
	l.Allow("conn-2", "audio-command")
	req.Len(l.hits, 2)

	now = now.Add(2 * time.Minute)
	l.Allow("conn-2", "audio-command")
	l.Sweep()

	req.Len(l.hits, 1)
	_, ok := l.hits[limiterKey{connID: "conn-2", event: "audio-command"}]
	req.True(ok)
}

func TestRateLimiter_RemoveConn(t *testing.T) {
	req := require.New(t)

	l := NewRateLimiter(60*time.Second, 20)
	l.Allow("conn-1", "join-code")
	l.Allow("conn-1", "leave-code")
	l.Allow("conn-2", "join-code")

	l.RemoveConn("conn-1")
	req.Len(l.hits, 1)
}
