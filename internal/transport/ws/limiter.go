package ws

import (
	"context"
	"sync"
	"time"
)

type limiterKey struct {
	connID string
	event  string
}

// RateLimiter — скользящее окно на пару (connection, event).
// Метки времени старше окна отбрасываются лениво при каждой проверке;
// простаивающие ключи вычищает периодический sweep, чтобы карта не росла
// бесконечно при высоком churn-е соединений.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[limiterKey][]time.Time

	now func() time.Time
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	if window <= 0 {
		window = 60 * time.Second
	}
	if max <= 0 {
		max = 20
	}
	return &RateLimiter{
		window: window,
		max:    max,
		hits:   make(map[limiterKey][]time.Time),
		now:    time.Now,
	}
}

// Allow регистрирует событие, если бюджет не исчерпан. При отказе
// метка не записывается.
func (l *RateLimiter) Allow(connID, event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := limiterKey{connID: connID, event: event}
	now := l.now()
	cutoff := now.Add(-l.window)

	stamps := l.hits[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}

	l.hits[key] = append(kept, now)
	return true
}

// RemoveConn выкидывает все ключи соединения; вызывается на disconnect.
func (l *RateLimiter) RemoveConn(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.hits {
		if key.connID == connID {
			delete(l.hits, key)
		}
	}
}

// Sweep удаляет ключи без меток внутри окна.
func (l *RateLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for key, stamps := range l.hits {
		idle := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(l.hits, key)
		}
	}
}

// Run гоняет Sweep по тикеру до отмены контекста.
func (l *RateLimiter) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = l.window
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
