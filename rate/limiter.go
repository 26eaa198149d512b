// Package rate throttles repeated submissions of the same keyed operation.
package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	Expiry   int
	Burst    int
	LimitRPS float64
	keys     map[string]*keyLimiter
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
}

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLimiter returns a limiter allowing burst events per key and refilling at
// limitRPS. Keys idle for longer than expiry minutes are forgotten.
func NewLimiter(burst int, expiry int, limitRPS float64) *Limiter {
	lm := &Limiter{
		Expiry:   expiry,
		LimitRPS: limitRPS,
		Burst:    burst,
		keys:     make(map[string]*keyLimiter),
		done:     make(chan struct{}),
	}
	go lm.refresh()
	return lm
}

func (l *Limiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.keys[key]
	if !ok {
		kl = &keyLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.LimitRPS), l.Burst),
		}
		l.keys[key] = kl
	}
	kl.lastAccess = time.Now()
	return kl.limiter.Allow()
}

// Close stops the background eviction of idle keys.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Limiter) refresh() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
		}

		l.mu.Lock()
		for key, v := range l.keys {
			if time.Since(v.lastAccess) > time.Duration(l.Expiry)*time.Minute {
				delete(l.keys, key)
			}
		}
		l.mu.Unlock()
	}
}

func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
