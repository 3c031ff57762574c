package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type emailLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet holds one token bucket per email. Entries idle long enough to
// refill completely are dropped, since a fresh bucket behaves the same.
type limiterSet struct {
	mu        sync.Mutex
	every     time.Duration
	burst     int
	limiters  map[string]*emailLimiter
	lastSweep time.Time
}

func newLimiterSet(every time.Duration, burst int) *limiterSet {
	return &limiterSet{
		every:    every,
		burst:    burst,
		limiters: make(map[string]*emailLimiter),
	}
}

func (s *limiterSet) idle() time.Duration {
	return s.every * time.Duration(s.burst)
}

func (s *limiterSet) allow(email string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)

	l, ok := s.limiters[email]
	if !ok {
		l = &emailLimiter{limiter: rate.NewLimiter(rate.Every(s.every), s.burst)}
		s.limiters[email] = l
	}
	l.lastAccess = now
	return l.limiter.AllowN(now, 1)
}

func (s *limiterSet) forget(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limiters, email)
}

// sweep runs at most once per idle period. Callers hold mu.
func (s *limiterSet) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.idle() {
		return
	}
	s.lastSweep = now

	for email, l := range s.limiters {
		if now.Sub(l.lastAccess) >= s.idle() {
			delete(s.limiters, email)
		}
	}
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}
