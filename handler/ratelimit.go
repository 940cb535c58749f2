package handler

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long a client's bucket is kept after its last request.
const limiterIdle = 10 * time.Minute

var errRateLimited = errors.New("rate limit exceeded, try again later")

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore holds one token bucket per client IP. Buckets idle for longer
// than idle are dropped on the next sweep.
type limiterStore struct {
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newLimiterStore(limit rate.Limit, burst int, idle time.Duration) *limiterStore {
	return &limiterStore{
		limit:    limit,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

func (s *limiterStore) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		for key, v := range s.visitors {
			if now.Sub(v.lastSeen) >= s.idle {
				delete(s.visitors, key)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *limiterStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit allows perMinute requests per client IP with the given burst.
// A non-positive perMinute disables limiting. The client IP is taken from
// the connection's remote address; forwarding headers are only honoured
// when the router trusts its proxy.
func RateLimit(perMinute, burst int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}

	store := newLimiterStore(rate.Limit(float64(perMinute)/60), burst, limiterIdle)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if !store.get(clientIP(r)).Allow() {
				respondErr(r.Context(), rw, http.StatusTooManyRequests, errRateLimited)
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
