package http

import (
	"httptun/internal/flog"
	"net"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ipLimiter keeps one token bucket per client IP. A bucket expires once its
// client has sent nothing for ttl.
type ipLimiter struct {
	limit rate.Limit
	burst int
	store *cache.Cache
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	return newIPLimiterTTL(rps, burst, 10*time.Minute)
}

func newIPLimiterTTL(rps float64, burst int, ttl time.Duration) *ipLimiter {
	return &ipLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		store: cache.New(ttl, ttl/2),
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	if v, found := l.store.Get(ip); found {
		lim := v.(*rate.Limiter)
		l.store.SetDefault(ip, lim)
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.store.Add(ip, lim, cache.DefaultExpiration); err != nil {
		// lost the race to another request from the same client
		if v, found := l.store.Get(ip); found {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func (l *ipLimiter) allow(ip string) bool {
	return l.get(ip).Allow()
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.allow(ip) {
			flog.Debugf("tunnel request from %s rate limited", r.RemoteAddr)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
