package server

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/extropic-systems/ragcore/internal/logging"
)

// Every answer request fans out into a Bedrock embedding call plus a model
// invocation, so one chatty client can burn the invocation quota for
// everyone. Each remote IP gets its own token bucket; buckets idle past
// bucketTTL are dropped to bound memory.
const (
	// defaultRateLimit is the sustained requests/second allowed per client
	// when no explicit limit is configured. Answers take seconds to
	// generate, so the sustained rate is kept low.
	defaultRateLimit = 5

	// defaultRateBurst absorbs short spikes (a client retrying, a page
	// issuing a couple of parallel requests) without rejection.
	defaultRateBurst = 10

	// evictInterval is how often idle client buckets are swept.
	evictInterval = time.Minute

	// bucketTTL is how long a client bucket survives without traffic.
	bucketTTL = 5 * time.Minute
)

// clientBucket pairs a client's token bucket with its last activity time.
type clientBucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-client token-bucket limit on the routes it
// wraps. Safe for concurrent use.
type rateLimiter struct {
	// mu protects clients.
	mu sync.Mutex
	// clients maps remote IP to its bucket.
	clients map[string]*clientBucket
	// rps is the sustained request rate allowed per client.
	rps rate.Limit
	// burst is the maximum instantaneous burst per client.
	burst int
	// log is the structured logger for throttling events.
	log *slog.Logger
}

// newRateLimiter constructs a rateLimiter and starts the background sweep
// goroutine. The goroutine exits when the returned stop function is called.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		clients: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		log:     log,
	}

	stopCh := make(chan struct{})
	go rl.sweepLoop(stopCh)

	return rl, func() { close(stopCh) }
}

// allow consumes one token from the client's bucket, creating the bucket on
// first sight, and reports whether the request may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[ip]
	if !ok {
		b = &clientBucket{tokens: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = b
	}
	b.lastSeen = time.Now()
	return b.tokens.Allow()
}

// sweepLoop drops idle client buckets every evictInterval until stopCh closes.
func (rl *rateLimiter) sweepLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			rl.dropStale()
		}
	}
}

// dropStale removes client buckets that have seen no traffic for bucketTTL.
func (rl *rateLimiter) dropStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-bucketTTL)
	for ip, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// middleware returns an http.Handler that throttles before delegating to
// next. Rejected requests get 429 Too Many Requests with a Retry-After
// header and a structured WARN entry.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !rl.allow(ip) {
			logging.FromContext(r.Context()).Warn("throttling client",
				slog.String("client", ip),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the remote IP from the request, stripping the port.
// X-Forwarded-For is deliberately ignored: the server binds to localhost by
// default and a spoofable header must never select the bucket.
func clientIP(r *http.Request) string {
	if i := strings.LastIndexByte(r.RemoteAddr, ':'); i >= 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}
