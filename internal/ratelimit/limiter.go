package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Bucket defines rate limit parameters for one endpoint class.
type Bucket struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultBuckets gate the public API surface. The limiter is advisory, a
// UX guard against accidental hammering rather than a security control.
var DefaultBuckets = map[string]Bucket{
	"query":    {MaxRequests: 20, Window: time.Minute},
	"api":      {MaxRequests: 60, Window: time.Minute},
	"escalate": {MaxRequests: 10, Window: time.Minute},
}

// Limiter is an in-memory sliding-window rate limiter per key. Windows are
// pruned lazily on the first check after they expire.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]Bucket
	hits    map[string][]time.Time
}

// New creates a rate limiter with the given buckets; nil means DefaultBuckets.
func New(buckets map[string]Bucket) *Limiter {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return &Limiter{buckets: buckets, hits: make(map[string][]time.Time)}
}

// Allow checks if a request identified by key is within the rate limit for
// the given bucket. Returns true if allowed.
func (l *Limiter) Allow(key string, bucket Bucket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-bucket.Window)

	// Prune entries that fell out of the window
	times := l.hits[key]
	pruned := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= bucket.MaxRequests {
		l.hits[key] = pruned
		return false
	}

	l.hits[key] = append(pruned, now)
	return true
}

// Check writes an http.StatusTooManyRequests response if the client IP is
// rate limited for the named bucket. Returns true if the request was rejected.
func (l *Limiter) Check(w http.ResponseWriter, r *http.Request, bucketName string) bool {
	bucket, ok := l.buckets[bucketName]
	if !ok {
		bucket = Bucket{MaxRequests: 60, Window: time.Minute}
	}

	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Real-IP"); fwd != "" {
		ip = fwd
	}
	key := bucketName + ":" + ip

	if l.Allow(key, bucket) {
		return false
	}

	retry := strconv.Itoa(int(bucket.Window.Seconds()))
	w.Header().Set("Retry-After", retry)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"Too many requests from this IP, please try again later.","retry_after_seconds":` + retry + `}`))
	return true
}

// CleanupLoop periodically drops keys whose entire window has expired, so
// one-off clients do not accumulate forever. Stops when ctx is cancelled.
func (l *Limiter) CleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var maxWindow time.Duration
	for _, b := range l.buckets {
		if b.Window > maxWindow {
			maxWindow = b.Window
		}
	}
	cutoff := time.Now().Add(-maxWindow)
	for key, times := range l.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}
