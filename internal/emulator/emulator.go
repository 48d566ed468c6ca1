// Package emulator provides in-process test doubles for Azure Key Vault and
// Azure App Configuration. Each emulator runs an httptest server with a chi
// router speaking the subset of the REST surface the azure package clients
// use, plus failure injection for rate-limit and outage scenarios.
package emulator

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Failures injects faults into an emulator. All methods are safe for
// concurrent use with request handling.
type Failures struct {
	mu        sync.Mutex
	rateLimit int
	transient int
	latency   time.Duration
}

// RateLimitNext makes the next n requests fail with 429 and a Retry-After
// header.
func (f *Failures) RateLimitNext(n int) {
	f.mu.Lock()
	f.rateLimit = n
	f.mu.Unlock()
}

// FailNext makes the next n requests fail with 503.
func (f *Failures) FailNext(n int) {
	f.mu.Lock()
	f.transient = n
	f.mu.Unlock()
}

// SetLatency delays every request by d.
func (f *Failures) SetLatency(d time.Duration) {
	f.mu.Lock()
	f.latency = d
	f.mu.Unlock()
}

// Reset clears all injected faults.
func (f *Failures) Reset() {
	f.mu.Lock()
	f.rateLimit = 0
	f.transient = 0
	f.latency = 0
	f.mu.Unlock()
}

// middleware applies pending faults before passing the request on.
func (f *Failures) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		latency := f.latency
		if f.rateLimit > 0 {
			f.rateLimit--
			f.mu.Unlock()
			w.Header().Set("Retry-After", strconv.Itoa(0))
			http.Error(w, `{"error":{"code":"TooManyRequests"}}`, http.StatusTooManyRequests)
			return
		}
		if f.transient > 0 {
			f.transient--
			f.mu.Unlock()
			http.Error(w, `{"error":{"code":"ServiceUnavailable"}}`, http.StatusServiceUnavailable)
			return
		}
		f.mu.Unlock()

		if latency > 0 {
			time.Sleep(latency)
		}
		next.ServeHTTP(w, r)
	})
}
