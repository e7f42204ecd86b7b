package auth

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultAttemptCacheSize = 100
	DefaultAttemptWindow    = 15 * time.Minute
)

// AttemptLimiterConfig holds the limits for failed-login tracking
type AttemptLimiterConfig struct {
	MaxAttempts int           // Failures at which a principal counts as exceeded
	Capacity    int           // Distinct principals tracked before LRU eviction
	TTL         time.Duration // Lifetime of a counter after its last write
}

// AttemptLimiter counts failed logins per principal in a bounded, expiring cache.
// Entries expire TTL after their last write; reads never extend them.
type AttemptLimiter struct {
	mu          sync.Mutex
	cache       *expirable.LRU[string, int]
	maxAttempts int
}

// NewAttemptLimiter creates a new AttemptLimiter, filling unset limits with defaults
func NewAttemptLimiter(config AttemptLimiterConfig) *AttemptLimiter {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxLoginAttempts
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultAttemptCacheSize
	}
	if config.TTL <= 0 {
		config.TTL = DefaultAttemptWindow
	}

	return &AttemptLimiter{
		cache:       expirable.NewLRU[string, int](config.Capacity, nil, config.TTL),
		maxAttempts: config.MaxAttempts,
	}
}

// RecordFailure increments the principal's counter and restarts its TTL
func (l *AttemptLimiter) RecordFailure(principal string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempts, _ := l.cache.Get(principal)
	l.cache.Add(principal, attempts+1)
}

// Evict drops the principal's counter; no-op if absent
func (l *AttemptLimiter) Evict(principal string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Remove(principal)
}

// Attempts returns the current failure count, zero when absent or expired
func (l *AttemptLimiter) Attempts(principal string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	attempts, ok := l.cache.Get(principal)
	if !ok {
		return 0
	}
	return attempts
}

// Exceeded reports whether the principal has reached the failure threshold
func (l *AttemptLimiter) Exceeded(principal string) bool {
	return l.Attempts(principal) >= l.maxAttempts
}

// Len returns the number of tracked principals, including not-yet-swept expired ones
func (l *AttemptLimiter) Len() int {
	return l.cache.Len()
}
