package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for login response padding
type TimingConfig struct {
	BaseDelay      time.Duration // Minimum time a padded login takes
	RandomDelay    time.Duration // Upper bound of extra random padding
	DelayOnSuccess bool          // Pad successful logins too
}

// TimingDelay pads authentication outcomes so "unknown user" and "wrong password"
// are indistinguishable by response time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// jitter returns a uniformly random duration in [0, max) from crypto/rand
func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(buf[:]) % uint64(max))
}

// WaitFrom blocks until at least base+jitter has elapsed since start, or ctx is done.
// A nil TimingDelay never waits.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	remaining := td.config.BaseDelay + jitter(td.config.RandomDelay) - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
