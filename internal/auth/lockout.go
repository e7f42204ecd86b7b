package auth

// LockDecision is the result of evaluating an account's lock state at login
type LockDecision struct {
	Locked        bool // Lock flag the user record should carry
	EvictAttempts bool // Whether the principal's failure counter should be dropped
}

// DecideLock computes the next lock state from the persisted flag and the limiter verdict.
//
// An unlocked account locks as soon as the failure threshold is reached. A locked
// account stays locked; only its counter is evicted so that it starts with a fresh
// budget once an administrator clears the flag.
func DecideLock(currentlyLocked, exceeded bool) LockDecision {
	if currentlyLocked {
		return LockDecision{Locked: true, EvictAttempts: true}
	}
	return LockDecision{Locked: exceeded, EvictAttempts: false}
}
