package auth

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	MaxLoginAttempts = 5
	LockDuration     = 15 * time.Minute
)

type attemptRecord struct {
	failures    atomic.Int64
	lastFailure atomic.Int64 // unix millis
}

// LoginThrottle counts failed logins per key and blocks a key for
// LockDuration once it reaches MaxLoginAttempts. State is process-local and
// expired locks are evicted when next checked.
type LoginThrottle struct {
	attempts sync.Map // string -> *attemptRecord
	now      func() time.Time
}

func NewLoginThrottle() *LoginThrottle {
	return &LoginThrottle{now: time.Now}
}

func (t *LoginThrottle) LoginSucceeded(key string) {
	t.attempts.Delete(key)
}

func (t *LoginThrottle) LoginFailed(key string) {
	record := t.record(key)
	record.failures.Add(1)
	record.lastFailure.Store(t.now().UnixMilli())
}

func (t *LoginThrottle) IsBlocked(key string) bool {
	value, ok := t.attempts.Load(key)
	if !ok {
		return false
	}
	record := value.(*attemptRecord)
	if record.failures.Load() < MaxLoginAttempts {
		return false
	}

	if t.sinceLastFailure(record) > LockDuration {
		// Only drop the record we inspected, so a record created by a
		// concurrent reset survives. A failure landing on this stale record
		// between the check and the delete is dropped with it.
		t.attempts.CompareAndDelete(key, record)
		return false
	}
	return true
}

func (t *LoginThrottle) RemainingLockTime(key string) time.Duration {
	value, ok := t.attempts.Load(key)
	if !ok {
		return 0
	}
	record := value.(*attemptRecord)
	if record.failures.Load() < MaxLoginAttempts {
		return 0
	}

	remaining := LockDuration - t.sinceLastFailure(record)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *LoginThrottle) record(key string) *attemptRecord {
	if value, ok := t.attempts.Load(key); ok {
		return value.(*attemptRecord)
	}
	value, _ := t.attempts.LoadOrStore(key, &attemptRecord{})
	return value.(*attemptRecord)
}

func (t *LoginThrottle) sinceLastFailure(record *attemptRecord) time.Duration {
	elapsed := t.now().UnixMilli() - record.lastFailure.Load()
	return time.Duration(elapsed) * time.Millisecond
}
