package auth

import (
	"fmt"
	"math"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/config"
)

const (
	defaultMaxAttempts  = 5
	defaultLockDuration = 2 * time.Hour
)

// GuardState is the persisted lockout state of one admin account.
type GuardState struct {
	FailedAttempts int
	LockUntil      *time.Time
}

// GuardStatus is the lockout state evaluated at a point in time.
type GuardStatus struct {
	Locked    bool
	Remaining time.Duration
}

// Guard decides lockout transitions. It holds no state of its own; callers
// load GuardState, apply a transition, and persist the result.
type Guard struct {
	MaxAttempts  int
	LockDuration time.Duration
}

func NewGuard(cfg config.GuardConfig) Guard {
	g := Guard{MaxAttempts: cfg.MaxAttempts, LockDuration: cfg.LockDuration}
	if g.MaxAttempts <= 0 {
		g.MaxAttempts = defaultMaxAttempts
	}
	if g.LockDuration <= 0 {
		g.LockDuration = defaultLockDuration
	}
	return g
}

// Status reports whether the account is locked at now. A lock whose expiry
// has passed counts as unlocked even though it is still stored.
func (g Guard) Status(state GuardState, now time.Time) GuardStatus {
	if state.LockUntil == nil || !state.LockUntil.After(now) {
		return GuardStatus{}
	}
	return GuardStatus{Locked: true, Remaining: state.LockUntil.Sub(now)}
}

// OnFailure returns the state after a wrong password. Callers must not apply
// it to an account that is currently locked.
func (g Guard) OnFailure(state GuardState, now time.Time) GuardState {
	if state.LockUntil != nil && !state.LockUntil.After(now) {
		return GuardState{FailedAttempts: 1}
	}
	next := state.FailedAttempts + 1
	if next < g.MaxAttempts {
		return GuardState{FailedAttempts: next}
	}
	until := now.Add(g.LockDuration)
	// the locking failure is not counted; the stored counter keeps its pre-lock value
	return GuardState{FailedAttempts: state.FailedAttempts, LockUntil: &until}
}

// OnSuccess returns the state after a correct password.
func (g Guard) OnSuccess() GuardState {
	return GuardState{}
}

// RemainingMinutes rounds the time left on a lock up to whole minutes.
func RemainingMinutes(lockUntil, now time.Time) int {
	diff := lockUntil.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(float64(diff) / float64(time.Minute)))
}

func lockedMessage(minutes int) string {
	return fmt.Sprintf("account locked, try again in %d minute(s)", minutes)
}
