package auth

import (
	"testing"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var guardEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testGuard() Guard {
	return NewGuard(config.GuardConfig{})
}

func TestNewGuardDefaults(t *testing.T) {
	g := testGuard()
	assert.Equal(t, 5, g.MaxAttempts)
	assert.Equal(t, 2*time.Hour, g.LockDuration)

	custom := NewGuard(config.GuardConfig{MaxAttempts: 3, LockDuration: time.Minute})
	assert.Equal(t, 3, custom.MaxAttempts)
	assert.Equal(t, time.Minute, custom.LockDuration)
}

func TestGuardFiveFailuresLock(t *testing.T) {
	g := testGuard()
	state := GuardState{}
	now := guardEpoch

	for i := 1; i <= 4; i++ {
		state = g.OnFailure(state, now)
		require.Equal(t, i, state.FailedAttempts)
		require.Nil(t, state.LockUntil)
		require.False(t, g.Status(state, now).Locked)
	}

	state = g.OnFailure(state, now)
	require.NotNil(t, state.LockUntil)
	assert.Equal(t, now.Add(2*time.Hour), *state.LockUntil)
	assert.Equal(t, 4, state.FailedAttempts)

	later := now.Add(30 * time.Minute)
	status := g.Status(state, later)
	assert.True(t, status.Locked)
	assert.Equal(t, 90*time.Minute, status.Remaining)
}

func TestGuardSuccessResets(t *testing.T) {
	g := testGuard()
	state := GuardState{}
	for i := 0; i < 3; i++ {
		state = g.OnFailure(state, guardEpoch)
	}
	require.Equal(t, 3, state.FailedAttempts)

	state = g.OnSuccess()
	assert.Equal(t, 0, state.FailedAttempts)
	assert.Nil(t, state.LockUntil)
}

func TestGuardExpiredLockRestartsCount(t *testing.T) {
	g := testGuard()
	until := guardEpoch
	state := GuardState{FailedAttempts: 4, LockUntil: &until}

	after := guardEpoch.Add(time.Second)
	assert.False(t, g.Status(state, after).Locked, "expired lock must read as unlocked")

	next := g.OnFailure(state, after)
	assert.Equal(t, 1, next.FailedAttempts)
	assert.Nil(t, next.LockUntil)
}

func TestGuardLockBoundaryIsExclusive(t *testing.T) {
	g := testGuard()
	until := guardEpoch.Add(time.Hour)
	state := GuardState{FailedAttempts: 4, LockUntil: &until}

	assert.True(t, g.Status(state, until.Add(-time.Nanosecond)).Locked)
	assert.False(t, g.Status(state, until).Locked)
}

func TestRemainingMinutes(t *testing.T) {
	cases := []struct {
		name string
		diff time.Duration
		want int
	}{
		{"full lock", 2 * time.Hour, 120},
		{"one minute into lock", 119 * time.Minute, 119},
		{"partial minute rounds up", 61 * time.Second, 2},
		{"sub-minute", time.Millisecond, 1},
		{"expired", -time.Second, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RemainingMinutes(guardEpoch.Add(tc.diff), guardEpoch))
		})
	}
}

func TestLockedMessage(t *testing.T) {
	assert.Equal(t, "account locked, try again in 119 minute(s)", lockedMessage(119))
}
