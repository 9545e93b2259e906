package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePruner struct {
	expired    atomic.Int32
	revoked    atomic.Int32
	expiredErr error
	revokedErr error
}

func (f *fakePruner) DeleteExpiredTokens(ctx context.Context) error {
	f.expired.Add(1)
	return f.expiredErr
}

func (f *fakePruner) CleanupRevokedTokens(ctx context.Context) error {
	f.revoked.Add(1)
	return f.revokedErr
}

func TestNewTokenCleanup_Defaults(t *testing.T) {
	j := NewTokenCleanup(TokenCleanupConfig{Store: &fakePruner{}})

	assert.Equal(t, time.Hour, j.interval)
	assert.Equal(t, 5*time.Second, j.initialDelay)
	assert.Equal(t, 2*time.Minute, j.timeout)
	assert.False(t, j.IsRunning())
}

func TestTokenCleanup_RunOnce_RunsBothSteps(t *testing.T) {
	store := &fakePruner{expiredErr: errors.New("expired failed")}
	j := NewTokenCleanup(TokenCleanupConfig{Store: store})

	err := j.RunOnce(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired failed")
	assert.EqualValues(t, 1, store.expired.Load())
	assert.EqualValues(t, 1, store.revoked.Load(), "revoked cleanup still runs after the first step fails")
}

func TestTokenCleanup_RunOnce_NoErrors(t *testing.T) {
	j := NewTokenCleanup(TokenCleanupConfig{Store: &fakePruner{}})
	assert.NoError(t, j.RunOnce(context.Background()))
}

func TestTokenCleanup_LoopTicksUntilStopped(t *testing.T) {
	store := &fakePruner{}
	j := NewTokenCleanup(TokenCleanupConfig{
		Store:        store,
		Interval:     5 * time.Millisecond,
		InitialDelay: time.Millisecond,
	})

	j.Start()
	j.Start() // no second loop
	assert.True(t, j.IsRunning())

	assert.Eventually(t, func() bool { return store.expired.Load() >= 3 }, time.Second, time.Millisecond)

	j.Stop()
	j.Stop()
	assert.False(t, j.IsRunning())

	runs := store.expired.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, runs, store.expired.Load(), "no runs after Stop")
}

func TestTokenCleanup_StopDuringInitialDelay(t *testing.T) {
	store := &fakePruner{}
	j := NewTokenCleanup(TokenCleanupConfig{Store: store, InitialDelay: time.Hour})

	j.Start()
	j.Stop()

	assert.EqualValues(t, 0, store.expired.Load())
}

func TestTokenCleanup_RestartAfterStop(t *testing.T) {
	store := &fakePruner{}
	j := NewTokenCleanup(TokenCleanupConfig{
		Store:        store,
		Interval:     2 * time.Millisecond,
		InitialDelay: time.Millisecond,
	})

	j.Start()
	assert.Eventually(t, func() bool { return store.expired.Load() >= 1 }, time.Second, time.Millisecond)
	j.Stop()

	runs := store.expired.Load()
	j.Start()
	assert.True(t, j.IsRunning())
	assert.Eventually(t, func() bool { return store.expired.Load() >= runs+2 }, time.Second, time.Millisecond,
		"a restarted loop keeps ticking")

	assert.NotPanics(t, j.Stop)
	assert.False(t, j.IsRunning())
}

func TestTokenCleanup_FailuresDoNotStopLoop(t *testing.T) {
	store := &fakePruner{expiredErr: errors.New("db down"), revokedErr: errors.New("db down")}
	j := NewTokenCleanup(TokenCleanupConfig{
		Store:        store,
		Interval:     2 * time.Millisecond,
		InitialDelay: time.Millisecond,
	})

	j.Start()
	defer j.Stop()

	assert.Eventually(t, func() bool { return store.revoked.Load() >= 2 }, time.Second, time.Millisecond)
}
