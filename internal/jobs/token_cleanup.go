package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// TokenPruner is the part of the token store the cleanup job needs
type TokenPruner interface {
	DeleteExpiredTokens(ctx context.Context) error
	CleanupRevokedTokens(ctx context.Context) error
}

// TokenCleanupConfig configures the refresh token cleanup job
type TokenCleanupConfig struct {
	Store        TokenPruner
	Interval     time.Duration // default 1h
	InitialDelay time.Duration // default 5s, lets the server finish starting
	Timeout      time.Duration // per run, default 2m
}

// TokenCleanup periodically removes expired refresh tokens and tokens that
// were revoked long enough ago that reuse detection no longer needs them.
type TokenCleanup struct {
	store        TokenPruner
	interval     time.Duration
	initialDelay time.Duration
	timeout      time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewTokenCleanup creates a new token cleanup job
func NewTokenCleanup(cfg TokenCleanupConfig) *TokenCleanup {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 5 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &TokenCleanup{
		store:        cfg.Store,
		interval:     cfg.Interval,
		initialDelay: cfg.InitialDelay,
		timeout:      cfg.Timeout,
	}
}

// Start begins the cleanup loop. Calling Start on a running job is a no-op;
// a stopped job can be started again.
func (j *TokenCleanup) Start() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	stop := make(chan struct{})
	j.stopCh = stop
	j.wg.Add(1)
	j.mu.Unlock()

	go j.run(stop)
	slog.Info("token cleanup started", slog.Duration("interval", j.interval))
}

// Stop stops the loop and waits for an in-progress run to finish
func (j *TokenCleanup) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	stop := j.stopCh
	j.mu.Unlock()

	close(stop)
	j.wg.Wait()
	slog.Info("token cleanup stopped")
}

func (j *TokenCleanup) run(stop <-chan struct{}) {
	defer j.wg.Done()

	delay := time.NewTimer(j.initialDelay)
	select {
	case <-delay.C:
	case <-stop:
		delay.Stop()
		return
	}
	j.runLogged()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runLogged()
		case <-stop:
			return
		}
	}
}

func (j *TokenCleanup) runLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.RunOnce(ctx); err != nil {
		slog.Error("token cleanup failed", slog.String("error", err.Error()))
		return
	}
	slog.Debug("token cleanup finished", slog.Duration("duration", time.Since(start)))
}

// RunOnce performs a single cleanup pass. Both steps run even if the first
// fails; their errors are joined.
func (j *TokenCleanup) RunOnce(ctx context.Context) error {
	return errors.Join(
		j.store.DeleteExpiredTokens(ctx),
		j.store.CleanupRevokedTokens(ctx),
	)
}

// IsRunning returns whether the loop is running
func (j *TokenCleanup) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
