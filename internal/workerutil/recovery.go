// Package workerutil runs background goroutines that restart after a panic
// or a failure, with exponential backoff.
package workerutil

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	// defaultInitialBackoff is the delay before the first restart. It doubles
	// on each further attempt up to defaultMaxBackoff.
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	// defaultMaxRetries bounds restarts at roughly 30s of backoff in total.
	defaultMaxRetries = 10
)

// RecoveryOptions configures RunWithRestart. Zero-value numeric fields use
// the defaults (100ms, 5s, 10); set MaxRetries to 1 to run exactly once.
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int

	// OnFatal is called when MaxRetries is exceeded and the worker is
	// permanently stopped. May be nil.
	OnFatal func(worker string, lastErr error)
}

func (opts RecoveryOptions) applyDefaults() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[WARN-WORKER] MaxBackoff < InitialBackoff is contradictory, using InitialBackoff as MaxBackoff",
			"initialBackoff", opts.InitialBackoff,
			"maxBackoff", opts.MaxBackoff,
		)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// RunWithRestart launches fn in a goroutine tracked by wg. fn is restarted
// when it panics or returns a non-nil error, until ctx is cancelled or
// opts.MaxRetries attempts have failed. A nil return ends the worker.
func RunWithRestart(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context) error,
	opts RecoveryOptions,
) {
	opts = opts.applyDefaults()
	wg.Go(func() {
		runRestartLoop(ctx, name, fn, opts)
	})
}

func runRestartLoop(
	ctx context.Context,
	name string,
	fn func(ctx context.Context) error,
	opts RecoveryOptions,
) {
	restartDelay := opts.InitialBackoff
	var lastErr error

	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		lastErr = runOnce(ctx, name, fn)
		if lastErr == nil || ctx.Err() != nil {
			return
		}

		slog.Warn("[WARN-WORKER] restarting worker",
			"worker", name,
			"error", lastErr,
			"restartDelay", restartDelay,
			"attempt", attempt+1,
		)
		if attempt == opts.MaxRetries-1 {
			break
		}

		restartTimer := time.NewTimer(restartDelay)
		select {
		case <-ctx.Done():
			restartTimer.Stop()
			return
		case <-restartTimer.C:
		}
		restartDelay = nextBackoff(restartDelay, opts.MaxBackoff)
	}

	slog.Error("[ERROR-WORKER] worker exceeded max retries, giving up",
		"worker", name,
		"maxRetries", opts.MaxRetries,
		"error", lastErr,
	)
	if opts.OnFatal != nil {
		opts.OnFatal(name, lastErr)
	}
}

// runOnce converts a panic in fn into an error.
func runOnce(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[ERROR-WORKER] background goroutine recovered from panic",
				"worker", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// nextBackoff doubles current, capping at maxBackoff and guarding against
// overflow.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	if current >= maxBackoff {
		return maxBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
