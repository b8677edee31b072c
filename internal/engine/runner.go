package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"reelist/internal/config"
	"reelist/internal/logging"
)

// Runner drives the engine's drain/refresh cycle on a fixed cadence and
// enforces single-instance execution through a file lock, so two
// processes never drain the same queue.
type Runner struct {
	engine   *Engine
	logger   *slog.Logger
	interval time.Duration

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	kick    chan struct{}
}

// NewRunner constructs a runner over an engine.
func NewRunner(cfg *config.Config, eng *Engine, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || eng == nil {
		return nil, errors.New("runner requires config and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Runner{
		engine:   eng,
		logger:   logging.NewComponentLogger(logger, "runner"),
		interval: cfg.Sync.PollIntervalDuration(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		kick:     make(chan struct{}, 1),
	}, nil
}

// Start acquires the instance lock and launches the cycle loop. The
// first cycle runs immediately and is forced so a fresh daemon pulls a
// full snapshot before settling into the poll cadence.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("runner already started")
	}

	ok, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance holds %s", r.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	go r.loop(runCtx)

	r.logger.Info("sync runner started",
		logging.String("lock", r.lockPath),
		logging.Duration("interval", r.interval))
	return nil
}

// Stop terminates the cycle loop, waits for an in-flight cycle to
// finish, and releases the instance lock.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	if err := r.lock.Unlock(); err != nil {
		r.logger.Warn("release lock", logging.Error(err))
	}
	r.logger.Info("sync runner stopped")
}

// Kick requests an immediate forced cycle, used when something outside
// the poll cadence signals that local or remote state changed. It never
// blocks; a kick while one is already pending is folded into it.
func (r *Runner) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	r.cycle(ctx, true)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cycle(ctx, false)
		case <-r.kick:
			r.cycle(ctx, true)
		}
	}
}

func (r *Runner) cycle(ctx context.Context, force bool) {
	result, err := r.engine.RunCycle(ctx, force)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.logger.Warn("sync cycle incomplete",
			logging.Int("replayed", result.Replayed),
			logging.Int("queued", result.Remaining),
			logging.Error(err))
		return
	}
	if result.Skipped {
		return
	}
	r.logger.Debug("sync cycle finished",
		logging.Int("replayed", result.Replayed),
		logging.Int("dropped", result.Dropped),
		logging.Int("queued", result.Remaining),
		logging.Int("refreshed", len(result.Refreshed)))
}
