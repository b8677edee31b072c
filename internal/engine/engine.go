package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"reelist/internal/config"
	"reelist/internal/logging"
	"reelist/internal/remote"
	"reelist/internal/store"
)

// retryCeiling is the rejection count at which a pending operation is
// abandoned and moved to the failed list.
const retryCeiling = 3

// Outcome reports how a mutation settled.
type Outcome int

const (
	// OutcomeConfirmed means the server accepted the mutation and the
	// local store has been refreshed with server truth.
	OutcomeConfirmed Outcome = iota
	// OutcomeQueued means the server was unreachable; the optimistic
	// local state stands and the operation waits in the pending queue.
	OutcomeQueued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeQueued:
		return "queued"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrValidation marks mutation input the engine refused before
// touching local state. Callers test with errors.Is.
var ErrValidation = errors.New("invalid input")

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Engine is the sync coordinator. It owns the mutation pipeline and
// the periodic drain/refresh cycle. Methods are safe for concurrent
// use; cycles are single-flight.
type Engine struct {
	store           *store.Store
	api             remote.API
	logger          *slog.Logger
	refreshInterval time.Duration
	now             func() time.Time

	cycleRunning atomic.Bool
}

// New builds an Engine over the given store and remote client.
func New(cfg *config.Config, st *store.Store, api remote.API, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:           st,
		api:             api,
		logger:          logging.NewComponentLogger(logger, "engine"),
		refreshInterval: cfg.Sync.RefreshIntervalDuration(),
		now:             time.Now,
	}
}
