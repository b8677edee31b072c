package engine

import (
	"context"
	"errors"
	"fmt"

	"reelist/internal/logging"
	"reelist/internal/remote"
	"reelist/internal/store"
)

// errUndecodablePayload marks a queued operation whose payload no longer
// decodes. Such entries can never succeed, so the drain drops them to the
// failed list immediately instead of burning retries.
var errUndecodablePayload = errors.New("undecodable payload")

// CycleResult summarizes one drain/refresh cycle.
type CycleResult struct {
	// Skipped is true when another cycle was already running.
	Skipped bool
	// Replayed counts queued operations the server accepted.
	Replayed int
	// Dropped counts operations moved to the failed list.
	Dropped int
	// Remaining is the queue depth after the cycle.
	Remaining int
	// Refreshed lists the entity kinds pulled from the server.
	Refreshed []store.EntityKind
}

// RunCycle drains the pending queue in FIFO order, then refreshes the
// local snapshot. Unforced refreshes are throttled per entity kind; a
// successful drain forces them so the pull reflects the replayed writes.
// Cycles are single-flight: a call that finds one in progress returns
// immediately with Skipped set.
func (e *Engine) RunCycle(ctx context.Context, force bool) (CycleResult, error) {
	if !e.cycleRunning.CompareAndSwap(false, true) {
		return CycleResult{Skipped: true}, nil
	}
	defer e.cycleRunning.Store(false)

	result, drainErr := e.drain(ctx)

	refreshed, refreshErr := e.refresh(ctx, force || result.Replayed > 0)
	result.Refreshed = refreshed

	if drainErr != nil {
		return result, drainErr
	}
	return result, refreshErr
}

func (e *Engine) drain(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	ops, err := e.store.PendingOperations(ctx)
	if err != nil {
		return result, err
	}
	result.Remaining = len(ops)

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		replayErr := e.replay(ctx, op)
		if replayErr == nil {
			if _, err := e.store.DeleteOperation(ctx, op.ID); err != nil {
				return result, err
			}
			result.Replayed++
			result.Remaining = len(ops) - i - 1
			e.logger.Info("queued operation replayed",
				logging.String("kind", string(op.Kind)),
				logging.String("operation_id", op.ID))
			continue
		}

		if errors.Is(replayErr, errUndecodablePayload) {
			if err := e.store.MarkOperationFailed(ctx, op, replayErr.Error()); err != nil {
				return result, err
			}
			result.Dropped++
			result.Remaining = len(ops) - i - 1
			e.logger.Error("queued operation dropped",
				logging.String("kind", string(op.Kind)),
				logging.String("operation_id", op.ID),
				logging.Error(replayErr))
			continue
		}

		if remote.IsConnectivity(replayErr) {
			// Server unreachable: later entries would fail the same way,
			// and replaying them out of order would reorder the user's
			// writes. Stop here and try again next cycle.
			if _, err := e.store.IncrementRetry(ctx, op.ID); err != nil {
				return result, err
			}
			e.logger.Info("server unreachable, drain stopped",
				logging.String("operation_id", op.ID),
				logging.Int("queued", result.Remaining),
				logging.Error(replayErr))
			return result, nil
		}

		// Rejection. The server understood the request and refused it;
		// retrying a few times covers transient server-side state, after
		// that the operation is surfaced on the failed list.
		if op.RetryCount+1 >= retryCeiling {
			if err := e.store.MarkOperationFailed(ctx, op, replayErr.Error()); err != nil {
				return result, err
			}
			result.Dropped++
			result.Remaining = len(ops) - i - 1
			e.logger.Error("queued operation abandoned after repeated rejection",
				logging.String("kind", string(op.Kind)),
				logging.String("operation_id", op.ID),
				logging.Error(replayErr))
			continue
		}
		if _, err := e.store.IncrementRetry(ctx, op.ID); err != nil {
			return result, err
		}
		e.logger.Warn("queued operation rejected, will retry",
			logging.String("kind", string(op.Kind)),
			logging.String("operation_id", op.ID),
			logging.Int("attempt", op.RetryCount+1),
			logging.Error(replayErr))
	}
	return result, nil
}

// replay reconstructs the remote request a queued operation stands for
// and sends it.
func (e *Engine) replay(ctx context.Context, op *store.PendingOperation) error {
	switch op.Kind {
	case store.OpAddMovie, store.OpAddMovieBulk, store.OpAddRecommendation:
		payload, err := decodePayload[addMoviePayload](op)
		if err != nil {
			return err
		}
		return e.sendAdd(ctx, payload)

	case store.OpRemoveRecommendation:
		payload, err := decodePayload[removeRecommendationPayload](op)
		if err != nil {
			return err
		}
		return e.api.RemoveRecommendation(ctx, payload.IMDBID, payload.Person)

	case store.OpUpdateMovie:
		payload, err := decodePayload[updateMoviePayload](op)
		if err != nil {
			return err
		}
		if payload.Status == string(store.StatusWatched) && payload.WatchedAt != nil {
			req := remote.WatchRequest{DateWatched: *payload.WatchedAt}
			if payload.MyRating != nil {
				req.MyRating = *payload.MyRating
			}
			return e.api.MarkWatched(ctx, payload.IMDBID, req)
		}
		return e.api.UpdateStatus(ctx, payload.IMDBID, remote.StatusRequest{Status: payload.Status})

	case store.OpUpdatePerson:
		payload, err := decodePayload[updatePersonPayload](op)
		if err != nil {
			return err
		}
		return e.api.UpdatePerson(ctx, payload.Name, remote.PersonUpdateRequest{IsTrusted: payload.Trusted})

	default:
		return fmt.Errorf("%w: unknown kind %q", errUndecodablePayload, op.Kind)
	}
}

// refresh pulls each entity kind whose throttle window has elapsed.
// force bypasses the throttle. Returns the kinds actually pulled.
func (e *Engine) refresh(ctx context.Context, force bool) ([]store.EntityKind, error) {
	var refreshed []store.EntityKind
	for _, kind := range []store.EntityKind{store.KindMovies, store.KindPeople} {
		if !force {
			last, err := e.store.LastPull(ctx, kind)
			if err != nil {
				return refreshed, err
			}
			if !last.IsZero() && e.now().Sub(last) < e.refreshInterval {
				continue
			}
		}
		if err := e.pull(ctx, kind); err != nil {
			return refreshed, err
		}
		refreshed = append(refreshed, kind)
	}
	if len(refreshed) > 0 {
		if err := e.store.RecomputeRecommendationCounts(ctx); err != nil {
			return refreshed, err
		}
	}
	return refreshed, nil
}

// pull replaces the local collection for one entity kind with server
// truth. Last-write-wins: whatever the server holds overwrites local
// state, including optimistic writes whose operations already replayed.
func (e *Engine) pull(ctx context.Context, kind store.EntityKind) error {
	switch kind {
	case store.KindMovies:
		movies, err := e.api.FetchMovies(ctx)
		if err != nil {
			return fmt.Errorf("pull movies: %w", err)
		}
		records := make([]*store.MovieRecord, 0, len(movies))
		for _, movie := range movies {
			records = append(records, movie.Record())
		}
		if err := e.store.ReplaceMovies(ctx, records); err != nil {
			return err
		}
	case store.KindPeople:
		people, err := e.api.FetchPeople(ctx)
		if err != nil {
			return fmt.Errorf("pull people: %w", err)
		}
		records := make([]*store.PersonRecord, 0, len(people))
		for _, person := range people {
			records = append(records, person.Record())
		}
		if err := e.store.ReplacePeople(ctx, records); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	return e.store.SetLastPull(ctx, kind, e.now().UTC())
}

// pullAfter refreshes the kinds a confirmed mutation touched so server
// truth overwrites the optimistic write. A pull failure here is logged,
// not returned: the mutation itself succeeded and the next cycle will
// reconcile.
func (e *Engine) pullAfter(ctx context.Context, kinds []store.EntityKind) {
	for _, kind := range kinds {
		if err := e.pull(ctx, kind); err != nil {
			e.logger.Warn("post-mutation pull failed",
				logging.String("kind", string(kind)), logging.Error(err))
			return
		}
	}
	if err := e.store.RecomputeRecommendationCounts(ctx); err != nil {
		e.logger.Warn("recompute recommendation counts", logging.Error(err))
	}
}
