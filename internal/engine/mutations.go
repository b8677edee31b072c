package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reelist/internal/logging"
	"reelist/internal/remote"
	"reelist/internal/store"
)

// Recommender is one person's vote attached to a mutation.
type Recommender struct {
	Person string
	Vote   store.VoteKind
}

// remoteCall carries everything the settle step needs: the request to
// send now, the durable payload to queue if the server is unreachable,
// and the entity kinds to re-pull on confirmation.
type remoteCall struct {
	kind     store.OperationKind
	payload  any
	invoke   func(context.Context) error
	affected []store.EntityKind
}

// settle runs the remote half of the mutation pipeline. The optimistic
// local write has already happened; rollback restores the pre-mutation
// state when the server rejects the call.
func (e *Engine) settle(ctx context.Context, call remoteCall, rollback func(context.Context) error) (Outcome, error) {
	err := call.invoke(ctx)
	if err == nil {
		e.pullAfter(ctx, call.affected)
		return OutcomeConfirmed, nil
	}

	if remote.IsConnectivity(err) {
		op, queueErr := e.store.EnqueueOperation(ctx, call.kind, call.payload)
		if queueErr != nil {
			if rbErr := rollback(ctx); rbErr != nil {
				e.logger.Error("rollback after queue failure",
					logging.String("kind", string(call.kind)), logging.Error(rbErr))
			}
			return 0, fmt.Errorf("queue %s: %w", call.kind, queueErr)
		}
		e.logger.Info("server unreachable, operation queued",
			logging.String("kind", string(call.kind)),
			logging.String("operation_id", op.ID),
			logging.Error(err))
		return OutcomeQueued, nil
	}

	if rbErr := rollback(ctx); rbErr != nil {
		e.logger.Error("rollback after rejection",
			logging.String("kind", string(call.kind)), logging.Error(rbErr))
	}
	return 0, fmt.Errorf("%s rejected: %w", call.kind, err)
}

// AddMovie records one or more recommendations for a movie, creating the
// local record when the catalog key is new. Metadata is optional; the
// server fills it in when it can.
func (e *Engine) AddMovie(ctx context.Context, imdbID, title string, metadata *store.Metadata, recommenders []Recommender) (Outcome, error) {
	imdbID = strings.TrimSpace(imdbID)
	title = strings.TrimSpace(title)
	if imdbID == "" {
		return 0, validationf("imdb id required")
	}
	if len(recommenders) == 0 {
		return 0, validationf("at least one recommender required")
	}

	now := e.now().UTC()
	recs := make([]store.Recommendation, 0, len(recommenders))
	for _, r := range recommenders {
		person := strings.TrimSpace(r.Person)
		if person == "" {
			return 0, validationf("recommender name required")
		}
		vote := r.Vote
		if vote == "" {
			vote = store.VoteUp
		}
		recs = append(recs, store.Recommendation{Person: person, Vote: vote, RecommendedAt: now})
	}

	prior, err := e.store.GetMovie(ctx, imdbID)
	if err != nil {
		return 0, err
	}
	if prior == nil && title == "" {
		return 0, validationf("title required for a movie not yet in the library")
	}

	updated := applyRecommendations(prior, imdbID, title, metadata, recs, now)
	if err := e.store.UpsertMovies(ctx, []*store.MovieRecord{updated}); err != nil {
		return 0, err
	}
	createdPeople, err := e.ensurePeople(ctx, recs)
	if err != nil {
		return 0, err
	}

	payload := addMoviePayload{
		IMDBID:       imdbID,
		Title:        title,
		Metadata:     metadata,
		Recommenders: toRecommenderPayloads(recs),
	}
	kind := store.OpAddMovie
	if len(recs) > 1 {
		kind = store.OpAddMovieBulk
	}
	return e.settle(ctx, remoteCall{
		kind:     kind,
		payload:  payload,
		invoke:   func(ctx context.Context) error { return e.sendAdd(ctx, payload) },
		affected: []store.EntityKind{store.KindMovies, store.KindPeople},
	}, e.movieRollback(prior, imdbID, createdPeople))
}

// AddRecommendation attaches one more person's vote to a movie already in
// the library.
func (e *Engine) AddRecommendation(ctx context.Context, imdbID, person string, vote store.VoteKind) (Outcome, error) {
	imdbID = strings.TrimSpace(imdbID)
	person = strings.TrimSpace(person)
	if imdbID == "" {
		return 0, validationf("imdb id required")
	}
	if person == "" {
		return 0, validationf("recommender name required")
	}
	if vote == "" {
		vote = store.VoteUp
	}

	prior, err := e.store.GetMovie(ctx, imdbID)
	if err != nil {
		return 0, err
	}
	if prior == nil {
		return 0, validationf("movie %s is not in the library; add it first", imdbID)
	}
	if _, exists := prior.RecommendationFor(person); exists {
		return 0, validationf("%s already recommended %s", person, prior.Title)
	}

	now := e.now().UTC()
	recs := []store.Recommendation{{Person: person, Vote: vote, RecommendedAt: now}}
	updated := applyRecommendations(prior, imdbID, prior.Title, nil, recs, now)
	if err := e.store.UpsertMovies(ctx, []*store.MovieRecord{updated}); err != nil {
		return 0, err
	}
	createdPeople, err := e.ensurePeople(ctx, recs)
	if err != nil {
		return 0, err
	}

	payload := addMoviePayload{IMDBID: imdbID, Recommenders: toRecommenderPayloads(recs)}
	return e.settle(ctx, remoteCall{
		kind:     store.OpAddRecommendation,
		payload:  payload,
		invoke:   func(ctx context.Context) error { return e.sendAdd(ctx, payload) },
		affected: []store.EntityKind{store.KindMovies, store.KindPeople},
	}, e.movieRollback(prior, imdbID, createdPeople))
}

// RemoveRecommendation withdraws a person's vote on a movie.
func (e *Engine) RemoveRecommendation(ctx context.Context, imdbID, person string) (Outcome, error) {
	imdbID = strings.TrimSpace(imdbID)
	person = strings.TrimSpace(person)
	if imdbID == "" {
		return 0, validationf("imdb id required")
	}
	if person == "" {
		return 0, validationf("recommender name required")
	}

	prior, err := e.store.GetMovie(ctx, imdbID)
	if err != nil {
		return 0, err
	}
	if prior == nil {
		return 0, validationf("movie %s is not in the library", imdbID)
	}
	rec, exists := prior.RecommendationFor(person)
	if !exists {
		return 0, validationf("%s has no recommendation from %s", prior.Title, person)
	}

	updated := applyRemoveRecommendation(prior, person, e.now().UTC())
	if err := e.store.UpsertMovies(ctx, []*store.MovieRecord{updated}); err != nil {
		return 0, err
	}

	payload := removeRecommendationPayload{IMDBID: imdbID, Person: rec.Person}
	return e.settle(ctx, remoteCall{
		kind:    store.OpRemoveRecommendation,
		payload: payload,
		invoke: func(ctx context.Context) error {
			return e.api.RemoveRecommendation(ctx, payload.IMDBID, payload.Person)
		},
		affected: []store.EntityKind{store.KindMovies, store.KindPeople},
	}, e.movieRollback(prior, imdbID, nil))
}

// MarkWatched records a watch event. A zero watchedAt means now.
func (e *Engine) MarkWatched(ctx context.Context, imdbID string, rating float64, watchedAt time.Time) (Outcome, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return 0, validationf("imdb id required")
	}
	if rating < 1 || rating > 10 {
		return 0, validationf("rating must be between 1 and 10, got %.1f", rating)
	}

	prior, err := e.store.GetMovie(ctx, imdbID)
	if err != nil {
		return 0, err
	}
	if prior == nil {
		return 0, validationf("movie %s is not in the library", imdbID)
	}

	now := e.now().UTC()
	if watchedAt.IsZero() {
		watchedAt = now
	}
	watchedAt = watchedAt.UTC()

	updated := applyWatched(prior, rating, watchedAt, now)
	if err := e.store.UpsertMovies(ctx, []*store.MovieRecord{updated}); err != nil {
		return 0, err
	}

	watchedUnix := remote.TimeToUnix(watchedAt)
	payload := updateMoviePayload{
		IMDBID:    imdbID,
		Status:    string(store.StatusWatched),
		MyRating:  &rating,
		WatchedAt: &watchedUnix,
	}
	return e.settle(ctx, remoteCall{
		kind:    store.OpUpdateMovie,
		payload: payload,
		invoke: func(ctx context.Context) error {
			return e.api.MarkWatched(ctx, imdbID, remote.WatchRequest{DateWatched: watchedUnix, MyRating: rating})
		},
		affected: []store.EntityKind{store.KindMovies},
	}, e.movieRollback(prior, imdbID, nil))
}

// SetStatus moves a movie between watch states. Demoting out of watched
// clears the watch timestamp and rating.
func (e *Engine) SetStatus(ctx context.Context, imdbID string, status store.Status) (Outcome, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return 0, validationf("imdb id required")
	}
	if _, ok := store.ParseStatus(string(status)); !ok {
		return 0, validationf("unknown status %q", status)
	}

	prior, err := e.store.GetMovie(ctx, imdbID)
	if err != nil {
		return 0, err
	}
	if prior == nil {
		return 0, validationf("movie %s is not in the library", imdbID)
	}

	updated := applyStatus(prior, status, e.now().UTC())
	if err := e.store.UpsertMovies(ctx, []*store.MovieRecord{updated}); err != nil {
		return 0, err
	}

	payload := updateMoviePayload{IMDBID: imdbID, Status: string(status)}
	return e.settle(ctx, remoteCall{
		kind:    store.OpUpdateMovie,
		payload: payload,
		invoke: func(ctx context.Context) error {
			return e.api.UpdateStatus(ctx, imdbID, remote.StatusRequest{Status: string(status)})
		},
		affected: []store.EntityKind{store.KindMovies},
	}, e.movieRollback(prior, imdbID, nil))
}

// SetTrust flips a recommender's trusted flag.
func (e *Engine) SetTrust(ctx context.Context, name string, trusted bool) (Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, validationf("person name required")
	}

	prior, err := e.store.GetPerson(ctx, name)
	if err != nil {
		return 0, err
	}
	if prior == nil {
		return 0, validationf("unknown person %q", name)
	}

	updated := applyTrust(prior, trusted)
	if err := e.store.UpsertPeople(ctx, []*store.PersonRecord{updated}); err != nil {
		return 0, err
	}

	payload := updatePersonPayload{Name: prior.Name, Trusted: trusted}
	return e.settle(ctx, remoteCall{
		kind:    store.OpUpdatePerson,
		payload: payload,
		invoke: func(ctx context.Context) error {
			return e.api.UpdatePerson(ctx, prior.Name, remote.PersonUpdateRequest{IsTrusted: trusted})
		},
		affected: []store.EntityKind{store.KindPeople},
	}, func(ctx context.Context) error {
		return e.store.UpsertPeople(ctx, []*store.PersonRecord{prior})
	})
}

// RefreshMetadata asks the server to rebuild a movie's descriptive
// snapshot. It is a direct call, not an optimistic mutation: nothing
// changes locally until the server answers, so there is nothing to
// queue or roll back.
func (e *Engine) RefreshMetadata(ctx context.Context, imdbID string) (*store.MovieRecord, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, validationf("imdb id required")
	}
	prior, err := e.store.GetMovie(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, validationf("movie %s is not in the library", imdbID)
	}

	movie, err := e.api.RefreshMetadata(ctx, imdbID)
	if err != nil {
		return nil, fmt.Errorf("refresh metadata: %w", err)
	}
	record := movie.Record()
	if err := e.store.UpsertMovies(ctx, []*store.MovieRecord{record}); err != nil {
		return nil, err
	}
	return record, nil
}

// QueueUnresolved records recommendation intent from free text when no
// catalog key could be resolved. It is purely local.
func (e *Engine) QueueUnresolved(ctx context.Context, title, recommender string) (*store.PendingUnresolvedItem, error) {
	return e.store.AddUnresolved(ctx, title, recommender)
}

// ResolveUnresolved binds an unresolved item to a concrete catalog key,
// turning it into a standard add. The item is removed once the add is
// accepted or queued; a rejected or invalid add leaves it in place.
func (e *Engine) ResolveUnresolved(ctx context.Context, id, imdbID, title string, metadata *store.Metadata) (Outcome, error) {
	item, err := e.store.GetUnresolved(ctx, strings.TrimSpace(id))
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, validationf("unknown unresolved item %q", id)
	}
	if strings.TrimSpace(title) == "" {
		title = item.Title
	}

	outcome, err := e.AddMovie(ctx, imdbID, title, metadata, []Recommender{{Person: item.Recommender}})
	if err != nil {
		return 0, err
	}
	if _, err := e.store.DeleteUnresolved(ctx, item.ID); err != nil {
		return 0, err
	}
	return outcome, nil
}

// RemoveUnresolved discards a captured intent without binding it.
func (e *Engine) RemoveUnresolved(ctx context.Context, id string) error {
	removed, err := e.store.DeleteUnresolved(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !removed {
		return validationf("unknown unresolved item %q", id)
	}
	return nil
}

// Search queries the remote catalog by free text.
func (e *Engine) Search(ctx context.Context, query string) ([]remote.SearchResult, error) {
	return e.api.Search(ctx, query)
}

// sendAdd issues the remote call for an add payload, choosing the single
// or bulk endpoint by recommender count. Shared by the mutation path and
// queue replay so both send identical requests.
func (e *Engine) sendAdd(ctx context.Context, payload addMoviePayload) error {
	reqs := payload.requests()
	if len(reqs) == 0 {
		return validationf("add payload for %s has no recommenders", payload.IMDBID)
	}
	if len(reqs) == 1 {
		reqs[0].Title = payload.Title
		reqs[0].Metadata = payload.Metadata
		return e.api.AddRecommendation(ctx, payload.IMDBID, reqs[0])
	}
	return e.api.AddRecommendationsBulk(ctx, payload.IMDBID, remote.BulkRecommendationsRequest{
		Title:           payload.Title,
		Metadata:        payload.Metadata,
		Recommendations: reqs,
	})
}

// ensurePeople inserts recommenders the store does not know yet and
// returns the names it created, so a rollback can remove them again.
func (e *Engine) ensurePeople(ctx context.Context, recs []store.Recommendation) ([]string, error) {
	var created []string
	for _, rec := range recs {
		existing, err := e.store.GetPerson(ctx, rec.Person)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		person := &store.PersonRecord{Name: rec.Person}
		if err := e.store.UpsertPeople(ctx, []*store.PersonRecord{person}); err != nil {
			return created, err
		}
		created = append(created, rec.Person)
	}
	return created, nil
}

// movieRollback restores a movie to its pre-mutation snapshot. A nil
// prior means the mutation created the record, so rollback deletes it.
// People created alongside the mutation are removed as well.
func (e *Engine) movieRollback(prior *store.MovieRecord, imdbID string, createdPeople []string) func(context.Context) error {
	return func(ctx context.Context) error {
		if prior == nil {
			if _, err := e.store.DeleteMovie(ctx, imdbID); err != nil {
				return err
			}
		} else if err := e.store.UpsertMovies(ctx, []*store.MovieRecord{prior}); err != nil {
			return err
		}
		for _, name := range createdPeople {
			if _, err := e.store.DeletePerson(ctx, name); err != nil {
				return err
			}
		}
		return nil
	}
}

func toRecommenderPayloads(recs []store.Recommendation) []recommenderPayload {
	payloads := make([]recommenderPayload, 0, len(recs))
	for _, rec := range recs {
		payloads = append(payloads, recommenderPayload{
			Person:        rec.Person,
			Vote:          string(rec.Vote),
			RecommendedAt: remote.TimeToUnix(rec.RecommendedAt),
		})
	}
	return payloads
}
