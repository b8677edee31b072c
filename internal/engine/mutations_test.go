package engine_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"reelist/internal/engine"
	"reelist/internal/remote"
	"reelist/internal/store"
	"reelist/internal/testsupport"
)

func TestAddMovieConfirmedOverwrittenByServerTruth(t *testing.T) {
	api := &stubAPI{
		movies: []remote.Movie{{
			IMDBID: "tt2543164",
			Title:  "Arrival",
			Status: "queued",
			Recommendations: []remote.Recommendation{
				{Person: "Alice", VoteType: "up", DateRecommended: 1700000000},
			},
			LastModified: 1700000000,
		}},
		people: []remote.Person{{Name: "Alice", IsTrusted: true}},
	}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	outcome, err := eng.AddMovie(ctx, "tt2543164", "Arrival", nil, []engine.Recommender{{Person: "Alice"}})
	if err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	if outcome != engine.OutcomeConfirmed {
		t.Fatalf("outcome = %v, want confirmed", outcome)
	}
	if got := pendingCount(t, st); got != 0 {
		t.Fatalf("pending operations = %d, want 0", got)
	}

	movie, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if movie == nil {
		t.Fatal("movie missing after confirmed add")
	}
	rec, ok := movie.RecommendationFor("Alice")
	if !ok || rec.Vote != store.VoteUp {
		t.Fatalf("recommendation = %+v (found %v), want up vote from Alice", rec, ok)
	}
	// The post-confirmation pull carries the server's timestamp, not the
	// optimistic one.
	if got := rec.RecommendedAt.Unix(); got != 1700000000 {
		t.Fatalf("RecommendedAt = %d, want server value 1700000000", got)
	}

	person, err := st.GetPerson(ctx, "alice")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if person == nil || !person.Trusted {
		t.Fatalf("person = %+v, want trusted Alice from server pull", person)
	}
	if person.RecommendationCount != 1 {
		t.Fatalf("RecommendationCount = %d, want 1", person.RecommendationCount)
	}
}

func TestAddMovieAppliesOptimisticallyBeforeServerResponds(t *testing.T) {
	var eng *engine.Engine
	var st *store.Store
	seen := make(chan *store.MovieRecord, 1)

	api := &stubAPI{}
	api.onMutate = func(string) error {
		movie, err := st.GetMovie(context.Background(), "tt1375666")
		if err != nil {
			t.Errorf("GetMovie inside remote call: %v", err)
		}
		seen <- movie
		return nil
	}
	eng, st, _ = newEngine(t, api)

	if _, err := eng.AddMovie(context.Background(), "tt1375666", "Inception", nil, []engine.Recommender{{Person: "Bob", Vote: store.VoteDown}}); err != nil {
		t.Fatalf("AddMovie: %v", err)
	}

	movie := <-seen
	if movie == nil {
		t.Fatal("local record absent while remote call was in flight")
	}
	if rec, ok := movie.RecommendationFor("Bob"); !ok || rec.Vote != store.VoteDown {
		t.Fatalf("in-flight record = %+v, want Bob's down vote applied", movie.Recommendations)
	}
}

func TestAddMovieQueuedOnConnectivityFailure(t *testing.T) {
	api := &stubAPI{mutateErr: connectivityErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	outcome, err := eng.AddMovie(ctx, "tt2543164", "Arrival", nil, []engine.Recommender{{Person: "Alice"}})
	if err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	if outcome != engine.OutcomeQueued {
		t.Fatalf("outcome = %v, want queued", outcome)
	}

	// Optimistic state stands.
	movie, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if movie == nil || movie.Status != store.StatusQueued {
		t.Fatalf("movie = %+v, want optimistic queued record", movie)
	}
	if _, ok := movie.RecommendationFor("Alice"); !ok {
		t.Fatal("optimistic recommendation missing")
	}

	ops, err := st.PendingOperations(ctx)
	if err != nil {
		t.Fatalf("PendingOperations: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("pending operations = %d, want exactly 1", len(ops))
	}
	if ops[0].Kind != store.OpAddMovie {
		t.Fatalf("kind = %s, want %s", ops[0].Kind, store.OpAddMovie)
	}
	if ops[0].RetryCount != 0 {
		t.Fatalf("retry count = %d, want 0", ops[0].RetryCount)
	}
}

func TestAddMovieBulkUsesOneOperation(t *testing.T) {
	api := &stubAPI{mutateErr: connectivityErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	recommenders := []engine.Recommender{
		{Person: "Alice", Vote: store.VoteUp},
		{Person: "Bob", Vote: store.VoteDown},
		{Person: "Carol"},
	}
	outcome, err := eng.AddMovie(ctx, "tt0133093", "The Matrix", nil, recommenders)
	if err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	if outcome != engine.OutcomeQueued {
		t.Fatalf("outcome = %v, want queued", outcome)
	}

	ops, err := st.PendingOperations(ctx)
	if err != nil {
		t.Fatalf("PendingOperations: %v", err)
	}
	if len(ops) != 1 || ops[0].Kind != store.OpAddMovieBulk {
		t.Fatalf("ops = %+v, want single %s entry", ops, store.OpAddMovieBulk)
	}

	movie, err := st.GetMovie(ctx, "tt0133093")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if len(movie.Recommendations) != 3 {
		t.Fatalf("recommendations = %d, want 3", len(movie.Recommendations))
	}
}

func TestAddMovieRejectionRollsBackCreation(t *testing.T) {
	api := &stubAPI{mutateErr: rejectionErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	_, err := eng.AddMovie(ctx, "tt2543164", "Arrival", nil, []engine.Recommender{{Person: "Alice"}})
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if errors.Is(err, engine.ErrValidation) {
		t.Fatalf("rejection surfaced as validation error: %v", err)
	}

	movie, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if movie != nil {
		t.Fatalf("movie = %+v, want record removed by rollback", movie)
	}
	person, err := st.GetPerson(ctx, "Alice")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if person != nil {
		t.Fatalf("person = %+v, want optimistic person removed by rollback", person)
	}
	if got := pendingCount(t, st); got != 0 {
		t.Fatalf("pending operations = %d, want 0 after rejection", got)
	}
}

func TestAddRecommendationRejectionRestoresSnapshot(t *testing.T) {
	api := &stubAPI{}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	testsupport.SeedMovie(t, st, testsupport.NewMovie("tt2543164", "Arrival", "Alice"))
	testsupport.SeedPerson(t, st, &store.PersonRecord{Name: "Alice"})
	before, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}

	api.setMutateErr(rejectionErr())
	if _, err := eng.AddRecommendation(ctx, "tt2543164", "Bob", store.VoteUp); err == nil {
		t.Fatal("expected rejection error")
	}

	after, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("record changed across rollback:\nbefore %+v\nafter  %+v", before, after)
	}
	person, err := st.GetPerson(ctx, "Bob")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if person != nil {
		t.Fatalf("person = %+v, want Bob removed by rollback", person)
	}
}

func TestAddRecommendationDuplicatePersonRejectedLocally(t *testing.T) {
	api := &stubAPI{}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	testsupport.SeedMovie(t, st, testsupport.NewMovie("tt2543164", "Arrival", "Alice"))

	_, err := eng.AddRecommendation(ctx, "tt2543164", "alice", store.VoteUp)
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("err = %v, want validation error for duplicate recommender", err)
	}
	if calls := api.callNames(); len(calls) != 0 {
		t.Fatalf("remote calls = %v, want none for invalid input", calls)
	}
}

func TestAddMovieWithoutTitleForUnknownMovie(t *testing.T) {
	eng, _, _ := newEngine(t, &stubAPI{})

	_, err := eng.AddMovie(context.Background(), "tt2543164", "", nil, []engine.Recommender{{Person: "Alice"}})
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestRemoveRecommendationQueuedKeepsOptimisticRemoval(t *testing.T) {
	api := &stubAPI{mutateErr: connectivityErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	testsupport.SeedMovie(t, st, testsupport.NewMovie("tt2543164", "Arrival", "Alice"))

	outcome, err := eng.RemoveRecommendation(ctx, "tt2543164", "ALICE")
	if err != nil {
		t.Fatalf("RemoveRecommendation: %v", err)
	}
	if outcome != engine.OutcomeQueued {
		t.Fatalf("outcome = %v, want queued", outcome)
	}

	movie, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if _, ok := movie.RecommendationFor("Alice"); ok {
		t.Fatal("recommendation still present after optimistic removal")
	}

	ops, err := st.PendingOperations(ctx)
	if err != nil {
		t.Fatalf("PendingOperations: %v", err)
	}
	if len(ops) != 1 || ops[0].Kind != store.OpRemoveRecommendation {
		t.Fatalf("ops = %+v, want single %s entry", ops, store.OpRemoveRecommendation)
	}
}

func TestMarkWatchedValidatesRating(t *testing.T) {
	eng, st, _ := newEngine(t, &stubAPI{})
	testsupport.SeedMovie(t, st, testsupport.NewMovie("tt2543164", "Arrival", "Alice"))

	_, err := eng.MarkWatched(context.Background(), "tt2543164", 11, time.Time{})
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("err = %v, want validation error for out-of-range rating", err)
	}
}

func TestMarkWatchedQueuedOnConnectivity(t *testing.T) {
	api := &stubAPI{mutateErr: connectivityErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	testsupport.SeedMovie(t, st, testsupport.NewMovie("tt2543164", "Arrival", "Alice"))

	outcome, err := eng.MarkWatched(ctx, "tt2543164", 8.5, time.Time{})
	if err != nil {
		t.Fatalf("MarkWatched: %v", err)
	}
	if outcome != engine.OutcomeQueued {
		t.Fatalf("outcome = %v, want queued", outcome)
	}

	movie, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if movie.Status != store.StatusWatched {
		t.Fatalf("status = %s, want watched", movie.Status)
	}
	if movie.MyRating == nil || *movie.MyRating != 8.5 {
		t.Fatalf("rating = %v, want 8.5", movie.MyRating)
	}
	if movie.WatchedAt == nil {
		t.Fatal("watched timestamp missing")
	}
}

func TestSetStatusDemotionClearsWatchData(t *testing.T) {
	api := &stubAPI{mutateErr: connectivityErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	rating := 9.0
	watched := time.Now().UTC().Add(-24 * time.Hour)
	record := testsupport.NewMovie("tt2543164", "Arrival", "Alice")
	record.Status = store.StatusWatched
	record.MyRating = &rating
	record.WatchedAt = &watched
	testsupport.SeedMovie(t, st, record)

	if _, err := eng.SetStatus(ctx, "tt2543164", store.StatusQueued); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	movie, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if movie.Status != store.StatusQueued {
		t.Fatalf("status = %s, want queued", movie.Status)
	}
	if movie.WatchedAt != nil || movie.MyRating != nil {
		t.Fatalf("watch data = (%v, %v), want both cleared on demotion", movie.WatchedAt, movie.MyRating)
	}
}

func TestSetTrustUnknownPerson(t *testing.T) {
	eng, _, _ := newEngine(t, &stubAPI{})

	_, err := eng.SetTrust(context.Background(), "Nobody", true)
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestSetTrustRejectionRestoresFlag(t *testing.T) {
	api := &stubAPI{mutateErr: rejectionErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	testsupport.SeedPerson(t, st, &store.PersonRecord{Name: "Alice", Trusted: false})

	if _, err := eng.SetTrust(ctx, "alice", true); err == nil {
		t.Fatal("expected rejection error")
	}

	person, err := st.GetPerson(ctx, "Alice")
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if person.Trusted {
		t.Fatal("trusted flag not rolled back after rejection")
	}
}

func TestRefreshMetadataOverwritesSnapshot(t *testing.T) {
	api := &stubAPI{
		refreshed: &remote.Movie{
			IMDBID:   "tt2543164",
			Title:    "Arrival",
			Status:   "queued",
			Metadata: &store.Metadata{Year: 2016, Director: "Denis Villeneuve"},
			Recommendations: []remote.Recommendation{
				{Person: "Alice", VoteType: "up", DateRecommended: 1700000000},
			},
			LastModified: 1700000100,
		},
	}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	seed := testsupport.NewMovie("tt2543164", "Arrival", "Alice")
	seed.Metadata = store.Metadata{Year: 2006}
	testsupport.SeedMovie(t, st, seed)

	record, err := eng.RefreshMetadata(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("RefreshMetadata: %v", err)
	}
	if record.Metadata.Year != 2016 || record.Metadata.Director != "Denis Villeneuve" {
		t.Fatalf("metadata = %+v, want refreshed snapshot", record.Metadata)
	}

	stored, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if stored.Metadata.Year != 2016 {
		t.Fatalf("stored year = %d, want 2016", stored.Metadata.Year)
	}
}

func TestRefreshMetadataFailureLeavesLocalUntouched(t *testing.T) {
	api := &stubAPI{mutateErr: connectivityErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	seed := testsupport.NewMovie("tt2543164", "Arrival", "Alice")
	seed.Metadata = store.Metadata{Year: 2016}
	testsupport.SeedMovie(t, st, seed)

	if _, err := eng.RefreshMetadata(ctx, "tt2543164"); err == nil {
		t.Fatal("expected error")
	}
	if got := pendingCount(t, st); got != 0 {
		t.Fatalf("pending operations = %d, want 0 (refresh is never queued)", got)
	}

	movie, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if movie.Metadata.Year != 2016 {
		t.Fatalf("year = %d, want local snapshot untouched", movie.Metadata.Year)
	}
}

func TestResolveUnresolvedBindsAndDeletesItem(t *testing.T) {
	api := &stubAPI{mutateErr: connectivityErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	item, err := eng.QueueUnresolved(ctx, "that space movie with the squid aliens", "Alice")
	if err != nil {
		t.Fatalf("QueueUnresolved: %v", err)
	}

	outcome, err := eng.ResolveUnresolved(ctx, item.ID, "tt2543164", "Arrival", nil)
	if err != nil {
		t.Fatalf("ResolveUnresolved: %v", err)
	}
	if outcome != engine.OutcomeQueued {
		t.Fatalf("outcome = %v, want queued", outcome)
	}

	remaining, err := st.ListUnresolved(ctx)
	if err != nil {
		t.Fatalf("ListUnresolved: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("unresolved items = %d, want 0 after binding", len(remaining))
	}

	movie, err := st.GetMovie(ctx, "tt2543164")
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if movie == nil {
		t.Fatal("bound movie missing")
	}
	if _, ok := movie.RecommendationFor("Alice"); !ok {
		t.Fatal("recommendation from unresolved item missing")
	}
}

func TestRemoveUnresolvedDiscardsItem(t *testing.T) {
	eng, st, _ := newEngine(t, &stubAPI{})
	ctx := context.Background()

	item, err := eng.QueueUnresolved(ctx, "that documentary about octopuses", "Carol")
	if err != nil {
		t.Fatalf("QueueUnresolved: %v", err)
	}

	if err := eng.RemoveUnresolved(ctx, item.ID); err != nil {
		t.Fatalf("RemoveUnresolved: %v", err)
	}
	remaining, err := st.ListUnresolved(ctx)
	if err != nil {
		t.Fatalf("ListUnresolved: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("unresolved items = %d, want 0", len(remaining))
	}

	err = eng.RemoveUnresolved(ctx, item.ID)
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("err = %v, want validation error for unknown id", err)
	}
}

func TestResolveUnresolvedRejectionKeepsItem(t *testing.T) {
	api := &stubAPI{mutateErr: rejectionErr()}
	eng, st, _ := newEngine(t, api)
	ctx := context.Background()

	item, err := eng.QueueUnresolved(ctx, "some western", "Bob")
	if err != nil {
		t.Fatalf("QueueUnresolved: %v", err)
	}

	if _, err := eng.ResolveUnresolved(ctx, item.ID, "tt0060196", "The Good, the Bad and the Ugly", nil); err == nil {
		t.Fatal("expected rejection error")
	}

	remaining, err := st.ListUnresolved(ctx)
	if err != nil {
		t.Fatalf("ListUnresolved: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("unresolved items = %d, want item kept after rejection", len(remaining))
	}
}
