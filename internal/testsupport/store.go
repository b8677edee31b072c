package testsupport

import (
	"context"
	"testing"
	"time"

	"reelist/internal/config"
	"reelist/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewMovie builds a queued movie record with one upvote from the recommender.
func NewMovie(imdbID, title, recommender string) *store.MovieRecord {
	now := time.Now().UTC()
	record := &store.MovieRecord{
		IMDBID:       imdbID,
		Title:        title,
		Status:       store.StatusQueued,
		LastModified: now,
	}
	if recommender != "" {
		record.Recommendations = []store.Recommendation{
			{Person: recommender, Vote: store.VoteUp, RecommendedAt: now},
		}
	}
	return record
}

// SeedMovie inserts a movie record and fails the test on error.
func SeedMovie(t testing.TB, st *store.Store, record *store.MovieRecord) {
	t.Helper()
	if err := st.UpsertMovies(context.Background(), []*store.MovieRecord{record}); err != nil {
		t.Fatalf("seed movie: %v", err)
	}
}

// SeedPerson inserts a person record and fails the test on error.
func SeedPerson(t testing.TB, st *store.Store, record *store.PersonRecord) {
	t.Helper()
	if err := st.UpsertPeople(context.Background(), []*store.PersonRecord{record}); err != nil {
		t.Fatalf("seed person: %v", err)
	}
}
