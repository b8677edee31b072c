package engine_test

import (
	"context"
	"sync"
	"testing"

	"reelist/internal/config"
	"reelist/internal/engine"
	"reelist/internal/logging"
	"reelist/internal/remote"
	"reelist/internal/store"
	"reelist/internal/testsupport"
)

// stubAPI implements remote.API in memory. Mutation endpoints return
// mutateErr (or whatever onMutate decides) and record their call names
// in order; fetch endpoints serve canned collections.
type stubAPI struct {
	mu        sync.Mutex
	calls     []string
	mutateErr error
	fetchErr  error
	movies    []remote.Movie
	people    []remote.Person
	results   []remote.SearchResult
	refreshed *remote.Movie
	onMutate  func(name string) error
}

func (s *stubAPI) mutate(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	if s.onMutate != nil {
		return s.onMutate(name)
	}
	return s.mutateErr
}

func (s *stubAPI) setMutateErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutateErr = err
}

func (s *stubAPI) callNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubAPI) countCalls(name string) int {
	count := 0
	for _, call := range s.callNames() {
		if call == name {
			count++
		}
	}
	return count
}

func (s *stubAPI) FetchMovies(context.Context) ([]remote.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "fetchMovies")
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]remote.Movie(nil), s.movies...), nil
}

func (s *stubAPI) FetchPeople(context.Context) ([]remote.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "fetchPeople")
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]remote.Person(nil), s.people...), nil
}

func (s *stubAPI) AddRecommendation(_ context.Context, _ string, _ remote.AddRecommendationRequest) error {
	return s.mutate("addRecommendation")
}

func (s *stubAPI) AddRecommendationsBulk(_ context.Context, _ string, _ remote.BulkRecommendationsRequest) error {
	return s.mutate("addRecommendationsBulk")
}

func (s *stubAPI) RemoveRecommendation(_ context.Context, _, _ string) error {
	return s.mutate("removeRecommendation")
}

func (s *stubAPI) MarkWatched(_ context.Context, _ string, _ remote.WatchRequest) error {
	return s.mutate("markWatched")
}

func (s *stubAPI) UpdateStatus(_ context.Context, _ string, _ remote.StatusRequest) error {
	return s.mutate("updateStatus")
}

func (s *stubAPI) UpdatePerson(_ context.Context, _ string, _ remote.PersonUpdateRequest) error {
	return s.mutate("updatePerson")
}

func (s *stubAPI) RefreshMetadata(context.Context, string) (*remote.Movie, error) {
	if err := s.mutate("refreshMetadata"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshed, nil
}

func (s *stubAPI) Search(context.Context, string) ([]remote.SearchResult, error) {
	if err := s.mutate("search"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.SearchResult(nil), s.results...), nil
}

func connectivityErr() error {
	return &remote.Error{Operation: "stub", StatusCode: 503, Reason: "service unavailable", Connectivity: true}
}

func rejectionErr() error {
	return &remote.Error{Operation: "stub", StatusCode: 409, Reason: "conflict"}
}

func newEngine(t *testing.T, api remote.API, opts ...testsupport.ConfigOption) (*engine.Engine, *store.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	eng := engine.New(cfg, st, api, logging.NewNop())
	return eng, st, cfg
}

func pendingCount(t *testing.T, st *store.Store) int {
	t.Helper()
	ops, err := st.PendingOperations(context.Background())
	if err != nil {
		t.Fatalf("PendingOperations: %v", err)
	}
	return len(ops)
}
