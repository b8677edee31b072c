package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the watch state of a movie record.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWatched Status = "watched"
	StatusListed  Status = "listed"
	StatusRemoved Status = "removed"
)

var statusSet = map[Status]struct{}{
	StatusQueued:  {},
	StatusWatched: {},
	StatusListed:  {},
	StatusRemoved: {},
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[normalized]
	return normalized, ok
}

// VoteKind distinguishes up and down recommendation votes.
type VoteKind string

const (
	VoteUp   VoteKind = "up"
	VoteDown VoteKind = "down"
)

// ParseVote converts a string into a known VoteKind.
func ParseVote(value string) (VoteKind, bool) {
	switch VoteKind(strings.ToLower(strings.TrimSpace(value))) {
	case VoteUp:
		return VoteUp, true
	case VoteDown:
		return VoteDown, true
	}
	return "", false
}

// Metadata is the immutable descriptive snapshot captured when a movie enters
// the store. It is replaced wholesale on metadata refresh, never edited
// field by field.
type Metadata struct {
	Year            int               `json:"year,omitempty"`
	Genres          []string          `json:"genres,omitempty"`
	Director        string            `json:"director,omitempty"`
	Cast            []string          `json:"cast,omitempty"`
	PosterURL       string            `json:"poster_url,omitempty"`
	ExternalRatings map[string]string `json:"external_ratings,omitempty"`
}

// Recommendation records one person's vote on a movie. A movie holds at most
// one recommendation per person.
type Recommendation struct {
	Person        string
	Vote          VoteKind
	RecommendedAt time.Time
}

// MovieRecord is the cached representation of a movie, keyed by its stable
// external catalog identifier.
type MovieRecord struct {
	IMDBID          string
	Title           string
	Metadata        Metadata
	Status          Status
	MyRating        *float64
	WatchedAt       *time.Time
	Recommendations []Recommendation
	LastModified    time.Time
}

// Clone returns a deep copy suitable for rollback snapshots.
func (m *MovieRecord) Clone() *MovieRecord {
	if m == nil {
		return nil
	}
	cp := *m
	if m.MyRating != nil {
		rating := *m.MyRating
		cp.MyRating = &rating
	}
	if m.WatchedAt != nil {
		watched := *m.WatchedAt
		cp.WatchedAt = &watched
	}
	cp.Recommendations = make([]Recommendation, len(m.Recommendations))
	copy(cp.Recommendations, m.Recommendations)
	cp.Metadata.Genres = append([]string(nil), m.Metadata.Genres...)
	cp.Metadata.Cast = append([]string(nil), m.Metadata.Cast...)
	if m.Metadata.ExternalRatings != nil {
		cp.Metadata.ExternalRatings = make(map[string]string, len(m.Metadata.ExternalRatings))
		for k, v := range m.Metadata.ExternalRatings {
			cp.Metadata.ExternalRatings[k] = v
		}
	}
	return &cp
}

// RecommendationFor returns the recommendation from the named person, matched
// case-insensitively.
func (m *MovieRecord) RecommendationFor(person string) (Recommendation, bool) {
	for _, rec := range m.Recommendations {
		if strings.EqualFold(rec.Person, person) {
			return rec, true
		}
	}
	return Recommendation{}, false
}

// PersonRecord is a recommender. RecommendationCount is derived from movie
// records after every full pull and must not be mutated directly.
type PersonRecord struct {
	Name                string
	Trusted             bool
	RecommendationCount int
}

// OperationKind enumerates the mutation types the pending queue can replay.
type OperationKind string

const (
	OpAddMovie             OperationKind = "addMovie"
	OpAddMovieBulk         OperationKind = "addMovieBulk"
	OpAddRecommendation    OperationKind = "addRecommendation"
	OpRemoveRecommendation OperationKind = "removeRecommendation"
	OpUpdateMovie          OperationKind = "updateMovie"
	OpUpdatePerson         OperationKind = "updatePerson"
)

// PendingOperation is a durable record of a mutation awaiting remote
// confirmation. The payload encodes the original intent so a replay
// reconstructs the same request.
type PendingOperation struct {
	ID         string
	Kind       OperationKind
	Payload    json.RawMessage
	RetryCount int
	CreatedAt  time.Time
}

// FailedOperation is a pending operation that exhausted its retries (or
// carried an undecodable payload) and was removed from the replay queue.
type FailedOperation struct {
	ID       string
	Kind     OperationKind
	Payload  json.RawMessage
	Reason   string
	FailedAt time.Time
}

// PendingUnresolvedItem captures recommendation intent recorded from free
// text while no catalog identifier was resolvable.
type PendingUnresolvedItem struct {
	ID          string
	Title       string
	Recommender string
	CreatedAt   time.Time
}

// EntityKind names a pullable collection for refresh throttling.
type EntityKind string

const (
	KindMovies EntityKind = "movies"
	KindPeople EntityKind = "people"
)
