package remote

import (
	"math"
	"time"

	"reelist/internal/store"
)

// Movie is the wire representation of a movie record. Timestamps travel as
// unix seconds to match the service's serialization.
type Movie struct {
	IMDBID          string           `json:"imdb_id"`
	Title           string           `json:"title"`
	Metadata        *store.Metadata  `json:"metadata,omitempty"`
	Status          string           `json:"status,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	WatchHistory    *WatchHistory    `json:"watch_history,omitempty"`
	LastModified    float64          `json:"last_modified"`
}

// Recommendation is one person's vote on the wire.
type Recommendation struct {
	Person          string  `json:"person"`
	VoteType        string  `json:"vote_type"`
	DateRecommended float64 `json:"date_recommended"`
}

// WatchHistory carries the watched timestamp and rating on the wire.
type WatchHistory struct {
	DateWatched float64 `json:"date_watched"`
	MyRating    float64 `json:"my_rating"`
}

// Person is the wire representation of a recommender.
type Person struct {
	Name      string `json:"name"`
	IsTrusted bool   `json:"is_trusted"`
}

// SearchResult is one catalog match for free-text disambiguation.
type SearchResult struct {
	IMDBID    string `json:"imdb_id"`
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	PosterURL string `json:"poster_url,omitempty"`
}

// AddRecommendationRequest creates a recommendation (and the movie itself
// when the server does not know the catalog key yet).
type AddRecommendationRequest struct {
	Person          string          `json:"person"`
	VoteType        string          `json:"vote_type"`
	DateRecommended float64         `json:"date_recommended,omitempty"`
	Title           string          `json:"title,omitempty"`
	Metadata        *store.Metadata `json:"metadata,omitempty"`
}

// BulkRecommendationsRequest groups several recommenders into one atomic call.
type BulkRecommendationsRequest struct {
	Title           string                     `json:"title,omitempty"`
	Metadata        *store.Metadata            `json:"metadata,omitempty"`
	Recommendations []AddRecommendationRequest `json:"recommendations"`
}

// WatchRequest marks a movie watched with a rating.
type WatchRequest struct {
	DateWatched float64 `json:"date_watched"`
	MyRating    float64 `json:"my_rating"`
}

// StatusRequest changes a movie's watch state.
type StatusRequest struct {
	Status string `json:"status"`
}

// PersonUpdateRequest changes a recommender's trust flag.
type PersonUpdateRequest struct {
	IsTrusted bool `json:"is_trusted"`
}

// Record converts the wire movie into a store record.
func (m Movie) Record() *store.MovieRecord {
	record := &store.MovieRecord{
		IMDBID:       m.IMDBID,
		Title:        m.Title,
		Status:       store.StatusQueued,
		LastModified: unixToTime(m.LastModified),
	}
	if m.Metadata != nil {
		record.Metadata = *m.Metadata
	}
	if status, ok := store.ParseStatus(m.Status); ok {
		record.Status = status
	}
	if m.WatchHistory != nil {
		watched := unixToTime(m.WatchHistory.DateWatched)
		rating := m.WatchHistory.MyRating
		record.WatchedAt = &watched
		record.MyRating = &rating
	}
	for _, rec := range m.Recommendations {
		vote, ok := store.ParseVote(rec.VoteType)
		if !ok {
			vote = store.VoteUp
		}
		record.Recommendations = append(record.Recommendations, store.Recommendation{
			Person:        rec.Person,
			Vote:          vote,
			RecommendedAt: unixToTime(rec.DateRecommended),
		})
	}
	return record
}

// Record converts the wire person into a store record. The recommendation
// count is derived locally after the movie pull, never taken from the wire.
func (p Person) Record() *store.PersonRecord {
	return &store.PersonRecord{Name: p.Name, Trusted: p.IsTrusted}
}

func unixToTime(seconds float64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}

// TimeToUnix converts a timestamp to wire seconds.
func TimeToUnix(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
