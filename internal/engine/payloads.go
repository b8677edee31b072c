package engine

import (
	"encoding/json"
	"fmt"

	"reelist/internal/remote"
	"reelist/internal/store"
)

// Queued payloads encode the original intent of a mutation, never its
// optimistic result, so a replay reconstructs the exact request that
// would have been sent at mutation time.

type recommenderPayload struct {
	Person        string  `json:"person"`
	Vote          string  `json:"vote"`
	RecommendedAt float64 `json:"recommended_at"`
}

type addMoviePayload struct {
	IMDBID       string               `json:"imdb_id"`
	Title        string               `json:"title"`
	Metadata     *store.Metadata      `json:"metadata,omitempty"`
	Recommenders []recommenderPayload `json:"recommenders"`
}

type removeRecommendationPayload struct {
	IMDBID string `json:"imdb_id"`
	Person string `json:"person"`
}

type updateMoviePayload struct {
	IMDBID    string   `json:"imdb_id"`
	Status    string   `json:"status,omitempty"`
	MyRating  *float64 `json:"my_rating,omitempty"`
	WatchedAt *float64 `json:"watched_at,omitempty"`
}

type updatePersonPayload struct {
	Name    string `json:"name"`
	Trusted bool   `json:"trusted"`
}

func (p addMoviePayload) requests() []remote.AddRecommendationRequest {
	reqs := make([]remote.AddRecommendationRequest, 0, len(p.Recommenders))
	for _, rec := range p.Recommenders {
		reqs = append(reqs, remote.AddRecommendationRequest{
			Person:          rec.Person,
			VoteType:        rec.Vote,
			DateRecommended: rec.RecommendedAt,
		})
	}
	return reqs
}

func decodePayload[T any](op *store.PendingOperation) (T, error) {
	var payload T
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s operation %s: %v", errUndecodablePayload, op.Kind, op.ID, err)
	}
	return payload, nil
}
