package engine

import (
	"strings"
	"time"

	"reelist/internal/store"
)

// Pure optimistic transforms. Each takes the current record (or nil) and
// returns the state the local store should show while the remote call is
// in flight. Callers snapshot the input with Clone before applying.

func applyRecommendations(current *store.MovieRecord, imdbID, title string, metadata *store.Metadata, recs []store.Recommendation, now time.Time) *store.MovieRecord {
	record := current.Clone()
	if record == nil {
		record = &store.MovieRecord{
			IMDBID: imdbID,
			Title:  title,
			Status: store.StatusQueued,
		}
		if metadata != nil {
			record.Metadata = *metadata
		}
	}
	for _, rec := range recs {
		if _, exists := record.RecommendationFor(rec.Person); exists {
			continue
		}
		record.Recommendations = append(record.Recommendations, rec)
	}
	record.LastModified = now
	return record
}

func applyRemoveRecommendation(current *store.MovieRecord, person string, now time.Time) *store.MovieRecord {
	record := current.Clone()
	kept := record.Recommendations[:0]
	for _, rec := range record.Recommendations {
		if strings.EqualFold(rec.Person, person) {
			continue
		}
		kept = append(kept, rec)
	}
	record.Recommendations = kept
	record.LastModified = now
	return record
}

func applyWatched(current *store.MovieRecord, rating float64, watchedAt, now time.Time) *store.MovieRecord {
	record := current.Clone()
	record.Status = store.StatusWatched
	record.MyRating = &rating
	record.WatchedAt = &watchedAt
	record.LastModified = now
	return record
}

// applyStatus moves a record between watch states. Leaving the watched
// state clears the watch timestamp and rating so they never outlive it.
func applyStatus(current *store.MovieRecord, status store.Status, now time.Time) *store.MovieRecord {
	record := current.Clone()
	record.Status = status
	if status == store.StatusWatched {
		if record.WatchedAt == nil {
			watched := now
			record.WatchedAt = &watched
		}
	} else {
		record.WatchedAt = nil
		record.MyRating = nil
	}
	record.LastModified = now
	return record
}

func applyTrust(current *store.PersonRecord, trusted bool) *store.PersonRecord {
	updated := *current
	updated.Trusted = trusted
	return &updated
}
