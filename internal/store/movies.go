package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const movieColumns = "imdb_id, title, metadata_json, status, my_rating, watched_at, last_modified"

// UpsertMovies writes the batch atomically: either every record (and its
// recommendation set) becomes visible or none does.
func (s *Store) UpsertMovies(ctx context.Context, records []*MovieRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, record := range records {
			if err := upsertMovieTx(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceMovies swaps the entire movie collection for the authoritative set
// from a full pull.
func (s *Store) ReplaceMovies(ctx context.Context, records []*MovieRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations`); err != nil {
			return fmt.Errorf("clear recommendations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM movies`); err != nil {
			return fmt.Errorf("clear movies: %w", err)
		}
		for _, record := range records {
			if err := upsertMovieTx(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertMovieTx(ctx context.Context, tx *sql.Tx, record *MovieRecord) error {
	if record == nil || record.IMDBID == "" {
		return errors.New("movie record requires an imdb id")
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO movies (imdb_id, title, metadata_json, status, my_rating, watched_at, last_modified)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(imdb_id) DO UPDATE SET
             title = excluded.title,
             metadata_json = excluded.metadata_json,
             status = excluded.status,
             my_rating = excluded.my_rating,
             watched_at = excluded.watched_at,
             last_modified = excluded.last_modified`,
		record.IMDBID,
		record.Title,
		string(metadataJSON),
		record.Status,
		nullableFloat(record.MyRating),
		nullableTime(record.WatchedAt),
		formatTime(record.LastModified),
	)
	if err != nil {
		return fmt.Errorf("upsert movie %s: %w", record.IMDBID, err)
	}

	// The recommendation set is replaced wholesale so upserts stay idempotent.
	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE imdb_id = ?`, record.IMDBID); err != nil {
		return fmt.Errorf("clear recommendations for %s: %w", record.IMDBID, err)
	}
	for _, rec := range record.Recommendations {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO recommendations (imdb_id, person, vote, recommended_at) VALUES (?, ?, ?, ?)`,
			record.IMDBID,
			rec.Person,
			rec.Vote,
			formatTime(rec.RecommendedAt),
		)
		if err != nil {
			return fmt.Errorf("insert recommendation %s/%s: %w", record.IMDBID, rec.Person, err)
		}
	}
	return nil
}

// GetMovie fetches a movie and its recommendation set. Returns nil when the
// record is absent.
func (s *Store) GetMovie(ctx context.Context, imdbID string) (*MovieRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE imdb_id = ?`, imdbID)
	record, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	if err := s.loadRecommendations(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListMovies returns every cached movie ordered by title.
func (s *Store) ListMovies(ctx context.Context) ([]*MovieRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title, imdb_id`)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var records []*MovieRecord
	for rows.Next() {
		record, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, record := range records {
		if err := s.loadRecommendations(ctx, record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// DeleteMovie removes a movie and its recommendation set.
func (s *Store) DeleteMovie(ctx context.Context, imdbID string) (bool, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE imdb_id = ?`, imdbID); err != nil {
			return fmt.Errorf("delete recommendations: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE imdb_id = ?`, imdbID)
		if err != nil {
			return fmt.Errorf("delete movie: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}

func (s *Store) loadRecommendations(ctx context.Context, record *MovieRecord) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT person, vote, recommended_at FROM recommendations WHERE imdb_id = ? ORDER BY recommended_at, person`,
		record.IMDBID,
	)
	if err != nil {
		return fmt.Errorf("load recommendations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			person  string
			vote    string
			rawTime string
		)
		if err := rows.Scan(&person, &vote, &rawTime); err != nil {
			return err
		}
		rec := Recommendation{Person: person, Vote: VoteKind(vote)}
		if recommendedAt, err := parseTimeString(rawTime); err == nil {
			rec.RecommendedAt = recommendedAt
		}
		record.Recommendations = append(record.Recommendations, rec)
	}
	return rows.Err()
}

func scanMovie(scanner interface{ Scan(dest ...any) error }) (*MovieRecord, error) {
	var (
		imdbID      string
		title       string
		metadata    sql.NullString
		statusStr   string
		myRating    sql.NullFloat64
		watchedRaw  sql.NullString
		modifiedRaw sql.NullString
	)

	if err := scanner.Scan(&imdbID, &title, &metadata, &statusStr, &myRating, &watchedRaw, &modifiedRaw); err != nil {
		return nil, err
	}

	record := &MovieRecord{
		IMDBID: imdbID,
		Title:  title,
		Status: Status(statusStr),
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", imdbID, err)
		}
	}
	if myRating.Valid {
		rating := myRating.Float64
		record.MyRating = &rating
	}
	if watchedRaw.Valid {
		if watched, err := parseTimeString(watchedRaw.String); err == nil {
			record.WatchedAt = &watched
		}
	}
	if modified, err := parseTimeString(modifiedRaw.String); err == nil {
		record.LastModified = modified
	}
	return record, nil
}
