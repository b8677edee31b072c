package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertPeople writes the batch atomically. Names collate case-insensitively,
// so "alice" updates an existing "Alice" while preserving the stored casing.
func (s *Store) UpsertPeople(ctx context.Context, records []*PersonRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, record := range records {
			if err := upsertPersonTx(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplacePeople swaps the entire person collection for the authoritative set
// from a full pull.
func (s *Store) ReplacePeople(ctx context.Context, records []*PersonRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM people`); err != nil {
			return fmt.Errorf("clear people: %w", err)
		}
		for _, record := range records {
			if err := upsertPersonTx(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertPersonTx(ctx context.Context, tx *sql.Tx, record *PersonRecord) error {
	if record == nil || record.Name == "" {
		return errors.New("person record requires a name")
	}
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO people (name, trusted, recommendation_count) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET
             trusted = excluded.trusted,
             recommendation_count = excluded.recommendation_count`,
		record.Name,
		boolToInt(record.Trusted),
		record.RecommendationCount,
	)
	if err != nil {
		return fmt.Errorf("upsert person %s: %w", record.Name, err)
	}
	return nil
}

// GetPerson fetches a person by name, matched case-insensitively. Returns nil
// when absent.
func (s *Store) GetPerson(ctx context.Context, name string) (*PersonRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT name, trusted, recommendation_count FROM people WHERE name = ?`,
		name,
	)
	record, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return record, nil
}

// ListPeople returns every recommender ordered by name.
func (s *Store) ListPeople(ctx context.Context) ([]*PersonRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, trusted, recommendation_count FROM people ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var records []*PersonRecord
	for rows.Next() {
		record, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeletePerson removes a recommender, matched case-insensitively.
func (s *Store) DeletePerson(ctx context.Context, name string) (bool, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM people WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("delete person: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}

// RecomputeRecommendationCounts rederives every person's recommendation count
// from the movie records. Run after each full pull so counts reflect server
// truth rather than optimistic guesses.
func (s *Store) RecomputeRecommendationCounts(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE people SET recommendation_count = 0`); err != nil {
			return fmt.Errorf("reset recommendation counts: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
            UPDATE people SET recommendation_count = (
                SELECT COUNT(1) FROM recommendations r WHERE r.person = people.name COLLATE NOCASE
            )`)
		if err != nil {
			return fmt.Errorf("recompute recommendation counts: %w", err)
		}
		return nil
	})
}

func scanPerson(scanner interface{ Scan(dest ...any) error }) (*PersonRecord, error) {
	var (
		name    string
		trusted int
		count   int
	)
	if err := scanner.Scan(&name, &trusted, &count); err != nil {
		return nil, err
	}
	return &PersonRecord{Name: name, Trusted: trusted != 0, RecommendationCount: count}, nil
}
