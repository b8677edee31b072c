package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LastPull returns the timestamp of the last successful full pull for the
// entity kind, or the zero time when no pull has completed yet.
func (s *Store) LastPull(ctx context.Context, kind EntityKind) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT last_pull FROM sync_state WHERE kind = ?`, kind).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last pull: %w", err)
	}
	pulled, err := parseTimeString(raw)
	if err != nil {
		return time.Time{}, nil
	}
	return pulled, nil
}

// SetLastPull records a successful full pull for the entity kind.
func (s *Store) SetLastPull(ctx context.Context, kind EntityKind, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO sync_state (kind, last_pull) VALUES (?, ?)
             ON CONFLICT(kind) DO UPDATE SET last_pull = excluded.last_pull`,
			kind,
			formatTime(at),
		)
		if err != nil {
			return fmt.Errorf("record last pull: %w", err)
		}
		return nil
	})
}
