package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddUnresolved records an intent to add a movie known only by free text.
func (s *Store) AddUnresolved(ctx context.Context, title, recommender string) (*PendingUnresolvedItem, error) {
	title = strings.TrimSpace(title)
	recommender = strings.TrimSpace(recommender)
	if title == "" {
		return nil, errors.New("unresolved item requires a title")
	}
	if recommender == "" {
		return nil, errors.New("unresolved item requires a recommender")
	}

	item := &PendingUnresolvedItem{
		ID:          uuid.NewString(),
		Title:       title,
		Recommender: recommender,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO pending_unresolved (id, title, recommender, created_at) VALUES (?, ?, ?, ?)`,
			item.ID,
			item.Title,
			item.Recommender,
			formatTime(item.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("add unresolved item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetUnresolved fetches an unresolved item by id. Returns nil when absent.
func (s *Store) GetUnresolved(ctx context.Context, id string) (*PendingUnresolvedItem, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, title, recommender, created_at FROM pending_unresolved WHERE id = ?`,
		id,
	)
	item, err := scanUnresolved(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unresolved item: %w", err)
	}
	return item, nil
}

// ListUnresolved returns captured intents in creation order.
func (s *Store) ListUnresolved(ctx context.Context) ([]*PendingUnresolvedItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title, recommender, created_at FROM pending_unresolved ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list unresolved items: %w", err)
	}
	defer rows.Close()

	var items []*PendingUnresolvedItem
	for rows.Next() {
		item, err := scanUnresolved(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteUnresolved removes an item by id.
func (s *Store) DeleteUnresolved(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM pending_unresolved WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete unresolved item: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}

func scanUnresolved(scanner interface{ Scan(dest ...any) error }) (*PendingUnresolvedItem, error) {
	var (
		item       PendingUnresolvedItem
		createdRaw string
	)
	if err := scanner.Scan(&item.ID, &item.Title, &item.Recommender, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	return &item, nil
}
