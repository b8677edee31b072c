package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueueOperation appends a mutation to the durable replay queue and returns
// the stored record. The payload must encode the original intent, not the
// optimistic result.
func (s *Store) EnqueueOperation(ctx context.Context, kind OperationKind, payload any) (*PendingOperation, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	op := &PendingOperation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   encoded,
		CreatedAt: time.Now().UTC(),
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO pending_operations (id, kind, payload, retry_count, created_at) VALUES (?, ?, ?, 0, ?)`,
			op.ID,
			op.Kind,
			string(op.Payload),
			formatTime(op.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("enqueue operation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// PendingOperations returns the queue in creation order (FIFO).
func (s *Store) PendingOperations(ctx context.Context) ([]*PendingOperation, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, kind, payload, retry_count, created_at FROM pending_operations ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending operations: %w", err)
	}
	defer rows.Close()

	var ops []*PendingOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// DeleteOperation removes a confirmed (or abandoned) entry from the queue.
func (s *Store) DeleteOperation(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM pending_operations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete operation: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}

// IncrementRetry bumps an entry's retry counter and returns the new count.
func (s *Store) IncrementRetry(ctx context.Context, id string) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE pending_operations SET retry_count = retry_count + 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("increment retry: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("operation %s not found", id)
		}
		row := tx.QueryRowContext(ctx, `SELECT retry_count FROM pending_operations WHERE id = ?`, id)
		return row.Scan(&count)
	})
	return count, err
}

// MarkOperationFailed moves an entry out of the replay queue into the
// failed-changes list so the drop is visible rather than silent.
func (s *Store) MarkOperationFailed(ctx context.Context, op *PendingOperation, reason string) error {
	if op == nil {
		return errors.New("operation is nil")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_operations WHERE id = ?`, op.ID); err != nil {
			return fmt.Errorf("remove failed operation: %w", err)
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO failed_operations (id, kind, payload, reason, failed_at) VALUES (?, ?, ?, ?, ?)`,
			op.ID,
			op.Kind,
			string(op.Payload),
			nullableString(reason),
			formatTime(time.Now().UTC()),
		)
		if err != nil {
			return fmt.Errorf("record failed operation: %w", err)
		}
		return nil
	})
}

// FailedOperations lists dropped operations, newest first.
func (s *Store) FailedOperations(ctx context.Context) ([]*FailedOperation, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, kind, payload, reason, failed_at FROM failed_operations ORDER BY failed_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list failed operations: %w", err)
	}
	defer rows.Close()

	var ops []*FailedOperation
	for rows.Next() {
		var (
			op        FailedOperation
			kind      string
			payload   string
			reason    sql.NullString
			failedRaw string
		)
		if err := rows.Scan(&op.ID, &kind, &payload, &reason, &failedRaw); err != nil {
			return nil, err
		}
		op.Kind = OperationKind(kind)
		op.Payload = json.RawMessage(payload)
		op.Reason = reason.String
		if failedAt, err := parseTimeString(failedRaw); err == nil {
			op.FailedAt = failedAt
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

// ClearFailedOperations empties the failed-changes list.
func (s *Store) ClearFailedOperations(ctx context.Context) (int64, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM failed_operations`)
		if err != nil {
			return fmt.Errorf("clear failed operations: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

func scanOperation(scanner interface{ Scan(dest ...any) error }) (*PendingOperation, error) {
	var (
		op         PendingOperation
		kind       string
		payload    string
		createdRaw string
	)
	if err := scanner.Scan(&op.ID, &kind, &payload, &op.RetryCount, &createdRaw); err != nil {
		return nil, err
	}
	op.Kind = OperationKind(kind)
	op.Payload = json.RawMessage(payload)
	if created, err := parseTimeString(createdRaw); err == nil {
		op.CreatedAt = created
	}
	return &op, nil
}
