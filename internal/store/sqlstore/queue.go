package sqlstore

import (
	"context"
	"database/sql"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

func (c *conn) CreateWaitingEntry(ctx context.Context, e *models.WaitingEntry) error {
	query := c.rebind("INSERT INTO waiting_entries (participant_id, enqueued_at) VALUES (?, ?) RETURNING id")
	err := c.q.QueryRowContext(ctx, query, e.ParticipantID, e.EnqueuedAt).Scan(&e.ID)
	if isUniqueViolation(err) {
		return store.ErrAlreadyWaiting
	}
	return err
}

func (c *conn) GetWaitingEntry(ctx context.Context, participantID int64) (*models.WaitingEntry, error) {
	query := c.rebind("SELECT id, participant_id, enqueued_at FROM waiting_entries WHERE participant_id = ?")
	return scanWaitingEntry(c.q.QueryRowContext(ctx, query, participantID))
}

// OldestWaitingEntry returns the earliest queued entry that does not belong to
// excludeParticipantID. Ties on enqueue time fall back to insertion order.
func (c *conn) OldestWaitingEntry(ctx context.Context, excludeParticipantID int64) (*models.WaitingEntry, error) {
	query := `
		SELECT id, participant_id, enqueued_at
		FROM waiting_entries
		WHERE participant_id <> ?
		ORDER BY enqueued_at ASC, id ASC
		LIMIT 1
	`
	if c.isPostgres() {
		query += " FOR UPDATE SKIP LOCKED"
	}
	return scanWaitingEntry(c.q.QueryRowContext(ctx, c.rebind(query), excludeParticipantID))
}

func (c *conn) DeleteWaitingEntry(ctx context.Context, participantID int64) (bool, error) {
	query := c.rebind("DELETE FROM waiting_entries WHERE participant_id = ?")
	result, err := c.q.ExecContext(ctx, query, participantID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (c *conn) CountWaiting(ctx context.Context) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM waiting_entries").Scan(&n)
	return n, err
}

func (c *conn) ListWaitingEntries(ctx context.Context) ([]models.WaitingEntry, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT id, participant_id, enqueued_at FROM waiting_entries ORDER BY enqueued_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WaitingEntry
	for rows.Next() {
		var e models.WaitingEntry
		if err := rows.Scan(&e.ID, &e.ParticipantID, &e.EnqueuedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanWaitingEntry(row *sql.Row) (*models.WaitingEntry, error) {
	var e models.WaitingEntry
	if err := row.Scan(&e.ID, &e.ParticipantID, &e.EnqueuedAt); err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}
