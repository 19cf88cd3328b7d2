package sqlstore

import (
	"context"
	"database/sql"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

const participantColumns = "id, external_id, username, first_name, last_name, is_active, created_at, last_seen"

func (c *conn) CreateParticipant(ctx context.Context, p *models.Participant) error {
	query := c.rebind(`
		INSERT INTO participants (external_id, username, first_name, last_name, is_active, created_at, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := c.q.QueryRowContext(ctx, query,
		p.ExternalID, p.Username, p.FirstName, p.LastName, p.IsActive, p.CreatedAt, p.LastSeen,
	).Scan(&p.ID)
	return err
}

func (c *conn) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	query := c.rebind("UPDATE participants SET username = ?, first_name = ?, last_name = ?, is_active = ?, last_seen = ? WHERE id = ?")
	result, err := c.q.ExecContext(ctx, query, p.Username, p.FirstName, p.LastName, p.IsActive, p.LastSeen, p.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c *conn) GetParticipantByID(ctx context.Context, id int64) (*models.Participant, error) {
	query := c.rebind("SELECT " + participantColumns + " FROM participants WHERE id = ?")
	return scanParticipant(c.q.QueryRowContext(ctx, query, id))
}

func (c *conn) GetParticipantByExternalID(ctx context.Context, externalID string) (*models.Participant, error) {
	query := c.rebind("SELECT " + participantColumns + " FROM participants WHERE external_id = ?")
	return scanParticipant(c.q.QueryRowContext(ctx, query, externalID))
}

func (c *conn) CountParticipants(ctx context.Context) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM participants").Scan(&n)
	return n, err
}

func scanParticipant(row *sql.Row) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(&p.ID, &p.ExternalID, &p.Username, &p.FirstName, &p.LastName, &p.IsActive, &p.CreatedAt, &p.LastSeen)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
