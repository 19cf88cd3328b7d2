package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

const conversationColumns = "id, party_a, party_b, status, started_at, ended_at, message_count"

type rowScanner interface {
	Scan(dest ...any) error
}

func (c *conn) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	query := c.rebind(`
		INSERT INTO conversations (party_a, party_b, status, started_at, message_count)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	return c.q.QueryRowContext(ctx, query,
		conv.PartyA, conv.PartyB, conv.Status, conv.StartedAt, conv.MessageCount,
	).Scan(&conv.ID)
}

func (c *conn) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	query := c.rebind("SELECT " + conversationColumns + " FROM conversations WHERE id = ?")
	conv, err := scanConversation(c.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return conv, nil
}

func (c *conn) ActiveConversationFor(ctx context.Context, participantID int64) (*models.Conversation, error) {
	query := c.rebind(`
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE (party_a = ? OR party_b = ?) AND status = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`)
	conv, err := scanConversation(c.q.QueryRowContext(ctx, query, participantID, participantID, models.StatusActive))
	if err != nil {
		return nil, notFound(err)
	}
	return conv, nil
}

func (c *conn) EndConversation(ctx context.Context, id int64, endedAt time.Time) error {
	query := c.rebind("UPDATE conversations SET status = ?, ended_at = ? WHERE id = ? AND status = ?")
	result, err := c.q.ExecContext(ctx, query, models.StatusEnded, endedAt, id, models.StatusActive)
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

func (c *conn) IncrementMessageCount(ctx context.Context, id int64) error {
	query := c.rebind("UPDATE conversations SET message_count = message_count + 1 WHERE id = ?")
	result, err := c.q.ExecContext(ctx, query, id)
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

func (c *conn) AddMessage(ctx context.Context, m *models.ConversationMessage) error {
	query := c.rebind(`
		INSERT INTO conversation_messages (conversation_id, sender_id, text, kind, sent_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	return c.q.QueryRowContext(ctx, query, m.ConversationID, m.SenderID, m.Text, m.Kind, m.SentAt).Scan(&m.ID)
}

func (c *conn) GetConversationMessages(ctx context.Context, conversationID int64) ([]models.ConversationMessage, error) {
	query := c.rebind(`
		SELECT id, conversation_id, sender_id, text, kind, sent_at
		FROM conversation_messages
		WHERE conversation_id = ?
		ORDER BY sent_at ASC, id ASC
	`)
	return c.queryMessages(ctx, query, conversationID)
}

func (c *conn) CountConversations(ctx context.Context, status models.ConversationStatus) (int, error) {
	var n int
	if status == "" {
		err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&n)
		return n, err
	}
	err := c.q.QueryRowContext(ctx, c.rebind("SELECT COUNT(*) FROM conversations WHERE status = ?"), status).Scan(&n)
	return n, err
}

func (c *conn) CountConversationsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx, c.rebind("SELECT COUNT(*) FROM conversations WHERE started_at >= ?"), since).Scan(&n)
	return n, err
}

func (c *conn) CountMessagesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx, c.rebind("SELECT COUNT(*) FROM conversation_messages WHERE sent_at >= ?"), since).Scan(&n)
	return n, err
}

func (c *conn) ListActiveConversations(ctx context.Context) ([]models.Conversation, error) {
	query := c.rebind("SELECT " + conversationColumns + " FROM conversations WHERE status = ? ORDER BY started_at ASC, id ASC")
	return c.queryConversations(ctx, query, models.StatusActive)
}

// ListConversations pages through every conversation, newest first.
func (c *conn) ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error) {
	query := c.rebind("SELECT " + conversationColumns + " FROM conversations ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?")
	return c.queryConversations(ctx, query, limit, offset)
}

func (c *conn) RecentMessages(ctx context.Context, limit int) ([]models.ConversationMessage, error) {
	query := c.rebind(`
		SELECT id, conversation_id, sender_id, text, kind, sent_at
		FROM conversation_messages
		ORDER BY sent_at DESC, id DESC
		LIMIT ?
	`)
	return c.queryMessages(ctx, query, limit)
}

func (c *conn) queryConversations(ctx context.Context, query string, args ...any) ([]models.Conversation, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

func (c *conn) queryMessages(ctx context.Context, query string, args ...any) ([]models.ConversationMessage, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Kind, &m.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		conv    models.Conversation
		endedAt sql.NullTime
	)
	if err := row.Scan(&conv.ID, &conv.PartyA, &conv.PartyB, &conv.Status, &conv.StartedAt, &endedAt, &conv.MessageCount); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		conv.EndedAt = &t
	}
	return &conv, nil
}
