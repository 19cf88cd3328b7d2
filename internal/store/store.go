package store

import (
	"context"
	"errors"
	"time"

	"github.com/pliu/anonchat/internal/models"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrAlreadyWaiting = errors.New("store: participant already waiting")
	ErrUnavailable    = errors.New("store: unavailable")
)

// Tx is the set of record operations available both directly on a Store and
// inside Store.Atomic. Lookups return ErrNotFound when nothing matches.
type Tx interface {
	// Participant operations
	CreateParticipant(ctx context.Context, p *models.Participant) error
	UpdateParticipant(ctx context.Context, p *models.Participant) error
	GetParticipantByID(ctx context.Context, id int64) (*models.Participant, error)
	GetParticipantByExternalID(ctx context.Context, externalID string) (*models.Participant, error)

	// Waiting queue operations
	CreateWaitingEntry(ctx context.Context, e *models.WaitingEntry) error
	GetWaitingEntry(ctx context.Context, participantID int64) (*models.WaitingEntry, error)
	OldestWaitingEntry(ctx context.Context, excludeParticipantID int64) (*models.WaitingEntry, error)
	DeleteWaitingEntry(ctx context.Context, participantID int64) (bool, error)

	// Conversation operations
	CreateConversation(ctx context.Context, c *models.Conversation) error
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	ActiveConversationFor(ctx context.Context, participantID int64) (*models.Conversation, error)
	EndConversation(ctx context.Context, id int64, endedAt time.Time) error
	IncrementMessageCount(ctx context.Context, id int64) error
	AddMessage(ctx context.Context, m *models.ConversationMessage) error
	GetConversationMessages(ctx context.Context, conversationID int64) ([]models.ConversationMessage, error)
}

// Reader holds the read-only projections used by the dashboard.
type Reader interface {
	CountParticipants(ctx context.Context) (int, error)
	// CountConversations counts conversations with the given status, or all
	// of them when status is empty.
	CountConversations(ctx context.Context, status models.ConversationStatus) (int, error)
	CountConversationsSince(ctx context.Context, since time.Time) (int, error)
	CountMessagesSince(ctx context.Context, since time.Time) (int, error)
	CountWaiting(ctx context.Context) (int, error)
	ListActiveConversations(ctx context.Context) ([]models.Conversation, error)
	ListWaitingEntries(ctx context.Context) ([]models.WaitingEntry, error)
	ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error)
	RecentMessages(ctx context.Context, limit int) ([]models.ConversationMessage, error)
}

type Store interface {
	Tx
	Reader

	// Atomic runs fn as a single unit against the store. Units never
	// interleave, and when fn returns an error none of its writes are kept.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
