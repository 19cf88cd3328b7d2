package memstore

import (
	"context"
	"errors"
	"time"

	"github.com/pliu/anonchat/internal/models"
)

var errDuplicateExternalID = errors.New("memstore: duplicate external id")

// The methods below give MemStore the store.Tx surface outside of Atomic,
// each taking the lock for the duration of a single call.

func (s *MemStore) CreateParticipant(ctx context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateParticipant(ctx, p)
}

func (s *MemStore) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateParticipant(ctx, p)
}

func (s *MemStore) GetParticipantByID(ctx context.Context, id int64) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetParticipantByID(ctx, id)
}

func (s *MemStore) GetParticipantByExternalID(ctx context.Context, externalID string) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetParticipantByExternalID(ctx, externalID)
}

func (s *MemStore) CreateWaitingEntry(ctx context.Context, e *models.WaitingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateWaitingEntry(ctx, e)
}

func (s *MemStore) GetWaitingEntry(ctx context.Context, participantID int64) (*models.WaitingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetWaitingEntry(ctx, participantID)
}

func (s *MemStore) OldestWaitingEntry(ctx context.Context, excludeParticipantID int64) (*models.WaitingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.OldestWaitingEntry(ctx, excludeParticipantID)
}

func (s *MemStore) DeleteWaitingEntry(ctx context.Context, participantID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteWaitingEntry(ctx, participantID)
}

func (s *MemStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateConversation(ctx, c)
}

func (s *MemStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetConversation(ctx, id)
}

func (s *MemStore) ActiveConversationFor(ctx context.Context, participantID int64) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveConversationFor(ctx, participantID)
}

func (s *MemStore) EndConversation(ctx context.Context, id int64, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.EndConversation(ctx, id, endedAt)
}

func (s *MemStore) IncrementMessageCount(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IncrementMessageCount(ctx, id)
}

func (s *MemStore) AddMessage(ctx context.Context, m *models.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AddMessage(ctx, m)
}

func (s *MemStore) GetConversationMessages(ctx context.Context, conversationID int64) ([]models.ConversationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetConversationMessages(ctx, conversationID)
}
