package chat

import (
	"context"
	"errors"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

// Conversations tracks active and ended conversations and their message logs.
type Conversations struct {
	store store.Store
	now   Clock
}

// ActiveFor returns p's active conversation, or nil when p has none.
func (c *Conversations) ActiveFor(ctx context.Context, p *models.Participant) (*models.Conversation, error) {
	conv, err := c.store.ActiveConversationFor(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return conv, nil
}

// End closes conv on behalf of endedBy and returns the updated conversation
// together with the id of the party to notify.
func (c *Conversations) End(ctx context.Context, conv *models.Conversation, endedBy int64) (*models.Conversation, int64, error) {
	var (
		ended *models.Conversation
		other int64
	)
	err := c.store.Atomic(ctx, func(tx store.Tx) error {
		current, err := tx.GetConversation(ctx, conv.ID)
		if err != nil {
			return err
		}
		if !current.IsActive() {
			return ErrAlreadyEnded
		}
		var ok bool
		if other, ok = current.OtherParty(endedBy); !ok {
			return ErrNoOtherParty
		}
		endedAt := c.now()
		if err := tx.EndConversation(ctx, current.ID, endedAt); err != nil {
			return err
		}
		current.Status = models.StatusEnded
		current.EndedAt = &endedAt
		ended = current
		return nil
	})
	if err != nil {
		return nil, 0, unavailable(err)
	}
	return ended, other, nil
}

// AppendMessage records a message and bumps the conversation's message count
// in the same unit. It fails with ErrNotActive once the conversation ended.
func (c *Conversations) AppendMessage(ctx context.Context, conv *models.Conversation, senderID int64, text string, kind models.MessageKind) (*models.ConversationMessage, error) {
	var msg *models.ConversationMessage
	err := c.store.Atomic(ctx, func(tx store.Tx) error {
		current, err := tx.GetConversation(ctx, conv.ID)
		if err != nil {
			return err
		}
		if !current.IsActive() {
			return ErrNotActive
		}
		msg = &models.ConversationMessage{
			ConversationID: current.ID,
			SenderID:       senderID,
			Text:           text,
			Kind:           kind,
			SentAt:         c.now(),
		}
		if err := tx.AddMessage(ctx, msg); err != nil {
			return err
		}
		return tx.IncrementMessageCount(ctx, current.ID)
	})
	if err != nil {
		return nil, unavailable(err)
	}
	conv.MessageCount++
	return msg, nil
}

// Messages returns the conversation's log ordered by send time.
func (c *Conversations) Messages(ctx context.Context, conversationID int64) ([]models.ConversationMessage, error) {
	msgs, err := c.store.GetConversationMessages(ctx, conversationID)
	return msgs, unavailable(err)
}
