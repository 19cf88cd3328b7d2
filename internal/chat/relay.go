package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

// AnonymousPrefix tags relayed text so the recipient knows it came from their
// anonymous partner.
const AnonymousPrefix = "💬 Anonymous: "

// RelayOutcome reports a relayed message. Message is always persisted; when
// Delivered is false Err carries the ErrDeliveryFailed reason.
type RelayOutcome struct {
	Message   *models.ConversationMessage
	Recipient *models.Participant
	Delivered bool
	Err       error
}

// Relay forwards text from one party of a conversation to the other.
type Relay struct {
	store         store.Store
	conversations *Conversations
	sender        Sender
}

// Relay persists text from sender in conv and then delivers it to the other
// party. Delivery happens after the message is committed and is never
// retried; a failed delivery leaves the message stored.
func (r *Relay) Relay(ctx context.Context, conv *models.Conversation, sender *models.Participant, text string) (*RelayOutcome, error) {
	otherID, ok := conv.OtherParty(sender.ID)
	if !ok {
		return nil, ErrNoOtherParty
	}
	recipient, err := r.store.GetParticipantByID(ctx, otherID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoOtherParty
	}
	if err != nil {
		return nil, unavailable(err)
	}

	msg, err := r.conversations.AppendMessage(ctx, conv, sender.ID, text, models.KindText)
	if err != nil {
		return nil, err
	}

	out := &RelayOutcome{Message: msg, Recipient: recipient}
	if err := r.sender.SendText(ctx, recipient.ExternalID, AnonymousPrefix+text); err != nil {
		out.Err = fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		return out, nil
	}
	out.Delivered = true
	return out, nil
}
