package chat

import (
	"context"
	"errors"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

type MatchStatus int

const (
	Queued MatchStatus = iota + 1
	Matched
	AlreadyWaiting
	AlreadyInConversation
)

func (s MatchStatus) String() string {
	switch s {
	case Queued:
		return "queued"
	case Matched:
		return "matched"
	case AlreadyWaiting:
		return "already_waiting"
	case AlreadyInConversation:
		return "already_in_conversation"
	}
	return "unknown"
}

// MatchOutcome describes what RequestMatch did. Entry is set for Queued;
// Conversation and Partner are set for Matched.
type MatchOutcome struct {
	Status       MatchStatus
	Entry        *models.WaitingEntry
	Conversation *models.Conversation
	Partner      *models.Participant
}

// Matcher pairs seekers with queued waiters.
type Matcher struct {
	store store.Store
	queue *Queue
	now   Clock
}

// RequestMatch pairs seeker with the longest-waiting other participant, or
// queues seeker when nobody is waiting. The membership checks, the dequeue
// and the conversation creation (or the enqueue) form one atomic unit, so
// concurrent seekers can neither take the same waiter nor end up in two
// active conversations.
func (m *Matcher) RequestMatch(ctx context.Context, seeker *models.Participant) (*MatchOutcome, error) {
	var outcome *MatchOutcome
	err := m.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.ActiveConversationFor(ctx, seeker.ID); err == nil {
			outcome = &MatchOutcome{Status: AlreadyInConversation}
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if entry, err := tx.GetWaitingEntry(ctx, seeker.ID); err == nil {
			outcome = &MatchOutcome{Status: AlreadyWaiting, Entry: entry}
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		waiter, err := m.queue.dequeue(ctx, tx, seeker.ID)
		if errors.Is(err, ErrQueueEmpty) {
			entry, err := m.queue.enqueue(ctx, tx, seeker)
			if err != nil {
				return err
			}
			outcome = &MatchOutcome{Status: Queued, Entry: entry}
			return nil
		}
		if err != nil {
			return err
		}

		partner, err := tx.GetParticipantByID(ctx, waiter.ParticipantID)
		if err != nil {
			return err
		}
		conv := &models.Conversation{
			PartyA:    waiter.ParticipantID,
			PartyB:    seeker.ID,
			Status:    models.StatusActive,
			StartedAt: m.now(),
		}
		if err := tx.CreateConversation(ctx, conv); err != nil {
			return err
		}
		outcome = &MatchOutcome{Status: Matched, Conversation: conv, Partner: partner}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return outcome, nil
}
