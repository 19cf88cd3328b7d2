package chat

import (
	"context"
	"errors"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

// Queue holds participants seeking a partner, oldest first.
type Queue struct {
	store store.Store
	now   Clock
}

// Enqueue fails with ErrAlreadyWaiting when p already has an entry.
func (q *Queue) Enqueue(ctx context.Context, p *models.Participant) (*models.WaitingEntry, error) {
	var entry *models.WaitingEntry
	err := q.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		entry, err = q.enqueue(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return entry, nil
}

// DequeueAny removes and returns the oldest entry not belonging to excluding.
// It returns ErrQueueEmpty when no such entry exists.
func (q *Queue) DequeueAny(ctx context.Context, excluding *models.Participant) (*models.WaitingEntry, error) {
	var entry *models.WaitingEntry
	err := q.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		entry, err = q.dequeue(ctx, tx, excluding.ID)
		return err
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return entry, nil
}

// Remove cancels p's wait. It reports false when p was not waiting.
func (q *Queue) Remove(ctx context.Context, p *models.Participant) (bool, error) {
	removed, err := q.store.DeleteWaitingEntry(ctx, p.ID)
	return removed, unavailable(err)
}

func (q *Queue) Has(ctx context.Context, p *models.Participant) (bool, error) {
	_, err := q.store.GetWaitingEntry(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return true, nil
}

func (q *Queue) enqueue(ctx context.Context, tx store.Tx, p *models.Participant) (*models.WaitingEntry, error) {
	if _, err := tx.GetWaitingEntry(ctx, p.ID); err == nil {
		return nil, store.ErrAlreadyWaiting
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	entry := &models.WaitingEntry{ParticipantID: p.ID, EnqueuedAt: q.now()}
	if err := tx.CreateWaitingEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (q *Queue) dequeue(ctx context.Context, tx store.Tx, excludeParticipantID int64) (*models.WaitingEntry, error) {
	entry, err := tx.OldestWaitingEntry(ctx, excludeParticipantID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	removed, err := tx.DeleteWaitingEntry(ctx, entry.ParticipantID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrQueueEmpty
	}
	return entry, nil
}
