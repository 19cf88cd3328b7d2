package chat

import (
	"context"
	"errors"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

// Directory tracks participant identity records keyed by external id.
type Directory struct {
	store store.Store
	now   Clock
}

// Upsert returns the participant for externalID, creating it on first
// contact. Existing records get their metadata refreshed and last-seen bumped.
func (d *Directory) Upsert(ctx context.Context, externalID string, meta models.Metadata) (*models.Participant, error) {
	var p *models.Participant
	err := d.store.Atomic(ctx, func(tx store.Tx) error {
		now := d.now()
		existing, err := tx.GetParticipantByExternalID(ctx, externalID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			p = &models.Participant{
				ExternalID: externalID,
				Metadata:   meta,
				IsActive:   true,
				CreatedAt:  now,
				LastSeen:   now,
			}
			return tx.CreateParticipant(ctx, p)
		case err != nil:
			return err
		}
		existing.Metadata = meta
		existing.LastSeen = now
		p = existing
		return tx.UpdateParticipant(ctx, existing)
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return p, nil
}

// Find returns ErrNotFound for unknown external ids.
func (d *Directory) Find(ctx context.Context, externalID string) (*models.Participant, error) {
	p, err := d.store.GetParticipantByExternalID(ctx, externalID)
	if err != nil {
		return nil, unavailable(err)
	}
	return p, nil
}

func (d *Directory) ByID(ctx context.Context, id int64) (*models.Participant, error) {
	p, err := d.store.GetParticipantByID(ctx, id)
	if err != nil {
		return nil, unavailable(err)
	}
	return p, nil
}
