package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
	"github.com/pliu/anonchat/internal/store/storetest"
)

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	p := &models.Participant{ExternalID: "x", CreatedAt: now, LastSeen: now}
	if err := s.CreateParticipant(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetParticipantByID(ctx, p.ID)
	got.Username = "mutated"

	again, _ := s.GetParticipantByID(ctx, p.ID)
	if again.Username != "" {
		t.Errorf("Expected stored participant to be unaffected, got %q", again.Username)
	}
}
