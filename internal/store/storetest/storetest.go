// Package storetest holds the behaviour every store.Store backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	t.Run("Participants", func(t *testing.T) { testParticipants(t, newStore(t)) })
	t.Run("WaitingQueue", func(t *testing.T) { testWaitingQueue(t, newStore(t)) })
	t.Run("Conversations", func(t *testing.T) { testConversations(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
	t.Run("Reader", func(t *testing.T) { testReader(t, newStore(t)) })
	t.Run("AtomicRollback", func(t *testing.T) { testAtomicRollback(t, newStore(t)) })
}

func participant(t *testing.T, s store.Store, externalID string) *models.Participant {
	t.Helper()
	p := &models.Participant{
		ExternalID: externalID,
		IsActive:   true,
		CreatedAt:  base,
		LastSeen:   base,
		Metadata:   models.Metadata{Username: externalID},
	}
	if err := s.CreateParticipant(context.Background(), p); err != nil {
		t.Fatalf("Failed to create participant %s: %v", externalID, err)
	}
	if p.ID == 0 {
		t.Fatal("Expected non-zero participant ID")
	}
	return p
}

func conversation(t *testing.T, s store.Store, a, b int64, startedAt time.Time) *models.Conversation {
	t.Helper()
	c := &models.Conversation{PartyA: a, PartyB: b, Status: models.StatusActive, StartedAt: startedAt}
	if err := s.CreateConversation(context.Background(), c); err != nil {
		t.Fatalf("Failed to create conversation: %v", err)
	}
	return c
}

func testParticipants(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := participant(t, s, "ext-1")

	got, err := s.GetParticipantByExternalID(ctx, "ext-1")
	if err != nil {
		t.Fatalf("GetParticipantByExternalID failed: %v", err)
	}
	if got.ID != p.ID || got.Username != "ext-1" || !got.IsActive {
		t.Errorf("Unexpected participant %+v", got)
	}

	p.FirstName = "Ann"
	p.LastSeen = base.Add(time.Hour)
	if err := s.UpdateParticipant(ctx, p); err != nil {
		t.Fatalf("UpdateParticipant failed: %v", err)
	}
	got, err = s.GetParticipantByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetParticipantByID failed: %v", err)
	}
	if got.FirstName != "Ann" || !got.LastSeen.Equal(base.Add(time.Hour)) {
		t.Errorf("Update not persisted: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt changed: %v", got.CreatedAt)
	}

	if err := s.CreateParticipant(ctx, &models.Participant{ExternalID: "ext-1", CreatedAt: base, LastSeen: base}); err == nil {
		t.Error("Expected duplicate external id to fail")
	}
	if _, err := s.GetParticipantByExternalID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateParticipant(ctx, &models.Participant{ID: 9999}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating unknown participant, got %v", err)
	}
}

func testWaitingQueue(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := participant(t, s, "a")
	b := participant(t, s, "b")
	c := participant(t, s, "c")

	// b and c share an enqueue time; insertion order breaks the tie.
	for _, e := range []*models.WaitingEntry{
		{ParticipantID: b.ID, EnqueuedAt: base.Add(time.Second)},
		{ParticipantID: c.ID, EnqueuedAt: base.Add(time.Second)},
		{ParticipantID: a.ID, EnqueuedAt: base},
	} {
		if err := s.CreateWaitingEntry(ctx, e); err != nil {
			t.Fatalf("CreateWaitingEntry failed: %v", err)
		}
	}

	if err := s.CreateWaitingEntry(ctx, &models.WaitingEntry{ParticipantID: a.ID, EnqueuedAt: base}); !errors.Is(err, store.ErrAlreadyWaiting) {
		t.Errorf("Expected ErrAlreadyWaiting, got %v", err)
	}

	oldest, err := s.OldestWaitingEntry(ctx, 0)
	if err != nil || oldest.ParticipantID != a.ID {
		t.Fatalf("Expected a to be oldest, got %+v (%v)", oldest, err)
	}
	oldest, err = s.OldestWaitingEntry(ctx, a.ID)
	if err != nil || oldest.ParticipantID != b.ID {
		t.Fatalf("Expected b after excluding a, got %+v (%v)", oldest, err)
	}

	entries, err := s.ListWaitingEntries(ctx)
	if err != nil {
		t.Fatalf("ListWaitingEntries failed: %v", err)
	}
	want := []int64{a.ID, b.ID, c.ID}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.ParticipantID != want[i] {
			t.Errorf("Entry %d: expected participant %d, got %d", i, want[i], e.ParticipantID)
		}
	}

	removed, err := s.DeleteWaitingEntry(ctx, a.ID)
	if err != nil || !removed {
		t.Errorf("Expected entry to be removed, got %v (%v)", removed, err)
	}
	removed, err = s.DeleteWaitingEntry(ctx, a.ID)
	if err != nil || removed {
		t.Errorf("Expected second removal to report false, got %v (%v)", removed, err)
	}
	if _, err := s.GetWaitingEntry(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if n, _ := s.CountWaiting(ctx); n != 2 {
		t.Errorf("Expected 2 waiting, got %d", n)
	}

	s.DeleteWaitingEntry(ctx, b.ID)
	if _, err := s.OldestWaitingEntry(ctx, c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound when only the excluded participant waits, got %v", err)
	}
}

func testConversations(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := participant(t, s, "a")
	b := participant(t, s, "b")

	conv := conversation(t, s, a.ID, b.ID, base)

	active, err := s.ActiveConversationFor(ctx, b.ID)
	if err != nil || active.ID != conv.ID {
		t.Fatalf("Expected active conversation %d, got %+v (%v)", conv.ID, active, err)
	}
	if active.EndedAt != nil {
		t.Error("Expected no end time on an active conversation")
	}

	if err := s.IncrementMessageCount(ctx, conv.ID); err != nil {
		t.Fatalf("IncrementMessageCount failed: %v", err)
	}
	if err := s.IncrementMessageCount(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	endedAt := base.Add(10 * time.Minute)
	if err := s.EndConversation(ctx, conv.ID, endedAt); err != nil {
		t.Fatalf("EndConversation failed: %v", err)
	}
	if err := s.EndConversation(ctx, conv.ID, endedAt.Add(time.Minute)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ending twice to fail with ErrNotFound, got %v", err)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.Status != models.StatusEnded || got.EndedAt == nil || !got.EndedAt.Equal(endedAt) {
		t.Errorf("Unexpected ended conversation %+v", got)
	}
	if got.MessageCount != 1 {
		t.Errorf("Expected message count 1, got %d", got.MessageCount)
	}

	if _, err := s.ActiveConversationFor(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected no active conversation, got %v", err)
	}
	if _, err := s.GetConversation(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := participant(t, s, "a")
	b := participant(t, s, "b")
	conv := conversation(t, s, a.ID, b.ID, base)

	for i, text := range []string{"second", "first", "third"} {
		sentAt := base.Add(time.Duration([]int{2, 1, 3}[i]) * time.Second)
		m := &models.ConversationMessage{ConversationID: conv.ID, SenderID: a.ID, Text: text, Kind: models.KindText, SentAt: sentAt}
		if err := s.AddMessage(ctx, m); err != nil {
			t.Fatalf("AddMessage failed: %v", err)
		}
		if m.ID == 0 {
			t.Error("Expected non-zero message ID")
		}
	}

	msgs, err := s.GetConversationMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversationMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Text != want {
			t.Errorf("Message %d: expected %q, got %q", i, want, msgs[i].Text)
		}
	}

	recent, err := s.RecentMessages(ctx, 2)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Text != "third" || recent[1].Text != "second" {
		t.Errorf("Unexpected recent messages %+v", recent)
	}

	empty, err := s.GetConversationMessages(ctx, 9999)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected no messages for unknown conversation, got %d (%v)", len(empty), err)
	}
}

func testReader(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := participant(t, s, "a")
	b := participant(t, s, "b")
	c := participant(t, s, "c")
	d := participant(t, s, "d")

	old := conversation(t, s, a.ID, b.ID, base.Add(-48*time.Hour))
	if err := s.EndConversation(ctx, old.ID, base.Add(-47*time.Hour)); err != nil {
		t.Fatal(err)
	}
	mid := conversation(t, s, a.ID, b.ID, base.Add(-time.Hour))
	newest := conversation(t, s, c.ID, d.ID, base)

	s.AddMessage(ctx, &models.ConversationMessage{ConversationID: old.ID, SenderID: a.ID, Text: "old", Kind: models.KindText, SentAt: base.Add(-48 * time.Hour)})
	s.AddMessage(ctx, &models.ConversationMessage{ConversationID: newest.ID, SenderID: c.ID, Text: "new", Kind: models.KindText, SentAt: base})

	if n, _ := s.CountParticipants(ctx); n != 4 {
		t.Errorf("Expected 4 participants, got %d", n)
	}
	if n, _ := s.CountConversations(ctx, ""); n != 3 {
		t.Errorf("Expected 3 conversations, got %d", n)
	}
	if n, _ := s.CountConversations(ctx, models.StatusActive); n != 2 {
		t.Errorf("Expected 2 active conversations, got %d", n)
	}
	since := base.Add(-24 * time.Hour)
	if n, _ := s.CountConversationsSince(ctx, since); n != 2 {
		t.Errorf("Expected 2 recent conversations, got %d", n)
	}
	if n, _ := s.CountMessagesSince(ctx, since); n != 1 {
		t.Errorf("Expected 1 recent message, got %d", n)
	}

	active, err := s.ListActiveConversations(ctx)
	if err != nil {
		t.Fatalf("ListActiveConversations failed: %v", err)
	}
	if len(active) != 2 || active[0].ID != mid.ID || active[1].ID != newest.ID {
		t.Errorf("Unexpected active conversations %+v", active)
	}

	page, err := s.ListConversations(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != newest.ID || page[1].ID != mid.ID {
		t.Errorf("Unexpected first page %+v", page)
	}
	page, _ = s.ListConversations(ctx, 2, 2)
	if len(page) != 1 || page[0].ID != old.ID {
		t.Errorf("Unexpected second page %+v", page)
	}
	page, _ = s.ListConversations(ctx, 2, 4)
	if len(page) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(page))
	}
}

func testAtomicRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := participant(t, s, "a")
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.CreateWaitingEntry(ctx, &models.WaitingEntry{ParticipantID: a.ID, EnqueuedAt: base}); err != nil {
			return err
		}
		if err := tx.CreateParticipant(ctx, &models.Participant{ExternalID: "ghost", CreatedAt: base, LastSeen: base}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the unit's error back, got %v", err)
	}
	if _, err := s.GetWaitingEntry(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected waiting entry to be rolled back, got %v", err)
	}
	if _, err := s.GetParticipantByExternalID(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected participant to be rolled back, got %v", err)
	}

	err = s.Atomic(ctx, func(tx store.Tx) error {
		return tx.CreateWaitingEntry(ctx, &models.WaitingEntry{ParticipantID: a.ID, EnqueuedAt: base})
	})
	if err != nil {
		t.Fatalf("Atomic failed: %v", err)
	}
	if _, err := s.GetWaitingEntry(ctx, a.ID); err != nil {
		t.Errorf("Expected committed waiting entry, got %v", err)
	}
}
