package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/pliu/anonchat/internal/models"
)

func (s *MemStore) CountParticipants(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.participants), nil
}

func (s *MemStore) CountConversations(_ context.Context, status models.ConversationStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == "" {
		return len(s.state.conversations), nil
	}
	n := 0
	for _, c := range s.state.conversations {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) CountConversationsSince(_ context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.state.conversations {
		if !c.StartedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) CountMessagesSince(_ context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, msgs := range s.state.messages {
		for _, m := range msgs {
			if !m.SentAt.Before(since) {
				n++
			}
		}
	}
	return n, nil
}

func (s *MemStore) CountWaiting(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.waiting), nil
}

func (s *MemStore) ListActiveConversations(_ context.Context) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var convs []models.Conversation
	for _, c := range s.state.conversations {
		if c.IsActive() {
			convs = append(convs, c)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].StartedAt.Equal(convs[j].StartedAt) {
			return convs[i].StartedAt.Before(convs[j].StartedAt)
		}
		return convs[i].ID < convs[j].ID
	})
	return convs, nil
}

func (s *MemStore) ListWaitingEntries(_ context.Context) ([]models.WaitingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.state.sortedWaiting()
	if len(entries) == 0 {
		return nil, nil
	}
	return entries, nil
}

func (s *MemStore) ListConversations(_ context.Context, limit, offset int) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convs := make([]models.Conversation, 0, len(s.state.conversations))
	for _, c := range s.state.conversations {
		convs = append(convs, c)
	}
	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].StartedAt.Equal(convs[j].StartedAt) {
			return convs[i].StartedAt.After(convs[j].StartedAt)
		}
		return convs[i].ID > convs[j].ID
	})
	return page(convs, limit, offset), nil
}

func (s *MemStore) RecentMessages(_ context.Context, limit int) ([]models.ConversationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.ConversationMessage
	for _, msgs := range s.state.messages {
		all = append(all, msgs...)
	}
	sort.Slice(all, func(i, j int) bool {
		return messageBefore(all[j], all[i])
	})
	return page(all, limit, 0), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
