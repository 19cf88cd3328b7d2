package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

// MemStore keeps everything in process memory. A single mutex serialises
// every call, which makes it the single-writer serialisation point for
// Atomic units.
type MemStore struct {
	mu    sync.Mutex
	state *state
}

var _ store.Store = (*MemStore)(nil)

func New() *MemStore {
	return &MemStore{state: newState()}
}

// Atomic runs fn with the store locked. If fn fails the state is restored to
// what it was before fn started.
func (s *MemStore) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(s.state); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemStore) Close() error { return nil }

// state implements store.Tx without locking. Records are stored by value and
// copied on the way in and out so callers never share memory with the store.
type state struct {
	nextID int64

	participants  map[int64]models.Participant
	byExternalID  map[string]int64
	waiting       map[int64]models.WaitingEntry // participantID -> entry
	conversations map[int64]models.Conversation
	messages      map[int64][]models.ConversationMessage // conversationID -> log
}

func newState() *state {
	return &state{
		participants:  make(map[int64]models.Participant),
		byExternalID:  make(map[string]int64),
		waiting:       make(map[int64]models.WaitingEntry),
		conversations: make(map[int64]models.Conversation),
		messages:      make(map[int64][]models.ConversationMessage),
	}
}

func (st *state) clone() *state {
	c := newState()
	c.nextID = st.nextID
	for k, v := range st.participants {
		c.participants[k] = v
	}
	for k, v := range st.byExternalID {
		c.byExternalID[k] = v
	}
	for k, v := range st.waiting {
		c.waiting[k] = v
	}
	for k, v := range st.conversations {
		if v.EndedAt != nil {
			t := *v.EndedAt
			v.EndedAt = &t
		}
		c.conversations[k] = v
	}
	for k, v := range st.messages {
		c.messages[k] = append([]models.ConversationMessage(nil), v...)
	}
	return c
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *state) CreateParticipant(_ context.Context, p *models.Participant) error {
	if _, ok := st.byExternalID[p.ExternalID]; ok {
		return errDuplicateExternalID
	}
	p.ID = st.id()
	st.participants[p.ID] = *p
	st.byExternalID[p.ExternalID] = p.ID
	return nil
}

func (st *state) UpdateParticipant(_ context.Context, p *models.Participant) error {
	existing, ok := st.participants[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Metadata = p.Metadata
	existing.IsActive = p.IsActive
	existing.LastSeen = p.LastSeen
	st.participants[p.ID] = existing
	return nil
}

func (st *state) GetParticipantByID(_ context.Context, id int64) (*models.Participant, error) {
	p, ok := st.participants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (st *state) GetParticipantByExternalID(ctx context.Context, externalID string) (*models.Participant, error) {
	id, ok := st.byExternalID[externalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return st.GetParticipantByID(ctx, id)
}

func (st *state) CreateWaitingEntry(_ context.Context, e *models.WaitingEntry) error {
	if _, ok := st.waiting[e.ParticipantID]; ok {
		return store.ErrAlreadyWaiting
	}
	e.ID = st.id()
	st.waiting[e.ParticipantID] = *e
	return nil
}

func (st *state) GetWaitingEntry(_ context.Context, participantID int64) (*models.WaitingEntry, error) {
	e, ok := st.waiting[participantID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (st *state) OldestWaitingEntry(_ context.Context, excludeParticipantID int64) (*models.WaitingEntry, error) {
	var oldest *models.WaitingEntry
	for _, e := range st.sortedWaiting() {
		if e.ParticipantID == excludeParticipantID {
			continue
		}
		oldest = &e
		break
	}
	if oldest == nil {
		return nil, store.ErrNotFound
	}
	return oldest, nil
}

func (st *state) DeleteWaitingEntry(_ context.Context, participantID int64) (bool, error) {
	if _, ok := st.waiting[participantID]; !ok {
		return false, nil
	}
	delete(st.waiting, participantID)
	return true, nil
}

func (st *state) CreateConversation(_ context.Context, c *models.Conversation) error {
	c.ID = st.id()
	st.conversations[c.ID] = *c
	return nil
}

func (st *state) GetConversation(_ context.Context, id int64) (*models.Conversation, error) {
	c, ok := st.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (st *state) ActiveConversationFor(_ context.Context, participantID int64) (*models.Conversation, error) {
	for _, c := range st.conversations {
		if c.IsActive() && c.HasParty(participantID) {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (st *state) EndConversation(_ context.Context, id int64, endedAt time.Time) error {
	c, ok := st.conversations[id]
	if !ok || !c.IsActive() {
		return store.ErrNotFound
	}
	c.Status = models.StatusEnded
	c.EndedAt = &endedAt
	st.conversations[id] = c
	return nil
}

func (st *state) IncrementMessageCount(_ context.Context, id int64) error {
	c, ok := st.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	c.MessageCount++
	st.conversations[id] = c
	return nil
}

func (st *state) AddMessage(_ context.Context, m *models.ConversationMessage) error {
	if _, ok := st.conversations[m.ConversationID]; !ok {
		return store.ErrNotFound
	}
	m.ID = st.id()
	st.messages[m.ConversationID] = append(st.messages[m.ConversationID], *m)
	return nil
}

func (st *state) GetConversationMessages(_ context.Context, conversationID int64) ([]models.ConversationMessage, error) {
	msgs := append([]models.ConversationMessage(nil), st.messages[conversationID]...)
	sort.SliceStable(msgs, func(i, j int) bool {
		return messageBefore(msgs[i], msgs[j])
	})
	return msgs, nil
}

func (st *state) sortedWaiting() []models.WaitingEntry {
	entries := make([]models.WaitingEntry, 0, len(st.waiting))
	for _, e := range st.waiting {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].EnqueuedAt.Equal(entries[j].EnqueuedAt) {
			return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

func messageBefore(a, b models.ConversationMessage) bool {
	if !a.SentAt.Equal(b.SentAt) {
		return a.SentAt.Before(b.SentAt)
	}
	return a.ID < b.ID
}
