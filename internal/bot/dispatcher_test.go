package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pliu/anonchat/internal/chat"
	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
	"github.com/pliu/anonchat/internal/store/memstore"
)

type recordingSender struct {
	mu      sync.Mutex
	inbox   map[string][]string
	offline map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{inbox: map[string][]string{}, offline: map[string]bool{}}
}

func (s *recordingSender) SendText(ctx context.Context, externalID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline[externalID] {
		return errors.New("offline")
	}
	s.inbox[externalID] = append(s.inbox[externalID], text)
	return nil
}

// last returns the most recent text sent to externalID.
func (s *recordingSender) last(externalID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.inbox[externalID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func (s *recordingSender) count(externalID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inbox[externalID])
}

func setup(t *testing.T) (*Dispatcher, *recordingSender, store.Store) {
	t.Helper()
	st := memstore.New()
	sender := newRecordingSender()
	return NewDispatcher(chat.NewService(st, sender), sender), sender, st
}

func send(t *testing.T, d *Dispatcher, externalID, text string) {
	t.Helper()
	if err := d.Handle(context.Background(), Event{ExternalID: externalID, Text: text, Kind: models.KindText}); err != nil {
		t.Fatalf("Handle(%s, %q) failed: %v", externalID, text, err)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  Command
		ok   bool
	}{
		{text: "/start", cmd: CommandStart, ok: true},
		{text: "  /CHAT  ", cmd: CommandChat, ok: true},
		{text: "/end@AnonBot", cmd: CommandEnd, ok: true},
		{text: "/help please", cmd: CommandHelp, ok: true},
		{text: "hello there", cmd: CommandMessage, ok: true},
		{text: "/dance", cmd: Command("dance"), ok: false},
		{text: "/", cmd: CommandMessage, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, ok := ParseCommand(tt.text)
			if cmd != tt.cmd || ok != tt.ok {
				t.Errorf("ParseCommand(%q) = %q, %v; want %q, %v", tt.text, cmd, ok, tt.cmd, tt.ok)
			}
		})
	}
}

func TestUnknownParticipantMustStart(t *testing.T) {
	d, sender, st := setup(t)

	for _, text := range []string{"/chat", "/end", "hello"} {
		send(t, d, "stranger", text)
		if got := sender.last("stranger"); got != replyStartFirst {
			t.Errorf("%q: expected start-first reply, got %q", text, got)
		}
	}
	if n, _ := st.CountParticipants(context.Background()); n != 0 {
		t.Errorf("Expected no participant records, got %d", n)
	}

	send(t, d, "stranger", "/start")
	if got := sender.last("stranger"); got != replyWelcome {
		t.Errorf("Expected welcome, got %q", got)
	}
	if n, _ := st.CountParticipants(context.Background()); n != 1 {
		t.Errorf("Expected one participant record, got %d", n)
	}
}

func TestHelpAndUnknownCommands(t *testing.T) {
	d, sender, _ := setup(t)

	send(t, d, "alice", "/help")
	if got := sender.last("alice"); got != replyHelp {
		t.Errorf("Expected help, got %q", got)
	}
	send(t, d, "alice", "/dance")
	if got := sender.last("alice"); got != replyUnknownCommand {
		t.Errorf("Expected unknown command reply, got %q", got)
	}
}

func TestConversationFlow(t *testing.T) {
	d, sender, _ := setup(t)
	send(t, d, "alice", "/start")
	send(t, d, "bob", "/start")

	send(t, d, "alice", "/chat")
	if got := sender.last("alice"); got != replyQueued {
		t.Errorf("Expected queued reply, got %q", got)
	}
	send(t, d, "alice", "/chat")
	if got := sender.last("alice"); got != replyAlreadyWaiting {
		t.Errorf("Expected already-waiting reply, got %q", got)
	}

	send(t, d, "bob", "/chat")
	if got := sender.last("bob"); got != replyMatched {
		t.Errorf("Expected bob to be told about the match, got %q", got)
	}
	if got := sender.last("alice"); got != replyMatched {
		t.Errorf("Expected alice to be told about the match, got %q", got)
	}
	send(t, d, "bob", "/chat@AnonBot")
	if got := sender.last("bob"); got != replyAlreadyInConversation {
		t.Errorf("Expected already-in-conversation reply, got %q", got)
	}

	send(t, d, "bob", "hi alice")
	if got := sender.last("alice"); got != chat.AnonymousPrefix+"hi alice" {
		t.Errorf("Expected relayed message, got %q", got)
	}

	send(t, d, "bob", "/end")
	if got := sender.last("bob"); got != replyEnded {
		t.Errorf("Expected ended reply, got %q", got)
	}
	if got := sender.last("alice"); got != replyPartnerEnded {
		t.Errorf("Expected partner-ended notice, got %q", got)
	}

	send(t, d, "alice", "/end")
	if got := sender.last("alice"); got != replyNothingToEnd {
		t.Errorf("Expected nothing-to-end reply, got %q", got)
	}
	send(t, d, "alice", "still there?")
	if got := sender.last("alice"); got != replyNotInConversation {
		t.Errorf("Expected not-in-conversation reply, got %q", got)
	}
}

func TestEndWhileWaitingCancels(t *testing.T) {
	d, sender, st := setup(t)
	send(t, d, "alice", "/start")
	send(t, d, "alice", "/chat")

	send(t, d, "alice", "/end")
	if got := sender.last("alice"); got != replyWaitCancelled {
		t.Errorf("Expected wait-cancelled reply, got %q", got)
	}
	if n, _ := st.CountWaiting(context.Background()); n != 0 {
		t.Errorf("Expected empty queue, got %d", n)
	}
}

func TestMessageValidation(t *testing.T) {
	d, sender, _ := setup(t)
	for _, id := range []string{"alice", "bob"} {
		send(t, d, id, "/start")
		send(t, d, id, "/chat")
	}
	before := sender.count("bob")

	if err := d.Handle(context.Background(), Event{ExternalID: "alice", Text: "", Kind: models.KindOther}); err != nil {
		t.Fatal(err)
	}
	if got := sender.last("alice"); got != replyTextOnly {
		t.Errorf("Expected text-only reply, got %q", got)
	}

	send(t, d, "alice", "   ")
	if got := sender.last("alice"); got != replyEmptyMessage {
		t.Errorf("Expected empty-message reply, got %q", got)
	}
	if sender.count("bob") != before {
		t.Error("Expected nothing to be relayed to bob")
	}
}

func TestDeliveryFailureIsReported(t *testing.T) {
	d, sender, st := setup(t)
	for _, id := range []string{"alice", "bob"} {
		send(t, d, id, "/start")
		send(t, d, id, "/chat")
	}

	sender.offline["alice"] = true
	send(t, d, "bob", "anyone?")
	if got := sender.last("bob"); got != replyDeliveryFailed {
		t.Errorf("Expected delivery-failed reply, got %q", got)
	}

	msgs, _ := st.RecentMessages(context.Background(), 10)
	if len(msgs) != 1 || msgs[0].Text != "anyone?" {
		t.Errorf("Expected the message to be stored, got %+v", msgs)
	}
}

func TestWaiterNotificationFailureKeepsMatch(t *testing.T) {
	d, sender, st := setup(t)
	send(t, d, "alice", "/start")
	send(t, d, "bob", "/start")
	send(t, d, "alice", "/chat")

	sender.offline["alice"] = true
	send(t, d, "bob", "/chat")

	if got := sender.last("bob"); got != replyMatched {
		t.Errorf("Expected bob to be matched, got %q", got)
	}
	if n, _ := st.CountConversations(context.Background(), models.StatusActive); n != 1 {
		t.Errorf("Expected the conversation to stay active, got %d", n)
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) GetParticipantByExternalID(ctx context.Context, externalID string) (*models.Participant, error) {
	return nil, errors.New("database is locked")
}

func (failingStore) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return errors.New("database is locked")
}

func TestStoreFailureIsReturned(t *testing.T) {
	sender := newRecordingSender()
	d := NewDispatcher(chat.NewService(failingStore{Store: memstore.New()}, sender), sender)

	for _, text := range []string{"/start", "/chat", "hello"} {
		err := d.Handle(context.Background(), Event{ExternalID: "alice", Text: text})
		if !errors.Is(err, chat.ErrStoreUnavailable) {
			t.Errorf("%q: expected ErrStoreUnavailable, got %v", text, err)
		}
	}
	if n := sender.count("alice"); n != 0 {
		t.Errorf("Expected no replies, got %d", n)
	}
	if !strings.Contains(ReplyUnavailable, "try again") {
		t.Errorf("Unexpected apology %q", ReplyUnavailable)
	}
}
