// Package chat is the matchmaking and relay core: the participant directory,
// the waiting queue, the matcher, the conversation store and the relay.
// Every component works against an injected store.Store; multi-record
// changes run inside store.Atomic so they commit or fail as a whole.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

var (
	ErrNotFound         = store.ErrNotFound
	ErrAlreadyWaiting   = store.ErrAlreadyWaiting
	ErrStoreUnavailable = store.ErrUnavailable

	ErrAlreadyInConversation = errors.New("chat: participant already in a conversation")
	ErrAlreadyEnded          = errors.New("chat: conversation already ended")
	ErrNotActive             = errors.New("chat: conversation is not active")
	ErrNoOtherParty          = errors.New("chat: conversation has no other party")
	ErrQueueEmpty            = errors.New("chat: no eligible waiter")
	ErrDeliveryFailed        = errors.New("chat: delivery failed")
)

// Sender is the outbound half of the messaging front-end.
type Sender interface {
	SendText(ctx context.Context, externalID, text string) error
}

// Clock returns the current time. Components store UTC timestamps.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// State is a participant's position in the matchmaking lifecycle. It is not
// stored; it is derived from the waiting queue and the active conversations.
type State int

const (
	Idle State = iota
	Waiting
	InConversation
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case InConversation:
		return "in_conversation"
	default:
		return "idle"
	}
}

// Service bundles the core components around one store and one sender.
type Service struct {
	Directory     *Directory
	Queue         *Queue
	Matcher       *Matcher
	Conversations *Conversations
	Relay         *Relay

	store store.Store
}

type Option func(*options)

type options struct {
	clock Clock
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func NewService(s store.Store, sender Sender, opts ...Option) *Service {
	o := options{clock: systemClock}
	for _, opt := range opts {
		opt(&o)
	}

	conversations := &Conversations{store: s, now: o.clock}
	queue := &Queue{store: s, now: o.clock}
	return &Service{
		Directory:     &Directory{store: s, now: o.clock},
		Queue:         queue,
		Matcher:       &Matcher{store: s, queue: queue, now: o.clock},
		Conversations: conversations,
		Relay:         &Relay{store: s, conversations: conversations, sender: sender},
		store:         s,
	}
}

// StateOf derives p's lifecycle state.
func (s *Service) StateOf(ctx context.Context, p *models.Participant) (State, error) {
	conv, err := s.Conversations.ActiveFor(ctx, p)
	if err != nil {
		return Idle, err
	}
	if conv != nil {
		return InConversation, nil
	}
	waiting, err := s.Queue.Has(ctx, p)
	if err != nil {
		return Idle, err
	}
	if waiting {
		return Waiting, nil
	}
	return Idle, nil
}

// unavailable wraps infrastructure errors as ErrStoreUnavailable and passes
// domain sentinels through untouched.
func unavailable(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrAlreadyWaiting),
		errors.Is(err, store.ErrUnavailable),
		errors.Is(err, ErrAlreadyInConversation),
		errors.Is(err, ErrAlreadyEnded),
		errors.Is(err, ErrNotActive),
		errors.Is(err, ErrNoOtherParty),
		errors.Is(err, ErrQueueEmpty):
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
