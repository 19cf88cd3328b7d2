// Package bot maps inbound front-end events onto the chat core and turns the
// results into user-facing replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/pliu/anonchat/internal/chat"
	"github.com/pliu/anonchat/internal/models"
)

type Command string

const (
	CommandStart   Command = "start"
	CommandHelp    Command = "help"
	CommandChat    Command = "chat"
	CommandEnd     Command = "end"
	CommandMessage Command = ""
)

// Event is one inbound event from the messaging front-end.
type Event struct {
	ExternalID string
	Text       string
	Kind       models.MessageKind
	Metadata   models.Metadata
}

// ParseCommand splits text into a command and returns CommandMessage for
// plain text. "/chat@SomeBot" style suffixes are accepted. Unrecognised
// commands are returned as-is with ok false.
func ParseCommand(text string) (cmd Command, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return CommandMessage, true
	}
	word := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(word, '@'); at >= 0 {
		word = word[:at]
	}
	cmd = Command(strings.ToLower(word))
	switch cmd {
	case CommandStart, CommandHelp, CommandChat, CommandEnd:
		return cmd, true
	}
	return cmd, false
}

type Dispatcher struct {
	chat   *chat.Service
	sender chat.Sender
}

func NewDispatcher(svc *chat.Service, sender chat.Sender) *Dispatcher {
	return &Dispatcher{chat: svc, sender: sender}
}

// Handle processes ev and replies to the affected parties. Domain outcomes
// are always answered with a reply; the only error returned wraps
// chat.ErrStoreUnavailable (or another unexpected failure), in which case no
// state was changed by the failing step and the caller should apologise.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	cmd, ok := ParseCommand(ev.Text)
	if !ok {
		d.reply(ctx, ev.ExternalID, replyUnknownCommand)
		return nil
	}

	switch cmd {
	case CommandStart:
		return d.start(ctx, ev)
	case CommandHelp:
		d.reply(ctx, ev.ExternalID, replyHelp)
		return nil
	}

	p, err := d.chat.Directory.Find(ctx, ev.ExternalID)
	if errors.Is(err, chat.ErrNotFound) {
		d.reply(ctx, ev.ExternalID, replyStartFirst)
		return nil
	}
	if err != nil {
		return err
	}
	if p, err = d.chat.Directory.Upsert(ctx, ev.ExternalID, ev.Metadata); err != nil {
		return err
	}

	switch cmd {
	case CommandChat:
		return d.requestChat(ctx, p)
	case CommandEnd:
		return d.end(ctx, p)
	default:
		return d.message(ctx, p, ev)
	}
}

func (d *Dispatcher) start(ctx context.Context, ev Event) error {
	if _, err := d.chat.Directory.Upsert(ctx, ev.ExternalID, ev.Metadata); err != nil {
		return err
	}
	d.reply(ctx, ev.ExternalID, replyWelcome)
	return nil
}

func (d *Dispatcher) requestChat(ctx context.Context, p *models.Participant) error {
	outcome, err := d.chat.Matcher.RequestMatch(ctx, p)
	if err != nil {
		return err
	}

	switch outcome.Status {
	case chat.AlreadyInConversation:
		d.reply(ctx, p.ExternalID, replyAlreadyInConversation)
	case chat.AlreadyWaiting:
		d.reply(ctx, p.ExternalID, replyAlreadyWaiting)
	case chat.Queued:
		d.reply(ctx, p.ExternalID, replyQueued)
	case chat.Matched:
		d.reply(ctx, p.ExternalID, replyMatched)
		// The match stays committed even if the waiter cannot be told.
		if err := d.sender.SendText(ctx, outcome.Partner.ExternalID, replyMatched); err != nil {
			log.Printf("[bot] failed to notify waiting participant %d of conversation %d: %v",
				outcome.Partner.ID, outcome.Conversation.ID, err)
		}
	}
	return nil
}

func (d *Dispatcher) end(ctx context.Context, p *models.Participant) error {
	conv, err := d.chat.Conversations.ActiveFor(ctx, p)
	if err != nil {
		return err
	}
	if conv == nil {
		removed, err := d.chat.Queue.Remove(ctx, p)
		if err != nil {
			return err
		}
		if removed {
			d.reply(ctx, p.ExternalID, replyWaitCancelled)
		} else {
			d.reply(ctx, p.ExternalID, replyNothingToEnd)
		}
		return nil
	}

	ended, otherID, err := d.chat.Conversations.End(ctx, conv, p.ID)
	if errors.Is(err, chat.ErrAlreadyEnded) {
		// The partner ended it first.
		d.reply(ctx, p.ExternalID, replyNothingToEnd)
		return nil
	}
	if err != nil {
		return err
	}
	d.reply(ctx, p.ExternalID, replyEnded)

	other, err := d.chat.Directory.ByID(ctx, otherID)
	if err != nil {
		log.Printf("[bot] conversation %d ended but partner %d could not be loaded: %v", ended.ID, otherID, err)
		return nil
	}
	if err := d.sender.SendText(ctx, other.ExternalID, replyPartnerEnded); err != nil {
		log.Printf("[bot] failed to notify participant %d about end of conversation %d: %v", other.ID, ended.ID, err)
	}
	return nil
}

func (d *Dispatcher) message(ctx context.Context, p *models.Participant, ev Event) error {
	conv, err := d.chat.Conversations.ActiveFor(ctx, p)
	if err != nil {
		return err
	}
	if conv == nil {
		d.reply(ctx, p.ExternalID, replyNotInConversation)
		return nil
	}
	if ev.Kind != "" && ev.Kind != models.KindText {
		d.reply(ctx, p.ExternalID, replyTextOnly)
		return nil
	}
	if strings.TrimSpace(ev.Text) == "" {
		d.reply(ctx, p.ExternalID, replyEmptyMessage)
		return nil
	}

	outcome, err := d.chat.Relay.Relay(ctx, conv, p, ev.Text)
	switch {
	case errors.Is(err, chat.ErrNotActive):
		d.reply(ctx, p.ExternalID, replyNotInConversation)
		return nil
	case err != nil:
		return fmt.Errorf("relay in conversation %d: %w", conv.ID, err)
	}
	if !outcome.Delivered {
		log.Printf("[bot] message %d in conversation %d not delivered: %v", outcome.Message.ID, conv.ID, outcome.Err)
		d.reply(ctx, p.ExternalID, replyDeliveryFailed)
	}
	return nil
}

func (d *Dispatcher) reply(ctx context.Context, externalID, text string) {
	if err := d.sender.SendText(ctx, externalID, text); err != nil {
		log.Printf("[bot] failed to reply to %s: %v", externalID, err)
	}
}
