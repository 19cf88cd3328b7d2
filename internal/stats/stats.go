// Package stats builds the read-only projections the operator dashboard
// polls. Nothing here mutates the store.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"github.com/pliu/anonchat/internal/cache"
	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
)

const (
	snapshotKey = "anonchat:stats:snapshot"

	DefaultWindow        = 24 * time.Hour
	DefaultRecentLimit   = 50
	ConversationsPerPage = 20
	PreviewLength        = 100
)

type Options struct {
	// Window is the trailing period for the "recent" counts.
	Window time.Duration
	// RecentLimit bounds the recent-messages feed.
	RecentLimit int
	// Cache, when set, holds Snapshot results for CacheTTL.
	Cache    cache.Cache
	CacheTTL time.Duration
	Now      func() time.Time
}

// Source is the read side of the store the reporter needs.
type Source interface {
	store.Reader
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	GetConversationMessages(ctx context.Context, conversationID int64) ([]models.ConversationMessage, error)
}

type Reporter struct {
	store Source
	opts  Options
}

func NewReporter(r Source, opts Options) *Reporter {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Reporter{store: r, opts: opts}
}

func (r *Reporter) Counts(ctx context.Context) (models.Counts, error) {
	var (
		c   models.Counts
		err error
	)
	since := r.opts.Now().Add(-r.opts.Window)

	if c.TotalParticipants, err = r.store.CountParticipants(ctx); err != nil {
		return c, err
	}
	if c.ActiveConversations, err = r.store.CountConversations(ctx, models.StatusActive); err != nil {
		return c, err
	}
	if c.WaitingParticipants, err = r.store.CountWaiting(ctx); err != nil {
		return c, err
	}
	if c.TotalConversations, err = r.store.CountConversations(ctx, ""); err != nil {
		return c, err
	}
	if c.RecentConversations, err = r.store.CountConversationsSince(ctx, since); err != nil {
		return c, err
	}
	if c.RecentMessages, err = r.store.CountMessagesSince(ctx, since); err != nil {
		return c, err
	}
	return c, nil
}

// Snapshot returns the counts plus per-conversation and per-waiter details.
// With a cache configured, results are reused for CacheTTL.
func (r *Reporter) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	if r.opts.Cache != nil {
		if raw, err := r.opts.Cache.Get(ctx, snapshotKey); err == nil {
			var snap models.Snapshot
			if err := json.Unmarshal([]byte(raw), &snap); err == nil {
				return &snap, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Printf("[stats] cache read failed: %v", err)
		}
	}

	snap, err := r.buildSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if r.opts.Cache != nil {
		if raw, err := json.Marshal(snap); err == nil {
			if err := r.opts.Cache.Set(ctx, snapshotKey, string(raw), r.opts.CacheTTL); err != nil {
				log.Printf("[stats] cache write failed: %v", err)
			}
		}
	}
	return snap, nil
}

func (r *Reporter) buildSnapshot(ctx context.Context) (*models.Snapshot, error) {
	counts, err := r.Counts(ctx)
	if err != nil {
		return nil, err
	}
	now := r.opts.Now()

	active, err := r.store.ListActiveConversations(ctx)
	if err != nil {
		return nil, err
	}
	activeViews := make([]models.ActiveConversationView, 0, len(active))
	for _, c := range active {
		activeViews = append(activeViews, models.ActiveConversationView{
			ID:              c.ID,
			DurationMinutes: minutesSince(now, c.StartedAt),
			MessageCount:    c.MessageCount,
			StartedAt:       c.StartedAt,
		})
	}

	waiting, err := r.store.ListWaitingEntries(ctx)
	if err != nil {
		return nil, err
	}
	waitingViews := make([]models.WaitingEntryView, 0, len(waiting))
	for _, w := range waiting {
		waitingViews = append(waitingViews, models.WaitingEntryView{
			ID:          w.ID,
			WaitMinutes: minutesSince(now, w.EnqueuedAt),
			JoinedAt:    w.EnqueuedAt,
		})
	}

	return &models.Snapshot{
		Counts:                  counts,
		ActiveConversationsData: activeViews,
		WaitingData:             waitingViews,
		Timestamp:               now,
	}, nil
}

// RecentActivity is the bounded recent-messages feed, newest first.
func (r *Reporter) RecentActivity(ctx context.Context) (*models.RecentActivity, error) {
	msgs, err := r.store.RecentMessages(ctx, r.opts.RecentLimit)
	if err != nil {
		return nil, err
	}
	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Preview:        Preview(m.Text),
			SentAt:         m.SentAt,
			Kind:           m.Kind,
		})
	}
	return &models.RecentActivity{Messages: views, Timestamp: r.opts.Now()}, nil
}

// Conversations returns one page of every conversation, newest first. Pages
// start at 1.
func (r *Reporter) Conversations(ctx context.Context, page int) (*models.ConversationPage, error) {
	if page < 1 {
		page = 1
	}
	total, err := r.store.CountConversations(ctx, "")
	if err != nil {
		return nil, err
	}
	convs, err := r.store.ListConversations(ctx, ConversationsPerPage, (page-1)*ConversationsPerPage)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return &models.ConversationPage{
		Conversations: convs,
		Page:          page,
		PerPage:       ConversationsPerPage,
		Total:         total,
	}, nil
}

// ConversationHistory returns a conversation with its full message log.
// Unknown ids yield store.ErrNotFound.
func (r *Reporter) ConversationHistory(ctx context.Context, id int64) (*models.Conversation, []models.ConversationMessage, error) {
	conv, err := r.store.GetConversation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := r.store.GetConversationMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if msgs == nil {
		msgs = []models.ConversationMessage{}
	}
	return conv, msgs, nil
}

// Preview shortens text to PreviewLength characters, appending "..." when
// something was cut.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	return string([]rune(text)[:PreviewLength]) + "..."
}

func minutesSince(now, t time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
