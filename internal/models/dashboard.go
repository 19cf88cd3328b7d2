package models

import "time"

// Counts are the aggregate numbers shown at the top of the dashboard.
type Counts struct {
	TotalParticipants   int `json:"total_users"`
	ActiveConversations int `json:"active_conversations"`
	WaitingParticipants int `json:"waiting_users"`
	TotalConversations  int `json:"total_conversations"`
	RecentConversations int `json:"recent_conversations"`
	RecentMessages      int `json:"recent_messages"`
}

type ActiveConversationView struct {
	ID              int64     `json:"id"`
	DurationMinutes int       `json:"duration_minutes"`
	MessageCount    int       `json:"message_count"`
	StartedAt       time.Time `json:"started_at"`
}

type WaitingEntryView struct {
	ID          int64     `json:"id"`
	WaitMinutes int       `json:"wait_time_minutes"`
	JoinedAt    time.Time `json:"joined_at"`
}

type MessageView struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	Preview        string      `json:"message_preview"`
	SentAt         time.Time   `json:"sent_at"`
	Kind           MessageKind `json:"message_type"`
}

type Snapshot struct {
	Counts
	ActiveConversationsData []ActiveConversationView `json:"active_conversations_data"`
	WaitingData             []WaitingEntryView       `json:"waiting_users_data"`
	Timestamp               time.Time                `json:"timestamp"`
}

type RecentActivity struct {
	Messages  []MessageView `json:"recent_messages"`
	Timestamp time.Time     `json:"timestamp"`
}

type ConversationPage struct {
	Conversations []Conversation `json:"conversations"`
	Page          int            `json:"page"`
	PerPage       int            `json:"per_page"`
	Total         int            `json:"total"`
}
