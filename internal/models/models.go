package models

import "time"

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindOther MessageKind = "other"
)

type ConversationStatus string

const (
	StatusActive ConversationStatus = "active"
	StatusEnded  ConversationStatus = "ended"
)

// Metadata is the display information the messaging front-end reports for a
// participant. All fields are optional.
type Metadata struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Participant struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeen   time.Time `json:"last_seen"`
	Metadata
}

type WaitingEntry struct {
	ID            int64     `json:"id"`
	ParticipantID int64     `json:"participant_id"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Conversation pairs two participants. PartyA is the waiter that was matched,
// PartyB the seeker, but the pair is otherwise unordered.
type Conversation struct {
	ID           int64              `json:"id"`
	PartyA       int64              `json:"party_a"`
	PartyB       int64              `json:"party_b"`
	Status       ConversationStatus `json:"status"`
	StartedAt    time.Time          `json:"started_at"`
	EndedAt      *time.Time         `json:"ended_at,omitempty"`
	MessageCount int                `json:"message_count"`
}

func (c *Conversation) IsActive() bool {
	return c.Status == StatusActive
}

// HasParty reports whether participantID is one of the two parties.
func (c *Conversation) HasParty(participantID int64) bool {
	return c.PartyA == participantID || c.PartyB == participantID
}

// OtherParty returns the party that is not participantID. ok is false when
// participantID is not part of the conversation.
func (c *Conversation) OtherParty(participantID int64) (other int64, ok bool) {
	switch participantID {
	case c.PartyA:
		return c.PartyB, c.PartyB != 0 && c.PartyB != participantID
	case c.PartyB:
		return c.PartyA, c.PartyA != 0 && c.PartyA != participantID
	}
	return 0, false
}

type ConversationMessage struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	SenderID       int64       `json:"sender_id"`
	Text           string      `json:"text"`
	Kind           MessageKind `json:"kind"`
	SentAt         time.Time   `json:"sent_at"`
}
