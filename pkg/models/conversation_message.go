package models

import (
	"time"

	"github.com/google/uuid"
)

// RenderedMessage is the output of rendering an intent with validated variables.
// It is plain data; the caller attaches sender and conversation and persists it.
type RenderedMessage struct {
	Intent       string            `json:"intent"`
	RenderedText string            `json:"rendered_text"`
	Variables    map[string]string `json:"variables"` // submitted values, kept for audit
	IsLegacy     bool              `json:"is_legacy"`
}

// MessageState is the classification state of a stored message.
type MessageState string

const (
	MessageStateUnclassified MessageState = "UNCLASSIFIED" // no intent, not yet marked legacy
	MessageStateLegacy       MessageState = "LEGACY"
	MessageStateStructured   MessageState = "STRUCTURED"
)

// ConversationMessage is a message row owned by a job conversation.
// RenderedText is never edited after creation.
type ConversationMessage struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID uuid.UUID         `json:"conversation_id"` // job conversation the message belongs to
	SenderID       string            `json:"sender_id"`
	Intent         *string           `json:"intent,omitempty"` // nil for messages that predate intents
	RenderedText   string            `json:"rendered_text"`
	Variables      map[string]string `json:"variables,omitempty"`
	IsLegacy       bool              `json:"is_legacy"`
	ReplyToID      *uuid.UUID        `json:"reply_to_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// State derives the classification state from the row fields.
func (m *ConversationMessage) State() MessageState {
	switch {
	case m.IsLegacy:
		return MessageStateLegacy
	case m.Intent != nil:
		return MessageStateStructured
	default:
		return MessageStateUnclassified
	}
}

// CanReplyTo reports whether new replies may be anchored to this message.
func (m *ConversationMessage) CanReplyTo() bool {
	return m.State() == MessageStateStructured
}

// ClassifyLegacy marks every unclassified message as legacy and returns how
// many were changed. Messages already legacy or carrying an intent are left
// untouched, so repeated runs are no-ops.
func ClassifyLegacy(messages []*ConversationMessage) int {
	count := 0
	for _, m := range messages {
		if m == nil || m.Intent != nil || m.IsLegacy {
			continue
		}
		m.IsLegacy = true
		count++
	}
	return count
}
