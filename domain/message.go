// This file defines Message entities and the idempotence rules for
// read receipts and reactions. Messages are created once and only
// mutated through MarkRead and ToggleReaction.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// AttachmentMeta describes an attachment by metadata only.
// The core never sees attachment bytes.
type AttachmentMeta struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Message is a chat message, room-scoped or private.
// ID and CreatedAt are assigned by the store at persistence time;
// a zero ID marks a message that has not been persisted yet.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Room       RoomID          `json:"roomId,omitempty"`
	Body       string          `json:"body"`
	SenderID   string          `json:"senderPrincipalId"`
	SenderName string          `json:"senderDisplayName"`
	Private    bool            `json:"private"`
	Target     string          `json:"targetPrincipalId,omitempty"`
	Attachment *AttachmentMeta `json:"attachmentMeta,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`

	ReadBy    []string            `json:"readBy,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

// MarkRead records that principalID has read the message.
// Returns false when the principal was already present, in which case
// the message is left untouched.
func (m *Message) MarkRead(principalID string) bool {
	if slices.Contains(m.ReadBy, principalID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, principalID)
	return true
}

// ToggleReaction adds the (principal, kind) pair if absent, removes it
// if present. Returns true when the reaction is active after the call.
func (m *Message) ToggleReaction(principalID, kind string) bool {
	holders := m.Reactions[kind]
	if idx := slices.Index(holders, principalID); idx >= 0 {
		holders = slices.Delete(holders, idx, idx+1)
		if len(holders) == 0 {
			delete(m.Reactions, kind)
		} else {
			m.Reactions[kind] = holders
		}
		return false
	}
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	m.Reactions[kind] = append(holders, principalID)
	return true
}
