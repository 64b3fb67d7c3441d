// Package event defines the outbound events the core emits to clients.
// Each event carries its wire name; the transport wraps it in an
// envelope and serializes the event itself as the payload.
package event

import (
	"chat-relay/domain"

	"github.com/google/uuid"
)

type Event interface {
	EventName() string
}

// MessageReceived carries the canonical, persisted copy of a room
// message to every member of the room, sender included.
type MessageReceived struct {
	Message domain.Message `json:"message"`
}

func (MessageReceived) EventName() string { return "receive_message" }

// PrivateMessage carries a persisted private message to every
// connection of the target principal and of the sender's principal.
type PrivateMessage struct {
	Message domain.Message `json:"message"`
}

func (PrivateMessage) EventName() string { return "private_message" }

type UserJoined struct {
	Room        domain.RoomID `json:"roomId"`
	PrincipalID string        `json:"principalId"`
	DisplayName string        `json:"displayName"`
}

func (UserJoined) EventName() string { return "user_joined" }

type UserLeft struct {
	Room        domain.RoomID `json:"roomId"`
	PrincipalID string        `json:"principalId"`
	DisplayName string        `json:"displayName"`
}

func (UserLeft) EventName() string { return "user_left" }

// UserList is a full snapshot of online principals, not a delta.
type UserList struct {
	Users []domain.Identity `json:"users"`
}

func (UserList) EventName() string { return "user_list" }

// TypingUsers is the full list of display names currently typing in a
// room. Snapshots keep client state reconciliation trivial.
type TypingUsers struct {
	Room  domain.RoomID `json:"roomId"`
	Users []string      `json:"users"`
}

func (TypingUsers) EventName() string { return "typing_users" }

type RoomJoined struct {
	Room        domain.RoomID `json:"roomId"`
	PrincipalID string        `json:"principalId"`
	DisplayName string        `json:"displayName"`
}

func (RoomJoined) EventName() string { return "room_joined" }

type RoomLeft struct {
	Room        domain.RoomID `json:"roomId"`
	PrincipalID string        `json:"principalId"`
	DisplayName string        `json:"displayName"`
}

func (RoomLeft) EventName() string { return "room_left" }

// MessageRead notifies that a principal read a message for the first
// time. Repeat reads emit nothing.
type MessageRead struct {
	MessageID   uuid.UUID     `json:"messageId"`
	Room        domain.RoomID `json:"roomId,omitempty"`
	PrincipalID string        `json:"principalId"`
}

func (MessageRead) EventName() string { return "message_read" }

// MessageReaction notifies a reaction toggle. Active reports whether
// the (principal, kind) pair is present after the toggle; Reactions is
// the message's full reaction state.
type MessageReaction struct {
	MessageID   uuid.UUID           `json:"messageId"`
	Room        domain.RoomID       `json:"roomId,omitempty"`
	PrincipalID string              `json:"principalId"`
	Kind        string              `json:"kind"`
	Active      bool                `json:"active"`
	Reactions   map[string][]string `json:"reactions"`
}

func (MessageReaction) EventName() string { return "message_reaction" }
