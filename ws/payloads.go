package ws

import (
	"chat-relay/domain"
	"encoding/json"
	"time"
)

// Envelope is the wire frame, both directions: a named event plus its
// JSON payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"required,max=64,excludesall=:"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId" validate:"required,max=64,excludesall=:"`
}

type AttachmentPayload struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"max=127"`
	Size        int64  `json:"size" validate:"gte=0"`
}

type SendMessagePayload struct {
	RoomID     string             `json:"roomId" validate:"required,max=64,excludesall=:"`
	Body       string             `json:"body" validate:"required,max=4000"`
	Attachment *AttachmentPayload `json:"attachmentMeta,omitempty"`
}

type PrivateMessagePayload struct {
	TargetPrincipalID string `json:"targetPrincipalId" validate:"required,max=128"`
	Body              string `json:"body" validate:"required,max=4000"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId" validate:"required,max=64,excludesall=:"`
	IsTyping bool   `json:"isTyping"`
}

type MessageReadPayload struct {
	MessageID string `json:"messageId" validate:"required,uuid4"`
}

type MessageReactionPayload struct {
	MessageID string `json:"messageId" validate:"required,uuid4"`
	Kind      string `json:"kind" validate:"required,max=32"`
}

type LoadOlderPayload struct {
	RoomID   string  `json:"roomId" validate:"required,max=64,excludesall=:"`
	Cursor   *string `json:"cursor,omitempty"`
	PageSize int     `json:"pageSize" validate:"gte=0,lte=500"`
}

// MessageAck acknowledges send_message and private_message with the
// canonical id and timestamp assigned by the store. Errors stay on the
// initiating connection; they are never broadcast.
type MessageAck struct {
	Status    string     `json:"status"`
	ID        string     `json:"id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// HistoryPage answers load_older. An empty Messages slice tells the
// client there is no more history.
type HistoryPage struct {
	Status   string           `json:"status"`
	RoomID   string           `json:"roomId"`
	Messages []domain.Message `json:"messages"`
	Error    string           `json:"error,omitempty"`
}

const (
	statusOK    = "ok"
	statusError = "error"

	ackMessage     = "message_ack"
	ackPrivate     = "private_ack"
	ackHistoryPage = "older_messages"
	ackError       = "error"
)
