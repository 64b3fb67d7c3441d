package ws

import (
	"chat-relay/domain"
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

type handlerFunc func(ctx context.Context, conn *Conn, env Envelope)

// dispatchTable maps inbound event names to handlers, one per event
// the protocol accepts. connect and disconnect are transport-level and
// handled by ServeHTTP itself.
func (s *Server) dispatchTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		"join_room":        s.onJoinRoom,
		"leave_room":       s.onLeaveRoom,
		"send_message":     s.onSendMessage,
		"private_message":  s.onPrivateMessage,
		"typing":           s.onTyping,
		"message_read":     s.onMessageRead,
		"message_reaction": s.onMessageReaction,
		"load_older":       s.onLoadOlder,
	}
}

// decode unmarshals and validates an inbound payload. A failure is
// reported to the initiating connection only.
func decode[T any](s *Server, conn *Conn, env Envelope) (T, bool) {
	var payload T
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		conn.write(ackError, MessageAck{Status: statusError, Error: "malformed payload for " + env.Event})
		return payload, false
	}
	if err := s.validate.Struct(payload); err != nil {
		conn.write(ackError, MessageAck{Status: statusError, Error: "invalid payload for " + env.Event + ": " + err.Error()})
		return payload, false
	}
	return payload, true
}

func (s *Server) onJoinRoom(ctx context.Context, conn *Conn, env Envelope) {
	payload, ok := decode[JoinRoomPayload](s, conn, env)
	if !ok {
		return
	}
	if err := s.orchestrator.JoinRoom(ctx, conn.ID(), domain.RoomID(payload.RoomID)); err != nil {
		conn.write(ackError, MessageAck{Status: statusError, Error: err.Error()})
	}
}

func (s *Server) onLeaveRoom(ctx context.Context, conn *Conn, env Envelope) {
	payload, ok := decode[LeaveRoomPayload](s, conn, env)
	if !ok {
		return
	}
	if err := s.orchestrator.LeaveRoom(ctx, conn.ID(), domain.RoomID(payload.RoomID)); err != nil {
		conn.write(ackError, MessageAck{Status: statusError, Error: err.Error()})
	}
}

func (s *Server) onSendMessage(ctx context.Context, conn *Conn, env Envelope) {
	payload, ok := decode[SendMessagePayload](s, conn, env)
	if !ok {
		return
	}
	session, ok := s.requireSession(conn)
	if !ok {
		return
	}
	persisted, err := s.fanout.SendRoomMessage(ctx, session, domain.RoomID(payload.RoomID), payload.Body, toAttachment(payload.Attachment))
	if err != nil {
		s.log.Error("room send failed", "connection_id", conn.ID(), "room_id", payload.RoomID, "error", err)
		conn.write(ackMessage, MessageAck{Status: statusError, Error: "message could not be persisted"})
		return
	}
	conn.write(ackMessage, MessageAck{Status: statusOK, ID: persisted.ID.String(), Timestamp: &persisted.CreatedAt})
}

func (s *Server) onPrivateMessage(ctx context.Context, conn *Conn, env Envelope) {
	payload, ok := decode[PrivateMessagePayload](s, conn, env)
	if !ok {
		return
	}
	session, ok := s.requireSession(conn)
	if !ok {
		return
	}
	persisted, err := s.fanout.SendPrivateMessage(ctx, session, payload.TargetPrincipalID, payload.Body)
	if err != nil {
		s.log.Error("private send failed", "connection_id", conn.ID(), "target", payload.TargetPrincipalID, "error", err)
		conn.write(ackPrivate, MessageAck{Status: statusError, Error: "message could not be persisted"})
		return
	}
	conn.write(ackPrivate, MessageAck{Status: statusOK, ID: persisted.ID.String()})
}

func (s *Server) onTyping(ctx context.Context, conn *Conn, env Envelope) {
	payload, ok := decode[TypingPayload](s, conn, env)
	if !ok {
		return
	}
	// No ack by contract; a failed lookup means the session raced
	// its own disconnect and there is nobody to tell.
	_ = s.orchestrator.SetTyping(ctx, conn.ID(), domain.RoomID(payload.RoomID), payload.IsTyping)
}

func (s *Server) onMessageRead(ctx context.Context, conn *Conn, env Envelope) {
	payload, ok := decode[MessageReadPayload](s, conn, env)
	if !ok {
		return
	}
	session, ok := s.requireSession(conn)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		conn.write(ackError, MessageAck{Status: statusError, Error: "invalid message id"})
		return
	}
	if err := s.fanout.MarkRead(ctx, session.Identity.PrincipalID, messageID); err != nil {
		s.log.Warn("mark read failed", "connection_id", conn.ID(), "message_id", messageID, "error", err)
	}
}

func (s *Server) onMessageReaction(ctx context.Context, conn *Conn, env Envelope) {
	payload, ok := decode[MessageReactionPayload](s, conn, env)
	if !ok {
		return
	}
	session, ok := s.requireSession(conn)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		conn.write(ackError, MessageAck{Status: statusError, Error: "invalid message id"})
		return
	}
	if err := s.fanout.ToggleReaction(ctx, session.Identity.PrincipalID, messageID, payload.Kind); err != nil {
		s.log.Warn("toggle reaction failed", "connection_id", conn.ID(), "message_id", messageID, "error", err)
	}
}

func (s *Server) onLoadOlder(ctx context.Context, conn *Conn, env Envelope) {
	payload, ok := decode[LoadOlderPayload](s, conn, env)
	if !ok {
		return
	}
	var cursor *uuid.UUID
	if payload.Cursor != nil {
		// An unparseable cursor degrades to "latest page", same as a
		// stale one, to keep scrolling usable.
		if id, err := uuid.Parse(*payload.Cursor); err == nil {
			cursor = &id
		}
	}
	messages, err := s.history.Page(ctx, domain.RoomID(payload.RoomID), cursor, payload.PageSize)
	if err != nil {
		s.log.Error("history page failed", "connection_id", conn.ID(), "room_id", payload.RoomID, "error", err)
		conn.write(ackHistoryPage, HistoryPage{Status: statusError, RoomID: payload.RoomID, Error: "history unavailable"})
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	conn.write(ackHistoryPage, HistoryPage{Status: statusOK, RoomID: payload.RoomID, Messages: messages})
}

func (s *Server) requireSession(conn *Conn) (domain.Session, bool) {
	session, ok := s.orchestrator.Registry().Lookup(conn.ID())
	if !ok {
		conn.write(ackError, MessageAck{Status: statusError, Error: "not authenticated"})
		return domain.Session{}, false
	}
	return session, true
}

func toAttachment(payload *AttachmentPayload) *domain.AttachmentMeta {
	if payload == nil {
		return nil
	}
	return &domain.AttachmentMeta{
		Name:        payload.Name,
		ContentType: payload.ContentType,
		Size:        payload.Size,
	}
}
