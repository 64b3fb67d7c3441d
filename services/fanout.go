// Package services implements the message-facing operations of the
// core: fan-out with acknowledgement and history pagination. The
// runtime package owns who is online; this package decides who a
// message reaches and in what order.
package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// FanoutService is the fan-out engine. Its one correctness property:
// persistence happens before fan-out, and for a given room the order
// in which messages become visible to members equals the order their
// persistence calls completed. A per-room send lock spans both steps
// to pin that order; sends to different rooms proceed concurrently.
type FanoutService struct {
	log              *slog.Logger
	store            contract.Store
	registry         *runtime.Registry
	broadcaster      *runtime.Broadcaster
	moderator        *moderation.Moderator
	notifySenderRead bool

	mu        sync.Mutex
	roomLocks map[domain.RoomID]*sync.Mutex
}

func NewFanoutService(
	log *slog.Logger,
	store contract.Store,
	registry *runtime.Registry,
	broadcaster *runtime.Broadcaster,
	moderator *moderation.Moderator,
	notifySenderRead bool,
) *FanoutService {
	return &FanoutService{
		log:              log,
		store:            store,
		registry:         registry,
		broadcaster:      broadcaster,
		moderator:        moderator,
		notifySenderRead: notifySenderRead,
		roomLocks:        make(map[domain.RoomID]*sync.Mutex),
	}
}

// SendRoomMessage persists a room-scoped message and delivers the
// canonical copy to every current member, sender included: the echo
// carries the store-assigned id and timestamp the sender needs to
// reconcile an optimistic local copy. A store failure aborts before
// any delivery; per-member delivery failures are logged and do not
// fail the send.
func (s *FanoutService) SendRoomMessage(ctx context.Context, sender domain.Session, roomID domain.RoomID, body string, attachment *domain.AttachmentMeta) (domain.Message, error) {
	msg := domain.Message{
		Room:       roomID,
		Body:       s.censor(body),
		SenderID:   sender.Identity.PrincipalID,
		SenderName: sender.Identity.DisplayName,
		Attachment: attachment,
	}

	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	persisted, err := s.store.Create(ctx, msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("persist room message: %w", err)
	}
	s.broadcaster.ToRoom(ctx, roomID, event.MessageReceived{Message: persisted})
	return persisted, nil
}

// SendPrivateMessage persists a private message and fans it out to
// every connection of the target principal and of the sender's own
// principal, so multi-device senders see their sent message too. A
// target with no live connection is acceptable degraded behavior, not
// an error: persistence already succeeded.
func (s *FanoutService) SendPrivateMessage(ctx context.Context, sender domain.Session, targetPrincipalID, body string) (domain.Message, error) {
	msg := domain.Message{
		Body:       s.censor(body),
		SenderID:   sender.Identity.PrincipalID,
		SenderName: sender.Identity.DisplayName,
		Private:    true,
		Target:     targetPrincipalID,
	}

	persisted, err := s.store.Create(ctx, msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("persist private message: %w", err)
	}
	s.broadcaster.ToPrincipals(ctx,
		principalPair(sender.Identity.PrincipalID, targetPrincipalID),
		event.PrivateMessage{Message: persisted})
	return persisted, nil
}

// MarkRead idempotently adds the principal to the message's readBy
// set. Only the first addition notifies: the original sender's
// connections for private messages, the whole room otherwise. A read
// by the message's own sender notifies only when the service was
// configured to do so.
func (s *FanoutService) MarkRead(ctx context.Context, principalID string, messageID uuid.UUID) error {
	msg, added, err := s.store.MarkRead(ctx, messageID, principalID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if !added {
		return nil
	}
	if principalID == msg.SenderID && !s.notifySenderRead {
		return nil
	}

	evt := event.MessageRead{MessageID: messageID, Room: msg.Room, PrincipalID: principalID}
	if msg.Private {
		s.broadcaster.ToPrincipals(ctx, []string{msg.SenderID}, evt)
	} else {
		s.broadcaster.ToRoom(ctx, msg.Room, evt)
	}
	return nil
}

// ToggleReaction flips the (principal, kind) pair on the message and
// always notifies the interested parties afterwards: room members for
// room messages, the sender and target principals for private ones.
func (s *FanoutService) ToggleReaction(ctx context.Context, principalID string, messageID uuid.UUID, kind string) error {
	msg, active, err := s.store.ToggleReaction(ctx, messageID, principalID, kind)
	if err != nil {
		return fmt.Errorf("toggle reaction: %w", err)
	}

	evt := event.MessageReaction{
		MessageID:   messageID,
		Room:        msg.Room,
		PrincipalID: principalID,
		Kind:        kind,
		Active:      active,
		Reactions:   msg.Reactions,
	}
	if msg.Private {
		s.broadcaster.ToPrincipals(ctx, principalPair(msg.SenderID, msg.Target), evt)
	} else {
		s.broadcaster.ToRoom(ctx, msg.Room, evt)
	}
	return nil
}

func (s *FanoutService) censor(body string) string {
	if s.moderator == nil {
		return body
	}
	return s.moderator.Censor(body)
}

func (s *FanoutService) roomLock(roomID domain.RoomID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomID] = lock
	}
	return lock
}

// principalPair deduplicates the self-message case where sender and
// target are the same principal.
func principalPair(a, b string) []string {
	if a == b {
		return []string{a}
	}
	return []string{a, b}
}
