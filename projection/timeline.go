// Package projection builds local read models from observed events.
// It never emits events or touches the registry.
package projection

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"sync"
)

var _ contract.EventSink = (*Timeline)(nil)

// Timeline keeps an in-memory, append-ordered view of the messages
// seen per room. Registered as a permanent sink on the broadcaster;
// may be consumed from several fanout goroutines at once.
type Timeline struct {
	mu       sync.RWMutex
	messages map[domain.RoomID][]domain.Message
}

func NewTimeline() *Timeline {
	return &Timeline{messages: make(map[domain.RoomID][]domain.Message)}
}

func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	if evt, ok := e.(event.MessageReceived); ok {
		t.mu.Lock()
		t.messages[evt.Message.Room] = append(t.messages[evt.Message.Room], evt.Message)
		t.mu.Unlock()
	}
	return nil
}

// Room returns a copy of the timeline observed for the room.
func (t *Timeline) Room(roomID domain.RoomID) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Message, len(t.messages[roomID]))
	copy(out, t.messages[roomID])
	return out
}
