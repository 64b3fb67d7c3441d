package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Broadcaster delivers one logical event to a computed set of
// connections, best-effort per recipient: a slow or failing sink is
// logged and skipped, it never blocks or fails delivery to the rest.
// Permanent sinks (projections, audit) receive every event regardless
// of addressing.
type Broadcaster struct {
	log         *slog.Logger
	registry    *Registry
	rooms       *RoomDirectory
	permanent   []contract.EventSink
	sinkTimeout time.Duration
}

func NewBroadcaster(log *slog.Logger, registry *Registry, rooms *RoomDirectory, sinkTimeout time.Duration) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, rooms: rooms, sinkTimeout: sinkTimeout}
}

// Add registers permanent sinks fed on every emitted event.
func (b *Broadcaster) Add(sinks ...contract.EventSink) {
	b.permanent = append(b.permanent, sinks...)
}

// ToRoom delivers the event to every current member of the room.
// Unknown or empty rooms degrade to a no-op delivery.
func (b *Broadcaster) ToRoom(ctx context.Context, roomID domain.RoomID, evt event.Event) {
	targets := b.rooms.BroadcastTargets(roomID)
	b.deliver(ctx, b.registry.Sinks(targets), evt)
}

// ToConnections delivers the event to the given connections.
func (b *Broadcaster) ToConnections(ctx context.Context, connIDs []domain.ConnectionID, evt event.Event) {
	b.deliver(ctx, b.registry.Sinks(connIDs), evt)
}

// ToPrincipals delivers the event to every connection of every listed
// principal. Principals with no live connection receive nothing.
func (b *Broadcaster) ToPrincipals(ctx context.Context, principalIDs []string, evt event.Event) {
	var connIDs []domain.ConnectionID
	for _, principalID := range principalIDs {
		connIDs = append(connIDs, b.registry.IdentitySessions(principalID)...)
	}
	b.deliver(ctx, b.registry.Sinks(connIDs), evt)
}

// deliver fans the event out to every sink concurrently and returns
// once each one has accepted or timed out. A backpressured connection
// costs at most one sinkTimeout in total, not one per recipient, and
// the caller still observes completed delivery on return, which is
// what the per-room send ordering relies on.
func (b *Broadcaster) deliver(ctx context.Context, sinks []contract.EventSink, evt event.Event) {
	var wg sync.WaitGroup
	for _, sink := range append(sinks, b.permanent...) {
		wg.Add(1)
		go func(sink contract.EventSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
			defer cancel()
			if err := sink.Consume(sinkCtx, evt); err != nil {
				b.log.Warn("sink dropped event", "event", evt.EventName(), "error", err)
			}
		}(sink)
	}
	wg.Wait()
}
