package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Consume(context.Context, event.Event) error {
	return fmt.Errorf("sink is gone")
}

func TestBroadcaster_ToRoom_Reaches_Every_Member(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := slog.Default()
	rooms := NewRoomDirectory()
	registry := NewRegistry(log, rooms)
	broadcaster := NewBroadcaster(log, registry, rooms, time.Second)

	_, aliceSink := register(t, registry, "alice")
	_, bobSink := register(t, registry, "bob")

	broadcaster.ToRoom(ctx, domain.DefaultRoom, event.UserList{})

	req.Equal([]string{"user_list"}, aliceSink.Names())
	req.Equal([]string{"user_list"}, bobSink.Names())
}

func TestBroadcaster_Failing_Sink_Does_Not_Stop_Delivery(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := slog.Default()
	rooms := NewRoomDirectory()
	registry := NewRegistry(log, rooms)
	broadcaster := NewBroadcaster(log, registry, rooms, time.Second)

	// Given one broken member between two healthy ones
	_, aliceSink := register(t, registry, "alice")
	_, err := registry.Register(domain.ConnectionID(uuid.NewString()), identity("broken"), failingSink{})
	req.NoError(err)
	_, bobSink := register(t, registry, "bob")

	broadcaster.ToRoom(ctx, domain.DefaultRoom, event.UserList{})

	// Then the healthy members still received the event
	req.Len(aliceSink.Events(), 1)
	req.Len(bobSink.Events(), 1)
}

func TestBroadcaster_Permanent_Sink_Sees_Every_Event(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := slog.Default()
	rooms := NewRoomDirectory()
	registry := NewRegistry(log, rooms)
	broadcaster := NewBroadcaster(log, registry, rooms, time.Second)

	permanent := &captureSink{}
	broadcaster.Add(permanent)

	alice, _ := register(t, registry, "alice")

	broadcaster.ToRoom(ctx, domain.DefaultRoom, event.UserList{})
	broadcaster.ToConnections(ctx, []domain.ConnectionID{alice.ConnectionID}, event.TypingUsers{Room: domain.DefaultRoom})
	broadcaster.ToPrincipals(ctx, []string{"alice"}, event.UserList{})

	req.Len(permanent.Events(), 3)
}

type stallingSink struct{}

func (stallingSink) Consume(ctx context.Context, _ event.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

type stampingSink struct {
	mu         sync.Mutex
	receivedAt time.Time
}

func (s *stampingSink) Consume(context.Context, event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receivedAt = time.Now()
	return nil
}

func TestBroadcaster_Backpressured_Sink_Does_Not_Delay_Others(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := slog.Default()
	rooms := NewRoomDirectory()
	registry := NewRegistry(log, rooms)
	sinkTimeout := 300 * time.Millisecond
	broadcaster := NewBroadcaster(log, registry, rooms, sinkTimeout)

	// Given a sink that blocks until its delivery context expires,
	// registered ahead of a healthy one
	_, err := registry.Register(domain.ConnectionID(uuid.NewString()), identity("stuck"), stallingSink{})
	req.NoError(err)
	healthy := &stampingSink{}
	_, err = registry.Register(domain.ConnectionID(uuid.NewString()), identity("healthy"), healthy)
	req.NoError(err)

	start := time.Now()
	broadcaster.ToRoom(ctx, domain.DefaultRoom, event.UserList{})

	// Then the healthy sink was served well before the stuck sink's
	// timeout, and the whole delivery cost one timeout at most
	healthy.mu.Lock()
	receivedAt := healthy.receivedAt
	healthy.mu.Unlock()
	req.False(receivedAt.IsZero())
	req.Less(receivedAt.Sub(start), sinkTimeout/2)
	req.Less(time.Since(start), 2*sinkTimeout)
}

func TestBroadcaster_ToPrincipals_Targets_All_Devices(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := slog.Default()
	rooms := NewRoomDirectory()
	registry := NewRegistry(log, rooms)
	broadcaster := NewBroadcaster(log, registry, rooms, time.Second)

	_, phoneSink := register(t, registry, "carol")
	_, laptopSink := register(t, registry, "carol")
	_, otherSink := register(t, registry, "dave")

	broadcaster.ToPrincipals(ctx, []string{"carol"}, event.UserList{})

	req.Len(phoneSink.Events(), 1)
	req.Len(laptopSink.Events(), 1)
	req.Empty(otherSink.Events())
}
