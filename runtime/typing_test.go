package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func typingFixture(t *testing.T, ttl time.Duration) (*Registry, *TypingCoordinator) {
	t.Helper()
	log := slog.Default()
	rooms := NewRoomDirectory()
	registry := NewRegistry(log, rooms)
	broadcaster := NewBroadcaster(log, registry, rooms, time.Second)
	return registry, NewTypingCoordinator(log, broadcaster, ttl)
}

func register(t *testing.T, registry *Registry, name string) (domain.Session, *captureSink) {
	t.Helper()
	req := require.New(t)
	sink := &captureSink{}
	session, err := registry.Register(domain.ConnectionID(uuid.NewString()), identity(name), sink)
	req.NoError(err)
	return session, sink
}

func lastTypingSnapshot(sink *captureSink) ([]string, bool) {
	var snapshot []string
	found := false
	for _, e := range sink.Events() {
		if evt, ok := e.(event.TypingUsers); ok {
			snapshot = evt.Users
			found = true
		}
	}
	return snapshot, found
}

func TestTyping_Signal_Broadcasts_Full_Snapshot(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry, typing := typingFixture(t, time.Second)
	alice, aliceSink := register(t, registry, "alice")
	_, bobSink := register(t, registry, "bob")

	// When alice starts typing in the default room
	typing.SetTyping(ctx, alice, domain.DefaultRoom, true)

	// Then every member, alice included, receives the snapshot
	snapshot, ok := lastTypingSnapshot(aliceSink)
	req.True(ok)
	req.Equal([]string{"alice"}, snapshot)
	snapshot, ok = lastTypingSnapshot(bobSink)
	req.True(ok)
	req.Equal([]string{"alice"}, snapshot)
}

func TestTyping_Explicit_False_Clears_The_Entry(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry, typing := typingFixture(t, time.Second)
	alice, _ := register(t, registry, "alice")
	_, bobSink := register(t, registry, "bob")

	typing.SetTyping(ctx, alice, domain.DefaultRoom, true)
	typing.SetTyping(ctx, alice, domain.DefaultRoom, false)

	snapshot, ok := lastTypingSnapshot(bobSink)
	req.True(ok)
	req.Empty(snapshot)
	req.Empty(typing.Snapshot(domain.DefaultRoom))
}

func TestTyping_Entry_Expires_Without_Explicit_False(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry, typing := typingFixture(t, 50*time.Millisecond)
	bob, _ := register(t, registry, "bob")
	_, aliceSink := register(t, registry, "alice")

	// Given bob signals typing and then goes silent
	typing.SetTyping(ctx, bob, domain.DefaultRoom, true)
	snapshot, ok := lastTypingSnapshot(aliceSink)
	req.True(ok)
	req.Equal([]string{"bob"}, snapshot)

	// When the ttl elapses without refresh
	req.Eventually(func() bool {
		return len(typing.Snapshot(domain.DefaultRoom)) == 0
	}, time.Second, 10*time.Millisecond)

	// Then the other members saw the cleared snapshot
	snapshot, ok = lastTypingSnapshot(aliceSink)
	req.True(ok)
	req.Empty(snapshot)
}

func TestTyping_Refresh_Extends_The_Deadline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry, typing := typingFixture(t, 80*time.Millisecond)
	alice, _ := register(t, registry, "alice")

	typing.SetTyping(ctx, alice, domain.DefaultRoom, true)
	time.Sleep(50 * time.Millisecond)
	typing.SetTyping(ctx, alice, domain.DefaultRoom, true)
	time.Sleep(50 * time.Millisecond)

	// The first deadline passed but the refresh kept the entry alive
	req.Equal([]string{"alice"}, typing.Snapshot(domain.DefaultRoom))
}

func TestTyping_Disconnect_Clears_Typing_State(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry, typing := typingFixture(t, time.Minute)
	bob, _ := register(t, registry, "bob")
	_, aliceSink := register(t, registry, "alice")

	typing.SetTyping(ctx, bob, domain.DefaultRoom, true)

	// When bob's connection goes away without sending typing=false
	typing.ClearConnection(ctx, bob.ConnectionID)

	snapshot, ok := lastTypingSnapshot(aliceSink)
	req.True(ok)
	req.Empty(snapshot)
	req.Empty(typing.Snapshot(domain.DefaultRoom))
}

func TestTyping_Sweep_Removes_Stale_Entries(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry, typing := typingFixture(t, time.Nanosecond)
	alice, _ := register(t, registry, "alice")

	typing.SetTyping(ctx, alice, domain.DefaultRoom, true)
	time.Sleep(5 * time.Millisecond)

	typing.Sweep(ctx)

	req.Empty(typing.Snapshot(domain.DefaultRoom))
}
