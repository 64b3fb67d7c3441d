package projection

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTimeline_Records_Room_Messages_In_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	timeline := NewTimeline()
	roomID := domain.RoomID("general")

	first := domain.Message{ID: uuid.New(), Room: roomID, Body: "first"}
	second := domain.Message{ID: uuid.New(), Room: roomID, Body: "second"}

	req.NoError(timeline.Consume(ctx, event.MessageReceived{Message: first}))
	req.NoError(timeline.Consume(ctx, event.MessageReceived{Message: second}))

	observed := timeline.Room(roomID)
	req.Len(observed, 2)
	req.Equal("first", observed[0].Body)
	req.Equal("second", observed[1].Body)
}

func TestTimeline_Ignores_Non_Message_Events(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	timeline := NewTimeline()

	req.NoError(timeline.Consume(ctx, event.UserJoined{Room: "general", PrincipalID: "alice"}))
	req.NoError(timeline.Consume(ctx, event.TypingUsers{Room: "general", Users: []string{"alice"}}))

	req.Empty(timeline.Room(domain.RoomID("general")))
}

func TestTimeline_Room_Returns_A_Copy(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	timeline := NewTimeline()
	roomID := domain.RoomID("general")

	req.NoError(timeline.Consume(ctx, event.MessageReceived{Message: domain.Message{ID: uuid.New(), Room: roomID, Body: "original"}}))

	observed := timeline.Room(roomID)
	observed[0].Body = "tampered"

	req.Equal("original", timeline.Room(roomID)[0].Body)
}
