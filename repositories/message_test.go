package repositories

import (
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *MessageRepository {
	t.Helper()
	req := require.New(t)
	options := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMessageRepository(db, slog.Default())
}

func storeSequence(t *testing.T, repo *MessageRepository, room domain.RoomID, count int) []domain.Message {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()
	messages := make([]domain.Message, 0, count)
	for i := 1; i <= count; i++ {
		persisted, err := repo.Create(ctx, domain.Message{
			Room:     room,
			Body:     fmt.Sprintf("message %d", i),
			SenderID: fmt.Sprintf("user_%d", i),
		})
		req.NoError(err)
		messages = append(messages, persisted)
		// Distinct persistence timestamps keep the key order unambiguous.
		time.Sleep(time.Millisecond)
	}
	return messages
}

func TestMessageRepository_Create_Assigns_Id_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t)

	persisted, err := repo.Create(context.Background(), domain.Message{Room: "general", Body: "hi"})
	req.NoError(err)
	req.NotEqual(uuid.Nil, persisted.ID)
	req.False(persisted.CreatedAt.IsZero())

	found, err := repo.FindByID(context.Background(), persisted.ID)
	req.NoError(err)
	req.Equal(persisted.ID, found.ID)
	req.Equal("hi", found.Body)
}

func TestMessageRepository_Paging_Walks_History_Exactly_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)
	room := domain.RoomID("general")
	stored := storeSequence(t, repo, room, 10)

	// --- PAGE 1: the most recent page, oldest-first inside the page ---
	page1, err := repo.FindPage(ctx, room, nil, 4)
	req.NoError(err)
	req.Len(page1, 4)
	req.Equal(stored[6].ID, page1[0].ID)
	req.Equal(stored[9].ID, page1[3].ID)

	// --- PAGE 2: strictly older than the oldest of page 1 ---
	cursor := page1[0].ID
	page2, err := repo.FindPage(ctx, room, &cursor, 4)
	req.NoError(err)
	req.Len(page2, 4)
	req.Equal(stored[2].ID, page2[0].ID)
	req.Equal(stored[5].ID, page2[3].ID)

	// --- PAGE 3: the remainder ---
	cursor = page2[0].ID
	page3, err := repo.FindPage(ctx, room, &cursor, 4)
	req.NoError(err)
	req.Len(page3, 2)
	req.Equal(stored[0].ID, page3[0].ID)
	req.Equal(stored[1].ID, page3[1].ID)

	// Walking past the oldest message yields an empty page
	cursor = page3[0].ID
	page4, err := repo.FindPage(ctx, room, &cursor, 4)
	req.NoError(err)
	req.Empty(page4)
}

func TestMessageRepository_Stale_Cursor_Falls_Back_To_Latest_Page(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)
	room := domain.RoomID("general")
	stored := storeSequence(t, repo, room, 3)

	// When paging with a cursor no stored message carries
	ghost := uuid.New()
	page, err := repo.FindPage(ctx, room, &ghost, 10)

	// Then the most recent page comes back instead of an error
	req.NoError(err)
	req.Len(page, 3)
	req.Equal(stored[0].ID, page[0].ID)
}

func TestMessageRepository_Room_Pages_Exclude_Private_Messages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)
	room := domain.RoomID("general")

	_, err := repo.Create(ctx, domain.Message{Room: room, Body: "public"})
	req.NoError(err)
	private, err := repo.Create(ctx, domain.Message{Body: "secret", Private: true, SenderID: "carol", Target: "dave"})
	req.NoError(err)

	page, err := repo.FindPage(ctx, room, nil, 10)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("public", page[0].Body)

	// The private message is still reachable by id
	found, err := repo.FindByID(ctx, private.ID)
	req.NoError(err)
	req.Equal("secret", found.Body)
}

func TestMessageRepository_Rooms_Sharing_A_Prefix_Stay_Separate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)

	// Given two rooms whose ids share a prefix in the key space
	mine, err := repo.Create(ctx, domain.Message{Room: "general", Body: "mine"})
	req.NoError(err)
	other, err := repo.Create(ctx, domain.Message{Room: "general:x", Body: "theirs"})
	req.NoError(err)

	// Then each room's page holds only its own messages
	page, err := repo.FindPage(ctx, "general", nil, 10)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal(mine.ID, page[0].ID)

	page, err = repo.FindPage(ctx, "general:x", nil, 10)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal(other.ID, page[0].ID)

	// And the other room's message id is not a valid cursor here: it
	// degrades to the latest page, same as a stale cursor
	page, err = repo.FindPage(ctx, "general", &other.ID, 10)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal(mine.ID, page[0].ID)
}

func TestMessageRepository_FindByID_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repo := newTestRepository(t)

	_, err := repo.FindByID(context.Background(), uuid.New())
	req.ErrorIs(err, apperrors.ErrMessageNotFound)
}

func TestMessageRepository_MarkRead_Persists_And_Stays_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)

	persisted, err := repo.Create(ctx, domain.Message{Room: "general", Body: "hi", SenderID: "alice"})
	req.NoError(err)

	msg, added, err := repo.MarkRead(ctx, persisted.ID, "bob")
	req.NoError(err)
	req.True(added)
	req.Equal([]string{"bob"}, msg.ReadBy)

	// A repeat read changes nothing
	msg, added, err = repo.MarkRead(ctx, persisted.ID, "bob")
	req.NoError(err)
	req.False(added)
	req.Equal([]string{"bob"}, msg.ReadBy)

	// The change survived the transaction
	found, err := repo.FindByID(ctx, persisted.ID)
	req.NoError(err)
	req.Equal([]string{"bob"}, found.ReadBy)
}

func TestMessageRepository_ToggleReaction_Round_Trip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t)

	persisted, err := repo.Create(ctx, domain.Message{Room: "general", Body: "hi", SenderID: "alice"})
	req.NoError(err)

	msg, active, err := repo.ToggleReaction(ctx, persisted.ID, "bob", "thumbsup")
	req.NoError(err)
	req.True(active)
	req.Equal([]string{"bob"}, msg.Reactions["thumbsup"])

	msg, active, err = repo.ToggleReaction(ctx, persisted.ID, "bob", "thumbsup")
	req.NoError(err)
	req.False(active)
	req.Empty(msg.Reactions)

	found, err := repo.FindByID(ctx, persisted.ID)
	req.NoError(err)
	req.Empty(found.Reactions)
}
