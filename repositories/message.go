// Package repositories implements the message store facade on
// BadgerDB. The core never touches badger directly; it goes through
// contract.Store.
package repositories

import (
	"bytes"
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// Room messages live under "msg:{room_id}:{timestamp_padded}:{uuid}":
//  1. The 19-digit zero padding makes lexicographical order equal
//     chronological order within a room prefix.
//  2. The UUID suffix disambiguates two messages persisted in the same
//     nanosecond.
//
// Private messages live under "priv:..." so room scans never see them.
// Every message also has an "id:{uuid}" entry pointing at its primary
// key, for lookups by message id.
func primaryKey(msg domain.Message) []byte {
	if msg.Private {
		return []byte(fmt.Sprintf("priv:%019d:%s", msg.CreatedAt.UnixNano(), msg.ID))
	}
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", msg.Room, msg.CreatedAt.UnixNano(), msg.ID))
}

func indexKey(id uuid.UUID) []byte {
	return []byte("id:" + id.String())
}

// keyInRoom reports whether key is a primary key of the room with the
// given prefix. Prefix matching alone is not enough: a room id that
// extends this room's id (say "general:x" next to "general") produces
// keys starting with the shorter room's prefix. A genuine key carries
// exactly the padded timestamp and the uuid behind the prefix.
func keyInRoom(key, prefix []byte) bool {
	const suffixLen = 19 + 1 + 36 // padded timestamp, separator, uuid
	return bytes.HasPrefix(key, prefix) && len(key) == len(prefix)+suffixLen
}

// Create persists the message, assigning the canonical id and server
// timestamp. The returned copy is what must be fanned out.
func (m *MessageRepository) Create(_ context.Context, msg domain.Message) (domain.Message, error) {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now().UTC()

	raw, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, err
	}
	key := primaryKey(msg)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, raw); err != nil {
			return err
		}
		return txn.Set(indexKey(msg.ID), key)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("store message: %w", err)
	}
	return msg, nil
}

// FindPage retrieves up to pageSize room messages strictly older than
// the cursor message, oldest-first. Thanks to the padded timestamp in
// the key, a reverse prefix scan walks messages newest-first; the page
// is flipped before returning. A nil cursor, or one that no longer
// resolves (stale or deleted), yields the most recent page instead of
// failing, to keep scrolling usable after data drift.
func (m *MessageRepository) FindPage(_ context.Context, room domain.RoomID, cursor *uuid.UUID, pageSize int) ([]domain.Message, error) {
	prefix := []byte(fmt.Sprintf("msg:%s:", room))

	messages := make([]domain.Message, 0, pageSize)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Position past the newest possible key of the room prefix,
		// then walk backwards in time.
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		skipFirst := false
		if cursor != nil {
			if key, err := resolveKey(txn, *cursor); err == nil && keyInRoom(key, prefix) {
				seekKey = key
				skipFirst = true // the cursor message itself is excluded
			} else {
				m.log.Debug("cursor did not resolve, serving latest page", "cursor", cursor.String())
			}
		}

		it.Seek(seekKey)
		if skipFirst && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == pageSize {
				break
			}
			var msg domain.Message
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &msg)
			}); err != nil {
				return err
			}
			// Keys of rooms extending this room's id fall under the
			// same scan prefix; only count this room's own messages.
			if msg.Room != room {
				continue
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Scan order is newest-first; the page contract is oldest-first.
	return lo.Reverse(messages), nil
}

func (m *MessageRepository) FindByID(_ context.Context, id uuid.UUID) (domain.Message, error) {
	var msg domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		loaded, err := loadByID(txn, id)
		if err != nil {
			return err
		}
		msg = loaded
		return nil
	})
	return msg, err
}

// MarkRead adds the principal to the message's readBy set inside a
// single transaction. Repeat calls leave the stored message untouched
// and report no change.
func (m *MessageRepository) MarkRead(_ context.Context, id uuid.UUID, principalID string) (domain.Message, bool, error) {
	var (
		msg   domain.Message
		added bool
	)
	err := m.db.Update(func(txn *badger.Txn) error {
		loaded, err := loadByID(txn, id)
		if err != nil {
			return err
		}
		added = loaded.MarkRead(principalID)
		msg = loaded
		if !added {
			return nil
		}
		return storeBack(txn, loaded)
	})
	if err != nil {
		return domain.Message{}, false, err
	}
	return msg, added, nil
}

// ToggleReaction flips the (principal, kind) pair atomically and
// reports whether the reaction is active after the call.
func (m *MessageRepository) ToggleReaction(_ context.Context, id uuid.UUID, principalID, kind string) (domain.Message, bool, error) {
	var (
		msg    domain.Message
		active bool
	)
	err := m.db.Update(func(txn *badger.Txn) error {
		loaded, err := loadByID(txn, id)
		if err != nil {
			return err
		}
		active = loaded.ToggleReaction(principalID, kind)
		msg = loaded
		return storeBack(txn, loaded)
	})
	if err != nil {
		return domain.Message{}, false, err
	}
	return msg, active, nil
}

func resolveKey(txn *badger.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(indexKey(id))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func loadByID(txn *badger.Txn, id uuid.UUID) (domain.Message, error) {
	key, err := resolveKey(txn, id)
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	item, err := txn.Get(key)
	if err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	if err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &msg)
	}); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func storeBack(txn *badger.Txn, msg domain.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return txn.Set(primaryKey(msg), raw)
}
