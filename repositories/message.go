//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Store(chatKey string, message domain.Message) error
	GetMessages(chatKey string, cursor *string) ([]domain.Message, *string, error)
	GetByID(chatKey string, messageID uuid.UUID) (domain.Message, error)
	Tombstone(chatKey string, messageID uuid.UUID, senderID string) error
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DirectChatKey computes the storage key of a one-to-one conversation.
// The pair is sorted so both sides address the same history. Routing
// never depends on this; it is a storage addressing concern only.
func DirectChatKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// messageKey is "msg:{chat}:{timestamp_padded}:{uuid}":
//  1. the 19-digit zero padding keeps keys chronologically sorted in
//     lexicographical order;
//  2. the UUID disambiguates two messages landing on the same
//     millisecond.
func messageKey(chatKey string, message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", chatKey, message.Timestamp, message.ID))
}

func chatPrefix(chatKey string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", chatKey))
}

// Store persists a message under its chat's prefix.
func (r *MessageRepository) Store(chatKey string, message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(chatKey, message), data)
	})
}

// GetMessages pages through a chat's history, newest first on disk but
// returned oldest-to-newest per page. The returned cursor is the key
// suffix of the oldest message in the page; pass it back to fetch the
// previous page. Nil cursor starts from the most recent message.
func (r *MessageRepository) GetMessages(chatKey string, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string

	err := r.db.View(func(txn *badger.Txn) error {
		prefix := chatPrefix(chatKey)
		prefixLen := len(prefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key, then walk backwards.
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}

		it.Seek(seekKey)

		// Skip the cursor entry itself when resuming
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(messages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *r.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			var message domain.Message
			err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Oldest first for the client
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})

	if lastKey == "" {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// GetByID scans the chat's prefix for a message. The UUID is the key's
// suffix, so the scan matches on key alone without decoding values.
func (r *MessageRepository) GetByID(chatKey string, messageID uuid.UUID) (domain.Message, error) {
	var found *domain.Message
	suffix := ":" + messageID.String()

	err := r.db.View(func(txn *badger.Txn) error {
		prefix := chatPrefix(chatKey)
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if !strings.HasSuffix(string(it.Item().Key()), suffix) {
				continue
			}
			var message domain.Message
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			})
			if err != nil {
				return err
			}
			found = &message
			return nil
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	if found == nil {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	return *found, nil
}

// Tombstone soft-deletes a message in place. Only the sender may delete
// their own message; the key is untouched so history keeps its order.
func (r *MessageRepository) Tombstone(chatKey string, messageID uuid.UUID, senderID string) error {
	message, err := r.GetByID(chatKey, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != senderID {
		return errors.ErrPermissionDenied
	}
	message.Tombstone()

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(chatKey, message), data)
	})
}
