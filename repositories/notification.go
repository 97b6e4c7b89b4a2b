//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type INotificationRepository interface {
	Store(userID string, notification domain.Notification) error
	ListFor(userID string) ([]domain.Notification, error)
	MarkRead(userID, notificationID string) error
}

type NotificationRepository struct {
	db *badger.DB
}

func NewNotificationRepository(db *badger.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// notifKey follows the padded-timestamp scheme of message keys so a
// reverse scan yields newest-first without sorting.
func notifKey(userID string, notification domain.Notification) []byte {
	return []byte(fmt.Sprintf("notif:%s:%019d:%s",
		userID, notification.CreatedAt.UnixNano(), notification.ID))
}

func notifPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("notif:%s:", userID))
}

func (r *NotificationRepository) Store(userID string, notification domain.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(notifKey(userID, notification), data)
	})
}

// ListFor returns the user's notifications, newest first.
func (r *NotificationRepository) ListFor(userID string) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := notifPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			var notification domain.Notification
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &notification)
			})
			if err != nil {
				return err
			}
			notifications = append(notifications, notification)
		}
		return nil
	})
	return notifications, err
}

// MarkRead flips the read flag in place. Unknown IDs are a no-op.
func (r *NotificationRepository) MarkRead(userID, notificationID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		prefix := notifPrefix(userID)
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var notification domain.Notification
			key := it.Item().KeyCopy(nil)
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &notification)
			})
			if err != nil {
				return err
			}
			if notification.ID != notificationID {
				continue
			}
			notification.Read = true
			data, err := json.Marshal(notification)
			if err != nil {
				return err
			}
			return txn.Set(key, data)
		}
		return nil
	})
}
