//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
// Package repositories persists the relay's documents in BadgerDB.
// Values are JSON documents with read-full/write-full semantics: every
// lookup re-reads the current document, nothing is cached across calls.
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	Save(user domain.User) error
	GetByID(userID string) (domain.User, error)
	GetByHandle(handle string) (domain.User, error)
	GetByUsername(username string) (domain.User, error)
	HandleExists(handle string) (bool, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(userID string) []byte {
	return []byte(fmt.Sprintf("user:%s", userID))
}

func handleKey(handle string) []byte {
	return []byte(fmt.Sprintf("user_handle:%s", strings.ToLower(handle)))
}

// Save writes the user document and its handle index entry in one
// transaction, so handle lookups never point at a missing document.
// A changed handle drops the old index entry in the same transaction;
// otherwise the stale handle would keep resolving to this user forever.
func (r *UserRepository) Save(user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(user.ID))
		if err == nil {
			var previous domain.User
			if err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &previous)
			}); err != nil {
				return err
			}
			if previous.Handle != "" && !strings.EqualFold(previous.Handle, user.Handle) {
				if err := txn.Delete(handleKey(previous.Handle)); err != nil {
					return err
				}
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		return txn.Set(handleKey(user.Handle), []byte(user.ID))
	})
}

func (r *UserRepository) GetByID(userID string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	return user, err
}

// GetByHandle resolves "name#1234" through the handle index.
func (r *UserRepository) GetByHandle(handle string) (domain.User, error) {
	var userID string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(handleKey(handle))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			userID = string(value)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return r.GetByID(userID)
}

// GetByUsername scans the user prefix for an exact username match.
// Usernames are not unique; the first match wins, mirroring how login
// by bare username behaves when tags collide.
func (r *UserRepository) GetByUsername(username string) (domain.User, error) {
	var found *domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte("user:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user domain.User
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &user)
			})
			if err != nil {
				return err
			}
			if user.Username == username {
				found = &user
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	if found == nil {
		return domain.User{}, errors.ErrUserNotFound
	}
	return *found, nil
}

func (r *UserRepository) HandleExists(handle string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(handleKey(handle))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
