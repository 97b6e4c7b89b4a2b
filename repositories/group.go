//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type IGroupRepository interface {
	Save(group domain.Group) error
	GetByID(groupID string) (domain.Group, error)
	GetByJoinCode(code string) (domain.Group, error)
	GroupsOf(userID string) ([]domain.Group, error)
	MembersOf(groupID string) map[string]domain.Member
	Exists(groupID string) bool
}

type GroupRepository struct {
	db *badger.DB
}

func NewGroupRepository(db *badger.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func groupKey(groupID string) []byte {
	return []byte(fmt.Sprintf("group:%s", groupID))
}

func joinCodeKey(code string) []byte {
	return []byte(fmt.Sprintf("group_code:%s", strings.ToUpper(code)))
}

// Save writes the group document and its join-code index entry.
func (r *GroupRepository) Save(group domain.Group) error {
	data, err := json.Marshal(group)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(groupKey(group.ID), data); err != nil {
			return err
		}
		return txn.Set(joinCodeKey(group.JoinCode), []byte(group.ID))
	})
}

func (r *GroupRepository) GetByID(groupID string) (domain.Group, error) {
	var group domain.Group
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(groupID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &group)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	return group, err
}

func (r *GroupRepository) GetByJoinCode(code string) (domain.Group, error) {
	var groupID string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(joinCodeKey(code))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			groupID = string(value)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Group{}, errors.ErrInvalidJoinCode
	}
	if err != nil {
		return domain.Group{}, err
	}
	return r.GetByID(groupID)
}

// GroupsOf scans the group prefix for groups the user belongs to.
func (r *GroupRepository) GroupsOf(userID string) ([]domain.Group, error) {
	var groups []domain.Group
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte("group:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var group domain.Group
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &group)
			})
			if err != nil {
				return err
			}
			if group.IsMember(userID) {
				groups = append(groups, group)
			}
		}
		return nil
	})
	return groups, err
}

// MembersOf is the membership collaborator consumed by fan-out callers.
// It re-reads the document on every call so a kick or a leave is
// visible to the very next broadcast, and returns an empty map for a
// missing group rather than an error.
func (r *GroupRepository) MembersOf(groupID string) map[string]domain.Member {
	group, err := r.GetByID(groupID)
	if err != nil {
		return map[string]domain.Member{}
	}
	return group.Members
}

func (r *GroupRepository) Exists(groupID string) bool {
	_, err := r.GetByID(groupID)
	return err == nil
}
