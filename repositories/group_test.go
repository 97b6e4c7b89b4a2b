package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testGroup(name, ownerID, joinCode string) domain.Group {
	return domain.Group{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		JoinCode:  joinCode,
		CreatedAt: time.Now(),
		Members: map[string]domain.Member{
			ownerID: {Role: domain.RoleOwner, Username: "Owner", JoinedAt: time.Now()},
		},
	}
}

func TestGroupRepository_Save_And_GetByJoinCode(t *testing.T) {
	req := require.New(t)
	repository := NewGroupRepository(openTestDB(t))
	group := testGroup("Gophers", "alice", "AB12CD")
	req.NoError(repository.Save(group))

	// Join codes resolve regardless of case
	found, err := repository.GetByJoinCode("ab12cd")
	req.NoError(err)
	req.Equal(group.ID, found.ID)

	_, err = repository.GetByJoinCode("NOPE99")
	req.ErrorIs(err, errors.ErrInvalidJoinCode)
}

func TestGroupRepository_GroupsOf_Filters_By_Membership(t *testing.T) {
	req := require.New(t)
	repository := NewGroupRepository(openTestDB(t))
	mine := testGroup("Mine", "alice", "AAAAAA")
	other := testGroup("Other", "bob", "BBBBBB")
	req.NoError(repository.Save(mine))
	req.NoError(repository.Save(other))

	groups, err := repository.GroupsOf("alice")
	req.NoError(err)
	req.Len(groups, 1)
	req.Equal("Mine", groups[0].Name)
}

func TestGroupRepository_MembersOf_Reads_Fresh(t *testing.T) {
	req := require.New(t)
	repository := NewGroupRepository(openTestDB(t))
	group := testGroup("Gophers", "alice", "AB12CD")
	req.NoError(repository.Save(group))

	req.Len(repository.MembersOf(group.ID), 1)

	// When membership changes on disk
	group.Members["bob"] = domain.Member{Role: domain.RoleMember, Username: "Bob", JoinedAt: time.Now()}
	req.NoError(repository.Save(group))

	// Then the very next read sees it
	members := repository.MembersOf(group.ID)
	req.Len(members, 2)
	req.Contains(members, "bob")
}

func TestGroupRepository_MembersOf_Missing_Group_Is_Empty(t *testing.T) {
	req := require.New(t)
	repository := NewGroupRepository(openTestDB(t))

	req.Empty(repository.MembersOf("nowhere"))
	req.False(repository.Exists("nowhere"))
}
