package domain

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// RoleOf returns the role of a user in the group, defaulting to member
// for entries that predate the role field. The second return is false
// when the user does not belong to the group at all.
func (g Group) RoleOf(userID string) (string, bool) {
	member, ok := g.Members[userID]
	if !ok {
		return "", false
	}
	if member.Role == "" {
		return RoleMember, true
	}
	return member.Role, true
}

// CanManageMembers reports whether the role may kick users.
func CanManageMembers(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanMuteMembers reports whether the role may mute or unmute users.
func CanMuteMembers(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanEditGroupInfo reports whether the role may change group metadata.
func CanEditGroupInfo(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanPromoteMembers reports whether the role may promote a member to admin.
func CanPromoteMembers(role string) bool {
	return role == RoleOwner
}
