package handlers

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdminHandler_Owner_Kicks_Member(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	handler := NewAdminHandler(f.groups, f.registry, f.broadcaster, slog.Default())
	alice, aliceConn := f.seedUser(t, "alice")
	bob, bobConn := f.seedUser(t, "bob")
	group := f.seedGroup(t, "Gophers", alice, bob)

	handler.AdminAction(context.Background(), aliceConn, payload(t, map[string]string{
		"group_id": group.ID, "action": "kick", "target_id": bob.ID,
	}))

	res, ok := aliceConn.lastOfType(t, "admin_action")
	req.True(ok)
	req.Equal(domain.StatusSuccess, res.Status)

	// The kicked user is told even though they just left the member map
	_, ok = bobConn.lastOfType(t, "admin_update")
	req.True(ok)

	// And the very next membership read excludes them
	members := f.groups.MembersOf(group.ID)
	req.NotContains(members, bob.ID)
	req.Contains(members, alice.ID)
}

func TestAdminHandler_Member_Cannot_Kick(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	handler := NewAdminHandler(f.groups, f.registry, f.broadcaster, slog.Default())
	alice, _ := f.seedUser(t, "alice")
	bob, bobConn := f.seedUser(t, "bob")
	clara, _ := f.seedUser(t, "clara")
	group := f.seedGroup(t, "Gophers", alice, bob, clara)

	handler.AdminAction(context.Background(), bobConn, payload(t, map[string]string{
		"group_id": group.ID, "action": "kick", "target_id": clara.ID,
	}))

	res, ok := bobConn.lastOfType(t, "admin_action")
	req.True(ok)
	req.Equal(domain.StatusError, res.Status)
	req.Contains(f.groups.MembersOf(group.ID), clara.ID)
}

func TestAdminHandler_Promote_Grants_Moderation_Rights(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	handler := NewAdminHandler(f.groups, f.registry, f.broadcaster, slog.Default())
	alice, aliceConn := f.seedUser(t, "alice")
	bob, bobConn := f.seedUser(t, "bob")
	clara, _ := f.seedUser(t, "clara")
	group := f.seedGroup(t, "Gophers", alice, bob, clara)

	// Given bob was promoted by the owner
	handler.AdminAction(context.Background(), aliceConn, payload(t, map[string]string{
		"group_id": group.ID, "action": "promote", "target_id": bob.ID,
	}))
	req.Equal(domain.RoleAdmin, f.groups.MembersOf(group.ID)[bob.ID].Role)

	// When the new admin mutes a member
	handler.AdminAction(context.Background(), bobConn, payload(t, map[string]string{
		"group_id": group.ID, "action": "mute", "target_id": clara.ID,
	}))

	res, ok := bobConn.lastOfType(t, "admin_action")
	req.True(ok)
	req.Equal(domain.StatusSuccess, res.Status)
	req.True(f.groups.MembersOf(group.ID)[clara.ID].Muted)
}

func TestAdminHandler_Owner_Is_Untouchable(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	handler := NewAdminHandler(f.groups, f.registry, f.broadcaster, slog.Default())
	alice, aliceConn := f.seedUser(t, "alice")
	bob, bobConn := f.seedUser(t, "bob")
	group := f.seedGroup(t, "Gophers", alice, bob)

	// Even an admin cannot target the owner
	handler.AdminAction(context.Background(), aliceConn, payload(t, map[string]string{
		"group_id": group.ID, "action": "promote", "target_id": bob.ID,
	}))
	handler.AdminAction(context.Background(), bobConn, payload(t, map[string]string{
		"group_id": group.ID, "action": "kick", "target_id": alice.ID,
	}))

	res, ok := bobConn.lastOfType(t, "admin_action")
	req.True(ok)
	req.Equal(domain.StatusError, res.Status)
	req.Contains(f.groups.MembersOf(group.ID), alice.ID)
}

func TestAdminHandler_Admin_Cannot_Target_Admin(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	handler := NewAdminHandler(f.groups, f.registry, f.broadcaster, slog.Default())
	alice, aliceConn := f.seedUser(t, "alice")
	bob, bobConn := f.seedUser(t, "bob")
	clara, _ := f.seedUser(t, "clara")
	group := f.seedGroup(t, "Gophers", alice, bob, clara)

	for _, target := range []string{bob.ID, clara.ID} {
		handler.AdminAction(context.Background(), aliceConn, payload(t, map[string]string{
			"group_id": group.ID, "action": "promote", "target_id": target,
		}))
	}

	handler.AdminAction(context.Background(), bobConn, payload(t, map[string]string{
		"group_id": group.ID, "action": "kick", "target_id": clara.ID,
	}))

	res, ok := bobConn.lastOfType(t, "admin_action")
	req.True(ok)
	req.Equal(domain.StatusError, res.Status)
	req.Equal("Only the owner can target an admin", res.Message)
	req.Contains(f.groups.MembersOf(group.ID), clara.ID)
}

func TestAdminHandler_Unknown_Action(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	handler := NewAdminHandler(f.groups, f.registry, f.broadcaster, slog.Default())
	alice, aliceConn := f.seedUser(t, "alice")
	bob, _ := f.seedUser(t, "bob")
	group := f.seedGroup(t, "Gophers", alice, bob)

	handler.AdminAction(context.Background(), aliceConn, payload(t, map[string]string{
		"group_id": group.ID, "action": "explode", "target_id": bob.ID,
	}))

	res, ok := aliceConn.lastOfType(t, "admin_action")
	req.True(ok)
	req.Equal(domain.StatusError, res.Status)
}
