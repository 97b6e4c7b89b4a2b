package handlers

import (
	"chat-relay/runtime"
)

// Set bundles every handler so main can wire the dispatcher in one
// call. The event tags here are the wire protocol; renaming one breaks
// deployed clients.
type Set struct {
	Auth          *AuthHandler
	Group         *GroupHandler
	Message       *MessageHandler
	Voice         *VoiceHandler
	Admin         *AdminHandler
	Search        *SearchHandler
	Media         *MediaHandler
	Profile       *ProfileHandler
	Notifications *NotificationHandler
	Health        *HealthHandler
}

// RegisterAll fills the dispatcher table.
func (s *Set) RegisterAll(dispatcher *runtime.Dispatcher) {
	dispatcher.Register("register", s.Auth.Register)
	dispatcher.Register("login", s.Auth.Login)
	dispatcher.Register("reconnect", s.Auth.Reconnect)

	dispatcher.Register("get_chats", s.Group.GetChats)
	dispatcher.Register("create_group", s.Group.CreateGroup)
	dispatcher.Register("join_group", s.Group.JoinGroup)

	dispatcher.Register("message", s.Message.Send)
	dispatcher.Register("delete_message", s.Message.Delete)
	dispatcher.Register("typing", s.Message.Typing)
	dispatcher.Register("get_chat_history", s.Message.GetHistory)
	dispatcher.Register("pin_message", s.Message.Pin)

	dispatcher.Register("join_voice", s.Voice.Join)
	dispatcher.Register("leave_voice", s.Voice.Leave)
	dispatcher.Register("voice_state_update", s.Voice.UpdateState)
	dispatcher.Register("voice_signal", s.Voice.Signal)

	dispatcher.Register("admin_action", s.Admin.AdminAction)
	dispatcher.Register("search_user", s.Search.SearchUser)

	dispatcher.Register("upload_media", s.Media.Upload)
	dispatcher.Register("get_media", s.Media.Get)
	dispatcher.Register("media_ref", s.Media.GetRef)

	dispatcher.Register("update_profile", s.Profile.UpdateProfile)
	dispatcher.Register("get_avatar", s.Profile.GetAvatar)

	dispatcher.Register("get_notifications", s.Notifications.GetNotifications)
	dispatcher.Register("mark_notification_read", s.Notifications.MarkRead)

	dispatcher.Register("health_check", s.Health.HealthCheck)
}
