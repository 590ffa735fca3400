package event

import "strings"

// Channel names are part of the wire contract: chat.{chatId} for chat-scoped
// events, user.{userId} for direct events, presence.chat.{chatId} for
// per-chat member lists and presence.online for the global roster.
const (
	chatChannelPrefix         = "chat."
	userChannelPrefix         = "user."
	presenceChatChannelPrefix = "presence.chat."

	PresenceOnlineChannel = "presence.online"
)

func ChatChannel(chatID string) string         { return chatChannelPrefix + chatID }
func UserChannel(userID string) string         { return userChannelPrefix + userID }
func PresenceChatChannel(chatID string) string { return presenceChatChannelPrefix + chatID }

type channelScope int

const (
	scopeUnknown channelScope = iota
	scopeChat
	scopeUser
	scopePresenceChat
	scopePresenceOnline
)

// parseChannel splits a channel key into its scope and embedded id. The
// presence.chat prefix must be tried before the chat prefix.
func parseChannel(key string) (channelScope, string) {
	switch {
	case key == PresenceOnlineChannel:
		return scopePresenceOnline, ""
	case strings.HasPrefix(key, presenceChatChannelPrefix):
		return scopePresenceChat, key[len(presenceChatChannelPrefix):]
	case strings.HasPrefix(key, chatChannelPrefix):
		return scopeChat, key[len(chatChannelPrefix):]
	case strings.HasPrefix(key, userChannelPrefix):
		return scopeUser, key[len(userChannelPrefix):]
	}
	return scopeUnknown, ""
}
