package models

import (
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultConversationTitle is the placeholder title of a conversation that has
// no user-authored text yet.
const DefaultConversationTitle = "New conversation"

// placeholderTitles are titles the backend and older clients use for empty chats.
var placeholderTitles = []string{
	DefaultConversationTitle,
	"Nueva conversación",
	"Nueva conversacion",
}

// Conversation summarizes a thread of messages.
// ID is either a server-issued session ID or a client-generated UUID for
// conversations not yet persisted by the backend.
type Conversation struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	LastMessage   string    `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	MessageCount  int       `json:"messageCount"`
}

// Message is a single chat message within a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsPlaceholderTitle reports whether title is one of the empty-chat placeholders.
func IsPlaceholderTitle(title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return true
	}
	for _, p := range placeholderTitles {
		if strings.EqualFold(title, p) {
			return true
		}
	}
	return false
}

// InHistory reports whether the conversation belongs in the persisted history
// shown to the user. Empty and placeholder-titled conversations are excluded.
func (c Conversation) InHistory() bool {
	return c.MessageCount > 0 && !IsPlaceholderTitle(c.Title)
}
