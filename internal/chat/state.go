// Package chat holds the chat dashboard state: conversation list, active
// conversation, its thread and UI flags. State changes only through Reduce.
package chat

import (
	"slices"

	"github.com/raphaelgruber/girs/internal/models"
	"github.com/raphaelgruber/girs/internal/normalize"
)

// State is the chat dashboard state. ActiveID "" means no conversation is
// open (a new chat). Messages always belong to ActiveID.
type State struct {
	Conversations []models.Conversation
	ActiveID      string
	Messages      []models.Message
	Sending       bool
	SidebarOpen   bool
}

// Active returns the summary of the active conversation, if listed.
func (s State) Active() (models.Conversation, bool) {
	if s.ActiveID == "" {
		return models.Conversation{}, false
	}
	i := slices.IndexFunc(s.Conversations, func(c models.Conversation) bool { return c.ID == s.ActiveID })
	if i < 0 {
		return models.Conversation{}, false
	}
	return s.Conversations[i], true
}

// Action is a state transition. The set is closed.
type Action interface {
	isAction()
}

// SetConversations replaces the conversation list.
type SetConversations struct {
	Conversations []models.Conversation
}

// SetActive switches the active conversation. Switching clears the thread.
type SetActive struct {
	ID string
}

// SetMessages replaces the thread of ConversationID.
type SetMessages struct {
	ConversationID string
	Messages       []models.Message
}

// AddMessage appends one message to its conversation's thread.
type AddMessage struct {
	Message models.Message
}

// ToggleSidebar flips sidebar visibility.
type ToggleSidebar struct{}

// SetSending sets the sending indicator.
type SetSending struct {
	Sending bool
}

func (SetConversations) isAction() {}
func (SetActive) isAction()        {}
func (SetMessages) isAction()      {}
func (AddMessage) isAction()       {}
func (ToggleSidebar) isAction()    {}
func (SetSending) isAction()       {}

// Reduce returns the state after applying a. It never mutates s.
// Messages for a conversation other than the active one are dropped, so a
// late response for a conversation the user already left cannot leak into
// the current thread.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetConversations:
		convs := slices.Clone(a.Conversations)
		normalize.SortConversations(convs)
		s.Conversations = convs
	case SetActive:
		if a.ID != s.ActiveID {
			s.ActiveID = a.ID
			s.Messages = nil
		}
	case SetMessages:
		if a.ConversationID != s.ActiveID {
			return s
		}
		msgs := slices.Clone(a.Messages)
		normalize.SortMessages(msgs)
		s.Messages = msgs
	case AddMessage:
		if a.Message.ConversationID != s.ActiveID {
			return s
		}
		s.Messages = append(slices.Clip(s.Messages), a.Message)
	case ToggleSidebar:
		s.SidebarOpen = !s.SidebarOpen
	case SetSending:
		s.Sending = a.Sending
	}
	return s
}
