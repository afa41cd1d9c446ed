package chat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/girs/internal/chat"
	"github.com/raphaelgruber/girs/internal/models"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func msg(id, conv string, role models.Role, offset time.Duration) models.Message {
	return models.Message{ID: id, ConversationID: conv, Role: role, Content: id, CreatedAt: t0.Add(offset)}
}

func TestReduce(t *testing.T) {
	base := chat.State{
		ActiveID: "a",
		Messages: []models.Message{msg("m1", "a", models.RoleUser, 0)},
	}

	tests := []struct {
		name   string
		action chat.Action
		check  func(t *testing.T, got chat.State)
	}{
		{
			name:   "switching conversation clears the thread",
			action: chat.SetActive{ID: "b"},
			check: func(t *testing.T, got chat.State) {
				assert.Equal(t, "b", got.ActiveID)
				assert.Empty(t, got.Messages)
			},
		},
		{
			name:   "re-selecting the active conversation keeps the thread",
			action: chat.SetActive{ID: "a"},
			check: func(t *testing.T, got chat.State) {
				assert.Len(t, got.Messages, 1)
			},
		},
		{
			name:   "new chat clears the thread",
			action: chat.SetActive{ID: ""},
			check: func(t *testing.T, got chat.State) {
				assert.Empty(t, got.ActiveID)
				assert.Empty(t, got.Messages)
			},
		},
		{
			name: "messages of another conversation are dropped",
			action: chat.SetMessages{ConversationID: "b", Messages: []models.Message{
				msg("x", "b", models.RoleUser, 0),
			}},
			check: func(t *testing.T, got chat.State) {
				require.Len(t, got.Messages, 1)
				assert.Equal(t, "m1", got.Messages[0].ID)
			},
		},
		{
			name: "messages are sorted oldest first",
			action: chat.SetMessages{ConversationID: "a", Messages: []models.Message{
				msg("late", "a", models.RoleAssistant, time.Minute),
				msg("early", "a", models.RoleUser, 0),
			}},
			check: func(t *testing.T, got chat.State) {
				require.Len(t, got.Messages, 2)
				assert.Equal(t, "early", got.Messages[0].ID)
			},
		},
		{
			name:   "append to the active conversation",
			action: chat.AddMessage{Message: msg("m2", "a", models.RoleAssistant, time.Second)},
			check: func(t *testing.T, got chat.State) {
				assert.Len(t, got.Messages, 2)
			},
		},
		{
			name:   "append to another conversation is dropped",
			action: chat.AddMessage{Message: msg("m2", "b", models.RoleAssistant, time.Second)},
			check: func(t *testing.T, got chat.State) {
				assert.Len(t, got.Messages, 1)
			},
		},
		{
			name: "conversation list is kept newest first",
			action: chat.SetConversations{Conversations: []models.Conversation{
				{ID: "old", LastMessageAt: t0},
				{ID: "new", LastMessageAt: t0.Add(time.Hour)},
			}},
			check: func(t *testing.T, got chat.State) {
				require.Len(t, got.Conversations, 2)
				assert.Equal(t, "new", got.Conversations[0].ID)
			},
		},
		{
			name:   "toggle sidebar",
			action: chat.ToggleSidebar{},
			check: func(t *testing.T, got chat.State) {
				assert.True(t, got.SidebarOpen)
			},
		},
		{
			name:   "sending flag",
			action: chat.SetSending{Sending: true},
			check: func(t *testing.T, got chat.State) {
				assert.True(t, got.Sending)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, chat.Reduce(base, tt.action))
			assert.Len(t, base.Messages, 1, "input state must not change")
			assert.Equal(t, "m1", base.Messages[0].ID)
		})
	}
}

func TestReduceDoesNotAliasInputs(t *testing.T) {
	convs := []models.Conversation{{ID: "old", LastMessageAt: t0}, {ID: "new", LastMessageAt: t0.Add(time.Hour)}}
	chat.Reduce(chat.State{}, chat.SetConversations{Conversations: convs})
	assert.Equal(t, "old", convs[0].ID)

	s1 := chat.State{ActiveID: "a", Messages: make([]models.Message, 1, 4)}
	s2 := chat.Reduce(s1, chat.AddMessage{Message: msg("x", "a", models.RoleUser, 0)})
	s3 := chat.Reduce(s1, chat.AddMessage{Message: msg("y", "a", models.RoleUser, 0)})
	assert.Equal(t, "x", s2.Messages[1].ID)
	assert.Equal(t, "y", s3.Messages[1].ID)
}

func TestStoreDispatchNotifiesOncePerBatch(t *testing.T) {
	store := chat.NewStore()
	var seen []chat.State
	unsubscribe := store.Subscribe(func(s chat.State) { seen = append(seen, s) })

	store.Dispatch(chat.SetActive{ID: "a"}, chat.SetSending{Sending: true})
	require.Len(t, seen, 1)
	assert.Equal(t, "a", seen[0].ActiveID)
	assert.True(t, seen[0].Sending)

	unsubscribe()
	store.Dispatch(chat.ToggleSidebar{})
	assert.Len(t, seen, 1)
	assert.True(t, store.State().SidebarOpen)
}

func TestStateActive(t *testing.T) {
	s := chat.State{Conversations: []models.Conversation{{ID: "a", Title: "Alpha"}}}
	_, ok := s.Active()
	assert.False(t, ok)

	s.ActiveID = "a"
	conv, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "Alpha", conv.Title)
}
