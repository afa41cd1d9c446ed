package cli

import (
	"context"
	"fmt"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/girs/internal/chat"
	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/models"
)

type stubAPI struct {
	convs  []models.Conversation
	thread map[string][]models.Message
	// deadline of the last ListConversations context
	deadline    time.Time
	hasDeadline bool
}

func (s *stubAPI) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	s.deadline, s.hasDeadline = ctx.Deadline()
	return s.convs, nil
}

func (s *stubAPI) GetMessages(ctx context.Context, id string) ([]models.Message, error) {
	return s.thread[id], nil
}

func (s *stubAPI) SendMessage(ctx context.Context, sessionID, text string, sentAt time.Time) (models.Message, error) {
	return models.Message{
		ID:             "r1",
		ConversationID: sessionID,
		Role:           models.RoleAssistant,
		Content:        "Con gusto",
		CreatedAt:      sentAt.Add(time.Millisecond),
	}, nil
}

var testBrand = branding{project: "GIRS", agent: "Julio", greeting: "¿En qué puedo ayudarte hoy?"}

func newTestModel(api chat.API) chatModel {
	m := newChatModel(chat.NewService(api, chat.NewStore()), chatOptions{brand: testBrand, timeout: time.Minute})
	m.width, m.height = 100, 30
	return m
}

func key(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func TestChatModelSend(t *testing.T) {
	m := newTestModel(&stubAPI{})
	m.input.SetValue("  hola  ")

	next, cmd := m.Update(key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Empty(t, next.(chatModel).input.Value())

	done, ok := cmd().(doneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)

	state := m.svc.Store().State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "hola", state.Messages[0].Content)
	assert.Equal(t, "Con gusto", state.Messages[1].Content)
}

func TestChatModelRequestTimeout(t *testing.T) {
	api := &stubAPI{}
	m := newChatModel(chat.NewService(api, chat.NewStore()), chatOptions{brand: testBrand, timeout: 5 * time.Second})

	start := time.Now()
	done, ok := m.Init()().(doneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	require.True(t, api.hasDeadline)
	assert.WithinDuration(t, start.Add(5*time.Second), api.deadline, time.Second)
}

func TestChatModelEnterIgnoredWhileSending(t *testing.T) {
	m := newTestModel(&stubAPI{})
	m.state.Sending = true
	m.input.SetValue("hola")

	next, cmd := m.Update(key(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Equal(t, "hola", next.(chatModel).input.Value())
}

func TestChatModelQuitsWhenSessionRejected(t *testing.T) {
	m := newTestModel(&stubAPI{})

	next, cmd := m.Update(doneMsg{op: "send", err: fmt.Errorf("send message: %w", apperrors.ErrUnauthorized)})
	require.NotNil(t, cmd)
	_, quit := cmd().(tea.QuitMsg)
	assert.True(t, quit)
	assert.ErrorIs(t, next.(chatModel).fatal, apperrors.ErrUnauthorized)
}

func TestChatModelOtherErrorsStay(t *testing.T) {
	m := newTestModel(&stubAPI{})

	next, cmd := m.Update(doneMsg{op: "send", err: apperrors.ErrNetwork})
	assert.Nil(t, cmd)
	assert.Nil(t, next.(chatModel).fatal)
	assert.Contains(t, next.(chatModel).renderContent(), "Could not reach the server")
}

func TestChatModelBrowseHistory(t *testing.T) {
	now := time.Now()
	api := &stubAPI{
		convs: []models.Conversation{
			{ID: "a", Title: "Pasaporte", MessageCount: 2, LastMessageAt: now},
			{ID: "b", Title: "Impuestos", MessageCount: 4, LastMessageAt: now.Add(-time.Minute)},
		},
		thread: map[string][]models.Message{
			"b": {{ID: "m1", ConversationID: "b", Role: models.RoleUser, Content: "¿Cuándo pago?", CreatedAt: now}},
		},
	}
	m := newTestModel(api)
	m.svc.Store().Dispatch(chat.SetConversations{Conversations: api.convs}, chat.ToggleSidebar{})

	next, _ := m.Update(stateMsg(m.svc.Store().State()))
	next, _ = next.Update(key(tea.KeyTab))
	require.True(t, next.(chatModel).browsing)

	next, _ = next.Update(key(tea.KeyDown))
	assert.Equal(t, 1, next.(chatModel).cursor)

	_, cmd := next.Update(key(tea.KeyEnter))
	require.NotNil(t, cmd)
	done := cmd().(doneMsg)
	require.NoError(t, done.err)

	state := m.svc.Store().State()
	assert.Equal(t, "b", state.ActiveID)
	require.Len(t, state.Messages, 1)
}

func TestChatModelRender(t *testing.T) {
	now := time.Now()
	m := newTestModel(&stubAPI{})
	m.state = chat.State{
		SidebarOpen: true,
		Conversations: []models.Conversation{
			{ID: "a", Title: "Pasaporte", MessageCount: 2, LastMessageAt: now},
			{ID: "draft", Title: models.DefaultConversationTitle, MessageCount: 0, LastMessageAt: now},
		},
	}

	out := m.renderContent()
	assert.Contains(t, out, "GIRS")
	assert.Contains(t, out, "Today")
	assert.Contains(t, out, "Pasaporte")
	assert.NotContains(t, out, models.DefaultConversationTitle)
	assert.Contains(t, out, "¿En qué puedo ayudarte hoy?")

	m.state.ActiveID = "a"
	m.state.Messages = []models.Message{
		{ID: "1", ConversationID: "a", Role: models.RoleUser, Content: "Necesito renovar", CreatedAt: now},
	}
	m.state.Sending = true
	out = m.renderContent()
	assert.Contains(t, out, "Necesito renovar")
	assert.Contains(t, out, "Julio is typing...")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer title here", 10, "a longe..."},
		{"ñandú ñandú", 8, "ñandú..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
