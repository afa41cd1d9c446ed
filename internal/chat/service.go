package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/raphaelgruber/girs/internal/errors"
	"github.com/raphaelgruber/girs/internal/models"
)

// ErrSendInProgress is returned by Send while a previous message is in flight.
var ErrSendInProgress = errors.New("a message is already being sent")

// API is the subset of the HTTP client the chat needs.
type API interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	SendMessage(ctx context.Context, sessionID, text string, sentAt time.Time) (models.Message, error)
}

// Service performs the side effects behind the chat store: fetching, opening
// and sending. The store itself stays pure.
type Service struct {
	api    API
	store  *Store
	logger *slog.Logger
	now    func() time.Time

	inFlight atomic.Bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service's logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a service dispatching into store.
func NewService(api API, store *Store, opts ...ServiceOption) *Service {
	s := &Service{
		api:    api,
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the store the service dispatches into.
func (s *Service) Store() *Store {
	return s.store
}

// LoadConversations fetches the conversation list.
func (s *Service) LoadConversations(ctx context.Context) error {
	convs, err := s.api.ListConversations(ctx)
	if err != nil {
		return err
	}
	s.store.Dispatch(SetConversations{Conversations: convs})
	return nil
}

// Open makes id the active conversation and loads its thread. id "" starts a
// new chat.
func (s *Service) Open(ctx context.Context, id string) error {
	s.store.Dispatch(SetActive{ID: id})
	if id == "" {
		return nil
	}

	msgs, err := s.api.GetMessages(ctx, id)
	if err != nil {
		return err
	}
	s.store.Dispatch(SetMessages{ConversationID: id, Messages: msgs})
	return nil
}

// NewChat clears the active conversation. The conversation is created on the
// first Send.
func (s *Service) NewChat() {
	s.store.Dispatch(SetActive{ID: ""})
}

// Send posts text to the active conversation, creating one with a
// client-generated ID when none is active.
//
// The user message is shown optimistically. After the reply arrives the
// thread and the conversation list are refetched concurrently: the refetched
// thread replaces the optimistic one, or, when the refetch fails or comes back
// empty, the reply is appended instead. The conversation summary is updated
// locally when the refetched list does not carry it.
func (s *Service) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: message is empty", apperrors.ErrValidation)
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrSendInProgress
	}
	defer s.inFlight.Store(false)

	state := s.store.State()

	sentAt := s.now()
	convID := state.ActiveID
	if convID == "" {
		convID = uuid.NewString()
		draft := models.Conversation{
			ID:            convID,
			Title:         models.TitleFromText(text),
			LastMessage:   text,
			LastMessageAt: sentAt,
		}
		s.store.Dispatch(
			SetActive{ID: convID},
			SetConversations{Conversations: append([]models.Conversation{draft}, state.Conversations...)},
		)
		s.logger.Debug("started conversation", "conversation_id", convID)
	}

	optimistic := models.Message{
		ID:             "tmp-" + uuid.NewString(),
		ConversationID: convID,
		Role:           models.RoleUser,
		Content:        text,
		CreatedAt:      sentAt,
	}
	s.store.Dispatch(AddMessage{Message: optimistic}, SetSending{Sending: true})
	defer s.store.Dispatch(SetSending{Sending: false})

	reply, err := s.api.SendMessage(ctx, convID, text, sentAt)
	if err != nil {
		s.logger.Error("send message failed", "conversation_id", convID, "error", err)
		return err
	}

	if reply.ConversationID != "" && reply.ConversationID != convID {
		s.logger.Debug("server assigned conversation", "client_id", convID, "server_id", reply.ConversationID)
		optimistic.ConversationID = reply.ConversationID
		actions := []Action{SetActive{ID: reply.ConversationID}, AddMessage{Message: optimistic}}
		if state.ActiveID == "" {
			draftID := convID
			kept := lo.Reject(s.store.State().Conversations, func(c models.Conversation, _ int) bool { return c.ID == draftID })
			actions = append(actions, SetConversations{Conversations: kept})
		}
		s.store.Dispatch(actions...)
		convID = reply.ConversationID
	}

	s.reconcile(ctx, convID, text, reply)
	return nil
}

// reconcile replaces optimistic state with the server's view after a send.
func (s *Service) reconcile(ctx context.Context, convID, text string, reply models.Message) {
	var (
		msgs              []models.Message
		convs             []models.Conversation
		msgsErr, convsErr error
		g                 errgroup.Group
	)
	g.Go(func() error {
		msgs, msgsErr = s.api.GetMessages(ctx, convID)
		return msgsErr
	})
	g.Go(func() error {
		convs, convsErr = s.api.ListConversations(ctx)
		return convsErr
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("refetch after send failed", "conversation_id", convID, "error", err)
	}

	if msgsErr == nil && len(msgs) > 0 {
		s.store.Dispatch(SetMessages{ConversationID: convID, Messages: msgs})
	} else {
		s.store.Dispatch(AddMessage{Message: reply})
	}

	if convsErr != nil {
		convs = s.store.State().Conversations
	}
	s.store.Dispatch(SetConversations{Conversations: s.upsert(convs, convID, text, reply, convsErr == nil)})
}

// upsert returns convs with an up-to-date summary of convID. A summary the
// server already returned is trusted as is.
func (s *Service) upsert(convs []models.Conversation, convID, text string, reply models.Message, fromServer bool) []models.Conversation {
	convs = slices.Clone(convs)
	conv, i, found := lo.FindIndexOf(convs, func(c models.Conversation) bool { return c.ID == convID })

	if found && fromServer && conv.MessageCount > 0 {
		return convs
	}
	if !found {
		conv = models.Conversation{ID: convID}
	}

	if models.IsPlaceholderTitle(conv.Title) {
		conv.Title = models.TitleFromText(text)
	}
	conv.LastMessage = reply.Content
	conv.LastMessageAt = reply.CreatedAt
	if thread := s.store.State(); thread.ActiveID == convID {
		conv.MessageCount = max(conv.MessageCount+2, len(thread.Messages))
	} else {
		conv.MessageCount += 2
	}

	if found {
		convs[i] = conv
		return convs
	}
	return append(convs, conv)
}
