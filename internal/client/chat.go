package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/raphaelgruber/girs/internal/models"
	"github.com/raphaelgruber/girs/internal/normalize"
)

type sendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ListConversations fetches the conversation history, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	raw, err := c.do(ctx, "list_conversations", http.MethodGet, "/ai/conversations", nil)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return normalize.Conversations(raw), nil
}

// GetMessages fetches the thread of one conversation, oldest first.
func (c *Client) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	path := "/ai/conversations/" + url.PathEscape(conversationID)
	raw, err := c.do(ctx, "get_messages", http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("get messages for %s: %w", conversationID, err)
	}
	return normalize.Messages(raw, conversationID), nil
}

// SendMessage posts text to conversation sessionID and returns the assistant
// reply, timestamped after sentAt.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string, sentAt time.Time) (models.Message, error) {
	raw, err := c.do(ctx, "send_message", http.MethodPost, "/ai/message", sendMessageRequest{
		SessionID: sessionID,
		Message:   text,
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}
	return normalize.Reply(raw, sessionID, sentAt), nil
}
