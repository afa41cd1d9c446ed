package normalize

import (
	"github.com/raphaelgruber/girs/internal/models"
)

// Group folds per-message records into conversation summaries in a single pass.
//
// The first record of a session creates its conversation. The title comes
// from the first user-authored record met in input order; until one is met
// the title is models.DefaultConversationTitle, and once set it is kept. LastMessage and
// LastMessageAt move only when a record is strictly newer than the stored one,
// while MessageCount counts every record. Records without a session ID are
// dropped. Output order is first-seen order; callers sort.
func Group(msgs []models.Message) []models.Conversation {
	var (
		order []string
		byID  = make(map[string]*models.Conversation)
	)

	for _, m := range msgs {
		if m.ConversationID == "" {
			continue
		}

		conv, seen := byID[m.ConversationID]
		if !seen {
			conv = &models.Conversation{
				ID:            m.ConversationID,
				Title:         models.DefaultConversationTitle,
				LastMessage:   m.Content,
				LastMessageAt: m.CreatedAt,
			}
			byID[m.ConversationID] = conv
			order = append(order, m.ConversationID)
		} else if m.CreatedAt.After(conv.LastMessageAt) {
			conv.LastMessage = m.Content
			conv.LastMessageAt = m.CreatedAt
		}
		conv.MessageCount++

		if m.Role == models.RoleUser && m.Content != Placeholder && conv.Title == models.DefaultConversationTitle {
			conv.Title = models.TitleFromText(m.Content)
		}
	}

	out := make([]models.Conversation, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
