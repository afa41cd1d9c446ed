// Package normalize reshapes the backend's loosely-typed JSON payloads into the
// canonical models.Conversation and models.Message shapes.
//
// The backend has shipped several response shapes for the same endpoints.
// Each public function runs an ordered list of shape strategies and the first
// strategy that recognises the payload wins. Nothing in this package returns an
// error: malformed or unexpected input degrades to placeholder values and empty
// collections so a schema change never takes the views down with it.
package normalize

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"
	"time"

	"github.com/raphaelgruber/girs/internal/models"
)

// PairOffset separates the assistant half of a paired record from the user
// half so that ordering by timestamp is stable even when both share createdAt.
const PairOffset = time.Millisecond

// maxDepth bounds envelope and bucket recursion.
const maxDepth = 4

// decode parses raw JSON into generic values. Numbers stay json.Number.
// Invalid JSON yields nil, which no strategy matches.
func decode(raw []byte) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// strategy tries to interpret a decoded payload as T.
// ok=false means "not this shape"; the next strategy is tried.
type strategy[T any] struct {
	name  string
	parse func(v any, depth int) (T, bool)
}

func run[T any](strategies []strategy[T], v any, depth int) (T, bool) {
	var zero T
	if depth > maxDepth {
		return zero, false
	}
	for _, s := range strategies {
		if out, ok := s.parse(v, depth); ok {
			return out, true
		}
	}
	return zero, false
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

var conversationStrategies []strategy[[]models.Conversation]

func init() {
	conversationStrategies = []strategy[[]models.Conversation]{
		{"envelope", func(v any, depth int) ([]models.Conversation, bool) {
			inner, ok := unwrap(v)
			if !ok {
				return nil, false
			}
			return run(conversationStrategies, inner, depth+1)
		}},
		{"date-buckets", func(v any, depth int) ([]models.Conversation, bool) {
			flat, ok := flattenBuckets(v)
			if !ok {
				return nil, false
			}
			return run(conversationStrategies, flat, depth+1)
		}},
		{"paired-records", func(v any, _ int) ([]models.Conversation, bool) {
			recs, ok := pairedRecords(v)
			if !ok {
				return nil, false
			}
			return Group(expandPairs(recs, "")), true
		}},
		{"flat-records", func(v any, _ int) ([]models.Conversation, bool) {
			recs, ok := flatRecords(v)
			if !ok {
				return nil, false
			}
			return Group(messagesFromRecords(recs, "")), true
		}},
		{"summaries", func(v any, _ int) ([]models.Conversation, bool) {
			recs, ok := objects(v)
			if !ok {
				return nil, false
			}
			return summaries(recs), true
		}},
	}
}

// Conversations normalizes a GET /ai/conversations payload. The result is
// sorted by LastMessageAt, newest first, and is never nil.
func Conversations(raw []byte) []models.Conversation {
	convs, ok := run(conversationStrategies, decode(raw), 0)
	if !ok || convs == nil {
		return []models.Conversation{}
	}
	SortConversations(convs)
	return convs
}

// SortConversations orders conversations by LastMessageAt, newest first.
// Ties keep their relative order.
func SortConversations(convs []models.Conversation) {
	slices.SortStableFunc(convs, func(a, b models.Conversation) int {
		return b.LastMessageAt.Compare(a.LastMessageAt)
	})
}

// summaries maps already-shaped conversation objects, resolving alias fields.
// Objects without any identifier cannot be addressed and are skipped.
func summaries(recs []map[string]any) []models.Conversation {
	out := make([]models.Conversation, 0, len(recs))
	for _, rec := range recs {
		id := firstString(rec, summaryIDKeys)
		if id == "" {
			continue
		}

		conv := models.Conversation{
			ID:            id,
			LastMessage:   firstText(rec, lastTextKeys),
			LastMessageAt: firstTime(rec, lastAtKeys),
		}

		if n, ok := firstInt(rec, countKeys); ok && n >= 0 {
			conv.MessageCount = n
		} else if msgs, ok := objects(rec["messages"]); ok {
			conv.MessageCount = len(msgs)
		}

		conv.Title = firstString(rec, titleKeys)
		if conv.Title == "" {
			conv.Title = models.DefaultConversationTitle
		}
		out = append(out, conv)
	}
	return out
}

// =============================================================================
// MESSAGES
// =============================================================================

// messageInput carries the requested conversation ID alongside the decoded payload.
type messageInput struct {
	v              any
	conversationID string
}

var messageStrategies []strategy[[]models.Message]

func init() {
	messageStrategies = []strategy[[]models.Message]{
		{"envelope", func(v any, depth int) ([]models.Message, bool) {
			in := v.(messageInput)
			inner, ok := unwrap(in.v)
			if !ok {
				return nil, false
			}
			return run(messageStrategies, messageInput{inner, in.conversationID}, depth+1)
		}},
		{"date-buckets", func(v any, depth int) ([]models.Message, bool) {
			in := v.(messageInput)
			flat, ok := flattenBuckets(in.v)
			if !ok {
				return nil, false
			}
			return run(messageStrategies, messageInput{flat, in.conversationID}, depth+1)
		}},
		{"paired-records", func(v any, _ int) ([]models.Message, bool) {
			in := v.(messageInput)
			recs, ok := pairedRecords(in.v)
			if !ok {
				return nil, false
			}
			return expandPairs(recs, in.conversationID), true
		}},
		{"records", func(v any, _ int) ([]models.Message, bool) {
			in := v.(messageInput)
			recs, ok := objects(in.v)
			if !ok {
				return nil, false
			}
			return messagesFromRecords(recs, in.conversationID), true
		}},
	}
}

// Messages normalizes a GET /ai/conversations/:id payload. Every message is
// attributed to conversationID when it is non-empty. The result is ordered by
// CreatedAt, oldest first, and is never nil.
func Messages(raw []byte, conversationID string) []models.Message {
	msgs, ok := run(messageStrategies, messageInput{decode(raw), conversationID}, 0)
	if !ok || msgs == nil {
		return []models.Message{}
	}
	SortMessages(msgs)
	return msgs
}

// SortMessages orders messages by CreatedAt, oldest first. Ties keep their order.
func SortMessages(msgs []models.Message) {
	slices.SortStableFunc(msgs, func(a, b models.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

func messagesFromRecords(recs []map[string]any, conversationID string) []models.Message {
	out := make([]models.Message, 0, len(recs))
	for i, rec := range recs {
		convID := conversationID
		if convID == "" {
			convID = firstString(rec, sessionKeys)
		}
		id := firstString(rec, idKeys)
		if id == "" {
			id = fallbackID(convID, i)
		}
		out = append(out, models.Message{
			ID:             id,
			ConversationID: convID,
			Role:           roleOf(rec),
			Content:        content(rec, contentKeys),
			CreatedAt:      firstTime(rec, timeKeys),
		})
	}
	return out
}

// expandPairs turns {userMessage, botResponse, createdAt} records into two
// messages each. The assistant half is stamped PairOffset after the user half.
func expandPairs(recs []map[string]any, conversationID string) []models.Message {
	out := make([]models.Message, 0, 2*len(recs))
	for i, rec := range recs {
		convID := conversationID
		if convID == "" {
			convID = firstString(rec, sessionKeys)
		}
		base := firstString(rec, idKeys)
		if base == "" {
			base = fallbackID(convID, i)
		}
		at := firstTime(rec, timeKeys)

		out = append(out,
			models.Message{
				ID:             base + "-user",
				ConversationID: convID,
				Role:           models.RoleUser,
				Content:        content(rec, userTextKeys),
				CreatedAt:      at,
			},
			models.Message{
				ID:             base + "-assistant",
				ConversationID: convID,
				Role:           models.RoleAssistant,
				Content:        content(rec, botTextKeys),
				CreatedAt:      at.Add(PairOffset),
			},
		)
	}
	return out
}

// =============================================================================
// SHAPE DETECTION
// =============================================================================

// unwrap descends into a single well-known envelope key of an object.
func unwrap(v any) (any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, k := range envelopeKeys {
		switch inner := obj[k].(type) {
		case []any, map[string]any:
			return inner, true
		}
	}
	return nil, false
}

// flattenBuckets recognises an object whose values are all arrays (grouped
// by date, e.g. {"today": [...], "yesterday": [...]}) and concatenates them.
// Buckets are visited in key order so the result is deterministic.
func flattenBuckets(v any) ([]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, false
	}

	keys := make([]string, 0, len(obj))
	for k, val := range obj {
		switch val.(type) {
		case []any:
			keys = append(keys, k)
		case nil:
		default:
			return nil, false
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)

	var flat []any
	for _, k := range keys {
		flat = append(flat, obj[k].([]any)...)
	}
	if flat == nil {
		flat = []any{}
	}
	return flat, true
}

// pairedRecords recognises arrays of {userMessage, botResponse} records.
func pairedRecords(v any) ([]map[string]any, bool) {
	recs, ok := objects(v)
	if !ok || len(recs) == 0 {
		return nil, false
	}
	first := recs[0]
	if !hasKey(first, userTextKeys[:3]) || !hasKey(first, botTextKeys[:3]) {
		return nil, false
	}
	return recs, true
}

// flatRecords recognises arrays of per-message records that carry a session
// identifier and a sender tag.
func flatRecords(v any) ([]map[string]any, bool) {
	recs, ok := objects(v)
	if !ok || len(recs) == 0 {
		return nil, false
	}
	first := recs[0]
	if !hasAny(first, sessionKeys) {
		return nil, false
	}
	if !hasAny(first, senderKeys) && !hasAny(first, botFlagKeys) {
		return nil, false
	}
	return recs, true
}
