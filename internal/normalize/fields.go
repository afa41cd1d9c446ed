package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Placeholder replaces message content the payload does not carry.
const Placeholder = "..."

// Candidate field names, probed in order. First non-empty value wins.
var (
	idKeys        = []string{"id", "_id", "messageId", "message_id", "uuid"}
	sessionKeys   = []string{"sessionId", "session_id", "conversationId", "conversation_id", "sesionId", "idSesion", "chatId", "chat_id"}
	senderKeys    = []string{"senderType", "sender_type", "sender", "role", "tipo", "tipoRemitente", "remitente", "author", "from"}
	botFlagKeys   = []string{"isBot", "is_bot", "esBot", "fromBot"}
	timeKeys      = []string{"createdAt", "created_at", "timestamp", "fecha", "fechaCreacion", "date", "sentAt"}
	contentKeys   = []string{"content", "message", "response", "text", "contenido", "mensaje", "respuesta", "texto", "reply", "answer", "botResponse"}
	replyKeys     = []string{"botResponse", "bot_response", "response", "respuesta", "reply", "answer", "content", "contenido", "message", "mensaje", "text", "texto"}
	userTextKeys  = []string{"userMessage", "user_message", "mensajeUsuario", "question", "pregunta"}
	botTextKeys   = []string{"botResponse", "bot_response", "respuestaBot", "answer", "respuesta"}
	summaryIDKeys = []string{"id", "_id", "sessionId", "session_id", "conversationId", "conversation_id"}
	titleKeys     = []string{"title", "titulo", "subject"}
	lastTextKeys  = []string{"lastMessage", "last_message", "ultimoMensaje", "preview"}
	lastAtKeys    = []string{"lastMessageAt", "last_message_at", "fechaUltimoMensaje", "updatedAt", "updated_at", "createdAt", "created_at"}
	countKeys     = []string{"messageCount", "message_count", "cantidadMensajes", "totalMessages", "count"}
	envelopeKeys  = []string{"data", "conversations", "conversaciones", "items", "results", "messages", "mensajes", "history", "historial"}
)

// maxNesting bounds how deep nested values are followed when probing.
const maxNesting = 3

// str coerces a scalar to a trimmed string. Objects and arrays yield "".
func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// firstString returns the first non-empty string found under keys.
func firstString(rec map[string]any, keys []string) string {
	for _, k := range keys {
		if s := str(rec[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstText is firstString that also follows nested message objects,
// e.g. {"lastMessage": {"content": "hi"}}.
func firstText(rec map[string]any, keys []string) string {
	return textAt(rec, keys, 0)
}

func textAt(rec map[string]any, keys []string, depth int) string {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case map[string]any:
			if depth < maxNesting {
				if s := textAt(v, contentKeys, depth+1); s != "" {
					return s
				}
			}
		default:
			if s := str(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// content resolves message text, falling back to Placeholder.
func content(rec map[string]any, keys []string) string {
	if s := firstText(rec, keys); s != "" {
		return s
	}
	return Placeholder
}

// hasAny reports whether rec carries a non-nil value under any of keys.
func hasAny(rec map[string]any, keys []string) bool {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return true
		}
	}
	return false
}

// hasKey reports whether rec carries any of keys, even with a null value.
func hasKey(rec map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := rec[k]; ok {
			return true
		}
	}
	return false
}

// firstTime returns the first parseable timestamp under keys, or the zero time.
func firstTime(rec map[string]any, keys []string) time.Time {
	for _, k := range keys {
		if t := parseTime(rec[k]); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts ISO-8601 strings and epoch seconds or milliseconds.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpoch(n)
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromEpoch(n)
		}
		if f, err := t.Float64(); err == nil {
			return fromEpoch(int64(f))
		}
	case float64:
		return fromEpoch(int64(t))
	}
	return time.Time{}
}

func fromEpoch(n int64) time.Time {
	switch {
	case n <= 0:
		return time.Time{}
	case n > 1e12:
		return time.UnixMilli(n).UTC()
	default:
		return time.Unix(n, 0).UTC()
	}
}

// intOf coerces numbers and numeric strings; anything else is 0.
func intOf(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func firstInt(rec map[string]any, keys []string) (int, bool) {
	for _, k := range keys {
		if n, ok := intOf(rec[k]); ok {
			return n, true
		}
	}
	return 0, false
}

// objects returns the object elements of an array, skipping anything else.
func objects(v any) ([]map[string]any, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, true
}

// fallbackID builds a stable identifier for records the backend left unnamed.
func fallbackID(prefix string, i int) string {
	if prefix == "" {
		prefix = "msg"
	}
	return fmt.Sprintf("%s-%d", prefix, i)
}
