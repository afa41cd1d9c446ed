package normalize

import (
	"strings"
	"time"

	"github.com/raphaelgruber/girs/internal/models"
)

var (
	userEnvelopeKeys = []string{"user", "usuario", "profile", "perfil", "data"}
	userIDKeys       = []string{"id", "_id", "userId", "user_id", "uuid"}
	fullNameKeys     = []string{"name", "fullName", "full_name", "nombreCompleto", "displayName"}
	firstNameKeys    = []string{"nombre", "firstName", "first_name", "nombres"}
	lastNameKeys     = []string{"apellido", "lastName", "last_name", "apellidos"}
	emailKeys        = []string{"email", "correo", "mail"}
	avatarKeys       = []string{"avatar", "avatarUrl", "avatar_url", "foto", "picture", "image"}
	userTimeKeys     = []string{"createdAt", "created_at", "fechaCreacion", "fechaRegistro"}
	tokenKeys        = []string{"access_token", "token", "accessToken", "jwt"}
)

// User normalizes a profile payload (GET /users/my), unwrapping a
// {"user": {...}} or {"data": {...}} envelope when present.
// ok is false when the payload identifies nobody (no id and no email).
func User(raw []byte) (models.User, bool) {
	rec, ok := decode(raw).(map[string]any)
	if !ok {
		return models.User{}, false
	}
	return userFrom(rec, 0)
}

func userFrom(rec map[string]any, depth int) (models.User, bool) {
	if !hasAny(rec, userIDKeys) && !hasAny(rec, emailKeys) {
		if depth >= maxNesting {
			return models.User{}, false
		}
		for _, k := range userEnvelopeKeys {
			if inner, ok := rec[k].(map[string]any); ok {
				return userFrom(inner, depth+1)
			}
		}
		return models.User{}, false
	}

	u := models.User{
		ID:        firstString(rec, userIDKeys),
		Email:     firstString(rec, emailKeys),
		Name:      displayName(rec),
		CreatedAt: firstTime(rec, userTimeKeys),
	}
	if avatar := firstString(rec, avatarKeys); avatar != "" {
		u.Avatar = &avatar
	}
	if u.Name == "" {
		u.Name, _, _ = strings.Cut(u.Email, "@")
	}
	return u, true
}

// displayName resolves the full name from `name` or one of its aliases,
// otherwise joins first and last name fields.
func displayName(rec map[string]any) string {
	if name := firstString(rec, fullNameKeys); name != "" {
		return name
	}
	parts := make([]string, 0, 2)
	if first := firstString(rec, firstNameKeys); first != "" {
		parts = append(parts, first)
	}
	if last := firstString(rec, lastNameKeys); last != "" {
		parts = append(parts, last)
	}
	return strings.Join(parts, " ")
}

// Login extracts the bearer token and, when the backend includes it, the
// user from a POST /auth/login payload. user is nil when absent; callers
// must then resolve the profile themselves.
func Login(raw []byte) (token string, user *models.User) {
	rec, ok := decode(raw).(map[string]any)
	if !ok {
		return "", nil
	}
	if inner, ok := rec["data"].(map[string]any); ok && firstString(rec, tokenKeys) == "" {
		rec = inner
	}

	token = firstString(rec, tokenKeys)
	for _, k := range []string{"user", "usuario"} {
		if u, ok := rec[k].(map[string]any); ok {
			if parsed, ok := userFrom(u, 0); ok {
				user = &parsed
			}
			break
		}
	}
	return token, user
}

// Reply normalizes the POST /ai/message payload into the assistant message.
// The reply is always stamped strictly after `after`, the send time of the
// user message it answers. A payload naming a different session moves the
// reply to that session.
func Reply(raw []byte, conversationID string, after time.Time) models.Message {
	v := decode(raw)
	if inner, ok := unwrap(v); ok {
		if _, isObj := inner.(map[string]any); isObj {
			v = inner
		}
	}

	msg := models.Message{
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        Placeholder,
	}

	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			msg.Content = s
		}
	case map[string]any:
		msg.Content = content(t, replyKeys)
		msg.ID = firstString(t, idKeys)
		msg.CreatedAt = firstTime(t, timeKeys)
		if sid := firstString(t, sessionKeys); sid != "" {
			msg.ConversationID = sid
		}
	}

	if !msg.CreatedAt.After(after) {
		msg.CreatedAt = after.Add(PairOffset)
	}
	if msg.ID == "" {
		msg.ID = fallbackID(msg.ConversationID+"-reply", int(msg.CreatedAt.UnixMilli()))
	}
	return msg
}
