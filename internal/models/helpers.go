// Package models defines the canonical client-side shapes of users,
// conversations and messages.
package models

import (
	"strings"
	"unicode/utf8"
)

// TitleMaxLen is the number of runes kept when deriving a title from message text.
const TitleMaxLen = 30

// TitleFromText derives a conversation title from the first user message.
// Text longer than TitleMaxLen runes is cut and suffixed with "...".
// Blank text yields DefaultConversationTitle.
func TitleFromText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return DefaultConversationTitle
	}
	if utf8.RuneCountInString(text) <= TitleMaxLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:TitleMaxLen]) + "..."
}
