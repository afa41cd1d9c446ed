package normalize

import (
	"strings"
	"unicode"

	"github.com/raphaelgruber/girs/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// assistantTags are the folded sender tags that denote the assistant.
var assistantTags = map[string]struct{}{
	"assistant": {},
	"asistente": {},
	"bot":       {},
	"chatbot":   {},
	"ai":        {},
	"ia":        {},
	"agent":     {},
	"agente":    {},
	"model":     {},
	"modelo":    {},
	"system":    {},
	"sistema":   {},
}

// Role maps a backend sender tag to a canonical role. Matching ignores case,
// surrounding space and diacritics; unknown tags are treated as the user.
func Role(tag string) models.Role {
	if _, ok := assistantTags[fold(tag)]; ok {
		return models.RoleAssistant
	}
	return models.RoleUser
}

// fold produces a case-folded, accent-free key. Transformers are stateful,
// so a fresh chain is built per call.
func fold(s string) string {
	s = strings.TrimSpace(s)
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// roleOf resolves the role of a record from its sender tag or boolean bot flag.
func roleOf(rec map[string]any) models.Role {
	for _, k := range botFlagKeys {
		if b, ok := rec[k].(bool); ok {
			if b {
				return models.RoleAssistant
			}
			return models.RoleUser
		}
	}
	return Role(firstString(rec, senderKeys))
}
