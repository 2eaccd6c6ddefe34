// Package chatbot – keyword matching.
package chatbot

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/oaddad/nucleo-backend/internal/domain"
)

// handoffPhrases trigger the human-handoff branch. Matching is
// accent-folded, lowercase, substring.
var handoffPhrases = []string{
	"falar com atendente",
	"falar com humano",
	"falar com alguem",
	"atendimento humano",
	"quero atendente",
	"chamar atendente",
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips accents for matching. The original text is
// preserved elsewhere for the LLM.
func fold(s string) string {
	if folded, _, err := transform.String(foldMarks, s); err == nil {
		s = folded
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// wantsHuman reports whether the folded message asks for an operator.
func wantsHuman(folded string) bool {
	for _, phrase := range handoffPhrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}

// ruleMatches evaluates one keyword rule against the folded message. The
// rule's keyword list is a JSON string array; any keyword matching under
// the rule's mode wins. Unknown modes behave as contains.
func ruleMatches(rule domain.KeywordRule, folded string) bool {
	var keywords []string
	if err := json.Unmarshal([]byte(rule.Keywords), &keywords); err != nil {
		return false
	}
	for _, kw := range keywords {
		kw = fold(kw)
		if kw == "" {
			continue
		}
		switch rule.MatchType {
		case domain.MatchExact:
			if folded == kw {
				return true
			}
		case domain.MatchStartsWith:
			if strings.HasPrefix(folded, kw) {
				return true
			}
		default:
			if strings.Contains(folded, kw) {
				return true
			}
		}
	}
	return false
}
