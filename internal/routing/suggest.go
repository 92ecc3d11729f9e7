package routing

import (
	"strings"

	"github.com/xiaot623/ensemble/internal/domain"
)

// SuggestionExtractor reads an agent's answer and returns the roles it asks
// to consult next.
type SuggestionExtractor interface {
	Extract(content string) []domain.Role
}

// PhraseTrigger suggests Role when Phrase occurs in an answer.
type PhraseTrigger struct {
	Phrase string
	Role   domain.Role
}

// PhraseExtractor suggests roles by case-insensitive substring match.
type PhraseExtractor struct {
	triggers []PhraseTrigger
}

// NewPhraseExtractor creates an extractor over the given triggers.
func NewPhraseExtractor(triggers ...PhraseTrigger) *PhraseExtractor {
	out := make([]PhraseTrigger, 0, len(triggers))
	for _, t := range triggers {
		phrase := strings.ToLower(strings.TrimSpace(t.Phrase))
		if phrase == "" || t.Role == "" {
			continue
		}
		out = append(out, PhraseTrigger{Phrase: phrase, Role: t.Role})
	}
	return &PhraseExtractor{triggers: out}
}

// DefaultTriggers are the follow-up phrases recognised out of the box.
var DefaultTriggers = []PhraseTrigger{
	{Phrase: "review security", Role: domain.RoleTesting},
	{Phrase: "revisar seguridad", Role: domain.RoleTesting},
	{Phrase: "revisar la seguridad", Role: domain.RoleTesting},
	{Phrase: "validate", Role: domain.RoleTesting},
	{Phrase: "validar", Role: domain.RoleTesting},
	{Phrase: "review license", Role: domain.RoleLegal},
	{Phrase: "revisar licencia", Role: domain.RoleLegal},
	{Phrase: "revisar la licencia", Role: domain.RoleLegal},
	{Phrase: "compliance", Role: domain.RoleLegal},
	{Phrase: "cumplimiento", Role: domain.RoleLegal},
	{Phrase: "vote", Role: domain.RoleGovernance},
	{Phrase: "votación", Role: domain.RoleGovernance},
	{Phrase: "votacion", Role: domain.RoleGovernance},
	{Phrase: "community", Role: domain.RoleGovernance},
	{Phrase: "comunidad", Role: domain.RoleGovernance},
}

// NewDefaultExtractor returns a PhraseExtractor over DefaultTriggers.
func NewDefaultExtractor() *PhraseExtractor {
	return NewPhraseExtractor(DefaultTriggers...)
}

// Extract returns the suggested roles in trigger order, de-duplicated.
func (e *PhraseExtractor) Extract(content string) []domain.Role {
	if content == "" {
		return nil
	}
	lower := strings.ToLower(content)
	seen := make(map[domain.Role]bool)
	var roles []domain.Role
	for _, t := range e.triggers {
		if seen[t.Role] {
			continue
		}
		if strings.Contains(lower, t.Phrase) {
			seen[t.Role] = true
			roles = append(roles, t.Role)
		}
	}
	return roles
}
