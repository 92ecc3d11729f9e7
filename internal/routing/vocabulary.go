// Package routing decides which agents answer a request and which agents an
// answer asks to bring in next.
package routing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xiaot623/ensemble/internal/domain"
)

// Vocabulary stores the trigger terms that select each role.
type Vocabulary struct {
	mu    sync.RWMutex
	terms map[domain.Role][]string
	order []domain.Role
}

// DefaultVocabulary is the shared vocabulary populated by builtin.go.
var DefaultVocabulary = NewVocabulary()

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		terms: make(map[domain.Role][]string),
	}
}

// Register adds the trigger terms for a role. Terms are matched lower-cased.
func (v *Vocabulary) Register(role domain.Role, terms ...string) error {
	if role == "" {
		return fmt.Errorf("role is required")
	}
	if len(terms) == 0 {
		return fmt.Errorf("at least one term is required for %s", role)
	}
	normalized := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return fmt.Errorf("empty term for %s", role)
		}
		normalized = append(normalized, t)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.terms[role]; exists {
		return fmt.Errorf("vocabulary already registered for %s", role)
	}
	v.terms[role] = normalized
	v.order = append(v.order, role)
	return nil
}

// Match returns every role with at least one term occurring in text,
// in registration order and without duplicates.
func (v *Vocabulary) Match(text string) []domain.Role {
	lower := strings.ToLower(text)

	v.mu.RLock()
	defer v.mu.RUnlock()

	var roles []domain.Role
	for _, role := range v.order {
		for _, term := range v.terms[role] {
			if strings.Contains(lower, term) {
				roles = append(roles, role)
				break
			}
		}
	}
	return roles
}

// Terms returns a copy of the terms registered for role.
func (v *Vocabulary) Terms(role domain.Role) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, len(v.terms[role]))
	copy(out, v.terms[role])
	return out
}

// Register adds terms to the default vocabulary.
func Register(role domain.Role, terms ...string) error {
	return DefaultVocabulary.Register(role, terms...)
}

// MustRegister adds terms to the default vocabulary or panics.
func MustRegister(role domain.Role, terms ...string) {
	if err := Register(role, terms...); err != nil {
		panic(err)
	}
}
