// Package contacts defines the emergency-contact model and the read-only
// store interface the dispatch engine consumes. Contact management (CRUD)
// happens out-of-band; the engine only ever snapshots the current list.
package contacts

import (
	"context"
	"fmt"
	"strings"
)

// Contact is one pre-registered emergency contact.
type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
	ChatOptIn    bool   `json:"chat_opt_in"`
}

// Store supplies the current contact list. Implementations must return a
// snapshot the caller may hold across a dispatch without seeing later edits.
type Store interface {
	List(ctx context.Context) ([]Contact, error)
}

// NormalizePhone canonicalizes a phone number to E.164: spaces, dashes and
// parens stripped, a single leading +, 8 to 15 digits.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			// leading plus only
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// separator noise
		default:
			return "", fmt.Errorf("phone %q: invalid character %q", raw, r)
		}
	}

	digits := b.String()
	if len(digits) < 8 || len(digits) > 15 {
		return "", fmt.Errorf("phone %q: %d digits, want 8..15", raw, len(digits))
	}
	return "+" + digits, nil
}
