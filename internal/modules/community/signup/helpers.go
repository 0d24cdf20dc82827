package signup

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"

	"github.com/nn1-dev/club-api/internal/pkg/apperr"
)

const (
	maxEmailLen = 191
	maxNameLen  = 191
	tokenBytes  = 16
)

// NormalizeEmail trims and lowercases email and checks it is a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Validation("email is required")
	}
	if len(email) > maxEmailLen {
		return "", apperr.Validation("email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", apperr.Validation("email is invalid")
	}
	return email, nil
}

func normalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	if len(name) > maxNameLen {
		return "", apperr.Validation("name is too long")
	}
	return name, nil
}

func validateEventID(id int64) error {
	if id <= 0 {
		return apperr.Validation("eventId must be positive")
	}
	return nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("id is required")
	}
	return nil
}

func (m EventMeta) validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"eventName", m.Name},
		{"eventDate", m.Date},
		{"eventLocation", m.Location},
		{"eventInviteUrlIcal", m.InviteURLICal},
		{"eventInviteUrlGoogle", m.InviteURLGoogle},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("missing " + strings.Join(missing, ", "))
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
