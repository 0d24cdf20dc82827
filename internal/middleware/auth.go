package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/pkg/jwt"
	"github.com/nn1-dev/club-api/internal/pkg/response"
	"golang.org/x/crypto/bcrypt"
)

const ContextKeySubject = "auth_subject"

// staticSubject is recorded for requests authenticated with the shared secret.
const staticSubject = "static"

var errUnauthorized = errors.New("unauthorized")

// Authenticator accepts the shared bearer secret, stored plain or as a bcrypt
// hash, or an HS256 token from the signer.
type Authenticator struct {
	secret string
	hashed bool
	signer *jwt.Signer
}

// NewAuthenticator builds an Authenticator. Either argument may be empty/nil.
func NewAuthenticator(secret string, signer *jwt.Signer) *Authenticator {
	secret = strings.TrimSpace(secret)
	return &Authenticator{secret: secret, hashed: isBcryptHash(secret), signer: signer}
}

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// Validate returns the subject the token authenticates.
func (a *Authenticator) Validate(raw string) (string, error) {
	token := NormalizeToken(raw)
	if token == "" {
		return "", errUnauthorized
	}
	if a.secret != "" {
		if a.hashed {
			if bcrypt.CompareHashAndPassword([]byte(a.secret), []byte(token)) == nil {
				return staticSubject, nil
			}
		} else if subtle.ConstantTimeCompare([]byte(a.secret), []byte(token)) == 1 {
			return staticSubject, nil
		}
	}
	if a.signer != nil && strings.Count(token, ".") == 2 {
		claims, err := a.signer.Parse(token)
		if err == nil {
			return claims.Subject, nil
		}
	}
	return "", errUnauthorized
}

// Auth returns a middleware that rejects requests without a valid bearer token.
func Auth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := a.Validate(c.GetHeader("Authorization"))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}

// CurrentSubject returns the authenticated subject, or "".
func CurrentSubject(c *gin.Context) string {
	return c.GetString(ContextKeySubject)
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
