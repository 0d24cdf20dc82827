package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/pkg/jwt"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func init() { gin.SetMode(gin.TestMode) }

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func serve(r http.Handler, method, path, auth, body string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthenticatorValidate(t *testing.T) {
	signer, _ := jwt.NewSigner("jwt-secret")
	token, _ := signer.Sign("ops", "", time.Hour)
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	plain := NewAuthenticator("plain-secret", signer)
	hashed := NewAuthenticator(string(hash), nil)
	tests := []struct {
		name    string
		a       *Authenticator
		header  string
		subject string
	}{
		{"plain bearer", plain, "Bearer plain-secret", staticSubject},
		{"plain bare", plain, "plain-secret", staticSubject},
		{"plain wrong", plain, "Bearer nope", ""},
		{"jwt", plain, "Bearer " + token, "ops"},
		{"empty", plain, "", ""},
		{"hashed", hashed, "Bearer hashed-secret", staticSubject},
		{"hashed wrong", hashed, "Bearer " + string(hash), ""},
		{"jwt without signer", hashed, "Bearer " + token, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Validate(tt.header)
			if tt.subject == "" {
				if err == nil {
					t.Errorf("Validate succeeded with subject %q", got)
				}
				return
			}
			if err != nil || got != tt.subject {
				t.Errorf("Validate = %q, %v; want %q", got, err, tt.subject)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/x", Auth(NewAuthenticator("s", nil)), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentSubject(c))
	})
	if code := serve(r, http.MethodGet, "/x", "", ""); code != http.StatusUnauthorized {
		t.Errorf("no token = %d", code)
	}
	if code := serve(r, http.MethodGet, "/x", "Bearer s", ""); code != http.StatusOK {
		t.Errorf("valid token = %d", code)
	}
}

func TestLoggerRecordsSubjectAndLevel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/x", Auth(NewAuthenticator("s", nil)), func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/x", "Bearer s", "")
	serve(r, http.MethodGet, "/x", "", "")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["subject"]; got != staticSubject {
		t.Errorf("authorized request subject = %v, want %q", got, staticSubject)
	}
	if _, ok := entries[1].ContextMap()["subject"]; ok {
		t.Error("rejected request logged a subject")
	}
	if entries[1].Level != zap.WarnLevel {
		t.Errorf("401 logged at %v, want warn", entries[1].Level)
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(newRedis(t), 2))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Five requests span at most two one-second windows, so one window sees three.
	limited := 0
	for i := 0; i < 5; i++ {
		code := serve(r, http.MethodGet, "/x", "", "")
		if i == 0 && code != http.StatusOK {
			t.Fatalf("first request = %d", code)
		}
		if code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited == 0 {
		t.Error("no request was limited")
	}
}

func TestIdempotence(t *testing.T) {
	r := gin.New()
	r.Use(Idempotence(newRedis(t)))
	r.POST("/ok", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	if code := serve(r, http.MethodPost, "/ok", "", `{"a":1}`); code != http.StatusCreated {
		t.Fatalf("first POST = %d", code)
	}
	if code := serve(r, http.MethodPost, "/ok", "", `{"a":1}`); code != http.StatusConflict {
		t.Errorf("repeat POST = %d, want 409", code)
	}
	if code := serve(r, http.MethodPost, "/ok", "", `{"a":2}`); code != http.StatusCreated {
		t.Errorf("different body = %d", code)
	}
	for i := 0; i < 2; i++ {
		if code := serve(r, http.MethodPost, "/fail", "", `{}`); code != http.StatusBadGateway {
			t.Errorf("failed POST %d = %d, want retry allowed", i, code)
		}
	}
	for i := 0; i < 2; i++ {
		if code := serve(r, http.MethodGet, "/ok", "", ""); code != http.StatusOK {
			t.Errorf("GET %d = %d", i, code)
		}
	}
}
