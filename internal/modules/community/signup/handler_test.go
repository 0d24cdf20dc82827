package signup

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/emails"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Stage  string          `json:"stage"`
	Record json.RawMessage `json:"record"`
}

func newRouter(f *fixture) *gin.Engine {
	r := gin.New()
	NewHandler(f.svc).RegisterRoutes(r.Group(""), func(c *gin.Context) { c.Next() })
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func TestSubscriberEndpoints(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)

	code, env := do(t, r, http.MethodPost, "/subscribers", gin.H{"email": "a@x.com"})
	if code != http.StatusCreated || env.Status != "success" {
		t.Fatalf("POST = %d %+v", code, env)
	}
	var sub struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &sub); err != nil || sub.ID == "" {
		t.Fatalf("data = %s", env.Data)
	}
	if code, _ := do(t, r, http.MethodPost, "/subscribers", gin.H{"email": "a@x.com"}); code != http.StatusOK {
		t.Errorf("repeat POST = %d, want 200", code)
	}

	code, env = do(t, r, http.MethodPut, "/subscribers/"+sub.ID, gin.H{"token": "nope"})
	if code != http.StatusBadRequest || env.Status != "error" {
		t.Errorf("PUT wrong token = %d %+v", code, env)
	}
	code, _ = do(t, r, http.MethodPut, "/subscribers/"+sub.ID, gin.H{"token": f.subscriberToken(t, sub.ID)})
	if code != http.StatusOK {
		t.Errorf("PUT = %d, want 200", code)
	}

	if code, _ := do(t, r, http.MethodGet, "/subscribers/"+sub.ID, nil); code != http.StatusOK {
		t.Errorf("GET = %d", code)
	}
	if code, _ := do(t, r, http.MethodDelete, "/subscribers/"+sub.ID, nil); code != http.StatusOK {
		t.Errorf("DELETE = %d", code)
	}
	code, env = do(t, r, http.MethodDelete, "/subscribers/"+sub.ID, nil)
	if code != http.StatusNotFound || string(env.Data) != `"The requested resource was not found."` {
		t.Errorf("second DELETE = %d %s", code, env.Data)
	}
	if code, _ := do(t, r, http.MethodPost, "/subscribers", gin.H{}); code != http.StatusBadRequest {
		t.Errorf("POST without email = %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/subscribers", gin.H{"email": "not-an-address"}); code != http.StatusBadRequest {
		t.Errorf("POST malformed email = %d", code)
	}
	if n := len(f.mailer.SentWithSubject(emails.NewsletterConfirm.Subject())); n != 1 {
		t.Errorf("confirmation emails = %d, want 1", n)
	}
}

func TestTicketEndpointReportsDeliveryFailureWithRecord(t *testing.T) {
	f := newFixture(t)
	f.mailer.FailWhen = failTemplate(emails.SignupConfirm)
	r := newRouter(f)

	code, env := do(t, r, http.MethodPost, "/tickets", gin.H{
		"name": "Ada", "email": "a@x.com", "eventId": 5,
		"eventName": testEvent.Name, "eventDate": testEvent.Date, "eventLocation": testEvent.Location,
		"eventInviteUrlIcal": testEvent.InviteURLICal, "eventInviteUrlGoogle": testEvent.InviteURLGoogle,
	})
	if code != http.StatusBadGateway {
		t.Fatalf("POST = %d, want 502", code)
	}
	if env.Stage != "confirmation" || len(env.Record) == 0 || string(env.Record) == "null" {
		t.Errorf("envelope = %+v, want stage and record", env)
	}

	if code, _ := do(t, r, http.MethodGet, "/tickets/5", nil); code != http.StatusOK {
		t.Errorf("GET /tickets/5 = %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/tickets/abc", nil); code != http.StatusBadRequest {
		t.Errorf("GET /tickets/abc = %d, want 400", code)
	}
}
