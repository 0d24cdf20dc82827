package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type resendRecorder struct {
	mu       sync.Mutex
	paths    []string
	auth     []string
	single   []resendEmail
	batches  [][]resendEmail
	failWith int
}

func (r *resendRecorder) handler(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, req.URL.Path)
	r.auth = append(r.auth, req.Header.Get("Authorization"))
	if r.failWith != 0 {
		w.WriteHeader(r.failWith)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"bad from"}`))
		return
	}
	switch req.URL.Path {
	case "/emails":
		var e resendEmail
		_ = json.NewDecoder(req.Body).Decode(&e)
		r.single = append(r.single, e)
	case "/emails/batch":
		var b []resendEmail
		_ = json.NewDecoder(req.Body).Decode(&b)
		r.batches = append(r.batches, b)
	}
	_, _ = w.Write([]byte(`{"id":"ok"}`))
}

func newResendSender(t *testing.T, rec *resendRecorder) *Sender {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)
	return New(Config{
		Enable:         true,
		From:           "Club <club@example.com>",
		ReplyTo:        "hello@example.com",
		ResendKey:      "re_test",
		ResendEndpoint: srv.URL,
	}, WithHTTPClient(srv.Client()))
}

func TestSendUsesResendWithDefaults(t *testing.T) {
	rec := &resendRecorder{}
	s := newResendSender(t, rec)

	err := s.Send(context.Background(), NewMessage("", []string{"a@x.com"}, "Hi", Content{HTML: "<p>hi</p>", Text: "hi"}))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if s.Transport() != "resend" {
		t.Errorf("Transport = %q, want resend", s.Transport())
	}
	if len(rec.single) != 1 {
		t.Fatalf("single sends = %d, want 1", len(rec.single))
	}
	got := rec.single[0]
	if got.From != "Club <club@example.com>" || got.ReplyTo != "hello@example.com" {
		t.Errorf("from/reply_to = %q / %q", got.From, got.ReplyTo)
	}
	if got.Text != "hi" || got.HTML != "<p>hi</p>" {
		t.Errorf("body = %q / %q", got.Text, got.HTML)
	}
	if rec.auth[0] != "Bearer re_test" {
		t.Errorf("Authorization = %q", rec.auth[0])
	}
}

func TestSendBatch(t *testing.T) {
	rec := &resendRecorder{}
	s := newResendSender(t, rec)

	msgs := make([]Message, 3)
	for i := range msgs {
		msgs[i] = Message{From: "Broadcast <b@example.com>", To: []string{"r@x.com"}, Subject: "News"}
	}
	if err := s.SendBatch(context.Background(), msgs); err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if len(rec.batches) != 1 || len(rec.batches[0]) != 3 {
		t.Fatalf("batches = %v", rec.batches)
	}
	if rec.batches[0][0].From != "Broadcast <b@example.com>" {
		t.Errorf("explicit From overridden: %q", rec.batches[0][0].From)
	}
	if msgs[0].ReplyTo != "" {
		t.Error("SendBatch mutated caller messages")
	}
}

func TestSendBatchRejectsOversized(t *testing.T) {
	rec := &resendRecorder{}
	s := newResendSender(t, rec)
	err := s.SendBatch(context.Background(), make([]Message, MaxBatch+1))
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("err = %v, want ErrBatchTooLarge", err)
	}
	if len(rec.paths) != 0 {
		t.Errorf("provider called %d times", len(rec.paths))
	}
}

func TestResendErrorSurfaces(t *testing.T) {
	rec := &resendRecorder{failWith: http.StatusUnprocessableEntity}
	s := newResendSender(t, rec)
	err := s.Send(context.Background(), Message{To: []string{"a@x.com"}, Subject: "x"})
	if err == nil {
		t.Fatal("Send succeeded, want provider error")
	}
	if want := "resend error 422: bad from"; err.Error() != want {
		t.Errorf("err = %q, want %q", err, want)
	}
}

func TestDisabledSenderDrops(t *testing.T) {
	s := New(Config{})
	if s.Transport() != "log" {
		t.Errorf("Transport = %q, want log", s.Transport())
	}
	if err := s.Send(context.Background(), Message{To: []string{"a@x.com"}}); err != nil {
		t.Errorf("Send: %v", err)
	}
	if err := s.Send(context.Background(), Message{}); err == nil {
		t.Error("Send without recipients succeeded")
	}
}

func TestToGomailHeaders(t *testing.T) {
	m := toGomail(Message{From: "a@x.com", To: []string{"b@x.com", "c@x.com"}, Subject: "S", ReplyTo: "r@x.com", Text: "t", HTML: "<p>h</p>"})
	if got := m.GetHeader("To"); len(got) != 2 {
		t.Errorf("To = %v", got)
	}
	if got := m.GetHeader("Reply-To"); len(got) != 1 || got[0] != "r@x.com" {
		t.Errorf("Reply-To = %v", got)
	}
}
