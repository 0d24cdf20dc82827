package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nn1-dev/club-api/internal/pkg/mail"
	redisc "github.com/nn1-dev/club-api/internal/pkg/redis"
	"github.com/nn1-dev/club-api/internal/testutil"
	"github.com/redis/go-redis/v9"
)

func newOutbox(t *testing.T, opts ...Option) *Outbox {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redisc.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rc.Close() })
	return New(rc, opts...)
}

func msg(subject string) mail.Message {
	return mail.Message{To: []string{"a@x.com"}, Subject: subject, Text: "body"}
}

func TestParkAndList(t *testing.T) {
	o := newOutbox(t)
	ctx := context.Background()
	first, err := o.Park(ctx, msg("one"), errors.New("smtp down"))
	if err != nil {
		t.Fatalf("Park: %v", err)
	}
	if first.Attempts != 1 || first.LastError != "smtp down" || first.Status != StatusPending {
		t.Errorf("entry = %+v", first)
	}
	if _, err := o.Park(ctx, msg("two"), nil); err != nil {
		t.Fatalf("Park: %v", err)
	}

	all, err := o.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("List = %d, %v", len(all), err)
	}
	got, err := o.Get(ctx, first.ID)
	if err != nil || got == nil || got.Message.Subject != "one" {
		t.Errorf("Get = %+v, %v", got, err)
	}
	if missing, err := o.Get(ctx, "nope"); err != nil || missing != nil {
		t.Errorf("Get(nope) = %+v, %v", missing, err)
	}
}

func TestRetrySendsAndGivesUp(t *testing.T) {
	o := newOutbox(t, WithMaxAttempts(3))
	ctx := context.Background()
	good, _ := o.Park(ctx, msg("good"), errors.New("x"))
	bad, _ := o.Park(ctx, msg("bad"), errors.New("x"))

	m := &testutil.Mailer{FailWhen: func(m mail.Message) bool { return m.Subject == "bad" }}
	res, err := o.Retry(ctx, m)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if res != (RetryResult{Sent: 1, Pending: 1}) {
		t.Errorf("first run = %+v", res)
	}
	if e, _ := o.Get(ctx, good.ID); e.Status != StatusSent {
		t.Errorf("good status = %s", e.Status)
	}

	res, _ = o.Retry(ctx, m)
	if res != (RetryResult{Failed: 1}) {
		t.Errorf("second run = %+v", res)
	}
	e, _ := o.Get(ctx, bad.ID)
	if e.Status != StatusFailed || e.Attempts != 3 || e.LastError != testutil.ErrMailDown.Error() {
		t.Errorf("bad entry = %+v", e)
	}
	if n := len(m.Sent()); n != 1 {
		t.Errorf("delivered %d, want 1", n)
	}
	if res, _ := o.Retry(ctx, m); res != (RetryResult{}) {
		t.Errorf("third run = %+v, want nothing to do", res)
	}
}

func TestRetryHoldsLock(t *testing.T) {
	o := newOutbox(t)
	ctx := context.Background()
	if ok, _ := o.rc.Lock(ctx, keyLock, time.Minute); !ok {
		t.Fatal("could not take lock")
	}
	if _, err := o.Retry(ctx, &testutil.Mailer{}); !errors.Is(err, ErrBusy) {
		t.Errorf("Retry err = %v, want ErrBusy", err)
	}
}

func TestPurgeKeepsPending(t *testing.T) {
	o := newOutbox(t)
	ctx := context.Background()
	sent, _ := o.Park(ctx, msg("sent"), nil)
	pending, _ := o.Park(ctx, msg("pending"), nil)
	sent.Status = StatusSent
	if err := o.save(ctx, sent); err != nil {
		t.Fatalf("save: %v", err)
	}

	n, err := o.Purge(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Purge = %d, %v", n, err)
	}
	if e, _ := o.Get(ctx, pending.ID); e == nil {
		t.Error("pending entry purged")
	}
	if e, _ := o.Get(ctx, sent.ID); e != nil {
		t.Error("sent entry kept")
	}
}
