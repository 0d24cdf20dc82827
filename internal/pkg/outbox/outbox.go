// Package outbox parks notifications that failed to send and retries them later.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nn1-dev/club-api/internal/pkg/mail"
	redisc "github.com/nn1-dev/club-api/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a parked message.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Entry is one parked message.
type Entry struct {
	ID        string       `json:"id"`
	Message   mail.Message `json:"message"`
	Status    Status       `json:"status"`
	Attempts  int          `json:"attempts"`
	LastError string       `json:"last_error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

const (
	keyPrefix          = redisc.KeyPrefix + "outbox:"
	keyIndex           = redisc.KeyPrefix + "outbox:index" // sorted set: score=created_at, member=id
	keyLock            = redisc.KeyPrefix + "outbox:lock"
	entryTTL           = 7 * 24 * time.Hour
	lockTTL            = 5 * time.Minute
	defaultMaxAttempts = 5
)

// ErrBusy is returned by Retry while another run holds the lock.
var ErrBusy = errors.New("outbox retry already running")

// Mailer resends parked messages.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Outbox struct {
	rc          *redisc.Client
	maxAttempts int
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Outbox)

func WithLogger(l *zap.Logger) Option {
	return func(o *Outbox) {
		if l != nil {
			o.logger = l.Named("Outbox")
		}
	}
}

// WithMaxAttempts caps delivery attempts, the original one included.
func WithMaxAttempts(n int) Option {
	return func(o *Outbox) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

func New(rc *redisc.Client, opts ...Option) *Outbox {
	o := &Outbox{rc: rc, maxAttempts: defaultMaxAttempts, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func entryKey(id string) string { return keyPrefix + id }

// Park stores msg for a later retry. The failed send counts as the first attempt.
func (o *Outbox) Park(ctx context.Context, msg mail.Message, cause error) (*Entry, error) {
	now := o.now()
	e := &Entry{
		ID:        uuid.New().String(),
		Message:   msg,
		Status:    StatusPending,
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cause != nil {
		e.LastError = cause.Error()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	pipe := o.rc.Raw().TxPipeline()
	pipe.Set(ctx, entryKey(e.ID), data, entryTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{Score: float64(now.UnixMilli()), Member: e.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("park message: %w", err)
	}
	o.logger.Info("message parked", zap.String("id", e.ID), zap.String("subject", msg.Subject))
	return e, nil
}

// Get returns the entry, or nil when it does not exist.
func (o *Outbox) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := o.rc.Raw().Get(ctx, entryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return &e, nil
}

func (o *Outbox) save(ctx context.Context, e *Entry) error {
	e.UpdatedAt = o.now()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return o.rc.Raw().Set(ctx, entryKey(e.ID), data, entryTTL).Err()
}

// List returns entries oldest first, optionally filtered by status.
// Index members whose entry expired are dropped from the index.
func (o *Outbox) List(ctx context.Context, status Status) ([]*Entry, error) {
	ids, err := o.rc.Raw().ZRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		e, err := o.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if e == nil {
			o.rc.Raw().ZRem(ctx, keyIndex, id)
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RetryResult counts what one Retry run did.
type RetryResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// Retry resends every pending entry once. Entries reaching the attempt cap are marked failed.
func (o *Outbox) Retry(ctx context.Context, mailer Mailer) (RetryResult, error) {
	var res RetryResult
	ok, err := o.rc.Lock(ctx, keyLock, lockTTL)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, ErrBusy
	}
	defer o.rc.Del(context.WithoutCancel(ctx), keyLock)

	pending, err := o.List(ctx, StatusPending)
	if err != nil {
		return res, err
	}
	for _, e := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		e.Attempts++
		sendErr := mailer.Send(ctx, e.Message)
		switch {
		case sendErr == nil:
			e.Status = StatusSent
			e.LastError = ""
			res.Sent++
		case e.Attempts >= o.maxAttempts:
			e.Status = StatusFailed
			e.LastError = sendErr.Error()
			res.Failed++
			o.logger.Warn("message given up", zap.String("id", e.ID), zap.Int("attempts", e.Attempts), zap.Error(sendErr))
		default:
			e.LastError = sendErr.Error()
			res.Pending++
		}
		if err := o.save(ctx, e); err != nil {
			return res, fmt.Errorf("save entry %s: %w", e.ID, err)
		}
	}
	return res, nil
}

// Delete removes one entry.
func (o *Outbox) Delete(ctx context.Context, id string) error {
	pipe := o.rc.Raw().TxPipeline()
	pipe.Del(ctx, entryKey(id))
	pipe.ZRem(ctx, keyIndex, id)
	_, err := pipe.Exec(ctx)
	return err
}

// Purge removes sent and failed entries created before cutoff.
func (o *Outbox) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := o.List(ctx, "")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Status == StatusPending || !e.CreatedAt.Before(cutoff) {
			continue
		}
		if err := o.Delete(ctx, e.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
