package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/nn1-dev/club-api/internal/pkg/mail"
)

// ErrMailDown is returned by Mailer for messages matched by FailWhen.
var ErrMailDown = errors.New("mail provider unavailable")

// Mailer records sent messages. It is safe for concurrent use.
type Mailer struct {
	// FailWhen, when set, makes Send fail for matching messages.
	FailWhen func(mail.Message) bool
	// FailBatch, when set, makes SendBatch fail for the nth batch (0-based).
	FailBatch func(n int) bool
	// AcceptOnFailure is how many leading messages a failing batch still delivers.
	AcceptOnFailure int

	mu      sync.Mutex
	sent    []mail.Message
	batches [][]mail.Message
	calls   int
}

func (m *Mailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWhen != nil && m.FailWhen(msg) {
		return ErrMailDown
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *Mailer) SendBatch(_ context.Context, msgs []mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.calls
	m.calls++
	if len(msgs) > mail.MaxBatch {
		return mail.ErrBatchTooLarge
	}
	if m.FailBatch != nil && m.FailBatch(n) {
		if k := min(m.AcceptOnFailure, len(msgs)); k > 0 {
			m.batches = append(m.batches, append([]mail.Message(nil), msgs[:k]...))
			return &mail.PartialBatchError{Sent: k, Err: ErrMailDown}
		}
		return ErrMailDown
	}
	m.batches = append(m.batches, append([]mail.Message(nil), msgs...))
	return nil
}

// Sent returns a copy of every message delivered through Send.
func (m *Mailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

// Batches returns a copy of every batch delivered through SendBatch.
func (m *Mailer) Batches() [][]mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]mail.Message(nil), m.batches...)
}

// BatchCalls counts SendBatch calls, failed ones included.
func (m *Mailer) BatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SentWithSubject returns the delivered messages carrying subject.
func (m *Mailer) SentWithSubject(subject string) []mail.Message {
	var out []mail.Message
	for _, msg := range m.Sent() {
		if msg.Subject == subject {
			out = append(out, msg)
		}
	}
	return out
}
