package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-gomail/gomail"
	"go.uber.org/zap"
)

// MaxBatch is the provider ceiling for one batch send.
const MaxBatch = 100

const (
	defaultResendEndpoint = "https://api.resend.com"
	defaultTimeout        = 15 * time.Second
)

// ErrBatchTooLarge is returned when SendBatch receives more than MaxBatch messages.
var ErrBatchTooLarge = fmt.Errorf("batch exceeds %d messages", MaxBatch)

// Config holds mail provider settings.
type Config struct {
	Enable         bool
	Host           string
	Port           int
	User           string
	Pass           string
	From           string
	ReplyTo        string
	ResendKey      string
	ResendEndpoint string
	Timeout        time.Duration
}

// Content is a rendered email body.
type Content struct {
	HTML string
	Text string
}

// Message is a single email to send. An empty From uses the configured sender.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// NewMessage builds a message from rendered content.
func NewMessage(from string, to []string, subject string, body Content) Message {
	return Message{From: from, To: to, Subject: subject, HTML: body.HTML, Text: body.Text}
}

// Sender delivers messages through Resend, SMTP, or the log when disabled.
type Sender struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the client used for the Resend API.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger used for the disabled transport and diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sender) {
		if l != nil {
			s.logger = l.Named("Mail")
		}
	}
}

func New(cfg Config, opts ...Option) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ResendEndpoint == "" {
		cfg.ResendEndpoint = defaultResendEndpoint
	}
	cfg.ResendEndpoint = strings.TrimRight(cfg.ResendEndpoint, "/")
	s := &Sender{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Transport names the active delivery path.
func (s *Sender) Transport() string {
	switch {
	case !s.cfg.Enable:
		return "log"
	case s.cfg.ResendKey != "":
		return "resend"
	default:
		return "smtp"
	}
}

// Send dispatches one email. Uses Resend if configured, otherwise SMTP.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	msg = s.withDefaults(msg)
	if len(msg.To) == 0 {
		return errors.New("mail: message has no recipients")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	switch s.Transport() {
	case "log":
		s.logger.Info("mail disabled, message dropped",
			zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
		return nil
	case "resend":
		return s.postResend(ctx, "/emails", toResendPayload(msg))
	default:
		return s.sendSMTP(ctx, []Message{msg})
	}
}

// SendBatch dispatches up to MaxBatch emails in one provider call.
func (s *Sender) SendBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) > MaxBatch {
		return ErrBatchTooLarge
	}
	batch := make([]Message, len(msgs))
	for i, m := range msgs {
		batch[i] = s.withDefaults(m)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	switch s.Transport() {
	case "log":
		s.logger.Info("mail disabled, batch dropped",
			zap.Int("count", len(batch)), zap.String("subject", batch[0].Subject))
		return nil
	case "resend":
		payload := make([]resendEmail, 0, len(batch))
		for _, m := range batch {
			payload = append(payload, toResendPayload(m))
		}
		return s.postResend(ctx, "/emails/batch", payload)
	default:
		return s.sendSMTP(ctx, batch)
	}
}

func (s *Sender) withDefaults(msg Message) Message {
	if msg.From == "" {
		msg.From = s.cfg.From
	}
	if msg.From == "" {
		msg.From = s.cfg.User
	}
	if msg.ReplyTo == "" {
		msg.ReplyTo = s.cfg.ReplyTo
	}
	return msg
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func toResendPayload(m Message) resendEmail {
	return resendEmail{From: m.From, To: m.To, Subject: m.Subject, HTML: m.HTML, Text: m.Text, ReplyTo: m.ReplyTo}
}

// postResend sends via the Resend HTTP API.
func (s *Sender) postResend(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ResendEndpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}

// sendSMTP delivers msgs over one SMTP connection.
// PartialBatchError reports a batch that failed after the server had
// accepted its first Sent messages.
type PartialBatchError struct {
	Sent int
	Err  error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("%d message(s) accepted before failure: %v", e.Sent, e.Err)
}

func (e *PartialBatchError) Unwrap() error { return e.Err }

// AcceptedBefore returns how many leading messages of a failed batch were
// accepted, or 0 when err carries no such count.
func AcceptedBefore(err error) int {
	var pe *PartialBatchError
	if errors.As(err, &pe) {
		return pe.Sent
	}
	return 0
}

// sendSMTP sends msgs over one connection, in order. On cancellation the
// reported count is a lower bound.
func (s *Sender) sendSMTP(ctx context.Context, msgs []Message) error {
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	d := gomail.NewDialer(s.cfg.Host, port, s.cfg.User, s.cfg.Pass)

	var accepted atomic.Int64
	done := make(chan error, 1)
	go func() { done <- deliverSMTP(d, msgs, &accepted) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return smtpError(int(accepted.Load()), ctx.Err())
	}
}

func deliverSMTP(d *gomail.Dialer, msgs []Message, accepted *atomic.Int64) error {
	sc, err := d.Dial()
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer sc.Close()
	for i, msg := range msgs {
		if err := gomail.Send(sc, toGomail(msg)); err != nil {
			return smtpError(i, err)
		}
		accepted.Add(1)
	}
	return nil
}

func smtpError(sent int, err error) error {
	if sent == 0 {
		return fmt.Errorf("smtp send: %w", err)
	}
	return fmt.Errorf("smtp send: %w", &PartialBatchError{Sent: sent, Err: err})
}

func toGomail(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	return m
}
