// Package broadcast sends registered campaigns to newsletter subscribers and event attendees.
package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/nn1-dev/club-api/internal/models"
	"github.com/nn1-dev/club-api/internal/modules/community/identity"
	"github.com/nn1-dev/club-api/internal/modules/community/links"
	"github.com/nn1-dev/club-api/internal/pkg/apperr"
	"github.com/nn1-dev/club-api/internal/pkg/mail"
	"go.uber.org/zap"
)

const defaultMailTimeout = 15 * time.Second

// Audience reads the recipients of a broadcast.
type Audience interface {
	ListSubscribers(ctx context.Context, confirmedOnly bool) ([]models.Subscriber, error)
	ListTickets(ctx context.Context, f identity.TicketFilter) ([]models.Ticket, error)
	ConfirmedTicketEmails(ctx context.Context, eventID int64) ([]string, error)
}

// BatchSender submits up to mail.MaxBatch messages in one call.
type BatchSender interface {
	SendBatch(ctx context.Context, msgs []mail.Message) error
}

type Config struct {
	URLClient   string
	From        string
	BatchSize   int
	MailTimeout time.Duration
}

type Service struct {
	audience    Audience
	sender      BatchSender
	newsletters Registry
	events      Registry
	cfg         Config
	links       links.Builder
	logger      *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("BroadcastService")
		}
	}
}

func NewService(audience Audience, sender BatchSender, newsletters, events Registry, cfg Config, opts ...ServiceOption) *Service {
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = defaultMailTimeout
	}
	if newsletters == nil {
		newsletters = Registry{}
	}
	if events == nil {
		events = Registry{}
	}
	s := &Service{
		audience:    audience,
		sender:      sender,
		newsletters: newsletters,
		events:      events,
		cfg:         cfg,
		links:       links.New(cfg.URLClient),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recipient is one addressee and the link rendered into their copy.
type recipient struct {
	email string
	link  string
}

// BroadcastNewsletter sends key to every confirmed subscriber. When
// excludeEventID is positive, confirmed attendees of that event are skipped.
// It returns the addresses submitted to the provider.
func (s *Service) BroadcastNewsletter(ctx context.Context, key string, excludeEventID int64) ([]string, error) {
	tpl, ok := s.newsletters[key]
	if !ok {
		return nil, apperr.UnknownTemplate(key)
	}
	if excludeEventID < 0 {
		return nil, apperr.Validation("excludeMembersEventId must be positive")
	}
	subs, err := s.audience.ListSubscribers(ctx, true)
	if err != nil {
		return nil, err
	}
	excluded := map[string]struct{}{}
	if excludeEventID > 0 {
		emails, err := s.audience.ConfirmedTicketEmails(ctx, excludeEventID)
		if err != nil {
			return nil, err
		}
		for _, e := range emails {
			excluded[e] = struct{}{}
		}
	}

	audience := make([]recipient, 0, len(subs))
	for _, sub := range subs {
		if _, skip := excluded[sub.Email]; skip {
			continue
		}
		audience = append(audience, recipient{email: sub.Email, link: s.links.Unsubscribe(sub.ID)})
	}
	s.logger.Info("newsletter broadcast",
		zap.String("template", key),
		zap.Int("recipients", len(audience)),
		zap.Int("excluded", len(subs)-len(audience)),
	)
	return s.dispatch(ctx, key, tpl, audience)
}

// BroadcastEvent sends key to every confirmed attendee of eventID.
func (s *Service) BroadcastEvent(ctx context.Context, key string, eventID int64) ([]string, error) {
	tpl, ok := s.events[key]
	if !ok {
		return nil, apperr.UnknownTemplate(key)
	}
	if eventID <= 0 {
		return nil, apperr.Validation("eventId must be positive")
	}
	if tpl.EventID != 0 && tpl.EventID != eventID {
		return nil, apperr.Validation(fmt.Sprintf("template %s belongs to event %d", key, tpl.EventID))
	}
	tickets, err := s.audience.ListTickets(ctx, identity.TicketFilter{EventID: eventID, ConfirmedOnly: true})
	if err != nil {
		return nil, err
	}
	audience := make([]recipient, 0, len(tickets))
	for _, t := range tickets {
		audience = append(audience, recipient{email: t.Email, link: s.links.Ticket(eventID, t.ID)})
	}
	s.logger.Info("event broadcast",
		zap.String("template", key),
		zap.Int64("event_id", eventID),
		zap.Int("recipients", len(audience)),
	)
	return s.dispatch(ctx, key, tpl, audience)
}

// Templates lists the registered keys per audience.
func (s *Service) Templates() map[string][]string {
	return map[string][]string{
		"newsletter": s.newsletters.Keys(),
		"event":      s.events.Keys(),
	}
}

// dispatch renders every copy, then submits the chunks in order. A failing
// chunk stops the run. Earlier chunks stay sent and are reported on the error,
// along with the part of the failing chunk the transport says it accepted.
func (s *Service) dispatch(ctx context.Context, key string, tpl Template, audience []recipient) ([]string, error) {
	msgs := make([]mail.Message, 0, len(audience))
	for _, r := range audience {
		body, err := tpl.Render(r.link)
		if err != nil {
			return nil, fmt.Errorf("render %s for %s: %w", key, r.email, err)
		}
		msgs = append(msgs, mail.NewMessage(s.cfg.From, []string{r.email}, tpl.Subject, body))
	}

	submitted := make([]string, 0, len(msgs))
	chunks := Chunk(msgs, s.cfg.BatchSize)
	for i, chunk := range chunks {
		if err := s.sendChunk(ctx, chunk); err != nil {
			for _, m := range chunk[:min(mail.AcceptedBefore(err), len(chunk))] {
				submitted = append(submitted, m.To...)
			}
			s.logger.Error("broadcast chunk failed",
				zap.String("template", key),
				zap.Int("chunk", i+1),
				zap.Int("chunks", len(chunks)),
				zap.Int("submitted", len(submitted)),
				zap.Error(err),
			)
			derr := apperr.Delivery(fmt.Sprintf("batch %d/%d", i+1, len(chunks)), err)
			derr.Recipients = submitted
			return submitted, derr
		}
		for _, m := range chunk {
			submitted = append(submitted, m.To...)
		}
	}
	return submitted, nil
}

func (s *Service) sendChunk(ctx context.Context, chunk []mail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.MailTimeout)
	defer cancel()
	return s.sender.SendBatch(ctx, chunk)
}
