package signup

import (
	"context"
	"time"

	"github.com/nn1-dev/club-api/internal/emails"
	"github.com/nn1-dev/club-api/internal/models"
	"github.com/nn1-dev/club-api/internal/modules/community/identity"
	"github.com/nn1-dev/club-api/internal/pkg/mail"
)

// Store is the identity persistence the state machine runs on.
type Store interface {
	FindSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	FindSubscriberByID(ctx context.Context, id string) (*models.Subscriber, error)
	InsertSubscriber(ctx context.Context, sub *models.Subscriber) (*models.Subscriber, bool, error)
	ConfirmSubscriber(ctx context.Context, id, token string) (bool, error)
	PromoteSubscriber(ctx context.Context, id string) (bool, error)
	DeleteSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
	ListSubscribers(ctx context.Context, confirmedOnly bool) ([]models.Subscriber, error)

	FindTicketByEventAndEmail(ctx context.Context, eventID int64, email string) (*models.Ticket, error)
	FindTicketByEventAndID(ctx context.Context, eventID int64, id string) (*models.Ticket, error)
	FindAnyConfirmedTicketByEmail(ctx context.Context, email string) (*models.Ticket, error)
	InsertTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, bool, error)
	ConfirmTicket(ctx context.Context, eventID int64, id, token string) (bool, error)
	DeleteTicket(ctx context.Context, eventID int64, id string) (*models.Ticket, error)
	ListTickets(ctx context.Context, f identity.TicketFilter) ([]models.Ticket, error)
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Renderer turns a named template into message bodies.
type Renderer interface {
	Render(t emails.Template, data interface{}) (mail.Content, error)
}

// FailureHook receives every notification that could not be delivered.
type FailureHook func(ctx context.Context, msg mail.Message, cause error)

// Config carries the addresses and limits the service needs.
type Config struct {
	URLClient   string
	From        string
	Admin       string
	MailTimeout time.Duration
}

// EventMeta describes the event in the attendee's ticket email.
type EventMeta struct {
	Name            string `json:"eventName"`
	Date            string `json:"eventDate"`
	Location        string `json:"eventLocation"`
	InviteURLICal   string `json:"eventInviteUrlIcal"`
	InviteURLGoogle string `json:"eventInviteUrlGoogle"`
}

// TicketRequest is a registration for one event.
type TicketRequest struct {
	EventID   int64
	Email     string
	Name      string
	Subscribe bool
	Event     EventMeta
}

// CascadeOutcome reports what SubscribeFromTicket changed.
type CascadeOutcome string

const (
	CascadeNoop     CascadeOutcome = "noop"
	CascadeCreated  CascadeOutcome = "created"
	CascadePromoted CascadeOutcome = "promoted"
)

type SubscriberDTO struct {
	Email string `json:"email" binding:"required,email"`
}

type ConfirmDTO struct {
	Token string `json:"token" binding:"required"`
}

type TicketDTO struct {
	Name      string `json:"name"    binding:"required"`
	Email     string `json:"email"   binding:"required,email"`
	EventID   int64  `json:"eventId" binding:"required,gt=0"`
	Subscribe bool   `json:"subscribe"`
	EventMeta
}

type ConfirmTicketDTO struct {
	Token string `json:"token" binding:"required"`
	EventMeta
}

type FeedbackDTO struct {
	Name     string `json:"name"     binding:"required"`
	Feedback string `json:"feedback" binding:"required"`
}
