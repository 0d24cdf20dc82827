package signup

import (
	"context"

	"github.com/nn1-dev/club-api/internal/emails"
	"github.com/nn1-dev/club-api/internal/models"
	"github.com/nn1-dev/club-api/internal/modules/community/identity"
	"github.com/nn1-dev/club-api/internal/pkg/apperr"
	"go.uber.org/zap"
)

// RegisterTicket books req.Email onto req.EventID.
//
// An attendee with a confirmed ticket for any event skips confirmation: the
// ticket is stored confirmed, both success notices go out and the newsletter
// cascade runs when requested. Everyone else gets a pending ticket and a
// confirmation link. A repeat registration returns the stored ticket with
// created=false and sends nothing.
func (s *Service) RegisterTicket(ctx context.Context, req TicketRequest) (*models.Ticket, bool, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, false, err
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, false, err
	}
	if err := validateEventID(req.EventID); err != nil {
		return nil, false, err
	}
	if err := req.Event.validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.store.FindTicketByEventAndEmail(ctx, req.EventID, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	trusted, err := s.store.FindAnyConfirmedTicketByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	ticket := &models.Ticket{EventID: req.EventID, Email: email, Name: name, Subscribe: req.Subscribe}
	var token string
	if trusted != nil {
		ticket.Confirmed = true
	} else {
		if token, err = newToken(); err != nil {
			return nil, false, err
		}
		ticket.ConfirmationToken = &token
	}

	stored, created, err := s.store.InsertTicket(ctx, ticket)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, apperr.DataConflict("ticket vanished after conflicting insert")
	}
	if !created {
		return stored, false, nil
	}

	if stored.Confirmed {
		s.logger.Info("ticket registered for returning attendee",
			zap.Int64("event_id", stored.EventID), zap.String("id", stored.ID))
		return stored, true, s.afterTicketConfirmed(ctx, stored, req.Event)
	}

	s.logger.Info("ticket registered", zap.Int64("event_id", stored.EventID), zap.String("id", stored.ID))
	err = s.send(ctx, notice{
		to:  email,
		tpl: emails.SignupConfirm,
		data: emails.SignupConfirmData{
			EventName: req.Event.Name,
			URL:       s.links.TicketConfirm(stored.EventID, stored.ID, token),
		},
	})
	if err != nil {
		return stored, true, apperr.Delivery("confirmation", err)
	}
	return stored, true, nil
}

// ConfirmTicket consumes the ticket's token, sends the success notices and
// runs the newsletter cascade when the attendee opted in.
func (s *Service) ConfirmTicket(ctx context.Context, eventID int64, id, token string, event EventMeta) (*models.Ticket, error) {
	if err := validateEventID(eventID); err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}
	if err := event.validate(); err != nil {
		return nil, err
	}
	ok, err := s.store.ConfirmTicket(ctx, eventID, id, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidToken()
	}
	ticket, err := s.store.FindTicketByEventAndID(ctx, eventID, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperr.DataConflict("ticket vanished after confirmation")
	}
	s.logger.Info("ticket confirmed", zap.Int64("event_id", eventID), zap.String("id", id))
	return ticket, s.afterTicketConfirmed(ctx, ticket, event)
}

// afterTicketConfirmed notifies attendee and admin, then cascades.
// The cascade is skipped when either notice fails.
func (s *Service) afterTicketConfirmed(ctx context.Context, t *models.Ticket, event EventMeta) error {
	err := s.sendAll(ctx,
		notice{
			to:  t.Email,
			tpl: emails.SignupSuccess,
			data: emails.SignupSuccessData{
				TicketURL:       s.links.Ticket(t.EventID, t.ID),
				EventName:       event.Name,
				EventDate:       event.Date,
				EventLocation:   event.Location,
				InviteURLICal:   event.InviteURLICal,
				InviteURLGoogle: event.InviteURLGoogle,
			},
		},
		s.adminNotice(emails.AdminSignupSuccess, emails.AttendeeData{Name: t.Name, Email: t.Email}),
	)
	if err != nil {
		return apperr.Delivery("notify", err)
	}
	if !t.Subscribe {
		return nil
	}
	_, err = s.SubscribeFromTicket(ctx, t.Email)
	return err
}

// CancelTicket deletes the ticket. The admin notice is best-effort.
func (s *Service) CancelTicket(ctx context.Context, eventID int64, id string) (*models.Ticket, error) {
	if err := validateEventID(eventID); err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}
	ticket, err := s.store.DeleteTicket(ctx, eventID, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperr.NotFound("ticket not found")
	}
	s.logger.Info("ticket cancelled", zap.Int64("event_id", eventID), zap.String("id", id))
	s.notifyBestEffort(ctx, s.adminNotice(emails.AdminSignupCancel, emails.AttendeeData{Name: ticket.Name, Email: ticket.Email}))
	return ticket, nil
}

func (s *Service) GetTicket(ctx context.Context, eventID int64, id string) (*models.Ticket, error) {
	ticket, err := s.store.FindTicketByEventAndID(ctx, eventID, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperr.NotFound("ticket not found")
	}
	return ticket, nil
}

// ListTickets lists every ticket, or one event's tickets when eventID > 0.
func (s *Service) ListTickets(ctx context.Context, eventID int64) ([]models.Ticket, error) {
	return s.store.ListTickets(ctx, identity.TicketFilter{EventID: eventID})
}
