package signup

import (
	"context"

	"github.com/nn1-dev/club-api/internal/emails"
	"github.com/nn1-dev/club-api/internal/models"
	"github.com/nn1-dev/club-api/internal/pkg/apperr"
	"go.uber.org/zap"
)

// SubscribeFromTicket makes email a confirmed newsletter subscriber.
//
// A confirmed attendee is already verified, so a missing subscriber is created
// confirmed and a pending one is promoted. Either change notifies the admin; a
// failure there is returned as a Delivery error with stage "cascade" and the
// subscriber change stays committed.
func (s *Service) SubscribeFromTicket(ctx context.Context, email string) (CascadeOutcome, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return CascadeNoop, err
	}
	outcome, err := s.ensureConfirmedSubscriber(ctx, email)
	if err != nil || outcome == CascadeNoop {
		return outcome, err
	}
	s.logger.Info("subscriber added from ticket", zap.String("outcome", string(outcome)))
	if err := s.send(ctx, s.adminNotice(emails.AdminNewsletterSubscribe, emails.EmailData{Email: email})); err != nil {
		return outcome, apperr.Delivery("cascade", err)
	}
	return outcome, nil
}

func (s *Service) ensureConfirmedSubscriber(ctx context.Context, email string) (CascadeOutcome, error) {
	sub, err := s.store.FindSubscriberByEmail(ctx, email)
	if err != nil {
		return CascadeNoop, err
	}
	if sub == nil {
		stored, created, err := s.store.InsertSubscriber(ctx, &models.Subscriber{Email: email, Confirmed: true})
		if err != nil {
			return CascadeNoop, err
		}
		if stored == nil {
			return CascadeNoop, apperr.DataConflict("subscriber vanished after conflicting insert")
		}
		if created {
			return CascadeCreated, nil
		}
		sub = stored
	}
	if sub.Confirmed {
		return CascadeNoop, nil
	}
	promoted, err := s.store.PromoteSubscriber(ctx, sub.ID)
	if err != nil {
		return CascadeNoop, err
	}
	if !promoted {
		return CascadeNoop, nil
	}
	return CascadePromoted, nil
}
