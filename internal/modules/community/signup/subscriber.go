package signup

import (
	"context"

	"github.com/nn1-dev/club-api/internal/emails"
	"github.com/nn1-dev/club-api/internal/models"
	"github.com/nn1-dev/club-api/internal/pkg/apperr"
	"go.uber.org/zap"
)

// RegisterSubscriber records a pending subscriber and mails the confirmation link.
// An email that is already known returns the stored record with created=false.
func (s *Service) RegisterSubscriber(ctx context.Context, email string) (*models.Subscriber, bool, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, false, err
	}
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}
	sub, created, err := s.store.InsertSubscriber(ctx, &models.Subscriber{Email: email, ConfirmationToken: &token})
	if err != nil {
		return nil, false, err
	}
	if sub == nil {
		return nil, false, apperr.DataConflict("subscriber vanished after conflicting insert")
	}
	if !created {
		return sub, false, nil
	}

	s.logger.Info("subscriber registered", zap.String("id", sub.ID))
	err = s.send(ctx, notice{
		to:   email,
		tpl:  emails.NewsletterConfirm,
		data: emails.LinkData{URL: s.links.SubscriberConfirm(sub.ID, token)},
	})
	if err != nil {
		return sub, true, apperr.Delivery("confirmation", err)
	}
	return sub, true, nil
}

// ConfirmSubscriber consumes the subscriber's token and notifies the admin.
// Unknown ids, wrong tokens and replays all fail with InvalidToken.
func (s *Service) ConfirmSubscriber(ctx context.Context, id, token string) (*models.Subscriber, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	ok, err := s.store.ConfirmSubscriber(ctx, id, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidToken()
	}
	sub, err := s.store.FindSubscriberByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.DataConflict("subscriber vanished after confirmation")
	}

	s.logger.Info("subscriber confirmed", zap.String("id", sub.ID))
	if err := s.send(ctx, s.adminNotice(emails.AdminNewsletterSubscribe, emails.EmailData{Email: sub.Email})); err != nil {
		return sub, apperr.Delivery("admin_notice", err)
	}
	return sub, nil
}

// UnsubscribeSubscriber deletes the subscriber. The admin notice is best-effort.
func (s *Service) UnsubscribeSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	sub, err := s.store.DeleteSubscriber(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.NotFound("subscriber not found")
	}
	s.logger.Info("subscriber removed", zap.String("id", sub.ID))
	s.notifyBestEffort(ctx, s.adminNotice(emails.AdminNewsletterUnsubscribe, emails.EmailData{Email: sub.Email}))
	return sub, nil
}

func (s *Service) GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	sub, err := s.store.FindSubscriberByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.NotFound("subscriber not found")
	}
	return sub, nil
}

func (s *Service) ListSubscribers(ctx context.Context, confirmedOnly bool) ([]models.Subscriber, error) {
	return s.store.ListSubscribers(ctx, confirmedOnly)
}
