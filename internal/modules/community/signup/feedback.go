package signup

import (
	"context"
	"strings"

	"github.com/nn1-dev/club-api/internal/emails"
	"github.com/nn1-dev/club-api/internal/pkg/apperr"
)

const maxFeedbackLen = 10000

// SendFeedback forwards attendee feedback to the admin inbox.
func (s *Service) SendFeedback(ctx context.Context, name, feedback string) error {
	name = strings.TrimSpace(name)
	feedback = strings.TrimSpace(feedback)
	if name == "" || feedback == "" {
		return apperr.Validation("name and feedback are required")
	}
	if len(feedback) > maxFeedbackLen {
		return apperr.Validation("feedback is too long")
	}
	if err := s.send(ctx, s.adminNotice(emails.AdminFeedback, emails.FeedbackData{Name: name, Feedback: feedback})); err != nil {
		return apperr.Delivery("feedback", err)
	}
	return nil
}
