package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nn1-dev/club-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultTimeout = 5 * time.Second

// Store reads and writes subscribers and tickets. Finders return (nil, nil) when no row matches.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTimeout bounds every statement issued by the store.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, timeout: defaultTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

// TicketFilter narrows ListTickets. Zero EventID means every event.
type TicketFilter struct {
	EventID       int64
	ConfirmedOnly bool
}

const stableOrder = "created_at ASC, id ASC"

func (s *Store) FindSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return first[models.Subscriber](db.Where("email = ?", email), "find subscriber by email")
}

func (s *Store) FindSubscriberByID(ctx context.Context, id string) (*models.Subscriber, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return first[models.Subscriber](db.Where("id = ?", id), "find subscriber")
}

// InsertSubscriber inserts sub unless its email already exists. It returns the
// canonical row and whether this call created it.
func (s *Store) InsertSubscriber(ctx context.Context, sub *models.Subscriber) (*models.Subscriber, bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(sub)
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return nil, false, fmt.Errorf("insert subscriber: %w", res.Error)
	}
	if res.Error == nil && res.RowsAffected == 1 {
		return sub, true, nil
	}
	existing, err := first[models.Subscriber](db.Where("email = ?", sub.Email), "reload subscriber")
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ConfirmSubscriber confirms the pending subscriber id when token matches its live token.
func (s *Store) ConfirmSubscriber(ctx context.Context, id, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	res := db.Model(&models.Subscriber{}).
		Where("id = ? AND confirmation_token = ? AND confirmed = ?", id, token, false).
		Updates(confirmedColumns())
	if res.Error != nil {
		return false, fmt.Errorf("confirm subscriber: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PromoteSubscriber confirms a pending subscriber without a token check.
func (s *Store) PromoteSubscriber(ctx context.Context, id string) (bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	res := db.Model(&models.Subscriber{}).
		Where("id = ? AND confirmed = ?", id, false).
		Updates(confirmedColumns())
	if res.Error != nil {
		return false, fmt.Errorf("promote subscriber: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteSubscriber removes the subscriber and returns the deleted row.
func (s *Store) DeleteSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var deleted *models.Subscriber
	err := db.Transaction(func(tx *gorm.DB) error {
		sub, err := first[models.Subscriber](tx.Where("id = ?", id), "find subscriber")
		if err != nil || sub == nil {
			return err
		}
		res := tx.Delete(&models.Subscriber{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete subscriber: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			deleted = sub
		}
		return nil
	})
	return deleted, err
}

func (s *Store) ListSubscribers(ctx context.Context, confirmedOnly bool) ([]models.Subscriber, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	q := db.Model(&models.Subscriber{})
	if confirmedOnly {
		q = q.Where("confirmed = ?", true)
	}
	var subs []models.Subscriber
	if err := q.Order(stableOrder).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return subs, nil
}

// DeleteExpiredSubscribers removes unconfirmed subscribers created before cutoff.
func (s *Store) DeleteExpiredSubscribers(ctx context.Context, cutoff time.Time) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	res := db.Where("confirmed = ? AND created_at < ?", false, cutoff).Delete(&models.Subscriber{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired subscribers: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) FindTicketByEventAndEmail(ctx context.Context, eventID int64, email string) (*models.Ticket, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return first[models.Ticket](db.Where("event_id = ? AND email = ?", eventID, email), "find ticket by email")
}

func (s *Store) FindTicketByEventAndID(ctx context.Context, eventID int64, id string) (*models.Ticket, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return first[models.Ticket](db.Where("event_id = ? AND id = ?", eventID, id), "find ticket")
}

// FindAnyConfirmedTicketByEmail returns any confirmed ticket held by email, for any event.
func (s *Store) FindAnyConfirmedTicketByEmail(ctx context.Context, email string) (*models.Ticket, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return first[models.Ticket](db.Where("email = ? AND confirmed = ?", email, true), "find confirmed ticket")
}

// InsertTicket inserts t unless (event, email) already holds a ticket. It returns
// the canonical row and whether this call created it.
func (s *Store) InsertTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(t)
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return nil, false, fmt.Errorf("insert ticket: %w", res.Error)
	}
	if res.Error == nil && res.RowsAffected == 1 {
		return t, true, nil
	}
	existing, err := first[models.Ticket](db.Where("event_id = ? AND email = ?", t.EventID, t.Email), "reload ticket")
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ConfirmTicket confirms the pending ticket when token matches its live token.
func (s *Store) ConfirmTicket(ctx context.Context, eventID int64, id, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	db, cancel := s.conn(ctx)
	defer cancel()
	res := db.Model(&models.Ticket{}).
		Where("event_id = ? AND id = ? AND confirmation_token = ? AND confirmed = ?", eventID, id, token, false).
		Updates(confirmedColumns())
	if res.Error != nil {
		return false, fmt.Errorf("confirm ticket: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteTicket removes the ticket and returns the deleted row.
func (s *Store) DeleteTicket(ctx context.Context, eventID int64, id string) (*models.Ticket, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var deleted *models.Ticket
	err := db.Transaction(func(tx *gorm.DB) error {
		t, err := first[models.Ticket](tx.Where("event_id = ? AND id = ?", eventID, id), "find ticket")
		if err != nil || t == nil {
			return err
		}
		res := tx.Delete(&models.Ticket{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete ticket: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			deleted = t
		}
		return nil
	})
	return deleted, err
}

func (s *Store) ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	q := db.Model(&models.Ticket{})
	if f.EventID != 0 {
		q = q.Where("event_id = ?", f.EventID)
	}
	if f.ConfirmedOnly {
		q = q.Where("confirmed = ?", true)
	}
	var tickets []models.Ticket
	if err := q.Order(stableOrder).Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// ConfirmedTicketEmails returns the distinct emails holding a confirmed ticket for eventID.
func (s *Store) ConfirmedTicketEmails(ctx context.Context, eventID int64) ([]string, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	var emails []string
	err := db.Model(&models.Ticket{}).
		Where("event_id = ? AND confirmed = ?", eventID, true).
		Distinct().
		Pluck("email", &emails).Error
	if err != nil {
		return nil, fmt.Errorf("list ticket emails: %w", err)
	}
	return emails, nil
}

func confirmedColumns() map[string]interface{} {
	return map[string]interface{}{
		"confirmed":          true,
		"confirmation_token": nil,
	}
}

func first[T any](q *gorm.DB, op string) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &row, nil
}
