package signup

import (
	"context"
	"fmt"
	"time"

	"github.com/nn1-dev/club-api/internal/emails"
	"github.com/nn1-dev/club-api/internal/modules/community/links"
	"github.com/nn1-dev/club-api/internal/pkg/mail"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultMailTimeout = 15 * time.Second

// Service drives subscriber and ticket lifecycles and the notifications around them.
type Service struct {
	store     Store
	mailer    Mailer
	renderer  Renderer
	cfg       Config
	links     links.Builder
	onFailure FailureHook
	logger    *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("SignupService")
		}
	}
}

// WithFailureHook registers fn to receive undelivered notifications.
func WithFailureHook(fn FailureHook) ServiceOption {
	return func(s *Service) { s.onFailure = fn }
}

func NewService(store Store, mailer Mailer, renderer Renderer, cfg Config, opts ...ServiceOption) *Service {
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = defaultMailTimeout
	}
	s := &Service{
		store:    store,
		mailer:   mailer,
		renderer: renderer,
		cfg:      cfg,
		links:    links.New(cfg.URLClient),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type notice struct {
	to   string
	tpl  emails.Template
	data interface{}
}

func (s *Service) adminNotice(tpl emails.Template, data interface{}) notice {
	return notice{to: s.cfg.Admin, tpl: tpl, data: data}
}

func (s *Service) send(ctx context.Context, n notice) error {
	if n.to == "" {
		s.logger.Debug("skip notification without recipient", zap.String("template", string(n.tpl)))
		return nil
	}
	body, err := s.renderer.Render(n.tpl, n.data)
	if err != nil {
		return fmt.Errorf("render %s: %w", n.tpl, err)
	}
	msg := mail.NewMessage(s.cfg.From, []string{n.to}, n.tpl.Subject(), body)

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.MailTimeout)
	defer cancel()
	if err := s.mailer.Send(sendCtx, msg); err != nil {
		s.logger.Warn("notification failed",
			zap.String("template", string(n.tpl)),
			zap.String("to", n.to),
			zap.Error(err),
		)
		if s.onFailure != nil {
			s.onFailure(context.WithoutCancel(ctx), msg, err)
		}
		return fmt.Errorf("send %s: %w", n.tpl, err)
	}
	return nil
}

// sendAll sends every notice concurrently and waits for all of them.
// A failing send does not cancel its siblings.
func (s *Service) sendAll(ctx context.Context, notices ...notice) error {
	var g errgroup.Group
	for _, n := range notices {
		g.Go(func() error { return s.send(ctx, n) })
	}
	return g.Wait()
}

// notifyBestEffort sends n and only logs a failure.
func (s *Service) notifyBestEffort(ctx context.Context, n notice) {
	if err := s.send(ctx, n); err != nil {
		s.logger.Info("best-effort notification dropped", zap.String("template", string(n.tpl)), zap.Error(err))
	}
}
