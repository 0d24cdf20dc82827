package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/config"
	"github.com/nn1-dev/club-api/internal/database"
	"github.com/nn1-dev/club-api/internal/emails"
	"github.com/nn1-dev/club-api/internal/middleware"
	"github.com/nn1-dev/club-api/internal/modules/community/broadcast"
	"github.com/nn1-dev/club-api/internal/modules/community/identity"
	"github.com/nn1-dev/club-api/internal/modules/community/signup"
	pkgcron "github.com/nn1-dev/club-api/internal/pkg/cron"
	"github.com/nn1-dev/club-api/internal/pkg/jwt"
	"github.com/nn1-dev/club-api/internal/pkg/mail"
	"github.com/nn1-dev/club-api/internal/pkg/outbox"
	pkgredis "github.com/nn1-dev/club-api/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	rc     *pkgredis.Client
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
	outbox *outbox.Outbox
}

// New initializes the application: DB → Redis → mail → services → routes → cron.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{cfg: cfg, logger: logger, cancel: cancel}
	ok := false
	defer func() {
		if !ok {
			app.Shutdown()
		}
	}()

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	app.db = db

	if cfg.RedisEnabled() {
		rc, err := pkgredis.Connect(ctx, cfg.Redis.URLValue())
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.rc = rc
		app.outbox = outbox.New(rc, outbox.WithLogger(logger))
	} else {
		logger.Warn("redis is not configured, rate limiting and the outbox are disabled")
	}

	renderer, err := emails.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("email templates: %w", err)
	}
	campaigns, err := renderer.LoadCampaigns()
	if err != nil {
		return nil, fmt.Errorf("campaigns: %w", err)
	}
	mailer := mail.New(mailConfig(cfg), mail.WithLogger(logger))
	logger.Info("mail transport", zap.String("transport", mailer.Transport()))

	authn, err := newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	store := identity.NewStore(db, identity.WithTimeout(cfg.Timeouts.Store))
	signupSvc := signup.NewService(store, mailer, renderer, signup.Config{
		URLClient:   cfg.URLClient,
		From:        cfg.Mail.From,
		Admin:       cfg.Mail.Admin,
		MailTimeout: cfg.Timeouts.Mail,
	}, signup.WithLogger(logger), signup.WithFailureHook(parkFailed(app.outbox, logger)))
	broadcastSvc := broadcast.NewService(store, mailer,
		broadcast.NewsletterRegistry(campaigns[emails.KindNewsletter]),
		broadcast.EventRegistry(campaigns[emails.KindEvent]),
		broadcast.Config{
			URLClient:   cfg.URLClient,
			From:        cfg.Mail.BroadcastFrom,
			BatchSize:   cfg.Broadcast.BatchSize,
			MailTimeout: cfg.Timeouts.Mail,
		}, broadcast.WithLogger(logger))

	app.sched = pkgcron.New(pkgcron.WithLogger(logger))
	registerCronJobs(app.sched, store, app.outbox, mailer, logger)
	app.sched.Start(ctx)

	app.router = newRouter(cfg, logger)
	app.registerRoutes(ctx, authn, signup.NewHandler(signupSvc), broadcast.NewHandler(broadcastSvc))

	ok = true
	return app, nil
}

func newRouter(cfg *config.AppConfig, logger *zap.Logger) *gin.Engine {
	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(newCORS(cfg))
	return router
}

func newAuthenticator(cfg *config.AppConfig) (*middleware.Authenticator, error) {
	var signer *jwt.Signer
	if cfg.JWTSecret != "" {
		s, err := jwt.NewSigner(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("jwt: %w", err)
		}
		signer = s
	}
	return middleware.NewAuthenticator(cfg.AuthToken, signer), nil
}

func mailConfig(cfg *config.AppConfig) mail.Config {
	return mail.Config{
		Enable:    cfg.Mail.Enable,
		Host:      cfg.Mail.SMTP.Host,
		Port:      cfg.Mail.SMTP.Port,
		User:      cfg.Mail.SMTP.User,
		Pass:      cfg.Mail.SMTP.Pass,
		From:      cfg.Mail.From,
		ReplyTo:   cfg.Mail.ReplyTo,
		ResendKey: cfg.Mail.ResendKey,
		Timeout:   cfg.Timeouts.Mail,
	}
}

// parkFailed hands undelivered notifications to the outbox, or only logs them without one.
func parkFailed(ob *outbox.Outbox, logger *zap.Logger) signup.FailureHook {
	return func(ctx context.Context, msg mail.Message, cause error) {
		if ob == nil {
			logger.Warn("notification lost, no outbox configured",
				zap.String("subject", msg.Subject), zap.Strings("to", msg.To), zap.Error(cause))
			return
		}
		if _, err := ob.Park(ctx, msg, cause); err != nil {
			logger.Error("park notification", zap.String("subject", msg.Subject), zap.Error(err))
		}
	}
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops the scheduler and closes connections.
func (a *App) Shutdown() {
	a.cancel()
	if a.sched != nil {
		a.sched.Wait()
	}
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
