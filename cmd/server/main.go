package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nn1-dev/club-api/internal/app"
	"github.com/nn1-dev/club-api/internal/config"
	"github.com/nn1-dev/club-api/internal/pkg/jwt"
	"github.com/nn1-dev/club-api/internal/pkg/logging"
	"github.com/nn1-dev/club-api/internal/pkg/proctitle"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	issueToken := flag.String("issue-token", "", "Print an API token for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", 0, "Lifetime of the issued token, 0 for no expiry")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := printToken(cfg.JWTSecret, *issueToken, *tokenTTL); err != nil {
			fmt.Fprintln(os.Stderr, "issue token:", err)
			os.Exit(1)
		}
		return
	}

	logger, err := logging.New(logging.Options{Dir: cfg.Logs.Dir, Level: cfg.Logs.Level, Development: cfg.IsDev()})
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("file log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := proctitle.Set(proctitle.Default); err != nil {
		logger.Debug("process title unchanged", zap.Error(err))
	}

	application, err := app.New(logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              application.Addr(),
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	application.Shutdown()
	logger.Info("server exited")
}

func printToken(secret, subject string, ttl time.Duration) error {
	signer, err := jwt.NewSigner(secret)
	if err != nil {
		return err
	}
	token, err := signer.Sign(subject, "admin", ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
