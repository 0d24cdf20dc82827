package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "CLUB_"

// envOverrides lists the settings deployments usually inject as secrets.
type envOverrides struct {
	Port          int    `env:"PORT"`
	Env           string `env:"ENV"`
	AuthToken     string `env:"AUTH"`
	JWTSecret     string `env:"JWT_SECRET"`
	URLClient     string `env:"URL_CLIENT"`
	DatabaseDSN   string `env:"DATABASE_DSN"`
	DatabasePath  string `env:"DATABASE_PATH"`
	RedisURL      string `env:"REDIS_URL"`
	ResendKey     string `env:"RESEND_KEY"`
	SMTPPass      string `env:"SMTP_PASS"`
	MailAdmin     string `env:"MAIL_ADMIN"`
	MailEnable    *bool  `env:"MAIL_ENABLE"`
	LogLevel      string `env:"LOG_LEVEL"`
	BroadcastSize int    `env:"BROADCAST_BATCH_SIZE"`
}

func applyEnv(cfg *AppConfig) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	setString(&cfg.Env, o.Env)
	setString(&cfg.AuthToken, o.AuthToken)
	setString(&cfg.JWTSecret, o.JWTSecret)
	setString(&cfg.URLClient, o.URLClient)
	setString(&cfg.Database.DSN, o.DatabaseDSN)
	setString(&cfg.Database.Path, o.DatabasePath)
	setString(&cfg.Redis.URL, o.RedisURL)
	setString(&cfg.Mail.ResendKey, o.ResendKey)
	setString(&cfg.Mail.SMTP.Pass, o.SMTPPass)
	setString(&cfg.Mail.Admin, o.MailAdmin)
	if o.MailEnable != nil {
		cfg.Mail.Enable = *o.MailEnable
	}
	setString(&cfg.Logs.Level, o.LogLevel)
	if o.BroadcastSize != 0 {
		cfg.Broadcast.BatchSize = o.BroadcastSize
	}
	return nil
}
