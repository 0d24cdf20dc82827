package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime configuration loaded from YAML and the environment.
type AppConfig struct {
	Port           int
	Env            string
	AuthToken      string
	JWTSecret      string
	URLClient      string
	AllowedOrigins []string
	Database       DatabaseConfig
	Redis          RedisConfig
	Mail           MailConfig
	Broadcast      BroadcastConfig
	Timeouts       TimeoutConfig
	Logs           LogConfig
}

type DatabaseConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Charset  string
	Loc      string
	Path     string
	Params   map[string]string
}

type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type MailConfig struct {
	Enable        bool
	From          string
	BroadcastFrom string
	ReplyTo       string
	Admin         string
	ResendKey     string
	SMTP          SMTPConfig
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
}

type BroadcastConfig struct {
	BatchSize int
}

type TimeoutConfig struct {
	Store time.Duration
	Mail  time.Duration
}

type LogConfig struct {
	Dir   string
	Level string
}

type rawAppConfig struct {
	Port           int               `yaml:"port"`
	Env            string            `yaml:"env"`
	AuthToken      string            `yaml:"auth_token"`
	JWTSecret      string            `yaml:"jwt_secret"`
	URLClient      string            `yaml:"url_client"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	Database       rawDatabaseConfig `yaml:"database"`
	Redis          rawRedisConfig    `yaml:"redis"`
	Mail           rawMailConfig     `yaml:"mail"`
	Broadcast      struct {
		BatchSize int `yaml:"batch_size"`
	} `yaml:"broadcast"`
	Timeouts struct {
		Store string `yaml:"store"`
		Mail  string `yaml:"mail"`
	} `yaml:"timeouts"`
	Logs struct {
		Dir   string `yaml:"dir"`
		Level string `yaml:"level"`
	} `yaml:"logs"`
}

type rawDatabaseConfig struct {
	Driver   string            `yaml:"driver"`
	DSN      string            `yaml:"dsn"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Name     string            `yaml:"name"`
	Charset  string            `yaml:"charset"`
	Loc      string            `yaml:"loc"`
	Path     string            `yaml:"path"`
	Params   map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
}

type rawMailConfig struct {
	Enable        *bool  `yaml:"enable"`
	From          string `yaml:"from"`
	BroadcastFrom string `yaml:"broadcast_from"`
	ReplyTo       string `yaml:"reply_to"`
	Admin         string `yaml:"admin"`
	ResendKey     string `yaml:"resend_key"`
	SMTP          struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		User string `yaml:"user"`
		Pass string `yaml:"pass"`
	} `yaml:"smtp"`
}

// Load reads the YAML file at configPath, applies environment overrides and validates the result.
// A missing file is not an error when the environment supplies everything.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	raw := rawAppConfig{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultConfigPath:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:      defaultPort,
		Env:       defaultEnv,
		URLClient: defaultURLClient,
		Database: DatabaseConfig{
			Driver:  defaultDBDriver,
			Host:    defaultDBHost,
			Port:    defaultDBPort,
			User:    defaultDBUser,
			Name:    defaultDBName,
			Charset: defaultDBCharset,
			Loc:     defaultDBLoc,
			Path:    defaultSQLitePath,
		},
		Mail: MailConfig{
			From:          defaultMailFrom,
			BroadcastFrom: defaultBroadcastFrom,
			Admin:         defaultMailAdmin,
			SMTP:          SMTPConfig{Port: defaultSMTPPort},
		},
		Broadcast: BroadcastConfig{BatchSize: MaxBatchSize},
		Timeouts: TimeoutConfig{
			Store: defaultStoreTimeout,
			Mail:  defaultMailTimeout,
		},
		Logs: LogConfig{Dir: defaultLogDir, Level: defaultLogLevel},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	setString(&cfg.Env, raw.Env)
	setString(&cfg.AuthToken, raw.AuthToken)
	setString(&cfg.JWTSecret, raw.JWTSecret)
	setString(&cfg.URLClient, raw.URLClient)
	if raw.AllowedOrigins != nil {
		cfg.AllowedOrigins = raw.AllowedOrigins
	}

	db := &cfg.Database
	setString(&db.Driver, raw.Database.Driver)
	setString(&db.DSN, raw.Database.DSN)
	setString(&db.Host, raw.Database.Host)
	if raw.Database.Port != 0 {
		db.Port = raw.Database.Port
	}
	setString(&db.User, raw.Database.User)
	setString(&db.Password, raw.Database.Password)
	setString(&db.Name, raw.Database.Name)
	setString(&db.Charset, raw.Database.Charset)
	setString(&db.Loc, raw.Database.Loc)
	setString(&db.Path, raw.Database.Path)
	if raw.Database.Params != nil {
		db.Params = copyStringMap(raw.Database.Params)
	}

	rc := &cfg.Redis
	setString(&rc.URL, raw.Redis.URL)
	setString(&rc.Host, raw.Redis.Host)
	if raw.Redis.Port != 0 {
		rc.Port = raw.Redis.Port
	}
	setString(&rc.Password, raw.Redis.Password)
	if raw.Redis.DB != nil {
		rc.DB = *raw.Redis.DB
	}

	m := &cfg.Mail
	if raw.Mail.Enable != nil {
		m.Enable = *raw.Mail.Enable
	}
	setString(&m.From, raw.Mail.From)
	setString(&m.BroadcastFrom, raw.Mail.BroadcastFrom)
	setString(&m.ReplyTo, raw.Mail.ReplyTo)
	setString(&m.Admin, raw.Mail.Admin)
	setString(&m.ResendKey, raw.Mail.ResendKey)
	setString(&m.SMTP.Host, raw.Mail.SMTP.Host)
	if raw.Mail.SMTP.Port != 0 {
		m.SMTP.Port = raw.Mail.SMTP.Port
	}
	setString(&m.SMTP.User, raw.Mail.SMTP.User)
	setString(&m.SMTP.Pass, raw.Mail.SMTP.Pass)

	if raw.Broadcast.BatchSize != 0 {
		cfg.Broadcast.BatchSize = raw.Broadcast.BatchSize
	}

	if err := setDuration(&cfg.Timeouts.Store, raw.Timeouts.Store, "timeouts.store"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Timeouts.Mail, raw.Timeouts.Mail, "timeouts.mail"); err != nil {
		return err
	}

	setString(&cfg.Logs.Dir, raw.Logs.Dir)
	setString(&cfg.Logs.Level, raw.Logs.Level)
	return nil
}

// Validate checks ranges and required values after normalization.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q, expected mysql or sqlite", c.Database.Driver)
	}
	if c.Broadcast.BatchSize < 1 || c.Broadcast.BatchSize > MaxBatchSize {
		return fmt.Errorf("invalid broadcast.batch_size %d, expected 1-%d", c.Broadcast.BatchSize, MaxBatchSize)
	}
	if c.Timeouts.Store <= 0 || c.Timeouts.Mail <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.AuthToken == "" && c.JWTSecret == "" {
		return fmt.Errorf("auth_token or jwt_secret is required")
	}
	if c.Mail.Enable && c.Mail.ResendKey == "" && c.Mail.SMTP.Host == "" {
		return fmt.Errorf("mail is enabled but neither mail.resend_key nor mail.smtp.host is set")
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env == "development" }

// RedisEnabled reports whether a Redis endpoint is configured.
func (c *AppConfig) RedisEnabled() bool { return c.Redis.URL != "" || c.Redis.Host != "" }

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, v, err)
	}
	*dst = d
	return nil
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
