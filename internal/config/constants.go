package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8787
	defaultEnv        = "development"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	defaultDBDriver   = DriverMySQL
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBName     = "nn1_club"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultSQLitePath = "club.db"

	defaultRedisPort = 6379

	defaultURLClient     = "https://nn1.dev"
	defaultMailFrom      = "NN1 Dev Club <club@mail.nn1.dev>"
	defaultBroadcastFrom = "NN1 Dev Club <club@nn1.dev>"
	defaultMailAdmin     = "club@nn1.dev"
	defaultSMTPPort      = 587

	// MaxBatchSize is the provider ceiling for one batch send.
	MaxBatchSize = 100

	defaultStoreTimeout = 5 * time.Second
	defaultMailTimeout  = 15 * time.Second

	defaultLogDir   = "logs"
	defaultLogLevel = "info"
)
