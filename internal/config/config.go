package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"     envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"     envDefault:"no-reply@groph-bank.local"`
}

type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	DatabaseDSN     string        `env:"DATABASE_URI"`
	MigrationsDir   string        `env:"MIGRATIONS_DIR"`
	JWTSecret       string        `env:"JWT_SECRET"`
	LogLevel        string        `env:"LOG_LEVEL"`
	LockWaitTimeout time.Duration `env:"LOCK_WAIT_TIMEOUT"`
	StatementsDir   string        `env:"STATEMENTS_DIR"`

	TokenTTL           time.Duration `env:"TOKEN_TTL"            envDefault:"24h"`
	StatementTimeout   time.Duration `env:"STATEMENT_TIMEOUT"    envDefault:"10s"`
	BcryptCost         int           `env:"BCRYPT_COST"`
	TempPasswordLength int           `env:"TEMP_PASSWORD_LENGTH" envDefault:"10"`
	NotifyWorkers      uint          `env:"NOTIFY_WORKERS"       envDefault:"4"`
	NotifyQueueSize    uint          `env:"NOTIFY_QUEUE_SIZE"    envDefault:"64"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
}

// LoadConfig собирает конфигурацию из флагов args и переменных окружения. Переменная окружения, если задана,
// имеет приоритет над флагом. Перед разбором окружения подгружается необязательный файл .env.
func LoadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %s", err.Error())
	}

	var envConfig Config
	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	flagsConfig, flagsErr := loadFlags(args)
	if flagsErr != nil {
		return nil, flagsErr
	}

	conf := mergeConfig(&envConfig, flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTSecret == "" {
		return nil, errors.New("jwt secret is not set")
	}
	if conf.LockWaitTimeout <= 0 {
		return nil, errors.New("lock wait timeout must be positive")
	}
	if conf.StatementTimeout < 0 {
		return nil, errors.New("statement timeout must not be negative")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(args []string) (*Config, error) {
	var flagConfig Config
	fs := flag.NewFlagSet("bank", flag.ContinueOnError)

	fs.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	fs.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	fs.StringVar(&flagConfig.JWTSecret, "j", "", "Secret key for signing user tokens")
	fs.StringVar(&flagConfig.LogLevel, "log-level", "info", "Log level")
	fs.DurationVar(&flagConfig.LockWaitTimeout, "l", 3*time.Second, "Max wait for a row lock before reporting busy") //nolint:mnd
	fs.StringVar(&flagConfig.StatementsDir, "s", os.TempDir(), "Directory for generated account statements")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return &flagConfig, nil
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	conf := *envConfig
	conf.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	conf.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	conf.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	conf.JWTSecret = defaultIfBlank(envConfig.JWTSecret, flagsConfig.JWTSecret)
	conf.LogLevel = defaultIfBlank(envConfig.LogLevel, flagsConfig.LogLevel)
	conf.LockWaitTimeout = defaultIfBlank(envConfig.LockWaitTimeout, flagsConfig.LockWaitTimeout)
	conf.StatementsDir = defaultIfBlank(envConfig.StatementsDir, flagsConfig.StatementsDir)
	return &conf
}

func defaultIfBlank[T comparable](value T, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
