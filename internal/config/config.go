package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	AppEnv string // dev/prod
	Port   string // サーバーポート（8080）

	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBLockTimeout    time.Duration // SET LOCAL lock_timeout

	JWTSecret string // JWT署名シークレット

	LogLevel string

	KafkaBrokers    []string // 空ならログ出力のみ
	KafkaTopic      string
	NotifyQueueSize int

	ConflictRetryMax  int
	ConflictRetryBase time.Duration
}

// Loadは環境変数から読む
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := atoiDefault("DB_MAX_OPEN_CONNS", 20)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := atoiDefault("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	lockMS, err := atoiDefault("DB_LOCK_TIMEOUT_MS", 5000)
	if err != nil {
		return Config{}, err
	}
	queueSize, err := atoiDefault("NOTIFY_QUEUE_SIZE", 1024)
	if err != nil {
		return Config{}, err
	}
	retryMax, err := atoiDefault("CONFLICT_RETRY_MAX", 3)
	if err != nil {
		return Config{}, err
	}
	retryBaseMS, err := atoiDefault("CONFLICT_RETRY_BASE_MS", 50)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv: getenv("APP_ENV", "prod"),
		Port:   getenv("APP_PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "stockledger"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		DBMaxOpenConns:   maxOpen,
		DBMaxIdleConns:   maxIdle,
		DBLockTimeout:    time.Duration(lockMS) * time.Millisecond,

		JWTSecret: os.Getenv("JWT_SECRET"),

		LogLevel: getenv("LOG_LEVEL", "info"),

		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      getenv("KAFKA_TOPIC", "pos.notifications"),
		NotifyQueueSize: queueSize,

		ConflictRetryMax:  retryMax,
		ConflictRetryBase: time.Duration(retryBaseMS) * time.Millisecond,
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AppEnv != "dev" && cfg.AppEnv != "prod" {
		return Config{}, fmt.Errorf("APP_ENV must be dev or prod")
	}
	if cfg.ConflictRetryMax < 1 {
		return Config{}, fmt.Errorf("CONFLICT_RETRY_MAX must be >= 1")
	}
	if cfg.NotifyQueueSize < 1 {
		return Config{}, fmt.Errorf("NOTIFY_QUEUE_SIZE must be >= 1")
	}

	return cfg, nil
}

// DATABASE_URLがなければPOSTGRES_*から組み立てる
func (c Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
