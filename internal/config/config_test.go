package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("APP_ENV", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 5*time.Second, cfg.DBLockTimeout)
	assert.Equal(t, 3, cfg.ConflictRetryMax)
	assert.Equal(t, 50*time.Millisecond, cfg.ConflictRetryBase)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=stockledger sslmode=disable", cfg.DatabaseDSN())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("CONFLICT_RETRY_MAX", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DatabaseDSN())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.ConflictRetryMax)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"bad env", map[string]string{"APP_ENV": "staging"}, "APP_ENV must be dev or prod"},
		{"not a number", map[string]string{"POSTGRES_PORT": "abc"}, "POSTGRES_PORT must be number"},
		{"retry max", map[string]string{"CONFLICT_RETRY_MAX": "0"}, "CONFLICT_RETRY_MAX must be >= 1"},
		{"queue size", map[string]string{"NOTIFY_QUEUE_SIZE": "0"}, "NOTIFY_QUEUE_SIZE must be >= 1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s")
			t.Setenv("APP_ENV", "dev")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}
