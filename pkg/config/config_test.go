package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 0.03, cfg.Metrics.RiskFreeRate)
	require.Equal(t, TransportNone, cfg.Transport)
	require.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative risk free rate", func(c *Config) { c.Metrics.RiskFreeRate = -0.01 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"unknown transport", func(c *Config) { c.Transport = "amqp" }},
		{"kafka without brokers", func(c *Config) { c.Transport = TransportKafka; c.Kafka.Brokers = nil }},
		{"nats without url", func(c *Config) { c.Transport = TransportNATS; c.NATS.URL = "" }},
		{"node id too large", func(c *Config) { c.Snowflake.NodeID = 1024 }},
		{"negative feed size", func(c *Config) { c.Redis.AlertFeedSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.yaml")
	yml := `
log:
  level: debug
metrics:
  risk_free_rate: 0.02
database:
  driver: mysql
  dsn: "user:pass@tcp(127.0.0.1:3306)/analytics?parseTime=true"
redis:
  addr: 127.0.0.1:6379
  score_cache_ttl: 5m
transport: kafka
kafka:
  brokers: [k1:9092]
export:
  path: out/dashboard.json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("ANALYTICS_KAFKA_BROKERS", "k2:9092, k3:9092")
	t.Setenv("ANALYTICS_NODE_ID", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 0.02, cfg.Metrics.RiskFreeRate)
	require.Equal(t, "mysql", cfg.Database.Driver)
	require.Equal(t, 5*time.Minute, cfg.Redis.ScoreCacheTTL)
	require.Equal(t, 200, cfg.Redis.AlertFeedSize)
	require.Equal(t, []string{"k2:9092", "k3:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "analytics.scores", cfg.Kafka.ScoresTopic)
	require.Equal(t, int64(7), cfg.Snowflake.NodeID)
	require.Equal(t, "out/dashboard.json", cfg.Export.Path)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("ANALYTICS_RISK_FREE_RATE", "abc")
	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
