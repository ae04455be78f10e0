// 文件: pkg/config/config.go
// 分析服务配置
//
// 【加载顺序】(后者覆盖前者)
// 1. Default() 默认值
// 2. YAML 文件
// 3. .env 文件 / 环境变量 ANALYTICS_*

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"strategyscope.com/pkg/logger"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/store"
)

var ErrInvalidConfig = errors.New("invalid config")

// 传输方式
const (
	TransportNone  = "none"
	TransportKafka = "kafka"
	TransportNATS  = "nats"
)

const maxNodeID = 1023 // snowflake 10 bit 节点号

// Config 顶层配置
type Config struct {
	Log       logger.Config   `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  store.Config    `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	NATS      NATSConfig      `yaml:"nats"`
	Transport string          `yaml:"transport"` // none | kafka | nats
	Export    ExportConfig    `yaml:"export"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// MetricsConfig 指标计算参数
type MetricsConfig struct {
	RiskFreeRate float64 `yaml:"risk_free_rate"`
}

// RedisConfig Redis 配置，Addr 为空表示不启用
type RedisConfig struct {
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	ScoreCacheTTL time.Duration `yaml:"score_cache_ttl"`
	AlertFeedSize int           `yaml:"alert_feed_size"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	GroupID     string   `yaml:"group_id"`
	BatchTopic  string   `yaml:"batch_topic"`  // 结算数据就绪通知
	ScoresTopic string   `yaml:"scores_topic"` // 评分完成事件
	AlertsTopic string   `yaml:"alerts_topic"` // 行为预警事件
}

// NATSConfig NATS 配置
type NATSConfig struct {
	URL           string `yaml:"url"`
	Queue         string `yaml:"queue"`
	BatchSubject  string `yaml:"batch_subject"`
	ScoresSubject string `yaml:"scores_subject"`
	AlertsSubject string `yaml:"alerts_subject"`
}

// ExportConfig 导出配置，Path 为空表示不导出
type ExportConfig struct {
	Path string `yaml:"path"`
}

// SnowflakeConfig 雪花算法节点
type SnowflakeConfig struct {
	NodeID int64 `yaml:"node_id"`
}

// HTTPConfig /metrics 监听地址，为空表示不启动
type HTTPConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default 默认配置: 本地 SQLite，不连 Redis，不发事件
func Default() Config {
	return Config{
		Log:     logger.Config{Level: "info"},
		Metrics: MetricsConfig{RiskFreeRate: metrics.DefaultRiskFreeRate},
		Database: store.Config{
			Driver:       "sqlite",
			DSN:          "analytics.db",
			MaxOpenConns: 1,
			LogLevel:     "silent",
		},
		Redis: RedisConfig{
			ScoreCacheTTL: store.DefaultScoreCacheTTL,
			AlertFeedSize: 200,
		},
		Kafka: KafkaConfig{
			Brokers:     []string{"localhost:9092"},
			GroupID:     "strategy-analytics",
			BatchTopic:  "analytics.batch.ready",
			ScoresTopic: "analytics.scores",
			AlertsTopic: "analytics.alerts",
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Queue:         "strategy-analytics",
			BatchSubject:  "analytics.batch.ready",
			ScoresSubject: "analytics.scores",
			AlertsSubject: "analytics.alerts",
		},
		Transport: TransportNone,
		HTTP:      HTTPConfig{MetricsAddr: ":9108"},
	}
}

// Load 读取配置
//
// path 为空时只用默认值和环境变量；.env 不存在不算错误
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Metrics.RiskFreeRate < 0 {
		return fmt.Errorf("%w: negative risk_free_rate %v", ErrInvalidConfig, c.Metrics.RiskFreeRate)
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: empty database dsn", ErrInvalidConfig)
	}
	switch c.Transport {
	case TransportNone:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: kafka transport without brokers", ErrInvalidConfig)
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("%w: nats transport without url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}
	if c.Snowflake.NodeID < 0 || c.Snowflake.NodeID > maxNodeID {
		return fmt.Errorf("%w: snowflake node_id %d out of [0, %d]", ErrInvalidConfig, c.Snowflake.NodeID, maxNodeID)
	}
	if c.Redis.AlertFeedSize < 0 {
		return fmt.Errorf("%w: negative alert_feed_size", ErrInvalidConfig)
	}
	return nil
}

// =============================================================================
// 环境变量覆盖
// =============================================================================

func (c *Config) applyEnv() error {
	setString(&c.Log.Level, "ANALYTICS_LOG_LEVEL")
	setString(&c.Database.Driver, "ANALYTICS_DB_DRIVER")
	setString(&c.Database.DSN, "ANALYTICS_DB_DSN")
	setString(&c.Redis.Addr, "ANALYTICS_REDIS_ADDR")
	setString(&c.Redis.Password, "ANALYTICS_REDIS_PASSWORD")
	setString(&c.NATS.URL, "ANALYTICS_NATS_URL")
	setString(&c.Transport, "ANALYTICS_TRANSPORT")
	setString(&c.Export.Path, "ANALYTICS_EXPORT_PATH")
	setString(&c.HTTP.MetricsAddr, "ANALYTICS_METRICS_ADDR")

	if v := os.Getenv("ANALYTICS_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("ANALYTICS_LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: ANALYTICS_LOG_PRETTY=%q", ErrInvalidConfig, v)
		}
		c.Log.Pretty = b
	}
	if v := os.Getenv("ANALYTICS_RISK_FREE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: ANALYTICS_RISK_FREE_RATE=%q", ErrInvalidConfig, v)
		}
		c.Metrics.RiskFreeRate = f
	}
	if v := os.Getenv("ANALYTICS_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: ANALYTICS_REDIS_DB=%q", ErrInvalidConfig, v)
		}
		c.Redis.DB = n
	}
	if v := os.Getenv("ANALYTICS_NODE_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: ANALYTICS_NODE_ID=%q", ErrInvalidConfig, v)
		}
		c.Snowflake.NodeID = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
