// 文件: pkg/pipeline/setup.go
// 按配置组装流水线
//
// 【可选组件】
// - Redis:    配置了地址且 PING 成功才启用 (评分缓存 + Redis 预警流)，否则用内存预警流
// - 事件:     transport = kafka | nats
// - 导出文件: export.path 非空

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"strategyscope.com/pkg/alert"
	"strategyscope.com/pkg/config"
	"strategyscope.com/pkg/kafka"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/nats"
	"strategyscope.com/pkg/store"
)

// Options 组装选项，命令行可以关闭部分 Sink
type Options struct {
	SkipStore  bool
	SkipEvents bool
	ExportPath string // 覆盖配置
}

// Components 组装结果
type Components struct {
	Runner *Runner
	Repo   store.Repository // SkipStore 时为 nil
	Feed   alert.Feed

	closers []func() error
}

// Close 按创建的逆序关闭
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Setup 按配置创建流水线，失败时已创建的组件会被关闭
func Setup(ctx context.Context, cfg config.Config, opts Options, log zerolog.Logger) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	ids, err := NewIDGenerator(cfg.Snowflake.NodeID)
	if err != nil {
		return nil, err
	}

	rds := connectRedis(ctx, cfg.Redis, log)
	if rds != nil {
		c.closers = append(c.closers, rds.Close)
	}

	var sinks []Sink

	if !opts.SkipStore {
		db, err := store.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})

		var repo store.Repository = store.NewGormRepository(db)
		if rds != nil {
			repo = store.NewCachedRepository(repo, rds, cfg.Redis.ScoreCacheTTL)
		}
		c.Repo = repo
		sinks = append(sinks, NewStoreSink(repo))
	}

	if rds != nil {
		c.Feed = alert.NewRedisFeed(rds, cfg.Redis.AlertFeedSize)
	} else {
		c.Feed = alert.NewMemoryFeed(cfg.Redis.AlertFeedSize)
	}
	sinks = append(sinks, NewFeedSink(c.Feed))

	if !opts.SkipEvents {
		pub, topics, err := c.openPublisher(cfg, log)
		if err != nil {
			return nil, err
		}
		if pub != nil {
			sinks = append(sinks, NewEventSink(pub, topics))
		}
	}

	exportPath := cfg.Export.Path
	if opts.ExportPath != "" {
		exportPath = opts.ExportPath
	}
	if exportPath != "" {
		sinks = append(sinks, NewExportSink(exportPath))
	}

	calc := metrics.NewCalculator(cfg.Metrics.RiskFreeRate)
	c.Runner = NewRunner(calc, ids, log, sinks...)
	return c, nil
}

func (c *Components) openPublisher(cfg config.Config, log zerolog.Logger) (Publisher, Topics, error) {
	switch cfg.Transport {
	case config.TransportKafka:
		p, err := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			return nil, Topics{}, err
		}
		c.closers = append(c.closers, p.Close)
		return KafkaPublisher(p), Topics{Scores: cfg.Kafka.ScoresTopic, Alerts: cfg.Kafka.AlertsTopic}, nil

	case config.TransportNATS:
		p, err := nats.NewPublisher(cfg.NATS.URL)
		if err != nil {
			return nil, Topics{}, err
		}
		c.closers = append(c.closers, p.Close)
		return NATSPublisher(p), Topics{Scores: cfg.NATS.ScoresSubject, Alerts: cfg.NATS.AlertsSubject}, nil

	case config.TransportNone, "":
		return nil, Topics{}, nil
	}
	return nil, Topics{}, fmt.Errorf("%w: unknown transport %q", config.ErrInvalidConfig, cfg.Transport)
}

// connectRedis 未配置或连不上时返回 nil
func connectRedis(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, using in-memory alert feed")
		_ = client.Close()
		return nil
	}
	return client
}
