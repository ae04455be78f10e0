// 文件: cmd/analyticsd/main.go
// 分析服务
//
// 订阅结算数据就绪通知 (Kafka 或 NATS)，每条通知跑一次流水线，
// 同时在 http.metrics_addr 暴露 /metrics

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

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"strategyscope.com/pkg/config"
	"strategyscope.com/pkg/kafka"
	"strategyscope.com/pkg/logger"
	"strategyscope.com/pkg/nats"
	"strategyscope.com/pkg/pipeline"
)

func main() {
	configPath := flag.String("config", "", "YAML 配置文件")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("analyticsd stopped")
		os.Exit(1)
	}
	log.Info().Msg("analyticsd stopped")
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.Transport == config.TransportNone {
		return fmt.Errorf("%w: analyticsd needs transport kafka or nats", config.ErrInvalidConfig)
	}

	c, err := pipeline.Setup(ctx, cfg, pipeline.Options{}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close components")
		}
	}()

	var srv *http.Server
	if cfg.HTTP.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.HTTP.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", cfg.HTTP.MetricsAddr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	// 通知在订阅回调里同步处理，处理完才确认
	stopSub, err := subscribe(ctx, cfg, log, c.Runner.BatchHandler(ctx))
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// 等待进行中的批次写完
	stopSub()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

// subscribe 订阅就绪通知，返回停止订阅的函数
//
// 回调返回后才确认消息；Kafka 多个分区会并发回调，由 handle 负责串行
func subscribe(ctx context.Context, cfg config.Config, log zerolog.Logger, handle func(data []byte) error) (func(), error) {
	switch cfg.Transport {
	case config.TransportKafka:
		consumerCfg := kafka.DefaultConsumerConfig(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BatchTopic)
		consumer, err := kafka.NewConsumer(consumerCfg, func(_ context.Context, msg *sarama.ConsumerMessage) error {
			return handle(msg.Value)
		}, log)
		if err != nil {
			return nil, err
		}
		consumer.Start(ctx)
		log.Info().Str("topic", cfg.Kafka.BatchTopic).Msg("consuming batch notifications")
		return func() {
			if err := consumer.Stop(); err != nil {
				log.Warn().Err(err).Msg("stop kafka consumer")
			}
		}, nil

	case config.TransportNATS:
		sub, err := nats.NewSubscriber(cfg.NATS.URL, func(_ string, data []byte) error {
			return handle(data)
		}, log)
		if err != nil {
			return nil, err
		}
		if err := sub.SubscribeQueue(cfg.NATS.BatchSubject, cfg.NATS.Queue); err != nil {
			_ = sub.Close()
			return nil, err
		}
		log.Info().Str("subject", cfg.NATS.BatchSubject).Msg("subscribed batch notifications")
		return func() {
			if err := sub.Close(); err != nil {
				log.Warn().Err(err).Msg("close nats subscriber")
			}
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown transport %q", config.ErrInvalidConfig, cfg.Transport)
}
