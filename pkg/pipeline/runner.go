// 文件: pkg/pipeline/runner.go
// 分析流水线
//
// 【流程】
// 1. Analyze: 纯计算，绩效 + 日度风险 + 行为预警
// 2. Run:     Analyze 后依次写入各个 Sink (数据库 / 预警流 / 事件 / 导出文件)
//
// 某个 Sink 失败不影响其他 Sink，错误合并后返回

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"strategyscope.com/pkg/alert"
	"strategyscope.com/pkg/behavior"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/settlement"
)

// Result 一次运行的全部计算结果
type Result struct {
	RunID       int64
	GeneratedAt time.Time
	Batch       *settlement.Batch

	Scores     []*metrics.PerformanceMetrics        // 已排名
	DailyRisk  []*metrics.DailyRiskMetrics          // 每个策略每个交易日
	LatestRisk map[string]*metrics.DailyRiskMetrics // 批次最新交易日，当天无记录的策略缺省
	Alerts     map[string][]behavior.Alert          // 按策略分组，已排序
	Summaries  map[string]behavior.Summary
	Records    []alert.Record // Alerts 展平并分配事件 ID
}

// RecordsByStrategy 按策略分组的预警记录
func (r *Result) RecordsByStrategy() map[string][]alert.Record {
	out := make(map[string][]alert.Record)
	for _, rec := range r.Records {
		out[rec.Alert.StrategyCode] = append(out[rec.Alert.StrategyCode], rec)
	}
	return out
}

// Sink 结果的下游
type Sink interface {
	Name() string
	Write(ctx context.Context, r *Result) error
}

// Runner 流水线
type Runner struct {
	calc     *metrics.Calculator
	detector *behavior.Detector
	ids      *IDGenerator
	sinks    []Sink
	log      zerolog.Logger
	now      func() time.Time

	mu sync.Mutex // BatchHandler 串行
}

// NewRunner 创建流水线，sinks 按顺序执行
func NewRunner(calc *metrics.Calculator, ids *IDGenerator, log zerolog.Logger, sinks ...Sink) *Runner {
	return &Runner{
		calc:     calc,
		detector: behavior.NewDetector(),
		ids:      ids,
		sinks:    sinks,
		log:      log.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// Analyze 只计算不写入
func (r *Runner) Analyze(batch *settlement.Batch) (*Result, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       r.ids.Next(),
		GeneratedAt: r.now(),
		Batch:       batch,
		Scores:      r.calc.CalculateAll(batch.Equity),
		DailyRisk:   r.calc.CalculateAllDailyRisk(batch.Equity, batch.Positions, batch.Trades),
		LatestRisk:  r.calc.LatestDailyRisk(batch.Equity, batch.Positions, batch.Trades),
		Alerts:      r.detector.DetectAll(batch.Positions, batch.Trades, batch.Equity),
	}
	res.Summaries = behavior.SummarizeAlerts(res.Alerts, batch.Equity)

	for _, code := range batch.Strategies() {
		for _, a := range res.Alerts[code] {
			res.Records = append(res.Records, alert.Record{
				EventID: r.ids.Next(),
				RunID:   res.RunID,
				Alert:   a,
			})
		}
	}
	return res, nil
}

// Run 计算并写入全部 Sink
//
// 返回的 Result 在 Sink 失败时仍然有效
func (r *Runner) Run(ctx context.Context, batch *settlement.Batch) (*Result, error) {
	start := r.now()

	res, err := r.Analyze(batch)
	if err != nil {
		runTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	observeResult(res)

	log := r.log.With().Int64("run_id", res.RunID).Logger()
	log.Info().
		Int("strategies", len(batch.Strategies())).
		Int("scored", len(res.Scores)).
		Int("alerts", len(res.Records)).
		Str("latest_date", batch.LatestDate()).
		Msg("batch analyzed")

	var errs []error
	for _, s := range r.sinks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Write(ctx, res); err != nil {
			sinkErrorsTotal.WithLabelValues(s.Name()).Inc()
			log.Error().Err(err).Str("sink", s.Name()).Msg("sink write failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		log.Debug().Str("sink", s.Name()).Msg("sink written")
	}

	runDuration.Observe(r.now().Sub(start).Seconds())
	if len(errs) > 0 {
		runTotal.WithLabelValues("partial").Inc()
		return res, errors.Join(errs...)
	}
	runTotal.WithLabelValues("ok").Inc()
	return res, nil
}
