// 文件: pkg/pipeline/sinks.go
// 结果写入目标
//
//   StoreSink   数据库 (结算记录 + 日度风险 + 评分 + 预警)
//   FeedSink    预警流 (每个策略最近 N 条)
//   EventSink   Kafka / NATS 事件
//   ExportSink  前端 JSON 文件

package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"strategyscope.com/pkg/alert"
	"strategyscope.com/pkg/export"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/settlement"
	"strategyscope.com/pkg/store"
)

var (
	_ Sink = (*StoreSink)(nil)
	_ Sink = (*FeedSink)(nil)
	_ Sink = (*EventSink)(nil)
	_ Sink = (*ExportSink)(nil)
)

// =============================================================================
// StoreSink
// =============================================================================

// StoreSink 按策略写入数据库，重复运行同一批次结果不变
type StoreSink struct {
	repo store.Repository
}

func NewStoreSink(repo store.Repository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Write(ctx context.Context, r *Result) error {
	equity := settlement.GroupEquityByStrategy(r.Batch.Equity)

	positions := make(map[string][]settlement.Position)
	for _, p := range r.Batch.Positions {
		positions[p.StrategyCode] = append(positions[p.StrategyCode], p)
	}
	trades := make(map[string][]settlement.Trade)
	for _, t := range r.Batch.Trades {
		trades[t.StrategyCode] = append(trades[t.StrategyCode], t)
	}
	risk := make(map[string][]*metrics.DailyRiskMetrics)
	for _, m := range r.DailyRisk {
		risk[m.StrategyCode] = append(risk[m.StrategyCode], m)
	}
	scores := make(map[string]*metrics.PerformanceMetrics, len(r.Scores))
	for _, m := range r.Scores {
		scores[m.StrategyCode] = m
	}
	records := r.RecordsByStrategy()

	for _, code := range r.Batch.Strategies() {
		st, err := s.repo.EnsureStrategy(ctx, code)
		if err != nil {
			return err
		}
		if err := s.repo.SaveEquity(ctx, st.ID, equity[code]); err != nil {
			return fmt.Errorf("strategy %s: %w", code, err)
		}
		if err := s.repo.ReplacePositions(ctx, st.ID, positions[code]); err != nil {
			return fmt.Errorf("strategy %s: %w", code, err)
		}
		if err := s.repo.ReplaceTrades(ctx, st.ID, trades[code]); err != nil {
			return fmt.Errorf("strategy %s: %w", code, err)
		}
		if err := s.repo.SaveDailyMetrics(ctx, st.ID, risk[code]); err != nil {
			return fmt.Errorf("strategy %s: %w", code, err)
		}
		if m, ok := scores[code]; ok {
			if err := s.repo.SaveScore(ctx, st.ID, m); err != nil {
				return fmt.Errorf("strategy %s: %w", code, err)
			}
		}

		rows := make([]store.AlertRow, 0, len(records[code]))
		for _, rec := range records[code] {
			row, err := store.NewAlertRow(st.ID, rec.EventID, rec.Alert)
			if err != nil {
				return fmt.Errorf("strategy %s: encode alert: %w", code, err)
			}
			rows = append(rows, row)
		}
		dates := batchDates(equity[code], positions[code], trades[code])
		if err := s.repo.ReplaceAlerts(ctx, st.ID, dates, rows); err != nil {
			return fmt.Errorf("strategy %s: %w", code, err)
		}
	}
	return nil
}

// batchDates 批次覆盖到的交易日，这些日子的旧预警会被替换
func batchDates(equity []settlement.DailyEquity, positions []settlement.Position, trades []settlement.Trade) []string {
	var dates []string
	for _, e := range equity {
		dates = append(dates, e.TradeDate)
	}
	for _, p := range positions {
		dates = append(dates, p.TradeDate)
	}
	for _, t := range trades {
		dates = append(dates, t.TradeDate)
	}
	return dates
}

// =============================================================================
// FeedSink
// =============================================================================

// FeedSink 推送到预警流
type FeedSink struct {
	feed alert.Feed
}

func NewFeedSink(feed alert.Feed) *FeedSink {
	return &FeedSink{feed: feed}
}

func (s *FeedSink) Name() string { return "alert-feed" }

func (s *FeedSink) Write(ctx context.Context, r *Result) error {
	if len(r.Records) == 0 {
		return nil
	}
	return s.feed.Push(ctx, r.Records)
}

// =============================================================================
// ExportSink
// =============================================================================

// ExportSink 写前端 JSON 文件
type ExportSink struct {
	path string
}

func NewExportSink(path string) *ExportSink {
	return &ExportSink{path: path}
}

func (s *ExportSink) Name() string { return "export" }

func (s *ExportSink) Write(_ context.Context, r *Result) error {
	doc := export.Build(export.Input{
		RunID:       strconv.FormatInt(r.RunID, 10),
		GeneratedAt: r.GeneratedAt,
		Batch:       r.Batch,
		Scores:      r.Scores,
		LatestRisk:  r.LatestRisk,
		Summaries:   r.Summaries,
	})
	return export.WriteFile(s.path, doc)
}
