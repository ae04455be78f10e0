// 文件: pkg/store/repository.go
// 分析结果存储接口
//
// 【约定】
// - 结算记录和计算结果都按 (策略, 日期) 为键写入，重复写入覆盖旧值
// - 批量写入按 100 条分批
// - 读接口只服务于展示层 (排名、预警列表)

package store

import (
	"context"

	"strategyscope.com/pkg/behavior"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/settlement"
)

// Repository 存储接口
type Repository interface {
	// EnsureStrategy 按 code 获取策略，不存在则创建
	EnsureStrategy(ctx context.Context, code string) (*Strategy, error)

	// GetStrategy 不存在返回 ErrStrategyNotFound
	GetStrategy(ctx context.Context, code string) (*Strategy, error)

	// SaveEquity 每日权益 upsert
	SaveEquity(ctx context.Context, strategyID uint, rows []settlement.DailyEquity) error

	// ReplacePositions 按涉及的交易日整日替换持仓
	ReplacePositions(ctx context.Context, strategyID uint, rows []settlement.Position) error

	// ReplaceTrades 按涉及的交易日整日替换成交
	ReplaceTrades(ctx context.Context, strategyID uint, rows []settlement.Trade) error

	// SaveDailyMetrics 日度风险 upsert
	SaveDailyMetrics(ctx context.Context, strategyID uint, rows []*metrics.DailyRiskMetrics) error

	// SaveScore 绩效评分 upsert (strategy_id, calc_date)
	SaveScore(ctx context.Context, strategyID uint, m *metrics.PerformanceMetrics) error

	// ReplaceAlerts 删除 dates 中每一天的旧预警后写入 rows
	ReplaceAlerts(ctx context.Context, strategyID uint, dates []string, rows []AlertRow) error

	// LatestScores 最近一个计算日的全部评分，按名次升序
	LatestScores(ctx context.Context) ([]*ScoreRow, error)

	// ScoreByStrategy 某策略最近一次评分，不存在返回 ErrScoreNotFound
	ScoreByStrategy(ctx context.Context, code string) (*ScoreRow, error)

	// AlertsByStrategy 某策略的预警，交易日降序
	AlertsByStrategy(ctx context.Context, code string, limit int) ([]behavior.Alert, error)
}
