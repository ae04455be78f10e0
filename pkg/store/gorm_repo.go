// 文件: pkg/store/gorm_repo.go
// GORM 存储实现 (MySQL / SQLite)
//
// 【设计】
// - upsert 统一用 clause.OnConflict，依赖表上的联合唯一索引
// - 整日替换在一个事务里先删后插
// - 所有操作带 context

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"strategyscope.com/pkg/behavior"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/settlement"
)

// 确保实现了接口
var _ Repository = (*GormRepository)(nil)

// GormRepository GORM 实现
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository 创建存储
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// =============================================================================
// 策略
// =============================================================================

// EnsureStrategy 获取或创建
func (r *GormRepository) EnsureStrategy(ctx context.Context, code string) (*Strategy, error) {
	s := Strategy{Code: code, Name: code}
	err := r.db.WithContext(ctx).
		Where(Strategy{Code: code}).
		FirstOrCreate(&s).Error
	if err != nil {
		return nil, fmt.Errorf("ensure strategy %s: %w", code, err)
	}
	return &s, nil
}

// GetStrategy 根据 code 查询
func (r *GormRepository) GetStrategy(ctx context.Context, code string) (*Strategy, error) {
	var s Strategy
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, err
	}
	return &s, nil
}

// =============================================================================
// 结算记录
// =============================================================================

// SaveEquity 每日权益 upsert
func (r *GormRepository) SaveEquity(ctx context.Context, strategyID uint, rows []settlement.DailyEquity) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]EquityRow, len(rows))
	for i, e := range rows {
		records[i] = newEquityRow(strategyID, e)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "strategy_id"}, {Name: "trade_date"}},
			UpdateAll: true,
		}).
		CreateInBatches(records, batchSize).Error
}

// ReplacePositions 整日替换持仓
func (r *GormRepository) ReplacePositions(ctx context.Context, strategyID uint, rows []settlement.Position) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]PositionRow, len(rows))
	dates := make([]string, 0, len(rows))
	for i, p := range rows {
		records[i] = newPositionRow(strategyID, p)
		dates = append(dates, p.TradeDate)
	}
	return r.replaceByDays(ctx, &PositionRow{}, strategyID, dates, records)
}

// ReplaceTrades 整日替换成交
func (r *GormRepository) ReplaceTrades(ctx context.Context, strategyID uint, rows []settlement.Trade) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]TradeRow, len(rows))
	dates := make([]string, 0, len(rows))
	for i, t := range rows {
		records[i] = newTradeRow(strategyID, t)
		dates = append(dates, t.TradeDate)
	}
	return r.replaceByDays(ctx, &TradeRow{}, strategyID, dates, records)
}

// replaceByDays 事务内: 删除 (strategy_id, trade_date in dates) 后批量插入
func (r *GormRepository) replaceByDays(ctx context.Context, model any, strategyID uint, dates []string, records any) error {
	days := uniqueDates(dates)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(days) > 0 {
			if err := tx.Where("strategy_id = ? AND trade_date IN ?", strategyID, days).
				Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(records, batchSize).Error
	})
}

// =============================================================================
// 计算结果
// =============================================================================

// SaveDailyMetrics 日度风险 upsert
func (r *GormRepository) SaveDailyMetrics(ctx context.Context, strategyID uint, rows []*metrics.DailyRiskMetrics) error {
	records := make([]DailyMetricsRow, 0, len(rows))
	for _, m := range rows {
		if m != nil {
			records = append(records, newDailyMetricsRow(strategyID, m))
		}
	}
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "strategy_id"}, {Name: "trade_date"}},
			UpdateAll: true,
		}).
		CreateInBatches(records, batchSize).Error
}

// SaveScore 绩效评分 upsert
func (r *GormRepository) SaveScore(ctx context.Context, strategyID uint, m *metrics.PerformanceMetrics) error {
	if m == nil {
		return nil
	}
	row := newScoreRow(strategyID, m)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "strategy_id"}, {Name: "calc_date"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

// ReplaceAlerts 整日替换预警
func (r *GormRepository) ReplaceAlerts(ctx context.Context, strategyID uint, dates []string, rows []AlertRow) error {
	all := append([]string{}, dates...)
	for i := range rows {
		rows[i].StrategyID = strategyID
		all = append(all, rows[i].TradeDate)
	}
	days := uniqueDates(all)
	if len(days) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("strategy_id = ? AND trade_date IN ?", strategyID, days).
			Delete(&AlertRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, batchSize).Error
	})
}

// =============================================================================
// 读
// =============================================================================

// LatestScores 最近计算日的评分
func (r *GormRepository) LatestScores(ctx context.Context) ([]*ScoreRow, error) {
	var latest string
	err := r.db.WithContext(ctx).
		Model(&ScoreRow{}).
		Select("COALESCE(MAX(calc_date), '')").
		Scan(&latest).Error
	if err != nil {
		return nil, err
	}
	if latest == "" {
		return []*ScoreRow{}, nil
	}

	var rows []*ScoreRow
	err = r.db.WithContext(ctx).
		Where("calc_date = ?", latest).
		Order("rank_no ASC").
		Find(&rows).Error
	return rows, err
}

// ScoreByStrategy 某策略最近一次评分
func (r *GormRepository) ScoreByStrategy(ctx context.Context, code string) (*ScoreRow, error) {
	var row ScoreRow
	err := r.db.WithContext(ctx).
		Where("strategy_code = ?", code).
		Order("calc_date DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScoreNotFound
		}
		return nil, err
	}
	return &row, nil
}

// AlertsByStrategy 某策略的预警
func (r *GormRepository) AlertsByStrategy(ctx context.Context, code string, limit int) ([]behavior.Alert, error) {
	q := r.db.WithContext(ctx).
		Where("strategy_code = ?", code).
		Order("trade_date DESC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []AlertRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]behavior.Alert, 0, len(rows))
	for i := range rows {
		a, err := rows[i].Alert()
		if err != nil {
			return nil, fmt.Errorf("decode alert %d: %w", rows[i].ID, err)
		}
		out = append(out, a)
	}
	// 同日内按严重程度
	behavior.SortAlerts(out)
	return out, nil
}

func uniqueDates(dates []string) []string {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
