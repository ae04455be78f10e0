// 文件: pkg/store/model.go
// 持久化表结构
//
// 【表】
// - strategies       策略 (code 唯一)
// - daily_equity     每日权益       uk(strategy_id, trade_date)
// - positions        持仓快照       按 (strategy_id, trade_date) 整日替换
// - trades           成交明细       按 (strategy_id, trade_date) 整日替换
// - daily_metrics    日度风险       uk(strategy_id, trade_date)
// - strategy_scores  绩效评分       uk(strategy_id, calc_date)
// - behavior_alerts  行为预警       按 (strategy_id, trade_date) 整日替换
//
// 时间戳统一用毫秒 int64

package store

import (
	"encoding/json"
	"errors"

	"strategyscope.com/pkg/behavior"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/settlement"
)

var (
	ErrStrategyNotFound = errors.New("strategy not found")
	ErrScoreNotFound    = errors.New("strategy score not found")
)

// 批量写入大小
const batchSize = 100

// =============================================================================
// Strategy
// =============================================================================

type Strategy struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Code      string `gorm:"size:32;uniqueIndex" json:"code"`
	Name      string `gorm:"size:64" json:"name"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

func (Strategy) TableName() string { return "strategies" }

// =============================================================================
// 原始记录
// =============================================================================

type EquityRow struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	StrategyID      uint    `gorm:"uniqueIndex:uk_equity_day,priority:1" json:"strategy_id"`
	TradeDate       string  `gorm:"size:10;uniqueIndex:uk_equity_day,priority:2" json:"trade_date"`
	PrevBalance     float64 `json:"prev_balance"`
	DepositWithdraw float64 `json:"deposit_withdraw"`
	RealizedPnL     float64 `gorm:"column:realized_pnl" json:"realized_pnl"`
	Commission      float64 `json:"commission"`
	CurrentBalance  float64 `json:"current_balance"`
	FloatingPnL     float64 `gorm:"column:floating_pnl" json:"floating_pnl"`
	Equity          float64 `json:"equity"`
	MarginUsed      float64 `json:"margin_used"`
	AvailableFunds  float64 `json:"available_funds"`
	RiskDegree      float64 `json:"risk_degree"`
	UpdatedAt       int64   `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

func (EquityRow) TableName() string { return "daily_equity" }

func newEquityRow(strategyID uint, e settlement.DailyEquity) EquityRow {
	return EquityRow{
		StrategyID:      strategyID,
		TradeDate:       e.TradeDate,
		PrevBalance:     e.PrevBalance,
		DepositWithdraw: e.DepositWithdraw,
		RealizedPnL:     e.RealizedPnL,
		Commission:      e.Commission,
		CurrentBalance:  e.CurrentBalance,
		FloatingPnL:     e.FloatingPnL,
		Equity:          e.Equity,
		MarginUsed:      e.MarginUsed,
		AvailableFunds:  e.AvailableFunds,
		RiskDegree:      e.RiskDegree,
	}
}

type PositionRow struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	StrategyID     uint    `gorm:"index:idx_position_day,priority:1" json:"strategy_id"`
	TradeDate      string  `gorm:"size:10;index:idx_position_day,priority:2" json:"trade_date"`
	Contract       string  `gorm:"size:16" json:"contract"`
	LongQty        int64   `json:"long_qty"`
	LongPrice      float64 `json:"long_price"`
	ShortQty       int64   `json:"short_qty"`
	ShortPrice     float64 `json:"short_price"`
	PrevSettlement float64 `json:"prev_settlement"`
	Settlement     float64 `json:"settlement"`
	FloatingPnL    float64 `gorm:"column:floating_pnl" json:"floating_pnl"`
	PositionValue  float64 `json:"position_value"`
	Margin         float64 `json:"margin"`
	Exchange       string  `gorm:"size:16" json:"exchange"`
	OpenDate       string  `gorm:"size:10" json:"open_date"`
}

func (PositionRow) TableName() string { return "positions" }

func newPositionRow(strategyID uint, p settlement.Position) PositionRow {
	return PositionRow{
		StrategyID:     strategyID,
		TradeDate:      p.TradeDate,
		Contract:       p.Contract,
		LongQty:        p.LongQty,
		LongPrice:      p.LongPrice,
		ShortQty:       p.ShortQty,
		ShortPrice:     p.ShortPrice,
		PrevSettlement: p.PrevSettlement,
		Settlement:     p.Settlement,
		FloatingPnL:    p.FloatingPnL,
		PositionValue:  p.PositionValue,
		Margin:         p.Margin,
		Exchange:       p.Exchange,
		OpenDate:       p.OpenDate,
	}
}

type TradeRow struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	StrategyID  uint    `gorm:"index:idx_trade_day,priority:1" json:"strategy_id"`
	TradeDate   string  `gorm:"size:10;index:idx_trade_day,priority:2" json:"trade_date"`
	Contract    string  `gorm:"size:16" json:"contract"`
	TradeID     string  `gorm:"size:32" json:"trade_id"`
	TradeTime   string  `gorm:"size:16" json:"trade_time"`
	Direction   string  `gorm:"size:8" json:"direction"`
	OffsetFlag  string  `gorm:"size:8" json:"offset_flag"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
	Amount      float64 `json:"amount"`
	Commission  float64 `json:"commission"`
	RealizedPnL float64 `gorm:"column:realized_pnl" json:"realized_pnl"`
	Exchange    string  `gorm:"size:16" json:"exchange"`
}

func (TradeRow) TableName() string { return "trades" }

func newTradeRow(strategyID uint, t settlement.Trade) TradeRow {
	return TradeRow{
		StrategyID:  strategyID,
		TradeDate:   t.TradeDate,
		Contract:    t.Contract,
		TradeID:     t.TradeID,
		TradeTime:   t.TradeTime,
		Direction:   string(t.Direction),
		OffsetFlag:  string(t.OffsetFlag),
		Price:       t.Price,
		Quantity:    t.Quantity,
		Amount:      t.Amount,
		Commission:  t.Commission,
		RealizedPnL: t.RealizedPnL,
		Exchange:    t.Exchange,
	}
}

// =============================================================================
// 计算结果
// =============================================================================

type DailyMetricsRow struct {
	ID                 uint    `gorm:"primaryKey" json:"id"`
	StrategyID         uint    `gorm:"uniqueIndex:uk_metrics_day,priority:1" json:"strategy_id"`
	TradeDate          string  `gorm:"size:10;uniqueIndex:uk_metrics_day,priority:2" json:"trade_date"`
	MarginRatio        float64 `json:"margin_ratio"`
	LongExposure       float64 `json:"long_exposure"`
	ShortExposure      float64 `json:"short_exposure"`
	NetExposure        float64 `json:"net_exposure"`
	GrossExposure      float64 `json:"gross_exposure"`
	TotalPositionValue float64 `json:"total_position_value"`
	Top1Concentration  float64 `gorm:"column:top1_concentration" json:"top1_concentration"`
	Top3Concentration  float64 `gorm:"column:top3_concentration" json:"top3_concentration"`
	PositionCount      int     `json:"position_count"`
	TradeCount         int     `json:"trade_count"`
	Turnover           float64 `json:"turnover"`
	UpdatedAt          int64   `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

func (DailyMetricsRow) TableName() string { return "daily_metrics" }

func newDailyMetricsRow(strategyID uint, m *metrics.DailyRiskMetrics) DailyMetricsRow {
	return DailyMetricsRow{
		StrategyID:         strategyID,
		TradeDate:          m.TradeDate,
		MarginRatio:        m.MarginRatio,
		LongExposure:       m.LongExposure,
		ShortExposure:      m.ShortExposure,
		NetExposure:        m.NetExposure,
		GrossExposure:      m.GrossExposure,
		TotalPositionValue: m.TotalPositionValue,
		Top1Concentration:  m.Top1Concentration,
		Top3Concentration:  m.Top3Concentration,
		PositionCount:      m.PositionCount,
		TradeCount:         m.TradeCount,
		Turnover:           m.Turnover,
	}
}

// ScoreRow 绩效评分，冗余 strategy_code 方便读取
type ScoreRow struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	StrategyID       uint    `gorm:"uniqueIndex:uk_score_day,priority:1" json:"strategy_id"`
	StrategyCode     string  `gorm:"size:32;index" json:"strategy_code"`
	CalcDate         string  `gorm:"size:10;uniqueIndex:uk_score_day,priority:2;index" json:"calc_date"`
	TradingDays      int     `json:"trading_days"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	WinRate          float64 `json:"win_rate"`
	AvgMarginRatio   float64 `json:"avg_margin_ratio"`
	PerformanceScore float64 `json:"performance_score"`
	RiskScore        float64 `json:"risk_score"`
	TotalScore       float64 `json:"total_score"`
	Rank             int     `gorm:"column:rank_no" json:"rank"`
	UpdatedAt        int64   `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

func (ScoreRow) TableName() string { return "strategy_scores" }

func newScoreRow(strategyID uint, m *metrics.PerformanceMetrics) ScoreRow {
	return ScoreRow{
		StrategyID:       strategyID,
		StrategyCode:     m.StrategyCode,
		CalcDate:         m.CalcDate,
		TradingDays:      m.TradingDays,
		TotalReturn:      m.TotalReturn,
		AnnualizedReturn: m.AnnualizedReturn,
		Volatility:       m.Volatility,
		SharpeRatio:      m.SharpeRatio,
		MaxDrawdown:      m.MaxDrawdown,
		CalmarRatio:      m.CalmarRatio,
		WinRate:          m.WinRate,
		AvgMarginRatio:   m.AvgMarginRatio,
		PerformanceScore: m.PerformanceScore,
		RiskScore:        m.RiskScore,
		TotalScore:       m.TotalScore,
		Rank:             m.Rank,
	}
}

// AlertRow 行为预警，Details 以 JSON 文本存储
type AlertRow struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	EventID      int64  `gorm:"index" json:"event_id"`
	StrategyID   uint   `gorm:"index:idx_alert_day,priority:1" json:"strategy_id"`
	StrategyCode string `gorm:"size:32" json:"strategy_code"`
	TradeDate    string `gorm:"size:10;index:idx_alert_day,priority:2" json:"trade_date"`
	Contract     string `gorm:"size:16" json:"contract"`
	TradeID      string `gorm:"size:32" json:"trade_id"`
	AlertType    string `gorm:"size:32" json:"alert_type"`
	Severity     string `gorm:"size:8" json:"severity"`
	Description  string `gorm:"size:255" json:"description"`
	Details      string `gorm:"type:text" json:"details"`
	CreatedAt    int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

func (AlertRow) TableName() string { return "behavior_alerts" }

// NewAlertRow 转换预警，eventID 可为 0
func NewAlertRow(strategyID uint, eventID int64, a behavior.Alert) (AlertRow, error) {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return AlertRow{}, err
	}
	return AlertRow{
		EventID:      eventID,
		StrategyID:   strategyID,
		StrategyCode: a.StrategyCode,
		TradeDate:    a.TradeDate,
		Contract:     a.Contract,
		TradeID:      a.TradeID,
		AlertType:    string(a.Type),
		Severity:     string(a.Severity),
		Description:  a.Description,
		Details:      string(details),
	}, nil
}

// Alert 还原为领域对象
func (r *AlertRow) Alert() (behavior.Alert, error) {
	a := behavior.Alert{
		StrategyCode: r.StrategyCode,
		TradeDate:    r.TradeDate,
		Contract:     r.Contract,
		TradeID:      r.TradeID,
		Type:         behavior.AlertType(r.AlertType),
		Severity:     behavior.Severity(r.Severity),
		Description:  r.Description,
	}
	if r.Details != "" {
		if err := json.Unmarshal([]byte(r.Details), &a.Details); err != nil {
			return a, err
		}
	}
	return a, nil
}

// AllModels AutoMigrate 用
func AllModels() []any {
	return []any{
		&Strategy{},
		&EquityRow{},
		&PositionRow{},
		&TradeRow{},
		&DailyMetricsRow{},
		&ScoreRow{},
		&AlertRow{},
	}
}
