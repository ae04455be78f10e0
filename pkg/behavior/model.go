// 文件: pkg/behavior/model.go
// 交易行为预警模型
//
// 【预警类型】
// 1. 浮亏加仓: 同一合约当日净浮亏时继续开仓
// 2. 逆势加仓: 当日价格下跌时买开 / 上涨时卖开

package behavior

// =============================================================================
// 预警类型 / 严重程度
// =============================================================================

// AlertType 预警类型
type AlertType string

const (
	AlertFloatingLossAdd AlertType = "floating-loss-add"
	AlertCounterTrendAdd AlertType = "counter-trend-add"
)

// Severity 严重程度
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank 排序权重，越小越严重
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// 阈值 (比较均为严格大于)
const (
	FloatingLossHighRatio   = 0.05
	FloatingLossMediumRatio = 0.02

	CounterTrendHighPct   = 0.03
	CounterTrendMediumPct = 0.015
)

// 行为风险分权重
const (
	floatingLossWeight = 5
	counterTrendWeight = 3
	highSeverityWeight = 10
	maxRiskScore       = 100
	recentAlertLimit   = 5
)

// =============================================================================
// Alert
// =============================================================================

// Alert 一条行为预警
//
// Details 携带数值证据，key 见 detector.go
type Alert struct {
	StrategyCode string         `json:"strategy_code"`
	TradeDate    string         `json:"trade_date"`
	Contract     string         `json:"contract"`
	TradeID      string         `json:"trade_id,omitempty"`
	Type         AlertType      `json:"alert_type"`
	Severity     Severity       `json:"severity"`
	Description  string         `json:"description"`
	Details      map[string]any `json:"details"`
}

// =============================================================================
// Summary
// =============================================================================

// Summary 单个策略的行为汇总
//
// RiskScore = min(100, 浮亏加仓*5 + 逆势加仓*3 + 高危*10)
type Summary struct {
	StrategyCode      string  `json:"strategy_code"`
	TotalAlerts       int     `json:"total_alerts"`
	FloatingLossCount int     `json:"floating_loss_count"`
	CounterTrendCount int     `json:"counter_trend_count"`
	HighSeverityCount int     `json:"high_severity_count"`
	RiskScore         int     `json:"behavior_risk_score"`
	RecentAlerts      []Alert `json:"recent_alerts"`
}
