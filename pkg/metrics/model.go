// 文件: pkg/metrics/model.go
// 绩效与日度风险指标
//
// 【两类输出】
// 1. PerformanceMetrics: 每个策略每批一条，基于权益序列
// 2. DailyRiskMetrics:   每个策略每天一条，基于当日持仓 + 成交
//
// 所有字段都是计算后再舍入的展示值，舍入不会回流到计算中

package metrics

// =============================================================================
// 常量
// =============================================================================

const (
	TradingDaysPerYear  = 252
	DefaultRiskFreeRate = 0.03
)

// 舍入精度
const (
	returnPlaces = 6 // 收益率 / 回撤 / 波动率 / 敞口比例
	ratioPlaces  = 4 // 夏普 / 卡玛 / 胜率 / 保证金率 / 集中度
	amountPlaces = 2 // 金额 / 评分
)

// =============================================================================
// 日收益序列
// =============================================================================

// DailyReturn 权益序列中的一个交易日
type DailyReturn struct {
	TradeDate        string  `json:"trade_date"`
	Equity           float64 `json:"equity"`
	DailyReturn      float64 `json:"daily_return"`
	CumulativeReturn float64 `json:"cumulative_return"`
	RunningMax       float64 `json:"running_max"`
	Drawdown         float64 `json:"drawdown"`
	MaxDrawdown      float64 `json:"max_drawdown"` // 截至当日的最大回撤
}

// =============================================================================
// 绩效指标
// =============================================================================

// PerformanceMetrics 策略绩效
//
// TotalScore = 0.5 * PerformanceScore + 0.5 * RiskScore
type PerformanceMetrics struct {
	StrategyCode     string  `json:"strategy_code"`
	CalcDate         string  `json:"calc_date"` // 序列最后一个交易日
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
	Rank             int     `json:"rank,omitempty"`
}

// =============================================================================
// 日度风险
// =============================================================================

// DailyRiskMetrics 单日风险暴露
//
// GrossExposure = (Long + Short) / Equity
// NetExposure   = (Long - Short) / Equity
type DailyRiskMetrics struct {
	StrategyCode       string  `json:"strategy_code"`
	TradeDate          string  `json:"trade_date"`
	MarginRatio        float64 `json:"margin_ratio"`
	LongExposure       float64 `json:"long_exposure"`
	ShortExposure      float64 `json:"short_exposure"`
	NetExposure        float64 `json:"net_exposure"`
	GrossExposure      float64 `json:"gross_exposure"`
	TotalPositionValue float64 `json:"total_position_value"`
	Top1Concentration  float64 `json:"top1_concentration"`
	Top3Concentration  float64 `json:"top3_concentration"`
	PositionCount      int     `json:"position_count"` // 品种数
	TradeCount         int     `json:"trade_count"`
	Turnover           float64 `json:"turnover"`
}
