// 文件: pkg/metrics/performance.go
// 策略绩效指标
//
// 【指标】
// - 年化收益: 线性年化 total_return * 252 / 天数，不做复利
// - 波动率:   样本标准差 (n-1) * sqrt(252)
// - 夏普:     (年化 - 无风险) / 波动率，波动率为 0 时取 0
// - 卡玛:     年化 / 最大回撤，回撤为 0 时取 0
// - 胜率:     正收益天数 / 非零收益天数
//
// 任何除零或非有限值都退化为 0

package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"strategyscope.com/pkg/numeric"
	"strategyscope.com/pkg/settlement"
)

// CalculatePerformance 计算单个策略的绩效
//
// 少于 2 条记录返回 nil (历史不足，不是错误)
func (c *Calculator) CalculatePerformance(series []settlement.DailyEquity, strategyCode string) *PerformanceMetrics {
	if len(series) < 2 {
		return nil
	}

	points := c.DailyReturns(series)
	n := len(points)

	returns := make([]float64, n)
	for i, p := range points {
		returns[i] = p.DailyReturn
	}

	totalReturn := points[n-1].CumulativeReturn
	annualized := 0.0
	if n > 0 {
		annualized = totalReturn * TradingDaysPerYear / float64(n)
	}

	volatility := annualVolatility(returns)

	sharpe := 0.0
	if volatility > 0 {
		sharpe = (annualized - c.riskFreeRate) / volatility
	}

	maxDD := points[n-1].MaxDrawdown
	calmar := numeric.SafeDiv(annualized, maxDD)

	raw := PerformanceMetrics{
		StrategyCode:     strategyCode,
		CalcDate:         points[n-1].TradeDate,
		TradingDays:      n,
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		Volatility:       volatility,
		SharpeRatio:      sharpe,
		MaxDrawdown:      maxDD,
		CalmarRatio:      calmar,
		WinRate:          winRate(returns),
		AvgMarginRatio:   avgMarginRatio(series),
	}

	// 评分基于未舍入的原始值
	perf := PerformanceScore(&raw)
	risk := RiskScore(&raw)

	return &PerformanceMetrics{
		StrategyCode:     strategyCode,
		CalcDate:         raw.CalcDate,
		TradingDays:      n,
		TotalReturn:      numeric.Round(raw.TotalReturn, returnPlaces),
		AnnualizedReturn: numeric.Round(raw.AnnualizedReturn, returnPlaces),
		Volatility:       numeric.Round(raw.Volatility, returnPlaces),
		SharpeRatio:      numeric.Round(raw.SharpeRatio, ratioPlaces),
		MaxDrawdown:      numeric.Round(raw.MaxDrawdown, returnPlaces),
		CalmarRatio:      numeric.Round(raw.CalmarRatio, ratioPlaces),
		WinRate:          numeric.Round(raw.WinRate, ratioPlaces),
		AvgMarginRatio:   numeric.Round(raw.AvgMarginRatio, ratioPlaces),
		PerformanceScore: numeric.Round(perf, amountPlaces),
		RiskScore:        numeric.Round(risk, amountPlaces),
		TotalScore:       numeric.Round(TotalScore(perf, risk), amountPlaces),
	}
}

// annualVolatility 年化波动率
func annualVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd := stat.StdDev(returns, nil)
	if !numeric.IsFinite(sd) || sd <= 0 {
		return 0
	}
	return sd * math.Sqrt(TradingDaysPerYear)
}

// winRate 正收益天数 / 非零收益天数
func winRate(returns []float64) float64 {
	wins, nonZero := 0, 0
	for _, r := range returns {
		if r == 0 {
			continue
		}
		nonZero++
		if r > 0 {
			wins++
		}
	}
	if nonZero == 0 {
		return 0
	}
	return float64(wins) / float64(nonZero)
}

// avgMarginRatio 日均 保证金 / 权益
//
// 权益非正的日子不参与平均
func avgMarginRatio(series []settlement.DailyEquity) float64 {
	ratios := make([]float64, 0, len(series))
	for _, row := range series {
		if row.Equity <= 0 {
			continue
		}
		ratios = append(ratios, row.MarginUsed/row.Equity)
	}
	if len(ratios) == 0 {
		return 0
	}
	m := stat.Mean(ratios, nil)
	if !numeric.IsFinite(m) {
		return 0
	}
	return m
}
