// 文件: pkg/metrics/score.go
// 综合评分
//
// 【绩效分 0-100】
//   收益   0-40: 总收益 -5% -> 0,  +15% -> 40
//   夏普   0-30: 夏普 0 -> 0,      2 -> 30
//   回撤   0-20: 回撤 0% -> 20,    20% -> 0
//   胜率   0-10: 胜率 * 10
//
// 【风险分 0-100，越高越安全】
//   保证金 0-40: 0% -> 40, 50% -> 0
//   波动率 0-30: 0% -> 30, 50% -> 0
//   回撤   0-30: 0% -> 30, 20% -> 0
//
// 各分项先截断到各自区间再相加

package metrics

import (
	"strategyscope.com/pkg/numeric"
)

// ScoreBreakdown 评分明细
type ScoreBreakdown struct {
	Return       float64
	Sharpe       float64
	Drawdown     float64
	WinRate      float64
	Margin       float64
	Volatility   float64
	RiskDrawdown float64
}

// Breakdown 计算各分项
func Breakdown(m *PerformanceMetrics) ScoreBreakdown {
	return ScoreBreakdown{
		Return:       numeric.Clamp((m.TotalReturn+0.05)*200, 0, 40),
		Sharpe:       numeric.Clamp(m.SharpeRatio*15, 0, 30),
		Drawdown:     numeric.Clamp(20-m.MaxDrawdown*100, 0, 20),
		WinRate:      numeric.Clamp(m.WinRate*10, 0, 10),
		Margin:       numeric.Clamp(40-m.AvgMarginRatio*80, 0, 40),
		Volatility:   numeric.Clamp(30-m.Volatility*60, 0, 30),
		RiskDrawdown: numeric.Clamp(30-m.MaxDrawdown*150, 0, 30),
	}
}

// PerformanceScore 绩效分
func PerformanceScore(m *PerformanceMetrics) float64 {
	b := Breakdown(m)
	return numeric.Clamp(b.Return+b.Sharpe+b.Drawdown+b.WinRate, 0, 100)
}

// RiskScore 风险分
func RiskScore(m *PerformanceMetrics) float64 {
	b := Breakdown(m)
	return numeric.Clamp(b.Margin+b.Volatility+b.RiskDrawdown, 0, 100)
}

// TotalScore 综合分 = 两者平均
func TotalScore(performance, risk float64) float64 {
	return 0.5*performance + 0.5*risk
}
