package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"strategyscope.com/pkg/settlement"
)

func equitySeries(code string, values ...float64) []settlement.DailyEquity {
	dates := []string{
		"2025-01-02", "2025-01-03", "2025-01-06", "2025-01-07", "2025-01-08",
		"2025-01-09", "2025-01-10", "2025-01-13", "2025-01-14", "2025-01-15",
	}
	out := make([]settlement.DailyEquity, len(values))
	for i, v := range values {
		out[i] = settlement.DailyEquity{StrategyCode: code, TradeDate: dates[i], Equity: v}
	}
	return out
}

func TestDailyReturns_Flat(t *testing.T) {
	c := NewDefaultCalculator()
	points := c.DailyReturns(equitySeries("S1", 100, 100))

	require.Len(t, points, 2)
	require.Equal(t, 0.0, points[0].DailyReturn)
	require.Equal(t, 0.0, points[1].DailyReturn)
	require.Equal(t, 0.0, points[1].CumulativeReturn)
	require.Equal(t, 0.0, points[1].MaxDrawdown)
}

func TestDailyReturns_Loss(t *testing.T) {
	c := NewDefaultCalculator()
	points := c.DailyReturns(equitySeries("S1", 100, 90))

	require.Equal(t, 0.0, points[0].DailyReturn)
	require.InDelta(t, -0.1, points[1].DailyReturn, 1e-12)
	require.InDelta(t, -0.1, points[1].CumulativeReturn, 1e-12)
	require.Equal(t, 100.0, points[1].RunningMax)
	require.InDelta(t, 0.1, points[1].Drawdown, 1e-12)
	require.InDelta(t, 0.1, points[1].MaxDrawdown, 1e-12)
}

func TestDailyReturns_SortsInput(t *testing.T) {
	c := NewDefaultCalculator()
	series := equitySeries("S1", 100, 110, 99)
	shuffled := []settlement.DailyEquity{series[2], series[0], series[1]}

	points := c.DailyReturns(shuffled)
	require.Equal(t, "2025-01-02", points[0].TradeDate)
	require.InDelta(t, 0.1, points[1].DailyReturn, 1e-12)
	require.InDelta(t, -0.1, points[2].DailyReturn, 1e-12)
	// 调用方切片不被修改
	require.Equal(t, "2025-01-06", shuffled[0].TradeDate)
}

func TestDailyReturns_DepositExcluded(t *testing.T) {
	c := NewDefaultCalculator()
	series := equitySeries("S1", 100, 150)
	series[1].DepositWithdraw = 50

	points := c.DailyReturns(series)
	require.Equal(t, 0.0, points[1].DailyReturn)
}

func TestDailyReturns_ZeroPrevEquity(t *testing.T) {
	c := NewDefaultCalculator()
	points := c.DailyReturns(equitySeries("S1", 0, 100, 50))

	require.Equal(t, 0.0, points[1].DailyReturn)
	require.False(t, math.IsNaN(points[1].CumulativeReturn))
	require.InDelta(t, -0.5, points[2].DailyReturn, 1e-12)
	require.InDelta(t, 0.5, points[2].MaxDrawdown, 1e-12)
}

func TestDailyReturns_CumulativeIdentity(t *testing.T) {
	c := NewDefaultCalculator()
	series := equitySeries("S1", 1000, 1012, 998, 1030, 1030, 1004, 1051, 1049, 1100, 1075)
	series[4].DepositWithdraw = 20

	points := c.DailyReturns(series)
	growth := 1.0
	for _, p := range points {
		growth *= 1 + p.DailyReturn
	}
	require.InDelta(t, growth-1, points[len(points)-1].CumulativeReturn, 1e-12)
}

func TestDailyReturns_MaxDrawdownMonotone(t *testing.T) {
	c := NewDefaultCalculator()
	points := c.DailyReturns(equitySeries("S1", 100, 120, 90, 95, 130, 80, 85))

	for i := 1; i < len(points); i++ {
		require.GreaterOrEqual(t, points[i].MaxDrawdown, points[i-1].MaxDrawdown)
	}
	require.InDelta(t, 50.0/130.0, points[len(points)-1].MaxDrawdown, 1e-12)

	rising := c.DailyReturns(equitySeries("S2", 100, 100, 101, 105, 105, 120))
	for _, p := range rising {
		require.Equal(t, 0.0, p.MaxDrawdown)
	}
}

func TestCalculatePerformance_InsufficientHistory(t *testing.T) {
	c := NewDefaultCalculator()
	require.Nil(t, c.CalculatePerformance(nil, "S1"))
	require.Nil(t, c.CalculatePerformance(equitySeries("S1", 100), "S1"))
}

func TestCalculatePerformance_Flat(t *testing.T) {
	c := NewDefaultCalculator()
	m := c.CalculatePerformance(equitySeries("S1", 100, 100), "S1")
	require.NotNil(t, m)

	require.Equal(t, "S1", m.StrategyCode)
	require.Equal(t, "2025-01-03", m.CalcDate)
	require.Equal(t, 2, m.TradingDays)
	require.Equal(t, 0.0, m.TotalReturn)
	require.Equal(t, 0.0, m.MaxDrawdown)
	require.Equal(t, 0.0, m.Volatility)
	require.Equal(t, 0.0, m.SharpeRatio)
	require.Equal(t, 0.0, m.CalmarRatio)
	require.Equal(t, 0.0, m.WinRate)

	// 收益 10 + 夏普 0 + 回撤 20 + 胜率 0
	require.Equal(t, 30.0, m.PerformanceScore)
	// 保证金 40 + 波动 30 + 回撤 30
	require.Equal(t, 100.0, m.RiskScore)
	require.Equal(t, 65.0, m.TotalScore)
}

func TestCalculatePerformance_Loss(t *testing.T) {
	c := NewDefaultCalculator()
	m := c.CalculatePerformance(equitySeries("S1", 100, 90), "S1")
	require.NotNil(t, m)

	require.InDelta(t, -0.1, m.TotalReturn, 1e-9)
	require.InDelta(t, 0.1, m.MaxDrawdown, 1e-9)
	require.InDelta(t, -12.6, m.AnnualizedReturn, 1e-6)

	// 样本标准差 sqrt(0.005)
	wantVol := math.Sqrt(0.005) * math.Sqrt(252)
	require.InDelta(t, wantVol, m.Volatility, 1e-6)
	require.InDelta(t, (-12.6-0.03)/wantVol, m.SharpeRatio, 1e-4)
	require.InDelta(t, -126.0, m.CalmarRatio, 1e-4)
	require.Equal(t, 0.0, m.WinRate)
}

func TestCalculatePerformance_WinRateIgnoresFlatDays(t *testing.T) {
	c := NewDefaultCalculator()
	// +, 0, -, +
	m := c.CalculatePerformance(equitySeries("S1", 100, 101, 101, 100, 102), "S1")
	require.NotNil(t, m)
	require.InDelta(t, 0.6667, m.WinRate, 1e-9)
}

func TestCalculatePerformance_AvgMarginRatio(t *testing.T) {
	c := NewDefaultCalculator()
	series := equitySeries("S1", 100, 200, 0)
	series[0].MarginUsed = 10
	series[1].MarginUsed = 60
	series[2].MarginUsed = 5 // 权益为 0 的日子不参与

	m := c.CalculatePerformance(series, "S1")
	require.NotNil(t, m)
	require.InDelta(t, 0.2, m.AvgMarginRatio, 1e-9)
}

func TestCalculatePerformance_RiskFreeRate(t *testing.T) {
	series := equitySeries("S1", 100, 101, 103, 102, 105)

	base := NewCalculator(0).CalculatePerformance(series, "S1")
	withRf := NewCalculator(0.5).CalculatePerformance(series, "S1")
	require.Greater(t, base.SharpeRatio, withRf.SharpeRatio)
	require.Equal(t, base.TotalReturn, withRf.TotalReturn)
	require.Equal(t, 0.5, NewCalculator(0.5).RiskFreeRate())
}

func TestCalculatePerformance_ScoresBounded(t *testing.T) {
	c := NewDefaultCalculator()
	cases := [][]float64{
		{100, 100},
		{100, 90},
		{100, 300, 900, 2700},
		{100, 10, 1, 0.5},
		{100, 101, 102, 103, 104, 105, 106, 107},
		{100, 140, 60, 150, 40, 160},
	}

	for _, values := range cases {
		m := c.CalculatePerformance(equitySeries("S", values...), "S")
		require.NotNil(t, m)
		for _, s := range []float64{m.PerformanceScore, m.RiskScore, m.TotalScore} {
			require.GreaterOrEqual(t, s, 0.0)
			require.LessOrEqual(t, s, 100.0)
		}
		require.InDelta(t, (m.PerformanceScore+m.RiskScore)/2, m.TotalScore, 0.01)
	}
}

func TestBreakdown_Clamped(t *testing.T) {
	tests := []struct {
		name string
		in   PerformanceMetrics
		want ScoreBreakdown
	}{
		{
			name: "全部最优",
			in:   PerformanceMetrics{TotalReturn: 0.5, SharpeRatio: 5, WinRate: 1},
			want: ScoreBreakdown{Return: 40, Sharpe: 30, Drawdown: 20, WinRate: 10, Margin: 40, Volatility: 30, RiskDrawdown: 30},
		},
		{
			name: "全部最差",
			in:   PerformanceMetrics{TotalReturn: -0.5, SharpeRatio: -3, MaxDrawdown: 0.6, AvgMarginRatio: 0.9, Volatility: 0.8},
			want: ScoreBreakdown{},
		},
		{
			name: "中间值",
			in:   PerformanceMetrics{TotalReturn: 0.05, SharpeRatio: 1, MaxDrawdown: 0.1, WinRate: 0.5, AvgMarginRatio: 0.25, Volatility: 0.25},
			want: ScoreBreakdown{Return: 20, Sharpe: 15, Drawdown: 10, WinRate: 5, Margin: 20, Volatility: 15, RiskDrawdown: 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Breakdown(&tt.in)
			require.InDelta(t, tt.want.Return, got.Return, 1e-9)
			require.InDelta(t, tt.want.Sharpe, got.Sharpe, 1e-9)
			require.InDelta(t, tt.want.Drawdown, got.Drawdown, 1e-9)
			require.InDelta(t, tt.want.WinRate, got.WinRate, 1e-9)
			require.InDelta(t, tt.want.Margin, got.Margin, 1e-9)
			require.InDelta(t, tt.want.Volatility, got.Volatility, 1e-9)
			require.InDelta(t, tt.want.RiskDrawdown, got.RiskDrawdown, 1e-9)
		})
	}
}

func TestTotalScore(t *testing.T) {
	require.Equal(t, 50.0, TotalScore(40, 60))
	require.Equal(t, 0.0, TotalScore(0, 0))
	require.Equal(t, 100.0, TotalScore(100, 100))
}

func TestRankScores(t *testing.T) {
	list := []*PerformanceMetrics{
		{StrategyCode: "A", TotalScore: 50},
		{StrategyCode: "B", TotalScore: 70},
		nil,
		{StrategyCode: "C", TotalScore: 70},
	}

	ranked := RankScores(list)
	require.Len(t, ranked, 3)
	require.Equal(t, "B", ranked[0].StrategyCode)
	require.Equal(t, 1, ranked[0].Rank)
	require.Equal(t, "C", ranked[1].StrategyCode)
	require.Equal(t, 2, ranked[1].Rank)
	require.Equal(t, "A", ranked[2].StrategyCode)
	require.Equal(t, 3, ranked[2].Rank)
}

func TestCalculateAll(t *testing.T) {
	c := NewDefaultCalculator()
	rows := append(equitySeries("GOOD", 100, 110, 121), equitySeries("BAD", 100, 80, 70)...)
	rows = append(rows, equitySeries("NEW", 100)...)

	ranked := c.CalculateAll(rows)
	require.Len(t, ranked, 2)
	require.Equal(t, "GOOD", ranked[0].StrategyCode)
	require.Equal(t, 1, ranked[0].Rank)
	require.Equal(t, "BAD", ranked[1].StrategyCode)
	require.Greater(t, ranked[0].TotalScore, ranked[1].TotalScore)
}
