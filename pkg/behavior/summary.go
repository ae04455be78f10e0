// 文件: pkg/behavior/summary.go
// 汇总: 合并两类预警、按策略分组排序、计算行为风险分

package behavior

import (
	"sort"

	"strategyscope.com/pkg/settlement"
)

// DetectAll 运行全部检测，按策略分组
//
// 每组按交易日降序、再按严重程度 (high > medium > low) 排列；
// 同日同级保持 浮亏加仓 在前、逆势加仓 在后的生成顺序。
// equity 不参与检测
func (d *Detector) DetectAll(
	positions []settlement.Position,
	trades []settlement.Trade,
	equity []settlement.DailyEquity,
) map[string][]Alert {
	all := d.DetectFloatingLossAdd(positions, trades)
	all = append(all, d.DetectCounterTrendAdd(positions, trades)...)

	grouped := make(map[string][]Alert)
	for _, a := range all {
		grouped[a.StrategyCode] = append(grouped[a.StrategyCode], a)
	}
	for code := range grouped {
		SortAlerts(grouped[code])
	}
	return grouped
}

// SortAlerts 交易日降序，同日按严重程度 (原地，稳定)
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].TradeDate != alerts[j].TradeDate {
			return alerts[i].TradeDate > alerts[j].TradeDate
		}
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
}

// Summarize 检测并汇总
func (d *Detector) Summarize(
	positions []settlement.Position,
	trades []settlement.Trade,
	equity []settlement.DailyEquity,
) map[string]Summary {
	return SummarizeAlerts(d.DetectAll(positions, trades, equity), equity)
}

// SummarizeAlerts 由 DetectAll 的分组结果生成每个策略的行为汇总
//
// 权益数据中出现但没有预警的策略也会给出一条零分汇总
func SummarizeAlerts(grouped map[string][]Alert, equity []settlement.DailyEquity) map[string]Summary {
	out := make(map[string]Summary, len(grouped))
	for _, row := range equity {
		if _, ok := out[row.StrategyCode]; !ok {
			out[row.StrategyCode] = Summary{StrategyCode: row.StrategyCode, RecentAlerts: []Alert{}}
		}
	}
	for code, alerts := range grouped {
		out[code] = summarizeAlerts(code, alerts)
	}
	return out
}

// summarizeAlerts alerts 需已排序
func summarizeAlerts(code string, alerts []Alert) Summary {
	s := Summary{StrategyCode: code, TotalAlerts: len(alerts)}
	for _, a := range alerts {
		switch a.Type {
		case AlertFloatingLossAdd:
			s.FloatingLossCount++
		case AlertCounterTrendAdd:
			s.CounterTrendCount++
		}
		if a.Severity == SeverityHigh {
			s.HighSeverityCount++
		}
	}
	s.RiskScore = RiskScore(s.FloatingLossCount, s.CounterTrendCount, s.HighSeverityCount)

	n := len(alerts)
	if n > recentAlertLimit {
		n = recentAlertLimit
	}
	s.RecentAlerts = append([]Alert{}, alerts[:n]...)
	return s
}

// RiskScore 行为风险分，上限 100
func RiskScore(floatingLoss, counterTrend, high int) int {
	score := floatingLoss*floatingLossWeight + counterTrend*counterTrendWeight + high*highSeverityWeight
	if score > maxRiskScore {
		return maxRiskScore
	}
	return score
}
