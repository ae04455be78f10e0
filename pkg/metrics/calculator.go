// 文件: pkg/metrics/calculator.go
// 指标计算器
//
// 【设计】
// - 无状态，唯一配置是无风险利率，构造后不可变
// - 不做 IO、不加锁，多个 goroutine 可共用同一个 Calculator

package metrics

import (
	"strategyscope.com/pkg/settlement"
)

// Calculator 指标计算器
type Calculator struct {
	riskFreeRate float64
}

// NewCalculator 创建计算器
func NewCalculator(riskFreeRate float64) *Calculator {
	return &Calculator{riskFreeRate: riskFreeRate}
}

// NewDefaultCalculator 无风险利率 3%
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultRiskFreeRate)
}

// RiskFreeRate 年化无风险利率
func (c *Calculator) RiskFreeRate() float64 {
	return c.riskFreeRate
}

// CalculateAll 对批次内每个策略计算绩效并排名
//
// 历史不足的策略不出现在结果中
func (c *Calculator) CalculateAll(equity []settlement.DailyEquity) []*PerformanceMetrics {
	groups := settlement.GroupEquityByStrategy(equity)
	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	codes = sortedStrings(codes)

	out := make([]*PerformanceMetrics, 0, len(codes))
	for _, code := range codes {
		if m := c.CalculatePerformance(groups[code], code); m != nil {
			out = append(out, m)
		}
	}
	return RankScores(out)
}

// CalculateAllDailyRisk 对批次内每一条权益记录计算当日风险
//
// 权益非正的日子跳过
func (c *Calculator) CalculateAllDailyRisk(
	equity []settlement.DailyEquity,
	positions []settlement.Position,
	trades []settlement.Trade,
) []*DailyRiskMetrics {
	posByDay := settlement.GroupPositionsByDay(positions)
	tradesByDay := settlement.GroupTradesByDay(trades)

	rows := make([]settlement.DailyEquity, len(equity))
	copy(rows, equity)
	sortEquityByStrategyDate(rows)

	out := make([]*DailyRiskMetrics, 0, len(rows))
	for _, row := range rows {
		k := settlement.DayKey{StrategyCode: row.StrategyCode, TradeDate: row.TradeDate}
		if m := c.CalculateDailyRisk(row, posByDay[k], tradesByDay[k]); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// LatestDailyRisk 批次最新交易日的风险快照
//
// 最新交易日取整个批次权益数据中的最大日期，当天没有权益记录的策略不出现在结果中
func (c *Calculator) LatestDailyRisk(
	equity []settlement.DailyEquity,
	positions []settlement.Position,
	trades []settlement.Trade,
) map[string]*DailyRiskMetrics {
	latestDate := ""
	for _, r := range equity {
		if r.TradeDate > latestDate {
			latestDate = r.TradeDate
		}
	}

	out := make(map[string]*DailyRiskMetrics)
	for _, r := range equity {
		if r.TradeDate != latestDate {
			continue
		}
		if m := c.CalculateDailyRisk(r, positions, trades); m != nil {
			out[r.StrategyCode] = m
		}
	}
	return out
}
