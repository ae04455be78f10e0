// 文件: pkg/metrics/daily_risk.go
// 单日风险暴露
//
// 【口径】
// - 多头持仓 (LongQty > 0) 的市值计入多头敞口，空头同理；锁仓合约两边都计
// - 集中度按品种 (合约字母前缀) 聚合市值后降序取前 1 / 前 3
// - 权益 <= 0 时无法计算比例，返回 nil

package metrics

import (
	"sort"
	"strings"

	"strategyscope.com/pkg/numeric"
	"strategyscope.com/pkg/settlement"
)

// CalculateDailyRisk 计算某策略某日的风险暴露
//
// positions / trades 可以是全量，内部按 (策略, 交易日) 过滤
func (c *Calculator) CalculateDailyRisk(
	equity settlement.DailyEquity,
	positions []settlement.Position,
	trades []settlement.Trade,
) *DailyRiskMetrics {
	if equity.Equity <= 0 {
		return nil
	}

	var longExp, shortExp float64
	rootValues := make(map[string]float64)

	for i := range positions {
		p := &positions[i]
		if !sameDay(p.StrategyCode, p.TradeDate, equity) {
			continue
		}
		if p.IsLong() {
			longExp += p.PositionValue
		}
		if p.IsShort() {
			shortExp += p.PositionValue
		}
		rootValues[ContractRoot(p.Contract)] += p.PositionValue
	}

	tradeCount := 0
	turnover := 0.0
	for i := range trades {
		t := &trades[i]
		if !sameDay(t.StrategyCode, t.TradeDate, equity) {
			continue
		}
		tradeCount++
		turnover += t.Amount
	}

	total := longExp + shortExp
	top1, top3 := concentration(rootValues, total)

	return &DailyRiskMetrics{
		StrategyCode:       equity.StrategyCode,
		TradeDate:          equity.TradeDate,
		MarginRatio:        numeric.Round(equity.MarginUsed/equity.Equity, ratioPlaces),
		LongExposure:       numeric.Round(longExp, amountPlaces),
		ShortExposure:      numeric.Round(shortExp, amountPlaces),
		NetExposure:        numeric.Round((longExp-shortExp)/equity.Equity, returnPlaces),
		GrossExposure:      numeric.Round((longExp+shortExp)/equity.Equity, returnPlaces),
		TotalPositionValue: numeric.Round(total, amountPlaces),
		Top1Concentration:  numeric.Round(top1, ratioPlaces),
		Top3Concentration:  numeric.Round(top3, ratioPlaces),
		PositionCount:      len(rootValues),
		TradeCount:         tradeCount,
		Turnover:           numeric.Round(turnover, amountPlaces),
	}
}

// sameDay 记录是否属于该权益行的 (策略, 交易日)
func sameDay(strategyCode, tradeDate string, equity settlement.DailyEquity) bool {
	return strategyCode == equity.StrategyCode && tradeDate == equity.TradeDate
}

// concentration 前 1 / 前 3 品种市值占比
//
// 分母为总持仓市值 (多 + 空)，锁仓合约在分母中计两次、在品种中计一次；
// 总持仓市值为 0 时两者都是 0
func concentration(rootValues map[string]float64, total float64) (top1, top3 float64) {
	if total <= 0 || len(rootValues) == 0 {
		return 0, 0
	}

	values := make([]float64, 0, len(rootValues))
	for _, v := range rootValues {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	top1 = values[0] / total
	for i := 0; i < len(values) && i < 3; i++ {
		top3 += values[i]
	}
	top3 /= total

	return numeric.Clamp(top1, 0, 1), numeric.Clamp(top3, 0, 1)
}

// ContractRoot 合约品种代码: 取字母部分并转大写
//
//	rb2505 -> RB
//	IF2503 -> IF
//
// 没有字母时原样返回
func ContractRoot(contract string) string {
	var b strings.Builder
	for _, r := range contract {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return strings.ToUpper(contract)
	}
	return strings.ToUpper(b.String())
}
