// 文件: pkg/behavior/detector.go
// 行为检测器
//
// 【检测单位】
// 每一笔开仓成交是一个检测事件，一笔成交最多产生一条同类预警
//
// 【浮亏加仓】
//   同策略、同日、同合约所有持仓的浮动盈亏求和 < 0 时触发
//   loss_ratio = |浮亏| / 持仓市值 (市值 <= 0 时为 0)
//   > 5% high / > 2% medium / 其余 low
//
// 【逆势加仓】
//   change     = 今结算 - 昨结算     (昨结算 <= 0 时为 0)
//   change_pct = change / 昨结算
//   买开且 change < 0，或卖开且 change > 0 时触发
//   |change_pct| > 3% high / > 1.5% medium / 其余 low
//   当日该合约没有持仓记录 (没有价格) 的成交直接跳过

package behavior

import (
	"fmt"
	"math"

	"strategyscope.com/pkg/numeric"
	"strategyscope.com/pkg/settlement"
)

// Detector 行为检测器，无状态
type Detector struct{}

// NewDetector 创建检测器
func NewDetector() *Detector {
	return &Detector{}
}

// =============================================================================
// 浮亏加仓
// =============================================================================

// DetectFloatingLossAdd 检测浮亏加仓
func (d *Detector) DetectFloatingLossAdd(positions []settlement.Position, trades []settlement.Trade) []Alert {
	type exposure struct {
		pnl   float64
		value float64
	}
	byContract := make(map[settlement.ContractKey]exposure)
	for k, group := range settlement.GroupPositionsByContract(positions) {
		var e exposure
		for _, p := range group {
			e.pnl += p.FloatingPnL
			e.value += p.PositionValue
		}
		byContract[k] = e
	}

	var alerts []Alert
	for _, t := range settlement.OpenTrades(trades) {
		e, ok := byContract[t.ContractKey()]
		if !ok || e.pnl >= 0 {
			continue
		}

		lossRatio := numeric.SafeDiv(math.Abs(e.pnl), e.value)
		alerts = append(alerts, Alert{
			StrategyCode: t.StrategyCode,
			TradeDate:    t.TradeDate,
			Contract:     t.Contract,
			TradeID:      t.TradeID,
			Type:         AlertFloatingLossAdd,
			Severity:     floatingLossSeverity(lossRatio),
			Description: fmt.Sprintf("浮亏加仓: %s 浮亏%.2f元(%.2f%%)时加仓%d手",
				t.Contract, math.Abs(e.pnl), lossRatio*100, t.Quantity),
			Details: map[string]any{
				"floating_pnl":   numeric.Round(e.pnl, 2),
				"loss_ratio":     numeric.Round(lossRatio, 4),
				"add_quantity":   t.Quantity,
				"add_direction":  string(t.Direction),
				"add_price":      t.Price,
				"position_value": numeric.Round(e.value, 2),
			},
		})
	}
	return alerts
}

func floatingLossSeverity(lossRatio float64) Severity {
	switch {
	case lossRatio > FloatingLossHighRatio:
		return SeverityHigh
	case lossRatio > FloatingLossMediumRatio:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// =============================================================================
// 逆势加仓
// =============================================================================

// priceMove 某合约某日的结算价变动
type priceMove struct {
	settlement     float64
	prevSettlement float64
	change         float64
	changePct      float64
}

// DetectCounterTrendAdd 检测逆势加仓
func (d *Detector) DetectCounterTrendAdd(positions []settlement.Position, trades []settlement.Trade) []Alert {
	// 同一合约同日多条持仓时以最后一条为准
	moves := make(map[settlement.ContractKey]priceMove)
	for k, group := range settlement.GroupPositionsByContract(positions) {
		p := group[len(group)-1]
		m := priceMove{settlement: p.Settlement, prevSettlement: p.PrevSettlement}
		if p.PrevSettlement > 0 {
			m.change = p.Settlement - p.PrevSettlement
			m.changePct = m.change / p.PrevSettlement
		}
		moves[k] = m
	}

	var alerts []Alert
	for _, t := range settlement.OpenTrades(trades) {
		m, ok := moves[t.ContractKey()]
		if !ok {
			continue
		}

		var desc string
		switch {
		case t.Direction == settlement.DirectionBuy && m.change < 0:
			desc = fmt.Sprintf("逆势加仓: %s 价格下跌%.2f%%时买入, 开仓%d手",
				t.Contract, math.Abs(m.changePct)*100, t.Quantity)
		case t.Direction == settlement.DirectionSell && m.change > 0:
			desc = fmt.Sprintf("逆势加仓: %s 价格上涨%.2f%%时卖出, 开仓%d手",
				t.Contract, math.Abs(m.changePct)*100, t.Quantity)
		default:
			continue
		}

		alerts = append(alerts, Alert{
			StrategyCode: t.StrategyCode,
			TradeDate:    t.TradeDate,
			Contract:     t.Contract,
			TradeID:      t.TradeID,
			Type:         AlertCounterTrendAdd,
			Severity:     counterTrendSeverity(m.changePct),
			Description:  desc,
			Details: map[string]any{
				"direction":       string(t.Direction),
				"price_change":    numeric.Round(m.change, 2),
				"change_pct":      numeric.Round(m.changePct, 4),
				"quantity":        t.Quantity,
				"price":           t.Price,
				"settlement":      m.settlement,
				"prev_settlement": m.prevSettlement,
			},
		})
	}
	return alerts
}

func counterTrendSeverity(changePct float64) Severity {
	abs := math.Abs(changePct)
	switch {
	case abs > CounterTrendHighPct:
		return SeverityHigh
	case abs > CounterTrendMediumPct:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
