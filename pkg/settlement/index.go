// 文件: pkg/settlement/index.go
// 记录分组索引
//
// 一次调用内先按 (策略, 交易日) / (策略, 交易日, 合约) 建好索引再遍历，
// 避免对整个切片重复线性扫描

package settlement

import (
	"sort"
)

// DayKey (策略, 交易日)
type DayKey struct {
	StrategyCode string
	TradeDate    string
}

// ContractKey (策略, 交易日, 合约)
type ContractKey struct {
	StrategyCode string
	TradeDate    string
	Contract     string
}

// GroupEquityByStrategy 按策略分组，每组按交易日升序
func GroupEquityByStrategy(rows []DailyEquity) map[string][]DailyEquity {
	out := make(map[string][]DailyEquity)
	for _, r := range rows {
		out[r.StrategyCode] = append(out[r.StrategyCode], r)
	}
	for code := range out {
		SortEquityByDate(out[code])
	}
	return out
}

// SortEquityByDate 按交易日升序 (稳定排序，原地)
//
// 交易日是 YYYY-MM-DD 字符串，字典序即时间序
func SortEquityByDate(rows []DailyEquity) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TradeDate < rows[j].TradeDate
	})
}

// GroupPositionsByDay 按 (策略, 交易日) 分组
func GroupPositionsByDay(positions []Position) map[DayKey][]Position {
	out := make(map[DayKey][]Position)
	for _, p := range positions {
		k := DayKey{StrategyCode: p.StrategyCode, TradeDate: p.TradeDate}
		out[k] = append(out[k], p)
	}
	return out
}

// GroupPositionsByContract 按 (策略, 交易日, 合约) 分组
func GroupPositionsByContract(positions []Position) map[ContractKey][]Position {
	out := make(map[ContractKey][]Position)
	for _, p := range positions {
		k := ContractKey{StrategyCode: p.StrategyCode, TradeDate: p.TradeDate, Contract: p.Contract}
		out[k] = append(out[k], p)
	}
	return out
}

// GroupTradesByDay 按 (策略, 交易日) 分组
func GroupTradesByDay(trades []Trade) map[DayKey][]Trade {
	out := make(map[DayKey][]Trade)
	for _, t := range trades {
		k := DayKey{StrategyCode: t.StrategyCode, TradeDate: t.TradeDate}
		out[k] = append(out[k], t)
	}
	return out
}

// OpenTrades 过滤出开仓成交，保持原顺序
func OpenTrades(trades []Trade) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsOpen() {
			out = append(out, t)
		}
	}
	return out
}

// StrategyCodes 出现过的所有策略代码 (升序去重)
func StrategyCodes(equity []DailyEquity, positions []Position, trades []Trade) []string {
	seen := make(map[string]struct{})
	for _, r := range equity {
		seen[r.StrategyCode] = struct{}{}
	}
	for _, p := range positions {
		seen[p.StrategyCode] = struct{}{}
	}
	for _, t := range trades {
		seen[t.StrategyCode] = struct{}{}
	}

	codes := make([]string, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
