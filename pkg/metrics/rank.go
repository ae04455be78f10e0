// 文件: pkg/metrics/rank.go
// 策略排名

package metrics

import (
	"sort"

	"strategyscope.com/pkg/settlement"
)

// RankScores 按综合分降序排名，名次从 1 开始
//
// 同分保持输入顺序；返回新切片，元素的 Rank 字段被填充
func RankScores(list []*PerformanceMetrics) []*PerformanceMetrics {
	out := make([]*PerformanceMetrics, 0, len(list))
	for _, m := range list {
		if m != nil {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	for i, m := range out {
		m.Rank = i + 1
	}
	return out
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}

func sortEquityByStrategyDate(rows []settlement.DailyEquity) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StrategyCode != rows[j].StrategyCode {
			return rows[i].StrategyCode < rows[j].StrategyCode
		}
		return rows[i].TradeDate < rows[j].TradeDate
	})
}
