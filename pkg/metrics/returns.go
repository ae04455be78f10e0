// 文件: pkg/metrics/returns.go
// 日收益 / 累计收益 / 回撤序列
//
// 【公式】
// daily_return_t = (equity_t - equity_{t-1} - deposit_withdraw_t) / equity_{t-1}
// 首日收益定义为 0；前一日权益为 0 (或负) 时当日收益按 0 处理
//
// cumulative_t = Π(1 + r_i) - 1
// drawdown_t   = (running_max_t - equity_t) / running_max_t

package metrics

import (
	"strategyscope.com/pkg/numeric"
	"strategyscope.com/pkg/settlement"
)

// DailyReturns 计算一个策略的日收益序列
//
// 入参顺序无要求，内部按交易日排序 (不修改调用方切片)
func (c *Calculator) DailyReturns(series []settlement.DailyEquity) []DailyReturn {
	if len(series) == 0 {
		return nil
	}

	rows := make([]settlement.DailyEquity, len(series))
	copy(rows, series)
	settlement.SortEquityByDate(rows)

	out := make([]DailyReturn, len(rows))
	growth := 1.0
	runningMax := 0.0
	maxDD := 0.0

	for i, row := range rows {
		r := 0.0
		if i > 0 {
			prev := rows[i-1].Equity
			r = numeric.SafeDiv(row.Equity-prev-row.DepositWithdraw, prev)
		}
		growth *= 1 + r

		if i == 0 || row.Equity > runningMax {
			runningMax = row.Equity
		}
		dd := 0.0
		if runningMax > 0 {
			dd = (runningMax - row.Equity) / runningMax
		}
		if dd > maxDD {
			maxDD = dd
		}

		out[i] = DailyReturn{
			TradeDate:        row.TradeDate,
			Equity:           row.Equity,
			DailyReturn:      r,
			CumulativeReturn: growth - 1,
			RunningMax:       runningMax,
			Drawdown:         dd,
			MaxDrawdown:      maxDD,
		}
	}
	return out
}
