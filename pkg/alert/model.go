package alert

import (
	"context"
	"strconv"
	"strings"

	"strategyscope.com/pkg/behavior"
)

// Record 预警流中的一条记录
// EventID 由上游 (pipeline) 用雪花算法生成，全局唯一
type Record struct {
	EventID int64          `json:"event_id"`
	RunID   int64          `json:"run_id"`
	Alert   behavior.Alert `json:"alert"`
}

// Feed 每个策略保留最近 N 条行为预警
// 读取时最近交易日在前，同日按严重程度
type Feed interface {
	// Push 写入一批记录，超出容量的最旧记录被淘汰
	Push(ctx context.Context, records []Record) error

	// Recent 读取某策略最近 limit 条 (limit <= 0 表示全部)
	Recent(ctx context.Context, strategyCode string, limit int) ([]Record, error)

	// Clear 删除某策略的全部记录
	Clear(ctx context.Context, strategyCode string) error
}

// DefaultMaxPerStrategy 默认每个策略保留条数
const DefaultMaxPerStrategy = 200

// score 排序分值: 交易日 YYYYMMDD * 10 + 严重程度权重
// 分值越大越靠前
func score(a behavior.Alert) float64 {
	day, err := strconv.ParseFloat(strings.ReplaceAll(a.TradeDate, "-", ""), 64)
	if err != nil {
		day = 0
	}
	return day*10 + float64(2-a.Severity.Rank())
}

// newer 按 score 降序，同分按 EventID 降序
func newer(a, b Record) bool {
	sa, sb := score(a.Alert), score(b.Alert)
	if sa != sb {
		return sa > sb
	}
	return a.EventID > b.EventID
}
