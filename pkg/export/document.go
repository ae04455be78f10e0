// 文件: pkg/export/document.go
// 前端展示用 JSON 文档
//
// 【结构】
//   scores    排名后的绩效评分
//   equity    每个策略的权益曲线，累计收益以百分比表示
//   risk      每个策略最新一天的风险暴露
//   behavior  每个策略的行为汇总
//   meta      生成时间、最新交易日、记录数

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"strategyscope.com/pkg/behavior"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/numeric"
	"strategyscope.com/pkg/settlement"
)

// Document 导出文档
type Document struct {
	Scores   []*metrics.PerformanceMetrics        `json:"scores"`
	Equity   map[string][]EquityPoint             `json:"equity"`
	Risk     map[string]*metrics.DailyRiskMetrics `json:"risk"`
	Behavior map[string]behavior.Summary          `json:"behavior"`
	Meta     Meta                                 `json:"meta"`
}

// EquityPoint 权益曲线上的一点
type EquityPoint struct {
	Date      string  `json:"date"`
	Equity    float64 `json:"equity"`
	ReturnPct float64 `json:"return_pct"` // (equity / 首日权益 - 1) * 100
}

// Meta 文档元信息
type Meta struct {
	RunID           string `json:"run_id,omitempty"`
	GeneratedAt     string `json:"generated_at"`
	LatestDate      string `json:"latest_date"`
	StrategyCount   int    `json:"strategy_count"`
	EquityRecords   int    `json:"equity_records"`
	PositionRecords int    `json:"position_records"`
	TradeRecords    int    `json:"trade_records"`
}

// Input 组装文档需要的全部结果
type Input struct {
	RunID       string
	GeneratedAt time.Time
	Batch       *settlement.Batch
	Scores      []*metrics.PerformanceMetrics
	LatestRisk  map[string]*metrics.DailyRiskMetrics
	Summaries   map[string]behavior.Summary
}

// Build 组装文档
func Build(in Input) *Document {
	doc := &Document{
		Scores:   in.Scores,
		Equity:   make(map[string][]EquityPoint),
		Risk:     in.LatestRisk,
		Behavior: in.Summaries,
	}
	if doc.Scores == nil {
		doc.Scores = []*metrics.PerformanceMetrics{}
	}
	if doc.Risk == nil {
		doc.Risk = map[string]*metrics.DailyRiskMetrics{}
	}
	if doc.Behavior == nil {
		doc.Behavior = map[string]behavior.Summary{}
	}

	doc.Meta = Meta{
		RunID:       in.RunID,
		GeneratedAt: in.GeneratedAt.Format(time.RFC3339),
	}
	if in.Batch == nil {
		return doc
	}

	for code, rows := range settlement.GroupEquityByStrategy(in.Batch.Equity) {
		doc.Equity[code] = EquityCurve(rows)
	}
	doc.Meta.LatestDate = in.Batch.LatestDate()
	doc.Meta.StrategyCount = len(in.Batch.Strategies())
	doc.Meta.EquityRecords = len(in.Batch.Equity)
	doc.Meta.PositionRecords = len(in.Batch.Positions)
	doc.Meta.TradeRecords = len(in.Batch.Trades)
	return doc
}

// EquityCurve 权益曲线，rows 需按日期升序
//
// 首日权益 <= 0 时收益率全部为 0
func EquityCurve(rows []settlement.DailyEquity) []EquityPoint {
	out := make([]EquityPoint, len(rows))
	if len(rows) == 0 {
		return out
	}
	first := rows[0].Equity
	for i, r := range rows {
		pct := 0.0
		if first > 0 {
			pct = (r.Equity/first - 1) * 100
		}
		out[i] = EquityPoint{
			Date:      r.TradeDate,
			Equity:    r.Equity,
			ReturnPct: numeric.Round(pct, 4),
		}
	}
	return out
}

// WriteFile 写入文件 (先写临时文件再 rename)
func WriteFile(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export document: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename export file: %w", err)
	}
	return nil
}
