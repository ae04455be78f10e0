// 文件: pkg/settlement/batch.go
// 批次: 一次分析作业的全部输入
//
// 【文件格式】
// 解析层输出的 JSON 文档:
//   {"equity": [...], "positions": [...], "trades": [...]}

package settlement

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Batch 一次分析的输入集合
type Batch struct {
	Equity    []DailyEquity `json:"equity"`
	Positions []Position    `json:"positions"`
	Trades    []Trade       `json:"trades"`
}

// Validate 至少要有一条权益记录
func (b *Batch) Validate() error {
	if len(b.Equity) == 0 {
		return ErrEmptyBatch
	}
	return nil
}

// Strategies 批次内所有策略代码
func (b *Batch) Strategies() []string {
	return StrategyCodes(b.Equity, b.Positions, b.Trades)
}

// LatestDate 批次内最大交易日
func (b *Batch) LatestDate() string {
	latest := ""
	for _, r := range b.Equity {
		if r.TradeDate > latest {
			latest = r.TradeDate
		}
	}
	return latest
}

// Decode 从 reader 解析批次
func Decode(r io.Reader) (*Batch, error) {
	var b Batch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadFile 从文件读取批次
func LoadFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
