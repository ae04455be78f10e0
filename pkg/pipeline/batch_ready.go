// 文件: pkg/pipeline/batch_ready.go
// 结算数据就绪通知
//
// 上游解析完结算单后发送，两种形式二选一:
//   {"path": "/data/settlement/2025-03-10.json"}   批次文件路径
//   {"batch": {"equity": [...], ...}}              批次内容

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"strategyscope.com/pkg/settlement"
)

var ErrEmptyNotification = errors.New("batch notification has neither path nor batch")

// BatchReady 就绪通知
type BatchReady struct {
	Path      string            `json:"path,omitempty"`
	TradeDate string            `json:"trade_date,omitempty"`
	Batch     *settlement.Batch `json:"batch,omitempty"`
}

// Load 取出批次，内嵌批次优先
func (n *BatchReady) Load() (*settlement.Batch, error) {
	if n.Batch != nil {
		if err := n.Batch.Validate(); err != nil {
			return nil, err
		}
		return n.Batch, nil
	}
	if n.Path == "" {
		return nil, ErrEmptyNotification
	}
	return settlement.LoadFile(n.Path)
}

// HandleBatchReady 解析通知并运行
func (r *Runner) HandleBatchReady(ctx context.Context, data []byte) error {
	var n BatchReady
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode batch notification: %w", err)
	}
	batch, err := n.Load()
	if err != nil {
		return err
	}

	r.log.Info().Str("path", n.Path).Str("trade_date", n.TradeDate).Msg("batch ready")
	_, err = r.Run(ctx, batch)
	return err
}

// BatchHandler 订阅回调用的处理函数
//
// 批次串行执行；ctx 取消后仍把当前批次写完，
// 调用方在函数返回后才确认消息，关停时不会丢掉已确认的批次
func (r *Runner) BatchHandler(ctx context.Context) func(data []byte) error {
	runCtx := context.WithoutCancel(ctx)
	return func(data []byte) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.HandleBatchReady(runCtx, data)
	}
}
