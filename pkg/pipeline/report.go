// 文件: pkg/pipeline/report.go
// 读取已入库的结果: 最新排名 + 数据库预警 + 预警流

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"strategyscope.com/pkg/alert"
	"strategyscope.com/pkg/behavior"
	"strategyscope.com/pkg/store"
)

var ErrNoStore = errors.New("report needs the database, store is disabled")

// StrategyReport 单个策略的已入库结果
type StrategyReport struct {
	Strategy *store.Strategy
	Score    *store.ScoreRow  // 从未评分时为 nil
	Alerts   []behavior.Alert // 数据库，交易日降序
	Recent   []alert.Record   // 预警流，最近在前
}

// Report 读取策略报告
//
// codes 为空时取最近计算日的全部策略，按名次；
// 指定的策略不存在时返回 store.ErrStrategyNotFound
func (c *Components) Report(ctx context.Context, codes []string, limit int) ([]StrategyReport, error) {
	if c.Repo == nil {
		return nil, ErrNoStore
	}

	if len(codes) == 0 {
		latest, err := c.Repo.LatestScores(ctx)
		if err != nil {
			return nil, fmt.Errorf("latest scores: %w", err)
		}
		for _, s := range latest {
			codes = append(codes, s.StrategyCode)
		}
	}

	out := make([]StrategyReport, 0, len(codes))
	for _, code := range codes {
		rep, err := c.strategyReport(ctx, code, limit)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", code, err)
		}
		out = append(out, rep)
	}
	return out, nil
}

func (c *Components) strategyReport(ctx context.Context, code string, limit int) (StrategyReport, error) {
	st, err := c.Repo.GetStrategy(ctx, code)
	if err != nil {
		return StrategyReport{}, err
	}
	rep := StrategyReport{Strategy: st}

	score, err := c.Repo.ScoreByStrategy(ctx, code)
	switch {
	case err == nil:
		rep.Score = score
	case !errors.Is(err, store.ErrScoreNotFound):
		return StrategyReport{}, err
	}

	if rep.Alerts, err = c.Repo.AlertsByStrategy(ctx, code, limit); err != nil {
		return StrategyReport{}, err
	}
	if rep.Recent, err = c.Feed.Recent(ctx, code, limit); err != nil {
		return StrategyReport{}, err
	}
	return rep, nil
}

// ClearFeed 清空策略的预警流，不影响数据库
func (c *Components) ClearFeed(ctx context.Context, codes ...string) error {
	for _, code := range codes {
		if err := c.Feed.Clear(ctx, code); err != nil {
			return fmt.Errorf("clear alert feed %s: %w", code, err)
		}
	}
	return nil
}
