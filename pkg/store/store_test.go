package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"strategyscope.com/pkg/behavior"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/settlement"
)

// setupDB 每个测试一个独立的内存库
func setupDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(Config{
		Driver:       "sqlite",
		DSN:          "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestEnsureStrategy(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRepository(setupDB(t))

	s1, err := repo.EnsureStrategy(ctx, "ALPHA")
	require.NoError(t, err)
	require.NotZero(t, s1.ID)

	s2, err := repo.EnsureStrategy(ctx, "ALPHA")
	require.NoError(t, err)
	require.Equal(t, s1.ID, s2.ID)

	got, err := repo.GetStrategy(ctx, "ALPHA")
	require.NoError(t, err)
	require.Equal(t, s1.ID, got.ID)

	_, err = repo.GetStrategy(ctx, "MISSING")
	require.ErrorIs(t, err, ErrStrategyNotFound)
}

func TestSaveEquity_Upsert(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewGormRepository(db)
	s, err := repo.EnsureStrategy(ctx, "ALPHA")
	require.NoError(t, err)

	rows := []settlement.DailyEquity{
		{StrategyCode: "ALPHA", TradeDate: "2025-03-07", Equity: 100},
		{StrategyCode: "ALPHA", TradeDate: "2025-03-10", Equity: 101},
	}
	require.NoError(t, repo.SaveEquity(ctx, s.ID, rows))

	rows[1].Equity = 105
	require.NoError(t, repo.SaveEquity(ctx, s.ID, rows[1:]))

	require.Equal(t, int64(2), count(t, db, &EquityRow{}))

	var got EquityRow
	require.NoError(t, db.Where("strategy_id = ? AND trade_date = ?", s.ID, "2025-03-10").First(&got).Error)
	require.Equal(t, 105.0, got.Equity)
}

func TestReplacePositionsAndTrades(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewGormRepository(db)
	s, _ := repo.EnsureStrategy(ctx, "ALPHA")

	positions := []settlement.Position{
		{TradeDate: "2025-03-10", Contract: "rb2505", LongQty: 1},
		{TradeDate: "2025-03-10", Contract: "hc2505", ShortQty: 2},
		{TradeDate: "2025-03-07", Contract: "rb2505", LongQty: 1},
	}
	require.NoError(t, repo.ReplacePositions(ctx, s.ID, positions))
	require.Equal(t, int64(3), count(t, db, &PositionRow{}))

	// 重跑 03-10，只剩一条
	require.NoError(t, repo.ReplacePositions(ctx, s.ID, positions[:1]))
	require.Equal(t, int64(2), count(t, db, &PositionRow{}))

	trades := []settlement.Trade{
		{TradeDate: "2025-03-10", Contract: "rb2505", TradeID: "T1", Direction: settlement.DirectionBuy, OffsetFlag: settlement.OffsetOpen},
		{TradeDate: "2025-03-10", Contract: "rb2505", TradeID: "T2", Direction: settlement.DirectionSell, OffsetFlag: settlement.OffsetClose},
	}
	require.NoError(t, repo.ReplaceTrades(ctx, s.ID, trades))
	require.NoError(t, repo.ReplaceTrades(ctx, s.ID, trades))
	require.Equal(t, int64(2), count(t, db, &TradeRow{}))

	var tr TradeRow
	require.NoError(t, db.Where("trade_id = ?", "T1").First(&tr).Error)
	require.Equal(t, "buy", tr.Direction)
	require.Equal(t, "open", tr.OffsetFlag)
}

func TestSaveDailyMetrics_Upsert(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewGormRepository(db)
	s, _ := repo.EnsureStrategy(ctx, "ALPHA")

	m := &metrics.DailyRiskMetrics{StrategyCode: "ALPHA", TradeDate: "2025-03-10", MarginRatio: 0.2, Top1Concentration: 0.6}
	require.NoError(t, repo.SaveDailyMetrics(ctx, s.ID, []*metrics.DailyRiskMetrics{m, nil}))

	m.MarginRatio = 0.3
	require.NoError(t, repo.SaveDailyMetrics(ctx, s.ID, []*metrics.DailyRiskMetrics{m}))

	require.Equal(t, int64(1), count(t, db, &DailyMetricsRow{}))
	var got DailyMetricsRow
	require.NoError(t, db.First(&got).Error)
	require.Equal(t, 0.3, got.MarginRatio)
	require.Equal(t, 0.6, got.Top1Concentration)
}

func TestScores(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRepository(setupDB(t))

	_, err := repo.ScoreByStrategy(ctx, "ALPHA")
	require.ErrorIs(t, err, ErrScoreNotFound)

	latest, err := repo.LatestScores(ctx)
	require.NoError(t, err)
	require.Empty(t, latest)

	a, _ := repo.EnsureStrategy(ctx, "ALPHA")
	b, _ := repo.EnsureStrategy(ctx, "BETA")

	// 旧的一天
	require.NoError(t, repo.SaveScore(ctx, a.ID, &metrics.PerformanceMetrics{StrategyCode: "ALPHA", CalcDate: "2025-03-07", TotalScore: 10, Rank: 1}))
	// 最新一天
	require.NoError(t, repo.SaveScore(ctx, a.ID, &metrics.PerformanceMetrics{StrategyCode: "ALPHA", CalcDate: "2025-03-10", TotalScore: 40, Rank: 2}))
	require.NoError(t, repo.SaveScore(ctx, b.ID, &metrics.PerformanceMetrics{StrategyCode: "BETA", CalcDate: "2025-03-10", TotalScore: 70, Rank: 1}))
	// 同键覆盖
	require.NoError(t, repo.SaveScore(ctx, a.ID, &metrics.PerformanceMetrics{StrategyCode: "ALPHA", CalcDate: "2025-03-10", TotalScore: 45, Rank: 2}))

	latest, err = repo.LatestScores(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, "BETA", latest[0].StrategyCode)
	require.Equal(t, 1, latest[0].Rank)
	require.Equal(t, "ALPHA", latest[1].StrategyCode)
	require.Equal(t, 45.0, latest[1].TotalScore)

	got, err := repo.ScoreByStrategy(ctx, "ALPHA")
	require.NoError(t, err)
	require.Equal(t, "2025-03-10", got.CalcDate)
}

func TestReplaceAlerts(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewGormRepository(db)
	s, _ := repo.EnsureStrategy(ctx, "ALPHA")

	alerts := []behavior.Alert{
		{StrategyCode: "ALPHA", TradeDate: "2025-03-07", Contract: "rb2505", Type: behavior.AlertFloatingLossAdd,
			Severity: behavior.SeverityLow, Details: map[string]any{"loss_ratio": 0.01}},
		{StrategyCode: "ALPHA", TradeDate: "2025-03-10", Contract: "rb2505", Type: behavior.AlertCounterTrendAdd,
			Severity: behavior.SeverityMedium, Details: map[string]any{"change_pct": -0.02}},
		{StrategyCode: "ALPHA", TradeDate: "2025-03-10", Contract: "hc2505", Type: behavior.AlertFloatingLossAdd,
			Severity: behavior.SeverityHigh, Details: map[string]any{"loss_ratio": 0.06}},
	}
	rows := make([]AlertRow, len(alerts))
	for i, a := range alerts {
		row, err := NewAlertRow(0, int64(i+1), a)
		require.NoError(t, err)
		rows[i] = row
	}
	require.NoError(t, repo.ReplaceAlerts(ctx, s.ID, nil, rows))
	require.Equal(t, int64(3), count(t, db, &AlertRow{}))

	got, err := repo.AlertsByStrategy(ctx, "ALPHA", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "hc2505", got[0].Contract)
	require.Equal(t, behavior.SeverityHigh, got[0].Severity)
	require.Equal(t, 0.06, got[0].Details["loss_ratio"])
	require.Equal(t, "2025-03-07", got[2].TradeDate)

	// 03-10 重跑后没有预警
	require.NoError(t, repo.ReplaceAlerts(ctx, s.ID, []string{"2025-03-10"}, nil))
	require.Equal(t, int64(1), count(t, db, &AlertRow{}))
}

func setupRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 14})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skipping test; redis not available: %v", err)
	}
	client.FlushDB(context.Background())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedRepository(t *testing.T) {
	ctx := context.Background()
	rds := setupRedis(t)
	db := setupDB(t)
	repo := NewCachedRepository(NewGormRepository(db), rds, time.Minute)

	s, err := repo.EnsureStrategy(ctx, "ALPHA")
	require.NoError(t, err)
	require.NoError(t, repo.SaveScore(ctx, s.ID, &metrics.PerformanceMetrics{StrategyCode: "ALPHA", CalcDate: "2025-03-10", TotalScore: 40, Rank: 1}))

	// 首次读回填缓存
	latest, err := repo.LatestScores(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	exists, err := rds.Exists(ctx, cacheKeyLatest).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), exists)

	// 绕过装饰器直接改库，缓存仍返回旧值
	require.NoError(t, db.Model(&ScoreRow{}).Where("strategy_code = ?", "ALPHA").Update("total_score", 99).Error)
	latest, err = repo.LatestScores(ctx)
	require.NoError(t, err)
	require.Equal(t, 40.0, latest[0].TotalScore)

	// 通过装饰器写入会清缓存
	require.NoError(t, repo.SaveScore(ctx, s.ID, &metrics.PerformanceMetrics{StrategyCode: "ALPHA", CalcDate: "2025-03-10", TotalScore: 50, Rank: 1}))
	exists, err = rds.Exists(ctx, cacheKeyLatest).Result()
	require.NoError(t, err)
	require.Equal(t, int64(0), exists)

	got, err := repo.ScoreByStrategy(ctx, "ALPHA")
	require.NoError(t, err)
	require.Equal(t, 50.0, got.TotalScore)

	_, err = repo.ScoreByStrategy(ctx, "MISSING")
	require.ErrorIs(t, err, ErrScoreNotFound)
}
