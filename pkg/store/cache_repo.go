// 文件: pkg/store/cache_repo.go
// 评分读取 Redis 缓存层
//
// 【设计模式】装饰器
// - 包装底层 Repository，只给评分读接口加缓存
// - 其余方法透传
//
// 【缓存策略】Cache Aside
// - 读: 先查 Redis，miss 查 DB 并回填
// - 写评分: 先写 DB，成功后删除缓存

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"strategyscope.com/pkg/metrics"
)

// 确保实现了接口
var _ Repository = (*CachedRepository)(nil)

const (
	cacheKeyPrefix   = "analytics:score:"
	cacheKeyLatest   = cacheKeyPrefix + "latest"
	cacheKeyStrategy = cacheKeyPrefix + "strategy:"

	// DefaultScoreCacheTTL 评分一天只算一次，缓存可以长一点
	DefaultScoreCacheTTL = 10 * time.Minute
)

// CachedRepository 带评分缓存的 Repository
//
// 内嵌的 Repository 是被装饰的底层实现
type CachedRepository struct {
	Repository
	redis redis.Cmdable
	ttl   time.Duration
}

// NewCachedRepository 创建缓存装饰器
//
// 用法:
//
//	repo := NewGormRepository(db)
//	cached := NewCachedRepository(repo, redisClient, time.Minute)
func NewCachedRepository(repo Repository, rds redis.Cmdable, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultScoreCacheTTL
	}
	return &CachedRepository{Repository: repo, redis: rds, ttl: ttl}
}

// LatestScores 最近评分 (带缓存)
func (r *CachedRepository) LatestScores(ctx context.Context) ([]*ScoreRow, error) {
	var rows []*ScoreRow
	if r.getCache(ctx, cacheKeyLatest, &rows) {
		return rows, nil
	}

	rows, err := r.Repository.LatestScores(ctx)
	if err != nil {
		return nil, err
	}
	r.setCache(ctx, cacheKeyLatest, rows)
	return rows, nil
}

// ScoreByStrategy 单个策略评分 (带缓存)
func (r *CachedRepository) ScoreByStrategy(ctx context.Context, code string) (*ScoreRow, error) {
	key := cacheKeyStrategy + code

	var row ScoreRow
	if r.getCache(ctx, key, &row) {
		return &row, nil
	}

	got, err := r.Repository.ScoreByStrategy(ctx, code)
	if err != nil {
		return nil, err
	}
	r.setCache(ctx, key, got)
	return got, nil
}

// SaveScore 写 DB 后删缓存
func (r *CachedRepository) SaveScore(ctx context.Context, strategyID uint, m *metrics.PerformanceMetrics) error {
	if err := r.Repository.SaveScore(ctx, strategyID, m); err != nil {
		return err
	}
	if m != nil {
		r.Invalidate(ctx, m.StrategyCode)
	}
	return nil
}

// Invalidate 删除排名缓存和指定策略的缓存
func (r *CachedRepository) Invalidate(ctx context.Context, codes ...string) {
	keys := []string{cacheKeyLatest}
	for _, c := range codes {
		keys = append(keys, cacheKeyStrategy+c)
	}
	r.redis.Del(ctx, keys...)
}

// =============================================================================
// 缓存辅助
// =============================================================================

// getCache 命中返回 true；Redis 异常按 miss 处理
func (r *CachedRepository) getCache(ctx context.Context, key string, dst any) bool {
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (r *CachedRepository) setCache(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.redis.Set(ctx, key, data, r.ttl)
}
