package alert

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrMissingStrategy = errors.New("alert record has no strategy code")

// MemoryFeed 内存版预警流
// 单进程 / 测试使用，Redis 不可用时 pipeline 也会退回到它
type MemoryFeed struct {
	mu      sync.RWMutex
	max     int
	byStrat map[string][]Record // 已按 newer 排序
}

func NewMemoryFeed(maxPerStrategy int) *MemoryFeed {
	if maxPerStrategy <= 0 {
		maxPerStrategy = DefaultMaxPerStrategy
	}
	return &MemoryFeed{
		max:     maxPerStrategy,
		byStrat: make(map[string][]Record),
	}
}

var _ Feed = (*MemoryFeed)(nil)

// Push 写入记录
func (f *MemoryFeed) Push(_ context.Context, records []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	touched := make(map[string]struct{})
	for _, r := range records {
		code := r.Alert.StrategyCode
		if code == "" {
			return ErrMissingStrategy
		}
		f.byStrat[code] = append(f.byStrat[code], r)
		touched[code] = struct{}{}
	}

	for code := range touched {
		list := f.byStrat[code]
		sort.SliceStable(list, func(i, j int) bool { return newer(list[i], list[j]) })
		// 淘汰最旧的
		if len(list) > f.max {
			list = list[:f.max]
		}
		f.byStrat[code] = list
	}
	return nil
}

// Recent 读取最近记录
func (f *MemoryFeed) Recent(_ context.Context, strategyCode string, limit int) ([]Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	list := f.byStrat[strategyCode]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Record, limit)
	copy(out, list[:limit])
	return out, nil
}

// Clear 删除记录
func (f *MemoryFeed) Clear(_ context.Context, strategyCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.byStrat, strategyCode)
	return nil
}
