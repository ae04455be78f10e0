package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	detailPrefix = "behavior:alert:"  // + eventID -> Record JSON
	indexPrefix  = "behavior:alerts:" // + strategy -> ZSET(eventID, score)
)

// RedisFeed Redis 版预警流
//
// 【存储结构】
// - behavior:alert:{eventID}    String，记录详情
// - behavior:alerts:{strategy}  ZSET，member = eventID，score 见 score()
type RedisFeed struct {
	client redis.Cmdable
	max    int
}

func NewRedisFeed(client redis.Cmdable, maxPerStrategy int) *RedisFeed {
	if maxPerStrategy <= 0 {
		maxPerStrategy = DefaultMaxPerStrategy
	}
	return &RedisFeed{client: client, max: maxPerStrategy}
}

var _ Feed = (*RedisFeed)(nil)

// luaPush 写入并裁剪
// KEYS[1]: detailKey
// KEYS[2]: indexKey
// ARGV[1]: eventID
// ARGV[2]: score
// ARGV[3]: recordJSON
// ARGV[4]: max
// ARGV[5]: detailPrefix
const luaPush = `
	redis.call('SET', KEYS[1], ARGV[3])
	redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])

	local size = redis.call('ZCARD', KEYS[2])
	local max = tonumber(ARGV[4])
	if size > max then
		-- 分值最低的就是最旧的
		local stale = redis.call('ZRANGE', KEYS[2], 0, size - max - 1)
		for _, id in ipairs(stale) do
			redis.call('DEL', ARGV[5] .. id)
		end
		redis.call('ZREMRANGEBYRANK', KEYS[2], 0, size - max - 1)
	end
	return size
`

// luaClear 删除策略的全部详情和索引
// KEYS[1]: indexKey
// ARGV[1]: detailPrefix
const luaClear = `
	local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
	for _, id in ipairs(ids) do
		redis.call('DEL', ARGV[1] .. id)
	end
	redis.call('DEL', KEYS[1])
	return #ids
`

// Push 逐条执行 luaPush
func (f *RedisFeed) Push(ctx context.Context, records []Record) error {
	for _, r := range records {
		if r.Alert.StrategyCode == "" {
			return ErrMissingStrategy
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal alert record: %w", err)
		}

		id := strconv.FormatInt(r.EventID, 10)
		detailKey := detailPrefix + id
		indexKey := indexPrefix + r.Alert.StrategyCode
		if err := f.client.Eval(ctx, luaPush, []string{detailKey, indexKey},
			id, score(r.Alert), data, f.max, detailPrefix).Err(); err != nil {
			return fmt.Errorf("push alert %s: %w", id, err)
		}
	}
	return nil
}

// Recent ZREVRANGE 取 ID，再 MGET 详情
func (f *RedisFeed) Recent(ctx context.Context, strategyCode string, limit int) ([]Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := f.client.ZRevRange(ctx, indexPrefix+strategyCode, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = detailPrefix + id
	}
	values, err := f.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// 详情已过期或被删除
			continue
		}
		var r Record
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("unmarshal alert record: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Clear 删除策略的全部记录
func (f *RedisFeed) Clear(ctx context.Context, strategyCode string) error {
	return f.client.Eval(ctx, luaClear, []string{indexPrefix + strategyCode}, detailPrefix).Err()
}
