package recall

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopstream/recengine/core"
)

// hotKeyPrefix 是热门榜单有序集合的 key 前缀，按 kind 分桶。
// 榜单由外部写入方按热度打分维护，成员是实体 id。
const hotKeyPrefix = "rec:hot:"

// Popular 是热门召回源：按目录侧的热度启发式（成交量/互动量/新旧）取
// TopN，完全独立于学习到的模型。它是降级路径的主力：只要目录可用就
// 必须能给出结果，最坏情况返回空列表而不是错误。
type Popular struct {
	Catalog core.Catalog

	// Hot 是可选的热门榜单后备（有序集合）。目录不可用时按榜单分
	// 降序读成员兜底；为 nil 时目录失败直接跳过该 kind。
	Hot core.KeyValueStore

	// TopK 每个请求 kind 的拉取上限（默认 50）
	TopK int

	// RecencyHalfLife 热度分的新旧衰减半衰期（默认 14 天）
	RecencyHalfLife time.Duration

	// Now 可注入时钟
	Now func() time.Time
}

func (r *Popular) Name() string {
	return "recall.popular"
}

func (r *Popular) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil {
		return nil, nil
	}
	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	var out []*core.Item
	for _, kind := range rctx.RequestedKinds() {
		records, err := r.Catalog.FetchPopular(ctx, kind, topK)
		if err != nil {
			// 单个 kind 失败不拖垮其他 kind：先试热门榜单兜底
			out = append(out, r.hotList(ctx, kind, topK)...)
			continue
		}
		n := len(records)
		for i := range records {
			rec := records[i]
			if !rec.Valid() {
				continue
			}
			it := core.NewItem(rec.Key())
			// 目录序归一到 (N-rank)/N，再乘新旧衰减，保证跨 kind 可比
			it.Score = float64(n-i) / float64(n) * recencyDecay(rec.CreatedAt(), now, r.RecencyHalfLife)
			it.Record = &rec
			it.PutLabel("recall_source", core.Label{Value: "popular", Source: "recall"})
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// hotList 从有序集合读热门榜单，目录不可用时的兜底来源。
// 榜单只有实体 id，给不出记录；分数为排名位置分。
func (r *Popular) hotList(ctx context.Context, kind core.EntityKind, topK int) []*core.Item {
	if r.Hot == nil {
		return nil
	}
	members, err := r.Hot.ZRange(ctx, hotKeyPrefix+string(kind), 0, int64(topK)-1)
	if err != nil || len(members) == 0 {
		return nil
	}
	n := len(members)
	out := make([]*core.Item, 0, n)
	for i, id := range members {
		it := core.NewItem(core.NewEntityKey(kind, id))
		it.Score = float64(n-i) / float64(n)
		it.PutLabel("recall_source", core.Label{Value: "popular", Source: "recall"})
		out = append(out, it)
	}
	return out
}

// recencyDecay 按创建时间做指数衰减：age 每过一个半衰期，分数减半。
func recencyDecay(createdAt, now time.Time, halfLife time.Duration) float64 {
	if createdAt.IsZero() {
		return 1
	}
	if halfLife <= 0 {
		halfLife = 14 * 24 * time.Hour
	}
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}
