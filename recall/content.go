package recall

import (
	"context"
	"sort"
	"time"

	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/similarity"
)

// Content 是基于内容的召回源："用户最近交互过什么，就找文本上相似的实体"。
//
// 流程：取 actor 最近交互的实体作为种子 → 对每个种子查 TF-IDF 近邻 →
// 按最大相似度聚合 → 排除种子自身 → TopK。
type Content struct {
	Index  *similarity.Snapshot
	Source core.InteractionSource

	// Window 往回看多久的交互作为种子（默认 7 天）
	Window time.Duration

	// SeedLimit 最多取多少个种子实体（默认 5）
	SeedLimit int

	// TopK 返回 TopK 个候选（默认 50）
	TopK int

	// Now 可注入时钟
	Now func() time.Time
}

func (r *Content) Name() string {
	return "recall.content"
}

func (r *Content) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Actor == "" {
		return nil, nil
	}
	ix := r.Index.Load()
	if ix == nil || ix.Len() == 0 {
		return nil, nil
	}

	seeds, err := r.recentEntities(ctx, rctx.Actor)
	if err != nil {
		return nil, core.DataUnavailable(core.ModuleRank, err)
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}

	// 按最大相似度聚合各种子的近邻
	seedSet := make(map[core.EntityKey]struct{}, len(seeds))
	for _, s := range seeds {
		seedSet[s] = struct{}{}
	}
	best := make(map[core.EntityKey]float64)
	for _, seed := range seeds {
		for _, n := range ix.Neighbors(seed, topK) {
			if _, isSeed := seedSet[n.Entity]; isSeed {
				continue
			}
			if !rctx.WantsKind(n.Entity.Kind()) {
				continue
			}
			if n.Similarity > best[n.Entity] {
				best[n.Entity] = n.Similarity
			}
		}
	}
	if len(best) == 0 {
		return nil, nil
	}

	out := make([]*core.Item, 0, len(best))
	for key, sim := range best {
		it := core.NewItem(key)
		it.Score = sim
		it.PutLabel("recall_source", core.Label{Value: "content", Source: "recall"})
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// recentEntities 返回 actor 最近交互的去重实体 key，按时间新→旧。
func (r *Content) recentEntities(ctx context.Context, actor core.ActorKey) ([]core.EntityKey, error) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	window := r.Window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	ins, err := r.Source.QueryInteractions(ctx,
		core.Window{From: now.Add(-window), To: now}, nil, core.ContentKinds)
	if err != nil {
		return nil, err
	}

	// 行为日志对引擎只读：源可能返回共享切片，过滤必须落在新分配的切片上
	mine := make([]core.Interaction, 0, len(ins))
	for _, in := range ins {
		if in.Actor == actor && !in.Expired(now) && in.Target.Valid() {
			mine = append(mine, in)
		}
	}
	sort.Slice(mine, func(i, j int) bool {
		return mine[i].OccurredAt.After(mine[j].OccurredAt)
	})

	seedLimit := r.SeedLimit
	if seedLimit <= 0 {
		seedLimit = 5
	}
	seen := make(map[core.EntityKey]struct{}, seedLimit)
	out := make([]core.EntityKey, 0, seedLimit)
	for _, in := range mine {
		if _, ok := seen[in.Target]; ok {
			continue
		}
		seen[in.Target] = struct{}{}
		out = append(out, in.Target)
		if len(out) >= seedLimit {
			break
		}
	}
	return out, nil
}
