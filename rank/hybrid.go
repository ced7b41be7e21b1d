// Package rank 把多路召回合并成单一排序列表。
package rank

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/recall"
)

// HybridScorer 把协同候选与内容候选按固定混合权重合并成一个排序列表。
//
// 合并规则：每路列表先归一成 [0,1] 的排名位置分 (N-rank)/N，乘以该路的
// 混合权重，按实体累积到分数表；同时出现在两路的实体累积两份贡献。
// 协同覆盖不足（列表薄）时，内容权重上调。
type HybridScorer struct {
	Collaborative recall.Source
	Content       recall.Source
	Catalog       core.Catalog

	// CollabWeight / ContentWeight 混合权重（默认 0.7 / 0.3）
	CollabWeight  float64
	ContentWeight float64

	// ThinThreshold 协同候选数低于此值时视为覆盖不足，两路权重互换（默认 5）
	ThinThreshold int

	Logger zerolog.Logger
}

// Score 产出一个 actor 的合并排序列表，并批量解析实体记录。
// 两路都为空 → (nil, ErrNoCandidates)，编排层据此触发热门降级；
// 绝不返回由部分错误拼出来的半成品列表。
func (s *HybridScorer) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, error) {
	if limit <= 0 {
		limit = 20
	}

	// 两路召回并发执行；单路失败（含冷启动）只让该路为空，不中断另一路
	var collabItems, contentItems []*core.Item
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		items, err := s.Collaborative.Recall(gctx, rctx)
		if err != nil {
			if !core.IsColdStart(err) {
				s.Logger.Warn().Err(err).Msg("rank: collaborative source failed")
			}
			return nil
		}
		collabItems = items
		return nil
	})
	eg.Go(func() error {
		items, err := s.Content.Recall(gctx, rctx)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("rank: content source failed")
			return nil
		}
		contentItems = items
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(collabItems) == 0 && len(contentItems) == 0 {
		return nil, core.ErrNoCandidates
	}

	cw := s.CollabWeight
	xw := s.ContentWeight
	if cw <= 0 && xw <= 0 {
		cw, xw = 0.7, 0.3
	}
	thin := s.ThinThreshold
	if thin <= 0 {
		thin = 5
	}
	if len(collabItems) < thin && xw < cw {
		cw, xw = xw, cw
	}

	merged := make(map[core.EntityKey]*core.Item, len(collabItems)+len(contentItems))
	accumulate(merged, collabItems, cw)
	accumulate(merged, contentItems, xw)

	out := make([]*core.Item, 0, len(merged))
	for _, it := range merged {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}

	return s.resolve(ctx, out), nil
}

// accumulate 把一路候选按排名位置分累积进合并表。
func accumulate(merged map[core.EntityKey]*core.Item, items []*core.Item, weight float64) {
	n := float64(len(items))
	for rankPos, it := range items {
		contribution := weight * (n - float64(rankPos)) / n
		if existing, ok := merged[it.ID]; ok {
			existing.Score += contribution
			for k, v := range it.Labels {
				existing.PutLabel(k, v)
			}
			continue
		}
		out := core.NewItem(it.ID)
		out.Score = contribution
		for k, v := range it.Labels {
			out.PutLabel(k, v)
		}
		merged[it.ID] = out
	}
}

// resolve 把存活候选按 kind 分组、批量解析成完整记录。
// 解析不到的 key（失效引用、已删除记录）静默丢弃，不是错误。
func (s *HybridScorer) resolve(ctx context.Context, items []*core.Item) []*core.Item {
	byKind := make(map[core.EntityKind][]string)
	for _, it := range items {
		_, id, ok := it.ID.Parse()
		if !ok {
			continue
		}
		byKind[it.Kind] = append(byKind[it.Kind], id)
	}

	records := make(map[core.EntityKey]*core.EntityRecord)
	for kind, ids := range byKind {
		fetched, err := s.Catalog.FetchByIDs(ctx, kind, ids)
		if err != nil {
			s.Logger.Warn().Err(err).Str("kind", string(kind)).Msg("rank: record resolution failed")
			continue
		}
		for i := range fetched {
			rec := fetched[i]
			if rec.Valid() {
				records[rec.Key()] = &rec
			}
		}
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		rec, ok := records[it.ID]
		if !ok {
			continue
		}
		it.Record = rec
		out = append(out, it)
	}
	return out
}
