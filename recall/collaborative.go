package recall

import (
	"context"

	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/factor"
)

// Collaborative 是协同过滤召回源：读最近一次训练发布的隐因子模型快照，
// 用 actor 嵌入与全部 entity 嵌入的点积排序。
//
// 快照由训练作业离线产出、在线查表；请求链路从不等待训练。
type Collaborative struct {
	Models *factor.Snapshot

	// TopK 返回 TopK 个候选（默认 50）
	TopK int
}

func (r *Collaborative) Name() string {
	return "recall.collaborative"
}

// Recall 返回按预测分排序的候选。
// 无已发布模型、或 actor 不在模型中 → 返回 ErrColdStart，
// 由编排层解释为降级信号，而不是失败。
func (r *Collaborative) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Actor == "" {
		return nil, core.ErrColdStart
	}
	model := r.Models.Load()
	if model == nil {
		return nil, core.ErrColdStart
	}

	scored, err := model.Predict(rctx.Actor)
	if err != nil {
		return nil, err
	}

	topK := r.TopK
	if topK <= 0 {
		topK = 50
	}

	out := make([]*core.Item, 0, topK)
	for _, s := range scored {
		kind := s.Entity.Kind()
		// 搜索复合 key 只是矩阵的学习轴，不可作为推荐结果
		if kind == core.EntityKindSearch || !rctx.WantsKind(kind) {
			continue
		}
		if s.Score <= 0 {
			break // 已降序，后面不会更好
		}
		it := core.NewItem(s.Entity)
		it.Score = s.Score
		it.PutLabel("recall_source", core.Label{Value: "collaborative", Source: "recall"})
		out = append(out, it)
		if len(out) >= topK {
			break
		}
	}
	return out, nil
}
