// Package factor 实现隐因子（latent factor）协同过滤：SGD 矩阵分解训练器、
// 不可变的模型工件、以及基于点积的预测。
package factor

import (
	"sort"
	"sync"
	"time"

	"github.com/shopstream/recengine/core"
)

// Model 是一次训练运行的工件：纯数值切片，训练完成后不可变。
// 新一轮训练整体产出新工件（不做增量更新）；消费方只读快照，无需加锁。
//
// 不变式：len(ActorFactors) == len(Actors)，len(EntityFactors) == len(Entities)，
// 每行恰好 NumFactors 列。
type Model struct {
	ActorFactors  [][]float64 `json:"actor_factors"`
	EntityFactors [][]float64 `json:"entity_factors"`

	Actors   []core.ActorKey  `json:"actors"`
	Entities []core.EntityKey `json:"entities"`

	NumFactors int       `json:"num_factors"`
	TrainedAt  time.Time `json:"trained_at"`

	// EntityRecency 是窗口内每个 entity 最近一次被交互的 Unix 纳秒，
	// 用于相同分数时的确定性排序（新者在前）。
	EntityRecency map[core.EntityKey]int64 `json:"entity_recency,omitempty"`

	idxOnce  sync.Once
	actorIdx map[core.ActorKey]int
}

// Scored 是一个带预测分的实体。
type Scored struct {
	Entity core.EntityKey
	Score  float64
}

func (m *Model) buildIndex() {
	m.actorIdx = make(map[core.ActorKey]int, len(m.Actors))
	for i, a := range m.Actors {
		m.actorIdx[a] = i
	}
}

// ActorIndex 返回 actor 的行号；模型反序列化后索引按需惰性重建。
func (m *Model) ActorIndex(key core.ActorKey) (int, bool) {
	m.idxOnce.Do(m.buildIndex)
	i, ok := m.actorIdx[key]
	return i, ok
}

// Predict 对一个 actor 给出全部实体的预测分排序。
// actor 不在模型中（上次训练之后的新用户/会话）→ 返回 ErrColdStart，
// 编排层把它解释为"走降级路径"，而不是失败。
func (m *Model) Predict(actor core.ActorKey) ([]Scored, error) {
	ai, ok := m.ActorIndex(actor)
	if !ok {
		return nil, core.ErrColdStart
	}

	row := m.ActorFactors[ai]
	out := make([]Scored, len(m.Entities))
	for ei, key := range m.Entities {
		out[ei] = Scored{Entity: key, Score: dot(row, m.EntityFactors[ei])}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		// 同分时按 entity 新旧排序（新者在前），保证测试可重复
		ri, rj := m.EntityRecency[out[i].Entity], m.EntityRecency[out[j].Entity]
		if ri != rj {
			return ri > rj
		}
		return out[i].Entity < out[j].Entity
	})
	return out, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
