// Package matrix 把一个时间窗口内的行为事件折成稠密的 actor×entity 权重矩阵。
// 矩阵是训练运行的临时输入：每次训练重新构建，不做增量维护。
package matrix

import (
	"time"

	"github.com/shopstream/recengine/core"
)

// ActorEntityMatrix 是 actor×entity 的稠密权重矩阵，附带双向索引。
//
// 不变式：
//   - len(Cells) == len(Actors)，每行 len == len(Entities)
//   - 窗口内没有任何事件的 actor/entity 不会出现在索引中
//   - 所有 cell >= 0（负权重在构建时 clamp 到 0）
type ActorEntityMatrix struct {
	Actors   []core.ActorKey
	Entities []core.EntityKey
	Cells    [][]float64

	// LastSeen 记录每个 entity 在窗口内最近一次被交互的时间，用于下游的确定性排序。
	LastSeen map[core.EntityKey]time.Time

	actorIdx  map[core.ActorKey]int
	entityIdx map[core.EntityKey]int
}

// NewActorEntityMatrix 按有序 key 列表分配零值矩阵。
func NewActorEntityMatrix(actors []core.ActorKey, entities []core.EntityKey) *ActorEntityMatrix {
	m := &ActorEntityMatrix{
		Actors:    actors,
		Entities:  entities,
		Cells:     make([][]float64, len(actors)),
		LastSeen:  make(map[core.EntityKey]time.Time, len(entities)),
		actorIdx:  make(map[core.ActorKey]int, len(actors)),
		entityIdx: make(map[core.EntityKey]int, len(entities)),
	}
	for i := range m.Cells {
		m.Cells[i] = make([]float64, len(entities))
	}
	for i, a := range actors {
		m.actorIdx[a] = i
	}
	for i, e := range entities {
		m.entityIdx[e] = i
	}
	return m
}

// ActorIndex 返回 actor 的行号。
func (m *ActorEntityMatrix) ActorIndex(key core.ActorKey) (int, bool) {
	i, ok := m.actorIdx[key]
	return i, ok
}

// EntityIndex 返回 entity 的列号。
func (m *ActorEntityMatrix) EntityIndex(key core.EntityKey) (int, bool) {
	i, ok := m.entityIdx[key]
	return i, ok
}

// Dims 返回 (行数, 列数)。
func (m *ActorEntityMatrix) Dims() (int, int) {
	return len(m.Actors), len(m.Entities)
}

// Empty 判断矩阵是否没有任何行或列。
func (m *ActorEntityMatrix) Empty() bool {
	return len(m.Actors) == 0 || len(m.Entities) == 0
}

// NonZeroCells 返回非零 cell 的数量（训练样本量）。
func (m *ActorEntityMatrix) NonZeroCells() int {
	var n int
	for _, row := range m.Cells {
		for _, v := range row {
			if v > 0 {
				n++
			}
		}
	}
	return n
}
