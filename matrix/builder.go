package matrix

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopstream/recengine/core"
)

// Builder 从行为日志构建 actor×entity 矩阵。
//
// cell 取值规则：matrix[actor][entity] = max(已有值, clamp≥0(weight))。
// 取 max 而不是求和：避免大量重复的低价值行为（如多次浏览）淹没一次
// 高价值行为（如一次购买），同时天然幂等地处理重复事件。
type Builder struct {
	Source core.InteractionSource

	// Window 往回看的窗口长度（默认 30 天）
	Window time.Duration

	// Actions / Targets 是参与构建的行为与目标类型过滤；为空时使用权重表全集
	Actions []core.Action
	Targets []core.EntityKind

	Logger zerolog.Logger

	// Now 可注入时钟，便于测试
	Now func() time.Time
}

const defaultWindow = 30 * 24 * time.Hour

// Build 拉取窗口内未过期事件并折成矩阵。
// 窗口内零事件 → 返回空矩阵（非 nil，零维度），不是错误。
// 目标引用格式非法的事件 → 记 warning 后丢弃，绝不中断。
func (b *Builder) Build(ctx context.Context) (*ActorEntityMatrix, error) {
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	window := b.Window
	if window <= 0 {
		window = defaultWindow
	}
	actions := b.Actions
	if len(actions) == 0 {
		actions = core.TrackedActions()
	}

	ins, err := b.Source.QueryInteractions(ctx, core.Window{From: now.Add(-window), To: now}, actions, b.Targets)
	if err != nil {
		return nil, core.DataUnavailable(core.ModuleMatrix, err)
	}

	// 第一遍：按事件出现顺序去重出有序的 actor / entity 索引
	var (
		actors   []core.ActorKey
		entities []core.EntityKey
		seenA    = make(map[core.ActorKey]struct{})
		seenE    = make(map[core.EntityKey]struct{})
		kept     = make([]core.Interaction, 0, len(ins))
	)
	for _, in := range ins {
		if in.Expired(now) {
			continue
		}
		if !in.Actor.Valid() {
			b.Logger.Warn().Str("actor", string(in.Actor)).Msg("matrix: dropping interaction with malformed actor key")
			continue
		}
		if !in.Target.Valid() {
			b.Logger.Warn().Str("target", string(in.Target)).Msg("matrix: dropping interaction with malformed target key")
			continue
		}
		kept = append(kept, in)
		if _, ok := seenA[in.Actor]; !ok {
			seenA[in.Actor] = struct{}{}
			actors = append(actors, in.Actor)
		}
		if _, ok := seenE[in.Target]; !ok {
			seenE[in.Target] = struct{}{}
			entities = append(entities, in.Target)
		}
	}

	m := NewActorEntityMatrix(actors, entities)

	// 第二遍：填充 cell（max 规则 + 负权重 clamp 到 0）
	for _, in := range kept {
		ai, _ := m.ActorIndex(in.Actor)
		ei, _ := m.EntityIndex(in.Target)
		w := float64(in.Weight)
		if w < 0 {
			w = 0
		}
		if w > m.Cells[ai][ei] {
			m.Cells[ai][ei] = w
		}
		if in.OccurredAt.After(m.LastSeen[in.Target]) {
			m.LastSeen[in.Target] = in.OccurredAt
		}
	}

	b.Logger.Debug().
		Int("actors", len(actors)).
		Int("entities", len(entities)).
		Int("interactions", len(kept)).
		Msg("matrix: built")
	return m, nil
}
