package core

import (
	"context"
	"time"
)

// Interaction 是一条追加写入的行为事件。
// Weight 在写入时由权重表一次性确定，此后不可变；负权重表示撤销/修正行为，
// 在折进矩阵时统一 clamp 到 0，避免负向亲和度被放大。
type Interaction struct {
	Actor      ActorKey
	Target     EntityKey
	Action     Action
	Weight     int
	OccurredAt time.Time
	ExpiresAt  time.Time
}

// Expired 判断事件是否已过期（过期事件不参与任何计算）。
func (in Interaction) Expired(now time.Time) bool {
	return !in.ExpiresAt.IsZero() && now.After(in.ExpiresAt)
}

// Window 是行为事件的时间窗口 [From, To]。
type Window struct {
	From time.Time
	To   time.Time
}

// Contains 判断时间点是否落在窗口内。
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// LastDays 构造"最近 n 天"窗口。
func LastDays(now time.Time, days int) Window {
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// InteractionSource 是行为日志的领域接口，由外部写入方实现。
// 引擎只读：返回窗口内、匹配行为与目标类型过滤的未过期事件。
type InteractionSource interface {
	QueryInteractions(ctx context.Context, window Window, actions []Action, targets []EntityKind) ([]Interaction, error)
}
