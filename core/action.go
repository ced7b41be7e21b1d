package core

// Action 表示一次被埋点的用户行为。
type Action string

const (
	ActionView       Action = "view"
	ActionClick      Action = "click"
	ActionSearch     Action = "search"
	ActionAddToCart  Action = "add_to_cart"
	ActionPurchase   Action = "purchase"
	ActionLike       Action = "like"
	ActionUnlike     Action = "unlike"
	ActionSave       Action = "save"
	ActionUnsave     Action = "unsave"
	ActionFollow     Action = "follow"
	ActionUnfollow   Action = "unfollow"
	ActionShare      Action = "share"
	ActionPromoView  Action = "promo_view"
	ActionPromoClick Action = "promo_click"
)

// actionWeights 是行为权重表：行为对学习信号的影响强度的唯一事实来源。
// 高价值转化（purchase）> 意图行为（add_to_cart/save）> 浏览类行为；
// 撤销行为（unlike/unsave/unfollow）为负，表示对之前信号的修正。
var actionWeights = map[Action]int{
	ActionView:       1,
	ActionClick:      2,
	ActionSearch:     1,
	ActionAddToCart:  6,
	ActionPurchase:   10,
	ActionLike:       3,
	ActionUnlike:     -3,
	ActionSave:       4,
	ActionUnsave:     -4,
	ActionFollow:     3,
	ActionUnfollow:   -3,
	ActionShare:      2,
	ActionPromoView:  1,
	ActionPromoClick: 2,
}

// ActionWeight 返回行为的带符号权重。未知行为返回 0。
// 纯函数：无 I/O、无副作用、结果确定。
func ActionWeight(a Action) int {
	return actionWeights[a]
}

// TrackedActions 返回权重表中的全部行为（默认的矩阵构建行为集合）。
func TrackedActions() []Action {
	out := make([]Action, 0, len(actionWeights))
	for a := range actionWeights {
		out = append(out, a)
	}
	return out
}
