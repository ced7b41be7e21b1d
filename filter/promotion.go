package filter

import (
	"context"
	"time"

	"github.com/shopstream/recengine/core"
)

// ActivePromotionFilter 过滤已结束或尚未开始的限时活动。
// 活动是时间盒实体：训练窗口里仍有它的交互信号，但过期后不可再被推荐。
// 只对已解析出记录的 promotion 候选生效。
type ActivePromotionFilter struct {
	// Now 可注入时钟
	Now func() time.Time
}

func (f *ActivePromotionFilter) Name() string {
	return "filter.active_promotion"
}

func (f *ActivePromotionFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if item.Kind != core.EntityKindPromotion {
		return false, nil
	}
	if item.Record == nil || item.Record.Promotion == nil {
		return false, nil
	}

	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}
	promo := item.Record.Promotion
	if !promo.StartAt.IsZero() && now.Before(promo.StartAt) {
		return true, nil
	}
	if !promo.EndAt.IsZero() && now.After(promo.EndAt) {
		return true, nil
	}
	return false, nil
}
