// Package filter 提供候选级的资格过滤：规则 DSL、活动有效期等。
package filter

import (
	"context"

	"github.com/shopstream/recengine/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Apply 依次应用多个过滤器。任何一个过滤器命中即移除该候选；
// 过滤器自身出错时跳过该过滤器，不中断流程。
func Apply(
	ctx context.Context,
	filters []Filter,
	rctx *core.RecommendContext,
	items []*core.Item,
) []*core.Item {
	if len(filters) == 0 || len(items) == 0 {
		return items
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		removed := false
		for _, f := range filters {
			hit, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				continue
			}
			if hit {
				// 记录过滤原因，用于调试/观测
				item.PutLabel("filtered", core.Label{Value: "true", Source: f.Name()})
				removed = true
				break
			}
		}
		if !removed {
			out = append(out, item)
		}
	}
	return out
}
