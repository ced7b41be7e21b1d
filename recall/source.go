// Package recall 提供候选生成的策略单元：协同过滤、内容相似、热门降级。
package recall

import (
	"context"

	"github.com/shopstream/recengine/core"
)

// Source 表示一个可复用的召回源（协同/内容/热门/...）。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
