package core

// RecommendContext 承载一次推荐请求的主体/范围信息，贯穿整条链路透传。
type RecommendContext struct {
	// Actor 是推荐主体（登录用户或匿名会话）
	Actor ActorKey

	// Kinds 是请求的实体类型范围；为空时默认只推商品
	Kinds []EntityKind

	// Limit 是期望返回的候选数量
	Limit int

	// Params 请求级上下文参数（设备、场景、实验分组等），策略/过滤规则可读取
	Params map[string]any
}

// WantsKind 判断 kind 是否在请求范围内。
func (rctx *RecommendContext) WantsKind(kind EntityKind) bool {
	if len(rctx.Kinds) == 0 {
		return kind == EntityKindProduct
	}
	for _, k := range rctx.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// RequestedKinds 返回归一化后的请求类型列表（带默认值，剔除不可推的 search）。
func (rctx *RecommendContext) RequestedKinds() []EntityKind {
	if len(rctx.Kinds) == 0 {
		return []EntityKind{EntityKindProduct}
	}
	out := make([]EntityKind, 0, len(rctx.Kinds))
	for _, k := range rctx.Kinds {
		if k == EntityKindSearch {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Provenance 标记一次响应的来源：缓存命中、主链路计算、或降级路径。
type Provenance string

const (
	ProvenanceCache    Provenance = "cache"
	ProvenancePrimary  Provenance = "primary"
	ProvenanceFallback Provenance = "fallback"
)

// Recommendations 是推荐响应：候选列表 + 来源标记。
// 调用方与测试据此区分降级响应；最坏情况是 fallback 来源的空列表，而不是错误。
type Recommendations struct {
	Items      []*Item
	Provenance Provenance
}
