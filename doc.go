// Package recengine 是一个混合推荐引擎（Recommendation Engine）。
//
// 设计要点：
// - 双信号源：行为日志学出的隐因子协同过滤 + 实体文本的 TF-IDF 内容相似
// - 快照优先：模型与索引 swap-on-write 原子发布，请求链路无锁只读
// - 降级兜底：CheckCache → Compute → Fallback → Respond 状态机，请求永不对外失败
package recengine

import (
	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/engine"
)

// 轻量 facade：便于用户直接 import "recengine" 使用核心抽象。
type Engine = engine.Engine
type Deps = engine.Deps
type Recommendations = core.Recommendations
type Provenance = core.Provenance

const (
	ProvenanceCache    = core.ProvenanceCache
	ProvenancePrimary  = core.ProvenancePrimary
	ProvenanceFallback = core.ProvenanceFallback
)

// New 构建引擎，参见 engine.New。
var New = engine.New
