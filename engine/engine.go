// Package engine 是缓存与降级编排层：所有对外操作的入口。
//
// 每个推荐请求走一个显式状态机：CheckCache → Compute → Fallback → Respond。
// 主链路（混合打分）跑在硬超时之下；超时、出错或空结果一律落到热门降级，
// 请求永远不对外失败，最坏情况是 fallback 来源的空列表。
package engine

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/shopstream/recengine/config"
	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/factor"
	"github.com/shopstream/recengine/filter"
	"github.com/shopstream/recengine/matrix"
	"github.com/shopstream/recengine/rank"
	"github.com/shopstream/recengine/recall"
	"github.com/shopstream/recengine/similarity"
)

// 缓存 key 布局。结果 key 是 actor + 请求形状；工件 key 全局唯一。
const (
	resultKeyPrefix = "rec:result:"
	modelKey        = "rec:artifact:model"
	indexKey        = "rec:artifact:index"
)

// Deps 是引擎的外部协作方，全部经依赖注入传入。
type Deps struct {
	Interactions core.InteractionSource
	Catalog      core.Catalog
	Corpus       core.CorpusProvider
	Cache        core.KeyValueStore
	Logger       zerolog.Logger
}

// Engine 把矩阵构建、训练、索引、混合打分与缓存/降级编排接在一起。
// 模型与索引快照归引擎所有，swap-on-write 发布；请求链路只读快照。
type Engine struct {
	cfg  config.Config
	deps Deps

	models *factor.Snapshot
	index  *similarity.Snapshot

	builder *matrix.Builder
	trainer *factor.Trainer
	scorer  *rank.HybridScorer
	popular *recall.Popular
	filters []filter.Filter

	sf     singleflight.Group
	logger zerolog.Logger
}

// New 构建引擎。配置中的淘汰规则在此编译，非法规则直接报错。
func New(cfg config.Config, deps Deps) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		deps:   deps,
		models: &factor.Snapshot{},
		index:  &similarity.Snapshot{},
		logger: deps.Logger,
	}

	e.builder = &matrix.Builder{
		Source: deps.Interactions,
		Window: cfg.TrainWindow(),
		Logger: deps.Logger,
	}
	e.trainer = &factor.Trainer{
		Factors:        cfg.Factors,
		Epochs:         cfg.Epochs,
		BatchSize:      cfg.BatchSize,
		LearningRate:   cfg.LearningRate,
		Regularization: cfg.Regularization,
		Logger:         deps.Logger,
	}
	e.scorer = &rank.HybridScorer{
		Collaborative: &recall.Collaborative{Models: e.models, TopK: cfg.TopK},
		Content: &recall.Content{
			Index:     e.index,
			Source:    deps.Interactions,
			Window:    cfg.ContentWindow(),
			SeedLimit: cfg.SeedLimit,
			TopK:      cfg.TopK,
		},
		Catalog:       deps.Catalog,
		CollabWeight:  cfg.CollabWeight,
		ContentWeight: cfg.ContentWeight,
		ThinThreshold: cfg.ThinThreshold,
		Logger:        deps.Logger,
	}
	e.popular = &recall.Popular{Catalog: deps.Catalog, Hot: deps.Cache, TopK: cfg.TopK}

	e.filters = []filter.Filter{&filter.ActivePromotionFilter{}}
	for _, expr := range cfg.FilterRules {
		rule, err := filter.NewRuleFilter(expr)
		if err != nil {
			return nil, err
		}
		e.filters = append(e.filters, rule)
	}
	return e, nil
}

// Models 暴露模型快照（只读消费方使用，例如独立的预测服务）。
func (e *Engine) Models() *factor.Snapshot { return e.models }

// Index 暴露索引快照。
func (e *Engine) Index() *similarity.Snapshot { return e.index }

// GetRecommendations 为一个 actor 产出排序候选。
// 除调用方自身的 ctx 取消之外不返回错误：冷启动、上游故障、超时全部
// 被吸收进降级路径。
func (e *Engine) GetRecommendations(
	ctx context.Context,
	actor core.ActorKey,
	kinds []core.EntityKind,
	limit int,
) (*core.Recommendations, error) {
	if limit <= 0 {
		limit = 20
	}
	rctx := &core.RecommendContext{Actor: actor, Kinds: kinds, Limit: limit}
	key := resultKey(actor, rctx.RequestedKinds(), limit)

	// CheckCache
	if items, ok := e.cachedResult(ctx, key); ok {
		return &core.Recommendations{Items: items, Provenance: core.ProvenanceCache}, nil
	}

	// Compute：主链路与硬超时赛跑；输了只丢弃结果，不等待计算退出
	items, ok := e.compute(ctx, rctx, limit)
	if ok {
		e.cacheResult(ctx, key, items)
		return &core.Recommendations{Items: items, Provenance: core.ProvenancePrimary}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Fallback：热门降级，必须成功；最坏情况是空列表
	return &core.Recommendations{
		Items:      e.fallback(ctx, rctx, limit),
		Provenance: core.ProvenanceFallback,
	}, nil
}

func (e *Engine) compute(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.Item, bool) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.ComputeTimeout())
	defer cancel()

	type result struct {
		items []*core.Item
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		items, err := e.scorer.Score(cctx, rctx, limit)
		ch <- result{items: items, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			if !core.IsColdStart(res.err) {
				e.logger.Warn().Err(res.err).Msg("engine: compute failed, falling back")
			}
			return nil, false
		}
		items := filter.Apply(ctx, e.filters, rctx, res.items)
		if len(items) == 0 {
			return nil, false
		}
		return items, true
	case <-cctx.Done():
		e.logger.Warn().Str("actor", string(rctx.Actor)).Msg("engine: compute deadline exceeded, falling back")
		return nil, false
	}
}

func (e *Engine) fallback(ctx context.Context, rctx *core.RecommendContext, limit int) []*core.Item {
	items, err := e.popular.Recall(ctx, rctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("engine: popular fallback failed, returning empty list")
		return []*core.Item{}
	}
	items = filter.Apply(ctx, e.filters, rctx, items)
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []*core.Item{}
	}
	return items
}

func (e *Engine) cachedResult(ctx context.Context, key string) ([]*core.Item, bool) {
	data, err := e.deps.Cache.Get(ctx, key)
	if err != nil {
		if !core.IsStoreNotFound(err) {
			e.logger.Warn().Err(err).Msg("engine: result cache read failed")
		}
		return nil, false
	}
	var items []*core.Item
	if err := json.Unmarshal(data, &items); err != nil {
		e.logger.Warn().Err(err).Msg("engine: dropping corrupt result cache entry")
		return nil, false
	}
	return items, true
}

// cacheResult 写结果缓存。共享缓存写入脱离调用方的取消：
// 单个请求被取消不应影响别的请求能否命中。
func (e *Engine) cacheResult(ctx context.Context, key string, items []*core.Item) {
	data, err := json.Marshal(items)
	if err != nil {
		e.logger.Warn().Err(err).Msg("engine: result marshal failed")
		return
	}
	if err := e.deps.Cache.Set(context.WithoutCancel(ctx), key, data, e.cfg.ResultTTLSeconds); err != nil {
		e.logger.Warn().Err(err).Msg("engine: result cache write failed")
	}
}

// InvalidateCache 按范围显式失效缓存（上游数据发生实质变化时调用，
// 例如一个活动结束）。
//
// 支持的 scope：
//   - "results"          全部结果缓存
//   - "results:<actor>"  单个 actor 的结果缓存
//   - "model" / "index"  持久化的工件（内存快照保留，直到下次发布）
//   - "all"              以上全部
func (e *Engine) InvalidateCache(ctx context.Context, scope string) error {
	switch {
	case scope == "all":
		if err := e.deps.Cache.DeleteByPrefix(ctx, resultKeyPrefix); err != nil {
			return err
		}
		if err := e.deps.Cache.Delete(ctx, modelKey); err != nil {
			return err
		}
		return e.deps.Cache.Delete(ctx, indexKey)
	case scope == "model":
		return e.deps.Cache.Delete(ctx, modelKey)
	case scope == "index":
		return e.deps.Cache.Delete(ctx, indexKey)
	case scope == "results" || scope == "":
		return e.deps.Cache.DeleteByPrefix(ctx, resultKeyPrefix)
	case strings.HasPrefix(scope, "results:"):
		actor := strings.TrimPrefix(scope, "results:")
		return e.deps.Cache.DeleteByPrefix(ctx, resultKeyPrefix+actor)
	default:
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotSupported, "engine: unknown invalidation scope "+scope)
	}
}

func resultKey(actor core.ActorKey, kinds []core.EntityKind, limit int) string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return resultKeyPrefix + string(actor) + "|" + strings.Join(names, ",") + "|" + strconv.Itoa(limit)
}
