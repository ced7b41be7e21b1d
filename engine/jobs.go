package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/factor"
	"github.com/shopstream/recengine/similarity"
)

// TrainingReport 是一次训练触发的结果摘要。
type TrainingReport struct {
	Trained     bool `json:"trained"`
	NumActors   int  `json:"num_actors"`
	NumEntities int  `json:"num_entities"`
	NumFactors  int  `json:"num_factors"`
}

// RebuildReport 是一次索引重建的结果摘要。
type RebuildReport struct {
	Rebuilt      bool `json:"rebuilt"`
	NumDocuments int  `json:"num_documents"`
}

// TriggerTraining 触发一次离线训练：构建矩阵 → SGD 训练 → 原子发布快照 →
// 持久化工件。
//
// 全系统同一时刻最多一次训练在跑：并发触发经 singleflight 合并到在跑
// 任务的结果上，绝不重复执行。训练跑在脱离调用方取消的独立超时下，
// 触发方断开不会打断在跑的训练。
//
// 空矩阵/零非零 cell 是预期的冷启动：返回 {Trained: false}，不是错误。
// 配置错误（factors <= 0）向调用方传播。
func (e *Engine) TriggerTraining(ctx context.Context) (TrainingReport, error) {
	v, err, shared := e.sf.Do("train", func() (any, error) {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.TrainTimeout())
		defer cancel()

		started := time.Now()
		m, err := e.builder.Build(tctx)
		if err != nil {
			return TrainingReport{}, err
		}
		model, err := e.trainer.Train(m)
		if err != nil {
			return TrainingReport{}, err
		}
		if model == nil {
			e.logger.Info().Msg("engine: training skipped, no qualifying interactions")
			return TrainingReport{}, nil
		}

		e.models.Publish(model)
		e.persistArtifact(tctx, modelKey, model, e.cfg.ModelTTLSeconds)

		e.logger.Info().
			Int("actors", len(model.Actors)).
			Int("entities", len(model.Entities)).
			Int("factors", model.NumFactors).
			Dur("took", time.Since(started)).
			Msg("engine: model published")
		return TrainingReport{
			Trained:     true,
			NumActors:   len(model.Actors),
			NumEntities: len(model.Entities),
			NumFactors:  model.NumFactors,
		}, nil
	})
	if shared {
		e.logger.Debug().Msg("engine: training trigger coalesced into in-flight run")
	}
	if err != nil {
		return TrainingReport{}, err
	}
	return v.(TrainingReport), nil
}

// TriggerIndexRebuild 从当前语料快照整体重建相似度索引并原子发布。
// 与训练一样经 singleflight 串行化；任一 kind 的语料拉取失败则整次
// 重建失败（半套语料会让 IDF 统计失真）。
func (e *Engine) TriggerIndexRebuild(ctx context.Context) (RebuildReport, error) {
	v, err, _ := e.sf.Do("index", func() (any, error) {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.TrainTimeout())
		defer cancel()

		var corpus []core.Document
		for _, kind := range core.ContentKinds {
			docs, err := e.deps.Corpus.FetchTextCorpus(tctx, kind)
			if err != nil {
				return RebuildReport{}, core.DataUnavailable(core.ModuleSimilarity, err)
			}
			corpus = append(corpus, docs...)
		}

		ix := similarity.Build(corpus)
		e.index.Publish(ix)
		e.persistArtifact(tctx, indexKey, ix, e.cfg.IndexTTLSeconds)

		e.logger.Info().Int("documents", ix.Len()).Msg("engine: similarity index published")
		return RebuildReport{Rebuilt: ix.Len() > 0, NumDocuments: ix.Len()}, nil
	})
	if err != nil {
		return RebuildReport{}, err
	}
	return v.(RebuildReport), nil
}

// Restore 在进程启动时从缓存存储恢复最近持久化的模型与索引工件。
// 工件缺失不是错误：保持冷态直到下一次训练/重建。
func (e *Engine) Restore(ctx context.Context) error {
	if data, err := e.deps.Cache.Get(ctx, modelKey); err == nil {
		var model factor.Model
		if err := json.Unmarshal(data, &model); err != nil {
			e.logger.Warn().Err(err).Msg("engine: discarding corrupt model artifact")
		} else {
			e.models.Publish(&model)
			e.logger.Info().Time("trained_at", model.TrainedAt).Msg("engine: model restored from store")
		}
	} else if !core.IsStoreNotFound(err) {
		return err
	}

	if data, err := e.deps.Cache.Get(ctx, indexKey); err == nil {
		var ix similarity.Index
		if err := json.Unmarshal(data, &ix); err != nil {
			e.logger.Warn().Err(err).Msg("engine: discarding corrupt index artifact")
		} else {
			ix.Reindex()
			e.index.Publish(&ix)
			e.logger.Info().Int("documents", ix.Len()).Msg("engine: similarity index restored from store")
		}
	} else if !core.IsStoreNotFound(err) {
		return err
	}
	return nil
}

// persistArtifact 把训练/重建产物写进共享存储，带 TTL。尽力而为：
// 写失败只降低跨实例的恢复能力，不影响已发布的内存快照。
func (e *Engine) persistArtifact(ctx context.Context, key string, artifact any, ttl int) {
	data, err := json.Marshal(artifact)
	if err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("engine: artifact marshal failed")
		return
	}
	if err := e.deps.Cache.Set(ctx, key, data, ttl); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("engine: artifact persist failed")
	}
}
