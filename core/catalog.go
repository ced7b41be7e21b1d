package core

import "context"

// Catalog 是实体目录的领域接口，由上层业务的存储实现。
//
// 设计原则：
//   - 接口定义在领域层（core），由外部协作方实现
//   - 引擎只做批量读：候选解析（FetchByIDs）与降级热门（FetchPopular）
type Catalog interface {
	// FetchByIDs 按 kind 批量解析实体记录。
	// 不存在的 id 直接缺失于结果，不报错（失效引用由调用方静默丢弃）。
	FetchByIDs(ctx context.Context, kind EntityKind, ids []string) ([]EntityRecord, error)

	// FetchPopular 返回某 kind 下按热度/新旧启发式排序的实体，用于降级路径。
	FetchPopular(ctx context.Context, kind EntityKind, limit int) ([]EntityRecord, error)
}

// CorpusProvider 提供相似度索引重建所需的文本语料。
type CorpusProvider interface {
	// FetchTextCorpus 返回某 kind 下全部实体的文本快照（标题+描述+标签拼接）。
	FetchTextCorpus(ctx context.Context, kind EntityKind) ([]Document, error)
}
