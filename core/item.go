package core

// Item 是推荐链路中的统一承载结构：候选实体、分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策；Record 在解析阶段补齐。
type Item struct {
	ID     EntityKey        `json:"id"`
	Kind   EntityKind       `json:"kind"`
	Score  float64          `json:"score"`
	Meta   map[string]any   `json:"meta,omitempty"`
	Labels map[string]Label `json:"labels,omitempty"`

	// Record 是解析后的完整实体记录；未解析时为 nil。
	// 参与序列化：结果缓存命中时记录随条目一起恢复。
	Record *EntityRecord `json:"record,omitempty"`
}

func NewItem(key EntityKey) *Item {
	return &Item{
		ID:     key,
		Kind:   key.Kind(),
		Meta:   make(map[string]any),
		Labels: make(map[string]Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则合并累积（保留历史、可追踪）。
func (it *Item) PutLabel(key string, lbl Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = mergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label。
func (it *Item) GetLabel(key string) (Label, bool) {
	if it.Labels == nil {
		return Label{}, false
	}
	lbl, ok := it.Labels[key]
	return lbl, ok
}
