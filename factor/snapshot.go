package factor

import "sync/atomic"

// Snapshot 持有最新的模型工件，swap-on-write 原子发布。
// 训练作业写入新工件，请求链路无锁读取；不存在"半更新"的中间态。
// 作为显式依赖注入给召回/预测方，而不是包级全局状态。
type Snapshot struct {
	p atomic.Pointer[Model]
}

// Load 返回最新模型；从未训练过时为 nil。
func (s *Snapshot) Load() *Model {
	return s.p.Load()
}

// Publish 原子替换为新工件。
func (s *Snapshot) Publish(m *Model) {
	s.p.Store(m)
}
