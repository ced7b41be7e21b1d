package similarity

import "sync/atomic"

// Snapshot 持有最新的相似度索引，swap-on-write 原子发布。
// 重建作业写入新索引，请求链路无锁读取。
type Snapshot struct {
	p atomic.Pointer[Index]
}

// Load 返回最新索引；从未重建过时为 nil。
func (s *Snapshot) Load() *Index {
	return s.p.Load()
}

// Publish 原子替换为新索引。
func (s *Snapshot) Publish(ix *Index) {
	s.p.Store(ix)
}
