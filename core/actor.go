package core

import "strings"

// ActorKind 表示推荐主体的类型。
// 登录用户与匿名会话都是合法的矩阵行：匿名流量同样携带可学习的行为信号。
type ActorKind string

const (
	ActorKindUser    ActorKind = "user"    // 已认证用户
	ActorKindSession ActorKind = "session" // 匿名会话（session token）
)

// ActorKey 是 actor 的统一 key，格式为 "kind:id"。
// 作为矩阵行索引与缓存 key 的组成部分，全链路使用 string 形态透传。
type ActorKey string

// NewActorKey 构造 ActorKey。
func NewActorKey(kind ActorKind, id string) ActorKey {
	return ActorKey(string(kind) + ":" + id)
}

// Parse 拆出 kind 与 id。格式不合法时 ok 为 false。
func (k ActorKey) Parse() (ActorKind, string, bool) {
	raw := string(k)
	idx := strings.Index(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", false
	}
	kind := ActorKind(raw[:idx])
	switch kind {
	case ActorKindUser, ActorKindSession:
		return kind, raw[idx+1:], true
	}
	return "", "", false
}

// Valid 检查 key 是否为已知 kind 且带非空 id。
func (k ActorKey) Valid() bool {
	_, _, ok := k.Parse()
	return ok
}
