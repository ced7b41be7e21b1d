package core

import (
	"strings"
	"time"
)

// EntityKind 表示可推荐对象的类型。
type EntityKind string

const (
	EntityKindProduct   EntityKind = "product"   // 商品
	EntityKindPost      EntityKind = "post"      // 内容帖子
	EntityKindProfile   EntityKind = "profile"   // 店铺/用户主页
	EntityKindPromotion EntityKind = "promotion" // 限时活动
	EntityKindSearch    EntityKind = "search"    // 搜索事件（复合 key，仅入矩阵，不可作为推荐结果）
)

// ContentKinds 是参与相似度索引的实体类型（有文本字段的实体）。
var ContentKinds = []EntityKind{EntityKindProduct, EntityKindPost, EntityKindPromotion}

// EntityKey 是实体的统一 key，格式为 "kind:id"。
// 搜索事件使用复合形式 "search:query:category:tags"，同样以首个冒号切分 kind。
type EntityKey string

// NewEntityKey 构造 EntityKey。
func NewEntityKey(kind EntityKind, id string) EntityKey {
	return EntityKey(string(kind) + ":" + id)
}

// NewSearchKey 构造搜索事件的复合 key。
func NewSearchKey(query, category string, tags []string) EntityKey {
	parts := []string{string(EntityKindSearch), query, category, strings.Join(tags, ",")}
	return EntityKey(strings.Join(parts, ":"))
}

// Parse 拆出 kind 与 id（复合 key 的 id 为冒号后的剩余部分）。
// 格式不合法（无冒号、未知 kind、空 id）时 ok 为 false。
func (k EntityKey) Parse() (EntityKind, string, bool) {
	raw := string(k)
	idx := strings.Index(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", false
	}
	kind := EntityKind(raw[:idx])
	switch kind {
	case EntityKindProduct, EntityKindPost, EntityKindProfile, EntityKindPromotion, EntityKindSearch:
		return kind, raw[idx+1:], true
	}
	return "", "", false
}

// Kind 返回实体类型，不合法时返回空串。
func (k EntityKey) Kind() EntityKind {
	kind, _, _ := k.Parse()
	return kind
}

// Valid 检查 key 是否为已知 kind 且带非空 id。
func (k EntityKey) Valid() bool {
	_, _, ok := k.Parse()
	return ok
}

// EntityRecord 是实体记录的 tagged union：Kind 标记有效的 payload，
// 四个 payload 指针中恰好一个非 nil。消费方按 Kind 做分支，而不是探测字段。
type EntityRecord struct {
	Kind      EntityKind
	Product   *Product
	Post      *Post
	Profile   *Profile
	Promotion *Promotion
}

// Product 是商品记录。
type Product struct {
	ID         string
	Title      string
	Price      float64
	SalesCount int
	CreatedAt  time.Time
}

// Post 是内容帖子记录。
type Post struct {
	ID              string
	Title           string
	EngagementCount int
	CreatedAt       time.Time
}

// Profile 是店铺/用户主页记录。
type Profile struct {
	ID            string
	DisplayName   string
	FollowerCount int
	CreatedAt     time.Time
}

// Promotion 是限时活动记录。
type Promotion struct {
	ID        string
	Title     string
	StartAt   time.Time
	EndAt     time.Time
	CreatedAt time.Time
}

// Key 返回记录对应的 EntityKey。
func (r *EntityRecord) Key() EntityKey {
	return NewEntityKey(r.Kind, r.EntityID())
}

// EntityID 返回有效 payload 的 ID，union 不合法时返回空串。
func (r *EntityRecord) EntityID() string {
	switch r.Kind {
	case EntityKindProduct:
		if r.Product != nil {
			return r.Product.ID
		}
	case EntityKindPost:
		if r.Post != nil {
			return r.Post.ID
		}
	case EntityKindProfile:
		if r.Profile != nil {
			return r.Profile.ID
		}
	case EntityKindPromotion:
		if r.Promotion != nil {
			return r.Promotion.ID
		}
	}
	return ""
}

// CreatedAt 返回有效 payload 的创建时间，用于新旧排序。
func (r *EntityRecord) CreatedAt() time.Time {
	switch r.Kind {
	case EntityKindProduct:
		if r.Product != nil {
			return r.Product.CreatedAt
		}
	case EntityKindPost:
		if r.Post != nil {
			return r.Post.CreatedAt
		}
	case EntityKindProfile:
		if r.Profile != nil {
			return r.Profile.CreatedAt
		}
	case EntityKindPromotion:
		if r.Promotion != nil {
			return r.Promotion.CreatedAt
		}
	}
	return time.Time{}
}

// Valid 检查 union 是否合法：Kind 已知且对应 payload 非 nil。
func (r *EntityRecord) Valid() bool {
	return r != nil && r.EntityID() != ""
}

// Document 是相似度索引的输入：一个实体的自由文本（标题+描述+标签拼接）。
type Document struct {
	ID   string
	Kind EntityKind
	Text string
}

// Key 返回文档对应的 EntityKey。
func (d Document) Key() EntityKey {
	return NewEntityKey(d.Kind, d.ID)
}
