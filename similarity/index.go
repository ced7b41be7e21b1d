// Package similarity 实现基于内容的相似度索引：对每个含文本的实体构建
// 经典 TF-IDF 向量，支持余弦相似度的近邻查询。
//
// 索引按语料快照整体重建，从不原地增量修补，保证 IDF 统计内部一致。
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/shopstream/recengine/core"
)

// Index 是一次重建产出的不可变索引。
//
// 不变式：Docs / Keys / Kinds / Norms 四个平行切片长度一致。
type Index struct {
	Docs  []map[string]float64 // 每文档的稀疏 term → tf-idf 权重
	Keys  []core.EntityKey
	Kinds []core.EntityKind
	Norms []float64 // 每文档向量的欧氏范数，构建时预计算

	byKey map[core.EntityKey]int
}

// Scored 是一个带相似度的近邻实体，相似度落在 [0,1]。
type Scored struct {
	Entity     core.EntityKey
	Similarity float64
}

// Build 从语料快照整体构建索引。空语料返回空索引（非 nil）。
func Build(corpus []core.Document) *Index {
	ix := &Index{byKey: make(map[core.EntityKey]int, len(corpus))}

	// 第一遍：分词、词频、文档频率
	termCounts := make([]map[string]float64, 0, len(corpus))
	docLens := make([]float64, 0, len(corpus))
	df := make(map[string]int)
	for _, doc := range corpus {
		key := doc.Key()
		if _, dup := ix.byKey[key]; dup {
			continue
		}
		terms := Tokenize(doc.Text)
		counts := make(map[string]float64, len(terms))
		for _, term := range terms {
			counts[term]++
		}
		for term := range counts {
			df[term]++
		}
		ix.byKey[key] = len(ix.Keys)
		ix.Keys = append(ix.Keys, key)
		ix.Kinds = append(ix.Kinds, doc.Kind)
		termCounts = append(termCounts, counts)
		docLens = append(docLens, float64(len(terms)))
	}

	// 第二遍：tf × idf，idf = ln(N/df)
	n := float64(len(ix.Keys))
	ix.Docs = make([]map[string]float64, len(ix.Keys))
	ix.Norms = make([]float64, len(ix.Keys))
	for i, counts := range termCounts {
		vec := make(map[string]float64, len(counts))
		var norm float64
		for term, count := range counts {
			if docLens[i] == 0 {
				continue
			}
			tf := count / docLens[i]
			idf := math.Log(n / float64(df[term]))
			w := tf * idf
			if w <= 0 {
				continue
			}
			vec[term] = w
			norm += w * w
		}
		ix.Docs[i] = vec
		ix.Norms[i] = math.Sqrt(norm)
	}
	return ix
}

// Reindex 重建内部的 key → 下标映射。
// 索引经 JSON 反序列化恢复后（工件缓存路径）必须先调用一次再投入服务。
func (ix *Index) Reindex() {
	ix.byKey = make(map[core.EntityKey]int, len(ix.Keys))
	for i, k := range ix.Keys {
		ix.byKey[k] = i
	}
}

// Len 返回索引中的文档数量。
func (ix *Index) Len() int {
	return len(ix.Keys)
}

// Contains 判断实体是否在索引中。
func (ix *Index) Contains(key core.EntityKey) bool {
	_, ok := ix.byKey[key]
	return ok
}

// Neighbors 返回与 key 最相似的 limit 个实体，按相似度降序。
// key 不在索引中（新实体/未索引实体）→ 返回 nil，不是错误。
// 自身不出现在自己的近邻列表里；零范数向量的相似度为 0。
func (ix *Index) Neighbors(key core.EntityKey, limit int) []Scored {
	i, ok := ix.byKey[key]
	if !ok || limit <= 0 {
		return nil
	}

	out := make([]Scored, 0, len(ix.Keys))
	for j := range ix.Keys {
		if j == i {
			continue
		}
		sim := ix.cosine(i, j)
		if sim <= 0 {
			continue
		}
		out = append(out, Scored{Entity: ix.Keys[j], Similarity: sim})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Similarity != out[b].Similarity {
			return out[a].Similarity > out[b].Similarity
		}
		return out[a].Entity < out[b].Entity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// cosine 计算两篇文档的余弦相似度：非零 term 并集上的点积 / 范数乘积。
func (ix *Index) cosine(i, j int) float64 {
	if ix.Norms[i] == 0 || ix.Norms[j] == 0 {
		return 0
	}
	a, b := ix.Docs[i], ix.Docs[j]
	if len(b) < len(a) {
		a, b = b, a
	}
	var dotv float64
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			dotv += wa * wb
		}
	}
	return dotv / (ix.Norms[i] * ix.Norms[j])
}

// Tokenize 把自由文本切成小写词项：非字母数字一律作为分隔符，丢弃单字符词。
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	fields := strings.Fields(cleaned)
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
