package factor

import (
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/matrix"
)

// Trainer 用 mini-batch SGD 学习低秩嵌入，使 actor 与 entity 嵌入的点积
// 逼近矩阵中观测到的权重。
//
// 工程取舍：
//   - epoch 数固定且很小，不做收敛判断：模型滚动高频重训，训练时延的
//     上界比逼近最优更重要
//   - 每个 epoch 做一次 Fisher-Yates 洗牌，消除样本顺序偏置
//   - 单个样本数值异常（NaN/Inf）只记日志并跳过，训练从不中途放弃
type Trainer struct {
	// Factors 是嵌入维度上限；实际维度 = min(Factors, min(A, E))。
	// Factors <= 0 是配置错误，返回 ErrBadFactorConfig。
	Factors int

	Epochs         int     // 默认 20
	BatchSize      int     // 默认 32
	LearningRate   float64 // 默认 0.01
	Regularization float64 // L2 系数，默认 0.02
	InitStd        float64 // 高斯初始化标准差，默认 0.1

	// Rand 可注入随机源，便于测试确定性；为 nil 时用时间种子
	Rand *rand.Rand

	Logger zerolog.Logger

	// Now 可注入时钟
	Now func() time.Time
}

type sample struct {
	ai, ei int
	weight float64
}

// Train 训练一个新模型工件。
// 空矩阵或零非零 cell → (nil, nil)：这是预期的冷启动条件，不是错误。
func (t *Trainer) Train(m *matrix.ActorEntityMatrix) (*Model, error) {
	if t.Factors <= 0 {
		return nil, core.ErrBadFactorConfig
	}
	if m == nil || m.Empty() {
		return nil, nil
	}

	// 训练集：全部非零 cell 的 (actorIdx, entityIdx, weight) 三元组
	samples := make([]sample, 0, 64)
	for ai, row := range m.Cells {
		for ei, w := range row {
			if w > 0 {
				samples = append(samples, sample{ai: ai, ei: ei, weight: w})
			}
		}
	}
	if len(samples) == 0 {
		return nil, nil
	}

	numActors, numEntities := m.Dims()
	factors := t.Factors
	if n := min(numActors, numEntities); factors > n {
		factors = n
	}

	rng := t.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	epochs := t.Epochs
	if epochs <= 0 {
		epochs = 20
	}
	batchSize := t.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	lr := t.LearningRate
	if lr <= 0 {
		lr = 0.01
	}
	reg := t.Regularization
	if reg <= 0 {
		reg = 0.02
	}
	initStd := t.InitStd
	if initStd <= 0 {
		initStd = 0.1
	}

	// 小幅高斯噪声初始化，打破对称性
	actorFactors := randomMatrix(rng, numActors, factors, initStd)
	entityFactors := randomMatrix(rng, numEntities, factors, initStd)

	var skipped int
	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(samples), func(i, j int) {
			samples[i], samples[j] = samples[j], samples[i]
		})

		for start := 0; start < len(samples); start += batchSize {
			end := start + batchSize
			if end > len(samples) {
				end = len(samples)
			}
			batch := samples[start:end]

			// 先对整个 batch 基于当前参数求梯度，再统一应用
			deltaA := make(map[int][]float64, len(batch))
			deltaE := make(map[int][]float64, len(batch))
			for _, s := range batch {
				a := actorFactors[s.ai]
				e := entityFactors[s.ei]
				errv := s.weight - dot(a, e)
				if math.IsNaN(errv) || math.IsInf(errv, 0) {
					skipped++
					continue
				}
				da := deltaA[s.ai]
				if da == nil {
					da = make([]float64, factors)
					deltaA[s.ai] = da
				}
				de := deltaE[s.ei]
				if de == nil {
					de = make([]float64, factors)
					deltaE[s.ei] = de
				}
				for f := 0; f < factors; f++ {
					da[f] += lr * (errv*e[f] - reg*a[f])
					de[f] += lr * (errv*a[f] - reg*e[f])
				}
			}
			applyDeltas(actorFactors, deltaA)
			applyDeltas(entityFactors, deltaE)
		}
	}
	if skipped > 0 {
		t.Logger.Warn().Int("skipped", skipped).Msg("factor: skipped non-finite training samples")
	}

	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	recency := make(map[core.EntityKey]int64, len(m.Entities))
	for key, ts := range m.LastSeen {
		recency[key] = ts.UnixNano()
	}

	model := &Model{
		ActorFactors:  actorFactors,
		EntityFactors: entityFactors,
		Actors:        append([]core.ActorKey(nil), m.Actors...),
		Entities:      append([]core.EntityKey(nil), m.Entities...),
		NumFactors:    factors,
		TrainedAt:     now,
		EntityRecency: recency,
	}
	t.Logger.Info().
		Int("actors", numActors).
		Int("entities", numEntities).
		Int("factors", factors).
		Int("samples", len(samples)).
		Msg("factor: training complete")
	return model, nil
}

func randomMatrix(rng *rand.Rand, rows, cols int, std float64) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		row := make([]float64, cols)
		for j := range row {
			row[j] = rng.NormFloat64() * std
		}
		out[i] = row
	}
	return out
}

func applyDeltas(params [][]float64, deltas map[int][]float64) {
	for idx, d := range deltas {
		row := params[idx]
		for f, v := range d {
			next := row[f] + v
			if math.IsNaN(next) || math.IsInf(next, 0) {
				continue
			}
			row[f] = next
		}
	}
}
