package factor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/matrix"
)

func newTrainer(factors int) *Trainer {
	return &Trainer{
		Factors: factors,
		Rand:    rand.New(rand.NewSource(42)),
		Logger:  zerolog.Nop(),
	}
}

func actorKeys(ids ...string) []core.ActorKey {
	out := make([]core.ActorKey, len(ids))
	for i, id := range ids {
		out[i] = core.NewActorKey(core.ActorKindUser, id)
	}
	return out
}

func entityKeys(ids ...string) []core.EntityKey {
	out := make([]core.EntityKey, len(ids))
	for i, id := range ids {
		out[i] = core.NewEntityKey(core.EntityKindProduct, id)
	}
	return out
}

func TestTrainNilAndEmptyMatrix(t *testing.T) {
	tr := newTrainer(4)

	model, err := tr.Train(nil)
	if err != nil || model != nil {
		t.Fatalf("nil matrix: want (nil, nil), got (%v, %v)", model, err)
	}

	model, err = tr.Train(matrix.NewActorEntityMatrix(nil, nil))
	if err != nil || model != nil {
		t.Fatalf("empty matrix: want (nil, nil), got (%v, %v)", model, err)
	}
}

func TestTrainZeroNonZeroCells(t *testing.T) {
	m := matrix.NewActorEntityMatrix(actorKeys("a", "b"), entityKeys("x", "y"))

	model, err := newTrainer(4).Train(m)
	if err != nil {
		t.Fatalf("zero cells must not error: %v", err)
	}
	if model != nil {
		t.Fatal("zero cells: want nil model (cold start)")
	}
}

func TestTrainBadConfig(t *testing.T) {
	m := matrix.NewActorEntityMatrix(actorKeys("a"), entityKeys("x"))
	m.Cells[0][0] = 5

	for _, factors := range []int{0, -3} {
		_, err := newTrainer(factors).Train(m)
		if !core.IsBadConfig(err) {
			t.Fatalf("factors=%d: want BAD_CONFIG, got %v", factors, err)
		}
	}
}

func TestTrainShapeInvariant(t *testing.T) {
	// 3 actors × 4 entities，2 个非零 cell，F=2
	m := matrix.NewActorEntityMatrix(actorKeys("a", "b", "c"), entityKeys("w", "x", "y", "z"))
	m.Cells[0][1] = 10
	m.Cells[2][3] = 4

	model, err := newTrainer(2).Train(m)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if model == nil {
		t.Fatal("expected model")
	}
	if model.NumFactors != 2 {
		t.Fatalf("NumFactors = %d, want 2", model.NumFactors)
	}
	if len(model.ActorFactors) != len(model.Actors) || len(model.Actors) != 3 {
		t.Fatalf("actor shape: %d rows for %d actors", len(model.ActorFactors), len(model.Actors))
	}
	if len(model.EntityFactors) != len(model.Entities) || len(model.Entities) != 4 {
		t.Fatalf("entity shape: %d rows for %d entities", len(model.EntityFactors), len(model.Entities))
	}
	for _, row := range model.ActorFactors {
		if len(row) != 2 {
			t.Fatalf("actor row has %d cols, want 2", len(row))
		}
	}
	for _, row := range model.EntityFactors {
		if len(row) != 2 {
			t.Fatalf("entity row has %d cols, want 2", len(row))
		}
	}
}

func TestTrainCapsFactorsAtMatrixRank(t *testing.T) {
	m := matrix.NewActorEntityMatrix(actorKeys("a", "b"), entityKeys("x", "y", "z"))
	m.Cells[0][0] = 3

	model, err := newTrainer(10).Train(m)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if model.NumFactors != 2 {
		t.Fatalf("NumFactors = %d, want min(10, min(2,3)) = 2", model.NumFactors)
	}
}

func TestTrainProducesFiniteEmbeddings(t *testing.T) {
	m := matrix.NewActorEntityMatrix(actorKeys("a", "b", "c"), entityKeys("x", "y"))
	m.Cells[0][0] = 10
	m.Cells[1][0] = 6
	m.Cells[1][1] = 1
	m.Cells[2][1] = 4

	model, err := newTrainer(2).Train(m)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	check := func(name string, rows [][]float64) {
		for i, row := range rows {
			for j, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s[%d][%d] is not finite: %v", name, i, j, v)
				}
			}
		}
	}
	check("ActorFactors", model.ActorFactors)
	check("EntityFactors", model.EntityFactors)
}

func TestTrainLearnsObservedPreference(t *testing.T) {
	// 单 actor 对 x 有强信号，对 y 没有：训练后 x 必须排在 y 前面
	m := matrix.NewActorEntityMatrix(actorKeys("a"), entityKeys("x", "y"))
	m.Cells[0][0] = 10

	tr := newTrainer(1)
	tr.Epochs = 200
	tr.LearningRate = 0.05
	model, err := tr.Train(m)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	scored, err := model.Predict(core.NewActorKey(core.ActorKindUser, "a"))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if scored[0].Entity != core.NewEntityKey(core.EntityKindProduct, "x") {
		t.Fatalf("expected observed entity ranked first, got %v", scored[0])
	}
	if scored[0].Score <= scored[1].Score {
		t.Fatalf("expected score separation, got %v vs %v", scored[0].Score, scored[1].Score)
	}
}
