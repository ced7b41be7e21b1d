package factor

import (
	"testing"
	"time"

	"github.com/shopstream/recengine/core"
)

func testModel() *Model {
	return &Model{
		// actor a 偏向第一维，entity x 同向、y 反向
		ActorFactors:  [][]float64{{1, 0}},
		EntityFactors: [][]float64{{2, 0}, {-1, 0}, {2, 0}},
		Actors:        actorKeys("a"),
		Entities:      entityKeys("x", "y", "z"),
		NumFactors:    2,
		TrainedAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EntityRecency: map[core.EntityKey]int64{
			core.NewEntityKey(core.EntityKindProduct, "x"): 100,
			core.NewEntityKey(core.EntityKindProduct, "y"): 200,
			core.NewEntityKey(core.EntityKindProduct, "z"): 300,
		},
	}
}

func TestPredictUnknownActor(t *testing.T) {
	_, err := testModel().Predict(core.NewActorKey(core.ActorKindSession, "stranger"))
	if !core.IsColdStart(err) {
		t.Fatalf("want COLD_START for unknown actor, got %v", err)
	}
}

func TestPredictRanksByDotProduct(t *testing.T) {
	scored, err := testModel().Predict(core.NewActorKey(core.ActorKindUser, "a"))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(scored) != 3 {
		t.Fatalf("expected score per entity, got %d", len(scored))
	}
	// x 与 z 同分(2)，z 更新（recency 300 > 100）→ z 在前；y(-1) 最后
	wantOrder := entityKeys("z", "x", "y")
	for i, want := range wantOrder {
		if scored[i].Entity != want {
			t.Fatalf("position %d: got %s, want %s", i, scored[i].Entity, want)
		}
	}
	if scored[0].Score != 2 || scored[2].Score != -1 {
		t.Fatalf("unexpected scores: %+v", scored)
	}
}

func TestSnapshotPublishAndLoad(t *testing.T) {
	var snap Snapshot
	if snap.Load() != nil {
		t.Fatal("fresh snapshot must be nil")
	}
	m := testModel()
	snap.Publish(m)
	if snap.Load() != m {
		t.Fatal("Load must return the published model")
	}
}
