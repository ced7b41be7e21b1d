package recall

import (
	"context"
	"testing"
	"time"

	"github.com/shopstream/recengine/core"
	"github.com/shopstream/recengine/factor"
	"github.com/shopstream/recengine/similarity"
	"github.com/shopstream/recengine/store"
)

var (
	now     = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	actorU1 = core.NewActorKey(core.ActorKindUser, "u1")
	actorU2 = core.NewActorKey(core.ActorKindUser, "u2")
)

func pkey(id string) core.EntityKey { return core.NewEntityKey(core.EntityKindProduct, id) }

// --- Collaborative ---

func publishedModel() *factor.Snapshot {
	snap := &factor.Snapshot{}
	snap.Publish(&factor.Model{
		ActorFactors: [][]float64{{1}},
		EntityFactors: [][]float64{
			{3}, {2}, {1}, {-1},
		},
		Actors: []core.ActorKey{actorU1},
		Entities: []core.EntityKey{
			pkey("p1"),
			core.NewEntityKey(core.EntityKindPost, "b1"),
			core.NewSearchKey("shoes", "footwear", nil),
			pkey("p2"),
		},
		NumFactors: 1,
		TrainedAt:  now,
	})
	return snap
}

func TestCollaborativeColdWithoutModel(t *testing.T) {
	src := &Collaborative{Models: &factor.Snapshot{}}
	_, err := src.Recall(context.Background(), &core.RecommendContext{Actor: actorU1})
	if !core.IsColdStart(err) {
		t.Fatalf("no published model: want COLD_START, got %v", err)
	}
}

func TestCollaborativeColdActor(t *testing.T) {
	src := &Collaborative{Models: publishedModel()}
	_, err := src.Recall(context.Background(), &core.RecommendContext{
		Actor: core.NewActorKey(core.ActorKindSession, "fresh"),
	})
	if !core.IsColdStart(err) {
		t.Fatalf("unknown actor: want COLD_START, got %v", err)
	}
}

func TestCollaborativeFiltersKindsAndSearchKeys(t *testing.T) {
	src := &Collaborative{Models: publishedModel()}
	items, err := src.Recall(context.Background(), &core.RecommendContext{
		Actor: actorU1,
		Kinds: []core.EntityKind{core.EntityKindProduct, core.EntityKindPost},
	})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	// p1(3), b1(2)；search key 不可推，p2 分数为负被截断
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(items), items)
	}
	if items[0].ID != pkey("p1") || items[0].Score != 3 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if lbl, _ := items[1].GetLabel("recall_source"); lbl.Value != "collaborative" {
		t.Fatalf("missing recall_source label: %+v", items[1].Labels)
	}
}

// --- Content ---

type fakeInteractions struct {
	ins []core.Interaction
	err error
}

func (f *fakeInteractions) QueryInteractions(
	_ context.Context,
	_ core.Window,
	_ []core.Action,
	_ []core.EntityKind,
) ([]core.Interaction, error) {
	return f.ins, f.err
}

func contentIndex() *similarity.Snapshot {
	snap := &similarity.Snapshot{}
	snap.Publish(similarity.Build([]core.Document{
		{ID: "p1", Kind: core.EntityKindProduct, Text: "red running shoes lightweight"},
		{ID: "p2", Kind: core.EntityKindProduct, Text: "red trail running shoes"},
		{ID: "p3", Kind: core.EntityKindProduct, Text: "ceramic coffee mug"},
	}))
	return snap
}

func TestContentSeedsFromRecentInteractions(t *testing.T) {
	src := &Content{
		Index: contentIndex(),
		Source: &fakeInteractions{ins: []core.Interaction{{
			Actor:      actorU1,
			Target:     pkey("p1"),
			Action:     core.ActionView,
			Weight:     1,
			OccurredAt: now.Add(-time.Hour),
			ExpiresAt:  now.Add(time.Hour),
		}}},
		Now: func() time.Time { return now },
	}
	items, err := src.Recall(context.Background(), &core.RecommendContext{Actor: actorU1})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected content candidates")
	}
	if items[0].ID != pkey("p2") {
		t.Fatalf("expected p2 (shared terms with seed p1) first, got %s", items[0].ID)
	}
	for _, it := range items {
		if it.ID == pkey("p1") {
			t.Fatal("seed entity must not be recommended back")
		}
	}
}

func TestContentLeavesSourceSliceIntact(t *testing.T) {
	// 行为日志源可能跨请求返回共享切片：过滤种子不得改写它
	shared := []core.Interaction{
		{Actor: actorU1, Target: pkey("p1"), Action: core.ActionView, OccurredAt: now.Add(-time.Hour)},
		{Actor: actorU1, Target: pkey("p3"), Action: core.ActionView, OccurredAt: now.Add(-2 * time.Hour)},
		{Actor: actorU2, Target: pkey("p2"), Action: core.ActionView, OccurredAt: now.Add(-time.Hour)},
		{Actor: actorU2, Target: pkey("p3"), Action: core.ActionView, OccurredAt: now.Add(-3 * time.Hour)},
	}
	src := &Content{
		Index:  contentIndex(),
		Source: &fakeInteractions{ins: shared},
		Now:    func() time.Time { return now },
	}

	if _, err := src.Recall(context.Background(), &core.RecommendContext{Actor: actorU2}); err != nil {
		t.Fatalf("Recall: %v", err)
	}

	wantActors := []core.ActorKey{actorU1, actorU1, actorU2, actorU2}
	wantTargets := []core.EntityKey{pkey("p1"), pkey("p3"), pkey("p2"), pkey("p3")}
	for i, in := range shared {
		if in.Actor != wantActors[i] || in.Target != wantTargets[i] {
			t.Fatalf("source slice mutated at %d: got (%s, %s)", i, in.Actor, in.Target)
		}
	}
}

func TestContentEmptyIndex(t *testing.T) {
	src := &Content{Index: &similarity.Snapshot{}, Source: &fakeInteractions{}}
	items, err := src.Recall(context.Background(), &core.RecommendContext{Actor: actorU1})
	if err != nil || items != nil {
		t.Fatalf("empty index: want (nil, nil), got (%v, %v)", items, err)
	}
}

// --- Popular ---

type fakeCatalog struct {
	popular map[core.EntityKind][]core.EntityRecord
	err     error
}

func (f *fakeCatalog) FetchByIDs(_ context.Context, kind core.EntityKind, ids []string) ([]core.EntityRecord, error) {
	return nil, nil
}

func (f *fakeCatalog) FetchPopular(_ context.Context, kind core.EntityKind, _ int) ([]core.EntityRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.popular[kind], nil
}

func productRecord(id string, createdAt time.Time) core.EntityRecord {
	return core.EntityRecord{
		Kind:    core.EntityKindProduct,
		Product: &core.Product{ID: id, Title: id, CreatedAt: createdAt},
	}
}

func TestPopularKeepsCatalogOrderPerKind(t *testing.T) {
	src := &Popular{
		Catalog: &fakeCatalog{popular: map[core.EntityKind][]core.EntityRecord{
			core.EntityKindProduct: {
				productRecord("hot1", now.Add(-time.Hour)),
				productRecord("hot2", now.Add(-time.Hour)),
			},
		}},
		Now: func() time.Time { return now },
	}
	items, err := src.Recall(context.Background(), &core.RecommendContext{Actor: actorU1})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(items) != 2 || items[0].ID != pkey("hot1") || items[1].ID != pkey("hot2") {
		t.Fatalf("unexpected order: %v", items)
	}
	if items[0].Record == nil {
		t.Fatal("popular items must carry resolved records")
	}
	if lbl, _ := items[0].GetLabel("recall_source"); lbl.Value != "popular" {
		t.Fatalf("missing popular label: %+v", items[0].Labels)
	}
}

func TestPopularRecencyDecayBreaksRankTies(t *testing.T) {
	// 不同 kind 的第一名同为排名分 1.0：更新的实体衰减更少，排得更前
	src := &Popular{
		Catalog: &fakeCatalog{popular: map[core.EntityKind][]core.EntityRecord{
			core.EntityKindProduct: {productRecord("old", now.Add(-90*24*time.Hour))},
			core.EntityKindPost: {{
				Kind: core.EntityKindPost,
				Post: &core.Post{ID: "fresh", CreatedAt: now.Add(-time.Hour)},
			}},
		}},
		Now: func() time.Time { return now },
	}
	items, err := src.Recall(context.Background(), &core.RecommendContext{
		Actor: actorU1,
		Kinds: []core.EntityKind{core.EntityKindProduct, core.EntityKindPost},
	})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != core.NewEntityKey(core.EntityKindPost, "fresh") {
		t.Fatalf("expected fresher entity first, got %s", items[0].ID)
	}
}

func TestPopularCatalogDownReturnsEmpty(t *testing.T) {
	src := &Popular{Catalog: &fakeCatalog{err: context.DeadlineExceeded}}
	items, err := src.Recall(context.Background(), &core.RecommendContext{Actor: actorU1})
	if err != nil {
		t.Fatalf("popular must not propagate catalog errors, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result, got %v", items)
	}
}

func TestPopularHotListWhenCatalogDown(t *testing.T) {
	ctx := context.Background()
	hot := store.NewMemoryStore()
	defer hot.Close()
	for member, score := range map[string]float64{"p1": 3, "p2": 10, "p3": 7} {
		if err := hot.ZAdd(ctx, "rec:hot:product", score, member); err != nil {
			t.Fatalf("ZAdd %s: %v", member, err)
		}
	}

	src := &Popular{
		Catalog: &fakeCatalog{err: context.DeadlineExceeded},
		Hot:     hot,
		Now:     func() time.Time { return now },
	}
	items, err := src.Recall(ctx, &core.RecommendContext{Actor: actorU1})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 hot list items, got %d", len(items))
	}
	// 榜单分降序：p2(10) p3(7) p1(3)，排名位置分 1.0 / 0.67 / 0.33
	want := []core.EntityKey{pkey("p2"), pkey("p3"), pkey("p1")}
	for i, w := range want {
		if items[i].ID != w {
			t.Fatalf("rank %d: expected %s, got %s", i, w, items[i].ID)
		}
	}
	if items[0].Score != 1.0 {
		t.Fatalf("expected rank position score 1.0, got %v", items[0].Score)
	}
	if lbl, _ := items[0].GetLabel("recall_source"); lbl.Value != "popular" {
		t.Fatalf("missing popular label: %+v", items[0].Labels)
	}
}
