package filter

import (
	"context"
	"testing"
	"time"

	"github.com/shopstream/recengine/core"
)

var filterNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func promoItem(id string, start, end time.Time) *core.Item {
	it := core.NewItem(core.NewEntityKey(core.EntityKindPromotion, id))
	it.Record = &core.EntityRecord{
		Kind: core.EntityKindPromotion,
		Promotion: &core.Promotion{
			ID:      id,
			StartAt: start,
			EndAt:   end,
		},
	}
	return it
}

func TestActivePromotionFilter(t *testing.T) {
	f := &ActivePromotionFilter{Now: func() time.Time { return filterNow }}

	tests := []struct {
		name string
		item *core.Item
		want bool
	}{
		{
			name: "active promotion kept",
			item: promoItem("sale", filterNow.Add(-time.Hour), filterNow.Add(time.Hour)),
			want: false,
		},
		{
			name: "ended promotion removed",
			item: promoItem("over", filterNow.Add(-48*time.Hour), filterNow.Add(-time.Hour)),
			want: true,
		},
		{
			name: "not yet started removed",
			item: promoItem("soon", filterNow.Add(time.Hour), filterNow.Add(48*time.Hour)),
			want: true,
		},
		{
			name: "promotion without record passes",
			item: core.NewItem(core.NewEntityKey(core.EntityKindPromotion, "bare")),
			want: false,
		},
		{
			name: "non promotion ignored",
			item: core.NewItem(core.NewEntityKey(core.EntityKindProduct, "p1")),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ShouldFilter(context.Background(), nil, tt.item)
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewRuleFilterBadExpression(t *testing.T) {
	if _, err := NewRuleFilter("item.score <"); err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestRuleFilterEval(t *testing.T) {
	lowScore, err := NewRuleFilter(`item.kind == "post" && item.score < 0.2`)
	if err != nil {
		t.Fatalf("NewRuleFilter: %v", err)
	}

	weakPost := core.NewItem(core.NewEntityKey(core.EntityKindPost, "b1"))
	weakPost.Score = 0.1
	strongPost := core.NewItem(core.NewEntityKey(core.EntityKindPost, "b2"))
	strongPost.Score = 0.9
	weakProduct := core.NewItem(core.NewEntityKey(core.EntityKindProduct, "p1"))
	weakProduct.Score = 0.1

	rctx := &core.RecommendContext{Actor: core.NewActorKey(core.ActorKindUser, "u1"), Limit: 10}

	for _, tt := range []struct {
		name string
		item *core.Item
		want bool
	}{
		{"weak post removed", weakPost, true},
		{"strong post kept", strongPost, false},
		{"weak product kept", weakProduct, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lowScore.ShouldFilter(context.Background(), rctx, tt.item)
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRuleFilterLabelAccess(t *testing.T) {
	f, err := NewRuleFilter(`"recall_source" in label && label.recall_source.value == "popular"`)
	if err != nil {
		t.Fatalf("NewRuleFilter: %v", err)
	}

	popular := core.NewItem(core.NewEntityKey(core.EntityKindProduct, "p1"))
	popular.PutLabel("recall_source", core.Label{Value: "popular", Source: "recall"})
	organic := core.NewItem(core.NewEntityKey(core.EntityKindProduct, "p2"))
	organic.PutLabel("recall_source", core.Label{Value: "collaborative", Source: "recall"})
	unlabeled := core.NewItem(core.NewEntityKey(core.EntityKindProduct, "p3"))

	for _, tt := range []struct {
		name string
		item *core.Item
		want bool
	}{
		{"popular label hit", popular, true},
		{"other label miss", organic, false},
		{"missing label miss", unlabeled, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ShouldFilter(context.Background(), nil, tt.item)
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestApplyRemovesHitsAndLabels(t *testing.T) {
	f := &ActivePromotionFilter{Now: func() time.Time { return filterNow }}
	expired := promoItem("over", filterNow.Add(-48*time.Hour), filterNow.Add(-time.Hour))
	keep := core.NewItem(core.NewEntityKey(core.EntityKindProduct, "p1"))

	out := Apply(context.Background(), []Filter{f}, nil, []*core.Item{expired, keep})
	if len(out) != 1 || out[0] != keep {
		t.Fatalf("expected only the product to survive, got %v", out)
	}
	if lbl, ok := expired.GetLabel("filtered"); !ok || lbl.Source != f.Name() {
		t.Fatalf("removed item must carry the filtered label, got %+v", expired.Labels)
	}
}

type failingFilter struct{}

func (failingFilter) Name() string { return "filter.failing" }

func (failingFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, context.DeadlineExceeded
}

func TestApplySkipsFailingFilter(t *testing.T) {
	keep := core.NewItem(core.NewEntityKey(core.EntityKindProduct, "p1"))
	out := Apply(context.Background(), []Filter{failingFilter{}}, nil, []*core.Item{keep})
	if len(out) != 1 {
		t.Fatalf("failing filter must be skipped, got %v", out)
	}
}
