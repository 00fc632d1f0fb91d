package store

import (
	"context"
	"strings"
	"testing"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/pkg/errs"
)

func TestChangeWhere(t *testing.T) {
	t.Run("empty filter yields no clauses", func(t *testing.T) {
		where, params := changeWhere(domain.ChangeFilter{})
		if len(where) != 0 || len(params) != 0 {
			t.Fatalf("where=%v params=%v", where, params)
		}
	})

	t.Run("all filters bind", func(t *testing.T) {
		where, params := changeWhere(domain.ChangeFilter{
			TitleContains: "datalink",
			TextContains:  "trajectory",
			Visibility:    "NETWORK",
			DraftingGroup: "NM",
			SatisfiesItem: 11,
		})
		if len(where) != 5 {
			t.Fatalf("expected 5 clauses, got %d: %v", len(where), where)
		}
		joined := strings.Join(where, " AND ")
		if !strings.Contains(joined, "SATISFIES|SUPERSEDES") {
			t.Errorf("fulfilment clause should match either edge type: %q", joined)
		}
		if params["satisfiesItem"] != int64(11) {
			t.Errorf("satisfiesItem param = %v", params["satisfiesItem"])
		}
	})
}

func TestChangeWriteSplitsContentAndRelations(t *testing.T) {
	in := domain.ChangeInput{
		Title:        "Deploy datalink clearances",
		Purpose:      "purpose text",
		InitialState: "before",
		FinalState:   "after",
		Visibility:   "NETWORK",
		Relations: &domain.ChangeRelations{
			SatisfiesRequirements: []int64{5},
			Milestones:            []domain.MilestoneInput{{Title: "Go-live"}},
		},
	}
	w := changeWrite(in)
	if w.Title != "Deploy datalink clearances" {
		t.Fatalf("title = %q", w.Title)
	}
	if w.Content["purpose"] != "purpose text" || w.Content["visibility"] != "NETWORK" {
		t.Fatalf("content = %v", w.Content)
	}
	rel, ok := w.Relations.(*domain.ChangeRelations)
	if !ok || rel == nil {
		t.Fatalf("relations not carried through: %T", w.Relations)
	}
	if len(rel.Milestones) != 1 || rel.Milestones[0].Title != "Go-live" {
		t.Fatalf("milestones = %v", rel.Milestones)
	}
}

func TestChangeWriteNilRelationsStaysNil(t *testing.T) {
	w := changeWrite(domain.ChangeInput{Title: "t"})
	if w.Relations != nil {
		t.Fatalf("expected nil relations for inherit-all update, got %v", w.Relations)
	}
}

func TestCreateMilestonesValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("no inputs is a no-op", func(t *testing.T) {
		if err := createMilestones(ctx, nil, 1, nil, "tester"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing title rejected", func(t *testing.T) {
		err := createMilestones(ctx, nil, 1, []domain.MilestoneInput{{Key: "k1"}}, "tester")
		if !errs.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("duplicate key rejected", func(t *testing.T) {
		err := createMilestones(ctx, nil, 1, []domain.MilestoneInput{
			{Key: "k1", Title: "first"},
			{Key: "k1", Title: "second"},
		}, "tester")
		if !errs.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if !strings.Contains(err.Error(), "k1") {
			t.Fatalf("error should name the duplicate key: %v", err)
		}
	})
}
