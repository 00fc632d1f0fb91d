package store

import (
	"reflect"
	"strings"
	"testing"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/pkg/errs"
)

func TestRequirementWhere(t *testing.T) {
	t.Run("empty filter yields no clauses", func(t *testing.T) {
		where, params := requirementWhere(domain.RequirementFilter{})
		if len(where) != 0 {
			t.Fatalf("expected no clauses, got %v", where)
		}
		if len(params) != 0 {
			t.Fatalf("expected no params, got %v", params)
		}
	})

	t.Run("all filters bind", func(t *testing.T) {
		where, params := requirementWhere(domain.RequirementFilter{
			Type:          domain.RequirementTypeOR,
			TitleContains: "runway",
			TextContains:  "sequencing",
			DraftingGroup: "FLOW",
			ImpactsAnyOf:  []int64{7, 9},
		})
		if len(where) != 5 {
			t.Fatalf("expected 5 clauses, got %d: %v", len(where), where)
		}
		joined := strings.Join(where, " AND ")
		for _, fragment := range []string{"v.type = $type", "$titleContains", "$textContains", "v.draftingGroup = $draftingGroup", "IMPACTS"} {
			if !strings.Contains(joined, fragment) {
				t.Errorf("missing clause fragment %q in %q", fragment, joined)
			}
		}
		if !reflect.DeepEqual(params["impactsAnyOf"], []int64{7, 9}) {
			t.Errorf("impactsAnyOf param = %v", params["impactsAnyOf"])
		}
		if params["type"] != domain.RequirementTypeOR {
			t.Errorf("type param = %v", params["type"])
		}
	})

	t.Run("single filter binds only its param", func(t *testing.T) {
		where, params := requirementWhere(domain.RequirementFilter{DraftingGroup: "NM"})
		if len(where) != 1 || len(params) != 1 {
			t.Fatalf("where=%v params=%v", where, params)
		}
	})
}

func TestRequirementWriteSplitsContentAndRelations(t *testing.T) {
	parent := int64(42)
	in := domain.RequirementInput{
		Title:         "Arrival sequencing",
		Type:          domain.RequirementTypeON,
		Statement:     "statement text",
		Rationale:     "rationale text",
		DraftingGroup: "FLOW",
		Relations: &domain.RequirementRelations{
			RefinesParent: &parent,
			ImpactsData:   []int64{3},
		},
	}
	w := requirementWrite(in)
	if w.Title != "Arrival sequencing" {
		t.Fatalf("title = %q", w.Title)
	}
	if w.DraftingGroup != "FLOW" {
		t.Fatalf("draftingGroup = %q", w.DraftingGroup)
	}
	if w.Content["statement"] != "statement text" || w.Content["type"] != domain.RequirementTypeON {
		t.Fatalf("content = %v", w.Content)
	}
	rel, ok := w.Relations.(*domain.RequirementRelations)
	if !ok || rel == nil {
		t.Fatalf("relations not carried through: %T", w.Relations)
	}
	if rel.RefinesParent == nil || *rel.RefinesParent != 42 {
		t.Fatalf("refines parent = %v", rel.RefinesParent)
	}
}

func TestRequirementWriteNilRelationsStaysNil(t *testing.T) {
	w := requirementWrite(domain.RequirementInput{Title: "t", Type: domain.RequirementTypeOR})
	if w.Relations != nil {
		t.Fatalf("expected nil relations for inherit-all update, got %v", w.Relations)
	}
}

func TestValidateRequirementType(t *testing.T) {
	for _, valid := range []string{domain.RequirementTypeON, domain.RequirementTypeOR} {
		if err := validateRequirementType(valid); err != nil {
			t.Errorf("type %q unexpectedly rejected: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "or", "REQ"} {
		err := validateRequirementType(invalid)
		if !errs.IsValidation(err) {
			t.Errorf("type %q: expected validation error, got %v", invalid, err)
		}
	}
}

func TestRejectSelf(t *testing.T) {
	if err := rejectSelf(5, []int64{1, 2, 3}, "dependency"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := rejectSelf(5, []int64{1, 5}, "dependency")
	if !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOrEmpty(t *testing.T) {
	if got := orEmpty(nil); got == nil || len(got) != 0 {
		t.Fatalf("orEmpty(nil) = %v", got)
	}
	refs := []domain.Reference{{ID: 1}}
	if got := orEmpty(refs); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("orEmpty(refs) = %v", got)
	}
}

func TestIDSetToSlice(t *testing.T) {
	got := idSetToSlice(map[int64]bool{4: true, 8: true})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	seen := map[int64]bool{}
	for _, id := range got {
		seen[id] = true
	}
	if !seen[4] || !seen[8] {
		t.Fatalf("slice %v missing ids", got)
	}
}
