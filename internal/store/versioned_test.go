package store

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/logger"
)

func testEngine(t *testing.T) *VersionedStore {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return newVersionedStore(labelRequirement, labelRequirementVersion, codeTagRequirement, &requirementAdapter{}, log)
}

func TestRowFromRecord(t *testing.T) {
	e := testEngine(t)
	rec := record(map[string]any{
		"itemId":    int64(10),
		"title":     "Arrival sequencing",
		"code":      "OR-FLOW-0001",
		"versionId": int64(20),
		"props": map[string]any{
			"version":   int64(3),
			"type":      "OR",
			"statement": "text",
			"createdAt": "2026-02-01T09:00:00Z",
			"createdBy": "tester",
		},
	})
	r, err := e.rowFromRecord(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ItemID != 10 || r.VersionID != 20 || r.Version != 3 {
		t.Fatalf("row ids = %+v", r)
	}
	if r.Title != "Arrival sequencing" || r.Code != "OR-FLOW-0001" {
		t.Fatalf("row fields = %+v", r)
	}
	if r.CreatedAt.IsZero() || r.CreatedBy != "tester" {
		t.Fatalf("audit fields = %v %q", r.CreatedAt, r.CreatedBy)
	}
	if r.Props["statement"] != "text" {
		t.Fatalf("props = %v", r.Props)
	}
}

// A racing update can repoint the latest edge between the Go-side check and
// the write. The write statement must then match zero rows and surface
// Conflict instead of deleting whichever latest edge exists and minting a
// duplicate version number.
func TestUpdateConflictWhenLatestRepointedAfterCheck(t *testing.T) {
	e := testEngine(t)
	tx := newScriptTx(
		queryScript{match: "OPTIONAL MATCH", records: []*neo4j.Record{record(map[string]any{
			"title":     "Arrival sequencing",
			"code":      "OR-FLOW-0001",
			"currentId": int64(100),
		})}},
		// write answers zero rows: the guard no longer matches
	)

	_, err := e.Update(context.Background(), tx, 10, writeInput{Title: "Arrival sequencing"}, 100, "tester")
	if !errs.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	write := tx.callContaining("DELETE lv")
	if write == "" {
		t.Fatal("write statement never ran")
	}
	if !strings.Contains(write, "id(cur) = $expectedVersionId") {
		t.Fatalf("write statement does not assert the expected version:\n%s", write)
	}
	if !strings.Contains(write, "cur.version + 1") {
		t.Fatalf("write statement does not derive the sequence number from the matched latest:\n%s", write)
	}
}

func TestUpdateStaleExpectedVersionIsConflict(t *testing.T) {
	e := testEngine(t)
	tx := newScriptTx(
		queryScript{match: "OPTIONAL MATCH", records: []*neo4j.Record{record(map[string]any{
			"title":     "Arrival sequencing",
			"currentId": int64(105),
		})}},
	)

	_, err := e.Update(context.Background(), tx, 10, writeInput{}, 100, "tester")
	if !errs.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if tx.callContaining("DELETE lv") != "" {
		t.Fatal("write statement must not run after a failed check")
	}
}

func TestUpdateMissingItemIsNotFound(t *testing.T) {
	e := testEngine(t)
	tx := newScriptTx()
	_, err := e.Update(context.Background(), tx, 10, writeInput{}, 100, "tester")
	if !errs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateSuccessUsesStoreComputedVersion(t *testing.T) {
	e := testEngine(t)
	tx := newScriptTx(
		queryScript{match: "OPTIONAL MATCH", records: []*neo4j.Record{record(map[string]any{
			"title":     "Arrival sequencing",
			"code":      "OR-FLOW-0001",
			"currentId": int64(100),
		})}},
		queryScript{match: "DELETE lv", records: []*neo4j.Record{record(map[string]any{
			"versionId": int64(202),
			"version":   int64(2),
		})}},
	)

	r, err := e.Update(context.Background(), tx, 10, writeInput{Title: "Arrival sequencing"}, 100, "tester")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.VersionID != 202 || r.Version != 2 {
		t.Fatalf("row = %+v", r)
	}
	if r.Props["version"] != int64(2) {
		t.Fatalf("props version = %v", r.Props["version"])
	}
}

func TestRowFromRecordMissingProps(t *testing.T) {
	e := testEngine(t)
	r, err := e.rowFromRecord(record(map[string]any{
		"itemId":    int64(1),
		"versionId": int64(2),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Version != 0 || r.Props != nil {
		t.Fatalf("row = %+v", r)
	}
}
