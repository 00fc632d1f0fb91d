package store

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/logger"
)

func testWaveFilter(t *testing.T) *WaveFilter {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewWaveFilter(log)
}

func cutoffScript(waveID int64) queryScript {
	return queryScript{match: "RETURN id(w) AS id", records: []*neo4j.Record{
		record(map[string]any{"id": waveID}),
	}}
}

func TestAcceptedChangeIDsMissingWave(t *testing.T) {
	wf := testWaveFilter(t)
	tx := newScriptTx()

	_, err := wf.AcceptedChangeIDs(context.Background(), tx, ListContext{FromWaveID: 42})
	if !errs.IsNotFound(err) {
		t.Fatalf("expected NotFound for unknown cutoff wave, got %v", err)
	}
}

func TestAcceptedChangeIDsCollectsSet(t *testing.T) {
	wf := testWaveFilter(t)
	tx := newScriptTx(
		cutoffScript(1),
		queryScript{match: "collect(DISTINCT id(c))", records: []*neo4j.Record{
			record(map[string]any{"ids": []any{int64(5), int64(6)}}),
		}},
	)

	got, err := wf.AcceptedChangeIDs(context.Background(), tx, ListContext{FromWaveID: 1})
	if err != nil {
		t.Fatalf("AcceptedChangeIDs: %v", err)
	}
	if len(got) != 2 || !got[5] || !got[6] {
		t.Fatalf("accepted change set = %v, want {5, 6}", got)
	}
	q := tx.callContaining("collect(DISTINCT id(c))")
	if !strings.Contains(q, "w.year > cw.year") || !strings.Contains(q, "coalesce(w.quarter, 0) >= coalesce(cw.quarter, 0)") {
		t.Fatalf("change query missing the (year, quarter) ordering clause:\n%s", q)
	}
}

func TestAcceptedRequirementIDsAscendsToRoot(t *testing.T) {
	wf := testWaveFilter(t)
	// Change 5 fulfils requirement 10; 10's parent is 11; 11's refinement
	// edge points back down at 10, so the hierarchy forms a cycle.
	tx := newScriptTx(
		cutoffScript(1),
		queryScript{match: "collect(DISTINCT id(c))", records: []*neo4j.Record{
			record(map[string]any{"ids": []any{int64(5)}}),
		}},
		queryScript{match: "collect(DISTINCT id(r))", records: []*neo4j.Record{
			record(map[string]any{"ids": []any{int64(10)}}),
		}},
		queryScript{match: "collect(DISTINCT id(p))", records: []*neo4j.Record{
			record(map[string]any{"ids": []any{int64(11)}}),
		}},
		queryScript{match: "collect(DISTINCT id(p))", records: []*neo4j.Record{
			record(map[string]any{"ids": []any{int64(10)}}),
		}},
	)

	got, err := wf.AcceptedRequirementIDs(context.Background(), tx, ListContext{FromWaveID: 1})
	if err != nil {
		t.Fatalf("AcceptedRequirementIDs: %v", err)
	}
	if len(got) != 2 || !got[10] || !got[11] {
		t.Fatalf("accepted requirement set = %v, want {10, 11}", got)
	}
	// The ascent must stop once every parent is already accepted: two parent
	// queries, not a third chasing the cycle.
	parentCalls := 0
	for _, c := range tx.calls {
		if strings.Contains(c, "collect(DISTINCT id(p))") {
			parentCalls++
		}
	}
	if parentCalls != 2 {
		t.Fatalf("parent queries = %d, want 2", parentCalls)
	}
}

func TestAcceptedRequirementIDsEmptyChangeSetShortCircuits(t *testing.T) {
	wf := testWaveFilter(t)
	tx := newScriptTx(
		cutoffScript(1),
		queryScript{match: "collect(DISTINCT id(c))", records: []*neo4j.Record{
			record(map[string]any{"ids": []any{}}),
		}},
	)

	got, err := wf.AcceptedRequirementIDs(context.Background(), tx, ListContext{FromWaveID: 1})
	if err != nil {
		t.Fatalf("AcceptedRequirementIDs: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("accepted requirement set = %v, want empty", got)
	}
	if len(tx.calls) != 2 {
		t.Fatalf("queries run = %d, want 2 (cutoff check and change set only)", len(tx.calls))
	}
}
