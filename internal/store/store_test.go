package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func record(pairs map[string]any) *neo4j.Record {
	rec := &neo4j.Record{}
	for k, v := range pairs {
		rec.Keys = append(rec.Keys, k)
		rec.Values = append(rec.Values, v)
	}
	return rec
}

// scriptedResult satisfies the driver result interface by embedding it;
// only Collect is ever called by the store layer.
type scriptedResult struct {
	neo4j.ResultWithContext
	records []*neo4j.Record
}

func (r *scriptedResult) Collect(ctx context.Context) ([]*neo4j.Record, error) {
	return r.records, nil
}

// queryScript answers the first statement whose text contains match; each
// script is consumed once so repeated statements can get different answers.
type queryScript struct {
	match   string
	records []*neo4j.Record
}

// scriptTx is a transaction double driven by an ordered script. Statements
// with no matching unconsumed script answer with zero rows.
type scriptTx struct {
	scripts []queryScript
	used    []bool
	calls   []string
}

func newScriptTx(scripts ...queryScript) *scriptTx {
	return &scriptTx{scripts: scripts, used: make([]bool, len(scripts))}
}

func (tx *scriptTx) Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error) {
	tx.calls = append(tx.calls, cypher)
	for i, s := range tx.scripts {
		if !tx.used[i] && strings.Contains(cypher, s.match) {
			tx.used[i] = true
			return &scriptedResult{records: s.records}, nil
		}
	}
	return &scriptedResult{}, nil
}

func (tx *scriptTx) callContaining(fragment string) string {
	for _, c := range tx.calls {
		if strings.Contains(c, fragment) {
			return c
		}
	}
	return ""
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 30, 45, 123456789, time.UTC)
	s := timestamp(now)
	got := parseTime(s)
	if !got.Equal(now) {
		t.Fatalf("round trip %q = %v, want %v", s, got, now)
	}
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		name string
		in   any
		zero bool
	}{
		{name: "valid", in: "2027-01-15T00:00:00Z", zero: false},
		{name: "empty string", in: "", zero: true},
		{name: "not a string", in: 42, zero: true},
		{name: "garbage", in: "yesterday", zero: true},
		{name: "nil", in: nil, zero: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseTime(tc.in)
			if got.IsZero() != tc.zero {
				t.Fatalf("parseTime(%v) = %v, zero=%v", tc.in, got, tc.zero)
			}
		})
	}
}

func TestRecordHelpers(t *testing.T) {
	rec := record(map[string]any{
		"id":    int64(17),
		"title": "Arrival sequencing",
		"count": int64(3),
		"tags":  []any{"API_PUBLICATION", "SERVICE_ACTIVATION"},
		"empty": nil,
	})

	id, err := recordID(rec, "id")
	if err != nil || id != 17 {
		t.Fatalf("recordID = %d, %v", id, err)
	}
	if id, err := recordID(rec, "missing"); err != nil || id != 0 {
		t.Fatalf("recordID missing = %d, %v", id, err)
	}
	if id, err := recordID(rec, "empty"); err != nil || id != 0 {
		t.Fatalf("recordID nil = %d, %v", id, err)
	}
	if got := recordString(rec, "title"); got != "Arrival sequencing" {
		t.Fatalf("recordString = %q", got)
	}
	if got := recordString(rec, "missing"); got != "" {
		t.Fatalf("recordString missing = %q", got)
	}
	if got := recordInt(rec, "count"); got != 3 {
		t.Fatalf("recordInt = %d", got)
	}
	tags := recordStrings(rec, "tags")
	if len(tags) != 2 || tags[0] != "API_PUBLICATION" {
		t.Fatalf("recordStrings = %v", tags)
	}
	if got := recordStrings(rec, "empty"); got != nil {
		t.Fatalf("recordStrings nil = %v", got)
	}
}

func TestMilestoneFromRecord(t *testing.T) {
	t.Run("with wave", func(t *testing.T) {
		m, err := milestoneFromRecord(record(map[string]any{
			"milestoneId": int64(9),
			"key":         "ms-1",
			"title":       "Go-live",
			"description": "switch on",
			"eventTypes":  []any{"SERVICE_ACTIVATION"},
			"waveId":      int64(4),
			"waveName":    "2027.2",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.ID != 9 || m.Key != "ms-1" || m.Title != "Go-live" {
			t.Fatalf("milestone = %+v", m)
		}
		if m.Wave == nil || m.Wave.ID != 4 || m.Wave.Title != "2027.2" {
			t.Fatalf("wave ref = %+v", m.Wave)
		}
		if len(m.EventTypes) != 1 || m.EventTypes[0] != "SERVICE_ACTIVATION" {
			t.Fatalf("event types = %v", m.EventTypes)
		}
	})

	t.Run("without wave", func(t *testing.T) {
		m, err := milestoneFromRecord(record(map[string]any{
			"milestoneId": int64(9),
			"key":         "ms-2",
			"title":       "Draft",
			"waveId":      nil,
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Wave != nil {
			t.Fatalf("expected nil wave ref, got %+v", m.Wave)
		}
	})
}

func TestWaveFromRecord(t *testing.T) {
	w, err := waveFromRecord(record(map[string]any{
		"id":        int64(4),
		"year":      int64(2027),
		"quarter":   int64(2),
		"date":      "2027-06-30",
		"name":      "2027.2",
		"createdAt": "2026-01-02T15:04:05Z",
		"createdBy": "tester",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.ID != 4 || w.Year != 2027 || w.Quarter != 2 || w.Name != "2027.2" {
		t.Fatalf("wave = %+v", w)
	}
	if w.CreatedAt.IsZero() || w.CreatedBy != "tester" {
		t.Fatalf("audit fields = %v %q", w.CreatedAt, w.CreatedBy)
	}
}

func TestIDSetFromRecord(t *testing.T) {
	t.Run("nil record yields empty set", func(t *testing.T) {
		set, err := idSetFromRecord(nil, "ids", "test")
		if err != nil || len(set) != 0 {
			t.Fatalf("set=%v err=%v", set, err)
		}
	})

	t.Run("ids collected", func(t *testing.T) {
		set, err := idSetFromRecord(record(map[string]any{"ids": []any{int64(1), int64(5)}}), "ids", "test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !set[1] || !set[5] || len(set) != 2 {
			t.Fatalf("set = %v", set)
		}
	})
}

func TestWaveName(t *testing.T) {
	if got := waveName(2027, 2); got != "2027.2" {
		t.Fatalf("waveName = %q", got)
	}
	if got := waveName(2027, 0); got != "2027" {
		t.Fatalf("waveName no quarter = %q", got)
	}
}

func TestValidateWave(t *testing.T) {
	if err := validateWave(2027, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateWave(1990, 1); err == nil {
		t.Fatal("expected year range error")
	}
	if err := validateWave(2027, 5); err == nil {
		t.Fatal("expected quarter range error")
	}
}
