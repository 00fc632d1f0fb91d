package store

import (
	"context"
	"testing"

	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/logger"
)

func TestBaselineFromRecord(t *testing.T) {
	t.Run("with wave", func(t *testing.T) {
		b, err := baselineFromRecord(record(map[string]any{
			"baselineId": int64(3),
			"title":      "Autumn snapshot",
			"captured":   int64(12),
			"createdAt":  "2026-09-01T08:00:00Z",
			"createdBy":  "tester",
			"waveId":     int64(4),
			"waveName":   "2027.1",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.ID != 3 || b.Title != "Autumn snapshot" || b.CapturedItemCount != 12 {
			t.Fatalf("baseline = %+v", b)
		}
		if b.StartsFromWave == nil || b.StartsFromWave.Title != "2027.1" {
			t.Fatalf("wave ref = %+v", b.StartsFromWave)
		}
	})

	t.Run("without wave", func(t *testing.T) {
		b, err := baselineFromRecord(record(map[string]any{
			"baselineId": int64(3),
			"title":      "Plain snapshot",
			"waveId":     nil,
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.StartsFromWave != nil {
			t.Fatalf("expected nil wave ref, got %+v", b.StartsFromWave)
		}
	})
}

func TestBaselineImmutable(t *testing.T) {
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	s := NewBaselineStore(log)
	ctx := context.Background()

	if err := s.Update(ctx, nil, 1); !errs.IsValidation(err) {
		t.Fatalf("update: expected validation error, got %v", err)
	}
	if err := s.Delete(ctx, nil, 1); !errs.IsValidation(err) {
		t.Fatalf("delete: expected validation error, got %v", err)
	}
}

func TestBaselineCreateRequiresTitle(t *testing.T) {
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	s := NewBaselineStore(log)
	_, err = s.Create(context.Background(), nil, "", nil, "tester")
	if !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
