package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/logger"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
)

// BaselineStore freezes the current latest-version set into immutable
// snapshots. Baselines are created once and never mutated or deleted.
type BaselineStore struct {
	log *logger.Logger
}

func NewBaselineStore(baseLog *logger.Logger) *BaselineStore {
	return &BaselineStore{log: baseLog.With("store", "BaselineStore")}
}

// Create captures every requirement's and change's current latest version
// under a new baseline node, all inside the caller's transaction.
func (s *BaselineStore) Create(ctx context.Context, tx neo4jdb.Tx, title string, startsFromWaveID *int64, actor string) (*domain.Baseline, error) {
	if title == "" {
		return nil, errs.Validation("baseline title is required")
	}
	if startsFromWaveID != nil {
		if err := ensureExist(ctx, tx, "Wave", []int64{*startsFromWaveID}, "baseline wave"); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	rec, err := neo4jdb.Single(ctx, tx, "baseline.create", `
CREATE (b:Baseline {title: $title, capturedItemCount: 0, createdAt: $now, createdBy: $actor})
RETURN id(b) AS baselineId
`, map[string]any{
		"title": title,
		"now":   timestamp(now),
		"actor": actor,
	})
	if err != nil {
		return nil, errs.StoreFault(err, "create baseline")
	}
	if rec == nil {
		return nil, errs.StoreFault(fmt.Errorf("no row returned"), "create baseline")
	}
	baselineID, err := recordID(rec, "baselineId")
	if err != nil {
		return nil, errs.StoreFault(err, "create baseline")
	}

	capture := fmt.Sprintf(`
MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (i)-[:%s]->(v)
WHERE i:%s OR i:%s
CREATE (b)-[:%s]->(v)
WITH b, count(v) AS captured
SET b.capturedItemCount = captured
RETURN captured
`, edgeLatest, labelRequirement, labelChange, edgeHasItems)
	crec, err := neo4jdb.Single(ctx, tx, "baseline.capture", capture, map[string]any{"baselineId": baselineID})
	if err != nil {
		return nil, errs.StoreFault(err, "capture baseline items")
	}
	captured := 0
	if crec != nil {
		captured = recordInt(crec, "captured")
	}

	var waveRef *domain.Reference
	if startsFromWaveID != nil {
		wrec, err := neo4jdb.Single(ctx, tx, "baseline.linkWave", fmt.Sprintf(`
MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (w:Wave) WHERE id(w) = $waveId
CREATE (b)-[:%s]->(w)
RETURN id(w) AS waveId, w.name AS waveName
`, edgeStartsFrom), map[string]any{
			"baselineId": baselineID,
			"waveId":     *startsFromWaveID,
		})
		if err != nil {
			return nil, errs.StoreFault(err, "link baseline wave")
		}
		if wrec != nil {
			waveID, err := recordID(wrec, "waveId")
			if err != nil {
				return nil, errs.StoreFault(err, "link baseline wave")
			}
			waveRef = &domain.Reference{ID: waveID, Title: recordString(wrec, "waveName")}
		}
	}

	s.log.Info("created baseline", "baseline_id", baselineID, "captured", captured, "actor", actor)
	return &domain.Baseline{
		ID:                baselineID,
		Title:             title,
		CreatedAt:         now.UTC(),
		CreatedBy:         actor,
		CapturedItemCount: captured,
		StartsFromWave:    waveRef,
	}, nil
}

func (s *BaselineStore) FindByID(ctx context.Context, tx neo4jdb.Tx, baselineID int64) (*domain.Baseline, error) {
	rec, err := neo4jdb.Single(ctx, tx, "baseline.findById", fmt.Sprintf(`
MATCH (b:Baseline) WHERE id(b) = $baselineId
OPTIONAL MATCH (b)-[:%s]->(w:Wave)
RETURN id(b) AS baselineId, b.title AS title, b.capturedItemCount AS captured,
       b.createdAt AS createdAt, b.createdBy AS createdBy,
       id(w) AS waveId, w.name AS waveName
`, edgeStartsFrom), map[string]any{"baselineId": baselineID})
	if err != nil {
		return nil, errs.StoreFault(err, "fetch baseline")
	}
	if rec == nil {
		return nil, nil
	}
	return baselineFromRecord(rec)
}

func (s *BaselineStore) FindAll(ctx context.Context, tx neo4jdb.Tx) ([]domain.Baseline, error) {
	records, err := neo4jdb.Run(ctx, tx, "baseline.findAll", fmt.Sprintf(`
MATCH (b:Baseline)
OPTIONAL MATCH (b)-[:%s]->(w:Wave)
RETURN id(b) AS baselineId, b.title AS title, b.capturedItemCount AS captured,
       b.createdAt AS createdAt, b.createdBy AS createdBy,
       id(w) AS waveId, w.name AS waveName
ORDER BY b.createdAt DESC
`, edgeStartsFrom), nil)
	if err != nil {
		return nil, errs.StoreFault(err, "list baselines")
	}
	out := make([]domain.Baseline, 0, len(records))
	for _, rec := range records {
		b, err := baselineFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

// Update always fails: baselines are immutable once created.
func (s *BaselineStore) Update(ctx context.Context, tx neo4jdb.Tx, baselineID int64) error {
	return errs.Validation("baseline %d: baselines are immutable and cannot be updated", baselineID)
}

// Delete always fails: baselines are immutable once created.
func (s *BaselineStore) Delete(ctx context.Context, tx neo4jdb.Tx, baselineID int64) error {
	return errs.Validation("baseline %d: baselines are immutable and cannot be deleted", baselineID)
}

func baselineFromRecord(rec *neo4j.Record) (*domain.Baseline, error) {
	baselineID, err := recordID(rec, "baselineId")
	if err != nil {
		return nil, errs.StoreFault(err, "map baseline")
	}
	b := domain.Baseline{
		ID:                baselineID,
		Title:             recordString(rec, "title"),
		CapturedItemCount: recordInt(rec, "captured"),
		CreatedBy:         recordString(rec, "createdBy"),
	}
	if v, ok := rec.Get("createdAt"); ok {
		b.CreatedAt = parseTime(v)
	}
	waveID, err := recordID(rec, "waveId")
	if err != nil {
		return nil, errs.StoreFault(err, "map baseline")
	}
	if waveID != 0 {
		b.StartsFromWave = &domain.Reference{ID: waveID, Title: recordString(rec, "waveName")}
	}
	return &b, nil
}
