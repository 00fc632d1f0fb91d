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

// WaveStore manages the delivery timeline. Waves are plain entities ordered
// by (year, quarter); the date is display only.
type WaveStore struct {
	log *logger.Logger
}

func NewWaveStore(baseLog *logger.Logger) *WaveStore {
	return &WaveStore{log: baseLog.With("store", "WaveStore")}
}

func waveName(year, quarter int) string {
	if quarter == 0 {
		return fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf("%d.%d", year, quarter)
}

func validateWave(year, quarter int) error {
	if year < 2000 || year > 2100 {
		return errs.Validation("wave year %d out of range", year)
	}
	if quarter < 0 || quarter > 4 {
		return errs.Validation("wave quarter %d out of range (0..4)", quarter)
	}
	return nil
}

func (s *WaveStore) Create(ctx context.Context, tx neo4jdb.Tx, year, quarter int, date, actor string) (*domain.Wave, error) {
	if err := validateWave(year, quarter); err != nil {
		return nil, err
	}
	existing, err := neo4jdb.Single(ctx, tx, "wave.checkDuplicate",
		`MATCH (w:Wave {year: $year, quarter: $quarter}) RETURN id(w) AS id`,
		map[string]any{"year": year, "quarter": quarter})
	if err != nil {
		return nil, errs.StoreFault(err, "create wave")
	}
	if existing != nil {
		return nil, errs.Validation("wave %s already exists", waveName(year, quarter))
	}

	now := time.Now()
	rec, err := neo4jdb.Single(ctx, tx, "wave.create", `
CREATE (w:Wave {year: $year, quarter: $quarter, date: $date, name: $name,
                createdAt: $now, createdBy: $actor})
RETURN id(w) AS id
`, map[string]any{
		"year":    year,
		"quarter": quarter,
		"date":    date,
		"name":    waveName(year, quarter),
		"now":     timestamp(now),
		"actor":   actor,
	})
	if err != nil {
		return nil, errs.StoreFault(err, "create wave")
	}
	if rec == nil {
		return nil, errs.StoreFault(fmt.Errorf("no row returned"), "create wave")
	}
	id, err := recordID(rec, "id")
	if err != nil {
		return nil, errs.StoreFault(err, "create wave")
	}
	return &domain.Wave{
		ID:        id,
		Year:      year,
		Quarter:   quarter,
		Date:      date,
		Name:      waveName(year, quarter),
		CreatedAt: now.UTC(),
		CreatedBy: actor,
	}, nil
}

// Ensure merges a wave by (year, quarter), used by the reference-data seed.
func (s *WaveStore) Ensure(ctx context.Context, tx neo4jdb.Tx, year, quarter int, date, actor string) (*domain.Wave, error) {
	if err := validateWave(year, quarter); err != nil {
		return nil, err
	}
	rec, err := neo4jdb.Single(ctx, tx, "wave.ensure", `
MERGE (w:Wave {year: $year, quarter: $quarter})
ON CREATE SET w.date = $date, w.name = $name, w.createdAt = $now, w.createdBy = $actor
RETURN id(w) AS id, w.date AS date, w.createdAt AS createdAt, w.createdBy AS createdBy
`, map[string]any{
		"year":    year,
		"quarter": quarter,
		"date":    date,
		"name":    waveName(year, quarter),
		"now":     timestamp(time.Now()),
		"actor":   actor,
	})
	if err != nil {
		return nil, errs.StoreFault(err, "ensure wave")
	}
	if rec == nil {
		return nil, errs.StoreFault(fmt.Errorf("no row returned"), "ensure wave")
	}
	id, err := recordID(rec, "id")
	if err != nil {
		return nil, errs.StoreFault(err, "ensure wave")
	}
	return &domain.Wave{
		ID:        id,
		Year:      year,
		Quarter:   quarter,
		Date:      recordString(rec, "date"),
		Name:      waveName(year, quarter),
		CreatedAt: parseTimeFromRecord(rec, "createdAt"),
		CreatedBy: recordString(rec, "createdBy"),
	}, nil
}

func (s *WaveStore) FindByID(ctx context.Context, tx neo4jdb.Tx, waveID int64) (*domain.Wave, error) {
	rec, err := neo4jdb.Single(ctx, tx, "wave.findById", `
MATCH (w:Wave) WHERE id(w) = $waveId
RETURN id(w) AS id, w.year AS year, w.quarter AS quarter, w.date AS date,
       w.name AS name, w.createdAt AS createdAt, w.createdBy AS createdBy
`, map[string]any{"waveId": waveID})
	if err != nil {
		return nil, errs.StoreFault(err, "fetch wave")
	}
	if rec == nil {
		return nil, nil
	}
	return waveFromRecord(rec)
}

func (s *WaveStore) FindAll(ctx context.Context, tx neo4jdb.Tx) ([]domain.Wave, error) {
	records, err := neo4jdb.Run(ctx, tx, "wave.findAll", `
MATCH (w:Wave)
RETURN id(w) AS id, w.year AS year, w.quarter AS quarter, w.date AS date,
       w.name AS name, w.createdAt AS createdAt, w.createdBy AS createdBy
ORDER BY w.year, w.quarter, w.date
`, nil)
	if err != nil {
		return nil, errs.StoreFault(err, "list waves")
	}
	out := make([]domain.Wave, 0, len(records))
	for _, rec := range records {
		w, err := waveFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

// Delete refuses while milestones, baselines or editions still point at the
// wave.
func (s *WaveStore) Delete(ctx context.Context, tx neo4jdb.Tx, waveID int64) error {
	rec, err := neo4jdb.Single(ctx, tx, "wave.delete.check", `
MATCH (w:Wave) WHERE id(w) = $waveId
OPTIONAL MATCH (w)<-[r]-()
RETURN id(w) AS id, count(r) AS inbound
`, map[string]any{"waveId": waveID})
	if err != nil {
		return errs.StoreFault(err, "delete wave")
	}
	if rec == nil {
		return errs.NotFound("wave %d not found", waveID)
	}
	if recordInt(rec, "inbound") > 0 {
		return errs.Validation("wave %d is still referenced and cannot be deleted", waveID)
	}
	err = neo4jdb.Exec(ctx, tx, "wave.delete",
		`MATCH (w:Wave) WHERE id(w) = $waveId DETACH DELETE w`,
		map[string]any{"waveId": waveID})
	return errs.StoreFault(err, "delete wave")
}

func waveFromRecord(rec *neo4j.Record) (*domain.Wave, error) {
	id, err := recordID(rec, "id")
	if err != nil {
		return nil, errs.StoreFault(err, "map wave")
	}
	return &domain.Wave{
		ID:        id,
		Year:      recordInt(rec, "year"),
		Quarter:   recordInt(rec, "quarter"),
		Date:      recordString(rec, "date"),
		Name:      recordString(rec, "name"),
		CreatedAt: parseTimeFromRecord(rec, "createdAt"),
		CreatedBy: recordString(rec, "createdBy"),
	}, nil
}

func parseTimeFromRecord(rec *neo4j.Record, key string) time.Time {
	v, ok := rec.Get(key)
	if !ok {
		return time.Time{}
	}
	return parseTime(v)
}
