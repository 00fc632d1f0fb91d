package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/logger"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
	"github.com/avionde/odp-backend/internal/platform/redisdb"
)

// editionContextTTL bounds cache staleness only nominally: editions are
// immutable, the TTL just keeps the keyspace from growing unbounded.
const editionContextTTL = 24 * time.Hour

// EditionStore binds baselines to wave cutoffs under a published name.
// Editions are immutable; resolveContext is the one operation the rest of the
// system needs, so it is backed by the optional cache.
type EditionStore struct {
	cache *redisdb.Client
	log   *logger.Logger
}

func NewEditionStore(baseLog *logger.Logger, cache *redisdb.Client) *EditionStore {
	return &EditionStore{cache: cache, log: baseLog.With("store", "EditionStore")}
}

// Create validates both references before binding them; a missing baseline or
// wave is the caller's mistake, not a missing edition.
func (s *EditionStore) Create(ctx context.Context, tx neo4jdb.Tx, title, editionType string, baselineID, startsFromWaveID int64, actor string) (*domain.Edition, error) {
	if title == "" {
		return nil, errs.Validation("edition title is required")
	}
	switch editionType {
	case domain.EditionTypeDraft, domain.EditionTypeOfficial:
	default:
		return nil, errs.Validation("edition type must be %s or %s, got %q",
			domain.EditionTypeDraft, domain.EditionTypeOfficial, editionType)
	}
	if err := ensureExist(ctx, tx, "Baseline", []int64{baselineID}, "edition baseline"); err != nil {
		return nil, err
	}
	if err := ensureExist(ctx, tx, "Wave", []int64{startsFromWaveID}, "edition wave"); err != nil {
		return nil, err
	}

	now := time.Now()
	rec, err := neo4jdb.Single(ctx, tx, "edition.create", fmt.Sprintf(`
MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (w:Wave) WHERE id(w) = $waveId
CREATE (e:Edition {title: $title, type: $type, createdAt: $now, createdBy: $actor})
CREATE (e)-[:%s]->(b)
CREATE (e)-[:%s]->(w)
RETURN id(e) AS editionId, b.title AS baselineTitle, w.name AS waveName
`, edgeExposes, edgeStartsFrom), map[string]any{
		"baselineId": baselineID,
		"waveId":     startsFromWaveID,
		"title":      title,
		"type":       editionType,
		"now":        timestamp(now),
		"actor":      actor,
	})
	if err != nil {
		return nil, errs.StoreFault(err, "create edition")
	}
	if rec == nil {
		return nil, errs.StoreFault(fmt.Errorf("no row returned"), "create edition")
	}
	editionID, err := recordID(rec, "editionId")
	if err != nil {
		return nil, errs.StoreFault(err, "create edition")
	}

	s.log.Info("created edition", "edition_id", editionID, "type", editionType, "actor", actor)
	return &domain.Edition{
		ID:             editionID,
		Title:          title,
		Type:           editionType,
		CreatedAt:      now.UTC(),
		CreatedBy:      actor,
		Baseline:       domain.Reference{ID: baselineID, Title: recordString(rec, "baselineTitle")},
		StartsFromWave: domain.Reference{ID: startsFromWaveID, Title: recordString(rec, "waveName")},
	}, nil
}

func (s *EditionStore) FindByID(ctx context.Context, tx neo4jdb.Tx, editionID int64) (*domain.Edition, error) {
	rec, err := neo4jdb.Single(ctx, tx, "edition.findById", s.selectQuery("WHERE id(e) = $editionId"),
		map[string]any{"editionId": editionID})
	if err != nil {
		return nil, errs.StoreFault(err, "fetch edition")
	}
	if rec == nil {
		return nil, nil
	}
	return editionFromRecord(rec)
}

func (s *EditionStore) FindAll(ctx context.Context, tx neo4jdb.Tx) ([]domain.Edition, error) {
	records, err := neo4jdb.Run(ctx, tx, "edition.findAll", s.selectQuery("")+"\nORDER BY e.createdAt DESC", nil)
	if err != nil {
		return nil, errs.StoreFault(err, "list editions")
	}
	out := make([]domain.Edition, 0, len(records))
	for _, rec := range records {
		e, err := editionFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// ResolveContext maps an edition to its (baseline, wave-cutoff) pair so list
// and show callers can pass an edition id instead of both. Cached: editions
// never change after creation.
func (s *EditionStore) ResolveContext(ctx context.Context, tx neo4jdb.Tx, editionID int64) (*domain.EditionContext, error) {
	cacheKey := fmt.Sprintf("edition:ctx:%d", editionID)
	if raw, ok := s.cache.Get(ctx, cacheKey); ok {
		var ec domain.EditionContext
		if err := json.Unmarshal([]byte(raw), &ec); err == nil {
			return &ec, nil
		}
	}

	rec, err := neo4jdb.Single(ctx, tx, "edition.resolveContext", fmt.Sprintf(`
MATCH (e:Edition) WHERE id(e) = $editionId
MATCH (e)-[:%s]->(b:Baseline)
MATCH (e)-[:%s]->(w:Wave)
RETURN id(b) AS baselineId, id(w) AS waveId
`, edgeExposes, edgeStartsFrom), map[string]any{"editionId": editionID})
	if err != nil {
		return nil, errs.StoreFault(err, "resolve edition context")
	}
	if rec == nil {
		return nil, errs.NotFound("edition %d not found", editionID)
	}
	baselineID, err := recordID(rec, "baselineId")
	if err != nil {
		return nil, errs.StoreFault(err, "resolve edition context")
	}
	waveID, err := recordID(rec, "waveId")
	if err != nil {
		return nil, errs.StoreFault(err, "resolve edition context")
	}
	ec := domain.EditionContext{BaselineID: baselineID, FromWaveID: waveID}

	if raw, err := json.Marshal(ec); err == nil {
		s.cache.Set(ctx, cacheKey, string(raw), editionContextTTL)
	}
	return &ec, nil
}

// Update always fails: editions are immutable once created.
func (s *EditionStore) Update(ctx context.Context, tx neo4jdb.Tx, editionID int64) error {
	return errs.Validation("edition %d: editions are immutable and cannot be updated", editionID)
}

// Delete always fails: editions are immutable once created.
func (s *EditionStore) Delete(ctx context.Context, tx neo4jdb.Tx, editionID int64) error {
	return errs.Validation("edition %d: editions are immutable and cannot be deleted", editionID)
}

func (s *EditionStore) selectQuery(where string) string {
	return fmt.Sprintf(`
MATCH (e:Edition) %s
MATCH (e)-[:%s]->(b:Baseline)
MATCH (e)-[:%s]->(w:Wave)
RETURN id(e) AS editionId, e.title AS title, e.type AS type,
       e.createdAt AS createdAt, e.createdBy AS createdBy,
       id(b) AS baselineId, b.title AS baselineTitle,
       id(w) AS waveId, w.name AS waveName
`, where, edgeExposes, edgeStartsFrom)
}

func editionFromRecord(rec *neo4j.Record) (*domain.Edition, error) {
	editionID, err := recordID(rec, "editionId")
	if err != nil {
		return nil, errs.StoreFault(err, "map edition")
	}
	baselineID, err := recordID(rec, "baselineId")
	if err != nil {
		return nil, errs.StoreFault(err, "map edition")
	}
	waveID, err := recordID(rec, "waveId")
	if err != nil {
		return nil, errs.StoreFault(err, "map edition")
	}
	e := domain.Edition{
		ID:             editionID,
		Title:          recordString(rec, "title"),
		Type:           recordString(rec, "type"),
		CreatedBy:      recordString(rec, "createdBy"),
		Baseline:       domain.Reference{ID: baselineID, Title: recordString(rec, "baselineTitle")},
		StartsFromWave: domain.Reference{ID: waveID, Title: recordString(rec, "waveName")},
	}
	if v, ok := rec.Get("createdAt"); ok {
		e.CreatedAt = parseTime(v)
	}
	return &e, nil
}
