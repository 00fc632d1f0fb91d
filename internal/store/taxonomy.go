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

// TaxonomyStore manages one kind of plain entity (stakeholder categories,
// data categories, services, documents, regulatory aspects): no versioning,
// at most one parent, no cycles.
type TaxonomyStore struct {
	kind domain.EntityKind
	log  *logger.Logger
}

func NewTaxonomyStore(baseLog *logger.Logger, kind domain.EntityKind) *TaxonomyStore {
	return &TaxonomyStore{
		kind: kind,
		log:  baseLog.With("store", "TaxonomyStore", "kind", string(kind)),
	}
}

func (s *TaxonomyStore) label() string { return string(s.kind) }

func (s *TaxonomyStore) Create(ctx context.Context, tx neo4jdb.Tx, in domain.TaxonomyInput, actor string) (*domain.TaxonomyEntity, error) {
	if in.Name == "" {
		return nil, errs.Validation("%s name is required", s.label())
	}
	if in.ParentID != nil {
		if err := ensureExist(ctx, tx, s.label(), []int64{*in.ParentID}, s.label()+" parent"); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	rec, err := neo4jdb.Single(ctx, tx, "taxonomy.create "+s.label(), fmt.Sprintf(`
CREATE (t:%s {name: $name, description: $description, version: $version, url: $url,
              createdAt: $now, createdBy: $actor})
RETURN id(t) AS id
`, s.label()), map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"version":     in.Version,
		"url":         in.URL,
		"now":         timestamp(now),
		"actor":       actor,
	})
	if err != nil {
		return nil, errs.StoreFault(err, "create "+s.label())
	}
	if rec == nil {
		return nil, errs.StoreFault(fmt.Errorf("no row returned"), "create "+s.label())
	}
	id, err := recordID(rec, "id")
	if err != nil {
		return nil, errs.StoreFault(err, "create "+s.label())
	}

	if in.ParentID != nil {
		if err := s.setParent(ctx, tx, id, *in.ParentID); err != nil {
			return nil, err
		}
	}
	s.log.Info("created taxonomy entity", "kind", s.label(), "id", id, "actor", actor)
	return s.FindByID(ctx, tx, id)
}

// Update rewrites the entity in place; taxonomy entities are not versioned.
func (s *TaxonomyStore) Update(ctx context.Context, tx neo4jdb.Tx, id int64, in domain.TaxonomyInput, actor string) (*domain.TaxonomyEntity, error) {
	if in.Name == "" {
		return nil, errs.Validation("%s name is required", s.label())
	}
	existing, err := s.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errs.NotFound("%s %d not found", s.label(), id)
	}
	if in.ParentID != nil {
		if *in.ParentID == id {
			return nil, errs.Validation("%s %d cannot be its own parent", s.label(), id)
		}
		if err := ensureExist(ctx, tx, s.label(), []int64{*in.ParentID}, s.label()+" parent"); err != nil {
			return nil, err
		}
		if err := s.checkNoCycle(ctx, tx, id, *in.ParentID); err != nil {
			return nil, err
		}
	}

	if err := neo4jdb.Exec(ctx, tx, "taxonomy.update "+s.label(), fmt.Sprintf(`
MATCH (t:%s) WHERE id(t) = $id
SET t.name = $name, t.description = $description, t.version = $version, t.url = $url
`, s.label()), map[string]any{
		"id":          id,
		"name":        in.Name,
		"description": in.Description,
		"version":     in.Version,
		"url":         in.URL,
	}); err != nil {
		return nil, errs.StoreFault(err, "update "+s.label())
	}

	if err := neo4jdb.Exec(ctx, tx, "taxonomy.clearParent "+s.label(), fmt.Sprintf(`
MATCH (t:%s) WHERE id(t) = $id
OPTIONAL MATCH (t)-[r:%s]->(:%s)
DELETE r
`, s.label(), edgeRefines, s.label()), map[string]any{"id": id}); err != nil {
		return nil, errs.StoreFault(err, "update "+s.label())
	}
	if in.ParentID != nil {
		if err := s.setParent(ctx, tx, id, *in.ParentID); err != nil {
			return nil, err
		}
	}
	return s.FindByID(ctx, tx, id)
}

// Delete refuses while the entity is referenced by any version edge or still
// has children.
func (s *TaxonomyStore) Delete(ctx context.Context, tx neo4jdb.Tx, id int64) error {
	rec, err := neo4jdb.Single(ctx, tx, "taxonomy.delete.check "+s.label(), fmt.Sprintf(`
MATCH (t:%s) WHERE id(t) = $id
OPTIONAL MATCH (t)<-[r]-()
RETURN id(t) AS id, count(r) AS inbound
`, s.label()), map[string]any{"id": id})
	if err != nil {
		return errs.StoreFault(err, "delete "+s.label())
	}
	if rec == nil {
		return errs.NotFound("%s %d not found", s.label(), id)
	}
	if recordInt(rec, "inbound") > 0 {
		return errs.Validation("%s %d is still referenced and cannot be deleted", s.label(), id)
	}
	err = neo4jdb.Exec(ctx, tx, "taxonomy.delete "+s.label(), fmt.Sprintf(
		`MATCH (t:%s) WHERE id(t) = $id DETACH DELETE t`, s.label()),
		map[string]any{"id": id})
	return errs.StoreFault(err, "delete "+s.label())
}

func (s *TaxonomyStore) FindByID(ctx context.Context, tx neo4jdb.Tx, id int64) (*domain.TaxonomyEntity, error) {
	rec, err := neo4jdb.Single(ctx, tx, "taxonomy.findById "+s.label(), fmt.Sprintf(`
MATCH (t:%s) WHERE id(t) = $id
OPTIONAL MATCH (t)-[:%s]->(p:%s)
RETURN id(t) AS id, t.name AS name, t.description AS description, t.version AS version,
       t.url AS url, t.createdAt AS createdAt, t.createdBy AS createdBy,
       id(p) AS parentId, p.name AS parentName
`, s.label(), edgeRefines, s.label()), map[string]any{"id": id})
	if err != nil {
		return nil, errs.StoreFault(err, "fetch "+s.label())
	}
	if rec == nil {
		return nil, nil
	}
	return taxonomyFromRecord(rec)
}

func (s *TaxonomyStore) FindAll(ctx context.Context, tx neo4jdb.Tx) ([]domain.TaxonomyEntity, error) {
	records, err := neo4jdb.Run(ctx, tx, "taxonomy.findAll "+s.label(), fmt.Sprintf(`
MATCH (t:%s)
OPTIONAL MATCH (t)-[:%s]->(p:%s)
RETURN id(t) AS id, t.name AS name, t.description AS description, t.version AS version,
       t.url AS url, t.createdAt AS createdAt, t.createdBy AS createdBy,
       id(p) AS parentId, p.name AS parentName
ORDER BY t.name
`, s.label(), edgeRefines, s.label()), nil)
	if err != nil {
		return nil, errs.StoreFault(err, "list "+s.label())
	}
	out := make([]domain.TaxonomyEntity, 0, len(records))
	for _, rec := range records {
		t, err := taxonomyFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *TaxonomyStore) FindChildren(ctx context.Context, tx neo4jdb.Tx, id int64) ([]domain.TaxonomyEntity, error) {
	if err := ensureExist(ctx, tx, s.label(), []int64{id}, s.label()); err != nil {
		return nil, err
	}
	records, err := neo4jdb.Run(ctx, tx, "taxonomy.findChildren "+s.label(), fmt.Sprintf(`
MATCH (p:%s) WHERE id(p) = $id
MATCH (t:%s)-[:%s]->(p)
RETURN id(t) AS id, t.name AS name, t.description AS description, t.version AS version,
       t.url AS url, t.createdAt AS createdAt, t.createdBy AS createdBy,
       id(p) AS parentId, p.name AS parentName
ORDER BY t.name
`, s.label(), s.label(), edgeRefines), map[string]any{"id": id})
	if err != nil {
		return nil, errs.StoreFault(err, "list children of "+s.label())
	}
	out := make([]domain.TaxonomyEntity, 0, len(records))
	for _, rec := range records {
		t, err := taxonomyFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *TaxonomyStore) setParent(ctx context.Context, tx neo4jdb.Tx, id, parentID int64) error {
	err := neo4jdb.Exec(ctx, tx, "taxonomy.setParent "+s.label(), fmt.Sprintf(`
MATCH (t:%s) WHERE id(t) = $id
MATCH (p:%s) WHERE id(p) = $parentId
CREATE (t)-[:%s]->(p)
`, s.label(), s.label(), edgeRefines), map[string]any{"id": id, "parentId": parentID})
	return errs.StoreFault(err, "set parent of "+s.label())
}

// checkNoCycle climbs from the proposed parent with a visited set; reaching
// id means the re-parent would close a cycle.
func (s *TaxonomyStore) checkNoCycle(ctx context.Context, tx neo4jdb.Tx, id, parentID int64) error {
	visited := map[int64]bool{}
	frontier := []int64{parentID}
	for len(frontier) > 0 {
		for _, f := range frontier {
			if f == id {
				return errs.Validation("parent %d would create a hierarchy cycle through %s %d", parentID, s.label(), id)
			}
			visited[f] = true
		}
		rec, err := neo4jdb.Single(ctx, tx, "taxonomy.ascend "+s.label(), fmt.Sprintf(`
MATCH (t:%s) WHERE id(t) IN $ids
MATCH (t)-[:%s]->(p:%s)
RETURN collect(DISTINCT id(p)) AS parents
`, s.label(), edgeRefines, s.label()), map[string]any{"ids": frontier})
		if err != nil {
			return errs.StoreFault(err, "ascend "+s.label()+" hierarchy")
		}
		frontier = frontier[:0]
		if rec != nil {
			raw, _ := rec.Get("parents")
			parents, err := neo4jdb.IDList(raw)
			if err != nil {
				return errs.StoreFault(err, "ascend "+s.label()+" hierarchy")
			}
			for _, p := range parents {
				if !visited[p] {
					frontier = append(frontier, p)
				}
			}
		}
	}
	return nil
}

func taxonomyFromRecord(rec *neo4j.Record) (*domain.TaxonomyEntity, error) {
	id, err := recordID(rec, "id")
	if err != nil {
		return nil, errs.StoreFault(err, "map taxonomy entity")
	}
	t := domain.TaxonomyEntity{
		ID:          id,
		Name:        recordString(rec, "name"),
		Description: recordString(rec, "description"),
		Version:     recordString(rec, "version"),
		URL:         recordString(rec, "url"),
		CreatedAt:   parseTimeFromRecord(rec, "createdAt"),
		CreatedBy:   recordString(rec, "createdBy"),
	}
	parentID, err := recordID(rec, "parentId")
	if err != nil {
		return nil, errs.StoreFault(err, "map taxonomy entity")
	}
	if parentID != 0 {
		t.Parent = &domain.Reference{ID: parentID, Title: recordString(rec, "parentName")}
	}
	return &t, nil
}
