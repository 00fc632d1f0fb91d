package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
)

// ensureExist validates that every id resolves to a node with the given
// label. Missing targets fail the whole write with ValidationError.
func ensureExist(ctx context.Context, tx neo4jdb.Tx, label string, ids []int64, what string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
MATCH (t:%s) WHERE id(t) IN $ids
RETURN collect(id(t)) AS found
`, label)
	rec, err := neo4jdb.Single(ctx, tx, "store.ensureExist "+label, query, map[string]any{"ids": ids})
	if err != nil {
		return errs.StoreFault(err, "validate "+what+" targets")
	}
	found := map[int64]bool{}
	if rec != nil {
		raw, _ := rec.Get("found")
		foundIDs, err := neo4jdb.IDList(raw)
		if err != nil {
			return errs.StoreFault(err, "validate "+what+" targets")
		}
		for _, id := range foundIDs {
			found[id] = true
		}
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return errs.Validation("%s target(s) %v do not exist", what, missing)
	}
	return nil
}

// rejectSelf enforces the no-self-reference rule for hierarchy and dependency
// categories.
func rejectSelf(itemID int64, targets []int64, what string) error {
	for _, id := range targets {
		if id == itemID {
			return errs.Validation("%s must not reference its own item %d", what, itemID)
		}
	}
	return nil
}

// createEdges materializes version-scoped edges of one type to a set of
// pre-validated targets.
func createEdges(ctx context.Context, tx neo4jdb.Tx, versionID int64, edgeType string, targets []int64) error {
	if len(targets) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
MATCH (v) WHERE id(v) = $versionId
UNWIND $targets AS tid
MATCH (t) WHERE id(t) = tid
CREATE (v)-[:%s]->(t)
`, edgeType)
	err := neo4jdb.Exec(ctx, tx, "store.createEdges "+edgeType, query, map[string]any{
		"versionId": versionID,
		"targets":   targets,
	})
	return errs.StoreFault(err, "create "+edgeType+" edges")
}

// createDocumentEdges is createEdges for annotated document references.
func createDocumentEdges(ctx context.Context, tx neo4jdb.Tx, versionID int64, refs []domain.DocumentRef) error {
	if len(refs) == 0 {
		return nil
	}
	params := make([]map[string]any, 0, len(refs))
	for _, r := range refs {
		params = append(params, map[string]any{"id": r.ID, "note": r.Note})
	}
	query := fmt.Sprintf(`
MATCH (v) WHERE id(v) = $versionId
UNWIND $refs AS r
MATCH (t:%s) WHERE id(t) = r.id
CREATE (v)-[:%s {note: r.note}]->(t)
`, domain.KindDocument, edgeReferences)
	err := neo4jdb.Exec(ctx, tx, "store.createDocumentEdges", query, map[string]any{
		"versionId": versionID,
		"refs":      params,
	})
	return errs.StoreFault(err, "create document reference edges")
}

// cloneEdges copies every edge of one type (properties included) from one
// version node to another. Fresh edges, same targets.
func cloneEdges(ctx context.Context, tx neo4jdb.Tx, fromVersionID, toVersionID int64, edgeType string) error {
	query := fmt.Sprintf(`
MATCH (a) WHERE id(a) = $from
MATCH (b) WHERE id(b) = $to
MATCH (a)-[e:%s]->(t)
CREATE (b)-[c:%s]->(t)
SET c = properties(e)
`, edgeType, edgeType)
	err := neo4jdb.Exec(ctx, tx, "store.cloneEdges "+edgeType, query, map[string]any{
		"from": fromVersionID,
		"to":   toVersionID,
	})
	return errs.StoreFault(err, "clone "+edgeType+" edges")
}

// refMap groups hydrated references by the version id they hang off.
type refMap map[int64][]domain.Reference

// hydrateRefs resolves one edge category for a batch of versions into
// display-ready references. Target title falls back from title to name so
// items and taxonomy entities hydrate through the same path.
func hydrateRefs(ctx context.Context, tx neo4jdb.Tx, versionIDs []int64, edgeType, targetLabel string) (refMap, error) {
	if len(versionIDs) == 0 {
		return refMap{}, nil
	}
	target := "(t)"
	if targetLabel != "" {
		target = fmt.Sprintf("(t:%s)", targetLabel)
	}
	query := fmt.Sprintf(`
MATCH (v) WHERE id(v) IN $versionIds
MATCH (v)-[e:%s]->%s
RETURN id(v) AS versionId, id(t) AS targetId,
       coalesce(t.title, t.name) AS title, t.code AS code, t.type AS type, e.note AS note
ORDER BY title
`, edgeType, target)
	records, err := neo4jdb.Run(ctx, tx, "store.hydrateRefs "+edgeType, query, map[string]any{"versionIds": versionIDs})
	if err != nil {
		return nil, errs.StoreFault(err, "hydrate "+edgeType+" references")
	}
	out := refMap{}
	for _, rec := range records {
		versionID, err := recordID(rec, "versionId")
		if err != nil {
			return nil, errs.StoreFault(err, "hydrate "+edgeType+" references")
		}
		targetID, err := recordID(rec, "targetId")
		if err != nil {
			return nil, errs.StoreFault(err, "hydrate "+edgeType+" references")
		}
		out[versionID] = append(out[versionID], domain.Reference{
			ID:    targetID,
			Title: recordString(rec, "title"),
			Code:  recordString(rec, "code"),
			Type:  recordString(rec, "type"),
			Note:  recordString(rec, "note"),
		})
	}
	return out, nil
}
