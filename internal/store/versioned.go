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

// Adapter is what a record type plugs into the versioned engine. The engine
// owns the item/version lifecycle; the adapter owns everything version-scoped
// that hangs off a version node.
type Adapter interface {
	// CreateRelations materializes edges (and, for changes, milestones) for a
	// freshly created version from the payload carried in the write input. A
	// nil payload means "no relationships". itemID is the owning item, used to
	// reject self-referencing hierarchy and dependency edges.
	CreateRelations(ctx context.Context, tx neo4jdb.Tx, itemID, versionID int64, relations any, actor string) error

	// CloneRelations copies every relationship category from one version to
	// another. Fresh edges and fresh child nodes: nothing is shared between
	// versions.
	CloneRelations(ctx context.Context, tx neo4jdb.Tx, fromVersionID, toVersionID int64, actor string) error
}

// VersionedStore is the generic item+version engine. One instance per record
// type, configured with the type's labels and its relationship adapter.
type VersionedStore struct {
	itemLabel    string
	versionLabel string
	codeTag      string
	adapter      Adapter
	log          *logger.Logger
}

func newVersionedStore(itemLabel, versionLabel, codeTag string, adapter Adapter, log *logger.Logger) *VersionedStore {
	return &VersionedStore{
		itemLabel:    itemLabel,
		versionLabel: versionLabel,
		codeTag:      codeTag,
		adapter:      adapter,
		log:          log,
	}
}

// writeInput is one decoded write: content fields split from the relationship
// payload. Relations nil on update means "inherit from the expected current
// version"; non-nil replaces every category.
type writeInput struct {
	Title         string
	DraftingGroup string
	Content       map[string]any
	Relations     any
}

// row is one resolved (item, version) pair before type-specific hydration.
type row struct {
	ItemID    int64
	VersionID int64
	Version   int
	Title     string
	Code      string
	CreatedAt time.Time
	CreatedBy string
	Props     map[string]any
}

func (e *VersionedStore) Create(ctx context.Context, tx neo4jdb.Tx, in writeInput, actor string) (*row, error) {
	if in.Title == "" {
		return nil, errs.Validation("%s: title is required", e.itemLabel)
	}

	code := ""
	if in.DraftingGroup != "" {
		next, err := e.nextCode(ctx, tx, in.DraftingGroup)
		if err != nil {
			return nil, err
		}
		code = next
	}

	now := time.Now()
	content := map[string]any{}
	for k, v := range in.Content {
		content[k] = v
	}
	content["version"] = int64(1)
	content["createdAt"] = timestamp(now)
	content["createdBy"] = actor

	query := fmt.Sprintf(`
CREATE (i:%s {title: $title, createdAt: $now, createdBy: $actor})
CREATE (v:%s)
SET v = $content
CREATE (v)-[:%s]->(i)
CREATE (i)-[:%s]->(v)
RETURN id(i) AS itemId, id(v) AS versionId
`, e.itemLabel, e.versionLabel, edgeVersionOf, edgeLatest)
	params := map[string]any{
		"title":   in.Title,
		"now":     timestamp(now),
		"actor":   actor,
		"content": content,
	}
	if code != "" {
		query = fmt.Sprintf(`
CREATE (i:%s {title: $title, code: $code, createdAt: $now, createdBy: $actor})
CREATE (v:%s)
SET v = $content
CREATE (v)-[:%s]->(i)
CREATE (i)-[:%s]->(v)
RETURN id(i) AS itemId, id(v) AS versionId
`, e.itemLabel, e.versionLabel, edgeVersionOf, edgeLatest)
		params["code"] = code
	}

	rec, err := neo4jdb.Single(ctx, tx, "store.create "+e.itemLabel, query, params)
	if err != nil {
		return nil, errs.StoreFault(err, "create "+e.itemLabel)
	}
	if rec == nil {
		return nil, errs.StoreFault(fmt.Errorf("no row returned"), "create "+e.itemLabel)
	}
	itemID, err := recordID(rec, "itemId")
	if err != nil {
		return nil, errs.StoreFault(err, "create "+e.itemLabel)
	}
	versionID, err := recordID(rec, "versionId")
	if err != nil {
		return nil, errs.StoreFault(err, "create "+e.itemLabel)
	}

	if err := e.adapter.CreateRelations(ctx, tx, itemID, versionID, in.Relations, actor); err != nil {
		return nil, err
	}

	e.log.Info("created item", "label", e.itemLabel, "item_id", itemID, "actor", actor)
	return &row{
		ItemID:    itemID,
		VersionID: versionID,
		Version:   1,
		Title:     in.Title,
		Code:      code,
		CreatedAt: now.UTC(),
		CreatedBy: actor,
		Props:     content,
	}, nil
}

// Update creates version N+1 under optimistic concurrency. The write
// statement itself asserts that expectedVersionID still carries the latest
// edge and derives the new sequence number from that node, so a racing update
// that repoints latest between the read and the write surfaces as zero rows
// here, never as a duplicate version number.
func (e *VersionedStore) Update(ctx context.Context, tx neo4jdb.Tx, itemID int64, in writeInput, expectedVersionID int64, actor string) (*row, error) {
	query := fmt.Sprintf(`
MATCH (i:%s) WHERE id(i) = $itemId
OPTIONAL MATCH (i)-[:%s]->(cur:%s)
RETURN i.title AS title, i.code AS code, id(cur) AS currentId
`, e.itemLabel, edgeLatest, e.versionLabel)
	rec, err := neo4jdb.Single(ctx, tx, "store.update.check "+e.itemLabel, query, map[string]any{"itemId": itemID})
	if err != nil {
		return nil, errs.StoreFault(err, "fetch current version of "+e.itemLabel)
	}
	if rec == nil {
		return nil, errs.NotFound("%s %d not found", e.itemLabel, itemID)
	}
	currentID, err := recordID(rec, "currentId")
	if err != nil {
		return nil, errs.StoreFault(err, "fetch current version of "+e.itemLabel)
	}
	if currentID == 0 {
		return nil, errs.StoreFault(fmt.Errorf("item %d has no versions", itemID), "fetch current version of "+e.itemLabel)
	}
	if currentID != expectedVersionID {
		return nil, errs.Conflict("%s %d: expected version %d is no longer current (now %d)",
			e.itemLabel, itemID, expectedVersionID, currentID)
	}
	code := recordString(rec, "code")

	title := in.Title
	if title == "" {
		title = recordString(rec, "title")
	}

	now := time.Now()
	content := map[string]any{}
	for k, v := range in.Content {
		content[k] = v
	}
	content["createdAt"] = timestamp(now)
	content["createdBy"] = actor

	write := fmt.Sprintf(`
MATCH (i:%s) WHERE id(i) = $itemId
MATCH (i)-[lv:%s]->(cur:%s) WHERE id(cur) = $expectedVersionId
DELETE lv
SET i.title = $title
CREATE (v:%s)
SET v = $content
SET v.version = cur.version + 1
CREATE (v)-[:%s]->(i)
CREATE (i)-[:%s]->(v)
RETURN id(v) AS versionId, v.version AS version
`, e.itemLabel, edgeLatest, e.versionLabel, e.versionLabel, edgeVersionOf, edgeLatest)
	wrec, err := neo4jdb.Single(ctx, tx, "store.update.write "+e.itemLabel, write, map[string]any{
		"itemId":            itemID,
		"expectedVersionId": expectedVersionID,
		"title":             title,
		"content":           content,
	})
	if err != nil {
		return nil, errs.StoreFault(err, "write new version of "+e.itemLabel)
	}
	if wrec == nil {
		return nil, errs.Conflict("%s %d: expected version %d is no longer current",
			e.itemLabel, itemID, expectedVersionID)
	}
	versionID, err := recordID(wrec, "versionId")
	if err != nil {
		return nil, errs.StoreFault(err, "write new version of "+e.itemLabel)
	}
	newVersion := recordInt(wrec, "version")
	content["version"] = int64(newVersion)

	if in.Relations == nil {
		if err := e.adapter.CloneRelations(ctx, tx, expectedVersionID, versionID, actor); err != nil {
			return nil, err
		}
	} else {
		if err := e.adapter.CreateRelations(ctx, tx, itemID, versionID, in.Relations, actor); err != nil {
			return nil, err
		}
	}

	e.log.Info("updated item", "label", e.itemLabel, "item_id", itemID, "version", newVersion, "actor", actor)
	return &row{
		ItemID:    itemID,
		VersionID: versionID,
		Version:   newVersion,
		Title:     title,
		Code:      code,
		CreatedAt: now.UTC(),
		CreatedBy: actor,
		Props:     content,
	}, nil
}

// FindRow resolves one item to its latest version, or to its captured version
// when baselineID is set. Returns (nil, nil) when the item does not exist or
// was not captured by the baseline.
func (e *VersionedStore) FindRow(ctx context.Context, tx neo4jdb.Tx, itemID, baselineID int64) (*row, error) {
	var query string
	params := map[string]any{"itemId": itemID}
	if baselineID == 0 {
		query = fmt.Sprintf(`
MATCH (i:%s) WHERE id(i) = $itemId
MATCH (i)-[:%s]->(v:%s)
RETURN id(i) AS itemId, i.title AS title, i.code AS code, id(v) AS versionId, properties(v) AS props
`, e.itemLabel, edgeLatest, e.versionLabel)
	} else {
		query = fmt.Sprintf(`
MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (b)-[:%s]->(v:%s)-[:%s]->(i:%s) WHERE id(i) = $itemId
RETURN id(i) AS itemId, i.title AS title, i.code AS code, id(v) AS versionId, properties(v) AS props
`, edgeHasItems, e.versionLabel, edgeVersionOf, e.itemLabel)
		params["baselineId"] = baselineID
	}

	rec, err := neo4jdb.Single(ctx, tx, "store.findById "+e.itemLabel, query, params)
	if err != nil {
		return nil, errs.StoreFault(err, "fetch "+e.itemLabel)
	}
	if rec == nil {
		return nil, nil
	}
	return e.rowFromRecord(rec)
}

// FindRowByVersion is the direct historical lookup, bypassing latest/baseline
// indirection.
func (e *VersionedStore) FindRowByVersion(ctx context.Context, tx neo4jdb.Tx, itemID int64, version int) (*row, error) {
	query := fmt.Sprintf(`
MATCH (i:%s) WHERE id(i) = $itemId
MATCH (i)<-[:%s]-(v:%s {version: $version})
RETURN id(i) AS itemId, i.title AS title, i.code AS code, id(v) AS versionId, properties(v) AS props
`, e.itemLabel, edgeVersionOf, e.versionLabel)
	rec, err := neo4jdb.Single(ctx, tx, "store.findByVersion "+e.itemLabel, query, map[string]any{
		"itemId":  itemID,
		"version": version,
	})
	if err != nil {
		return nil, errs.StoreFault(err, "fetch version of "+e.itemLabel)
	}
	if rec == nil {
		return nil, nil
	}
	return e.rowFromRecord(rec)
}

// History lists version summaries newest first. The item itself missing is
// NotFound; an item without a single version is corrupt storage.
func (e *VersionedStore) History(ctx context.Context, tx neo4jdb.Tx, itemID int64) ([]domain.VersionSummary, error) {
	query := fmt.Sprintf(`
MATCH (i:%s) WHERE id(i) = $itemId
OPTIONAL MATCH (i)<-[:%s]-(v:%s)
WITH i, v ORDER BY v.version DESC
RETURN id(i) AS itemId,
       collect({versionId: id(v), version: v.version, createdAt: v.createdAt, createdBy: v.createdBy}) AS versions
`, e.itemLabel, edgeVersionOf, e.versionLabel)
	rec, err := neo4jdb.Single(ctx, tx, "store.history "+e.itemLabel, query, map[string]any{"itemId": itemID})
	if err != nil {
		return nil, errs.StoreFault(err, "fetch version history of "+e.itemLabel)
	}
	if rec == nil {
		return nil, errs.NotFound("%s %d not found", e.itemLabel, itemID)
	}

	raw, _ := rec.Get("versions")
	entries, _ := raw.([]any)
	out := make([]domain.VersionSummary, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok || m["versionId"] == nil {
			continue
		}
		versionID, err := neo4jdb.NormalizeID(m["versionId"])
		if err != nil {
			return nil, errs.StoreFault(err, "fetch version history of "+e.itemLabel)
		}
		out = append(out, domain.VersionSummary{
			VersionID: versionID,
			Version:   neo4jdb.IntVal(m["version"]),
			CreatedAt: parseTime(m["createdAt"]),
			CreatedBy: neo4jdb.StringVal(m["createdBy"]),
		})
	}
	if len(out) == 0 {
		return nil, errs.StoreFault(fmt.Errorf("item %d has no versions", itemID), "fetch version history of "+e.itemLabel)
	}
	return out, nil
}

// Delete removes the item, all its versions, owned milestones and every edge
// in one operation.
func (e *VersionedStore) Delete(ctx context.Context, tx neo4jdb.Tx, itemID int64) error {
	query := fmt.Sprintf(`
MATCH (i:%s) WHERE id(i) = $itemId
RETURN id(i) AS itemId
`, e.itemLabel)
	rec, err := neo4jdb.Single(ctx, tx, "store.delete.check "+e.itemLabel, query, map[string]any{"itemId": itemID})
	if err != nil {
		return errs.StoreFault(err, "delete "+e.itemLabel)
	}
	if rec == nil {
		return errs.NotFound("%s %d not found", e.itemLabel, itemID)
	}

	del := fmt.Sprintf(`
MATCH (i:%s) WHERE id(i) = $itemId
OPTIONAL MATCH (i)<-[:%s]-(v:%s)
OPTIONAL MATCH (v)<-[:%s]-(m:Milestone)
DETACH DELETE m, v, i
`, e.itemLabel, edgeVersionOf, e.versionLabel, edgeBelongsTo)
	if err := neo4jdb.Exec(ctx, tx, "store.delete "+e.itemLabel, del, map[string]any{"itemId": itemID}); err != nil {
		return errs.StoreFault(err, "delete "+e.itemLabel)
	}
	e.log.Info("deleted item", "label", e.itemLabel, "item_id", itemID)
	return nil
}

// Rows resolves the base row set for findAll: latest versions, or captured
// versions when the context names a baseline. where clauses reference i and v
// and combine conjunctively; ordering is by item title.
func (e *VersionedStore) Rows(ctx context.Context, tx neo4jdb.Tx, baselineID int64, where []string, params map[string]any) ([]row, error) {
	if params == nil {
		params = map[string]any{}
	}
	match := fmt.Sprintf(`MATCH (i:%s)-[:%s]->(v:%s)`, e.itemLabel, edgeLatest, e.versionLabel)
	if baselineID != 0 {
		match = fmt.Sprintf(`MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (b)-[:%s]->(v:%s)-[:%s]->(i:%s)`, edgeHasItems, e.versionLabel, edgeVersionOf, e.itemLabel)
		params["baselineId"] = baselineID
	}
	query := match
	for _, clause := range where {
		query += "\nWITH i, v WHERE " + clause
	}
	query += "\nRETURN id(i) AS itemId, i.title AS title, i.code AS code, id(v) AS versionId, properties(v) AS props\nORDER BY i.title"

	records, err := neo4jdb.Run(ctx, tx, "store.findAll "+e.itemLabel, query, params)
	if err != nil {
		return nil, errs.StoreFault(err, "list "+e.itemLabel)
	}
	out := make([]row, 0, len(records))
	for _, rec := range records {
		r, err := e.rowFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (e *VersionedStore) rowFromRecord(rec *neo4j.Record) (*row, error) {
	itemID, err := recordID(rec, "itemId")
	if err != nil {
		return nil, errs.StoreFault(err, "map "+e.itemLabel+" row")
	}
	versionID, err := recordID(rec, "versionId")
	if err != nil {
		return nil, errs.StoreFault(err, "map "+e.itemLabel+" row")
	}
	rawProps, _ := rec.Get("props")
	props, _ := rawProps.(map[string]any)
	return &row{
		ItemID:    itemID,
		VersionID: versionID,
		Version:   neo4jdb.IntVal(props["version"]),
		Title:     recordString(rec, "title"),
		Code:      recordString(rec, "code"),
		CreatedAt: parseTime(props["createdAt"]),
		CreatedBy: propString(props, "createdBy"),
		Props:     props,
	}, nil
}
