package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
)

// Milestones are version-scoped child nodes of a change: every change version
// owns its own milestone nodes, and inheritance copies them rather than
// re-pointing. The milestoneKey property is what survives across versions.

// createMilestones materializes fresh milestone nodes under one change
// version. Inputs without a key get a new uuid; duplicate keys within one
// payload are rejected.
func createMilestones(ctx context.Context, tx neo4jdb.Tx, versionID int64, inputs []domain.MilestoneInput, actor string) error {
	if len(inputs) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var waveIDs []int64
	nodes := make([]map[string]any, 0, len(inputs))
	targets := make([]map[string]any, 0, len(inputs))
	now := timestamp(time.Now())
	for _, in := range inputs {
		if in.Title == "" {
			return errs.Validation("milestone title is required")
		}
		key := in.Key
		if key == "" {
			key = uuid.NewString()
		}
		if seen[key] {
			return errs.Validation("duplicate milestone key %q in payload", key)
		}
		seen[key] = true

		eventTypes := in.EventTypes
		if eventTypes == nil {
			eventTypes = []string{}
		}
		nodes = append(nodes, map[string]any{
			"key":         key,
			"title":       in.Title,
			"description": in.Description,
			"eventTypes":  eventTypes,
		})
		if in.WaveID != nil {
			waveIDs = append(waveIDs, *in.WaveID)
			targets = append(targets, map[string]any{"key": key, "waveId": *in.WaveID})
		}
	}

	if err := ensureExist(ctx, tx, "Wave", waveIDs, "milestone wave"); err != nil {
		return err
	}

	create := fmt.Sprintf(`
MATCH (v) WHERE id(v) = $versionId
UNWIND $milestones AS m
CREATE (ms:Milestone {milestoneKey: m.key, title: m.title, description: m.description,
                      eventTypes: m.eventTypes, createdAt: $now, createdBy: $actor})
CREATE (ms)-[:%s]->(v)
`, edgeBelongsTo)
	if err := neo4jdb.Exec(ctx, tx, "store.createMilestones", create, map[string]any{
		"versionId":  versionID,
		"milestones": nodes,
		"now":        now,
		"actor":      actor,
	}); err != nil {
		return errs.StoreFault(err, "create milestones")
	}

	if len(targets) == 0 {
		return nil
	}
	link := fmt.Sprintf(`
MATCH (v) WHERE id(v) = $versionId
UNWIND $targets AS t
MATCH (v)<-[:%s]-(ms:Milestone {milestoneKey: t.key})
MATCH (w:Wave) WHERE id(w) = t.waveId
CREATE (ms)-[:%s]->(w)
`, edgeBelongsTo, edgeTargets)
	if err := neo4jdb.Exec(ctx, tx, "store.linkMilestoneWaves", link, map[string]any{
		"versionId": versionID,
		"targets":   targets,
	}); err != nil {
		return errs.StoreFault(err, "link milestone waves")
	}
	return nil
}

// cloneMilestones copies every milestone of one version into fresh nodes
// under another, keys and wave targets included.
func cloneMilestones(ctx context.Context, tx neo4jdb.Tx, fromVersionID, toVersionID int64) error {
	query := fmt.Sprintf(`
MATCH (a) WHERE id(a) = $from
MATCH (b) WHERE id(b) = $to
MATCH (a)<-[:%s]-(m:Milestone)
CREATE (c:Milestone)
SET c = properties(m)
CREATE (c)-[:%s]->(b)
WITH m, c
OPTIONAL MATCH (m)-[:%s]->(w:Wave)
FOREACH (_ IN CASE WHEN w IS NULL THEN [] ELSE [1] END | CREATE (c)-[:%s]->(w))
`, edgeBelongsTo, edgeBelongsTo, edgeTargets, edgeTargets)
	err := neo4jdb.Exec(ctx, tx, "store.cloneMilestones", query, map[string]any{
		"from": fromVersionID,
		"to":   toVersionID,
	})
	return errs.StoreFault(err, "clone milestones")
}

// hydrateMilestones loads milestones for a batch of change versions.
func hydrateMilestones(ctx context.Context, tx neo4jdb.Tx, versionIDs []int64) (map[int64][]domain.Milestone, error) {
	if len(versionIDs) == 0 {
		return map[int64][]domain.Milestone{}, nil
	}
	query := fmt.Sprintf(`
MATCH (v) WHERE id(v) IN $versionIds
MATCH (v)<-[:%s]-(m:Milestone)
OPTIONAL MATCH (m)-[:%s]->(w:Wave)
RETURN id(v) AS versionId, id(m) AS milestoneId, m.milestoneKey AS key,
       m.title AS title, m.description AS description, m.eventTypes AS eventTypes,
       id(w) AS waveId, w.name AS waveName
ORDER BY m.title
`, edgeBelongsTo, edgeTargets)
	records, err := neo4jdb.Run(ctx, tx, "store.hydrateMilestones", query, map[string]any{"versionIds": versionIDs})
	if err != nil {
		return nil, errs.StoreFault(err, "hydrate milestones")
	}
	out := map[int64][]domain.Milestone{}
	for _, rec := range records {
		versionID, err := recordID(rec, "versionId")
		if err != nil {
			return nil, errs.StoreFault(err, "hydrate milestones")
		}
		m, err := milestoneFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out[versionID] = append(out[versionID], *m)
	}
	return out, nil
}

func milestoneFromRecord(rec *neo4j.Record) (*domain.Milestone, error) {
	milestoneID, err := recordID(rec, "milestoneId")
	if err != nil {
		return nil, errs.StoreFault(err, "map milestone")
	}
	m := domain.Milestone{
		ID:          milestoneID,
		Key:         recordString(rec, "key"),
		Title:       recordString(rec, "title"),
		Description: recordString(rec, "description"),
		EventTypes:  recordStrings(rec, "eventTypes"),
	}
	waveID, err := recordID(rec, "waveId")
	if err != nil {
		return nil, errs.StoreFault(err, "map milestone")
	}
	if waveID != 0 {
		m.Wave = &domain.Reference{ID: waveID, Title: recordString(rec, "waveName")}
	}
	return &m, nil
}
