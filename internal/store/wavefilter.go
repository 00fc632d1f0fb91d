package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/logger"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
)

// WaveFilter computes which changes and requirements stay visible at or after
// a cutoff wave. Both computations produce the accepted-id set in a handful
// of aggregate queries rather than re-checking a predicate per candidate row.
type WaveFilter struct {
	log *logger.Logger
}

func NewWaveFilter(baseLog *logger.Logger) *WaveFilter {
	return &WaveFilter{log: baseLog.With("store", "WaveFilter")}
}

// waveAtOrAfterClause orders waves by (year, quarter); a missing quarter
// compares as 0. cw is the cutoff wave, w the candidate.
const waveAtOrAfterClause = `(w.year > cw.year OR (w.year = cw.year AND coalesce(w.quarter, 0) >= coalesce(cw.quarter, 0)))`

// AcceptedChangeIDs returns the ids of changes with at least one milestone
// targeting a wave at or after the cutoff, under the context's version
// selection (latest or baseline-captured).
func (wf *WaveFilter) AcceptedChangeIDs(ctx context.Context, tx neo4jdb.Tx, lc ListContext) (map[int64]bool, error) {
	if err := wf.ensureWave(ctx, tx, lc.FromWaveID); err != nil {
		return nil, err
	}

	selection := fmt.Sprintf(`MATCH (c:%s)-[:%s]->(v:%s)`, labelChange, edgeLatest, labelChangeVersion)
	params := map[string]any{"waveId": lc.FromWaveID}
	if lc.BaselineID != 0 {
		selection = fmt.Sprintf(`MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (b)-[:%s]->(v:%s)-[:%s]->(c:%s)`, edgeHasItems, labelChangeVersion, edgeVersionOf, labelChange)
		params["baselineId"] = lc.BaselineID
	}

	query := fmt.Sprintf(`
MATCH (cw:Wave) WHERE id(cw) = $waveId
%s
MATCH (v)<-[:%s]-(m:Milestone)-[:%s]->(w:Wave)
WHERE %s
RETURN collect(DISTINCT id(c)) AS ids
`, selection, edgeBelongsTo, edgeTargets, waveAtOrAfterClause)

	rec, err := neo4jdb.Single(ctx, tx, "wavefilter.acceptedChanges", query, params)
	if err != nil {
		return nil, errs.StoreFault(err, "compute accepted change set")
	}
	return idSetFromRecord(rec, "ids", "compute accepted change set")
}

// AcceptedRequirementIDs returns the ids of requirements that stay visible:
// fulfilled by an accepted change directly, or an ancestor (via the
// refinement hierarchy) of such a requirement. The ascent is a worklist over
// parent edges with a visited set, so arbitrary depth is safe and cycles
// terminate.
func (wf *WaveFilter) AcceptedRequirementIDs(ctx context.Context, tx neo4jdb.Tx, lc ListContext) (map[int64]bool, error) {
	changes, err := wf.AcceptedChangeIDs(ctx, tx, lc)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return map[int64]bool{}, nil
	}

	selection := fmt.Sprintf(`MATCH (c:%s)-[:%s]->(v:%s) WHERE id(c) IN $changeIds`,
		labelChange, edgeLatest, labelChangeVersion)
	params := map[string]any{"changeIds": idSetToSlice(changes)}
	if lc.BaselineID != 0 {
		selection = fmt.Sprintf(`MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (b)-[:%s]->(v:%s)-[:%s]->(c:%s) WHERE id(c) IN $changeIds`,
			edgeHasItems, labelChangeVersion, edgeVersionOf, labelChange)
		params["baselineId"] = lc.BaselineID
	}
	query := fmt.Sprintf(`
%s
MATCH (v)-[:%s|%s]->(r:%s)
RETURN collect(DISTINCT id(r)) AS ids
`, selection, edgeSatisfies, edgeSupersedes, labelRequirement)

	rec, err := neo4jdb.Single(ctx, tx, "wavefilter.fulfilledRequirements", query, params)
	if err != nil {
		return nil, errs.StoreFault(err, "compute fulfilled requirement set")
	}
	accepted, err := idSetFromRecord(rec, "ids", "compute fulfilled requirement set")
	if err != nil {
		return nil, err
	}

	// Ascend: every ancestor of an accepted requirement is accepted too.
	frontier := idSetToSlice(accepted)
	for len(frontier) > 0 {
		parents, err := requirementParents(ctx, tx, frontier, lc)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, p := range parents {
			if !accepted[p] {
				accepted[p] = true
				frontier = append(frontier, p)
			}
		}
	}
	return accepted, nil
}

// requirementParents resolves the refinement parents of a set of requirement
// items under the context's version selection.
func requirementParents(ctx context.Context, tx neo4jdb.Tx, itemIDs []int64, lc ListContext) ([]int64, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	selection := fmt.Sprintf(`MATCH (i:%s) WHERE id(i) IN $ids
MATCH (i)-[:%s]->(v:%s)`, labelRequirement, edgeLatest, labelRequirementVersion)
	params := map[string]any{"ids": itemIDs}
	if lc.BaselineID != 0 {
		selection = fmt.Sprintf(`MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (b)-[:%s]->(v:%s)-[:%s]->(i:%s) WHERE id(i) IN $ids`,
			edgeHasItems, labelRequirementVersion, edgeVersionOf, labelRequirement)
		params["baselineId"] = lc.BaselineID
	}
	query := fmt.Sprintf(`
%s
MATCH (v)-[:%s]->(p:%s)
RETURN collect(DISTINCT id(p)) AS ids
`, selection, edgeRefines, labelRequirement)

	rec, err := neo4jdb.Single(ctx, tx, "wavefilter.requirementParents", query, params)
	if err != nil {
		return nil, errs.StoreFault(err, "ascend requirement hierarchy")
	}
	if rec == nil {
		return nil, nil
	}
	raw, _ := rec.Get("ids")
	ids, err := neo4jdb.IDList(raw)
	if err != nil {
		return nil, errs.StoreFault(err, "ascend requirement hierarchy")
	}
	return ids, nil
}

// milestonesTargetingWave lists all milestones targeting one wave under the
// context's version selection, joined with their owning change.
func milestonesTargetingWave(ctx context.Context, tx neo4jdb.Tx, waveID int64, lc ListContext) ([]domain.MilestoneWithChange, error) {
	if err := ensureExist(ctx, tx, "Wave", []int64{waveID}, "wave"); err != nil {
		return nil, err
	}
	selection := fmt.Sprintf(`MATCH (c:%s)-[:%s]->(v:%s)`, labelChange, edgeLatest, labelChangeVersion)
	params := map[string]any{"waveId": waveID}
	if lc.BaselineID != 0 {
		selection = fmt.Sprintf(`MATCH (b:Baseline) WHERE id(b) = $baselineId
MATCH (b)-[:%s]->(v:%s)-[:%s]->(c:%s)`, edgeHasItems, labelChangeVersion, edgeVersionOf, labelChange)
		params["baselineId"] = lc.BaselineID
	}
	query := fmt.Sprintf(`
%s
MATCH (v)<-[:%s]-(m:Milestone)-[:%s]->(w:Wave) WHERE id(w) = $waveId
RETURN id(c) AS changeId, c.title AS changeTitle, c.code AS changeCode,
       id(m) AS milestoneId, m.milestoneKey AS key, m.title AS title,
       m.description AS description, m.eventTypes AS eventTypes,
       id(w) AS waveId, w.name AS waveName
ORDER BY c.title, m.title
`, selection, edgeBelongsTo, edgeTargets)

	records, err := neo4jdb.Run(ctx, tx, "wavefilter.milestonesTargetingWave", query, params)
	if err != nil {
		return nil, errs.StoreFault(err, "list milestones targeting wave")
	}
	out := make([]domain.MilestoneWithChange, 0, len(records))
	for _, rec := range records {
		m, err := milestoneFromRecord(rec)
		if err != nil {
			return nil, err
		}
		changeID, err := recordID(rec, "changeId")
		if err != nil {
			return nil, errs.StoreFault(err, "list milestones targeting wave")
		}
		out = append(out, domain.MilestoneWithChange{
			Milestone: *m,
			Change: domain.Reference{
				ID:    changeID,
				Title: recordString(rec, "changeTitle"),
				Code:  recordString(rec, "changeCode"),
			},
		})
	}
	return out, nil
}

func (wf *WaveFilter) ensureWave(ctx context.Context, tx neo4jdb.Tx, waveID int64) error {
	query := `MATCH (w:Wave) WHERE id(w) = $waveId RETURN id(w) AS id`
	rec, err := neo4jdb.Single(ctx, tx, "wavefilter.ensureWave", query, map[string]any{"waveId": waveID})
	if err != nil {
		return errs.StoreFault(err, "resolve cutoff wave")
	}
	if rec == nil {
		return errs.NotFound("wave %d not found", waveID)
	}
	return nil
}

func idSetFromRecord(rec *neo4j.Record, key, op string) (map[int64]bool, error) {
	out := map[int64]bool{}
	if rec == nil {
		return out, nil
	}
	raw, _ := rec.Get(key)
	ids, err := neo4jdb.IDList(raw)
	if err != nil {
		return nil, errs.StoreFault(err, op)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
