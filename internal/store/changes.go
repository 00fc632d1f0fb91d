package store

import (
	"context"
	"fmt"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/platform/logger"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
)

const (
	labelChange        = "OperationalChange"
	labelChangeVersion = "OCVersion"
	codeTagChange      = "OC"
)

// ChangeStore manages operational changes: versioned content, fulfilment
// edges to requirement items, document references, dependencies and the
// milestone sub-store.
type ChangeStore struct {
	engine *VersionedStore
	waves  *WaveFilter
	log    *logger.Logger
}

func NewChangeStore(baseLog *logger.Logger, waves *WaveFilter) *ChangeStore {
	log := baseLog.With("store", "ChangeStore")
	return &ChangeStore{
		engine: newVersionedStore(labelChange, labelChangeVersion, codeTagChange, &changeAdapter{}, log),
		waves:  waves,
		log:    log,
	}
}

func (s *ChangeStore) Create(ctx context.Context, tx neo4jdb.Tx, in domain.ChangeInput, actor string) (*domain.OperationalChange, error) {
	r, err := s.engine.Create(ctx, tx, changeWrite(in), actor)
	if err != nil {
		return nil, err
	}
	return s.hydrateOne(ctx, tx, r)
}

func (s *ChangeStore) Update(ctx context.Context, tx neo4jdb.Tx, itemID int64, in domain.ChangeInput, expectedVersionID int64, actor string) (*domain.OperationalChange, error) {
	r, err := s.engine.Update(ctx, tx, itemID, changeWrite(in), expectedVersionID, actor)
	if err != nil {
		return nil, err
	}
	return s.hydrateOne(ctx, tx, r)
}

// FindByID resolves a change against the latest version or a baseline, then
// applies the wave cutoff if the context carries one. Returns (nil, nil) when
// absent or filtered out.
func (s *ChangeStore) FindByID(ctx context.Context, tx neo4jdb.Tx, itemID int64, lc ListContext) (*domain.OperationalChange, error) {
	r, err := s.engine.FindRow(ctx, tx, itemID, lc.BaselineID)
	if err != nil || r == nil {
		return nil, err
	}
	if lc.FromWaveID != 0 {
		accepted, err := s.waves.AcceptedChangeIDs(ctx, tx, lc)
		if err != nil {
			return nil, err
		}
		if !accepted[itemID] {
			return nil, nil
		}
	}
	return s.hydrateOne(ctx, tx, r)
}

func (s *ChangeStore) FindByIDAndVersion(ctx context.Context, tx neo4jdb.Tx, itemID int64, version int) (*domain.OperationalChange, error) {
	r, err := s.engine.FindRowByVersion(ctx, tx, itemID, version)
	if err != nil || r == nil {
		return nil, err
	}
	return s.hydrateOne(ctx, tx, r)
}

func (s *ChangeStore) FindVersionHistory(ctx context.Context, tx neo4jdb.Tx, itemID int64) ([]domain.VersionSummary, error) {
	return s.engine.History(ctx, tx, itemID)
}

func (s *ChangeStore) Delete(ctx context.Context, tx neo4jdb.Tx, itemID int64) error {
	return s.engine.Delete(ctx, tx, itemID)
}

// FindAll lists changes ordered by title. A wave cutoff prunes the set down
// to changes with at least one milestone at or after the cutoff, computed as
// one accepted-id set up front.
func (s *ChangeStore) FindAll(ctx context.Context, tx neo4jdb.Tx, lc ListContext, f domain.ChangeFilter) ([]domain.OperationalChange, error) {
	where, params := changeWhere(f)
	if lc.FromWaveID != 0 {
		accepted, err := s.waves.AcceptedChangeIDs(ctx, tx, lc)
		if err != nil {
			return nil, err
		}
		if len(accepted) == 0 {
			return []domain.OperationalChange{}, nil
		}
		where = append(where, "id(i) IN $acceptedIds")
		params["acceptedIds"] = idSetToSlice(accepted)
	}
	rows, err := s.engine.Rows(ctx, tx, lc.BaselineID, where, params)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, tx, rows)
}

// FulfillingRequirement is the inverse lookup: changes whose selected version
// satisfies or supersedes the given requirement item.
func (s *ChangeStore) FulfillingRequirement(ctx context.Context, tx neo4jdb.Tx, requirementItemID int64, lc ListContext) ([]domain.OperationalChange, error) {
	return s.FindAll(ctx, tx, lc, domain.ChangeFilter{SatisfiesItem: requirementItemID})
}

// MilestonesTargetingWave lists milestones targeting one wave, joined with
// their owning change.
func (s *ChangeStore) MilestonesTargetingWave(ctx context.Context, tx neo4jdb.Tx, waveID int64, lc ListContext) ([]domain.MilestoneWithChange, error) {
	return milestonesTargetingWave(ctx, tx, waveID, lc)
}

// changeWrite splits the wire payload into engine content and the adapter's
// relationship payload.
func changeWrite(in domain.ChangeInput) writeInput {
	content := map[string]any{
		"purpose":       in.Purpose,
		"initialState":  in.InitialState,
		"finalState":    in.FinalState,
		"details":       in.Details,
		"visibility":    in.Visibility,
		"draftingGroup": in.DraftingGroup,
	}
	w := writeInput{
		Title:         in.Title,
		DraftingGroup: in.DraftingGroup,
		Content:       content,
	}
	if in.Relations != nil {
		w.Relations = in.Relations
	}
	return w
}

// changeWhere builds conjunctive filter clauses over (i, v).
func changeWhere(f domain.ChangeFilter) ([]string, map[string]any) {
	var where []string
	params := map[string]any{}
	if f.TitleContains != "" {
		where = append(where, "toLower(i.title) CONTAINS toLower($titleContains)")
		params["titleContains"] = f.TitleContains
	}
	if f.TextContains != "" {
		where = append(where,
			"(toLower(coalesce(v.purpose, '')) CONTAINS toLower($textContains) OR toLower(coalesce(v.details, '')) CONTAINS toLower($textContains))")
		params["textContains"] = f.TextContains
	}
	if f.Visibility != "" {
		where = append(where, "v.visibility = $visibility")
		params["visibility"] = f.Visibility
	}
	if f.DraftingGroup != "" {
		where = append(where, "v.draftingGroup = $draftingGroup")
		params["draftingGroup"] = f.DraftingGroup
	}
	if f.SatisfiesItem != 0 {
		where = append(where, fmt.Sprintf("EXISTS { MATCH (v)-[:%s|%s]->(r) WHERE id(r) = $satisfiesItem }",
			edgeSatisfies, edgeSupersedes))
		params["satisfiesItem"] = f.SatisfiesItem
	}
	return where, params
}

func (s *ChangeStore) hydrateOne(ctx context.Context, tx neo4jdb.Tx, r *row) (*domain.OperationalChange, error) {
	out, err := s.hydrate(ctx, tx, []row{*r})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *ChangeStore) hydrate(ctx context.Context, tx neo4jdb.Tx, rows []row) ([]domain.OperationalChange, error) {
	versionIDs := make([]int64, 0, len(rows))
	for _, r := range rows {
		versionIDs = append(versionIDs, r.VersionID)
	}

	satisfies, err := hydrateRefs(ctx, tx, versionIDs, edgeSatisfies, labelRequirement)
	if err != nil {
		return nil, err
	}
	supersedes, err := hydrateRefs(ctx, tx, versionIDs, edgeSupersedes, labelRequirement)
	if err != nil {
		return nil, err
	}
	documents, err := hydrateRefs(ctx, tx, versionIDs, edgeReferences, string(domain.KindDocument))
	if err != nil {
		return nil, err
	}
	dependencies, err := hydrateRefs(ctx, tx, versionIDs, edgeDependsOn, labelChange)
	if err != nil {
		return nil, err
	}
	milestones, err := hydrateMilestones(ctx, tx, versionIDs)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OperationalChange, 0, len(rows))
	for _, r := range rows {
		ms := milestones[r.VersionID]
		if ms == nil {
			ms = []domain.Milestone{}
		}
		out = append(out, domain.OperationalChange{
			ItemID:    r.ItemID,
			Title:     r.Title,
			Code:      r.Code,
			VersionID: r.VersionID,
			Version:   r.Version,
			CreatedAt: r.CreatedAt,
			CreatedBy: r.CreatedBy,

			Purpose:       propString(r.Props, "purpose"),
			InitialState:  propString(r.Props, "initialState"),
			FinalState:    propString(r.Props, "finalState"),
			Details:       propString(r.Props, "details"),
			Visibility:    propString(r.Props, "visibility"),
			DraftingGroup: propString(r.Props, "draftingGroup"),

			SatisfiesRequirements:  orEmpty(satisfies[r.VersionID]),
			SupersedesRequirements: orEmpty(supersedes[r.VersionID]),
			ReferencesDocuments:    orEmpty(documents[r.VersionID]),
			DependsOnChanges:       orEmpty(dependencies[r.VersionID]),
			Milestones:             ms,
		})
	}
	return out, nil
}

// changeAdapter plugs changes into the versioned engine. Milestones count as
// a relationship category: replaced together with the edges, cloned together
// on inheritance.
type changeAdapter struct{}

func (a *changeAdapter) CreateRelations(ctx context.Context, tx neo4jdb.Tx, itemID, versionID int64, relations any, actor string) error {
	rel, _ := relations.(*domain.ChangeRelations)
	if rel == nil {
		return nil
	}

	fulfilment := []struct {
		edge string
		ids  []int64
	}{
		{edgeSatisfies, rel.SatisfiesRequirements},
		{edgeSupersedes, rel.SupersedesRequirements},
	}
	for _, group := range fulfilment {
		if len(group.ids) == 0 {
			continue
		}
		if err := ensureExist(ctx, tx, labelRequirement, group.ids, "fulfilled requirement"); err != nil {
			return err
		}
		if err := createEdges(ctx, tx, versionID, group.edge, group.ids); err != nil {
			return err
		}
	}

	if len(rel.ReferencesDocuments) > 0 {
		docIDs := make([]int64, 0, len(rel.ReferencesDocuments))
		for _, d := range rel.ReferencesDocuments {
			docIDs = append(docIDs, d.ID)
		}
		if err := ensureExist(ctx, tx, string(domain.KindDocument), docIDs, "referenced document"); err != nil {
			return err
		}
		if err := createDocumentEdges(ctx, tx, versionID, rel.ReferencesDocuments); err != nil {
			return err
		}
	}

	if len(rel.DependsOnChanges) > 0 {
		if err := rejectSelf(itemID, rel.DependsOnChanges, "change dependency"); err != nil {
			return err
		}
		if err := ensureExist(ctx, tx, labelChange, rel.DependsOnChanges, "change dependency"); err != nil {
			return err
		}
		if err := createEdges(ctx, tx, versionID, edgeDependsOn, rel.DependsOnChanges); err != nil {
			return err
		}
	}

	return createMilestones(ctx, tx, versionID, rel.Milestones, actor)
}

func (a *changeAdapter) CloneRelations(ctx context.Context, tx neo4jdb.Tx, fromVersionID, toVersionID int64, actor string) error {
	for _, edgeType := range []string{edgeSatisfies, edgeSupersedes, edgeReferences, edgeDependsOn} {
		if err := cloneEdges(ctx, tx, fromVersionID, toVersionID, edgeType); err != nil {
			return err
		}
	}
	return cloneMilestones(ctx, tx, fromVersionID, toVersionID)
}
