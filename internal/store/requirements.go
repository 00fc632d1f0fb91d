package store

import (
	"context"
	"fmt"

	"github.com/avionde/odp-backend/internal/domain"
	"github.com/avionde/odp-backend/internal/pkg/errs"
	"github.com/avionde/odp-backend/internal/platform/logger"
	"github.com/avionde/odp-backend/internal/platform/neo4jdb"
)

const (
	labelRequirement        = "OperationalRequirement"
	labelRequirementVersion = "ORVersion"
	codeTagRequirement      = "OR"
)

// RequirementStore manages operational requirements: versioned content plus
// refinement hierarchy, taxonomy impacts, document references and
// dependencies.
type RequirementStore struct {
	engine *VersionedStore
	waves  *WaveFilter
	log    *logger.Logger
}

func NewRequirementStore(baseLog *logger.Logger, waves *WaveFilter) *RequirementStore {
	log := baseLog.With("store", "RequirementStore")
	return &RequirementStore{
		engine: newVersionedStore(labelRequirement, labelRequirementVersion, codeTagRequirement, &requirementAdapter{}, log),
		waves:  waves,
		log:    log,
	}
}

func (s *RequirementStore) Create(ctx context.Context, tx neo4jdb.Tx, in domain.RequirementInput, actor string) (*domain.OperationalRequirement, error) {
	if err := validateRequirementType(in.Type); err != nil {
		return nil, err
	}
	if in.Relations != nil && in.Relations.RefinesParent != nil {
		if err := checkNoHierarchyCycle(ctx, tx, 0, *in.Relations.RefinesParent); err != nil {
			return nil, err
		}
	}
	r, err := s.engine.Create(ctx, tx, requirementWrite(in), actor)
	if err != nil {
		return nil, err
	}
	return s.hydrateOne(ctx, tx, r)
}

func (s *RequirementStore) Update(ctx context.Context, tx neo4jdb.Tx, itemID int64, in domain.RequirementInput, expectedVersionID int64, actor string) (*domain.OperationalRequirement, error) {
	if err := validateRequirementType(in.Type); err != nil {
		return nil, err
	}
	if in.Relations != nil && in.Relations.RefinesParent != nil {
		if err := checkNoHierarchyCycle(ctx, tx, itemID, *in.Relations.RefinesParent); err != nil {
			return nil, err
		}
	}
	r, err := s.engine.Update(ctx, tx, itemID, requirementWrite(in), expectedVersionID, actor)
	if err != nil {
		return nil, err
	}
	return s.hydrateOne(ctx, tx, r)
}

// FindByID resolves a requirement against the latest version or a baseline,
// then applies the wave cutoff if the context carries one. Returns (nil, nil)
// when absent or filtered out.
func (s *RequirementStore) FindByID(ctx context.Context, tx neo4jdb.Tx, itemID int64, lc ListContext) (*domain.OperationalRequirement, error) {
	r, err := s.engine.FindRow(ctx, tx, itemID, lc.BaselineID)
	if err != nil || r == nil {
		return nil, err
	}
	if lc.FromWaveID != 0 {
		accepted, err := s.waves.AcceptedRequirementIDs(ctx, tx, lc)
		if err != nil {
			return nil, err
		}
		if !accepted[itemID] {
			return nil, nil
		}
	}
	return s.hydrateOne(ctx, tx, r)
}

func (s *RequirementStore) FindByIDAndVersion(ctx context.Context, tx neo4jdb.Tx, itemID int64, version int) (*domain.OperationalRequirement, error) {
	r, err := s.engine.FindRowByVersion(ctx, tx, itemID, version)
	if err != nil || r == nil {
		return nil, err
	}
	return s.hydrateOne(ctx, tx, r)
}

func (s *RequirementStore) FindVersionHistory(ctx context.Context, tx neo4jdb.Tx, itemID int64) ([]domain.VersionSummary, error) {
	return s.engine.History(ctx, tx, itemID)
}

func (s *RequirementStore) Delete(ctx context.Context, tx neo4jdb.Tx, itemID int64) error {
	return s.engine.Delete(ctx, tx, itemID)
}

// FindAll lists requirements ordered by title, filtered by content predicates
// and, when the context carries a wave, the cascade-accepted id set computed
// once up front.
func (s *RequirementStore) FindAll(ctx context.Context, tx neo4jdb.Tx, lc ListContext, f domain.RequirementFilter) ([]domain.OperationalRequirement, error) {
	where, params := requirementWhere(f)
	if lc.FromWaveID != 0 {
		accepted, err := s.waves.AcceptedRequirementIDs(ctx, tx, lc)
		if err != nil {
			return nil, err
		}
		if len(accepted) == 0 {
			return []domain.OperationalRequirement{}, nil
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

// ImpactedBy is the inverse lookup: requirements whose selected version
// impacts the given taxonomy entity.
func (s *RequirementStore) ImpactedBy(ctx context.Context, tx neo4jdb.Tx, entityID int64, lc ListContext) ([]domain.OperationalRequirement, error) {
	return s.FindAll(ctx, tx, lc, domain.RequirementFilter{ImpactsAnyOf: []int64{entityID}})
}

func validateRequirementType(t string) error {
	switch t {
	case domain.RequirementTypeON, domain.RequirementTypeOR:
		return nil
	default:
		return errs.Validation("requirement type must be %s or %s, got %q",
			domain.RequirementTypeON, domain.RequirementTypeOR, t)
	}
}

// requirementWrite splits the wire payload into engine content and the
// adapter's relationship payload.
func requirementWrite(in domain.RequirementInput) writeInput {
	content := map[string]any{
		"type":          in.Type,
		"statement":     in.Statement,
		"rationale":     in.Rationale,
		"flows":         in.Flows,
		"privateNotes":  in.PrivateNotes,
		"draftingGroup": in.DraftingGroup,
		"path":          in.Path,
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

// requirementWhere builds conjunctive filter clauses over (i, v).
func requirementWhere(f domain.RequirementFilter) ([]string, map[string]any) {
	var where []string
	params := map[string]any{}
	if f.Type != "" {
		where = append(where, "v.type = $type")
		params["type"] = f.Type
	}
	if f.TitleContains != "" {
		where = append(where, "toLower(i.title) CONTAINS toLower($titleContains)")
		params["titleContains"] = f.TitleContains
	}
	if f.TextContains != "" {
		where = append(where,
			"(toLower(coalesce(v.statement, '')) CONTAINS toLower($textContains) OR toLower(coalesce(v.rationale, '')) CONTAINS toLower($textContains))")
		params["textContains"] = f.TextContains
	}
	if f.DraftingGroup != "" {
		where = append(where, "v.draftingGroup = $draftingGroup")
		params["draftingGroup"] = f.DraftingGroup
	}
	if len(f.ImpactsAnyOf) > 0 {
		where = append(where, fmt.Sprintf("EXISTS { MATCH (v)-[:%s]->(t) WHERE id(t) IN $impactsAnyOf }", edgeImpacts))
		params["impactsAnyOf"] = f.ImpactsAnyOf
	}
	return where, params
}

func (s *RequirementStore) hydrateOne(ctx context.Context, tx neo4jdb.Tx, r *row) (*domain.OperationalRequirement, error) {
	out, err := s.hydrate(ctx, tx, []row{*r})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *RequirementStore) hydrate(ctx context.Context, tx neo4jdb.Tx, rows []row) ([]domain.OperationalRequirement, error) {
	versionIDs := make([]int64, 0, len(rows))
	for _, r := range rows {
		versionIDs = append(versionIDs, r.VersionID)
	}

	parents, err := hydrateRefs(ctx, tx, versionIDs, edgeRefines, labelRequirement)
	if err != nil {
		return nil, err
	}
	stakeholders, err := hydrateRefs(ctx, tx, versionIDs, edgeImpacts, string(domain.KindStakeholderCategory))
	if err != nil {
		return nil, err
	}
	data, err := hydrateRefs(ctx, tx, versionIDs, edgeImpacts, string(domain.KindDataCategory))
	if err != nil {
		return nil, err
	}
	services, err := hydrateRefs(ctx, tx, versionIDs, edgeImpacts, string(domain.KindService))
	if err != nil {
		return nil, err
	}
	regulatory, err := hydrateRefs(ctx, tx, versionIDs, edgeImpacts, string(domain.KindRegulatoryAspect))
	if err != nil {
		return nil, err
	}
	documents, err := hydrateRefs(ctx, tx, versionIDs, edgeReferences, string(domain.KindDocument))
	if err != nil {
		return nil, err
	}
	dependencies, err := hydrateRefs(ctx, tx, versionIDs, edgeDependsOn, labelRequirement)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OperationalRequirement, 0, len(rows))
	for _, r := range rows {
		req := domain.OperationalRequirement{
			ItemID:    r.ItemID,
			Title:     r.Title,
			Code:      r.Code,
			VersionID: r.VersionID,
			Version:   r.Version,
			CreatedAt: r.CreatedAt,
			CreatedBy: r.CreatedBy,

			Type:          propString(r.Props, "type"),
			Statement:     propString(r.Props, "statement"),
			Rationale:     propString(r.Props, "rationale"),
			Flows:         propString(r.Props, "flows"),
			PrivateNotes:  propString(r.Props, "privateNotes"),
			DraftingGroup: propString(r.Props, "draftingGroup"),
			Path:          propString(r.Props, "path"),

			ImpactsStakeholderCategories: orEmpty(stakeholders[r.VersionID]),
			ImpactsData:                  orEmpty(data[r.VersionID]),
			ImpactsServices:              orEmpty(services[r.VersionID]),
			ImpactsRegulatoryAspects:     orEmpty(regulatory[r.VersionID]),
			ReferencesDocuments:          orEmpty(documents[r.VersionID]),
			DependsOnRequirements:        orEmpty(dependencies[r.VersionID]),
		}
		if ps := parents[r.VersionID]; len(ps) > 0 {
			parent := ps[0]
			req.RefinesParent = &parent
		}
		out = append(out, req)
	}
	return out, nil
}

func orEmpty(refs []domain.Reference) []domain.Reference {
	if refs == nil {
		return []domain.Reference{}
	}
	return refs
}

func idSetToSlice(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// requirementAdapter plugs requirements into the versioned engine.
type requirementAdapter struct{}

func (a *requirementAdapter) CreateRelations(ctx context.Context, tx neo4jdb.Tx, itemID, versionID int64, relations any, actor string) error {
	rel, _ := relations.(*domain.RequirementRelations)
	if rel == nil {
		return nil
	}

	if rel.RefinesParent != nil {
		parent := *rel.RefinesParent
		if err := rejectSelf(itemID, []int64{parent}, "refines parent"); err != nil {
			return err
		}
		if err := ensureExist(ctx, tx, labelRequirement, []int64{parent}, "refines parent"); err != nil {
			return err
		}
		if err := createEdges(ctx, tx, versionID, edgeRefines, []int64{parent}); err != nil {
			return err
		}
	}

	impacts := []struct {
		label string
		ids   []int64
	}{
		{string(domain.KindStakeholderCategory), rel.ImpactsStakeholderCategories},
		{string(domain.KindDataCategory), rel.ImpactsData},
		{string(domain.KindService), rel.ImpactsServices},
		{string(domain.KindRegulatoryAspect), rel.ImpactsRegulatoryAspects},
	}
	for _, group := range impacts {
		if len(group.ids) == 0 {
			continue
		}
		if err := ensureExist(ctx, tx, group.label, group.ids, "impacted "+group.label); err != nil {
			return err
		}
		if err := createEdges(ctx, tx, versionID, edgeImpacts, group.ids); err != nil {
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

	if len(rel.DependsOnRequirements) > 0 {
		if err := rejectSelf(itemID, rel.DependsOnRequirements, "requirement dependency"); err != nil {
			return err
		}
		if err := ensureExist(ctx, tx, labelRequirement, rel.DependsOnRequirements, "requirement dependency"); err != nil {
			return err
		}
		if err := createEdges(ctx, tx, versionID, edgeDependsOn, rel.DependsOnRequirements); err != nil {
			return err
		}
	}
	return nil
}

func (a *requirementAdapter) CloneRelations(ctx context.Context, tx neo4jdb.Tx, fromVersionID, toVersionID int64, actor string) error {
	for _, edgeType := range []string{edgeRefines, edgeImpacts, edgeReferences, edgeDependsOn} {
		if err := cloneEdges(ctx, tx, fromVersionID, toVersionID, edgeType); err != nil {
			return err
		}
	}
	return nil
}

// checkNoHierarchyCycle ascends from the proposed parent through latest
// versions with a visited set; reaching itemID means the new edge would close
// a cycle. itemID 0 (create) cannot be reached and the walk just terminates.
func checkNoHierarchyCycle(ctx context.Context, tx neo4jdb.Tx, itemID, parentID int64) error {
	visited := map[int64]bool{}
	frontier := []int64{parentID}
	for len(frontier) > 0 {
		for _, id := range frontier {
			if itemID != 0 && id == itemID {
				return errs.Validation("refines parent %d would create a hierarchy cycle through item %d", parentID, itemID)
			}
			visited[id] = true
		}
		parents, err := requirementParents(ctx, tx, frontier, ListContext{})
		if err != nil {
			return err
		}
		frontier = frontier[:0]
		for _, p := range parents {
			if !visited[p] {
				frontier = append(frontier, p)
			}
		}
	}
	return nil
}
