package domain

import "time"

// Requirement type tags. ON requirements group OR requirements under them in
// the refinement hierarchy.
const (
	RequirementTypeON = "ON"
	RequirementTypeOR = "OR"
)

// OperationalRequirement is one requirement item hydrated at a specific
// version, relationships included.
type OperationalRequirement struct {
	ItemID    int64     `json:"itemId"`
	Title     string    `json:"title"`
	Code      string    `json:"code,omitempty"`
	VersionID int64     `json:"versionId"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`

	Type          string `json:"type"`
	Statement     string `json:"statement,omitempty"`
	Rationale     string `json:"rationale,omitempty"`
	Flows         string `json:"flows,omitempty"`
	PrivateNotes  string `json:"privateNotes,omitempty"`
	DraftingGroup string `json:"draftingGroup,omitempty"`
	Path          string `json:"path,omitempty"`

	RefinesParent                *Reference  `json:"refinesParent,omitempty"`
	ImpactsStakeholderCategories []Reference `json:"impactsStakeholderCategories"`
	ImpactsData                  []Reference `json:"impactsData"`
	ImpactsServices              []Reference `json:"impactsServices"`
	ImpactsRegulatoryAspects     []Reference `json:"impactsRegulatoryAspects"`
	ReferencesDocuments          []Reference `json:"referencesDocuments"`
	DependsOnRequirements        []Reference `json:"dependsOnRequirements"`
}

// RequirementRelations is the relationship payload for a requirement write.
// A nil *RequirementRelations on update means "inherit everything from the
// expected current version"; a non-nil value replaces every category with
// exactly what it holds, empty slices included.
type RequirementRelations struct {
	RefinesParent                *int64        `json:"refinesParent,omitempty"`
	ImpactsStakeholderCategories []int64       `json:"impactsStakeholderCategories"`
	ImpactsData                  []int64       `json:"impactsData"`
	ImpactsServices              []int64       `json:"impactsServices"`
	ImpactsRegulatoryAspects     []int64       `json:"impactsRegulatoryAspects"`
	ReferencesDocuments          []DocumentRef `json:"referencesDocuments"`
	DependsOnRequirements        []int64       `json:"dependsOnRequirements"`
}

// RequirementInput is the full write payload for create/update.
type RequirementInput struct {
	Title         string `json:"title"`
	Type          string `json:"type"`
	Statement     string `json:"statement"`
	Rationale     string `json:"rationale"`
	Flows         string `json:"flows"`
	PrivateNotes  string `json:"privateNotes"`
	DraftingGroup string `json:"draftingGroup"`
	Path          string `json:"path"`

	Relations *RequirementRelations `json:"relations,omitempty"`
}

// RequirementFilter narrows findAll results; zero values mean "no constraint"
// and the populated predicates combine conjunctively.
type RequirementFilter struct {
	Type          string
	TitleContains string
	TextContains  string
	DraftingGroup string
	ImpactsAnyOf  []int64
}

func (f RequirementFilter) Empty() bool {
	return f.Type == "" && f.TitleContains == "" && f.TextContains == "" &&
		f.DraftingGroup == "" && len(f.ImpactsAnyOf) == 0
}
