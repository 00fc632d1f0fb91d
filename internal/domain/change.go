package domain

import "time"

// OperationalChange is one change item hydrated at a specific version,
// milestones and relationships included.
type OperationalChange struct {
	ItemID    int64     `json:"itemId"`
	Title     string    `json:"title"`
	Code      string    `json:"code,omitempty"`
	VersionID int64     `json:"versionId"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`

	Purpose       string `json:"purpose,omitempty"`
	InitialState  string `json:"initialState,omitempty"`
	FinalState    string `json:"finalState,omitempty"`
	Details       string `json:"details,omitempty"`
	Visibility    string `json:"visibility,omitempty"`
	DraftingGroup string `json:"draftingGroup,omitempty"`

	SatisfiesRequirements  []Reference `json:"satisfiesRequirements"`
	SupersedesRequirements []Reference `json:"supersedesRequirements"`
	ReferencesDocuments    []Reference `json:"referencesDocuments"`
	DependsOnChanges       []Reference `json:"dependsOnChanges"`
	Milestones             []Milestone `json:"milestones"`
}

// ChangeRelations is the relationship payload for a change write. Same
// nil-means-inherit contract as RequirementRelations; milestones count as a
// relationship category and follow the same all-or-nothing switch.
type ChangeRelations struct {
	SatisfiesRequirements  []int64          `json:"satisfiesRequirements"`
	SupersedesRequirements []int64          `json:"supersedesRequirements"`
	ReferencesDocuments    []DocumentRef    `json:"referencesDocuments"`
	DependsOnChanges       []int64          `json:"dependsOnChanges"`
	Milestones             []MilestoneInput `json:"milestones"`
}

// ChangeInput is the full write payload for create/update.
type ChangeInput struct {
	Title         string `json:"title"`
	Purpose       string `json:"purpose"`
	InitialState  string `json:"initialState"`
	FinalState    string `json:"finalState"`
	Details       string `json:"details"`
	Visibility    string `json:"visibility"`
	DraftingGroup string `json:"draftingGroup"`

	Relations *ChangeRelations `json:"relations,omitempty"`
}

// ChangeFilter narrows findAll results; populated predicates combine
// conjunctively.
type ChangeFilter struct {
	TitleContains string
	TextContains  string
	Visibility    string
	DraftingGroup string
	SatisfiesItem int64
}

func (f ChangeFilter) Empty() bool {
	return f.TitleContains == "" && f.TextContains == "" && f.Visibility == "" &&
		f.DraftingGroup == "" && f.SatisfiesItem == 0
}
