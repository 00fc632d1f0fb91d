package domain

import "time"

// EntityKind selects one of the plain (unversioned) taxonomy stores.
type EntityKind string

const (
	KindStakeholderCategory EntityKind = "StakeholderCategory"
	KindDataCategory        EntityKind = "DataCategory"
	KindService             EntityKind = "Service"
	KindDocument            EntityKind = "Document"
	KindRegulatoryAspect    EntityKind = "RegulatoryAspect"
)

// TaxonomyEntity is one plain entity: no versioning, at most one parent.
type TaxonomyEntity struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Version     string     `json:"version,omitempty"`
	URL         string     `json:"url,omitempty"`
	Parent      *Reference `json:"parent,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy"`
}

// TaxonomyInput is the write payload for a taxonomy entity. ParentID nil
// means root level.
type TaxonomyInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`
	URL         string `json:"url,omitempty"`
	ParentID    *int64 `json:"parentId,omitempty"`
}
