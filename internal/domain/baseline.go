package domain

import "time"

// Baseline is a frozen capture of every item's latest version at one instant.
// Immutable after creation.
type Baseline struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	CreatedAt         time.Time  `json:"createdAt"`
	CreatedBy         string     `json:"createdBy"`
	CapturedItemCount int        `json:"capturedItemCount"`
	StartsFromWave    *Reference `json:"startsFromWave,omitempty"`
}

// Edition is a published binding of a baseline and a wave cutoff. Immutable
// after creation.
type Edition struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"createdAt"`
	CreatedBy      string    `json:"createdBy"`
	Baseline       Reference `json:"baseline"`
	StartsFromWave Reference `json:"startsFromWave"`
}

// Edition type tags.
const (
	EditionTypeDraft    = "DRAFT"
	EditionTypeOfficial = "OFFICIAL"
)

// EditionContext is what list/show callers substitute an edition id for.
type EditionContext struct {
	BaselineID int64 `json:"baselineId"`
	FromWaveID int64 `json:"fromWaveId"`
}
