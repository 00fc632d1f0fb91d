package domain

// Milestone is a version-scoped child of an operational change. Key is stable
// across change versions: inheriting a version copies milestones into fresh
// nodes that carry the same key, while the node identity changes.
type Milestone struct {
	ID          int64      `json:"id"`
	Key         string     `json:"milestoneKey"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	EventTypes  []string   `json:"eventTypes,omitempty"`
	Wave        *Reference `json:"wave,omitempty"`
}

// MilestoneWithChange is a milestone joined with the change it belongs to,
// for wave-centric lookups.
type MilestoneWithChange struct {
	Milestone
	Change Reference `json:"change"`
}

// MilestoneInput describes one milestone in a change write payload. An empty
// Key asks the store to mint a new one.
type MilestoneInput struct {
	Key         string   `json:"milestoneKey,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	EventTypes  []string `json:"eventTypes,omitempty"`
	WaveID      *int64   `json:"waveId,omitempty"`
}
