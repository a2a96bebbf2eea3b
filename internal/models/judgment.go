package models

import "time"

// ItemID identifies one displayable image in the universe [1, N]
type ItemID int

// DefaultConfidence is the neutral slider position before the rater touches it
const DefaultConfidence = 50

const (
	MinConfidence = 0
	MaxConfidence = 100
)

// Judgment is a rater's verdict on a single image
type Judgment struct {
	ItemID     ItemID      `json:"item_id"`
	Confidence int         `json:"confidence"` // 0 = real photo, 100 = AI generated
	AITags     []ReasonTag `json:"ai_tags"`
	RealTags   []ReasonTag `json:"real_tags"`
}

// SessionPayload is the serialized form of a finalized response set
type SessionPayload struct {
	UniverseSize int        `json:"universe_size"`
	Sample       []ItemID   `json:"sample"`
	Judgments    []Judgment `json:"judgments"`
	SubmittedAt  time.Time  `json:"submitted_at"`
}
