package models

import (
	"encoding/json"
	"time"
)

// VerificationKey addresses one submitted session in the store
type VerificationKey string

// SubmissionRecord is the unit exchanged with the store
type SubmissionRecord struct {
	Key     VerificationKey `json:"key" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// StoredSubmission is a record as persisted by the store server
type StoredSubmission struct {
	Key       string    `json:"key" db:"verification_key"`
	Payload   string    `json:"payload" db:"payload"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Record converts a stored row back to its wire form
func (s *StoredSubmission) Record() SubmissionRecord {
	return SubmissionRecord{
		Key:     VerificationKey(s.Key),
		Payload: json.RawMessage(s.Payload),
	}
}

// Ack is the store's acknowledgment of a write
type Ack struct {
	Status string          `json:"status"`
	Key    VerificationKey `json:"key,omitempty"`
	Total  int             `json:"total,omitempty"`
}

// SubmissionStats summarizes everything the store holds
type SubmissionStats struct {
	Total             int                `json:"total"`
	Judgments         int                `json:"judgments"`
	MeanConfidence    float64            `json:"mean_confidence"`
	TagCounts         map[ReasonTag]int  `json:"tag_counts"`
	ItemConfidence    map[ItemID]float64 `json:"item_confidence"`
	UnreadablePayload int                `json:"unreadable_payloads"`
}
