package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"authenticity-survey/internal/models"
	"authenticity-survey/internal/repository"

	"go.uber.org/zap"
)

// ErrInvalidRecord is returned for records the store refuses to persist
var ErrInvalidRecord = errors.New("invalid submission record")

// maxKeyLength bounds keys accepted from clients
const maxKeyLength = 128

// Submissions handles submission store business logic
type Submissions struct {
	repo   repository.SubmissionRepository
	logger *zap.Logger
}

// NewSubmissions creates a new submissions service
func NewSubmissions(repo repository.SubmissionRepository, logger *zap.Logger) *Submissions {
	return &Submissions{
		repo:   repo,
		logger: logger,
	}
}

// Save stores a single record, replacing any earlier record with the same key
func (s *Submissions) Save(ctx context.Context, record models.SubmissionRecord) error {
	sub, err := toStored(record)
	if err != nil {
		return err
	}

	if err := s.repo.Save(ctx, sub); err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}

	s.logger.Info("Submission stored", zap.String("key", sub.Key))
	return nil
}

// ReplaceAll swaps the whole collection for records.
// Clients doing read-modify-write through this path can overwrite each other.
func (s *Submissions) ReplaceAll(ctx context.Context, records []models.SubmissionRecord) error {
	subs := make([]*models.StoredSubmission, 0, len(records))
	for i, record := range records {
		sub, err := toStored(record)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		subs = append(subs, sub)
	}

	before, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count submissions: %w", err)
	}

	if err := s.repo.ReplaceAll(ctx, subs); err != nil {
		return fmt.Errorf("failed to replace submissions: %w", err)
	}

	s.logger.Warn("Submission collection replaced",
		zap.Int("before", before),
		zap.Int("after", len(subs)))
	return nil
}

// GetAll returns every stored record
func (s *Submissions) GetAll(ctx context.Context) ([]models.SubmissionRecord, error) {
	subs, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.SubmissionRecord, 0, len(subs))
	for _, sub := range subs {
		records = append(records, sub.Record())
	}
	return records, nil
}

// GetByKey returns the record stored under key, or nil if unknown
func (s *Submissions) GetByKey(ctx context.Context, key string) (*models.SubmissionRecord, error) {
	sub, err := s.repo.GetByKey(ctx, key)
	if err != nil || sub == nil {
		return nil, err
	}
	record := sub.Record()
	return &record, nil
}

// GetStats aggregates judgments across all stored sessions.
// Payloads that are not session payloads are counted and skipped.
func (s *Submissions) GetStats(ctx context.Context) (*models.SubmissionStats, error) {
	subs, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.SubmissionStats{
		Total:          len(subs),
		TagCounts:      make(map[models.ReasonTag]int),
		ItemConfidence: make(map[models.ItemID]float64),
	}

	var confidenceSum int
	itemSums := make(map[models.ItemID]int)
	itemCounts := make(map[models.ItemID]int)

	for _, sub := range subs {
		payload, err := DecodePayload(sub.Payload)
		if err != nil {
			s.logger.Warn("Skipping unreadable payload", zap.String("key", sub.Key), zap.Error(err))
			stats.UnreadablePayload++
			continue
		}

		for _, j := range payload.Judgments {
			stats.Judgments++
			confidenceSum += j.Confidence
			itemSums[j.ItemID] += j.Confidence
			itemCounts[j.ItemID]++
			for _, tag := range j.AITags {
				stats.TagCounts[tag]++
			}
			for _, tag := range j.RealTags {
				stats.TagCounts[tag]++
			}
		}
	}

	if stats.Judgments > 0 {
		stats.MeanConfidence = float64(confidenceSum) / float64(stats.Judgments)
	}
	for id, sum := range itemSums {
		stats.ItemConfidence[id] = float64(sum) / float64(itemCounts[id])
	}

	return stats, nil
}

// DecodePayload parses a stored payload as a session payload
func DecodePayload(raw string) (*models.SessionPayload, error) {
	var payload models.SessionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if payload.Judgments == nil {
		return nil, errors.New("payload has no judgments")
	}
	return &payload, nil
}

func toStored(record models.SubmissionRecord) (*models.StoredSubmission, error) {
	if record.Key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidRecord)
	}
	if len(record.Key) > maxKeyLength {
		return nil, fmt.Errorf("%w: key longer than %d characters", ErrInvalidRecord, maxKeyLength)
	}
	trimmed := bytes.TrimSpace(record.Payload)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: payload must be a JSON object", ErrInvalidRecord)
	}
	return &models.StoredSubmission{Key: string(record.Key), Payload: string(trimmed)}, nil
}
