// Package session ties a drawn sample, the rater's responses and the
// verification key together for one rating run.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"authenticity-survey/internal/keys"
	"authenticity-survey/internal/models"
	"authenticity-survey/internal/sampler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSubmissionInFlight = errors.New("a submission for this session is already in flight")
	ErrAlreadySubmitted   = errors.New("session already submitted")
)

// Submitter performs one logical write of a record to the store
type Submitter interface {
	Submit(ctx context.Context, record models.SubmissionRecord) (*models.Ack, error)
}

// State of a session's submission lifecycle
type State string

const (
	StateRating     State = "rating"
	StateSubmitting State = "submitting"
	StateFailed     State = "failed"
	StateSubmitted  State = "submitted"
)

// Config for starting a session
type Config struct {
	UniverseSize int
	SampleSize   int
	Vocabulary   *models.Vocabulary
}

// Session is one rater's pass over a sample
type Session struct {
	id        string
	universe  int
	sample    sampler.SampleSet
	responses *ResponseSet
	issuer    keys.Issuer
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	key      models.VerificationKey
	state    State
	snapshot *Snapshot
	payload  []byte
}

// New draws a sample and prepares default judgments. Sampling errors are fatal for the session.
func New(cfg Config, s *sampler.Sampler, issuer keys.Issuer, logger *zap.Logger) (*Session, error) {
	if issuer == nil {
		return nil, fmt.Errorf("%w: missing key issuer", models.ErrInvalidConfiguration)
	}
	vocab := cfg.Vocabulary
	if vocab == nil {
		vocab = models.DefaultVocabulary()
	}

	sample, err := s.Draw(cfg.UniverseSize, cfg.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to draw sample: %w", err)
	}

	responses, err := NewResponseSet(sample, vocab)
	if err != nil {
		return nil, fmt.Errorf("failed to create responses: %w", err)
	}

	id := uuid.New().String()
	logger = logger.With(zap.String("session_id", id))

	logger.Debug("Session started",
		zap.Int("universe_size", cfg.UniverseSize),
		zap.Int("sample_size", len(sample)))

	return &Session{
		id:        id,
		universe:  cfg.UniverseSize,
		sample:    sample,
		responses: responses,
		issuer:    issuer,
		logger:    logger,
		now:       time.Now,
		state:     StateRating,
	}, nil
}

// ID identifies the session in logs. It is not the verification key.
func (s *Session) ID() string {
	return s.id
}

// Sample returns the items in presentation order
func (s *Session) Sample() sampler.SampleSet {
	return append(sampler.SampleSet(nil), s.sample...)
}

// Responses returns the mutable response set
func (s *Session) Responses() *ResponseSet {
	return s.responses
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Key returns the session's verification key, issuing it on first use
func (s *Session) Key() (models.VerificationKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyLocked()
}

func (s *Session) keyLocked() (models.VerificationKey, error) {
	if s.key != "" {
		return s.key, nil
	}
	key, err := s.issuer.Issue()
	if err != nil {
		return "", err
	}
	s.key = key
	return key, nil
}

// Submit freezes the responses and hands one record to submitter.
// Only one Submit may run at a time. A failed Submit can be repeated
// and reuses the same key and the same frozen judgments.
func (s *Session) Submit(ctx context.Context, submitter Submitter) (*models.Ack, error) {
	record, err := s.begin()
	if err != nil {
		return nil, err
	}

	ack, err := submitter.Submit(ctx, record)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.logger.Warn("Submission failed", zap.String("key", string(record.Key)), zap.Error(err))
		return nil, err
	}

	s.state = StateSubmitted
	s.logger.Info("Session submitted",
		zap.String("key", string(record.Key)),
		zap.Int("judgments", s.snapshot.Len()))
	return ack, nil
}

func (s *Session) begin() (models.SubmissionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitting:
		return models.SubmissionRecord{}, ErrSubmissionInFlight
	case StateSubmitted:
		return models.SubmissionRecord{}, ErrAlreadySubmitted
	}

	key, err := s.keyLocked()
	if err != nil {
		return models.SubmissionRecord{}, err
	}

	if s.snapshot == nil {
		s.responses.finalize()
		snapshot := s.responses.Snapshot()

		payload, err := json.Marshal(models.SessionPayload{
			UniverseSize: s.universe,
			Sample:       append([]models.ItemID(nil), s.sample...),
			Judgments:    snapshot.Judgments(),
			SubmittedAt:  s.now().UTC(),
		})
		if err != nil {
			return models.SubmissionRecord{}, fmt.Errorf("failed to encode responses: %w", err)
		}
		s.snapshot = snapshot
		s.payload = payload
	}

	s.state = StateSubmitting
	return models.SubmissionRecord{Key: key, Payload: append(json.RawMessage(nil), s.payload...)}, nil
}
