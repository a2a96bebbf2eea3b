package session

import (
	"errors"
	"fmt"
	"sync"

	"authenticity-survey/internal/models"
	"authenticity-survey/internal/sampler"
)

// ErrResponsesFinalized is returned for mutations after submission has begun
var ErrResponsesFinalized = errors.New("responses are finalized")

// TagRef addresses one checkbox: the item's position in the sample, the item and the tag.
type TagRef struct {
	Index  int
	ItemID models.ItemID
	Family models.Family
	Tag    models.ReasonTag
}

type judgmentState struct {
	confidence int
	tags       map[models.Family]map[models.ReasonTag]bool
}

// ResponseSet holds exactly one judgment per sampled item
type ResponseSet struct {
	mu        sync.RWMutex
	sample    sampler.SampleSet
	vocab     *models.Vocabulary
	judgments map[models.ItemID]*judgmentState
	finalized bool
}

// NewResponseSet creates default judgments for every item in sample
func NewResponseSet(sample sampler.SampleSet, vocab *models.Vocabulary) (*ResponseSet, error) {
	if len(sample) == 0 {
		return nil, fmt.Errorf("%w: empty sample", models.ErrInvalidConfiguration)
	}
	if vocab == nil {
		return nil, fmt.Errorf("%w: missing reason vocabulary", models.ErrInvalidConfiguration)
	}

	judgments := make(map[models.ItemID]*judgmentState, len(sample))
	for _, id := range sample {
		if _, dup := judgments[id]; dup {
			return nil, fmt.Errorf("%w: item %d sampled twice", models.ErrInvalidConfiguration, id)
		}
		judgments[id] = &judgmentState{
			confidence: models.DefaultConfidence,
			tags: map[models.Family]map[models.ReasonTag]bool{
				models.FamilyAI:   {},
				models.FamilyReal: {},
			},
		}
	}

	return &ResponseSet{
		sample:    append(sampler.SampleSet(nil), sample...),
		vocab:     vocab,
		judgments: judgments,
	}, nil
}

// Len returns the number of judgments, always the sample size
func (r *ResponseSet) Len() int {
	return len(r.sample)
}

// ItemAt returns the item shown at position index
func (r *ResponseSet) ItemAt(index int) (models.ItemID, bool) {
	if index < 0 || index >= len(r.sample) {
		return 0, false
	}
	return r.sample[index], true
}

// Vocabulary returns the tag vocabulary judgments are validated against
func (r *ResponseSet) Vocabulary() *models.Vocabulary {
	return r.vocab
}

// SetConfidence records the slider position for id. Out-of-range values are rejected, never clamped.
func (r *ResponseSet) SetConfidence(id models.ItemID, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.mutable(id)
	if err != nil {
		return err
	}
	if value < models.MinConfidence || value > models.MaxConfidence {
		return &models.ValidationError{
			ItemID: id,
			Field:  "confidence",
			Reason: fmt.Sprintf("%d is outside [%d, %d]", value, models.MinConfidence, models.MaxConfidence),
		}
	}

	state.confidence = value
	return nil
}

// ToggleTag flips tag for id and returns whether it is now selected
func (r *ResponseSet) ToggleTag(id models.ItemID, family models.Family, tag models.ReasonTag) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.mutable(id)
	if err != nil {
		return false, err
	}
	if !r.vocab.Contains(family, tag) {
		reason := fmt.Sprintf("%q is not a %s tag", tag, family)
		if actual, ok := r.vocab.FamilyOf(tag); ok {
			reason = fmt.Sprintf("%q belongs to the %s family, not %s", tag, actual, family)
		}
		return false, &models.ValidationError{ItemID: id, Field: "tag", Reason: reason}
	}

	selected := !state.tags[family][tag]
	if selected {
		state.tags[family][tag] = true
	} else {
		delete(state.tags[family], tag)
	}
	return selected, nil
}

// Toggle applies a TagRef, checking that Index and ItemID agree
func (r *ResponseSet) Toggle(ref TagRef) (bool, error) {
	id, ok := r.ItemAt(ref.Index)
	if !ok || id != ref.ItemID {
		return false, &models.ValidationError{
			ItemID: ref.ItemID,
			Field:  "position",
			Reason: fmt.Sprintf("item is not shown at position %d", ref.Index),
		}
	}
	return r.ToggleTag(ref.ItemID, ref.Family, ref.Tag)
}

func (r *ResponseSet) mutable(id models.ItemID) (*judgmentState, error) {
	if r.finalized {
		return nil, ErrResponsesFinalized
	}
	state, ok := r.judgments[id]
	if !ok {
		return nil, &models.ValidationError{ItemID: id, Field: "item", Reason: "not part of this session's sample"}
	}
	return state, nil
}

// Judgment returns the current judgment for id
func (r *ResponseSet) Judgment(id models.ItemID) (models.Judgment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.judgments[id]
	if !ok {
		return models.Judgment{}, false
	}
	return r.materialize(id, state), true
}

// finalize makes the set read-only. It is idempotent.
func (r *ResponseSet) finalize() {
	r.mu.Lock()
	r.finalized = true
	r.mu.Unlock()
}

// Finalized reports whether mutations are still accepted
func (r *ResponseSet) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalized
}

// Snapshot captures the current judgments. The returned view never changes afterwards;
// its Judgments slice is built on first use.
func (r *ResponseSet) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	captured := make([]capturedJudgment, 0, len(r.sample))
	for _, id := range r.sample {
		state := r.judgments[id]
		c := capturedJudgment{id: id, confidence: state.confidence, selected: make(map[models.ReasonTag]bool)}
		for _, tags := range state.tags {
			for tag := range tags {
				c.selected[tag] = true
			}
		}
		captured = append(captured, c)
	}

	return &Snapshot{vocab: r.vocab, captured: captured}
}

func (r *ResponseSet) materialize(id models.ItemID, state *judgmentState) models.Judgment {
	selected := make(map[models.ReasonTag]bool)
	for _, tags := range state.tags {
		for tag := range tags {
			selected[tag] = true
		}
	}
	return capturedJudgment{id: id, confidence: state.confidence, selected: selected}.judgment(r.vocab)
}

type capturedJudgment struct {
	id         models.ItemID
	confidence int
	selected   map[models.ReasonTag]bool
}

// judgment lists tags in vocabulary order so payloads are deterministic
func (c capturedJudgment) judgment(vocab *models.Vocabulary) models.Judgment {
	j := models.Judgment{
		ItemID:     c.id,
		Confidence: c.confidence,
		AITags:     []models.ReasonTag{},
		RealTags:   []models.ReasonTag{},
	}
	for _, tag := range vocab.Tags(models.FamilyAI) {
		if c.selected[tag] {
			j.AITags = append(j.AITags, tag)
		}
	}
	for _, tag := range vocab.Tags(models.FamilyReal) {
		if c.selected[tag] {
			j.RealTags = append(j.RealTags, tag)
		}
	}
	return j
}

// Snapshot is an immutable view of a ResponseSet at one instant
type Snapshot struct {
	vocab    *models.Vocabulary
	captured []capturedJudgment
	once     sync.Once
	items    []models.Judgment
}

// Len returns the number of judgments in the view
func (s *Snapshot) Len() int {
	return len(s.captured)
}

// Judgments returns a copy of all judgments in presentation order
func (s *Snapshot) Judgments() []models.Judgment {
	s.once.Do(func() {
		s.items = make([]models.Judgment, 0, len(s.captured))
		for _, c := range s.captured {
			s.items = append(s.items, c.judgment(s.vocab))
		}
	})

	out := make([]models.Judgment, len(s.items))
	for i, j := range s.items {
		j.AITags = append([]models.ReasonTag{}, j.AITags...)
		j.RealTags = append([]models.ReasonTag{}, j.RealTags...)
		out[i] = j
	}
	return out
}
