package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"authenticity-survey/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryRepo struct {
	subs map[string]*models.StoredSubmission
	err  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{subs: make(map[string]*models.StoredSubmission)}
}

func (m *memoryRepo) Save(_ context.Context, sub *models.StoredSubmission) error {
	if m.err != nil {
		return m.err
	}
	cp := *sub
	m.subs[sub.Key] = &cp
	return nil
}

func (m *memoryRepo) ReplaceAll(_ context.Context, subs []*models.StoredSubmission) error {
	if m.err != nil {
		return m.err
	}
	m.subs = make(map[string]*models.StoredSubmission)
	for _, s := range subs {
		cp := *s
		m.subs[s.Key] = &cp
	}
	return nil
}

func (m *memoryRepo) GetAll(_ context.Context) ([]*models.StoredSubmission, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.StoredSubmission, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryRepo) GetByKey(_ context.Context, key string) (*models.StoredSubmission, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subs[key], nil
}

func (m *memoryRepo) Count(_ context.Context) (int, error) {
	return len(m.subs), m.err
}

func payload(t *testing.T, judgments ...models.Judgment) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(models.SessionPayload{UniverseSize: 200, Judgments: judgments})
	require.NoError(t, err)
	return raw
}

func TestSave_Validation(t *testing.T) {
	svc := NewSubmissions(newMemoryRepo(), zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name   string
		record models.SubmissionRecord
	}{
		{"missing key", models.SubmissionRecord{Payload: json.RawMessage(`{}`)}},
		{"missing payload", models.SubmissionRecord{Key: "K"}},
		{"payload not json", models.SubmissionRecord{Key: "K", Payload: json.RawMessage(`{oops`)}},
		{"payload null", models.SubmissionRecord{Key: "K", Payload: json.RawMessage(`null`)}},
		{"payload padded null", models.SubmissionRecord{Key: "K", Payload: json.RawMessage(" null\n")}},
		{"payload array", models.SubmissionRecord{Key: "K", Payload: json.RawMessage(`[1,2]`)}},
		{"payload string", models.SubmissionRecord{Key: "K", Payload: json.RawMessage(`"text"`)}},
		{"key too long", models.SubmissionRecord{Key: models.VerificationKey(string(make([]byte, 200))), Payload: json.RawMessage(`{}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Save(ctx, tt.record), ErrInvalidRecord)
		})
	}
}

func TestSaveAndLookup(t *testing.T) {
	svc := NewSubmissions(newMemoryRepo(), zap.NewNop())
	ctx := context.Background()

	rec := models.SubmissionRecord{Key: "ABCD-EFGH-JKLM", Payload: json.RawMessage(`{"judgments":[]}`)}
	require.NoError(t, svc.Save(ctx, rec))

	got, err := svc.GetByKey(ctx, "ABCD-EFGH-JKLM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))

	missing, err := svc.GetByKey(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReplaceAll_ValidatesEveryRecord(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewSubmissions(repo, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, models.SubmissionRecord{Key: "KEEP", Payload: json.RawMessage(`{}`)}))

	err := svc.ReplaceAll(ctx, []models.SubmissionRecord{
		{Key: "A", Payload: json.RawMessage(`{}`)},
		{Key: "", Payload: json.RawMessage(`{}`)},
	})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Contains(t, repo.subs, "KEEP", "rejected replace leaves the collection alone")

	require.NoError(t, svc.ReplaceAll(ctx, []models.SubmissionRecord{{Key: "A", Payload: json.RawMessage(`{}`)}}))
	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.VerificationKey("A"), all[0].Key)
}

func TestGetStats(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewSubmissions(repo, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, models.SubmissionRecord{Key: "S1", Payload: payload(t,
		models.Judgment{ItemID: 1, Confidence: 80, AITags: []models.ReasonTag{"Anatomy issues"}},
		models.Judgment{ItemID: 2, Confidence: 20, RealTags: []models.ReasonTag{"Natural lighting"}},
	)}))
	require.NoError(t, svc.Save(ctx, models.SubmissionRecord{Key: "S2", Payload: payload(t,
		models.Judgment{ItemID: 1, Confidence: 60, AITags: []models.ReasonTag{"Anatomy issues", "Surreal details"}},
	)}))
	require.NoError(t, svc.Save(ctx, models.SubmissionRecord{Key: "LEGACY", Payload: json.RawMessage(`{"html":"<div>html</div>"}`)}))

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Judgments)
	assert.Equal(t, 1, stats.UnreadablePayload)
	assert.InDelta(t, 160.0/3.0, stats.MeanConfidence, 0.001)
	assert.Equal(t, 2, stats.TagCounts["Anatomy issues"])
	assert.Equal(t, 1, stats.TagCounts["Surreal details"])
	assert.Equal(t, 1, stats.TagCounts["Natural lighting"])
	assert.InDelta(t, 70.0, stats.ItemConfidence[1], 0.001)
	assert.InDelta(t, 20.0, stats.ItemConfidence[2], 0.001)
}

func TestRepositoryErrorsPropagate(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("disk full")
	svc := NewSubmissions(repo, zap.NewNop())

	err := svc.Save(context.Background(), models.SubmissionRecord{Key: "K", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, repo.err)
	assert.NotErrorIs(t, err, ErrInvalidRecord)

	_, err = svc.GetStats(context.Background())
	assert.Error(t, err)
}
