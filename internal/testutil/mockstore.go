// Package testutil provides an in-memory submission store for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"authenticity-survey/internal/models"
)

// MockStore is an httptest server speaking the store's HTTP contract
type MockStore struct {
	*httptest.Server

	mu         sync.Mutex
	records    []models.SubmissionRecord
	saveCalls  int
	failStatus int

	holdReads int
	reads     int
	release   chan struct{}
}

// NewMockStore starts a mock store that is closed when the test ends
func NewMockStore(t testing.TB) *MockStore {
	t.Helper()

	m := &MockStore{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /data", m.handleList)
	mux.HandleFunc("GET /data/{key}", m.handleGet)
	mux.HandleFunc("POST /save", m.handleSave)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

// HoldReads makes the next n collection reads wait for each other, so every
// one of them is served the same (stale) collection.
func (m *MockStore) HoldReads(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdReads = n
	m.reads = 0
	m.release = make(chan struct{})
}

// FailSaves makes every POST /save answer with status
func (m *MockStore) FailSaves(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
}

// Records returns a copy of the stored collection
func (m *MockStore) Records() []models.SubmissionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SubmissionRecord(nil), m.records...)
}

// SaveCalls returns how many POST /save requests arrived
func (m *MockStore) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

func (m *MockStore) handleList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	snapshot := append([]models.SubmissionRecord{}, m.records...)
	release := m.release
	held := false
	if m.holdReads > 0 {
		held = true
		m.reads++
		if m.reads == m.holdReads {
			m.holdReads = 0
			close(release)
		}
	}
	m.mu.Unlock()

	if held {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		case <-time.After(5 * time.Second):
		}
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (m *MockStore) handleGet(w http.ResponseWriter, r *http.Request) {
	key := models.VerificationKey(r.PathValue("key"))

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.Key == key {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
}

func (m *MockStore) handleSave(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer
	if _, err := body.ReadFrom(r.Body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++

	if m.failStatus != 0 {
		writeJSON(w, m.failStatus, map[string]string{"error": "save rejected"})
		return
	}

	raw := bytes.TrimSpace(body.Bytes())
	if len(raw) > 0 && raw[0] == '[' {
		var all []models.SubmissionRecord
		if err := json.Unmarshal(raw, &all); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		m.records = all
		writeJSON(w, http.StatusOK, models.Ack{Status: "replaced", Total: len(all)})
		return
	}

	var rec models.SubmissionRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record"})
		return
	}
	for i := range m.records {
		if m.records[i].Key == rec.Key {
			m.records[i] = rec
			writeJSON(w, http.StatusOK, models.Ack{Status: "saved", Key: rec.Key})
			return
		}
	}
	m.records = append(m.records, rec)
	writeJSON(w, http.StatusOK, models.Ack{Status: "saved", Key: rec.Key})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
