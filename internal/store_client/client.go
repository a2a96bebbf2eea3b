package store_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"authenticity-survey/internal/models"

	"go.uber.org/zap"
)

// WritePattern selects how a submission reaches the store
type WritePattern string

const (
	// PatternAppend posts only the new record; the store upserts it by key.
	PatternAppend WritePattern = "append"
	// PatternReplace reads the whole collection, appends locally and writes it all back.
	//
	// Deprecated: two concurrent submitters can read the same collection and the
	// later write silently drops the earlier record. Use PatternAppend.
	PatternReplace WritePattern = "replace"
)

const defaultTimeout = 30 * time.Second

// Client talks to the submission store over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	pattern    WritePattern
	logger     *zap.Logger
}

// Config for the store client
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	WritePattern WritePattern // Default: append
}

// NewClient creates a new store client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: store URL is required", models.ErrInvalidConfiguration)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	switch cfg.WritePattern {
	case "":
		cfg.WritePattern = PatternAppend
	case PatternAppend:
	case PatternReplace:
		logger.Warn("Store client uses the read-modify-write pattern; concurrent submissions can be lost")
	default:
		return nil, fmt.Errorf("%w: unknown write pattern %q", models.ErrInvalidConfiguration, cfg.WritePattern)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		pattern:    cfg.WritePattern,
		logger:     logger,
	}, nil
}

// Pattern returns the configured write pattern
func (c *Client) Pattern() WritePattern {
	return c.pattern
}

// Submit performs one logical write of record. It never retries; callers that
// retry must resend the same key.
func (c *Client) Submit(ctx context.Context, record models.SubmissionRecord) (*models.Ack, error) {
	if c.pattern == PatternReplace {
		return c.submitReplace(ctx, record)
	}
	return c.submitAppend(ctx, record)
}

func (c *Client) submitAppend(ctx context.Context, record models.SubmissionRecord) (*models.Ack, error) {
	body, err := c.do(ctx, "submit", http.MethodPost, "/save", record)
	if err != nil {
		return nil, err
	}

	ack := c.decodeAck(body, record.Key)
	c.logger.Debug("Record submitted",
		zap.String("key", string(record.Key)),
		zap.String("status", ack.Status))
	return ack, nil
}

func (c *Client) submitReplace(ctx context.Context, record models.SubmissionRecord) (*models.Ack, error) {
	existing, err := c.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	replaced := false
	for i := range existing {
		if existing[i].Key == record.Key {
			existing[i] = record
			replaced = true
		}
	}
	if !replaced {
		existing = append(existing, record)
	}

	body, err := c.do(ctx, "submit", http.MethodPost, "/save", existing)
	if err != nil {
		return nil, err
	}

	ack := c.decodeAck(body, record.Key)
	c.logger.Debug("Collection replaced",
		zap.String("key", string(record.Key)),
		zap.Int("records", len(existing)))
	return ack, nil
}

// FetchAll returns every stored record
func (c *Client) FetchAll(ctx context.Context) ([]models.SubmissionRecord, error) {
	body, err := c.do(ctx, "fetch all", http.MethodGet, "/data", nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var records []models.SubmissionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &SubmissionError{Kind: KindEncoding, Op: "fetch all", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return records, nil
}

// Fetch returns the record stored under key, or ErrRecordNotFound
func (c *Client) Fetch(ctx context.Context, key models.VerificationKey) (*models.SubmissionRecord, error) {
	body, err := c.do(ctx, "fetch", http.MethodGet, "/data/"+url.PathEscape(string(key)), nil)
	if err != nil {
		var se *SubmissionError
		if errors.As(err, &se) && se.Kind == KindStatus && se.StatusCode == http.StatusNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrRecordNotFound
	}

	var record models.SubmissionRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, &SubmissionError{Kind: KindEncoding, Op: "fetch", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &record, nil
}

// Ping checks if the store is available
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "health check", http.MethodGet, "/health", nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, &SubmissionError{Kind: KindEncoding, Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &SubmissionError{Kind: KindNetwork, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Store request failed", zap.String("op", op), zap.Error(err))
		return nil, &SubmissionError{Kind: KindNetwork, Op: op, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SubmissionError{Kind: KindNetwork, Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Error("Store returned error status",
				zap.String("op", op),
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(body)))
		}
		return nil, &SubmissionError{Kind: KindStatus, Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

// decodeAck reads the store's acknowledgment; stores are allowed to answer with an empty body
func (c *Client) decodeAck(body []byte, key models.VerificationKey) *models.Ack {
	ack := &models.Ack{Status: "saved", Key: key}
	if len(bytes.TrimSpace(body)) == 0 {
		return ack
	}
	if err := json.Unmarshal(body, ack); err != nil {
		c.logger.Debug("Ignoring unreadable acknowledgment", zap.Error(err))
		return &models.Ack{Status: "saved", Key: key}
	}
	if ack.Key == "" {
		ack.Key = key
	}
	return ack
}
