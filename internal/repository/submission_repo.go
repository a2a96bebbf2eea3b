package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"authenticity-survey/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SubmissionRepository persists submitted sessions by verification key
type SubmissionRepository interface {
	Save(ctx context.Context, sub *models.StoredSubmission) error
	ReplaceAll(ctx context.Context, subs []*models.StoredSubmission) error
	GetAll(ctx context.Context) ([]*models.StoredSubmission, error)
	GetByKey(ctx context.Context, key string) (*models.StoredSubmission, error)
	Count(ctx context.Context) (int, error)
}

type submissionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSubmissionRepository creates a new repository over an already migrated database
func NewSubmissionRepository(db *sqlx.DB, logger *zap.Logger) SubmissionRepository {
	return &submissionRepository{db: db, logger: logger, now: time.Now}
}

const upsertSubmission = `
	INSERT INTO submissions (verification_key, payload, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (verification_key) DO UPDATE
	SET payload = excluded.payload, updated_at = excluded.updated_at
`

// Save inserts sub, or overwrites the payload stored under the same key
func (r *submissionRepository) Save(ctx context.Context, sub *models.StoredSubmission) error {
	now := r.now().UTC()
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(upsertSubmission), sub.Key, sub.Payload, now, now); err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	sub.UpdatedAt = now
	return nil
}

// ReplaceAll makes subs the entire collection in one transaction.
// Keys that survive keep their original created_at.
func (r *submissionRepository) ReplaceAll(ctx context.Context, subs []*models.StoredSubmission) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("Failed to roll back replace", zap.Error(rbErr))
			}
		}
	}()

	if len(subs) == 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM submissions`); err != nil {
			return fmt.Errorf("failed to clear submissions: %w", err)
		}
	} else {
		keys := make([]string, 0, len(subs))
		for _, s := range subs {
			keys = append(keys, s.Key)
		}
		query, args, inErr := sqlx.In(`DELETE FROM submissions WHERE verification_key NOT IN (?)`, keys)
		if inErr != nil {
			return fmt.Errorf("failed to build delete query: %w", inErr)
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to prune submissions: %w", err)
		}
	}

	now := r.now().UTC()
	upsert := tx.Rebind(upsertSubmission)
	for _, s := range subs {
		if _, err = tx.ExecContext(ctx, upsert, s.Key, s.Payload, now, now); err != nil {
			return fmt.Errorf("failed to save submission %s: %w", s.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}
	return nil
}

// GetAll returns every submission, oldest first
func (r *submissionRepository) GetAll(ctx context.Context) ([]*models.StoredSubmission, error) {
	query := `
		SELECT verification_key, payload, created_at, updated_at
		FROM submissions
		ORDER BY created_at, verification_key
	`

	var subs []*models.StoredSubmission
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	return subs, nil
}

// GetByKey returns the submission stored under key, or nil if there is none
func (r *submissionRepository) GetByKey(ctx context.Context, key string) (*models.StoredSubmission, error) {
	query := r.db.Rebind(`
		SELECT verification_key, payload, created_at, updated_at
		FROM submissions
		WHERE verification_key = ?
	`)

	var sub models.StoredSubmission
	err := r.db.GetContext(ctx, &sub, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Submission not found
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

// Count returns the number of stored submissions
func (r *submissionRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM submissions`); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return total, nil
}
