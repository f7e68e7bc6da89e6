package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/alcyonehq/alcyone/internal/db/models"
)

// SubmissionRepository provides access to submission history rows
type SubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new submission repository instance
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create writes a new submission row. Job identifiers are unique, so a
// second write for the same job is a duplicate key error.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	if sub.JobID == "" {
		return fmt.Errorf("submission requires a job id")
	}
	return r.db.WithContext(ctx).Create(sub).Error
}

// GetByJobID retrieves a submission row by its courier-side job identifier
func (r *SubmissionRepository) GetByJobID(ctx context.Context, jobID string) (*models.Submission, error) {
	var sub models.Submission
	err := r.db.WithContext(ctx).
		Where(&models.Submission{JobID: jobID}).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("submission not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

// List returns submission rows, newest first
// if state is empty, rows are returned regardless of their state
func (r *SubmissionRepository) List(ctx context.Context, state string, opts *models.ListOptions) ([]models.Submission, error) {
	opts.Normalize()
	var subs []models.Submission
	qry := &models.Submission{}
	if state != "" {
		qry.State = state
	}

	db := r.db.WithContext(ctx)
	if !opts.IncludeDeleted {
		db = db.Unscoped().Where("deleted_at IS NULL")
	}

	err := db.Model(&models.Submission{}).
		Where(qry).
		Limit(opts.Limit).Offset(opts.Offset).
		Order(models.SubmissionCreatedAtField + " DESC").
		Find(&subs).Error
	return subs, err
}

// Count returns the number of submission rows
// if state is empty, rows are counted regardless of their state
func (r *SubmissionRepository) Count(ctx context.Context, state string) (int64, error) {
	var count int64
	qry := &models.Submission{}
	if state != "" {
		qry.State = state
	}
	err := r.db.WithContext(ctx).Model(&models.Submission{}).Where(qry).Count(&count).Error
	return count, err
}
