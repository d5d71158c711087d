package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/util"

	"gorm.io/gorm"
)

// GenerationRepository is the job tracker: the single source of truth for
// generation progress. Only the generation service calls the mutating
// methods; the polling endpoints use Get/GetByCourse.
type GenerationRepository struct {
	DB *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{DB: db}
}

// Create inserts a fresh job in the pending state with zero progress.
func (r *GenerationRepository) Create(ownerID *uint, kind model.SourceKind) (*model.GenerationJob, error) {
	job := &model.GenerationJob{
		OwnerID:    ownerID,
		Status:     model.GenerationPending,
		Progress:   0,
		Stage:      "Initializing",
		SourceKind: kind,
	}
	if err := r.DB.Create(job).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}
	return job, nil
}

// Advance moves a non-terminal job forward. The caller is responsible for
// keeping progress non-decreasing; the tracker records what it is given.
// Passing an empty status leaves the current status in place.
func (r *GenerationRepository) Advance(jobID string, progress int, stage string, status model.GenerationStatus) error {
	updates := map[string]interface{}{
		"progress": progress,
		"stage":    stage,
	}
	if status != "" {
		updates["status"] = status
	}

	res := r.DB.Model(&model.GenerationJob{}).Where("id = ?", jobID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", util.ErrStorageFailed, res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows for an update writing identical
		// values, so distinguish a no-op re-advance from a missing job.
		var count int64
		if err := r.DB.Model(&model.GenerationJob{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}
		if count == 0 {
			return util.ErrNotFound
		}
	}
	return nil
}

// Fail marks a job terminally failed. Progress is reset to zero: no partial
// value is meaningful to a client once the job has failed.
func (r *GenerationRepository) Fail(jobID string, message string) error {
	return r.terminate(jobID, map[string]interface{}{
		"status":   model.GenerationFailed,
		"progress": 0,
		"error":    message,
	})
}

// Complete marks a job terminally completed, records the produced course and
// sets completed_at exactly once.
func (r *GenerationRepository) Complete(jobID string, courseID string) error {
	now := time.Now()
	return r.terminate(jobID, map[string]interface{}{
		"status":       model.GenerationCompleted,
		"progress":     model.ProgressDone,
		"stage":        model.StageDone,
		"course_id":    courseID,
		"completed_at": &now,
	})
}

// terminate applies a terminal transition, guarding against a second
// complete/fail on the same job.
func (r *GenerationRepository) terminate(jobID string, updates map[string]interface{}) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var job model.GenerationJob
		err := tx.First(&job, "id = ?", jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}
		if job.Status.Terminal() {
			return util.ErrAlreadyTerminal
		}
		if err := tx.Model(&job).Updates(updates).Error; err != nil {
			return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}
		return nil
	})
}

func (r *GenerationRepository) Get(jobID string) (*model.GenerationJob, error) {
	var job model.GenerationJob
	err := r.DB.First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}
	return &job, nil
}

// GetByCourse returns the most recent job for a course.
func (r *GenerationRepository) GetByCourse(courseID string) (*model.GenerationJob, error) {
	var job model.GenerationJob
	err := r.DB.Where("course_id = ?", courseID).Order("created_at DESC").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}
	return &job, nil
}

// DeleteExpired removes jobs older than ttl regardless of status, matching
// the record-expiry contract: the tracker bounds its own storage growth and a
// client that waited longer than the TTL resubmits.
func (r *GenerationRepository) DeleteExpired(ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	res := r.DB.Where("created_at < ?", cutoff).Delete(&model.GenerationJob{})
	return res.RowsAffected, res.Error
}
