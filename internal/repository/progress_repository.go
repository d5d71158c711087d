package repository

import (
	"errors"
	"fmt"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/util"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// GetOrCreate returns the progress row for user+course, creating an empty
// one on first access.
func (r *ProgressRepository) GetOrCreate(courseID string, userID uint) (*model.CourseProgress, error) {
	var progress model.CourseProgress
	err := r.DB.Where("course_id = ? AND user_id = ?", courseID, userID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = model.CourseProgress{
			CourseID: courseID,
			UserID:   userID,
		}
		if err := r.DB.Create(&progress).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}
		return &progress, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}
	return &progress, nil
}

func (r *ProgressRepository) Save(progress *model.CourseProgress) error {
	if err := r.DB.Save(progress).Error; err != nil {
		return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}
	return nil
}
