package repository

import (
	"errors"
	"fmt"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// Create persists the whole course tree in one transaction. GORM cascades
// the nested modules, topics and quiz items.
func (r *CourseRepository) Create(course *model.Course) error {
	if err := r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(course).Error
	}); err != nil {
		return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}
	return nil
}

// FindByID loads a course with its full ordered tree.
func (r *CourseRepository) FindByID(id string) (*model.Course, error) {
	ordered := func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

	var course model.Course
	err := r.DB.
		Preload("Modules", ordered).
		Preload("Modules.Topics", ordered).
		Preload("Modules.Topics.Quiz", ordered).
		Preload("Modules.Quiz", ordered).
		Preload("Quiz", ordered).
		First(&course, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}
	return &course, nil
}

// List returns a page of course headers, newest first. When ownerID is set
// only that owner's courses are returned; guests see the ownerless ones,
// mirroring per-course visibility.
func (r *CourseRepository) List(ownerID *uint, page, limit int) ([]model.Course, int64, error) {
	query := r.DB.Model(&model.Course{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	} else {
		query = query.Where("owner_id IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}

	var courses []model.Course
	err := query.
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Modules.Topics", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "module_id", "title", "position").Order("position ASC")
		}).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&courses).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
	}
	return courses, total, nil
}

// Delete removes a course and its dependents.
func (r *CourseRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var course model.Course
		err := tx.First(&course, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}

		// Cascade manually: module/topic-level quiz rows reference their
		// direct owner, not the course.
		var moduleIDs []string
		if err := tx.Model(&model.CourseModule{}).Where("course_id = ?", id).Pluck("id", &moduleIDs).Error; err != nil {
			return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}
		if len(moduleIDs) > 0 {
			var topicIDs []string
			if err := tx.Model(&model.Topic{}).Where("module_id IN ?", moduleIDs).Pluck("id", &topicIDs).Error; err != nil {
				return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
			}
			if len(topicIDs) > 0 {
				if err := tx.Where("topic_id IN ?", topicIDs).Delete(&model.QuizItem{}).Error; err != nil {
					return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
				}
			}
			if err := tx.Where("module_id IN ?", moduleIDs).Delete(&model.Topic{}).Error; err != nil {
				return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
			}
			if err := tx.Where("module_id IN ?", moduleIDs).Delete(&model.QuizItem{}).Error; err != nil {
				return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
			}
			if err := tx.Where("course_id = ?", id).Delete(&model.CourseModule{}).Error; err != nil {
				return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
			}
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.QuizItem{}).Error; err != nil {
			return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseProgress{}).Error; err != nil {
			return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}
		if err := tx.Delete(&course).Error; err != nil {
			return fmt.Errorf("%w: %v", util.ErrStorageFailed, err)
		}
		return nil
	})
}
