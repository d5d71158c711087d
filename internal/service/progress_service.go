package service

import (
	"context"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/repository"

	"gorm.io/datatypes"
)

type ProgressService struct {
	progress *repository.ProgressRepository
	courses  *CourseService
}

func NewProgressService(progress *repository.ProgressRepository, courses *CourseService) *ProgressService {
	return &ProgressService{progress: progress, courses: courses}
}

// Get returns the user's progress record for a course, creating an empty
// one on first access. The course load also enforces ownership.
func (s *ProgressService) Get(ctx context.Context, courseID string, userID uint) (*model.CourseProgress, error) {
	uid := userID
	if _, err := s.courses.Get(ctx, courseID, &uid); err != nil {
		return nil, err
	}
	return s.progress.GetOrCreate(courseID, userID)
}

// CompleteTopic marks a topic done and recomputes overall progress as the
// completed share of the course's topics.
func (s *ProgressService) CompleteTopic(ctx context.Context, courseID string, userID uint, topicID string) (*model.CourseProgress, error) {
	uid := userID
	course, err := s.courses.Get(ctx, courseID, &uid)
	if err != nil {
		return nil, err
	}

	record, err := s.progress.GetOrCreate(courseID, userID)
	if err != nil {
		return nil, err
	}

	for _, done := range record.CompletedTopics {
		if done == topicID {
			return record, nil
		}
	}
	record.CompletedTopics = append(record.CompletedTopics, topicID)

	if total := course.TopicCount(); total > 0 {
		record.OverallProgress = float64(len(record.CompletedTopics)) / float64(total) * 100
	}

	if err := s.progress.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// RecordQuizScore stores the latest score for a quiz scope (topic, module
// or course id).
func (s *ProgressService) RecordQuizScore(ctx context.Context, courseID string, userID uint, scopeID string, score float64) (*model.CourseProgress, error) {
	uid := userID
	if _, err := s.courses.Get(ctx, courseID, &uid); err != nil {
		return nil, err
	}

	record, err := s.progress.GetOrCreate(courseID, userID)
	if err != nil {
		return nil, err
	}

	scores := record.QuizScores.Data()
	if scores == nil {
		scores = make(map[string]float64)
	}
	scores[scopeID] = score
	record.QuizScores = datatypes.NewJSONType(scores)

	if err := s.progress.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}
