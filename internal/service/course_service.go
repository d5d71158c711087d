package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/repository"
	"github.com/courseforge/backend/internal/util"
	"github.com/courseforge/backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const courseCacheTTL = 10 * time.Minute

type CourseService struct {
	courses *repository.CourseRepository
	cache   *redis.Client
}

func NewCourseService(courses *repository.CourseRepository, cache *redis.Client) *CourseService {
	return &CourseService{courses: courses, cache: cache}
}

// Get loads the full course tree, consulting the cache first. Access is
// checked after load so a cache hit cannot leak another owner's course.
func (s *CourseService) Get(ctx context.Context, id string, userID *uint) (*model.Course, error) {
	if course := s.cached(ctx, id); course != nil {
		if !course.VisibleTo(userID) {
			return nil, util.ErrAccessDenied
		}
		return course, nil
	}

	course, err := s.courses.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !course.VisibleTo(userID) {
		return nil, util.ErrAccessDenied
	}

	s.store(ctx, course)
	return course, nil
}

// List returns course headers owned by the user (or guest courses for nil).
func (s *CourseService) List(userID *uint, page, limit int) ([]model.Course, int64, error) {
	return s.courses.List(userID, page, limit)
}

// Delete removes a course and everything hanging off it. Owner only; guest
// courses can be deleted by anyone who knows the id, matching their
// visibility.
func (s *CourseService) Delete(ctx context.Context, id string, userID *uint) error {
	course, err := s.courses.FindByID(id)
	if err != nil {
		return err
	}
	if course.OwnerID != nil && (userID == nil || *course.OwnerID != *userID) {
		return util.ErrAccessDenied
	}

	if err := s.courses.Delete(id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CourseService) cached(ctx context.Context, id string) *model.Course {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		return nil
	}
	var course model.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return nil
	}
	return &course
}

func (s *CourseService) store(ctx context.Context, course *model.Course) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(course)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(course.ID), data, courseCacheTTL).Err(); err != nil {
		logger.Log.Warn("failed to cache course", zap.String("course_id", course.ID), zap.Error(err))
	}
}

func (s *CourseService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(id)).Err(); err != nil {
		logger.Log.Warn("failed to evict course cache", zap.String("course_id", id), zap.Error(err))
	}
}

func cacheKey(id string) string {
	return "course:" + id
}

// ExportSummary renders the course outline as markdown.
func (s *CourseService) ExportSummary(ctx context.Context, id string, userID *uint) ([]byte, error) {
	course, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", course.Title)
	if course.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", course.Description)
	}
	for _, mod := range course.Modules {
		fmt.Fprintf(&buf, "## %s\n\n", mod.Title)
		if mod.Description != "" {
			fmt.Fprintf(&buf, "%s\n\n", mod.Description)
		}
		for _, topic := range mod.Topics {
			fmt.Fprintf(&buf, "- **%s**", topic.Title)
			if topic.Summary != "" {
				fmt.Fprintf(&buf, ": %s", topic.Summary)
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}
	if course.Summary != "" {
		fmt.Fprintf(&buf, "## Summary\n\n%s\n", course.Summary)
	}
	return buf.Bytes(), nil
}

// ExportQuizJSON flattens every quiz item in the course, in course, module,
// topic order.
func (s *CourseService) ExportQuizJSON(ctx context.Context, id string, userID *uint) ([]byte, error) {
	course, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(collectQuiz(course), "", "  ")
}

func (s *CourseService) ExportQuizCSV(ctx context.Context, id string, userID *uint) ([]byte, error) {
	course, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"scope", "question", "type", "options", "correct_index", "difficulty", "explanation"}); err != nil {
		return nil, err
	}
	for _, q := range collectQuiz(course) {
		options, _ := json.Marshal([]string(q.Item.Options))
		record := []string{
			q.Scope,
			q.Item.QuestionText,
			string(q.Item.Kind),
			string(options),
			strconv.Itoa(q.Item.CorrectOptionIndex),
			string(q.Item.Difficulty),
			q.Item.Explanation,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type exportedQuizItem struct {
	Scope string         `json:"scope"`
	Item  model.QuizItem `json:"item"`
}

func collectQuiz(course *model.Course) []exportedQuizItem {
	var out []exportedQuizItem
	for _, q := range course.Quiz {
		out = append(out, exportedQuizItem{Scope: "course", Item: q})
	}
	for _, mod := range course.Modules {
		for _, q := range mod.Quiz {
			out = append(out, exportedQuizItem{Scope: "module: " + mod.Title, Item: q})
		}
		for _, topic := range mod.Topics {
			for _, q := range topic.Quiz {
				out = append(out, exportedQuizItem{Scope: "topic: " + topic.Title, Item: q})
			}
		}
	}
	return out
}
