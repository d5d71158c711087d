package service

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/repository"
	"github.com/courseforge/backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newCourseService(t *testing.T) (*CourseService, *repository.CourseRepository) {
	t.Helper()
	repo := repository.NewCourseRepository(newTestDB(t))
	return NewCourseService(repo, nil), repo
}

func seedCourse(t *testing.T, repo *repository.CourseRepository, owner *uint) *model.Course {
	t.Helper()
	course := &model.Course{
		Title:       "Operating Systems",
		Description: "Processes, memory, filesystems",
		Summary:     "An OS course",
		OwnerID:     owner,
		Modules: []model.CourseModule{{
			Title:    "Processes",
			Position: 0,
			Topics: []model.Topic{{
				Title:        "Scheduling",
				BeginnerText: "The scheduler picks which process runs.",
				Summary:      "Schedulers share the CPU.",
				Position:     0,
				Quiz: []model.QuizItem{{
					QuestionText:       "What does the scheduler do?",
					Kind:               model.QuizMultipleChoice,
					Options:            datatypes.NewJSONSlice([]string{"Picks processes", "Formats disks"}),
					CorrectOptionIndex: 0,
					Difficulty:         model.LevelBeginner,
				}},
			}},
		}},
		Quiz: []model.QuizItem{{
			QuestionText:       "An OS manages hardware.",
			Kind:               model.QuizTrueFalse,
			Options:            datatypes.NewJSONSlice([]string{"True", "False"}),
			CorrectOptionIndex: 0,
		}},
	}
	require.NoError(t, repo.Create(course))
	return course
}

func TestCourseAccessControl(t *testing.T) {
	svc, repo := newCourseService(t)

	owner := uint(1)
	stranger := uint(2)
	owned := seedCourse(t, repo, &owner)
	guest := seedCourse(t, repo, nil)

	_, err := svc.Get(t.Context(), owned.ID, &owner)
	assert.NoError(t, err)
	_, err = svc.Get(t.Context(), owned.ID, &stranger)
	assert.ErrorIs(t, err, util.ErrAccessDenied)
	_, err = svc.Get(t.Context(), owned.ID, nil)
	assert.ErrorIs(t, err, util.ErrAccessDenied)

	// guest courses are readable by anyone
	_, err = svc.Get(t.Context(), guest.ID, nil)
	assert.NoError(t, err)
	_, err = svc.Get(t.Context(), guest.ID, &stranger)
	assert.NoError(t, err)
}

func TestCourseDeleteOwnerOnly(t *testing.T) {
	svc, repo := newCourseService(t)

	owner := uint(1)
	stranger := uint(2)
	course := seedCourse(t, repo, &owner)

	assert.ErrorIs(t, svc.Delete(t.Context(), course.ID, &stranger), util.ErrAccessDenied)
	assert.ErrorIs(t, svc.Delete(t.Context(), course.ID, nil), util.ErrAccessDenied)
	assert.NoError(t, svc.Delete(t.Context(), course.ID, &owner))

	_, err := svc.Get(t.Context(), course.ID, &owner)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestExportSummaryMarkdown(t *testing.T) {
	svc, repo := newCourseService(t)
	course := seedCourse(t, repo, nil)

	data, err := svc.ExportSummary(t.Context(), course.ID, nil)
	require.NoError(t, err)

	md := string(data)
	assert.Contains(t, md, "# Operating Systems")
	assert.Contains(t, md, "## Processes")
	assert.Contains(t, md, "**Scheduling**")
	assert.Contains(t, md, "Schedulers share the CPU.")
}

func TestExportQuizJSON(t *testing.T) {
	svc, repo := newCourseService(t)
	course := seedCourse(t, repo, nil)

	data, err := svc.ExportQuizJSON(t.Context(), course.ID, nil)
	require.NoError(t, err)

	var items []exportedQuizItem
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "course", items[0].Scope)
	assert.Equal(t, "topic: Scheduling", items[1].Scope)
}

func TestExportQuizCSV(t *testing.T) {
	svc, repo := newCourseService(t)
	course := seedCourse(t, repo, nil)

	data, err := svc.ExportQuizCSV(t.Context(), course.ID, nil)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header plus two questions
	assert.Equal(t, []string{"scope", "question", "type", "options", "correct_index", "difficulty", "explanation"}, records[0])
	assert.Equal(t, "course", records[1][0])
	assert.Equal(t, "0", records[1][4])
}

func TestProgressTracking(t *testing.T) {
	db := newTestDB(t)
	courseRepo := repository.NewCourseRepository(db)
	courseSvc := NewCourseService(courseRepo, nil)
	svc := NewProgressService(repository.NewProgressRepository(db), courseSvc)

	owner := uint(1)
	course := seedCourse(t, courseRepo, &owner)
	topicID := course.Modules[0].Topics[0].ID

	record, err := svc.Get(t.Context(), course.ID, owner)
	require.NoError(t, err)
	assert.Empty(t, record.CompletedTopics)
	assert.Zero(t, record.OverallProgress)

	record, err = svc.CompleteTopic(t.Context(), course.ID, owner, topicID)
	require.NoError(t, err)
	assert.Equal(t, []string{topicID}, []string(record.CompletedTopics))
	assert.InDelta(t, 100.0, record.OverallProgress, 0.01)

	// completing the same topic twice is a no-op
	record, err = svc.CompleteTopic(t.Context(), course.ID, owner, topicID)
	require.NoError(t, err)
	assert.Len(t, record.CompletedTopics, 1)

	record, err = svc.RecordQuizScore(t.Context(), course.ID, owner, topicID, 87.5)
	require.NoError(t, err)
	assert.InDelta(t, 87.5, record.QuizScores.Data()[topicID], 0.01)
}
