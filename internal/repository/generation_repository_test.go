package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/util"
	"github.com/courseforge/backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func TestGenerationLifecycle(t *testing.T) {
	repo := NewGenerationRepository(newTestDB(t))

	job, err := repo.Create(nil, model.SourceText)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.GenerationPending, job.Status)
	assert.Equal(t, 0, job.Progress)

	require.NoError(t, repo.Advance(job.ID, model.ProgressExtracting, model.StageExtracting, model.GenerationProcessing))
	require.NoError(t, repo.Advance(job.ID, model.ProgressSynthesizing, model.StageSynthesizing, model.GenerationGenerating))

	got, err := repo.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GenerationGenerating, got.Status)
	assert.Equal(t, model.ProgressSynthesizing, got.Progress)
	assert.Equal(t, model.StageSynthesizing, got.Stage)

	require.NoError(t, repo.Complete(job.ID, "course-1"))

	got, err = repo.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GenerationCompleted, got.Status)
	assert.Equal(t, model.ProgressDone, got.Progress)
	assert.Equal(t, model.StageDone, got.Stage)
	require.NotNil(t, got.CourseID)
	assert.Equal(t, "course-1", *got.CourseID)
	assert.NotNil(t, got.CompletedAt)
}

func TestGenerationProgressNonDecreasing(t *testing.T) {
	repo := NewGenerationRepository(newTestDB(t))

	job, err := repo.Create(nil, model.SourceText)
	require.NoError(t, err)

	last := job.Progress
	steps := []struct {
		progress int
		stage    string
		status   model.GenerationStatus
	}{
		{model.ProgressExtracting, model.StageExtracting, model.GenerationProcessing},
		{model.ProgressSynthesizing, model.StageSynthesizing, model.GenerationGenerating},
		{model.ProgressSaving, model.StageSaving, ""},
	}
	for _, step := range steps {
		require.NoError(t, repo.Advance(job.ID, step.progress, step.stage, step.status))
		got, err := repo.Get(job.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Progress, last)
		last = got.Progress
	}
	require.NoError(t, repo.Complete(job.ID, "course-1"))
	got, err := repo.Get(job.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Progress, last)
}

func TestGenerationTerminalGuards(t *testing.T) {
	repo := NewGenerationRepository(newTestDB(t))

	job, err := repo.Create(nil, model.SourceFile)
	require.NoError(t, err)

	require.NoError(t, repo.Complete(job.ID, "course-1"))

	assert.ErrorIs(t, repo.Complete(job.ID, "course-2"), util.ErrAlreadyTerminal)
	assert.ErrorIs(t, repo.Fail(job.ID, "boom"), util.ErrAlreadyTerminal)

	// the first terminal write sticks
	got, err := repo.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GenerationCompleted, got.Status)
	assert.Equal(t, "course-1", *got.CourseID)
}

func TestGenerationFailResetsProgress(t *testing.T) {
	repo := NewGenerationRepository(newTestDB(t))

	job, err := repo.Create(nil, model.SourceLink)
	require.NoError(t, err)
	require.NoError(t, repo.Advance(job.ID, model.ProgressSynthesizing, model.StageSynthesizing, model.GenerationGenerating))

	require.NoError(t, repo.Fail(job.ID, "extraction blew up"))

	got, err := repo.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GenerationFailed, got.Status)
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, "extraction blew up", got.Error)
	assert.Nil(t, got.CourseID)
}

func TestGenerationAdvanceIdempotent(t *testing.T) {
	repo := NewGenerationRepository(newTestDB(t))

	job, err := repo.Create(nil, model.SourceText)
	require.NoError(t, err)

	// writing the same progress/stage/status twice is a no-op, not a
	// missing-job error, even on drivers that report zero affected rows
	// for identical values
	require.NoError(t, repo.Advance(job.ID, model.ProgressExtracting, model.StageExtracting, model.GenerationProcessing))
	require.NoError(t, repo.Advance(job.ID, model.ProgressExtracting, model.StageExtracting, model.GenerationProcessing))

	got, err := repo.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressExtracting, got.Progress)
	assert.Equal(t, model.GenerationProcessing, got.Status)
}

func TestGenerationUnknownJob(t *testing.T) {
	repo := NewGenerationRepository(newTestDB(t))

	_, err := repo.Get("no-such-id")
	assert.ErrorIs(t, err, util.ErrNotFound)
	assert.ErrorIs(t, repo.Advance("no-such-id", 10, "x", ""), util.ErrNotFound)
	assert.ErrorIs(t, repo.Complete("no-such-id", "c"), util.ErrNotFound)
	assert.ErrorIs(t, repo.Fail("no-such-id", "x"), util.ErrNotFound)
}

func TestGenerationGetByCourse(t *testing.T) {
	repo := NewGenerationRepository(newTestDB(t))

	first, err := repo.Create(nil, model.SourceText)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(first.ID, "course-1"))

	// an older timestamp makes the second job unambiguously the latest
	require.NoError(t, repo.DB.Model(&model.GenerationJob{}).
		Where("id = ?", first.ID).
		Update("created_at", time.Now().Add(-time.Minute)).Error)

	second, err := repo.Create(nil, model.SourceText)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(second.ID, "course-1"))

	got, err := repo.GetByCourse("course-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = repo.GetByCourse("unknown-course")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestGenerationDeleteExpired(t *testing.T) {
	repo := NewGenerationRepository(newTestDB(t))

	old, err := repo.Create(nil, model.SourceText)
	require.NoError(t, err)
	fresh, err := repo.Create(nil, model.SourceText)
	require.NoError(t, err)

	require.NoError(t, repo.DB.Model(&model.GenerationJob{}).
		Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-2*time.Hour)).Error)

	removed, err := repo.DeleteExpired(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.Get(old.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = repo.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestGenerationVisibility(t *testing.T) {
	owner := uint(7)
	other := uint(8)

	guestJob := &model.GenerationJob{}
	assert.True(t, guestJob.VisibleTo(nil))
	assert.True(t, guestJob.VisibleTo(&owner))

	ownedJob := &model.GenerationJob{OwnerID: &owner}
	assert.False(t, ownedJob.VisibleTo(nil))
	assert.True(t, ownedJob.VisibleTo(&owner))
	assert.False(t, ownedJob.VisibleTo(&other))
}
