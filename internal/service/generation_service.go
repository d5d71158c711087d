package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/repository"
	"github.com/courseforge/backend/internal/util"
	"github.com/courseforge/backend/pkg/logger"
	"github.com/courseforge/backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerationInput carries exactly one source. FilePath points at a temporary
// copy of the upload which the orchestrator removes when it is done with it.
type GenerationInput struct {
	FilePath string
	FileName string
	MimeType string
	Text     string
	Link     string
	OwnerID  *uint
}

type GenerationResult struct {
	GenerationID string `json:"generationId"`
	CourseID     string `json:"courseId"`
	Title        string `json:"title"`
	ModuleCount  int    `json:"moduleCount"`
	TopicCount   int    `json:"topicCount"`
}

// GenerationService sequences extraction, synthesis and persistence for one
// request, and is the only writer of GenerationJob records. It runs in the
// scope of the originating request; concurrent jobs never share state beyond
// their own rows.
type GenerationService struct {
	jobs       *repository.GenerationRepository
	courses    *repository.CourseRepository
	extraction *ExtractionService
	synthesis  *SynthesisService
	storage    *StorageService
}

func NewGenerationService(
	jobs *repository.GenerationRepository,
	courses *repository.CourseRepository,
	extraction *ExtractionService,
	synthesis *SynthesisService,
	storage *StorageService,
) *GenerationService {
	return &GenerationService{
		jobs:       jobs,
		courses:    courses,
		extraction: extraction,
		synthesis:  synthesis,
		storage:    storage,
	}
}

// Run validates the input, creates a tracking job and drives it to a
// terminal state. Invalid input is rejected before any job exists. The
// returned error is already a taxonomy error suitable for the HTTP layer.
func (s *GenerationService) Run(ctx context.Context, in GenerationInput) (*GenerationResult, error) {
	if in.FilePath != "" {
		defer os.Remove(in.FilePath)
	}

	kind, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(in.OwnerID, kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	course, err := s.execute(ctx, job, in, kind)
	if err != nil {
		if failErr := s.jobs.Fail(job.ID, userMessage(err)); failErr != nil {
			logger.Log.Error("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(failErr))
		}
		monitoring.GenerationJobs.WithLabelValues(string(model.GenerationFailed)).Inc()
		return nil, err
	}

	monitoring.GenerationJobs.WithLabelValues(string(model.GenerationCompleted)).Inc()
	monitoring.GenerationDuration.Observe(time.Since(start).Seconds())

	return &GenerationResult{
		GenerationID: job.ID,
		CourseID:     course.ID,
		Title:        course.Title,
		ModuleCount:  len(course.Modules),
		TopicCount:   course.TopicCount(),
	}, nil
}

func (s *GenerationService) execute(ctx context.Context, job *model.GenerationJob, in GenerationInput, kind model.SourceKind) (*model.Course, error) {
	if err := s.jobs.Advance(job.ID, model.ProgressExtracting, model.StageExtracting, model.GenerationProcessing); err != nil {
		return nil, err
	}

	text, sourceRef, storedObject, err := s.extract(ctx, in, kind)
	if err != nil {
		return nil, err
	}
	cleanupStored := func() {
		if storedObject == "" || s.storage == nil {
			return
		}
		if delErr := s.storage.Delete(ctx, storedObject); delErr != nil {
			logger.Log.Warn("failed to delete stored source", zap.String("object", storedObject), zap.Error(delErr))
		}
	}

	if err := s.jobs.Advance(job.ID, model.ProgressSynthesizing, model.StageSynthesizing, model.GenerationGenerating); err != nil {
		cleanupStored()
		return nil, err
	}

	course := s.synthesis.Synthesize(ctx, text, kind)
	course.OwnerID = in.OwnerID
	course.SourceKind = kind
	course.SourceRef = sourceRef

	if err := s.jobs.Advance(job.ID, model.ProgressSaving, model.StageSaving, ""); err != nil {
		cleanupStored()
		return nil, err
	}

	if err := s.courses.Create(course); err != nil {
		cleanupStored()
		return nil, err
	}

	if err := s.jobs.Complete(job.ID, course.ID); err != nil {
		cleanupStored()
		return nil, err
	}

	logger.Log.Info("course generated",
		zap.String("job_id", job.ID),
		zap.String("course_id", course.ID),
		zap.String("source_kind", string(kind)),
		zap.Int("modules", len(course.Modules)))
	return course, nil
}

// extract produces plain text plus provenance. For files the original upload
// is kept in object storage so the course points at its source; the stored
// object name is returned for cleanup should a later step fail.
func (s *GenerationService) extract(ctx context.Context, in GenerationInput, kind model.SourceKind) (text, sourceRef, storedObject string, err error) {
	switch kind {
	case model.SourceFile:
		text, err = s.extraction.ExtractFile(in.FilePath, in.MimeType)
		if err != nil {
			return "", "", "", err
		}
		if s.storage != nil {
			object := fmt.Sprintf("sources/%s%s", uuid.New().String(), filepath.Ext(in.FileName))
			url, upErr := s.storage.UploadFile(ctx, object, in.FilePath, in.MimeType)
			if upErr != nil {
				logger.Log.Warn("failed to archive source file", zap.Error(upErr))
			} else {
				sourceRef = url
				storedObject = object
			}
		}
		return text, sourceRef, storedObject, nil

	case model.SourceLink:
		text, err = s.extraction.ExtractLink(ctx, in.Link)
		if err != nil {
			return "", "", "", err
		}
		return text, in.Link, "", nil

	default:
		return in.Text, "", "", nil
	}
}

// validateInput enforces the exactly-one-source rule and per-source bounds.
func validateInput(in GenerationInput) (model.SourceKind, error) {
	sources := 0
	if in.FilePath != "" {
		sources++
	}
	if in.Text != "" {
		sources++
	}
	if in.Link != "" {
		sources++
	}
	if sources != 1 {
		return "", fmt.Errorf("%w: provide exactly one of file, text or link", util.ErrInvalidInput)
	}

	switch {
	case in.FilePath != "":
		return model.SourceFile, nil
	case in.Link != "":
		if !util.ValidateURL(in.Link) {
			return "", fmt.Errorf("%w: link must be a valid http(s) URL", util.ErrInvalidInput)
		}
		return model.SourceLink, nil
	default:
		if err := util.ValidateText(in.Text, util.TextMinLength, util.TextMaxLength); err != nil {
			return "", err
		}
		if isTopicRequest(in.Text) {
			return model.SourceTopic, nil
		}
		return model.SourceText, nil
	}
}

// A short request like "Python full course" is a syllabus request rather
// than source material.
func isTopicRequest(text string) bool {
	if len(text) >= 500 {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range []string{"full course", "complete course", "from basics", "comprehensive"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// userMessage keeps internal failure detail out of the job record.
func userMessage(err error) string {
	switch {
	case errors.Is(err, util.ErrExtractionFailed):
		return err.Error()
	case errors.Is(err, util.ErrStorageFailed):
		return "failed to save the generated course, please try again"
	default:
		return "course generation failed, please try again"
	}
}
