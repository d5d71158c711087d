package model

import (
	"time"
)

// GenerationStatus is the lifecycle state of a course-generation job.
// pending → processing → generating → completed | failed. The two terminal
// states accept no further transitions.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationGenerating GenerationStatus = "generating"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// Terminal reports whether no further transition is permitted.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationCompleted || s == GenerationFailed
}

// SourceKind records what triggered a generation job.
type SourceKind string

const (
	SourceFile  SourceKind = "file"
	SourceText  SourceKind = "text"
	SourceLink  SourceKind = "link"
	SourceTopic SourceKind = "topic"
)

// Progress checkpoints and stage labels reported to polling clients. The
// numeric values are not meaningful to any consumer, only their ordering is.
const (
	ProgressExtracting   = 10
	ProgressSynthesizing = 30
	ProgressSaving       = 80
	ProgressDone         = 100

	StageExtracting   = "Extracting content"
	StageSynthesizing = "Analyzing content and generating course structure"
	StageSaving       = "Saving course to database"
	StageDone         = "Course generated successfully"
)

// GenerationJob tracks one course-generation request through its lifecycle.
// Only the generation orchestrator writes these records; everything else,
// including the polling endpoints, is read-only. Jobs expire a fixed duration
// after creation (see the sweeper in internal/app) so abandoned requests do
// not accumulate.
// swagger:model GenerationJob
type GenerationJob struct {
	UUIDBase
	OwnerID     *uint            `gorm:"index" json:"ownerId,omitempty"`
	Status      GenerationStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Progress    int              `gorm:"not null;default:0" json:"progress"`
	Stage       string           `gorm:"size:255;default:'Initializing'" json:"stage"`
	Error       string           `gorm:"type:text" json:"error,omitempty"`
	SourceKind  SourceKind       `gorm:"size:10;not null;default:'text'" json:"sourceKind"`
	SourceRef   string           `gorm:"size:512" json:"sourceRef,omitempty"`
	CourseID    *string          `gorm:"index;type:varchar(36)" json:"courseId,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}

// VisibleTo reports whether the given identity may read this job. Jobs with
// no owner belong to guest mode and are visible to anyone, matching course
// visibility.
func (j *GenerationJob) VisibleTo(userID *uint) bool {
	if j.OwnerID == nil {
		return true
	}
	return userID != nil && *userID == *j.OwnerID
}
