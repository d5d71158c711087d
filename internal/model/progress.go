package model

import (
	"gorm.io/datatypes"
)

// CourseProgress tracks a learner's position in a course. One row per
// user+course pair; created lazily on first read.
// swagger:model CourseProgress
type CourseProgress struct {
	BaseModel
	CourseID        string                                 `gorm:"index:idx_progress_course_user,unique;type:varchar(36);not null" json:"courseId"`
	UserID          uint                                   `gorm:"index:idx_progress_course_user,unique;not null" json:"userId"`
	CompletedTopics datatypes.JSONSlice[string]            `json:"completedTopics"`
	QuizScores      datatypes.JSONType[map[string]float64] `json:"quizScores"`
	OverallProgress float64                                `gorm:"not null;default:0" json:"overallProgress"`
}

func (CourseProgress) TableName() string {
	return "course_progresses"
}
