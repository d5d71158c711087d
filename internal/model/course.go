package model

import (
	"gorm.io/datatypes"
)

// ExplanationLevel selects one of the three fixed explanation variants every
// topic carries.
type ExplanationLevel string

const (
	LevelBeginner     ExplanationLevel = "beginner"
	LevelIntermediate ExplanationLevel = "intermediate"
	LevelExpert       ExplanationLevel = "expert"
)

// QuizKind is the question format of a quiz item.
type QuizKind string

const (
	QuizMultipleChoice QuizKind = "multiple_choice"
	QuizTrueFalse      QuizKind = "true_false"
	QuizCode           QuizKind = "code"
)

// Course is the synthesized artifact of a generation job. Once created it is
// immutable except for deletion; there is no in-place edit operation.
// swagger:model Course
type Course struct {
	UUIDBase
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Summary     string         `gorm:"type:text" json:"summary"`
	SourceKind  SourceKind     `gorm:"size:10;default:'text'" json:"sourceKind"`
	SourceRef   string         `gorm:"size:512" json:"sourceRef,omitempty"`
	OwnerID     *uint          `gorm:"index" json:"ownerId,omitempty"`
	Modules     []CourseModule `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules"`
	Quiz        []QuizItem     `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"quiz"`
}

func (Course) TableName() string {
	return "courses"
}

// VisibleTo mirrors GenerationJob visibility: ownerless courses are readable
// by anyone (guest mode).
func (c *Course) VisibleTo(userID *uint) bool {
	if c.OwnerID == nil {
		return true
	}
	return userID != nil && *userID == *c.OwnerID
}

// TopicCount sums the topics across all loaded modules.
func (c *Course) TopicCount() int {
	n := 0
	for i := range c.Modules {
		n += len(c.Modules[i].Topics)
	}
	return n
}

// CourseModule is one ordered section of a course. Position preserves the
// insertion order; modules are never reordered after creation.
// swagger:model CourseModule
type CourseModule struct {
	UUIDBase
	CourseID    string     `gorm:"index;type:varchar(36);not null" json:"courseId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Position    int        `gorm:"not null;default:0" json:"position"`
	Topics      []Topic    `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"topics"`
	Quiz        []QuizItem `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"quiz"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

// Topic carries the three-level explanation fan-out as fixed struct fields
// rather than a string-keyed map, so a missing level falls back at a known
// place instead of a runtime lookup.
// swagger:model Topic
type Topic struct {
	UUIDBase
	ModuleID         string                      `gorm:"index;type:varchar(36);not null" json:"moduleId"`
	Title            string                      `gorm:"size:255;not null" json:"title"`
	BeginnerText     string                      `gorm:"type:longtext" json:"beginnerText"`
	IntermediateText string                      `gorm:"type:longtext" json:"intermediateText"`
	ExpertText       string                      `gorm:"type:longtext" json:"expertText"`
	Examples         datatypes.JSONSlice[string] `json:"examples"`
	Analogies        datatypes.JSONSlice[string] `json:"analogies"`
	Summary          string                      `gorm:"type:text" json:"summary"`
	Position         int                         `gorm:"not null;default:0" json:"position"`
	Quiz             []QuizItem                  `gorm:"foreignKey:TopicID;constraint:OnDelete:CASCADE" json:"quiz"`
}

func (Topic) TableName() string {
	return "topics"
}

// ExplanationFor returns the variant for the requested level, falling back
// toward the beginner text when a level is empty.
func (t *Topic) ExplanationFor(level ExplanationLevel) string {
	switch level {
	case LevelExpert:
		if t.ExpertText != "" {
			return t.ExpertText
		}
		fallthrough
	case LevelIntermediate:
		if t.IntermediateText != "" {
			return t.IntermediateText
		}
		fallthrough
	default:
		return t.BeginnerText
	}
}

// QuizItem belongs to exactly one of a course, a module, or a topic.
// CorrectOptionIndex is a 0-based index into Options.
// swagger:model QuizItem
type QuizItem struct {
	UUIDBase
	CourseID           *string                     `gorm:"index;type:varchar(36)" json:"-"`
	ModuleID           *string                     `gorm:"index;type:varchar(36)" json:"-"`
	TopicID            *string                     `gorm:"index;type:varchar(36)" json:"-"`
	QuestionText       string                      `gorm:"type:text;not null" json:"questionText"`
	Kind               QuizKind                    `gorm:"size:20;not null;default:'multiple_choice'" json:"kind"`
	Options            datatypes.JSONSlice[string] `json:"options"`
	CorrectOptionIndex int                         `gorm:"not null;default:0" json:"correctOptionIndex"`
	Explanation        string                      `gorm:"type:text" json:"explanation"`
	Difficulty         ExplanationLevel            `gorm:"size:20;default:'beginner'" json:"difficulty"`
	Position           int                         `gorm:"not null;default:0" json:"position"`
}

func (QuizItem) TableName() string {
	return "quiz_items"
}
