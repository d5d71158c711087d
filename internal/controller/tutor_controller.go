package controller

import (
	"strings"

	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/service"
	"github.com/courseforge/backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TutorController struct {
	TutorService  *service.TutorService
	CourseService *service.CourseService
}

func NewTutorController(tutorService *service.TutorService, courseService *service.CourseService) *TutorController {
	return &TutorController{TutorService: tutorService, CourseService: courseService}
}

// swagger:model TutorChatRequest
type TutorChatRequest struct {
	Message  string `json:"message" binding:"required"`
	CourseID string `json:"courseId"`
	TopicID  string `json:"topicId"`
	Level    string `json:"level"`
}

// Chat godoc
// @Summary Ask the tutor a question about the current topic
// @Tags tutor
// @Accept json
// @Produce json
// @Param body body TutorChatRequest true "question with optional course context"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/tutor/chat [post]
func (c *TutorController) Chat(ctx *gin.Context) {
	var req TutorChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	level := model.ExplanationLevel(strings.ToLower(req.Level))
	switch level {
	case model.LevelBeginner, model.LevelIntermediate, model.LevelExpert:
	default:
		level = model.LevelBeginner
	}

	topicContext := ""
	if req.CourseID != "" {
		course, err := c.CourseService.Get(ctx.Request.Context(), req.CourseID, util.UserIDFromContext(ctx))
		if err != nil {
			util.FromError(ctx, err)
			return
		}
		topicContext = contextForTopic(course, req.TopicID, level)
	}

	reply := c.TutorService.Chat(ctx.Request.Context(), req.Message, topicContext, level)
	util.Success(ctx, gin.H{"reply": reply})
}

// contextForTopic returns the requested topic's explanation at the given
// level, or the course summary when no topic is named.
func contextForTopic(course *model.Course, topicID string, level model.ExplanationLevel) string {
	if topicID == "" {
		return course.Summary
	}
	for _, mod := range course.Modules {
		for _, topic := range mod.Topics {
			if topic.ID == topicID {
				return topic.ExplanationFor(level)
			}
		}
	}
	return course.Summary
}
