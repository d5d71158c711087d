package controller

import (
	"github.com/courseforge/backend/internal/service"
	"github.com/courseforge/backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// Get godoc
// @Summary Progress of the caller in a course
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "course id"
// @Success 200 {object} util.Response{data=model.CourseProgress}
// @Failure 401 {object} util.Response
// @Router /api/progress/{courseId} [get]
func (c *ProgressController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	record, err := c.ProgressService.Get(ctx.Request.Context(), ctx.Param("courseId"), claims.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, record)
}

// swagger:model CompleteTopicRequest
type CompleteTopicRequest struct {
	TopicID string `json:"topicId" binding:"required"`
}

// CompleteTopic godoc
// @Summary Mark a topic as completed
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "course id"
// @Param body body CompleteTopicRequest true "topic"
// @Success 200 {object} util.Response{data=model.CourseProgress}
// @Failure 401 {object} util.Response
// @Router /api/progress/{courseId}/topic [post]
func (c *ProgressController) CompleteTopic(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CompleteTopicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	record, err := c.ProgressService.CompleteTopic(ctx.Request.Context(), ctx.Param("courseId"), claims.UserID, req.TopicID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, record)
}

// swagger:model QuizScoreRequest
type QuizScoreRequest struct {
	ScopeID string  `json:"scopeId" binding:"required"`
	Score   float64 `json:"score" binding:"min=0,max=100"`
}

// RecordQuizScore godoc
// @Summary Record a quiz score for a topic, module or course
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "course id"
// @Param body body QuizScoreRequest true "score"
// @Success 200 {object} util.Response{data=model.CourseProgress}
// @Failure 401 {object} util.Response
// @Router /api/progress/{courseId}/quiz [post]
func (c *ProgressController) RecordQuizScore(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req QuizScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	record, err := c.ProgressService.RecordQuizScore(ctx.Request.Context(), ctx.Param("courseId"), claims.UserID, req.ScopeID, req.Score)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, record)
}
