package controller

import (
	"github.com/courseforge/backend/internal/model"
	"github.com/courseforge/backend/internal/repository"
	"github.com/courseforge/backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GenerationController struct {
	Generations *repository.GenerationRepository
}

func NewGenerationController(generations *repository.GenerationRepository) *GenerationController {
	return &GenerationController{Generations: generations}
}

// Poll payload. error is empty unless status is failed, courseId is empty
// until status is completed.
// swagger:model GenerationStatusResponse
type GenerationStatusResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Stage    string `json:"stage"`
	Error    string `json:"error,omitempty"`
	CourseID string `json:"courseId,omitempty"`
}

func statusResponse(job *model.GenerationJob) GenerationStatusResponse {
	resp := GenerationStatusResponse{
		ID:       job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Stage:    job.Stage,
		Error:    job.Error,
	}
	if job.CourseID != nil {
		resp.CourseID = *job.CourseID
	}
	return resp
}

// Get godoc
// @Summary Poll a generation job
// @Tags generation
// @Produce json
// @Param id path string true "generation id"
// @Success 200 {object} util.Response{data=GenerationStatusResponse}
// @Failure 404 {object} util.Response
// @Router /api/generation/{id} [get]
func (c *GenerationController) Get(ctx *gin.Context) {
	job, err := c.Generations.Get(ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	if !job.VisibleTo(util.UserIDFromContext(ctx)) {
		util.Forbidden(ctx)
		return
	}
	util.Success(ctx, statusResponse(job))
}

// GetByCourse godoc
// @Summary Latest generation job for a course
// @Tags generation
// @Produce json
// @Param courseId path string true "course id"
// @Success 200 {object} util.Response{data=GenerationStatusResponse}
// @Failure 404 {object} util.Response
// @Router /api/generation/course/{courseId} [get]
func (c *GenerationController) GetByCourse(ctx *gin.Context) {
	job, err := c.Generations.GetByCourse(ctx.Param("courseId"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	if !job.VisibleTo(util.UserIDFromContext(ctx)) {
		util.Forbidden(ctx)
		return
	}
	util.Success(ctx, statusResponse(job))
}
