package controller

import (
	"fmt"
	"net/http"

	"github.com/courseforge/backend/internal/service"
	"github.com/courseforge/backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// Get godoc
// @Summary Fetch a course with its full module and topic tree
// @Tags courses
// @Produce json
// @Param id path string true "course id"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/course/{id} [get]
func (c *CourseController) Get(ctx *gin.Context) {
	course, err := c.CourseService.Get(ctx.Request.Context(), ctx.Param("id"), util.UserIDFromContext(ctx))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// List godoc
// @Summary List courses owned by the caller
// @Tags courses
// @Produce json
// @Param page query int false "page number" default(1)
// @Param limit query int false "page size" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/course [get]
func (c *CourseController) List(ctx *gin.Context) {
	page := util.ParseIntDefault(ctx.Query("page"), 1)
	limit := util.ParseIntDefault(ctx.Query("limit"), 10)

	courses, total, err := c.CourseService.List(util.UserIDFromContext(ctx), page, limit)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// Delete godoc
// @Summary Delete a course and everything under it
// @Tags courses
// @Produce json
// @Param id path string true "course id"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/course/{id} [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	if err := c.CourseService.Delete(ctx.Request.Context(), ctx.Param("id"), util.UserIDFromContext(ctx)); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// ExportSummary godoc
// @Summary Download the course outline as markdown
// @Tags courses
// @Produce text/markdown
// @Param id path string true "course id"
// @Success 200 {string} string
// @Router /api/course/{id}/export/summary [get]
func (c *CourseController) ExportSummary(ctx *gin.Context) {
	data, err := c.CourseService.ExportSummary(ctx.Request.Context(), ctx.Param("id"), util.UserIDFromContext(ctx))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", attachment("course-summary.md"))
	ctx.Data(http.StatusOK, "text/markdown; charset=utf-8", data)
}

// ExportQuiz godoc
// @Summary Download every quiz question in the course
// @Tags courses
// @Produce json
// @Param id path string true "course id"
// @Param format query string false "json or csv" default(json)
// @Success 200 {string} string
// @Router /api/course/{id}/export/quiz [get]
func (c *CourseController) ExportQuiz(ctx *gin.Context) {
	userID := util.UserIDFromContext(ctx)
	id := ctx.Param("id")

	switch ctx.DefaultQuery("format", "json") {
	case "json":
		data, err := c.CourseService.ExportQuizJSON(ctx.Request.Context(), id, userID)
		if err != nil {
			util.FromError(ctx, err)
			return
		}
		ctx.Header("Content-Disposition", attachment("course-quiz.json"))
		ctx.Data(http.StatusOK, "application/json", data)
	case "csv":
		data, err := c.CourseService.ExportQuizCSV(ctx.Request.Context(), id, userID)
		if err != nil {
			util.FromError(ctx, err)
			return
		}
		ctx.Header("Content-Disposition", attachment("course-quiz.csv"))
		ctx.Data(http.StatusOK, "text/csv", data)
	default:
		util.BadRequest(ctx, "format must be json or csv")
	}
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
