package controller

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/courseforge/backend/internal/service"
	"github.com/courseforge/backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// uploads larger than this are rejected before extraction
const maxUploadBytes = 25 << 20

type UploadController struct {
	GenerationService *service.GenerationService
}

func NewUploadController(generationService *service.GenerationService) *UploadController {
	return &UploadController{GenerationService: generationService}
}

// Upload godoc
// @Summary Generate a course from a file, raw text or link
// @Description Accepts exactly one of file, text or link and runs the
// @Description generation pipeline synchronously. The response carries both
// @Description the finished course identifiers and the generation id whose
// @Description progress was tracked along the way.
// @Tags generation
// @Accept mpfd
// @Produce json
// @Param file formData file false "document to convert (pdf, docx, txt or image)"
// @Param text formData string false "raw text or topic request"
// @Param link formData string false "http(s) URL to fetch"
// @Success 201 {object} util.Response{data=service.GenerationResult}
// @Failure 400 {object} util.Response
// @Router /api/upload [post]
func (c *UploadController) Upload(ctx *gin.Context) {
	input := service.GenerationInput{
		Text:    ctx.PostForm("text"),
		Link:    ctx.PostForm("link"),
		OwnerID: util.UserIDFromContext(ctx),
	}

	if file, err := ctx.FormFile("file"); err == nil && file != nil {
		if file.Size > maxUploadBytes {
			util.BadRequest(ctx, fmt.Sprintf("file exceeds the %d MB limit", maxUploadBytes>>20))
			return
		}

		tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(file.Filename))
		if err := ctx.SaveUploadedFile(file, tmpPath); err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		input.FilePath = tmpPath
		input.FileName = file.Filename
		input.MimeType = file.Header.Get("Content-Type")
	}

	result, err := c.GenerationService.Run(ctx.Request.Context(), input)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, result)
}
