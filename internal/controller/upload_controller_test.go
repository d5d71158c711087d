package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/internal/repository"
	"github.com/courseforge/backend/internal/service"
	"github.com/courseforge/backend/internal/util"
	"github.com/courseforge/backend/pkg/database"
	"github.com/courseforge/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("debug")
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newUploadRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	generation := service.NewGenerationService(
		repository.NewGenerationRepository(db),
		repository.NewCourseRepository(db),
		service.NewExtractionService(config.ExtractionConfig{}),
		service.NewSynthesisService(config.AIConfig{}),
		nil,
	)

	router := gin.New()
	router.POST("/api/upload", NewUploadController(generation).Upload)
	return router
}

func postForm(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadTextReturnsCreated(t *testing.T) {
	router := newUploadRouter(t)

	w := postForm(router, url.Values{"text": {"A study text about goroutines, channels and the Go scheduler."}})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusCreated, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["generationId"])
	assert.NotEmpty(t, data["courseId"])
}

func TestUploadRejectsShortText(t *testing.T) {
	router := newUploadRouter(t)

	w := postForm(router, url.Values{"text": {"hi"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsMultipleSources(t *testing.T) {
	router := newUploadRouter(t)

	w := postForm(router, url.Values{
		"text": {"A study text about goroutines, channels and the Go scheduler."},
		"link": {"https://example.com/article"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
