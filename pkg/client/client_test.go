package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload := map[string]interface{}{"code": status, "message": message}
	if data != nil {
		payload["data"] = data
	}
	json.NewEncoder(w).Encode(payload)
}

func TestSubmitText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/upload", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "some study material", r.PostFormValue("text"))

		writeEnvelope(w, http.StatusOK, "success", GenerationResult{
			GenerationID: "gen-1",
			CourseID:     "course-1",
			Title:        "Generated Course",
		})
	}))
	defer srv.Close()

	result, err := New(srv.URL).SubmitText(t.Context(), "some study material")
	require.NoError(t, err)
	assert.Equal(t, "gen-1", result.GenerationID)
	assert.Equal(t, "course-1", result.CourseID)
}

func TestSubmitSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, "success", GenerationResult{GenerationID: "gen-1"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithToken("secret-token")).SubmitText(t.Context(), "hello world")
	require.NoError(t, err)
}

func TestPollGenerationUntilTerminal(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generation/gen-1", r.URL.Path)
		switch calls.Add(1) {
		case 1:
			writeEnvelope(w, http.StatusOK, "success", GenerationStatus{ID: "gen-1", Status: "processing", Progress: 10})
		case 2:
			writeEnvelope(w, http.StatusOK, "success", GenerationStatus{ID: "gen-1", Status: "generating", Progress: 30})
		default:
			writeEnvelope(w, http.StatusOK, "success", GenerationStatus{ID: "gen-1", Status: "completed", Progress: 100, CourseID: "course-1"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithPollInterval(5*time.Millisecond))
	status, err := c.PollGeneration(t.Context(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, "course-1", status.CourseID)
	assert.GreaterOrEqual(t, calls.Load(), int64(3))
}

func TestPollGenerationStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "success", GenerationStatus{ID: "gen-1", Status: "processing", Progress: 10})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
	defer cancel()

	c := New(srv.URL, WithPollInterval(5*time.Millisecond))
	_, err := c.PollGeneration(ctx, "gen-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetGenerationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, "Generation not found", nil)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetGeneration(t.Context(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Generation not found", apiErr.Message)
}

func TestDoRejectsNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetGeneration(t.Context(), "gen-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response")
}

func TestGetCourse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/course/course-1", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "success", map[string]interface{}{
			"title":   "Generated Course",
			"modules": []interface{}{},
		})
	}))
	defer srv.Close()

	var course struct {
		Title string `json:"title"`
	}
	require.NoError(t, New(srv.URL).GetCourse(t.Context(), "course-1", &course))
	assert.Equal(t, "Generated Course", course.Title)
}
