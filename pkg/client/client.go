// Package client is a small API client for the CourseForge backend,
// implementing the submit-then-poll protocol the web frontend speaks.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPollInterval is the recommended delay between status requests.
const DefaultPollInterval = 2 * time.Second

type Client struct {
	baseURL      string
	httpClient   *http.Client
	token        string
	pollInterval time.Duration
}

type Option func(*Client)

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 5 * time.Minute},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server, which for a
// generation id also means the record has expired.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

type GenerationResult struct {
	GenerationID string `json:"generationId"`
	CourseID     string `json:"courseId"`
	Title        string `json:"title"`
	ModuleCount  int    `json:"moduleCount"`
	TopicCount   int    `json:"topicCount"`
}

type GenerationStatus struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
	CourseID string `json:"courseId"`
}

// Terminal reports whether polling should stop.
func (s *GenerationStatus) Terminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

// SubmitText sends raw text or a topic request for generation.
func (c *Client) SubmitText(ctx context.Context, text string) (*GenerationResult, error) {
	return c.submitForm(ctx, url.Values{"text": {text}})
}

// SubmitLink sends a URL for generation.
func (c *Client) SubmitLink(ctx context.Context, link string) (*GenerationResult, error) {
	return c.submitForm(ctx, url.Values{"link": {link}})
}

// SubmitFile uploads a document for generation.
func (c *Client) SubmitFile(ctx context.Context, path string) (*GenerationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result GenerationResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) submitForm(ctx context.Context, form url.Values) (*GenerationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result GenerationResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetGeneration fetches the current state of a job.
func (c *Client) GetGeneration(ctx context.Context, id string) (*GenerationStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/generation/"+id, nil)
	if err != nil {
		return nil, err
	}

	var status GenerationStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// PollGeneration polls the job on the configured interval until it reaches
// a terminal state or ctx is cancelled. Cancelling simply stops polling;
// the server keeps working.
func (c *Client) PollGeneration(ctx context.Context, id string) (*GenerationStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.GetGeneration(ctx, id)
		if err != nil {
			return nil, err
		}
		if status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetCourse fetches a generated course. The shape is left to the caller
// since clients rarely need the whole tree typed.
func (c *Client) GetCourse(ctx context.Context, id string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/course/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
