// Package api is the single choke point for all backend calls. It normalizes
// success payloads into model types and failures into the internal/errors
// taxonomy: transport failures become NetworkError, error statuses become
// APIError carrying the server-supplied message when present. The client
// never retries; retry policy, if any, belongs to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/storyforge-ai/workflow-agent/internal/errors"
	"github.com/storyforge-ai/workflow-agent/internal/metrics"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the StoryForge backend REST API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewClient creates a new backend API client.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// SetMetrics attaches a metrics collector. A nil collector disables recording.
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// BaseURL returns the base URL of the backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody is the shape backends use for error payloads. FastAPI-style
// backends put the message under "detail"; others use "error" or "message".
type errorBody struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorBody) text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	}
	return ""
}

// observe records the outcome and latency of one backend call.
func (c *Client) observe(op string, start time.Time, outcome string) {
	c.metrics.RecordAPIRequest(op, outcome)
	c.metrics.ObserveAPIDuration(op, time.Since(start).Seconds())
}

// do executes a request and classifies failures. A nil body sends no payload;
// otherwise body is JSON-encoded.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, start, "network_error")
		return nil, perrors.NewNetworkError(op, err)
	}

	if resp.StatusCode >= 400 {
		c.observe(op, start, "api_error")
		return nil, c.apiError(op, resp)
	}
	c.observe(op, start, "ok")
	return resp, nil
}

// doJSON executes a request and decodes the JSON response into out.
// Pass a nil out to discard the body.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	resp, err := c.do(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// doMultipart uploads a file as multipart/form-data and decodes the JSON
// response into out.
func (c *Client) doMultipart(ctx context.Context, op, path, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("%s: building multipart body: %w", op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("%s: reading upload: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("%s: finalizing multipart body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, start, "network_error")
		return perrors.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.observe(op, start, "api_error")
		return c.apiError(op, resp)
	}
	c.observe(op, start, "ok")
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// apiError consumes the response body and builds an APIError from it.
func (c *Client) apiError(op string, resp *http.Response) error {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var eb errorBody
	_ = json.Unmarshal(data, &eb)

	msg := eb.text()
	c.logger.Warn().
		Str("operation", op).
		Int("status", resp.StatusCode).
		Str("message", msg).
		Msg("backend request failed")

	return perrors.NewAPIError(op, resp.StatusCode, msg)
}

// Ping checks backend reachability. Used by the health checker.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, "ping", http.MethodGet, "/health", nil, nil)
}
