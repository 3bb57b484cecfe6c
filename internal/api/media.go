package api

import (
	"context"
	"io"
	"net/http"
	"time"

	perrors "github.com/storyforge-ai/workflow-agent/internal/errors"
)

// UploadScriptResult is the response to a script upload.
type UploadScriptResult struct {
	ProjectID string `json:"project_id"`
	FilePath  string `json:"file_path"`
	Filename  string `json:"filename"`
}

// UploadScript uploads a raw script file for the project (multipart).
func (c *Client) UploadScript(ctx context.Context, projectID, filename string, r io.Reader) (*UploadScriptResult, error) {
	var res UploadScriptResult
	if err := c.doMultipart(ctx, "upload script",
		"/api/v1/projects/"+projectID+"/script", "file", filename, r, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ExtractText asks the backend to extract plain text from the uploaded script
// file (PDF, DOCX, etc).
func (c *Client) ExtractText(ctx context.Context, projectID string) (string, error) {
	var res struct {
		Text string `json:"text"`
	}
	if err := c.doJSON(ctx, "extract text", http.MethodPost,
		"/api/v1/projects/"+projectID+"/script/extract", nil, &res); err != nil {
		return "", err
	}
	return res.Text, nil
}

// FileInfo describes an uploaded file.
type FileInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadFile uploads a generic file (reference images, etc).
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (*FileInfo, error) {
	var info FileInfo
	if err := c.doMultipart(ctx, "upload file", "/api/v1/files", "file", filename, r, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListFiles lists uploaded files.
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	if err := c.doJSON(ctx, "list files", http.MethodGet, "/api/v1/files", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// ExportJob tracks a backend export conversion.
type ExportJob struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Format    string    `json:"format"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateExport schedules an export of the project in the given format.
func (c *Client) CreateExport(ctx context.Context, projectID, format string) (*ExportJob, error) {
	body := map[string]string{"format": format}
	var job ExportJob
	if err := c.doJSON(ctx, "create export", http.MethodPost,
		"/api/v1/projects/"+projectID+"/exports", body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetExport polls an export job.
func (c *Client) GetExport(ctx context.Context, exportID string) (*ExportJob, error) {
	var job ExportJob
	if err := c.doJSON(ctx, "get export", http.MethodGet, "/api/v1/exports/"+exportID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// DownloadExport streams the finished export file. The caller must close the
// returned reader.
func (c *Client) DownloadExport(ctx context.Context, exportID string) (io.ReadCloser, error) {
	op := "download export"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/exports/"+exportID+"/download", nil)
	if err != nil {
		return nil, err
	}

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
	return resp.Body, nil
}
